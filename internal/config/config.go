package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	defaultDSN = "host=localhost user=postgres password=postgres dbname=cardelfi port=5432 sslmode=disable"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPPort string

	Database Database

	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool
	CORSOrigins  string

	// Business dates (closings, movements, extra expenses) are taken in this zone.
	Location     *time.Location
	PastryMarker string

	AdminUsername string
	AdminPassword string
}

type Database struct {
	Driver string
	DSN    string
}

// Load reads the configuration from the environment and, when CONFIG_FILE is
// set, from that file. Environment values win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TTL_HOURS", 12)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:8080")
	v.SetDefault("TIMEZONE", "America/La_Paz")
	v.SetDefault("PASTRY_MARKER", "SALTEÑA")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	ttl := v.GetInt("SESSION_TTL_HOURS")
	if ttl < 1 {
		ttl = 12
	}

	cfg := &Config{
		AppEnv:   strings.ToLower(v.GetString("APP_ENV")),
		LogLevel: strings.ToLower(v.GetString("LOG_LEVEL")),
		HTTPPort: v.GetString("HTTP_PORT"),
		Database: Database{
			Driver: strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		JWTSecret:     strings.TrimSpace(v.GetString("JWT_SECRET")),
		SessionTTL:    time.Duration(ttl) * time.Hour,
		CookieSecure:  v.GetBool("COOKIE_SECURE"),
		CORSOrigins:   v.GetString("CORS_ALLOWED_ORIGINS"),
		Location:      loc,
		PastryMarker:  strings.TrimSpace(v.GetString("PASTRY_MARKER")),
		AdminUsername: strings.TrimSpace(v.GetString("ADMIN_USERNAME")),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
	}

	return cfg, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("DATABASE_DSN is empty")
	}
	return nil
}

// DefaultDSN reports whether the database DSN was left at the local default.
func (c *Config) DefaultDSN() bool {
	return c.Database.Driver == DriverPostgres && c.Database.DSN == defaultDSN
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

func (c *Config) Address() string {
	return ":" + c.HTTPPort
}
