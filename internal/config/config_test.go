package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.HTTPPort)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.Database.Driver)
	}
	if !cfg.DefaultDSN() {
		t.Fatalf("expected default DSN to be detected")
	}
	if cfg.Location.String() != "America/La_Paz" {
		t.Fatalf("expected La Paz timezone, got %s", cfg.Location)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("expected 12h session, got %s", cfg.SessionTTL)
	}
	if cfg.PastryMarker != "SALTEÑA" {
		t.Fatalf("unexpected pastry marker %q", cfg.PastryMarker)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DATABASE_DSN", "file:cardelfi.db")
	t.Setenv("SESSION_TTL_HOURS", "0")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":9090" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.DSN != "file:cardelfi.db" {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("non-positive TTL should fall back to 12h, got %s", cfg.SessionTTL)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development mode")
	}
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		JWTSecret: strings.Repeat("x", 32),
		Database:  Database{Driver: DriverSQLite, DSN: "file::memory:"},
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	short := base
	short.JWTSecret = "short"
	if err := short.Validate(); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}

	missing := base
	missing.JWTSecret = ""
	if err := missing.Validate(); err == nil {
		t.Fatalf("expected missing secret to be rejected")
	}

	driver := base
	driver.Database.Driver = "oracle"
	if err := driver.Validate(); err == nil {
		t.Fatalf("expected unknown driver to be rejected")
	}
}
