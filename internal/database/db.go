package database

import (
	"fmt"
	"time"

	"cardelfi-backend/internal/config"
	"cardelfi-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectAttempts = 5

// Open connects to the configured database. Network databases get a few
// attempts so the server survives starting before the database container.
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.Database.DSN)
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.Database.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	level := logger.Warn
	if cfg.IsDevelopment() {
		level = logger.Info
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	attempts := connectAttempts
	if cfg.Database.Driver == config.DriverSQLite {
		attempts = 1
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= attempts; i++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		if i < attempts {
			log.Warn("database not reachable, retrying",
				zap.String("driver", cfg.Database.Driver),
				zap.Int("attempt", i),
				zap.Error(err))
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Database.Driver, err)
	}

	log.Info("database connected", zap.String("driver", cfg.Database.Driver))
	return db, nil
}

// Migrate creates or updates every table the application owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.CashClosing{},
		&models.ExpenseLine{},
		&models.DailyMovement{},
		&models.SaleEntry{},
		&models.ExtraExpense{},
		&models.AuditLog{},
	)
}
