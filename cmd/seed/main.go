// Command seed loads the Cardelfi branches, catalog and super admin.
package main

import (
	"errors"
	"log"
	"strings"

	"cardelfi-backend/internal/auth"
	"cardelfi-backend/internal/catalog"
	"cardelfi-backend/internal/config"
	"cardelfi-backend/internal/database"
	"cardelfi-backend/internal/logger"
	"cardelfi-backend/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.IsDevelopment(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Open(cfg, zl)
	if err != nil {
		zl.Fatal("database unavailable", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}

	res, err := catalog.SeedCardelfi(db)
	if err != nil {
		zl.Fatal("seed catalog", zap.Error(err))
	}
	zl.Info("catalog seeded",
		zap.Int("branches", res.Branches),
		zap.Int("products", res.Products),
		zap.Int("created", res.Created))

	if err := ensureSuperAdmin(db, cfg); err != nil {
		zl.Fatal("seed super admin", zap.Error(err))
	}
	zl.Info("seed finished")
}

func ensureSuperAdmin(db *gorm.DB, cfg *config.Config) error {
	if cfg.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD is not set")
	}

	var existing models.User
	err := db.Where("username = ?", strings.ToLower(cfg.AdminUsername)).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	user, err := auth.NewUser(cfg.AdminUsername, "Administrador", cfg.AdminPassword, models.RoleSuperAdmin, nil)
	if err != nil {
		return err
	}
	return db.Create(user).Error
}
