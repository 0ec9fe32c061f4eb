package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID         uint            `gorm:"primaryKey"`
	Name       string          `gorm:"size:100;not null"`
	CategoryID uint            `gorm:"index;not null"`
	Category   Category
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Branches []Branch `gorm:"many2many:product_branches;"`
}
