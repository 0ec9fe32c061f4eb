package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleEntry keeps the product name and unit price as they were at sale time,
// so later price edits do not change historical totals.
type SaleEntry struct {
	ID            uint            `gorm:"primaryKey"`
	ProductName   string          `gorm:"size:100;not null"`
	Quantity      int             `gorm:"not null;default:0"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	BranchID      uint            `gorm:"index;not null"`
	Branch        Branch
	CashClosingID *uint     `gorm:"index"`
	Date          time.Time `gorm:"type:date;index;not null"`
	CreatedAt     time.Time
}

func (s SaleEntry) Total() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}
