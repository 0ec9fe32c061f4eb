package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtraExpense is a gasto registered outside a closing, keyed by branch and day.
type ExtraExpense struct {
	ID          uint            `gorm:"primaryKey"`
	Description string          `gorm:"size:200;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	BranchID    uint            `gorm:"index:idx_extra_expenses_branch_date,priority:1;not null"`
	Branch      Branch
	Date        time.Time `gorm:"type:date;index:idx_extra_expenses_branch_date,priority:2;not null"`
	CreatedAt   time.Time
}
