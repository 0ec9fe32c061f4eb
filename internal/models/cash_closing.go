package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashClosing is the cierre de caja of one branch shift.
type CashClosing struct {
	ID         uint `gorm:"primaryKey"`
	BranchID   uint `gorm:"index;not null"`
	Branch     Branch
	Date       time.Time       `gorm:"type:date;index;not null"`
	Cash       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	QR         decimal.Decimal `gorm:"column:qr;type:decimal(10,2);not null;default:0"`
	Card       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	ShiftStaff string          `gorm:"size:255"` // comma separated names
	CreatedAt  time.Time

	Expenses []ExpenseLine
}

// Collected is the money actually on hand: cash + QR + card.
func (c CashClosing) Collected() decimal.Decimal {
	return c.Cash.Add(c.QR).Add(c.Card)
}

// ExpenseLine is a gasto paid out of the register during the shift.
type ExpenseLine struct {
	ID            uint            `gorm:"primaryKey"`
	CashClosingID uint            `gorm:"index;not null"`
	Description   string          `gorm:"size:200;not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}
