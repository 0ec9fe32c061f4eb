package models

import "time"

// DailyMovement is one product's activity at a branch for a business day:
// produced, received, discarded, transferred out (traspaso) and sold units.
type DailyMovement struct {
	ID            uint `gorm:"primaryKey"`
	ProductID     uint `gorm:"index;not null"`
	Product       Product
	BranchID      uint `gorm:"index:idx_daily_movements_branch_date,priority:1;not null"`
	Branch        Branch
	CashClosingID *uint     `gorm:"index"`
	Date          time.Time `gorm:"type:date;index:idx_daily_movements_branch_date,priority:2;not null"`

	Produced            int    `gorm:"not null;default:0"`
	Received            int    `gorm:"not null;default:0"`
	Discarded           int    `gorm:"not null;default:0"`
	Transferred         int    `gorm:"not null;default:0"`
	TransferDestination string `gorm:"size:100"` // destination branch name
	Sold                int    `gorm:"not null;default:0"`

	CreatedAt time.Time
}

// Empty reports whether the row carries no activity at all.
func (m DailyMovement) Empty() bool {
	return m.Produced == 0 && m.Received == 0 && m.Discarded == 0 &&
		m.Transferred == 0 && m.Sold == 0
}
