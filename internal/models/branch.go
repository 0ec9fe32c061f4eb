package models

import "time"

// Branch is a sucursal. Manager is the optional user in charge of it.
type Branch struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;unique"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Manager  *User     `gorm:"foreignKey:BranchID"`
	Products []Product `gorm:"many2many:product_branches;"`
}
