package models

import "time"

type UserRole string

const (
	RoleSuperAdmin  UserRole = "super_admin"
	RoleBranchAdmin UserRole = "branch_admin"
)

type User struct {
	ID           uint `gorm:"primaryKey"`
	BranchID     *uint `gorm:"uniqueIndex"` // one manager per branch
	Branch       *Branch
	Username     string   `gorm:"size:50;uniqueIndex;not null"`
	Name         string   `gorm:"size:100;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
