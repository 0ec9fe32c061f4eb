package catalog

import (
	"context"

	"cardelfi-backend/internal/models"

	"gorm.io/gorm"
)

// BranchProducts loads every product assigned to the branch, with its
// category, in planilla order.
func BranchProducts(ctx context.Context, db *gorm.DB, branchID uint, marker string) ([]models.Product, error) {
	var products []models.Product
	err := db.WithContext(ctx).
		Preload("Category").
		Joins("JOIN product_branches ON product_branches.product_id = products.id").
		Where("product_branches.branch_id = ?", branchID).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	SortProducts(products, marker)
	return products, nil
}

// Branches returns all branches by name.
func Branches(ctx context.Context, db *gorm.DB) ([]models.Branch, error) {
	var branches []models.Branch
	if err := db.WithContext(ctx).Order("name asc").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}
