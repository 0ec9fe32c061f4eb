package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cardelfi-backend/internal/models"

	"gorm.io/gorm"
)

// CreateProduct validates the request and inserts the product with its
// branch assignments.
func CreateProduct(ctx context.Context, db *gorm.DB, req CreateProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: el nombre es obligatorio", ErrInvalidInput)
	}
	if req.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: el precio no puede ser negativo", ErrInvalidInput)
	}
	if req.UnitPrice.Round(2).GreaterThan(models.MaxAmount) {
		return nil, fmt.Errorf("%w: el precio es demasiado alto", ErrInvalidInput)
	}

	var p models.Product
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cat, err := loadCategory(tx, req.CategoryID)
		if err != nil {
			return err
		}
		branches, err := loadBranches(tx, req.BranchIDs)
		if err != nil {
			return err
		}

		p = models.Product{Name: name, CategoryID: cat.ID, UnitPrice: req.UnitPrice.Round(2)}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		if len(branches) > 0 {
			if err := tx.Model(&p).Association("Branches").Replace(branches); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reloadProduct(ctx, db, p.ID)
}

// UpdateProduct applies the non-nil fields of req and returns the product as
// it was before and after the change.
func UpdateProduct(ctx context.Context, db *gorm.DB, id uint, req UpdateProductRequest) (before, after *models.Product, err error) {
	before, err = reloadProduct(ctx, db, id)
	if err != nil {
		return nil, nil, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: el nombre es obligatorio", ErrInvalidInput)
			}
			updates["name"] = name
		}
		if req.UnitPrice != nil {
			if req.UnitPrice.IsNegative() {
				return fmt.Errorf("%w: el precio no puede ser negativo", ErrInvalidInput)
			}
			if req.UnitPrice.Round(2).GreaterThan(models.MaxAmount) {
				return fmt.Errorf("%w: el precio es demasiado alto", ErrInvalidInput)
			}
			updates["unit_price"] = req.UnitPrice.Round(2)
		}
		if req.CategoryID != nil {
			cat, err := loadCategory(tx, *req.CategoryID)
			if err != nil {
				return err
			}
			updates["category_id"] = cat.ID
		}

		p := models.Product{ID: id}
		if len(updates) > 0 {
			if err := tx.Model(&p).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.BranchIDs != nil {
			branches, err := loadBranches(tx, *req.BranchIDs)
			if err != nil {
				return err
			}
			if len(branches) == 0 {
				return tx.Model(&p).Association("Branches").Clear()
			}
			return tx.Model(&p).Association("Branches").Replace(branches)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	after, err = reloadProduct(ctx, db, id)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func reloadProduct(ctx context.Context, db *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	if err := db.WithContext(ctx).Preload("Category").Preload("Branches").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func loadCategory(tx *gorm.DB, id uint) (*models.Category, error) {
	var cat models.Category
	if err := tx.First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: categoría %d no existe", ErrInvalidInput, id)
		}
		return nil, err
	}
	return &cat, nil
}

func loadBranches(tx *gorm.DB, ids []uint) ([]models.Branch, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var branches []models.Branch
	if err := tx.Where("id IN ?", ids).Find(&branches).Error; err != nil {
		return nil, err
	}
	if len(branches) != len(uniq(ids)) {
		return nil, fmt.Errorf("%w: sucursal inexistente en la lista", ErrInvalidInput)
	}
	return branches, nil
}

func uniq(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
