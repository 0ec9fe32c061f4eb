package catalog

import (
	"errors"
	"fmt"

	"cardelfi-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedProduct struct {
	name  string
	price string
}

type seedCategory struct {
	name     string
	products []seedProduct
}

var cardelfiBranches = []string{"CALACOTO", "MENDEZ ARCOS", "SAN PEDRO"}

var cardelfiCatalog = []seedCategory{
	{"SALTEÑAS", []seedProduct{
		{"CARNE", "8.00"}, {"POLLO", "8.00"}, {"MIXTAS", "8.00"},
		{"SANTA CLARA", "8.00"}, {"SALTEÑAS HOJA", "8.00"}, {"QUESO", "8.00"}, {"FRICASE", "9.00"},
	}},
	{"BEBIDAS", []seedProduct{
		{"REFRESCO 190 ml", "3.00"}, {"REFRESCO 300 ml", "5.00"}, {"REFRESCO 500 ml", "7.00"},
		{"REFRESCO 600 ml", "8.00"}, {"REFRESCO 2.5 lt", "15.00"}, {"AGUA 500 ml", "5.00"},
		{"AGUA 3 lt", "12.00"}, {"LECHE", "6.00"},
	}},
	{"JUGOS", []seedProduct{
		{"PLÁTANO/PAPAYA", "12.00"}, {"BATIDO DE LIMON", "10.00"},
		{"FRUT/ARAND/MORA", "15.00"}, {"TROPICAL/FRUTO ROJOS", "15.00"},
	}},
	{"BEBIDAS CALIENTES", []seedProduct{
		{"TE O MATE", "5.00"}, {"LINAZA", "6.00"}, {"CAFÉ/COCOA", "7.00"},
	}},
}

type SeedResult struct {
	Branches int
	Products int
	Created  int
}

// SeedCardelfi loads the Cardelfi branches and catalog. Existing rows keep
// their price; every product ends up assigned to every seeded branch.
func SeedCardelfi(db *gorm.DB) (*SeedResult, error) {
	res := &SeedResult{}
	err := db.Transaction(func(tx *gorm.DB) error {
		branches := make([]models.Branch, 0, len(cardelfiBranches))
		for _, name := range cardelfiBranches {
			b, err := ensureBranch(tx, name)
			if err != nil {
				return err
			}
			branches = append(branches, *b)
		}
		res.Branches = len(branches)

		for _, sc := range cardelfiCatalog {
			cat, err := ensureCategory(tx, sc.name)
			if err != nil {
				return err
			}
			for _, sp := range sc.products {
				p, created, err := ensureProduct(tx, cat.ID, sp.name, decimal.RequireFromString(sp.price))
				if err != nil {
					return err
				}
				if created {
					res.Created++
				}
				if err := tx.Model(p).Association("Branches").Replace(branches); err != nil {
					return fmt.Errorf("assign branches to %s: %w", p.Name, err)
				}
				res.Products++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func ensureBranch(tx *gorm.DB, name string) (*models.Branch, error) {
	var b models.Branch
	err := tx.Where("name = ?", name).First(&b).Error
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	b = models.Branch{Name: name}
	if err := tx.Create(&b).Error; err != nil {
		return nil, fmt.Errorf("create branch %s: %w", name, err)
	}
	return &b, nil
}

func ensureCategory(tx *gorm.DB, name string) (*models.Category, error) {
	var c models.Category
	err := tx.Where("name = ?", name).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c = models.Category{Name: name}
	if err := tx.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("create category %s: %w", name, err)
	}
	return &c, nil
}

// ensureProduct finds a product by name within a category, creating it with
// price when missing. The bool reports whether it was created.
func ensureProduct(tx *gorm.DB, categoryID uint, name string, price decimal.Decimal) (*models.Product, bool, error) {
	var p models.Product
	err := tx.Where("name = ? AND category_id = ?", name, categoryID).First(&p).Error
	if err == nil {
		return &p, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	p = models.Product{Name: name, CategoryID: categoryID, UnitPrice: price}
	if err := tx.Create(&p).Error; err != nil {
		return nil, false, fmt.Errorf("create product %s: %w", name, err)
	}
	return &p, true, nil
}
