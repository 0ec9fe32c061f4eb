package catalog

import (
	"sort"
	"strings"

	"cardelfi-backend/internal/models"
)

// SortPriority puts categories whose name contains marker (the salteñas)
// ahead of every other category.
func SortPriority(categoryName, marker string) int {
	if marker != "" && strings.Contains(strings.ToUpper(categoryName), strings.ToUpper(marker)) {
		return 0
	}
	return 1
}

// SortProducts orders products for the planilla: pastry categories first,
// then by category name, then by product name. Category must be loaded.
func SortProducts(products []models.Product, marker string) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		pa, pb := SortPriority(a.Category.Name, marker), SortPriority(b.Category.Name, marker)
		if pa != pb {
			return pa < pb
		}
		if a.Category.Name != b.Category.Name {
			return a.Category.Name < b.Category.Name
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}
