package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cardelfi-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var ErrEmptySheet = errors.New("catalog sheet has no rows")

// CatalogRow is one line of an imported catalog sheet:
// Categoria | Producto | Precio | Sucursales (optional, comma separated).
type CatalogRow struct {
	Line     int
	Category string
	Product  string
	Price    decimal.Decimal
	Branches []string
}

type RejectedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Rejected []RejectedRow `json:"rejected"`
}

// ParseCatalogSheet reads the first sheet of an XLSX workbook. A header row
// is skipped when its first cell mentions CATEGOR or PRODUCT.
func ParseCatalogSheet(r io.Reader) ([]CatalogRow, []RejectedRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptySheet
	}

	start := 0
	if len(rows[0]) > 0 {
		first := strings.ToUpper(strings.TrimSpace(rows[0][0]))
		if strings.Contains(first, "CATEGOR") || strings.Contains(first, "PRODUCT") {
			start = 1
		}
	}

	var (
		out      []CatalogRow
		rejected []RejectedRow
	)
	for i := start; i < len(rows); i++ {
		line := i + 1
		row := rows[i]
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}

		category, product := strings.ToUpper(cell(0)), cell(1)
		if category == "" && product == "" {
			continue
		}
		if category == "" || product == "" {
			rejected = append(rejected, RejectedRow{Line: line, Reason: "categoría y producto son obligatorios"})
			continue
		}

		price, ok := models.ParseMoney(cell(2))
		if !ok {
			rejected = append(rejected, RejectedRow{Line: line, Reason: "precio inválido"})
			continue
		}

		var branches []string
		for _, b := range strings.Split(cell(3), ",") {
			if b = strings.ToUpper(strings.TrimSpace(b)); b != "" {
				branches = append(branches, b)
			}
		}

		out = append(out, CatalogRow{
			Line:     line,
			Category: category,
			Product:  product,
			Price:    price,
			Branches: branches,
		})
	}
	return out, rejected, nil
}

// Import upserts the parsed rows in a single transaction. Existing products
// get the sheet's price; rows naming an unknown branch are rejected.
func Import(ctx context.Context, db *gorm.DB, rows []CatalogRow) (*ImportResult, error) {
	res := &ImportResult{Rejected: []RejectedRow{}}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var all []models.Branch
		if err := tx.Find(&all).Error; err != nil {
			return err
		}
		byName := make(map[string]models.Branch, len(all))
		for _, b := range all {
			byName[strings.ToUpper(b.Name)] = b
		}

	rowLoop:
		for _, row := range rows {
			targets := all
			if len(row.Branches) > 0 {
				targets = make([]models.Branch, 0, len(row.Branches))
				for _, name := range row.Branches {
					b, ok := byName[name]
					if !ok {
						res.Rejected = append(res.Rejected, RejectedRow{Line: row.Line, Reason: "sucursal desconocida: " + name})
						continue rowLoop
					}
					targets = append(targets, b)
				}
			}

			cat, err := ensureCategory(tx, row.Category)
			if err != nil {
				return err
			}
			p, created, err := ensureProduct(tx, cat.ID, row.Product, row.Price)
			if err != nil {
				return err
			}
			if created {
				res.Created++
			} else {
				if err := tx.Model(p).Update("unit_price", row.Price).Error; err != nil {
					return err
				}
				res.Updated++
			}
			if err := tx.Model(p).Association("Branches").Replace(targets); err != nil {
				return fmt.Errorf("assign branches to %s: %w", p.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
