// Package report reconciles a cash closing against the movements recorded
// for its branch and day, and renders the result as HTML, PDF or XLSX.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardelfi-backend/internal/catalog"
	"cardelfi-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrClosingNotFound = errors.New("cash closing not found")

// Line is one product row. Movement is nil when nothing was recorded for the
// product that day.
type Line struct {
	Product  models.Product
	Movement *models.DailyMovement
	Revenue  decimal.Decimal
}

// Active reports whether the line has a movement with any activity.
func (l Line) Active() bool {
	return l.Movement != nil && !l.Movement.Empty()
}

type CategoryTotal struct {
	Category string
	Sold     int
	Revenue  decimal.Decimal
}

type ExpenseItem struct {
	Description string
	Amount      decimal.Decimal
	Extra       bool // registered outside the planilla
}

type Report struct {
	Closing       models.CashClosing
	Lines         []Line
	Categories    []CategoryTotal
	Expenses      []ExpenseItem
	TotalSales    decimal.Decimal
	TotalExpenses decimal.Decimal
	ActualCash    decimal.Decimal
	Variance      decimal.Decimal
	GeneratedAt   time.Time
}

// NetExpected is what should be in the register: sales minus expenses.
func (r *Report) NetExpected() decimal.Decimal {
	return r.TotalSales.Sub(r.TotalExpenses)
}

// LineGroup is a category block of the report with its subtotal.
type LineGroup struct {
	CategoryTotal
	Lines []Line
}

// Groups splits Lines into their category blocks, in report order.
func (r *Report) Groups() []LineGroup {
	groups := make([]LineGroup, 0, len(r.Categories))
	for _, ct := range r.Categories {
		groups = append(groups, LineGroup{CategoryTotal: ct})
	}
	gi := 0
	for _, l := range r.Lines {
		for gi < len(groups) && groups[gi].Category != l.Product.Category.Name {
			gi++
		}
		if gi == len(groups) {
			break
		}
		groups[gi].Lines = append(groups[gi].Lines, l)
	}
	return groups
}

type Builder struct {
	db     *gorm.DB
	loc    *time.Location
	marker string
	now    func() time.Time
}

func NewBuilder(db *gorm.DB, loc *time.Location, pastryMarker string) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{db: db, loc: loc, marker: pastryMarker, now: time.Now}
}

// Build assembles the report for closingID. It only reads.
func (b *Builder) Build(ctx context.Context, closingID uint) (*Report, error) {
	db := b.db.WithContext(ctx)

	var closing models.CashClosing
	err := db.Preload("Branch").
		Preload("Expenses", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).
		First(&closing, closingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("caja %d: %w", closingID, ErrClosingNotFound)
		}
		return nil, err
	}
	day := models.DayOf(closing.Date)

	products, err := catalog.BranchProducts(ctx, db, closing.BranchID, b.marker)
	if err != nil {
		return nil, err
	}

	var movements []models.DailyMovement
	err = db.Where(map[string]any{"branch_id": closing.BranchID, "date": day}).
		Order("id asc").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	byProduct := indexMovements(movements, closing.ID)

	var extras []models.ExtraExpense
	err = db.Where(map[string]any{"branch_id": closing.BranchID, "date": day}).
		Order("id asc").
		Find(&extras).Error
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Closing:       closing,
		Lines:         make([]Line, 0, len(products)),
		TotalSales:    decimal.Zero,
		TotalExpenses: decimal.Zero,
		GeneratedAt:   b.now().In(b.loc),
	}

	for _, p := range products {
		line := Line{Product: p, Movement: byProduct[p.ID], Revenue: decimal.Zero}
		sold := 0
		if line.Movement != nil {
			sold = line.Movement.Sold
			line.Revenue = p.UnitPrice.Mul(decimal.NewFromInt(int64(sold)))
			rep.TotalSales = rep.TotalSales.Add(line.Revenue)
		}
		rep.Lines = append(rep.Lines, line)

		if n := len(rep.Categories); n == 0 || rep.Categories[n-1].Category != p.Category.Name {
			rep.Categories = append(rep.Categories, CategoryTotal{Category: p.Category.Name, Revenue: decimal.Zero})
		}
		ct := &rep.Categories[len(rep.Categories)-1]
		ct.Sold += sold
		ct.Revenue = ct.Revenue.Add(line.Revenue)
	}

	for _, e := range closing.Expenses {
		rep.Expenses = append(rep.Expenses, ExpenseItem{Description: e.Description, Amount: e.Amount})
		rep.TotalExpenses = rep.TotalExpenses.Add(e.Amount)
	}
	for _, e := range extras {
		rep.Expenses = append(rep.Expenses, ExpenseItem{Description: e.Description, Amount: e.Amount, Extra: true})
		rep.TotalExpenses = rep.TotalExpenses.Add(e.Amount)
	}

	rep.ActualCash = closing.Collected()
	rep.Variance = rep.ActualCash.Sub(rep.NetExpected())
	return rep, nil
}

// indexMovements keeps one movement per product: the one written with the
// closing itself, otherwise the latest of the day. movements must be in id
// order.
func indexMovements(movements []models.DailyMovement, closingID uint) map[uint]*models.DailyMovement {
	out := make(map[uint]*models.DailyMovement, len(movements))
	for i := range movements {
		m := &movements[i]
		if cur, ok := out[m.ProductID]; ok && ownedBy(cur, closingID) && !ownedBy(m, closingID) {
			continue
		}
		out[m.ProductID] = m
	}
	return out
}

func ownedBy(m *models.DailyMovement, closingID uint) bool {
	return m.CashClosingID != nil && *m.CashClosingID == closingID
}
