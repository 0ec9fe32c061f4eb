package closing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cardelfi-backend/internal/catalog"
	"cardelfi-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrBranchNotFound = errors.New("branch not found")

const untitledExpense = "Gasto sin descripción"

// Result is what one planilla submission wrote.
type Result struct {
	Closing    models.CashClosing
	BranchName string
	Movements  int
	Sales      int
	Expenses   int
}

// Recorder persists a planilla: the cash closing, one movement per branch
// product, a sale entry per product sold and the shift expense lines.
type Recorder struct {
	db     *gorm.DB
	loc    *time.Location
	marker string
	now    func() time.Time
}

func NewRecorder(db *gorm.DB, loc *time.Location, pastryMarker string) *Recorder {
	if loc == nil {
		loc = time.UTC
	}
	return &Recorder{db: db, loc: loc, marker: pastryMarker, now: time.Now}
}

// Today is the current business day in the configured location.
func (r *Recorder) Today() time.Time {
	return models.DayOf(r.now().In(r.loc))
}

// Record writes the whole submission in one transaction.
// Fields read from form:
//
//	sucursal_id, caja_efectivo, caja_qr, caja_tarjeta
//	p_{id} e_{id} b_{id} t_cant_{id} t_dest_{id} s_{id} for each product
//	personal (repeated), gasto_desc / gasto_monto (parallel, repeated)
func (r *Recorder) Record(ctx context.Context, form FormValues) (*Result, error) {
	branchID, ok := ParseID(form.Value("sucursal_id"))
	if !ok {
		return nil, ErrBranchNotFound
	}

	res := &Result{}
	day := r.Today()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var branch models.Branch
		if err := tx.First(&branch, branchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("sucursal %d: %w", branchID, ErrBranchNotFound)
			}
			return err
		}
		res.BranchName = branch.Name

		closing := models.CashClosing{
			BranchID:   branch.ID,
			Date:       day,
			Cash:       ParseAmount(form.Value("caja_efectivo")),
			QR:         ParseAmount(form.Value("caja_qr")),
			Card:       ParseAmount(form.Value("caja_tarjeta")),
			ShiftStaff: joinStaff(form.Values("personal")),
		}
		if err := tx.Create(&closing).Error; err != nil {
			return fmt.Errorf("create closing: %w", err)
		}

		products, err := catalog.BranchProducts(ctx, tx, branch.ID, r.marker)
		if err != nil {
			return err
		}

		movements := make([]models.DailyMovement, 0, len(products))
		var sales []models.SaleEntry
		for _, p := range products {
			m := movementFromForm(form, p.ID)
			m.BranchID = branch.ID
			m.CashClosingID = &closing.ID
			m.Date = day
			movements = append(movements, m)

			if m.Sold > 0 {
				sales = append(sales, models.SaleEntry{
					ProductName:   p.Name,
					Quantity:      m.Sold,
					UnitPrice:     p.UnitPrice,
					BranchID:      branch.ID,
					CashClosingID: &closing.ID,
					Date:          day,
				})
			}
		}
		if len(movements) > 0 {
			if err := tx.Create(&movements).Error; err != nil {
				return fmt.Errorf("create movements: %w", err)
			}
		}
		if len(sales) > 0 {
			if err := tx.Create(&sales).Error; err != nil {
				return fmt.Errorf("create sale entries: %w", err)
			}
		}

		expenses := expensesFromForm(form, closing.ID)
		if len(expenses) > 0 {
			if err := tx.Create(&expenses).Error; err != nil {
				return fmt.Errorf("create expense lines: %w", err)
			}
		}

		closing.Expenses = expenses
		res.Closing = closing
		res.Movements = len(movements)
		res.Sales = len(sales)
		res.Expenses = len(expenses)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func movementFromForm(form FormValues, productID uint) models.DailyMovement {
	key := func(prefix string) string { return fmt.Sprintf("%s%d", prefix, productID) }

	m := models.DailyMovement{
		ProductID:   productID,
		Produced:    ParseQuantity(form.Value(key("p_"))),
		Received:    ParseQuantity(form.Value(key("e_"))),
		Discarded:   ParseQuantity(form.Value(key("b_"))),
		Transferred: ParseQuantity(form.Value(key("t_cant_"))),
		Sold:        ParseQuantity(form.Value(key("s_"))),
	}
	if m.Transferred > 0 {
		m.TransferDestination = clip(strings.TrimSpace(form.Value(key("t_dest_"))), 100)
	}
	return m
}

func expensesFromForm(form FormValues, closingID uint) []models.ExpenseLine {
	descs := form.Values("gasto_desc")
	amounts := form.Values("gasto_monto")

	n := len(descs)
	if len(amounts) > n {
		n = len(amounts)
	}

	var out []models.ExpenseLine
	for i := 0; i < n; i++ {
		var desc string
		amount := decimal.Zero
		if i < len(descs) {
			desc = strings.TrimSpace(descs[i])
		}
		if i < len(amounts) {
			amount = ParseAmount(amounts[i])
		}
		if desc == "" && amount.IsZero() {
			continue
		}
		if desc == "" {
			desc = untitledExpense
		}
		out = append(out, models.ExpenseLine{
			CashClosingID: closingID,
			Description:   clip(desc, 200),
			Amount:        amount,
		})
	}
	return out
}

func joinStaff(names []string) string {
	var kept []string
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			if part = strings.TrimSpace(part); part != "" {
				kept = append(kept, part)
			}
		}
	}
	return clip(strings.Join(kept, ", "), 255)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
