package closing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cardelfi-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrEmptyExpense = errors.New("expense needs a description or an amount")

// ExtraExpenseInput is a gasto registered outside the planilla.
type ExtraExpenseInput struct {
	BranchID    uint
	Description string
	Amount      decimal.Decimal
	Date        time.Time // zero means today
}

// RecordExtraExpense stores a standalone expense for a branch and day.
func (r *Recorder) RecordExtraExpense(ctx context.Context, in ExtraExpenseInput) (*models.ExtraExpense, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" && in.Amount.IsZero() {
		return nil, ErrEmptyExpense
	}
	if desc == "" {
		desc = untitledExpense
	}
	day := r.Today()
	if !in.Date.IsZero() {
		day = models.DayOf(in.Date)
	}

	var branch models.Branch
	if err := r.db.WithContext(ctx).First(&branch, in.BranchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sucursal %d: %w", in.BranchID, ErrBranchNotFound)
		}
		return nil, err
	}

	e := models.ExtraExpense{
		Description: clip(desc, 200),
		Amount:      in.Amount,
		BranchID:    branch.ID,
		Date:        day,
	}
	if err := r.db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, fmt.Errorf("create extra expense: %w", err)
	}
	return &e, nil
}

// History lists closings newest first. A nil branchID lists every branch.
func History(ctx context.Context, db *gorm.DB, branchID *uint) ([]models.CashClosing, error) {
	q := db.WithContext(ctx).Preload("Branch").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true}).
		Order("id desc")
	if branchID != nil {
		q = q.Where("branch_id = ?", *branchID)
	}

	var closings []models.CashClosing
	if err := q.Find(&closings).Error; err != nil {
		return nil, err
	}
	return closings, nil
}
