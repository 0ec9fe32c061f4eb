package closing

import (
	"errors"
	"time"

	"cardelfi-backend/internal/audit"
	"cardelfi-backend/internal/auth"
	"cardelfi-backend/internal/metrics"
	"cardelfi-backend/internal/models"
	"cardelfi-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type closingSnapshot struct {
	BranchID   uint   `json:"branch_id"`
	Date       string `json:"date"`
	Cash       string `json:"cash"`
	QR         string `json:"qr"`
	Card       string `json:"card"`
	ShiftStaff string `json:"shift_staff"`
	Movements  int    `json:"movements"`
	Sales      int    `json:"sales"`
	Expenses   int    `json:"expenses"`
}

// POST /guardar/
func SaveHandler(rec *Recorder, db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form := fiberForm{c}
		branchID, ok := ParseID(form.Value("sucursal_id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}
		if err := auth.CheckBranch(c, branchID); err != nil {
			return err
		}

		res, err := rec.Record(c.UserContext(), form)
		if err != nil {
			if errors.Is(err, ErrBranchNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
			}
			return err
		}
		cl := res.Closing

		metrics.ClosingsRecorded.WithLabelValues(res.BranchName).Inc()
		log.Info("closing recorded",
			zap.Uint("caja_id", cl.ID),
			zap.String("branch", res.BranchName),
			zap.Int("movements", res.Movements),
			zap.Int("sales", res.Sales),
			zap.Int("expenses", res.Expenses))

		user, _ := auth.CurrentUser(c)
		if err := audit.WriteLog(c.UserContext(), db, audit.LogOptions{
			BranchID:    &cl.BranchID,
			UserID:      user.UserID,
			UserName:    user.Username,
			EntityType:  "cash_closing",
			EntityID:    cl.ID,
			Action:      models.AuditActionCreate,
			Description: "Cierre de caja " + res.BranchName + " " + cl.Date.Format("2006-01-02"),
			After: closingSnapshot{
				BranchID:   cl.BranchID,
				Date:       cl.Date.Format("2006-01-02"),
				Cash:       web.Money(cl.Cash),
				QR:         web.Money(cl.QR),
				Card:       web.Money(cl.Card),
				ShiftStaff: cl.ShiftStaff,
				Movements:  res.Movements,
				Sales:      res.Sales,
				Expenses:   res.Expenses,
			},
		}); err != nil {
			log.Warn("audit log failed", zap.Uint("caja_id", cl.ID), zap.Error(err))
		}

		return c.JSON(fiber.Map{
			"status":  "success",
			"caja_id": cl.ID,
		})
	}
}

// POST /gastos-extra/
func ExtraExpenseHandler(rec *Recorder, db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, ok := ParseID(c.FormValue("sucursal_id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}
		if err := auth.CheckBranch(c, branchID); err != nil {
			return err
		}

		in := ExtraExpenseInput{
			BranchID:    branchID,
			Description: c.FormValue("descripcion"),
			Amount:      ParseAmount(c.FormValue("monto")),
		}
		if raw := c.FormValue("fecha"); raw != "" {
			d, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Fecha inválida, use AAAA-MM-DD")
			}
			in.Date = d
		}

		e, err := rec.RecordExtraExpense(c.UserContext(), in)
		if err != nil {
			switch {
			case errors.Is(err, ErrBranchNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
			case errors.Is(err, ErrEmptyExpense):
				return fiber.NewError(fiber.StatusBadRequest, "Indique descripción o monto del gasto")
			}
			return err
		}

		user, _ := auth.CurrentUser(c)
		if err := audit.WriteLog(c.UserContext(), db, audit.LogOptions{
			BranchID:    &e.BranchID,
			UserID:      user.UserID,
			UserName:    user.Username,
			EntityType:  "extra_expense",
			EntityID:    e.ID,
			Action:      models.AuditActionCreate,
			Description: "Gasto extra: " + e.Description,
			After: fiber.Map{
				"description": e.Description,
				"amount":      web.Money(e.Amount),
				"date":        e.Date.Format("2006-01-02"),
			},
		}); err != nil {
			log.Warn("audit log failed", zap.Uint("gasto_id", e.ID), zap.Error(err))
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"status": "success",
			"id":     e.ID,
		})
	}
}

// GET /historial/
func HistoryPageHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		var scope *uint
		if !user.IsSuperAdmin() {
			if user.BranchID == nil {
				return fiber.NewError(fiber.StatusForbidden, "No tiene una sucursal asignada")
			}
			scope = user.BranchID
		}

		closings, err := History(c.UserContext(), db, scope)
		if err != nil {
			return err
		}

		return c.Render("historial", fiber.Map{
			"Title":    "Historial de cierres",
			"User":     user,
			"Closings": closings,
		}, web.Layout)
	}
}
