// Package server wires the HTTP routes of the application.
package server

import (
	"errors"
	"strings"
	"time"

	"cardelfi-backend/internal/audit"
	"cardelfi-backend/internal/auth"
	"cardelfi-backend/internal/catalog"
	"cardelfi-backend/internal/closing"
	"cardelfi-backend/internal/config"
	"cardelfi-backend/internal/metrics"
	"cardelfi-backend/internal/models"
	"cardelfi-backend/internal/report"
	"cardelfi-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const requestIDKey = "request_id"

// New builds the fiber application with every route registered.
func New(cfg *config.Config, db *gorm.DB, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "cardelfi",
		Views:        web.NewEngine(),
		ErrorHandler: errorHandler(log),
		BodyLimit:    8 * 1024 * 1024,
	})

	origins := strings.Split(cfg.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,OPTIONS",
	}))
	app.Use(requestLogger(log))
	app.Use(metrics.Middleware())

	recorder := closing.NewRecorder(db, cfg.Location, cfg.PastryMarker)
	builder := report.NewBuilder(db, cfg.Location, cfg.PastryMarker)
	login := auth.RequireLogin(cfg.JWTSecret)

	// Public
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", metrics.Handler())
	app.Get("/", auth.LoginPageHandler(cfg))
	app.Post("/", auth.LoginHandler(cfg, db, log))
	app.Get("/logout", auth.LogoutHandler())
	app.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(db))

	// Planilla flow
	app.Get("/sucursales/", login, catalog.BranchListPageHandler(db))
	app.Get("/productos/", login, catalog.PlanillaPageHandler(cfg, db))
	app.Post("/guardar/", login, closing.SaveHandler(recorder, db, log))
	app.Post("/gastos-extra/", login, closing.ExtraExpenseHandler(recorder, db, log))
	app.Get("/historial/", login, closing.HistoryPageHandler(db))

	// Reports
	app.Get("/ver-planilla/", login, report.PreviewHandler(builder))
	app.Get("/generar-pdf/", login, report.PDFHandler(builder, log))
	app.Get("/generar-xlsx/", login, report.XLSXHandler(builder, log))

	// Super admin
	admin := app.Group("/admin", login, auth.RequireRole(models.RoleSuperAdmin))
	admin.Get("/branches", catalog.ListBranchesHandler(db))
	admin.Post("/branches", catalog.CreateBranchHandler(db, log))
	admin.Put("/branches/:id", catalog.UpdateBranchHandler(db, log))
	admin.Post("/branches/:id/manager", catalog.CreateBranchManagerHandler(db, log))
	admin.Get("/categories", catalog.ListCategoriesHandler(db))
	admin.Post("/categories", catalog.CreateCategoryHandler(db, log))
	admin.Put("/categories/:id", catalog.RenameCategoryHandler(db, log))
	admin.Get("/products", catalog.ListProductsHandler(db))
	admin.Post("/products", catalog.CreateProductHandler(db, log))
	admin.Put("/products/:id", catalog.UpdateProductHandler(db, log))
	admin.Post("/catalog/import", catalog.ImportCatalogHandler(db, log))
	admin.Get("/audit-logs", audit.ListAuditLogsHandler(db))

	return app
}

// errorHandler answers *fiber.Error with its status and message; anything
// else is logged and hidden behind a 500.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		log.Error("unexpected error",
			zap.String("request_id", requestID(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error inesperado del servidor",
		})
	}
}

func requestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDKey, id)
		c.Set(fiber.HeaderXRequestID, id)

		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if user, ok := auth.CurrentUser(c); ok {
			fields = append(fields, zap.String("user", user.Username))
		}
		log.Info("request", fields...)
		return err
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
