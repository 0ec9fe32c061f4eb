package report

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"cardelfi-backend/internal/auth"
	"cardelfi-backend/internal/metrics"
	"cardelfi-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// load builds the report named by ?caja_id= and checks branch access.
func load(c *fiber.Ctx, b *Builder) (*Report, error) {
	id, err := strconv.ParseUint(c.Query("caja_id"), 10, 64)
	if err != nil || id == 0 {
		return nil, fiber.NewError(fiber.StatusNotFound, "Cierre de caja no encontrado")
	}

	rep, err := b.Build(c.UserContext(), uint(id))
	if err != nil {
		if errors.Is(err, ErrClosingNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Cierre de caja no encontrado")
		}
		return nil, err
	}
	if err := auth.CheckBranch(c, rep.Closing.BranchID); err != nil {
		return nil, err
	}
	return rep, nil
}

func disposition(kind, filename string) string {
	return fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`, kind, filename, url.PathEscape(filename))
}

// GET /ver-planilla/?caja_id=
func PreviewHandler(b *Builder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rep, err := load(c, b)
		if err != nil {
			return err
		}
		metrics.ReportsGenerated.WithLabelValues("html").Inc()

		user, _ := auth.CurrentUser(c)
		return c.Render("reporte", fiber.Map{
			"Title":  "Planilla " + rep.Closing.Branch.Name,
			"User":   user,
			"Report": rep,
		}, web.Layout)
	}
}

// GET /generar-pdf/?caja_id=[&descargar=1]
func PDFHandler(b *Builder, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rep, err := load(c, b)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := WritePDF(&buf, rep); err != nil {
			log.Error("pdf render failed", zap.Uint("caja_id", rep.Closing.ID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el PDF")
		}
		metrics.ReportsGenerated.WithLabelValues("pdf").Inc()

		kind := "inline"
		if c.Query("descargar") == "1" {
			kind = "attachment"
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, disposition(kind, Filename(rep, "pdf")))
		return c.Send(buf.Bytes())
	}
}

// GET /generar-xlsx/?caja_id=
func XLSXHandler(b *Builder, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rep, err := load(c, b)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := WriteXLSX(&buf, rep); err != nil {
			log.Error("xlsx render failed", zap.Uint("caja_id", rep.Closing.ID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el archivo Excel")
		}
		metrics.ReportsGenerated.WithLabelValues("xlsx").Inc()

		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition, disposition("attachment", Filename(rep, "xlsx")))
		return c.Send(buf.Bytes())
	}
}
