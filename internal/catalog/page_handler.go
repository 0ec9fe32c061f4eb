package catalog

import (
	"errors"
	"time"

	"cardelfi-backend/internal/auth"
	"cardelfi-backend/internal/config"
	"cardelfi-backend/internal/models"
	"cardelfi-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CategoryGroup is one block of the planilla form.
type CategoryGroup struct {
	Category string
	Products []models.Product
}

// GroupByCategory splits already sorted products into consecutive blocks.
func GroupByCategory(products []models.Product) []CategoryGroup {
	var groups []CategoryGroup
	for _, p := range products {
		if n := len(groups); n == 0 || groups[n-1].Category != p.Category.Name {
			groups = append(groups, CategoryGroup{Category: p.Category.Name})
		}
		last := &groups[len(groups)-1]
		last.Products = append(last.Products, p)
	}
	return groups
}

// VisibleBranches returns the branches the user may work with.
func VisibleBranches(c *fiber.Ctx, db *gorm.DB) ([]models.Branch, error) {
	all, err := Branches(c.UserContext(), db)
	if err != nil {
		return nil, err
	}
	user, ok := auth.CurrentUser(c)
	if !ok {
		return nil, nil
	}
	out := make([]models.Branch, 0, len(all))
	for _, b := range all {
		if user.CanAccessBranch(b.ID) {
			out = append(out, b)
		}
	}
	return out, nil
}

// GET /sucursales/
func BranchListPageHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branches, err := VisibleBranches(c, db)
		if err != nil {
			return err
		}
		user, _ := auth.CurrentUser(c)
		return c.Render("sucursales", fiber.Map{
			"Title":    "Sucursales",
			"User":     user,
			"Branches": branches,
		}, web.Layout)
	}
}

// GET /productos/?sucursal_id=
func PlanillaPageHandler(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("sucursal_id") == "" {
			return c.Redirect("/sucursales/", fiber.StatusFound)
		}
		id := c.QueryInt("sucursal_id")
		if id <= 0 {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}

		var branch models.Branch
		if err := db.WithContext(c.UserContext()).First(&branch, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
			}
			return err
		}
		if err := auth.CheckBranch(c, branch.ID); err != nil {
			return err
		}

		products, err := BranchProducts(c.UserContext(), db, branch.ID, cfg.PastryMarker)
		if err != nil {
			return err
		}

		all, err := Branches(c.UserContext(), db)
		if err != nil {
			return err
		}
		destinations := make([]models.Branch, 0, len(all))
		for _, b := range all {
			if b.ID != branch.ID {
				destinations = append(destinations, b)
			}
		}

		user, _ := auth.CurrentUser(c)
		return c.Render("planilla", fiber.Map{
			"Title":        "Planilla " + branch.Name,
			"User":         user,
			"Branch":       branch,
			"Groups":       GroupByCategory(products),
			"Destinations": destinations,
			"Today":        time.Now().In(cfg.Location),
		}, web.Layout)
	}
}
