package closing

import (
	"net/url"
	"strconv"
	"strings"

	"cardelfi-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// FormValues is the read side of a submitted planilla.
type FormValues interface {
	Value(key string) string
	Values(key string) []string
}

// URLValues adapts url.Values, mostly for tests and scripted submissions.
type URLValues url.Values

func (v URLValues) Value(key string) string { return url.Values(v).Get(key) }
func (v URLValues) Values(key string) []string { return url.Values(v)[key] }

// fiberForm reads urlencoded or multipart bodies from a request.
type fiberForm struct{ c *fiber.Ctx }

func (f fiberForm) Value(key string) string { return f.c.FormValue(key) }

func (f fiberForm) Values(key string) []string {
	if mf, err := f.c.MultipartForm(); err == nil {
		return mf.Value[key]
	}
	raw := f.c.Request().PostArgs().PeekMulti(key)
	out := make([]string, 0, len(raw))
	for _, b := range raw {
		out = append(out, string(b))
	}
	return out
}

// ParseQuantity reads a non-negative integer; anything else is 0.
func ParseQuantity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseAmount reads a non-negative money amount rounded to cents. A comma
// decimal separator is accepted; anything else, or an amount too large for
// the money columns, is 0.
func ParseAmount(s string) decimal.Decimal {
	d, ok := models.ParseMoney(s)
	if !ok {
		return decimal.Zero
	}
	return d
}

// ParseID reads a positive identifier. The bool is false for anything else.
func ParseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
