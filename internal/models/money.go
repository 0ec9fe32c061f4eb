package models

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value a decimal(10,2) money column holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

var plainAmount = regexp.MustCompile(`^[0-9]+([.,][0-9]+)?$`)

// ParseMoney reads a plain non-negative amount ("15", "15.5" or "15,5")
// rounded to cents. Exponents, signs and values above MaxAmount are refused.
func ParseMoney(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 32 || !plainAmount.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, false
	}
	d = d.Round(2)
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, false
	}
	return d, true
}
