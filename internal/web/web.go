// Package web holds the embedded HTML views and their template engine.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"
)

// Layout wraps every page.
const Layout = "layout"

//go:embed views/*.html
var views embed.FS

func NewEngine() *html.Engine {
	sub, err := fs.Sub(views, "views")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}

	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("money", Money)
	engine.AddFunc("day", func(t time.Time) string { return t.Format("02/01/2006") })
	engine.AddFunc("stamp", func(t time.Time) string { return t.Format("02/01/2006 15:04") })
	return engine
}

// Money formats an amount with two decimals, the way it is printed on reports.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
