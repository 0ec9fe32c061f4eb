package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	pdfRowH   = 6.0
	pdfBottom = 210 - 14 // landscape A4 height minus the bottom margin
	pdfFont   = "Helvetica"
	pdfTitle  = "CARDELFI - PLANILLA DE CIERRE"
)

type pdfColumn struct {
	title string
	width float64
	align string
}

var pdfColumns = []pdfColumn{
	{"Producto", 62, "L"},
	{"Precio", 20, "R"},
	{"Prod.", 18, "C"},
	{"Entr.", 18, "C"},
	{"Baja", 18, "C"},
	{"Trasp.", 18, "C"},
	{"Destino", 40, "L"},
	{"Venta", 18, "C"},
	{"Total Bs", 28, "R"},
}

// Filename is the download name of the report, Reporte_<branch>_<date>.
func Filename(r *Report, ext string) string {
	return fmt.Sprintf("Reporte_%s_%s.%s", r.Closing.Branch.Name, r.Closing.Date.Format("2006-01-02"), ext)
}

// WritePDF renders the report as a landscape A4 notebook-style sheet.
func WritePDF(w io.Writer, r *Report) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 14)
	pdf.SetTitle(pdfTitle, true)
	pdf.SetCreator("cardelfi-backend", true)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont(pdfFont, "I", 8)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Generado %s - página %d/{nb}",
			r.GeneratedAt.Format("02/01/2006 15:04"), pdf.PageNo())), "", 0, "R", false, 0, "")
	})

	header := func() {
		pdf.SetFont(pdfFont, "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfRowH, tr(col.title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(pdfFont, "", 9)
	}

	pdf.AddPage()
	pdf.SetFont(pdfFont, "B", 14)
	pdf.CellFormat(0, 8, tr(pdfTitle), "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFont, "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Sucursal: %s    Fecha: %s    Caja N° %d",
		r.Closing.Branch.Name, r.Closing.Date.Format("02/01/2006"), r.Closing.ID)), "", 1, "L", false, 0, "")
	if r.Closing.ShiftStaff != "" {
		pdf.CellFormat(0, 6, tr("Personal de turno: "+r.Closing.ShiftStaff), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	header()
	category := ""
	for i, line := range r.Lines {
		newCategory := line.Product.Category.Name != category
		if breakBefore(pdf.GetY(), newCategory) {
			pdf.AddPage()
			header()
		}

		if newCategory {
			category = line.Product.Category.Name
			pdf.SetFont(pdfFont, "B", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.CellFormat(totalWidth(), pdfRowH, tr(category), "1", 1, "L", true, 0, "")
			pdf.SetFont(pdfFont, "", 9)
		}

		cells := lineCells(line)
		for j, col := range pdfColumns {
			pdf.CellFormat(col.width, pdfRowH, tr(cells[j]), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)

		if i == len(r.Lines)-1 || r.Lines[i+1].Product.Category.Name != category {
			writeCategoryFooter(pdf, tr, r, category)
		}
	}

	pdf.Ln(4)
	summaryRow := func(label string, value decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont(pdfFont, style, 10)
		pdf.CellFormat(70, pdfRowH, tr(label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, pdfRowH, value.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	summaryRow("Total ventas esperadas (Bs)", r.TotalSales, true)
	if len(r.Expenses) > 0 {
		pdf.SetFont(pdfFont, "B", 10)
		pdf.CellFormat(105, pdfRowH, tr("Gastos"), "1", 1, "L", true, 0, "")
		for _, e := range r.Expenses {
			desc := e.Description
			if e.Extra {
				desc += " (extra)"
			}
			summaryRow("  "+desc, e.Amount, false)
		}
	}
	summaryRow("Total gastos (Bs)", r.TotalExpenses, true)
	summaryRow("Efectivo", r.Closing.Cash, false)
	summaryRow("QR", r.Closing.QR, false)
	summaryRow("Tarjeta", r.Closing.Card, false)
	summaryRow("Total caja real (Bs)", r.ActualCash, true)
	summaryRow("Diferencia (Bs)", r.Variance, true)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func writeCategoryFooter(pdf *fpdf.Fpdf, tr func(string) string, r *Report, category string) {
	for _, ct := range r.Categories {
		if ct.Category != category {
			continue
		}
		pdf.SetFont(pdfFont, "I", 8)
		pdf.CellFormat(totalWidth()-pdfColumns[8].width-pdfColumns[7].width, pdfRowH,
			tr("Subtotal "+category), "1", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColumns[7].width, pdfRowH, strconv.Itoa(ct.Sold), "1", 0, "C", false, 0, "")
		pdf.CellFormat(pdfColumns[8].width, pdfRowH, ct.Revenue.StringFixed(2), "1", 1, "R", false, 0, "")
		pdf.SetFont(pdfFont, "", 9)
		return
	}
}

// lineCells formats a line for tabular output. Absent movements print blank
// quantity cells.
func lineCells(l Line) []string {
	cells := []string{l.Product.Name, l.Product.UnitPrice.StringFixed(2), "", "", "", "", "", "", ""}
	if m := l.Movement; m != nil {
		cells[2] = qty(m.Produced)
		cells[3] = qty(m.Received)
		cells[4] = qty(m.Discarded)
		cells[5] = qty(m.Transferred)
		cells[6] = m.TransferDestination
		cells[7] = qty(m.Sold)
	}
	if l.Movement != nil {
		cells[8] = l.Revenue.StringFixed(2)
	}
	return cells
}

func qty(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func totalWidth() float64 {
	var w float64
	for _, c := range pdfColumns {
		w += c.width
	}
	return w
}

// breakBefore reports whether the next product row starting at y needs a new
// page. A category title is kept with its first product.
func breakBefore(y float64, newCategory bool) bool {
	need := pdfRowH
	if newCategory {
		need += pdfRowH
	}
	return y+need > pdfBottom
}
