package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Reporte"

// WriteXLSX writes the report as a single-sheet workbook with the same
// content as the PDF: product table, category subtotals and cash summary.
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), xlsxSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return err
	}

	row := 1
	put := func(values ...any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		row++
		return nil
	}
	styleRow := func(style int, lastCol int) error {
		from, _ := excelize.CoordinatesToCellName(1, row-1)
		to, _ := excelize.CoordinatesToCellName(lastCol, row-1)
		return f.SetCellStyle(xlsxSheet, from, to, style)
	}

	if err := put("CARDELFI - PLANILLA DE CIERRE"); err != nil {
		return err
	}
	if err := styleRow(bold, 1); err != nil {
		return err
	}
	if err := put("Sucursal", r.Closing.Branch.Name, "Fecha", r.Closing.Date.Format("2006-01-02"), "Caja", r.Closing.ID); err != nil {
		return err
	}
	if err := put("Personal", r.Closing.ShiftStaff); err != nil {
		return err
	}
	row++

	if err := put("Categoría", "Producto", "Precio", "Producción", "Entrada", "Baja", "Traspaso", "Destino", "Venta", "Total Bs"); err != nil {
		return err
	}
	if err := styleRow(bold, 10); err != nil {
		return err
	}

	firstData := row
	for _, l := range r.Lines {
		values := []any{l.Product.Category.Name, l.Product.Name, l.Product.UnitPrice.InexactFloat64()}
		if m := l.Movement; m != nil {
			values = append(values, m.Produced, m.Received, m.Discarded, m.Transferred, m.TransferDestination, m.Sold, l.Revenue.InexactFloat64())
		} else {
			values = append(values, "", "", "", "", "", "", "")
		}
		if err := put(values...); err != nil {
			return err
		}
	}
	if row > firstData {
		if err := f.SetCellStyle(xlsxSheet, fmt.Sprintf("C%d", firstData), fmt.Sprintf("C%d", row-1), money); err != nil {
			return err
		}
		if err := f.SetCellStyle(xlsxSheet, fmt.Sprintf("J%d", firstData), fmt.Sprintf("J%d", row-1), money); err != nil {
			return err
		}
	}

	row++
	if err := put("Subtotal por categoría", "Unidades vendidas", "Total Bs"); err != nil {
		return err
	}
	if err := styleRow(bold, 3); err != nil {
		return err
	}
	for _, ct := range r.Categories {
		if err := put(ct.Category, ct.Sold, ct.Revenue.InexactFloat64()); err != nil {
			return err
		}
	}

	row++
	if err := put("Gastos", "Monto"); err != nil {
		return err
	}
	if err := styleRow(bold, 2); err != nil {
		return err
	}
	for _, e := range r.Expenses {
		desc := e.Description
		if e.Extra {
			desc += " (extra)"
		}
		if err := put(desc, e.Amount.InexactFloat64()); err != nil {
			return err
		}
	}

	row++
	summary := []struct {
		label string
		value float64
	}{
		{"Total ventas esperadas", r.TotalSales.InexactFloat64()},
		{"Total gastos", r.TotalExpenses.InexactFloat64()},
		{"Efectivo", r.Closing.Cash.InexactFloat64()},
		{"QR", r.Closing.QR.InexactFloat64()},
		{"Tarjeta", r.Closing.Card.InexactFloat64()},
		{"Total caja real", r.ActualCash.InexactFloat64()},
		{"Diferencia", r.Variance.InexactFloat64()},
	}
	for _, s := range summary {
		if err := put(s.label, s.value); err != nil {
			return err
		}
		if err := f.SetCellStyle(xlsxSheet, fmt.Sprintf("B%d", row-1), fmt.Sprintf("B%d", row-1), money); err != nil {
			return err
		}
	}
	if err := put("Generado", r.GeneratedAt.Format("2006-01-02 15:04")); err != nil {
		return err
	}

	_ = f.SetColWidth(xlsxSheet, "A", "B", 24)
	_ = f.SetColWidth(xlsxSheet, "H", "H", 18)

	return f.Write(w)
}
