// Package export writes invoice summaries to spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/andy/invoicer/internal/domain"
	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
)

const (
	invoicesSheet = "Invoices"
	linesSheet    = "Lines"
	dateLayout    = "2006-01-02"
)

var invoiceHeader = []any{"Number", "Name", "Client", "State", "Created", "Due", "Total"}

var lineHeader = []any{"Invoice", "Service", "Quantity", "Unit amount", "Total"}

// XLSX exports a year of invoices as an Excel workbook
type XLSX struct{}

func NewXLSX() *XLSX {
	return &XLSX{}
}

// Export writes one row per invoice and one row per active line, plus a total
func (x *XLSX) Export(w io.Writer, year int, invoices []*domain.Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", invoicesSheet); err != nil {
		return errors.Wrap(err, "failed to rename sheet")
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return errors.Wrap(err, "failed to create lines sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create style")
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return errors.Wrap(err, "failed to create style")
	}

	if err := f.SetDocProps(&excelize.DocProperties{Title: fmt.Sprintf("Invoices %d", year)}); err != nil {
		return errors.Wrap(err, "failed to set document properties")
	}

	if err := f.SetSheetRow(invoicesSheet, "A1", &invoiceHeader); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	if err := f.SetSheetRow(linesSheet, "A1", &lineHeader); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	var total float64
	lineRow := 2
	for i, inv := range invoices {
		client := ""
		if inv.Client != nil {
			client = inv.Client.Name
		}
		due := ""
		if inv.DueAt.Valid {
			due = inv.DueAt.Time.Format(dateLayout)
		}
		row := []any{
			inv.Number,
			inv.Name,
			client,
			inv.State.String(),
			inv.CreatedAt.Format(dateLayout),
			due,
			inv.Total(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(invoicesSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write invoice %s", inv.Number)
		}
		total += inv.Total()

		for _, line := range inv.ActiveLines() {
			service := fmt.Sprintf("#%d", line.ServiceID)
			if line.Service != nil {
				service = line.Service.Name
			}
			lr := []any{inv.Number, service, line.Quantity, line.Amount, line.Total()}
			cell, _ := excelize.CoordinatesToCellName(1, lineRow)
			if err := f.SetSheetRow(linesSheet, cell, &lr); err != nil {
				return errors.Wrapf(err, "failed to write lines of %s", inv.Number)
			}
			lineRow++
		}
	}

	totalRow := len(invoices) + 2
	if err := f.SetCellValue(invoicesSheet, fmt.Sprintf("F%d", totalRow), "Total"); err != nil {
		return errors.Wrap(err, "failed to write total")
	}
	if err := f.SetCellFloat(invoicesSheet, fmt.Sprintf("G%d", totalRow), total, 2, 64); err != nil {
		return errors.Wrap(err, "failed to write total")
	}

	styles := []struct {
		sheet, from, to string
		style           int
	}{
		{invoicesSheet, "A1", "G1", bold},
		{invoicesSheet, fmt.Sprintf("F%d", totalRow), fmt.Sprintf("G%d", totalRow), bold},
		{invoicesSheet, "G2", fmt.Sprintf("G%d", totalRow), money},
		{linesSheet, "A1", "E1", bold},
		{linesSheet, "D2", fmt.Sprintf("E%d", max(lineRow-1, 2)), money},
	}
	for _, s := range styles {
		if err := f.SetCellStyle(s.sheet, s.from, s.to, s.style); err != nil {
			return errors.Wrap(err, "failed to style cells")
		}
	}
	if err := f.SetColWidth(invoicesSheet, "B", "C", 30); err != nil {
		return errors.Wrap(err, "failed to size columns")
	}
	if err := f.SetColWidth(linesSheet, "B", "B", 30); err != nil {
		return errors.Wrap(err, "failed to size columns")
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}
