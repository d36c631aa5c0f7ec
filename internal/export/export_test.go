package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/andy/invoicer/internal/domain"
	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSX_Export(t *testing.T) {
	client := domain.NewClient("ACME", "Ann", "Smith")

	first := domain.NewInvoice("Website", 1)
	first.Number = "000001"
	first.Client = client
	first.CreatedAt = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	first.DueAt = null.TimeFrom(time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC))
	hosting := domain.NewInvoiceLine(1, 1, 2, 100)
	hosting.Service = domain.NewService("Hosting", "", domain.ServiceTypeYearly)
	archived := domain.NewInvoiceLine(1, 2, 1, 999)
	archived.Archived = true
	first.Lines = []*domain.InvoiceLine{hosting, archived}

	second := domain.NewInvoice("Support", 1)
	second.Number = "000002"
	second.CreatedAt = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	second.Lines = []*domain.InvoiceLine{domain.NewInvoiceLine(2, 3, 1, 50)}

	var buf bytes.Buffer
	require.NoError(t, NewXLSX().Export(&buf, 2025, []*domain.Invoice{first, second}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	cell := func(sheet, axis string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Number", cell(invoicesSheet, "A1"))
	assert.Equal(t, "000001", cell(invoicesSheet, "A2"))
	assert.Equal(t, "ACME", cell(invoicesSheet, "C2"))
	assert.Equal(t, "CREATED", cell(invoicesSheet, "D2"))
	assert.Equal(t, "2025-03-04", cell(invoicesSheet, "E2"))
	assert.Equal(t, "2025-04-03", cell(invoicesSheet, "F2"))
	assert.Equal(t, "", cell(invoicesSheet, "C3"))
	assert.Equal(t, "Total", cell(invoicesSheet, "F4"))

	rows, err := f.GetRows(linesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus the two active lines")
	assert.Equal(t, "Hosting", rows[1][1])
	assert.Equal(t, "#3", rows[2][1])
}

func TestXLSX_ExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSX().Export(&buf, 2024, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{invoicesSheet, linesSheet}, f.GetSheetList())
}
