// Package render prints invoices to PDF with a QR-bill payment part.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/andy/invoicer/internal/config"
	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/qrbill"
	"github.com/andy/invoicer/internal/reqctx"
	"github.com/cockroachdb/errors"
	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

const (
	pageWidth   = 210.0
	margin      = 20.0
	slipTop     = 192.0 // payment part height is 105mm on A4
	qrSize      = 46.0
	qrPixels    = 512
	dateLayout  = "02.01.2006"
	fontFamily  = "Helvetica"
	qrImageName = "qrbill"
)

// PDF renders invoices into a directory, one file per invoice number
type PDF struct {
	dir      string
	currency string
	iban     string
	creditor qrbill.Party
	now      func() time.Time
}

// NewPDF creates a renderer writing into cfg.OutputDir
func NewPDF(invoice config.InvoiceConfig, creditor config.CreditorConfig) *PDF {
	return &PDF{
		dir:      invoice.OutputDir,
		currency: invoice.Currency,
		iban:     creditor.IBAN,
		creditor: qrbill.Party{
			Name:           creditor.Name,
			Street:         creditor.Street,
			BuildingNumber: creditor.BuildingNumber,
			PostalCode:     creditor.PostalCode,
			City:           creditor.City,
			Country:        creditor.Country,
		},
		now: time.Now,
	}
}

// Render writes <number>.pdf and returns its path
func (p *PDF) Render(ctx context.Context, invoice *domain.Invoice) (string, error) {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}

	path := filepath.Join(p.dir, invoice.Number+".pdf")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create %s", path)
	}
	defer f.Close()

	if err := p.Write(ctx, f, invoice); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	return path, nil
}

// Write renders the invoice document to w
func (p *PDF) Write(ctx context.Context, w io.Writer, invoice *domain.Invoice) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	p.header(pdf, tr, invoice)
	p.lines(pdf, tr, invoice)

	bill := p.bill(invoice)
	payload, err := bill.Payload()
	if err != nil {
		reqctx.Logger(ctx).WarnContext(ctx, "invoice rendered without payment part",
			"number", invoice.Number, "error", err.Error())
	} else if err := p.slip(pdf, tr, bill, payload); err != nil {
		return err
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "failed to render pdf")
	}
	return nil
}

func (p *PDF) header(pdf *fpdf.Fpdf, tr func(string) string, invoice *domain.Invoice) {
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(0, 5, tr(p.creditor.Name), "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s %s", p.creditor.Street, p.creditor.BuildingNumber)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s %s", p.creditor.PostalCode, p.creditor.City)), "", 1, "L", false, 0, "")

	if c := invoice.Client; c != nil {
		pdf.SetXY(120, 45)
		pdf.CellFormat(70, 5, tr(c.Name), "", 2, "L", false, 0, "")
		pdf.CellFormat(70, 5, tr(c.ContactName()), "", 2, "L", false, 0, "")
		if c.Address.Valid {
			pdf.CellFormat(70, 5, tr(c.Address.String+" "+c.AddressNumber.String), "", 2, "L", false, 0, "")
		}
		if c.City.Valid {
			pdf.CellFormat(70, 5, tr(c.PostalCode.String+" "+c.City.String), "", 2, "L", false, 0, "")
		}
	}

	pdf.SetXY(margin, 80)
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 8, tr(invoice.Name), "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, 5, "No "+invoice.Number, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Date "+p.now().Format(dateLayout), "", 1, "L", false, 0, "")
	if invoice.DueAt.Valid {
		pdf.CellFormat(0, 5, "Due "+invoice.DueAt.Time.Format(dateLayout), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (p *PDF) lines(pdf *fpdf.Fpdf, tr func(string) string, invoice *domain.Invoice) {
	widths := []float64{90, 20, 30, 30}
	pdf.SetFont(fontFamily, "B", 10)
	for i, h := range []string{"Service", "Qty", "Unit", "Total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontFamily, "", 10)
	for _, line := range invoice.ActiveLines() {
		name := fmt.Sprintf("service %d", line.ServiceID)
		if line.Service != nil {
			name = line.Service.Name
		}
		pdf.CellFormat(widths[0], 6, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%g", line.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%.2f", line.Amount), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.2f", line.Total()), "", 1, "R", false, 0, "")
	}

	pdf.SetFont(fontFamily, "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, "Total "+p.currency, "T", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 7, fmt.Sprintf("%.2f", invoice.Total()), "T", 1, "R", false, 0, "")
}

func (p *PDF) bill(invoice *domain.Invoice) qrbill.Bill {
	bill := qrbill.Bill{
		IBAN:      p.iban,
		Creditor:  p.creditor,
		Amount:    invoice.Total(),
		Currency:  p.currency,
		Reference: invoice.Reference,
		Message:   invoice.Name,
	}
	if c := invoice.Client; c != nil && c.City.Valid && c.PostalCode.Valid {
		bill.Debtor = qrbill.Party{
			Name:           c.Name,
			Street:         c.Address.String,
			BuildingNumber: c.AddressNumber.String,
			PostalCode:     c.PostalCode.String,
			City:           c.City.String,
			Country:        "CH",
		}
	}
	return bill
}

// slip draws the receipt and payment part at the bottom of the page
func (p *PDF) slip(pdf *fpdf.Fpdf, tr func(string) string, bill qrbill.Bill, payload string) error {
	png, err := qrcode.Encode(payload, qrcode.Medium, qrPixels)
	if err != nil {
		return errors.Wrap(err, "failed to encode qr code")
	}

	pdf.SetDashPattern([]float64{1, 1}, 0)
	pdf.Line(0, slipTop, pageWidth, slipTop)
	pdf.Line(62, slipTop, 62, 297)
	pdf.SetDashPattern([]float64{}, 0)

	// receipt
	pdf.SetXY(5, slipTop+5)
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(52, 6, "Receipt", "", 2, "L", false, 0, "")
	p.slipBlock(pdf, tr, 52, bill)

	// payment part
	pdf.SetXY(67, slipTop+5)
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(51, 6, "Payment part", "", 2, "L", false, 0, "")

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(qrImageName, opts, bytes.NewReader(png))
	pdf.ImageOptions(qrImageName, 67, slipTop+17, qrSize, qrSize, false, opts, 0, "")

	pdf.SetXY(67, slipTop+68)
	pdf.SetFont(fontFamily, "B", 8)
	pdf.CellFormat(20, 4, "Currency", "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 4, "Amount", "", 2, "L", false, 0, "")
	pdf.SetXY(67, slipTop+72)
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(20, 5, bill.Currency, "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 5, fmt.Sprintf("%.2f", bill.Amount), "", 0, "L", false, 0, "")

	pdf.SetXY(118, slipTop+5)
	p.slipBlock(pdf, tr, 87, bill)

	if pdf.Err() {
		return errors.Wrap(pdf.Error(), "failed to draw payment part")
	}
	return nil
}

func (p *PDF) slipBlock(pdf *fpdf.Fpdf, tr func(string) string, width float64, bill qrbill.Bill) {
	x := pdf.GetX()
	section := func(title string, rows ...string) {
		pdf.SetX(x)
		pdf.SetFont(fontFamily, "B", 8)
		pdf.CellFormat(width, 4, title, "", 2, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 9)
		for _, r := range rows {
			if r == "" {
				continue
			}
			pdf.SetX(x)
			pdf.CellFormat(width, 4, tr(r), "", 2, "L", false, 0, "")
		}
		pdf.Ln(2)
	}

	section("Account / Payable to",
		bill.IBAN,
		bill.Creditor.Name,
		bill.Creditor.Street+" "+bill.Creditor.BuildingNumber,
		bill.Creditor.PostalCode+" "+bill.Creditor.City,
	)
	section("Reference", qrbill.FormatReference(bill.Reference))
	if !bill.Debtor.IsZero() {
		section("Payable by",
			bill.Debtor.Name,
			bill.Debtor.Street+" "+bill.Debtor.BuildingNumber,
			bill.Debtor.PostalCode+" "+bill.Debtor.City,
		)
	}
}
