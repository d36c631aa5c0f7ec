package qrbill

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Party is a structured ("S") address as used by the QR-bill payload.
type Party struct {
	Name           string
	Street         string
	BuildingNumber string
	PostalCode     string
	City           string
	Country        string
}

// IsZero reports whether no address field is set.
func (p Party) IsZero() bool {
	return p == Party{}
}

func (p Party) lines() []string {
	if p.IsZero() {
		return make([]string, 7)
	}
	return []string{
		"S",
		truncate(p.Name, 70),
		truncate(p.Street, 70),
		truncate(p.BuildingNumber, 16),
		truncate(p.PostalCode, 16),
		truncate(p.City, 35),
		strings.ToUpper(p.Country),
	}
}

// Bill holds the data printed in the Swiss QR code of a payment slip.
type Bill struct {
	IBAN      string
	Creditor  Party
	Amount    float64
	Currency  string
	Debtor    Party
	Reference string
	Message   string
}

// Validate checks the fields required to build a QRR payload.
func (b Bill) Validate() error {
	iban := compact(b.IBAN)
	if len(iban) != 21 || !(strings.HasPrefix(iban, "CH") || strings.HasPrefix(iban, "LI")) {
		return errors.Wrapf(ErrInvalidInput, "iban %q is not a CH/LI account", b.IBAN)
	}
	if b.Creditor.Name == "" || b.Creditor.City == "" || b.Creditor.Country == "" {
		return errors.Wrap(ErrInvalidInput, "creditor name, city and country are required")
	}
	if b.Currency != "CHF" && b.Currency != "EUR" {
		return errors.Wrapf(ErrInvalidInput, "unsupported currency %q", b.Currency)
	}
	if b.Amount < 0 || b.Amount > 999999999.99 {
		return errors.Wrapf(ErrInvalidInput, "amount %.2f out of range", b.Amount)
	}
	if len(compact(b.Reference)) != ReferenceLength {
		return errors.Wrapf(ErrInvalidInput, "reference must have %d digits", ReferenceLength)
	}
	return ValidateReference(b.Reference)
}

// Payload renders the SPC text block encoded into the QR code.
func (b Bill) Payload() (string, error) {
	if err := b.Validate(); err != nil {
		return "", err
	}

	lines := []string{"SPC", "0200", "1", compact(b.IBAN)}
	lines = append(lines, b.Creditor.lines()...)
	// ultimate creditor, reserved for future use
	lines = append(lines, make([]string, 7)...)
	amount := ""
	if b.Amount > 0 {
		amount = fmt.Sprintf("%.2f", b.Amount)
	}
	lines = append(lines, amount, b.Currency)
	lines = append(lines, b.Debtor.lines()...)
	lines = append(lines, "QRR", compact(b.Reference), truncate(b.Message, 140), "EPD")

	return strings.Join(lines, "\n"), nil
}

func compact(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
