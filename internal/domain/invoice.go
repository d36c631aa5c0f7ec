package domain

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
)

const (
	TableInvoices     = "invoices"
	TableInvoiceLines = "invoice_lines"
)

type Invoice struct {
	Audit
	Name      string
	Number    string
	Reference string // QR reference, 27 digits
	State     InvoiceState
	Archived  bool
	DueAt     null.Time
	ClientID  int64

	// Related data (populated by repository)
	Client *Client
	Lines  []*InvoiceLine
	Logs   []*InvoiceLog
}

type InvoiceLine struct {
	Audit
	InvoiceID int64
	ServiceID int64
	Quantity  float64
	Amount    float64 // unit amount
	Archived  bool

	Service *Service
}

// NewInvoice creates an invoice in the CREATED state
func NewInvoice(name string, clientID int64) *Invoice {
	return &Invoice{
		Audit:    newAudit(),
		Name:     strings.TrimSpace(name),
		State:    InvoiceStateCreated,
		ClientID: clientID,
		Lines:    make([]*InvoiceLine, 0),
	}
}

// NewInvoiceLine creates a line billing quantity × amount of a service
func NewInvoiceLine(invoiceID, serviceID int64, quantity, amount float64) *InvoiceLine {
	return &InvoiceLine{
		Audit:     newAudit(),
		InvoiceID: invoiceID,
		ServiceID: serviceID,
		Quantity:  quantity,
		Amount:    amount,
	}
}

// Total is amount × quantity
func (l *InvoiceLine) Total() float64 {
	return l.Amount * l.Quantity
}

// Validate returns an error if the line is invalid
func (l *InvoiceLine) Validate() error {
	if l.ServiceID <= 0 {
		return errors.Wrap(BadParameterError, "service ID is required")
	}
	if l.Quantity <= 0 {
		return errors.Wrap(BadParameterError, "quantity must be positive")
	}
	if l.Amount < 0 {
		return errors.Wrap(BadParameterError, "amount cannot be negative")
	}
	return nil
}

// Total sums the active lines
func (i *Invoice) Total() float64 {
	total := 0.0
	for _, line := range i.Lines {
		if line.Archived {
			continue
		}
		total += line.Total()
	}
	return total
}

// ActiveLines returns the lines that are not archived
func (i *Invoice) ActiveLines() []*InvoiceLine {
	lines := make([]*InvoiceLine, 0, len(i.Lines))
	for _, line := range i.Lines {
		if !line.Archived {
			lines = append(lines, line)
		}
	}
	return lines
}

// HasLog reports whether a log entry with code was loaded for the invoice
func (i *Invoice) HasLog(code InvoiceState) bool {
	for _, log := range i.Logs {
		if log.Code == code {
			return true
		}
	}
	return false
}

// EnsureDueDate sets the due date to now + days when none is set.
// Returns true when the date was set.
func (i *Invoice) EnsureDueDate(now time.Time, days int) bool {
	if i.DueAt.Valid {
		return false
	}
	i.DueAt = null.TimeFrom(now.AddDate(0, 0, days).UTC().Truncate(time.Second))
	return true
}

// Clone returns a shallow copy without relations, used as the pre-update state
func (i *Invoice) Clone() *Invoice {
	c := *i
	c.Client = nil
	c.Lines = nil
	c.Logs = nil
	return &c
}

// Validate returns an error if the invoice is invalid
func (i *Invoice) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.Wrap(BadParameterError, "invoice name is required")
	}
	if i.Number == "" {
		return errors.Wrap(BadParameterError, "invoice number is required")
	}
	if i.ClientID <= 0 {
		return errors.Wrap(BadParameterError, "client ID is required")
	}
	if !i.State.Valid() {
		return ErrInvalidInvoiceState
	}
	return nil
}

func (i *Invoice) HistoryTable() string { return TableInvoices }

func (i *Invoice) HistoryValues() map[string]any {
	v := i.Audit.values()
	v["name"] = i.Name
	v["number"] = i.Number
	v["reference"] = i.Reference
	v["state"] = i.State
	v["archived"] = i.Archived
	v["dueAt"] = i.DueAt.Ptr()
	v["client"] = relation(i.ClientID)
	return v
}

func (l *InvoiceLine) HistoryTable() string { return TableInvoiceLines }

func (l *InvoiceLine) HistoryValues() map[string]any {
	v := l.Audit.values()
	v["quantity"] = l.Quantity
	v["amount"] = l.Amount
	v["archived"] = l.Archived
	v["service"] = relation(l.ServiceID)
	v["invoice"] = relation(l.InvoiceID)
	return v
}
