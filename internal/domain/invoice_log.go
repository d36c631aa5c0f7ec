package domain

const TableInvoiceLogs = "invoice_logs"

// InvoiceLog is an append-only activity entry shown on the invoice
type InvoiceLog struct {
	Audit
	Code      InvoiceState
	Details   string
	InvoiceID int64
	ClientID  int64
}

// NewInvoiceLog creates a log entry for the invoice and its client
func NewInvoiceLog(invoice *Invoice, code InvoiceState, details string) *InvoiceLog {
	return &InvoiceLog{
		Audit:     newAudit(),
		Code:      code,
		Details:   details,
		InvoiceID: invoice.ID,
		ClientID:  invoice.ClientID,
	}
}

func (l *InvoiceLog) HistoryTable() string { return TableInvoiceLogs }

func (l *InvoiceLog) HistoryValues() map[string]any {
	v := l.Audit.values()
	v["code"] = l.Code
	v["details"] = l.Details
	v["invoice"] = relation(l.InvoiceID)
	v["client"] = relation(l.ClientID)
	return v
}
