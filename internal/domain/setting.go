package domain

const TableSettings = "settings"

// SettingKey names a row of the settings table
type SettingKey string

const (
	// SettingInvoiceNumber holds the last issued invoice number
	SettingInvoiceNumber SettingKey = "INVOICE_NUMBER"
)

type Setting struct {
	Audit
	Key   SettingKey
	Value string
}

func (s *Setting) HistoryTable() string { return TableSettings }

func (s *Setting) HistoryValues() map[string]any {
	v := s.Audit.values()
	v["key"] = s.Key
	v["value"] = s.Value
	return v
}
