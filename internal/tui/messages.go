package tui

// SwitchScreenMsg requests a screen change
type SwitchScreenMsg struct {
	Screen Screen
}

// RefreshDataMsg requests data refresh
type RefreshDataMsg struct{}

// ErrorMsg carries error information
type ErrorMsg struct {
	Err error
}

// OpenNewClientFormMsg tells the clients screen to open the new client form
type OpenNewClientFormMsg struct{}

// ShowHistoryMsg opens the audit trail of one entity
type ShowHistoryMsg struct {
	Table string
	ID    int64
	Title string
	Back  Screen
}

// firstRunCheckMsg reports whether the database has any clients
type firstRunCheckMsg struct {
	hasClients bool
}
