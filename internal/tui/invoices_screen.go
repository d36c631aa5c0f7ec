package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
	"github.com/andy/invoicer/internal/service"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type invoiceViewMode int

const (
	invoiceViewList   invoiceViewMode = iota
	invoiceViewDetail                 // Viewing a single invoice
	invoiceViewState                  // Picking a new state
)

// InvoicesModel displays invoices in list and detail views
type InvoicesModel struct {
	ctx       context.Context
	invoices  service.InvoiceService
	mode      invoiceViewMode
	list      []*domain.Invoice
	cursor    int
	selected  *domain.Invoice
	loading   bool
	err       error
	statusMsg string

	// Optional state filter, cycled with 'f'. -1 shows every state.
	filter int

	states      []domain.InvoiceState
	stateCursor int
}

type invoicesDataMsg struct {
	invoices []*domain.Invoice
	err      error
}

type invoiceDetailMsg struct {
	invoice *domain.Invoice
	err     error
}

type invoiceStateChangedMsg struct {
	invoice *domain.Invoice
	err     error
}

type invoiceGeneratedMsg struct {
	result *service.GeneratedInvoice
	err    error
}

type invoiceDeletedMsg struct {
	number string
	err    error
}

// NewInvoicesModel creates a new invoices screen model
func NewInvoicesModel(ctx context.Context, invoices service.InvoiceService) tea.Model {
	return &InvoicesModel{
		ctx:      ctx,
		invoices: invoices,
		mode:     invoiceViewList,
		loading:  true,
		filter:   -1,
		states:   domain.InvoiceStates(),
	}
}

func (m *InvoicesModel) Init() tea.Cmd {
	return m.loadInvoices()
}

func (m *InvoicesModel) stateFilter() *domain.InvoiceState {
	if m.filter < 0 || m.filter >= len(m.states) {
		return nil
	}
	state := m.states[m.filter]
	return &state
}

func (m *InvoicesModel) loadInvoices() tea.Cmd {
	ctx, invoices := m.ctx, m.invoices
	filter := repository.InvoiceFilter{State: m.stateFilter(), Newest: true, WithLines: true}
	return func() tea.Msg {
		list, err := invoices.List(ctx, filter)
		return invoicesDataMsg{invoices: list, err: err}
	}
}

func (m *InvoicesModel) loadDetail(id int64) tea.Cmd {
	ctx, invoices := m.ctx, m.invoices
	return func() tea.Msg {
		invoice, err := invoices.Get(ctx, id)
		return invoiceDetailMsg{invoice: invoice, err: err}
	}
}

func (m *InvoicesModel) changeState(state domain.InvoiceState) tea.Cmd {
	ctx, invoices, id := m.ctx, m.invoices, m.selected.ID
	return func() tea.Msg {
		invoice, err := invoices.ChangeState(ctx, id, state)
		return invoiceStateChangedMsg{invoice: invoice, err: err}
	}
}

func (m *InvoicesModel) generate() tea.Cmd {
	ctx, invoices, id := m.ctx, m.invoices, m.selected.ID
	return func() tea.Msg {
		result, err := invoices.Generate(ctx, id)
		return invoiceGeneratedMsg{result: result, err: err}
	}
}

func (m *InvoicesModel) remove(invoice *domain.Invoice) tea.Cmd {
	ctx, invoices := m.ctx, m.invoices
	return func() tea.Msg {
		err := invoices.Delete(ctx, invoice.ID)
		return invoiceDeletedMsg{number: invoice.Number, err: err}
	}
}

func showInvoiceHistory(invoice *domain.Invoice, back Screen) tea.Cmd {
	return func() tea.Msg {
		return ShowHistoryMsg{
			Table: domain.TableInvoices,
			ID:    invoice.ID,
			Title: invoice.Number + " " + invoice.Name,
			Back:  back,
		}
	}
}

func (m *InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		m.mode = invoiceViewList
		return m, m.loadInvoices()

	case invoicesDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.list = msg.invoices
			if m.cursor >= len(m.list) {
				m.cursor = max(0, len(m.list)-1)
			}
		}
		return m, nil

	case invoiceDetailMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.selected = msg.invoice
		m.mode = invoiceViewDetail
		return m, nil

	case invoiceStateChangedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.mode = invoiceViewDetail
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("State set to %s", msg.invoice.State)
		m.loading = true
		return m, m.loadDetail(msg.invoice.ID)

	case invoiceGeneratedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Generated %s (%s)", msg.result.Invoice.Number, formatMoney(msg.result.Total))
		if msg.result.Path != "" {
			m.statusMsg += " -> " + msg.result.Path
		}
		m.loading = true
		return m, m.loadDetail(msg.result.Invoice.ID)

	case invoiceDeletedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Deleted: %s", msg.number)
		m.mode = invoiceViewList
		m.loading = true
		return m, m.loadInvoices()

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		m.err = nil

		switch m.mode {
		case invoiceViewList:
			return m.updateList(msg)
		case invoiceViewDetail:
			return m.updateDetail(msg)
		case invoiceViewState:
			return m.updateStatePicker(msg)
		}
	}

	return m, nil
}

func (m *InvoicesModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.statusMsg = ""
	switch {
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.cursor < len(m.list)-1 {
			m.cursor++
		}
	case key.Matches(msg, DefaultKeyMap.Select):
		if m.cursor < len(m.list) {
			m.loading = true
			return m, m.loadDetail(m.list[m.cursor].ID)
		}
	case key.Matches(msg, DefaultKeyMap.Delete):
		if m.cursor < len(m.list) {
			return m, m.remove(m.list[m.cursor])
		}
	case key.Matches(msg, DefaultKeyMap.History):
		if m.cursor < len(m.list) {
			return m, showInvoiceHistory(m.list[m.cursor], ScreenInvoices)
		}
	case msg.String() == "f":
		m.filter++
		if m.filter >= len(m.states) {
			m.filter = -1
		}
		m.cursor = 0
		m.loading = true
		return m, m.loadInvoices()
	}
	return m, nil
}

func (m *InvoicesModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Back):
		m.mode = invoiceViewList
		m.statusMsg = ""
		m.loading = true
		return m, m.loadInvoices()
	case key.Matches(msg, DefaultKeyMap.State):
		m.stateCursor = 0
		for i, s := range m.states {
			if s == m.selected.State {
				m.stateCursor = i
			}
		}
		m.mode = invoiceViewState
	case key.Matches(msg, DefaultKeyMap.Generate):
		m.statusMsg = ""
		return m, m.generate()
	case key.Matches(msg, DefaultKeyMap.History):
		return m, showInvoiceHistory(m.selected, ScreenInvoices)
	}
	return m, nil
}

func (m *InvoicesModel) updateStatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Back):
		m.mode = invoiceViewDetail
	case key.Matches(msg, DefaultKeyMap.Up):
		if m.stateCursor > 0 {
			m.stateCursor--
		}
	case key.Matches(msg, DefaultKeyMap.Down):
		if m.stateCursor < len(m.states)-1 {
			m.stateCursor++
		}
	case key.Matches(msg, DefaultKeyMap.Select):
		m.statusMsg = ""
		return m, m.changeState(m.states[m.stateCursor])
	}
	return m, nil
}

func (m *InvoicesModel) View() string {
	if m.loading {
		return "Loading invoices..."
	}
	switch m.mode {
	case invoiceViewDetail:
		return m.viewDetail()
	case invoiceViewState:
		return m.viewStatePicker()
	default:
		return m.viewList()
	}
}

func (m *InvoicesModel) messages() string {
	var s string
	if m.statusMsg != "" {
		s += statusStyle.Render("  "+m.statusMsg) + "\n\n"
	}
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}
	return s
}

func clientName(inv *domain.Invoice) string {
	if inv.Client != nil {
		return inv.Client.Name
	}
	return fmt.Sprintf("Client #%d", inv.ClientID)
}

func (m *InvoicesModel) viewList() string {
	var s strings.Builder

	header := "Invoices"
	if f := m.stateFilter(); f != nil {
		header += subtitleStyle.Render("  (" + string(*f) + ")")
	}
	s.WriteString(titleStyle.Render(header) + "\n\n")
	s.WriteString(m.messages())

	if len(m.list) == 0 {
		s.WriteString(subtitleStyle.Render("  No invoices.") + "\n")
		s.WriteString("\n" + helpStyle.Render("  f: filter by state"))
		return s.String()
	}

	s.WriteString(subtitleStyle.Render(fmt.Sprintf("  %-8s %-24s %-20s %-10s %-10s %16s",
		"Number", "Name", "Client", "State", "Due", "Total")) + "\n")

	for i, inv := range m.list {
		indicator := "  "
		rowStyle := lipgloss.NewStyle()
		if i == m.cursor {
			indicator = "> "
			rowStyle = selectedStyle
		}
		state := fmt.Sprintf("%-10s", inv.State)
		s.WriteString(rowStyle.Render(fmt.Sprintf("%s%-8s %-24s %-20s ",
			indicator,
			inv.Number,
			truncateStr(inv.Name, 24),
			truncateStr(clientName(inv), 20),
		)))
		s.WriteString(stateStyle(string(inv.State)).Render(state))
		s.WriteString(fmt.Sprintf(" %-10s %16s\n", formatNullDate(inv.DueAt), formatMoney(inv.Total())))
	}

	s.WriteString("\n" + helpStyle.Render("  j/k: navigate  enter: open  x: delete  f: filter by state  H: history"))
	return s.String()
}

func (m *InvoicesModel) viewDetail() string {
	inv := m.selected
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf("Invoice %s", inv.Number)) + "  ")
	s.WriteString(stateStyle(string(inv.State)).Render(string(inv.State)) + "\n\n")
	s.WriteString(m.messages())

	s.WriteString(fmt.Sprintf("  Name:      %s\n", inv.Name))
	s.WriteString(fmt.Sprintf("  Client:    %s\n", clientName(inv)))
	s.WriteString(fmt.Sprintf("  Created:   %s\n", formatDate(inv.CreatedAt)))
	s.WriteString(fmt.Sprintf("  Due:       %s\n", formatNullDate(inv.DueAt)))
	s.WriteString(fmt.Sprintf("  Reference: %s\n\n", inv.Reference))

	lines := inv.ActiveLines()
	s.WriteString(subtitleStyle.Render(fmt.Sprintf("  %-30s %8s %14s %16s", "Service", "Quantity", "Unit", "Total")) + "\n")
	for _, line := range lines {
		name := fmt.Sprintf("#%d", line.ServiceID)
		if line.Service != nil {
			name = line.Service.Name
		}
		s.WriteString(fmt.Sprintf("  %-30s %8.2f %14s %16s\n",
			truncateStr(name, 30), line.Quantity, formatMoney(line.Amount), formatMoney(line.Total())))
	}
	if len(lines) == 0 {
		s.WriteString(subtitleStyle.Render("  No lines") + "\n")
	}
	s.WriteString(fmt.Sprintf("  %-30s %8s %14s %16s\n\n", "", "", "Total", valueStyle.Render(formatMoney(inv.Total()))))

	if len(inv.Logs) > 0 {
		s.WriteString(titleStyle.Render("  Activity") + "\n")
		for _, log := range inv.Logs {
			s.WriteString(fmt.Sprintf("  %s  %-10s %s\n", formatDate(log.CreatedAt), log.Code, log.Details))
		}
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("  s: change state  g: generate  H: history  esc: back"))
	return s.String()
}

func (m *InvoicesModel) viewStatePicker() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("Change state of %s", m.selected.Number)) + "\n\n")

	for i, state := range m.states {
		indicator := "  "
		if i == m.stateCursor {
			indicator = "> "
		}
		label := string(state)
		if state == m.selected.State {
			label += " (current)"
		}
		s.WriteString(indicator + stateStyle(string(state)).Render(label) + "\n")
	}

	s.WriteString("\n" + helpStyle.Render("  j/k: navigate  enter: apply  esc: cancel"))
	return s.String()
}
