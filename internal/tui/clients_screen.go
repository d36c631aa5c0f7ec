package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/service"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type clientMode int

const (
	clientModeList clientMode = iota
	clientModeNew
	clientModeEdit
)

// form field indices
const (
	fieldName = iota
	fieldFirstname
	fieldLastname
	fieldEmail
	fieldPhone
	fieldAddress
	fieldAddressNumber
	fieldPostalCode
	fieldCity
	fieldRemark
	fieldCount
)

var clientFieldLabels = [fieldCount]string{
	"Company:", "Firstname:", "Lastname:", "Email:", "Phone:",
	"Street:", "Number:", "Postal code:", "City:", "Remark:",
}

// ClientsModel displays a navigable list of clients with create/edit forms
type ClientsModel struct {
	ctx       context.Context
	clients   service.ClientService
	list      []*domain.Client
	cursor    int
	loading   bool
	err       error
	statusMsg string

	// Form state
	mode          clientMode
	fields        []textinput.Model
	fieldFocus    int
	editingID     int64 // 0 for new client
	autoNewClient bool  // open new client form after data loads
}

type clientsDataMsg struct {
	clients []*domain.Client
	err     error
}

type clientSavedMsg struct {
	name string
	err  error
}

type clientDeletedMsg struct {
	name string
	err  error
}

// NewClientsModel creates a new clients screen model
func NewClientsModel(ctx context.Context, clients service.ClientService) tea.Model {
	return &ClientsModel{
		ctx:     ctx,
		clients: clients,
		loading: true,
	}
}

// IsCapturingInput returns true when the form is active
func (m *ClientsModel) IsCapturingInput() bool {
	return m.mode == clientModeNew || m.mode == clientModeEdit
}

func (m *ClientsModel) Init() tea.Cmd {
	return m.loadClients()
}

func (m *ClientsModel) loadClients() tea.Cmd {
	ctx, clients := m.ctx, m.clients
	return func() tea.Msg {
		list, err := clients.List(ctx)
		return clientsDataMsg{clients: list, err: err}
	}
}

func (m *ClientsModel) initForm(editing *domain.Client) {
	m.fields = make([]textinput.Model, fieldCount)
	for i := range m.fields {
		m.fields[i] = textinput.New()
		m.fields[i].CharLimit = 100
		m.fields[i].Width = 40
	}
	m.fields[fieldName].Placeholder = "Company or display name"
	m.fields[fieldEmail].Placeholder = "email@example.com"
	m.fields[fieldAddressNumber].Width = 8
	m.fields[fieldPostalCode].Width = 8
	m.fields[fieldRemark].Placeholder = "Optional notes"
	m.fields[fieldRemark].CharLimit = 200

	m.editingID = 0
	if editing != nil {
		m.fields[fieldName].SetValue(editing.Name)
		m.fields[fieldFirstname].SetValue(editing.Firstname)
		m.fields[fieldLastname].SetValue(editing.Lastname)
		m.fields[fieldEmail].SetValue(editing.Email.String)
		m.fields[fieldPhone].SetValue(editing.PhoneNumber.String)
		m.fields[fieldAddress].SetValue(editing.Address.String)
		m.fields[fieldAddressNumber].SetValue(editing.AddressNumber.String)
		m.fields[fieldPostalCode].SetValue(editing.PostalCode.String)
		m.fields[fieldCity].SetValue(editing.City.String)
		m.fields[fieldRemark].SetValue(editing.Remark.String)
		m.editingID = editing.ID
	}

	m.fieldFocus = fieldName
	m.fields[fieldName].Focus()
}

func (m *ClientsModel) input() service.ClientInput {
	v := func(i int) string { return strings.TrimSpace(m.fields[i].Value()) }
	return service.ClientInput{
		Name:          v(fieldName),
		Firstname:     v(fieldFirstname),
		Lastname:      v(fieldLastname),
		Email:         v(fieldEmail),
		PhoneNumber:   v(fieldPhone),
		Remark:        v(fieldRemark),
		Address:       v(fieldAddress),
		AddressNumber: v(fieldAddressNumber),
		PostalCode:    v(fieldPostalCode),
		City:          v(fieldCity),
	}
}

func (m *ClientsModel) saveClient() tea.Cmd {
	ctx, clients, id, input := m.ctx, m.clients, m.editingID, m.input()
	return func() tea.Msg {
		var (
			client *domain.Client
			err    error
		)
		if id > 0 {
			client, err = clients.Edit(ctx, id, input)
		} else {
			client, err = clients.Create(ctx, input)
		}
		if err != nil {
			return clientSavedMsg{err: err}
		}
		return clientSavedMsg{name: client.Name}
	}
}

func (m *ClientsModel) deleteClient() tea.Cmd {
	ctx, clients, client := m.ctx, m.clients, m.list[m.cursor]
	return func() tea.Msg {
		err := clients.Delete(ctx, client.ID)
		return clientDeletedMsg{name: client.Name, err: err}
	}
}

func (m *ClientsModel) openForm(editing *domain.Client) tea.Cmd {
	if editing != nil {
		m.mode = clientModeEdit
	} else {
		m.mode = clientModeNew
	}
	m.err = nil
	m.initForm(editing)
	return m.fields[fieldName].Focus()
}

func (m *ClientsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(OpenNewClientFormMsg); ok {
		if m.loading {
			m.autoNewClient = true
			return m, nil
		}
		return m, m.openForm(nil)
	}

	if m.mode == clientModeNew || m.mode == clientModeEdit {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadClients()

	case clientsDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.list = msg.clients
			if m.cursor >= len(m.list) {
				m.cursor = max(0, len(m.list)-1)
			}
		}
		if m.autoNewClient {
			m.autoNewClient = false
			return m, m.openForm(nil)
		}
		return m, nil

	case clientDeletedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Deleted: %s", msg.name)
		m.loading = true
		return m, m.loadClients()

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		m.statusMsg = ""
		m.err = nil

		switch {
		case key.Matches(msg, DefaultKeyMap.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, DefaultKeyMap.Down):
			if m.cursor < len(m.list)-1 {
				m.cursor++
			}
		case key.Matches(msg, DefaultKeyMap.New):
			return m, m.openForm(nil)
		case key.Matches(msg, DefaultKeyMap.Select):
			if m.cursor < len(m.list) {
				return m, m.openForm(m.list[m.cursor])
			}
		case key.Matches(msg, DefaultKeyMap.Delete):
			if m.cursor < len(m.list) {
				return m, m.deleteClient()
			}
		case key.Matches(msg, DefaultKeyMap.History):
			if m.cursor < len(m.list) {
				c := m.list[m.cursor]
				return m, func() tea.Msg {
					return ShowHistoryMsg{Table: domain.TableClients, ID: c.ID, Title: c.Name, Back: ScreenClients}
				}
			}
		}
	}

	return m, nil
}

func (m *ClientsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case clientSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mode = clientModeList
		m.statusMsg = fmt.Sprintf("Saved: %s", msg.name)
		m.loading = true
		return m, m.loadClients()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.mode = clientModeList
			m.err = nil
			return m, nil

		case "tab", "down":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus + 1) % fieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "shift+tab", "up":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus - 1 + fieldCount) % fieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "enter":
			if m.fieldFocus == fieldCount-1 {
				return m, m.saveClient()
			}
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus++
			return m, m.fields[m.fieldFocus].Focus()

		case "ctrl+s":
			return m, m.saveClient()
		}
	}

	var cmd tea.Cmd
	m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
	return m, cmd
}

func (m *ClientsModel) View() string {
	if m.mode == clientModeNew || m.mode == clientModeEdit {
		return m.viewForm()
	}
	return m.viewList()
}

func (m *ClientsModel) viewForm() string {
	var s strings.Builder

	switch {
	case m.mode == clientModeEdit:
		s.WriteString(titleStyle.Render("Edit Client") + "\n\n")
	case len(m.list) == 0:
		s.WriteString(titleStyle.Render("Welcome to invoicer!") + "\n")
		s.WriteString(subtitleStyle.Render("  Add your first client to get started.") + "\n\n")
	default:
		s.WriteString(titleStyle.Render("New Client") + "\n\n")
	}

	for i, label := range clientFieldLabels {
		indicator := "  "
		labelStyle := subtitleStyle
		if i == m.fieldFocus {
			indicator = "> "
			labelStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
		}
		s.WriteString(fmt.Sprintf("%s%-14s %s\n", indicator, labelStyle.Render(label), m.fields[i].View()))
	}
	s.WriteString("\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n")
	}

	s.WriteString(helpStyle.Render("  tab/shift+tab: navigate fields  ctrl+s: save  enter: next/save  esc: cancel"))
	return s.String()
}

func (m *ClientsModel) viewList() string {
	if m.loading {
		return "Loading clients..."
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("Clients") + "\n\n")

	if m.statusMsg != "" {
		s.WriteString(statusStyle.Render("  "+m.statusMsg) + "\n\n")
	}
	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n")
	}

	if len(m.list) == 0 {
		s.WriteString(subtitleStyle.Render("  No clients yet. Press 'n' to add one.") + "\n")
		return s.String()
	}

	for i, client := range m.list {
		s.WriteString(m.renderClient(i, client) + "\n")
	}

	s.WriteString("\n" + helpStyle.Render("  j/k: navigate  n: new  enter: edit  x: delete  H: history"))
	return s.String()
}

func (m *ClientsModel) renderClient(index int, client *domain.Client) string {
	selected := index == m.cursor

	indicator := "  "
	nameStyle := lipgloss.NewStyle()
	if selected {
		indicator = "> "
		nameStyle = selectedStyle
	}

	line1 := nameStyle.Render(fmt.Sprintf("%s%s", indicator, client.Name))

	details := []string{client.ContactName()}
	if client.Email.Valid {
		details = append(details, client.Email.String)
	}
	if client.City.Valid {
		details = append(details, strings.TrimSpace(client.PostalCode.String+" "+client.City.String))
	}
	line2 := subtitleStyle.Render("    " + truncateStr(strings.Join(details, "  |  "), 70))

	return line1 + "\n" + line2
}
