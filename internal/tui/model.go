package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/andy/invoicer/internal/app"
	"github.com/andy/invoicer/internal/service"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen represents the current active screen
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenClients
	ScreenInvoices
	ScreenHistory
)

// String returns the screen name
func (s Screen) String() string {
	switch s {
	case ScreenDashboard:
		return "Dashboard"
	case ScreenClients:
		return "Clients"
	case ScreenInvoices:
		return "Invoices"
	case ScreenHistory:
		return "History"
	default:
		return "Unknown"
	}
}

// Services are the operations the screens call
type Services struct {
	Clients  service.ClientService
	Invoices service.InvoiceService
	Reports  service.ReportService
	History  service.HistoryService
}

// Model is the root Bubble Tea model
type Model struct {
	// ctx carries the acting user; every screen runs its commands with it
	ctx           context.Context
	svc           Services
	currentScreen Screen
	width         int
	height        int

	// Screen models (lazy initialized)
	dashboard tea.Model
	clients   tea.Model
	invoices  tea.Model
	history   tea.Model

	checkedFirstRun bool

	err error
}

// New creates a new root model
func New(ctx context.Context, svc Services) Model {
	return Model{
		ctx:           ctx,
		svc:           svc,
		currentScreen: ScreenDashboard,
		dashboard:     NewDashboardModel(ctx, svc.Reports),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.checkFirstRun(),
	}
	if m.dashboard != nil {
		cmds = append(cmds, m.dashboard.Init())
	}
	return tea.Batch(cmds...)
}

// checkFirstRun checks if any clients exist in the database
func (m *Model) checkFirstRun() tea.Cmd {
	ctx, clients := m.ctx, m.svc.Clients
	return func() tea.Msg {
		list, err := clients.List(ctx)
		if err != nil {
			return firstRunCheckMsg{hasClients: true}
		}
		return firstRunCheckMsg{hasClients: len(list) > 0}
	}
}

// initScreen lazy-initializes a screen on first visit,
// and sends a RefreshDataMsg on subsequent visits so screens reload data.
func (m *Model) initScreen(screen Screen) tea.Cmd {
	refresh := func() tea.Msg { return RefreshDataMsg{} }
	switch screen {
	case ScreenDashboard:
		if m.dashboard == nil {
			m.dashboard = NewDashboardModel(m.ctx, m.svc.Reports)
			return m.dashboard.Init()
		}
		return refresh
	case ScreenClients:
		if m.clients == nil {
			m.clients = NewClientsModel(m.ctx, m.svc.Clients)
			return m.clients.Init()
		}
		return refresh
	case ScreenInvoices:
		if m.invoices == nil {
			m.invoices = NewInvoicesModel(m.ctx, m.svc.Invoices)
			return m.invoices.Init()
		}
		return refresh
	case ScreenHistory:
		if m.history == nil {
			m.history = NewHistoryModel(m.ctx, m.svc.History)
			return m.history.Init()
		}
		return refresh
	}
	return nil
}

// InputCapturer is implemented by screens that capture keyboard input (e.g. text forms).
// When active, global navigation keys are suppressed.
type InputCapturer interface {
	IsCapturingInput() bool
}

func (m *Model) screen(s Screen) tea.Model {
	switch s {
	case ScreenDashboard:
		return m.dashboard
	case ScreenClients:
		return m.clients
	case ScreenInvoices:
		return m.invoices
	case ScreenHistory:
		return m.history
	}
	return nil
}

func (m *Model) setScreen(s Screen, model tea.Model) {
	switch s {
	case ScreenDashboard:
		m.dashboard = model
	case ScreenClients:
		m.clients = model
	case ScreenInvoices:
		m.invoices = model
	case ScreenHistory:
		m.history = model
	}
}

// activeScreenCapturingInput returns true if the current screen is capturing text input
func (m *Model) activeScreenCapturingInput() bool {
	if ic, ok := m.screen(m.currentScreen).(InputCapturer); ok {
		return ic.IsCapturingInput()
	}
	return false
}

func (m *Model) switchTo(s Screen) tea.Cmd {
	m.currentScreen = s
	return m.initScreen(s)
}

// Update implements tea.Model - routes keys to screens
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if !m.activeScreenCapturingInput() {
			switch {
			case key.Matches(msg, DefaultKeyMap.Quit):
				return m, tea.Quit
			case key.Matches(msg, DefaultKeyMap.Dashboard):
				return m, m.switchTo(ScreenDashboard)
			case key.Matches(msg, DefaultKeyMap.Clients):
				return m, m.switchTo(ScreenClients)
			case key.Matches(msg, DefaultKeyMap.Invoices):
				return m, m.switchTo(ScreenInvoices)
			}
		}

	case firstRunCheckMsg:
		if !m.checkedFirstRun && !msg.hasClients {
			m.checkedFirstRun = true
			initCmd := m.switchTo(ScreenClients)
			openFormCmd := func() tea.Msg { return OpenNewClientFormMsg{} }
			return m, tea.Batch(initCmd, openFormCmd)
		}
		m.checkedFirstRun = true
		return m, nil

	case SwitchScreenMsg:
		return m, m.switchTo(msg.Screen)

	case ShowHistoryMsg:
		// The history screen is reused; the target travels as a message
		// so both the first visit and later ones pick it up.
		if m.history == nil {
			m.history = NewHistoryModel(m.ctx, m.svc.History)
		}
		m.currentScreen = ScreenHistory
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	// Route message to current screen
	var cmd tea.Cmd
	if screen := m.screen(m.currentScreen); screen != nil {
		screen, cmd = screen.Update(msg)
		m.setScreen(m.currentScreen, screen)
	}
	return m, cmd
}

// View implements tea.Model - renders header + current screen + footer
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := headerStyle.Render(fmt.Sprintf("invoicer - %s", m.currentScreen.String()))
	footer := footerStyle.Render("[D]ashboard  [C]lients  [I]nvoices  [Q]uit")

	content := "Loading..."
	if screen := m.screen(m.currentScreen); screen != nil {
		content = screen.View()
	}

	errorDisplay := ""
	if m.err != nil {
		errorDisplay = lipgloss.NewStyle().
			Foreground(errorColor).
			Render(fmt.Sprintf("\nError: %s", m.err.Error()))
	}

	innerWidth := m.width - 6 // border (2) + padding (4)
	if innerWidth < 20 {
		innerWidth = 20
	}
	dividerWidth := innerWidth - 12
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := lipgloss.NewStyle().Foreground(borderColor).Render(
		strings.Repeat("─", dividerWidth),
	)

	body := fmt.Sprintf("%s\n%s\n\n%s%s\n\n%s\n%s", header, divider, content, errorDisplay, divider, footer)

	frame := appBorderStyle.
		Width(innerWidth).
		Height(m.height - 4)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, frame.Render(body))
}

// Run starts the TUI. Changes made from the screens are attributed to the
// user carried by ctx.
func Run(ctx context.Context, a *app.App) error {
	svc := Services{
		Clients:  a.ClientService,
		Invoices: a.InvoiceService,
		Reports:  a.ReportService,
		History:  a.HistoryService,
	}
	p := tea.NewProgram(New(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
