package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andy/invoicer/internal/service"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const revenueBarWidth = 30

// DashboardModel represents the dashboard home screen
type DashboardModel struct {
	ctx     context.Context
	reports service.ReportService

	year int
	data *service.Dashboard

	loading bool
	err     error
}

type dashboardDataMsg struct {
	data *service.Dashboard
	err  error
}

// NewDashboardModel creates a new dashboard model for the current year
func NewDashboardModel(ctx context.Context, reports service.ReportService) tea.Model {
	return &DashboardModel{
		ctx:     ctx,
		reports: reports,
		year:    time.Now().Year(),
		loading: true,
	}
}

func (m *DashboardModel) Init() tea.Cmd {
	return m.loadData()
}

func (m *DashboardModel) loadData() tea.Cmd {
	ctx, reports, year := m.ctx, m.reports, m.year
	return func() tea.Msg {
		d, err := reports.Dashboard(ctx, year)
		return dashboardDataMsg{data: d, err: err}
	}
}

// stepYear moves to the previous or next year that has invoices. Years are
// ascending.
func (m *DashboardModel) stepYear(delta int) bool {
	if m.data == nil || len(m.data.Years) == 0 {
		return false
	}
	years := m.data.Years
	idx := -1
	for i, y := range years {
		if y == m.year {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.year = years[len(years)-1]
		return true
	}
	next := idx + delta
	if next < 0 || next >= len(years) {
		return false
	}
	m.year = years[next]
	return true
}

func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.data = msg.data
		}
		return m, nil

	case RefreshDataMsg:
		m.loading = true
		return m, m.loadData()

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		switch {
		case key.Matches(msg, DefaultKeyMap.Left):
			if m.stepYear(-1) {
				m.loading = true
				return m, m.loadData()
			}
		case key.Matches(msg, DefaultKeyMap.Right):
			if m.stepYear(1) {
				m.loading = true
				return m, m.loadData()
			}
		}
	}

	return m, nil
}

func (m *DashboardModel) View() string {
	if m.loading {
		return "Loading dashboard..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	d := m.data
	var s strings.Builder

	s.WriteString(fmt.Sprintf("  Clients: %-6d  Services: %-6d  Sent invoices: %d\n\n",
		d.ClientsNumber, d.ServicesNumber, d.InvoicesNumber))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(m.renderBests()),
		"  ",
		boxStyle.Render(m.renderLatest()),
	))
	s.WriteString("\n\n")
	s.WriteString(m.renderRevenue())
	s.WriteString("\n" + helpStyle.Render("  h/l: previous/next year"))

	return s.String()
}

func (m *DashboardModel) renderBests() string {
	d := m.data
	lines := []string{titleStyle.Render("Best")}

	if d.BestMonth != nil {
		lines = append(lines, fmt.Sprintf("Month   %s %d  %s",
			d.BestMonth.Month.String()[:3], d.BestMonth.Year, valueStyle.Render(formatMoney(d.BestMonth.Value))))
	} else {
		lines = append(lines, "Month   -")
	}
	if d.BestYear != nil {
		lines = append(lines, fmt.Sprintf("Year    %d      %s",
			d.BestYear.Year, valueStyle.Render(formatMoney(d.BestYear.Value))))
	} else {
		lines = append(lines, "Year    -")
	}
	if d.BestClient != nil {
		lines = append(lines, "Client  "+truncateStr(d.BestClient.Name, 24))
	} else {
		lines = append(lines, "Client  -")
	}
	return strings.Join(lines, "\n")
}

func (m *DashboardModel) renderLatest() string {
	lines := []string{titleStyle.Render("Latest invoices")}
	if len(m.data.Invoices) == 0 {
		lines = append(lines, subtitleStyle.Render("No invoices yet"))
	}
	for _, inv := range m.data.Invoices {
		lines = append(lines, fmt.Sprintf("%-8s %-20s %s",
			inv.Number,
			truncateStr(inv.Name, 20),
			stateStyle(string(inv.State)).Render(string(inv.State)),
		))
	}
	return strings.Join(lines, "\n")
}

// renderRevenue draws the cumulative revenue of the selected year as bars
func (m *DashboardModel) renderRevenue() string {
	rev := m.data.Revenue
	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("  Revenue %d", m.year)) + "\n")

	peak := 0.0
	for _, v := range rev.Values {
		if v > peak {
			peak = v
		}
	}

	for i, label := range rev.Labels {
		v := 0.0
		if i < len(rev.Values) {
			v = rev.Values[i]
		}
		width := 0
		if peak > 0 && v > 0 {
			width = int(v / peak * revenueBarWidth)
		}
		bar := strings.Repeat("█", width) + strings.Repeat(" ", revenueBarWidth-width)
		s.WriteString(fmt.Sprintf("  %-4s %s %s\n",
			truncateStr(label, 3),
			valueStyle.Render(bar),
			formatMoney(v),
		))
	}
	return s.String()
}
