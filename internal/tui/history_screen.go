package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/andy/invoicer/internal/history"
	"github.com/andy/invoicer/internal/service"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const historyPageSize = 15

// HistoryModel shows the audit trail of one record, a page at a time
type HistoryModel struct {
	ctx     context.Context
	history service.HistoryService

	table string
	id    int64
	title string
	back  Screen

	records []*history.Record
	page    int
	loading bool
	err     error
}

type historyDataMsg struct {
	records []*history.Record
	err     error
}

// NewHistoryModel creates a history screen with no target yet
func NewHistoryModel(ctx context.Context, svc service.HistoryService) tea.Model {
	return &HistoryModel{ctx: ctx, history: svc, back: ScreenDashboard}
}

func (m *HistoryModel) Init() tea.Cmd {
	if m.table == "" {
		return nil
	}
	return m.loadData()
}

func (m *HistoryModel) loadData() tea.Cmd {
	ctx, svc, table, id := m.ctx, m.history, m.table, m.id
	offset := uint64(m.page * historyPageSize)
	return func() tea.Msg {
		records, err := svc.List(ctx, table, id, historyPageSize, offset)
		return historyDataMsg{records: records, err: err}
	}
}

func (m *HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ShowHistoryMsg:
		m.table, m.id, m.title, m.back = msg.Table, msg.ID, msg.Title, msg.Back
		m.page = 0
		m.loading = true
		return m, m.loadData()

	case RefreshDataMsg:
		if m.table == "" {
			return m, nil
		}
		m.loading = true
		return m, m.loadData()

	case historyDataMsg:
		m.loading = false
		m.err = msg.err
		m.records = msg.records
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		switch {
		case key.Matches(msg, DefaultKeyMap.Back):
			back := m.back
			return m, func() tea.Msg { return SwitchScreenMsg{Screen: back} }
		case key.Matches(msg, DefaultKeyMap.Right):
			if len(m.records) == historyPageSize {
				m.page++
				m.loading = true
				return m, m.loadData()
			}
		case key.Matches(msg, DefaultKeyMap.Left):
			if m.page > 0 {
				m.page--
				m.loading = true
				return m, m.loadData()
			}
		}
	}
	return m, nil
}

func (m *HistoryModel) View() string {
	if m.table == "" {
		return subtitleStyle.Render("  Select a record and press 'H' to see its history.")
	}
	if m.loading {
		return "Loading history..."
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("History of %s #%d", m.table, m.id)))
	if m.title != "" {
		s.WriteString(subtitleStyle.Render("  " + m.title))
	}
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n")
	} else if len(m.records) == 0 {
		s.WriteString(subtitleStyle.Render("  No history recorded") + "\n")
	}

	for _, r := range m.records {
		s.WriteString(fmt.Sprintf("  %s  %-6s  %s\n",
			r.CreatedAt.Local().Format("02.01.2006 15:04"),
			r.Kind,
			subtitleStyle.Render(actorLabel(r.UserID)),
		))
		s.WriteString(renderFields(r))
	}

	s.WriteString("\n" + helpStyle.Render(fmt.Sprintf("  page %d  h/l: previous/next page  esc: back", m.page+1)))
	return s.String()
}

func actorLabel(userID int64) string {
	if userID == 0 {
		return "anonymous"
	}
	return fmt.Sprintf("user #%d", userID)
}

// renderFields lists the changed fields of an update, or the full value
// of a create or delete.
func renderFields(r *history.Record) string {
	doc := r.Value
	if r.Kind == history.KindUpdate {
		doc = r.Changes
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var s strings.Builder
	for _, k := range keys {
		s.WriteString(fmt.Sprintf("      %-16s %s\n", k, truncateStr(fmt.Sprint(derefValue(doc[k])), 50)))
	}
	return s.String()
}

func derefValue(v any) any {
	switch p := v.(type) {
	case nil:
		return "-"
	case *int64:
		if p == nil {
			return "-"
		}
		return *p
	case *string:
		if p == nil {
			return "-"
		}
		return *p
	}
	return v
}
