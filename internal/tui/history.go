package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/fieldclock/internal/report"
	"github.com/verte-zerg/fieldclock/internal/timecalc"
)

const (
	tabTime = iota
	tabMileage
)

var historyTabs = []string{"Time", "Mileage"}

func newHistoryTable() table.Model {
	t := table.New(table.WithFocused(true), table.WithHeight(5))
	t.SetStyles(historyTableStyles())
	return t
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

// tableData sizes each column to its widest cell.
func tableData(headers []string, rows [][]string) ([]table.Column, []table.Row) {
	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		cols[i] = table.Column{Title: h, Width: runewidth.StringWidth(h)}
	}
	out := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(cols) {
				if w := runewidth.StringWidth(cell); w > cols[i].Width {
					cols[i].Width = w
				}
			}
		}
		out = append(out, table.Row(row))
	}
	return cols, out
}

func (m *Model) refreshTables() {
	view := m.manager.Ledger().HistoryView()
	loc := m.now().Location()

	cols, rows := tableData(report.TimeHeaders, report.TimeRows(view.TimeEntries, loc))
	m.timeTable.SetRows(nil)
	m.timeTable.SetColumns(cols)
	m.timeTable.SetRows(rows)

	cols, rows = tableData(report.MileageHeaders, report.MileageRows(view.MileageEntries))
	m.mileageTable.SetRows(nil)
	m.mileageTable.SetColumns(cols)
	m.mileageTable.SetRows(rows)
	m.resizeTables()
}

func (m *Model) resizeTables() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	tabsHeight := lipgloss.Height(activeTabStyle.Render("X"))
	height := maxInt(3, m.height-tabsHeight-4)
	m.timeTable.SetWidth(m.width)
	m.timeTable.SetHeight(height)
	m.mileageTable.SetWidth(m.width)
	m.mileageTable.SetHeight(height)
}

func (m *Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Back):
		m.screen = screenClock
		return m, nil
	case key.Matches(msg, keys.NextTab):
		m.historyTab = (m.historyTab + 1) % len(historyTabs)
		return m, nil
	case key.Matches(msg, keys.Refresh):
		return m, m.reloadHistory()
	}
	var cmd tea.Cmd
	if m.historyTab == tabMileage {
		m.mileageTable, cmd = m.mileageTable.Update(msg)
	} else {
		m.timeTable, cmd = m.timeTable.Update(msg)
	}
	return m, cmd
}

func (m *Model) renderHistoryTabs() string {
	parts := make([]string, 0, len(historyTabs))
	for i, tab := range historyTabs {
		if i == m.historyTab {
			parts = append(parts, activeTabStyle.Render(tab))
		} else {
			parts = append(parts, inactiveTabStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHistory() string {
	view := m.manager.Ledger().HistoryView()
	summary := headerStyle.Render(
		m.manager.Technician() + " · week total " + timecalc.FormatHours(m.manager.WeekTotal(m.now())),
	)
	lines := []string{m.renderHistoryTabs(), summary}

	switch {
	case !m.historyLoaded && len(view.TimeEntries) == 0 && len(view.MileageEntries) == 0:
		lines = append(lines, mutedStyle.Render("Loading history..."))
	case m.historyTab == tabMileage && len(view.MileageEntries) == 0:
		lines = append(lines, mutedStyle.Render("No mileage entries."))
	case m.historyTab == tabTime && len(view.TimeEntries) == 0:
		lines = append(lines, mutedStyle.Render("No time entries."))
	case m.historyTab == tabMileage:
		lines = append(lines, m.mileageTable.View())
	default:
		lines = append(lines, m.timeTable.View())
	}
	return strings.Join(lines, "\n")
}
