package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/fieldclock/internal/session"
	"github.com/verte-zerg/fieldclock/internal/timecalc"
)

const (
	fieldDate = iota
	fieldMiles
	fieldDescription
)

func newFormInput(prompt, placeholder string, limit int) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.CharLimit = limit
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) initMileageInputs() {
	m.mileageInputs = []textinput.Model{
		newFormInput("Date (YYYY-MM-DD): ", "2024-01-10", 10),
		newFormInput("Miles: ", "0", 12),
		newFormInput("Description: ", "Site visit", 120),
	}
}

func (m *Model) openMileageForm() tea.Cmd {
	if m.manager.Technician() == "" {
		return nil
	}
	m.screen = screenMileage
	m.mileageErr = ""
	m.mileageInputs[fieldDate].SetValue(timecalc.DayKey(m.now()))
	m.mileageInputs[fieldMiles].SetValue("")
	m.mileageInputs[fieldDescription].SetValue("")
	for i := range m.mileageInputs {
		promptWidth := lipgloss.Width(m.mileageInputs[i].Prompt)
		m.mileageInputs[i].Width = maxInt(10, m.width/2-promptWidth)
	}
	return m.setMileageIndex(fieldMiles)
}

func (m *Model) setMileageIndex(idx int) tea.Cmd {
	count := len(m.mileageInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.mileageIndex = idx
	var cmd tea.Cmd
	for i := range m.mileageInputs {
		if i == m.mileageIndex {
			cmd = m.mileageInputs[i].Focus()
		} else {
			m.mileageInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) updateMileage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		m.screen = screenClock
		m.mileageErr = ""
		return m, nil
	case key.Matches(msg, keys.Submit):
		return m, m.submitMileage()
	case key.Matches(msg, keys.NextItem):
		return m, m.setMileageIndex(m.mileageIndex + 1)
	case key.Matches(msg, keys.PrevItem):
		return m, m.setMileageIndex(m.mileageIndex - 1)
	}
	var cmd tea.Cmd
	m.mileageInputs[m.mileageIndex], cmd = m.mileageInputs[m.mileageIndex].Update(msg)
	return m, cmd
}

// submitMileage validates the form locally; invalid input keeps the form
// open with the error instead of reaching the server.
func (m *Model) submitMileage() tea.Cmd {
	cmd, err := session.NewMileageCommand(
		m.mileageInputs[fieldDate].Value(),
		m.mileageInputs[fieldMiles].Value(),
		m.mileageInputs[fieldDescription].Value(),
	)
	if err != nil {
		m.mileageErr = err.Error()
		return nil
	}
	m.mileageErr = ""
	m.screen = screenClock
	p := m.manager.BeginMileage(cmd, m.now())
	m.logger.Info("mileage submitted", "tech", p.Technician, "date", cmd.Date, "miles", cmd.Miles)
	return sendMileage(m.remote, p)
}

func (m *Model) renderMileageForm() string {
	lines := []string{titleStyle.Render("Log mileage · " + m.manager.Technician()), ""}
	for _, input := range m.mileageInputs {
		lines = append(lines, input.View())
	}
	if m.mileageErr != "" {
		lines = append(lines, "", errorStyle.Render(m.mileageErr))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}
