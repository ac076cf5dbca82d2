// Package tui provides the Bubble Tea clock interface.
package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/fieldclock/internal/model"
	"github.com/verte-zerg/fieldclock/internal/session"
	"github.com/verte-zerg/fieldclock/internal/timecalc"
)

type screen int

const (
	screenPicker screen = iota
	screenClock
	screenMileage
	screenHistory
)

// Options configures a Model.
type Options struct {
	Remote  Remote
	Store   Store
	Manager *session.Manager
	Logger  *slog.Logger

	// Technician preselects a technician, replacing any restored one.
	Technician  string
	HistoryDays int

	// Notice lifetimes; zero keeps the defaults.
	SuccessTTL time.Duration
	ErrorTTL   time.Duration

	Now func() time.Time
}

// Model implements the Bubble Tea clock UI.
type Model struct {
	remote  Remote
	store   Store
	manager *session.Manager
	logger  *slog.Logger
	now     func() time.Time

	historyDays int
	successTTL  time.Duration
	errorTTL    time.Duration
	preselect   string

	width  int
	height int

	screen screen
	techs  []model.Technician
	cursor int

	notice   session.Notice
	noticeID int

	// ticking is true while the elapsed ticker runs; tickGen invalidates
	// ticks scheduled before the last start or stop.
	ticking bool
	tickGen int
	elapsed string

	mileageInputs []textinput.Model
	mileageIndex  int
	mileageErr    string

	historyTab    int
	timeTable     table.Model
	mileageTable  table.Model
	historyLoaded bool
}

// NewModel constructs the clock TUI model. A restored technician in the
// manager starts the UI on the clock screen.
func NewModel(opts Options) *Model {
	m := &Model{
		remote:      opts.Remote,
		store:       opts.Store,
		manager:     opts.Manager,
		logger:      opts.Logger,
		now:         opts.Now,
		historyDays: opts.HistoryDays,
		successTTL:  opts.SuccessTTL,
		errorTTL:    opts.ErrorTTL,
		preselect:   strings.TrimSpace(opts.Technician),
	}
	if m.manager == nil {
		m.manager = session.NewManager(nil)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.successTTL <= 0 {
		m.successTTL = session.SuccessNoticeTTL
	}
	if m.errorTTL <= 0 {
		m.errorTTL = session.ErrorNoticeTTL
	}
	if m.manager.Technician() != "" && m.preselect == "" {
		m.screen = screenClock
	}
	m.initMileageInputs()
	m.timeTable = newHistoryTable()
	m.mileageTable = newHistoryTable()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{fetchTechnicians(m.remote)}
	switch {
	case m.preselect != "":
		cmds = append(cmds, m.selectTechnician(m.preselect))
	case m.manager.Technician() != "":
		cmds = append(cmds, m.reload(), m.syncTicker())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeTables()
		return m, nil
	case techsLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("technician roster unavailable, using fallback", "error", msg.err)
		}
		m.techs = msg.techs
		m.cursor = m.rosterIndex(m.manager.Technician())
		return m, nil
	case statusMsg:
		if msg.err != nil {
			m.logger.Warn("status unavailable, keeping cached session", "error", msg.err)
		}
		if !m.manager.ApplyStatus(msg.ticket, msg.status, msg.err, m.now()) {
			return m, nil
		}
		m.persist()
		return m, m.syncTicker()
	case historyMsg:
		if msg.err != nil {
			m.logger.Warn("history unavailable, keeping cached entries", "error", msg.err)
			if msg.epoch == m.manager.Epoch() {
				m.historyLoaded = true
			}
			return m, nil
		}
		if !m.manager.ApplyHistory(msg.epoch, msg.history) {
			return m, nil
		}
		m.historyLoaded = true
		m.persist()
		m.refreshTables()
		return m, nil
	case clockResultMsg:
		return m, m.finishClock(msg)
	case mileageResultMsg:
		n, ok := m.manager.FinishMileage(msg.pending, msg.result)
		if !ok {
			return m, nil
		}
		m.persist()
		m.refreshTables()
		return m, m.showNotice(n)
	case debounceReleaseMsg:
		if msg.epoch == m.manager.Epoch() {
			m.manager.Debounce().ReleaseAfterTimer()
		}
		return m, nil
	case clearNoticeMsg:
		if msg.id == m.noticeID {
			m.notice = session.Notice{}
		}
		return m, nil
	case elapsedTickMsg:
		if !m.ticking || msg.gen != m.tickGen {
			return m, nil
		}
		m.elapsed = m.manager.Elapsed(m.now())
		return m, elapsedTick(m.tickGen)
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch m.screen {
	case screenPicker:
		return m.updatePicker(msg)
	case screenMileage:
		return m.updateMileage(msg)
	case screenHistory:
		return m.updateHistory(msg)
	default:
		return m.updateClock(msg)
	}
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.techs)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Back):
		if m.manager.Technician() != "" {
			m.screen = screenClock
		}
	case key.Matches(msg, keys.Select):
		if len(m.techs) == 0 {
			return m, nil
		}
		return m, m.selectTechnician(m.techs[m.cursor].Name)
	}
	return m, nil
}

func (m *Model) updateClock(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Clock), key.Matches(msg, keys.Select):
		return m, m.toggleClock()
	case key.Matches(msg, keys.Mileage):
		return m, m.openMileageForm()
	case key.Matches(msg, keys.History):
		m.screen = screenHistory
		m.refreshTables()
		return m, m.reloadHistory()
	case key.Matches(msg, keys.Switch):
		m.screen = screenPicker
		m.cursor = m.rosterIndex(m.manager.Technician())
		return m, nil
	case key.Matches(msg, keys.Refresh):
		return m, m.reload()
	}
	return m, nil
}

// selectTechnician switches the active technician. Selecting the current
// technician again still clears and reloads everything.
func (m *Model) selectTechnician(name string) tea.Cmd {
	m.manager.Select(name)
	m.preselect = ""
	m.historyLoaded = false
	m.notice = session.Notice{}
	m.elapsed = ""
	m.screen = screenClock
	if m.store != nil {
		if err := m.store.Clear(context.Background()); err != nil {
			m.logger.Error("failed to clear local state", "error", err)
		}
	}
	m.persist()
	m.refreshTables()
	m.logger.Info("technician selected", "tech", name, "epoch", m.manager.Epoch())
	return tea.Batch(m.syncTicker(), m.reload())
}

func (m *Model) reload() tea.Cmd {
	tech := m.manager.Technician()
	if tech == "" {
		return nil
	}
	return tea.Batch(
		fetchStatus(m.remote, tech, m.manager.StatusTicket()),
		fetchHistory(m.remote, tech, m.historyDays, m.manager.Epoch()),
	)
}

func (m *Model) reloadHistory() tea.Cmd {
	tech := m.manager.Technician()
	if tech == "" {
		return nil
	}
	return fetchHistory(m.remote, tech, m.historyDays, m.manager.Epoch())
}

func (m *Model) toggleClock() tea.Cmd {
	now := m.now()
	switch {
	case m.manager.CanClockOut():
		p, optimistic, ok := m.manager.BeginClockOut(now)
		if !ok {
			return nil
		}
		m.persist()
		m.logger.Info("clock out issued", "tech", p.Technician, "hours", p.Hours)
		return tea.Batch(
			sendClock(m.remote, p),
			m.debounceTimer(),
			m.showNotice(optimistic),
			m.syncTicker(),
		)
	case m.manager.CanClockIn():
		p, ok := m.manager.BeginClockIn(now)
		if !ok {
			return nil
		}
		m.persist()
		m.logger.Info("clock in issued", "tech", p.Technician)
		return tea.Batch(
			sendClock(m.remote, p),
			m.debounceTimer(),
			m.syncTicker(),
		)
	}
	return nil
}

func (m *Model) finishClock(msg clockResultMsg) tea.Cmd {
	var (
		n  session.Notice
		ok bool
	)
	if msg.pending.Action == model.ActionClockOut {
		n, ok = m.manager.FinishClockOut(msg.pending, msg.result)
	} else {
		n, ok = m.manager.FinishClockIn(msg.pending, msg.result)
	}
	if !ok {
		m.logger.Debug("dropped stale clock result", "tech", msg.pending.Technician)
		return nil
	}
	if !msg.result.Success {
		m.logger.Warn("clock action failed", "action", msg.pending.Action, "error", msg.result.Error)
	}
	m.persist()
	m.refreshTables()
	return tea.Batch(m.showNotice(n), m.syncTicker())
}

func (m *Model) debounceTimer() tea.Cmd {
	d := m.manager.Debounce()
	if d.Policy != session.DebounceTimer {
		return nil
	}
	return releaseDebounceAfter(d.Window, m.manager.Epoch())
}

// syncTicker starts the elapsed ticker when the session is IN and stops it
// otherwise. Starting recomputes the elapsed text immediately.
func (m *Model) syncTicker() tea.Cmd {
	clockedIn := m.manager.Clock().ClockedIn
	switch {
	case clockedIn && !m.ticking:
		m.ticking = true
		m.tickGen++
		m.elapsed = m.manager.Elapsed(m.now())
		return elapsedTick(m.tickGen)
	case clockedIn:
		m.elapsed = m.manager.Elapsed(m.now())
	case m.ticking:
		m.ticking = false
		m.tickGen++
		m.elapsed = ""
	}
	return nil
}

func (m *Model) showNotice(n session.Notice) tea.Cmd {
	if n.Empty() {
		return nil
	}
	ttl := m.successTTL
	if n.Kind == session.NoticeError {
		ttl = m.errorTTL
	}
	m.notice = n
	m.noticeID++
	return clearNoticeAfter(ttl, m.noticeID)
}

func (m *Model) persist() {
	if m.store == nil {
		return
	}
	if err := m.store.SaveSnapshot(context.Background(), m.manager.Snapshot()); err != nil {
		m.logger.Error("failed to save local state", "error", err)
	}
}

func (m *Model) rosterIndex(name string) int {
	for i, t := range m.techs {
		if t.Name == name {
			return i
		}
	}
	return 0
}

// View implements tea.Model.
func (m *Model) View() string {
	var body, help string
	switch m.screen {
	case screenPicker:
		body = m.renderPicker()
		help = helpLine(keys.Up, keys.Down, keys.Select, keys.Quit)
	case screenMileage:
		body = m.renderMileageForm()
		help = helpLine(keys.NextItem, keys.Submit, keys.Back)
	case screenHistory:
		body = m.renderHistory()
		help = helpLine(keys.NextTab, keys.Refresh, keys.Back, keys.Quit)
	default:
		body = m.renderClock()
		help = helpLine(keys.Clock, keys.Mileage, keys.History, keys.Switch, keys.Refresh, keys.Quit)
	}
	footer := m.renderFooter(help)
	if m.width == 0 || m.height == 0 {
		return body + "\n\n" + footer
	}
	footerHeight := lipgloss.Height(footer)
	bodyHeight := maxInt(1, m.height-footerHeight)
	if m.screen == screenHistory {
		return fitLines(body, m.width, bodyHeight) + "\n" + footer
	}
	placed := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, body)
	return placed + "\n" + footer
}

func (m *Model) renderFooter(help string) string {
	lines := []string{}
	if !m.notice.Empty() {
		style := successStyle
		if m.notice.Kind == session.NoticeError {
			style = errorStyle
		}
		lines = append(lines, style.Render(truncateLine(m.notice.Text, m.width)))
	}
	lines = append(lines, footerStyle.Render(truncateLine(help, m.width)))
	return strings.Join(lines, "\n")
}

func (m *Model) renderPicker() string {
	lines := []string{titleStyle.Render("Who is working?"), ""}
	if len(m.techs) == 0 {
		lines = append(lines, mutedStyle.Render("Loading technicians..."))
		return strings.Join(lines, "\n")
	}
	for i, t := range m.techs {
		prefix := "  "
		name := t.Name
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
			name = valueStyle.Render(name)
		}
		lines = append(lines, prefix+name)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderClock() string {
	now := m.now()
	clock := m.manager.Clock()
	lines := []string{titleStyle.Render(m.manager.Technician()), ""}
	if clock.ClockedIn && clock.ClockInTime != nil {
		lines = append(lines,
			inStyle.Render("CLOCKED IN"),
			mutedStyle.Render("since "+clock.ClockInTime.In(now.Location()).Format("3:04 PM")),
		)
		if m.elapsed != "" {
			lines = append(lines, valueStyle.Render(m.elapsed))
		}
	} else {
		lines = append(lines, outStyle.Render("CLOCKED OUT"))
	}
	lines = append(lines, "", headerStyle.Render("This week ")+valueStyle.Render(timecalc.FormatHours(m.manager.WeekTotal(now))))

	action := "[c] Clock in"
	if clock.ClockedIn {
		action = "[c] Clock out"
	}
	if m.manager.Debounce().Busy() {
		action = mutedStyle.Render(action + " (wait)")
	}
	lines = append(lines, "", action)
	return cardStyle.Render(strings.Join(lines, "\n"))
}
