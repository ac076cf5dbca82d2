// Package session implements the clock-in/out state machine and the
// optimistic update protocol around the remote endpoints.
//
// Every operation is split into a Begin step, which mutates local state
// before the remote call resolves, and a Finish step, which reconciles the
// remote result or rolls the optimistic change back. The TUI runs the remote
// call between the two as a tea.Cmd; the CLI runs all three in a row.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/fieldclock/internal/ledger"
	"github.com/verte-zerg/fieldclock/internal/model"
	"github.com/verte-zerg/fieldclock/internal/timecalc"
)

// Remote is the subset of the webhook client the manager drives.
type Remote interface {
	Clock(ctx context.Context, tech string, action model.ClockAction, at time.Time) model.ActionResult
	SubmitMileage(ctx context.Context, req model.MileageRequest) model.ActionResult
	EditEntry(ctx context.Context, req model.EditRequest) model.ActionResult
}

// Manager owns the active technician's clock session and ledger.
type Manager struct {
	tech     string
	clock    model.ClockSession
	ledger   *ledger.Ledger
	debounce *Debounce

	// epoch increments on every technician selection so results of calls
	// issued for a previous selection can be recognised and dropped.
	epoch uint64

	// clockSeq increments on every issued clock action; inFlight counts
	// those still awaiting a result. A status reply is only trusted when
	// neither moved since it was requested.
	clockSeq uint64
	inFlight int
}

// StatusTicket identifies the session state a status request was issued
// against. Obtain one from Manager.StatusTicket before calling the remote.
type StatusTicket struct {
	epoch    uint64
	clockSeq uint64
}

// NewManager returns a manager with no technician selected.
func NewManager(d *Debounce) *Manager {
	if d == nil {
		d = NewDebounce(DebounceTimer, DefaultDebounceWindow)
	}
	return &Manager{ledger: ledger.New(), debounce: d}
}

// Technician returns the selected technician name.
func (m *Manager) Technician() string { return m.tech }

// Clock returns the current clock session.
func (m *Manager) Clock() model.ClockSession { return m.clock }

// Ledger returns the active ledger.
func (m *Manager) Ledger() *ledger.Ledger { return m.ledger }

// Debounce returns the clock-action cooldown.
func (m *Manager) Debounce() *Debounce { return m.debounce }

// Epoch returns the current selection epoch.
func (m *Manager) Epoch() uint64 { return m.epoch }

// Select switches to tech, clearing the session, ledger and week total.
func (m *Manager) Select(tech string) {
	m.tech = tech
	m.clock = model.ClockSession{}
	m.ledger.Reset()
	m.debounce.Reset()
	m.epoch++
	m.inFlight = 0
}

// Restore loads a locally persisted snapshot.
func (m *Manager) Restore(s model.Snapshot) {
	m.Select(s.Technician)
	m.clock = s.Clock
	if m.clock.ClockedIn && m.clock.ClockInTime == nil {
		m.clock = model.ClockSession{}
	}
	if !m.clock.ClockedIn {
		m.clock.ClockInTime = nil
	}
	m.ledger = ledger.Restore(s.TimeEntries, s.MileageEntries)
}

// Snapshot captures the state the local store mirrors.
func (m *Manager) Snapshot() model.Snapshot {
	return model.Snapshot{
		Technician:     m.tech,
		Clock:          m.clock,
		TimeEntries:    m.ledger.TimeEntries(),
		MileageEntries: m.ledger.MileageEntries(),
	}
}

// StatusTicket returns the ticket for a status request issued now.
func (m *Manager) StatusTicket() StatusTicket {
	return StatusTicket{epoch: m.epoch, clockSeq: m.clockSeq}
}

// ApplyStatus initializes the session from the remote status. When the
// status call failed (fetchErr != nil) the locally cached session is kept.
// It returns false and leaves the session untouched when the ticket is
// stale: issued for a previous selection, or overtaken by a clock action.
func (m *Manager) ApplyStatus(t StatusTicket, st model.Status, fetchErr error, now time.Time) bool {
	if t.epoch != m.epoch || t.clockSeq != m.clockSeq || m.inFlight > 0 {
		return false
	}
	if fetchErr != nil {
		return true
	}
	if !st.ClockedIn {
		m.clock = model.ClockSession{}
		return true
	}
	var at time.Time
	switch {
	case st.ClockInTime != nil:
		at = *st.ClockInTime
	case st.ElapsedMinutes != nil:
		at = now.Add(-time.Duration(*st.ElapsedMinutes * float64(time.Minute)))
	case m.clock.ClockedIn:
		at = *m.clock.ClockInTime
	default:
		at = now
	}
	m.clock = model.ClockSession{ClockedIn: true, ClockInTime: &at}
	return true
}

// ApplyHistory replaces the ledger with the server's view. It returns false
// if epoch is stale.
func (m *Manager) ApplyHistory(epoch uint64, h model.History) bool {
	if epoch != m.epoch {
		return false
	}
	m.ledger.Replace(h)
	return true
}

func (m *Manager) issueClock() {
	m.clockSeq++
	m.inFlight++
}

func (m *Manager) settleClock() {
	if m.inFlight > 0 {
		m.inFlight--
	}
}

// CanClockIn reports whether the clock-in control should be enabled.
func (m *Manager) CanClockIn() bool {
	return m.tech != "" && !m.clock.ClockedIn && !m.debounce.Busy()
}

// CanClockOut reports whether the clock-out control should be enabled.
func (m *Manager) CanClockOut() bool {
	return m.tech != "" && m.clock.ClockedIn && !m.debounce.Busy()
}

// Elapsed renders time since clock-in, or "" while clocked out.
func (m *Manager) Elapsed(now time.Time) string {
	if !m.clock.ClockedIn || m.clock.ClockInTime == nil {
		return ""
	}
	return timecalc.FormatElapsed(now.Sub(*m.clock.ClockInTime))
}

// WeekTotal returns hours worked this week.
func (m *Manager) WeekTotal(now time.Time) float64 {
	return m.ledger.WeekTotal(now)
}

// Pending is an issued clock action awaiting its remote result. It carries
// what Finish needs to reconcile or roll back.
type Pending struct {
	Action     model.ClockAction
	Technician string
	At         time.Time
	Previous   model.ClockSession
	// Hours is the optimistic hours worked; clock-out only.
	Hours float64

	epoch uint64
}

// BeginClockIn optimistically moves the session to IN at now. It returns
// false while the debounce flag is set; the tap is dropped. It does not
// check the current state: guarding against clock-in while IN is the
// caller's job (see CanClockIn).
func (m *Manager) BeginClockIn(now time.Time) (Pending, bool) {
	if !m.debounce.Acquire() {
		return Pending{}, false
	}
	p := Pending{
		Action:     model.ActionClockIn,
		Technician: m.tech,
		At:         now,
		Previous:   m.clock,
		epoch:      m.epoch,
	}
	at := now
	m.clock = model.ClockSession{ClockedIn: true, ClockInTime: &at}
	m.issueClock()
	return p, true
}

// FinishClockIn reconciles a clock-in result. On success the shift is
// recorded in the ledger; on failure the session returns to OUT. The second
// return value is false when the result belongs to a previous selection.
func (m *Manager) FinishClockIn(p Pending, res model.ActionResult) (Notice, bool) {
	m.debounce.ReleaseAfterCompletion()
	if p.epoch != m.epoch {
		return Notice{}, false
	}
	m.settleClock()
	if !res.Success {
		m.clock = model.ClockSession{}
		return errorNotice(res.Error, "Clock in failed"), true
	}
	day := timecalc.DayKey(p.At)
	shiftID := res.ShiftID
	if shiftID == "" {
		shiftID = fmt.Sprintf("%s_%s", day, p.Technician)
	}
	m.ledger.UpsertTimeEntry(model.TimeEntry{
		ShiftID: shiftID,
		Date:    day,
		ClockIn: p.At,
	})
	return successNotice("Clocked in at " + p.At.Format("3:04 PM")), true
}

// BeginClockOut optimistically moves the session to OUT, computing hours
// from the local clock-in time. It returns the optimistic success notice,
// shown before the remote call resolves.
func (m *Manager) BeginClockOut(now time.Time) (Pending, Notice, bool) {
	if !m.debounce.Acquire() {
		return Pending{}, Notice{}, false
	}
	var hours float64
	if m.clock.ClockInTime != nil {
		hours = timecalc.HoursWorked(*m.clock.ClockInTime, now)
	}
	p := Pending{
		Action:     model.ActionClockOut,
		Technician: m.tech,
		At:         now,
		Previous:   m.clock,
		Hours:      hours,
		epoch:      m.epoch,
	}
	m.clock = model.ClockSession{}
	m.issueClock()
	return p, successNotice("Clocked out · " + timecalc.FormatHours(hours)), true
}

// FinishClockOut reconciles a clock-out result. On success the open entry is
// closed with the server's hours when given, else the optimistic hours. The
// entry is looked up by the clock-out day, then by the clock-in day for
// shifts crossing midnight; when neither is open locally a closed entry is
// recorded so the hours still count. On failure the pre-call session is restored. A successful result
// yields no further notice; the optimistic one already covered it.
func (m *Manager) FinishClockOut(p Pending, res model.ActionResult) (Notice, bool) {
	m.debounce.ReleaseAfterCompletion()
	if p.epoch != m.epoch {
		return Notice{}, false
	}
	m.settleClock()
	if !res.Success {
		m.clock = p.Previous
		return errorNotice(res.Error, "Clock out failed"), true
	}
	hours := p.Hours
	if res.HoursWorked != nil {
		hours = *res.HoursWorked
	}
	m.closeShift(p, res.ShiftID, hours)
	m.ledger.AddConfirmedHours(hours)
	return Notice{}, true
}

func (m *Manager) closeShift(p Pending, shiftID string, hours float64) {
	outDay := timecalc.DayKey(p.At)
	if m.ledger.CloseOpenEntry(outDay, p.At, hours) {
		return
	}
	clockIn := p.At.Add(-time.Duration(hours * float64(time.Hour)))
	if p.Previous.ClockInTime != nil {
		clockIn = *p.Previous.ClockInTime
	}
	inDay := timecalc.DayKey(clockIn)
	if inDay != outDay && m.ledger.CloseOpenEntry(inDay, p.At, hours) {
		return
	}
	if shiftID == "" {
		shiftID = fmt.Sprintf("%s_%s", inDay, p.Technician)
	}
	out := p.At
	h := hours
	m.ledger.UpsertTimeEntry(model.TimeEntry{
		ShiftID:     shiftID,
		Date:        inDay,
		ClockIn:     clockIn,
		ClockOut:    &out,
		HoursWorked: &h,
	})
}

// ClockIn runs a whole clock-in against r. It returns an empty notice when
// the action was debounced.
func (m *Manager) ClockIn(ctx context.Context, r Remote, now time.Time) Notice {
	p, ok := m.BeginClockIn(now)
	if !ok {
		return Notice{}
	}
	n, _ := m.FinishClockIn(p, r.Clock(ctx, p.Technician, p.Action, p.At))
	return n
}

// ClockOut runs a whole clock-out against r and returns the notice the user
// ends up seeing.
func (m *Manager) ClockOut(ctx context.Context, r Remote, now time.Time) Notice {
	p, optimistic, ok := m.BeginClockOut(now)
	if !ok {
		return Notice{}
	}
	n, _ := m.FinishClockOut(p, r.Clock(ctx, p.Technician, p.Action, p.At))
	if n.Empty() {
		return optimistic
	}
	return n
}
