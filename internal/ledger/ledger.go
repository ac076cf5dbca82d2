// Package ledger holds the active technician's time and mileage entries and
// derives week totals from them.
package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/verte-zerg/fieldclock/internal/model"
	"github.com/verte-zerg/fieldclock/internal/timecalc"
)

// Ledger is the in-memory collection of entries for one technician.
type Ledger struct {
	timeEntries    []model.TimeEntry
	mileageEntries []model.MileageEntry

	// serverWeekTotal is the week total from the last history load, plus
	// hours confirmed locally since. Nil means derive it from the entries.
	serverWeekTotal *float64
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Restore seeds a ledger from locally persisted entries.
func Restore(timeEntries []model.TimeEntry, mileageEntries []model.MileageEntry) *Ledger {
	return &Ledger{
		timeEntries:    append([]model.TimeEntry(nil), timeEntries...),
		mileageEntries: append([]model.MileageEntry(nil), mileageEntries...),
	}
}

// TimeEntries returns a copy of the time entries in insertion order.
func (l *Ledger) TimeEntries() []model.TimeEntry {
	return append([]model.TimeEntry(nil), l.timeEntries...)
}

// MileageEntries returns a copy of the mileage entries, newest submission first.
func (l *Ledger) MileageEntries() []model.MileageEntry {
	return append([]model.MileageEntry(nil), l.mileageEntries...)
}

// Replace overwrites the ledger with the server's view. Entries created
// optimistically since the previous load are discarded.
func (l *Ledger) Replace(h model.History) {
	l.timeEntries = make([]model.TimeEntry, 0, len(h.TimeEntries))
	for _, e := range h.TimeEntries {
		e.Date = timecalc.NormalizeDay(e.Date)
		l.timeEntries = append(l.timeEntries, e)
	}
	l.mileageEntries = make([]model.MileageEntry, 0, len(h.MileageEntries))
	for _, e := range h.MileageEntries {
		e.Date = timecalc.NormalizeDay(e.Date)
		l.mileageEntries = append(l.mileageEntries, e)
	}
	l.serverWeekTotal = nil
	if h.WeekTotalHours != nil {
		total := *h.WeekTotalHours
		l.serverWeekTotal = &total
	}
}

// Reset empties the ledger and forgets the server week total.
func (l *Ledger) Reset() {
	l.timeEntries = nil
	l.mileageEntries = nil
	l.serverWeekTotal = nil
}

// UpsertTimeEntry inserts e, replacing any entry with the same shift ID.
func (l *Ledger) UpsertTimeEntry(e model.TimeEntry) {
	for i := range l.timeEntries {
		if l.timeEntries[i].ShiftID == e.ShiftID {
			l.timeEntries[i] = e
			return
		}
	}
	l.timeEntries = append(l.timeEntries, e)
}

// CloseOpenEntry fills clock-out and hours on the open entry dated day.
// Matching is by (date, still open) rather than by shift ID, since the
// server may assign IDs that differ from the locally synthesized one.
// It reports whether an entry was closed.
func (l *Ledger) CloseOpenEntry(day string, clockOut time.Time, hours float64) bool {
	for i := len(l.timeEntries) - 1; i >= 0; i-- {
		e := &l.timeEntries[i]
		if e.Date != day || !e.Open() {
			continue
		}
		out := clockOut
		h := hours
		e.ClockOut = &out
		e.HoursWorked = &h
		return true
	}
	return false
}

// AddConfirmedHours adds hours to the running server week total, if one is
// held. Without a server total the week is derived from entries instead.
func (l *Ledger) AddConfirmedHours(hours float64) {
	if l.serverWeekTotal == nil {
		return
	}
	total := *l.serverWeekTotal + hours
	l.serverWeekTotal = &total
}

// PrependMileage inserts e at the head of the mileage list.
func (l *Ledger) PrependMileage(e model.MileageEntry) {
	l.mileageEntries = append([]model.MileageEntry{e}, l.mileageEntries...)
}

// Editable entry fields.
const (
	FieldClockIn     = "clock_in"
	FieldClockOut    = "clock_out"
	FieldHoursWorked = "hours_worked"
	FieldDate        = "date"
)

// ApplyEdit applies a server-accepted correction to the entry with shiftID.
// Clock edits recompute hours when both ends are known.
func (l *Ledger) ApplyEdit(shiftID, field, value string) error {
	idx := -1
	for i := range l.timeEntries {
		if l.timeEntries[i].ShiftID == shiftID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("no entry with shift id %q", shiftID)
	}
	e := &l.timeEntries[idx]
	switch field {
	case FieldClockIn:
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return fmt.Errorf("invalid clock_in %q: %w", value, err)
		}
		e.ClockIn = ts
	case FieldClockOut:
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return fmt.Errorf("invalid clock_out %q: %w", value, err)
		}
		e.ClockOut = &ts
	case FieldHoursWorked:
		h, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid hours_worked %q: %w", value, err)
		}
		e.HoursWorked = &h
		l.serverWeekTotal = nil
		return nil
	case FieldDate:
		if _, err := timecalc.ParseDay(value, time.UTC); err != nil {
			return err
		}
		e.Date = value
		l.serverWeekTotal = nil
		return nil
	default:
		return fmt.Errorf("unsupported field %q", field)
	}
	if e.ClockOut != nil {
		h := timecalc.HoursWorked(e.ClockIn, *e.ClockOut)
		e.HoursWorked = &h
	}
	l.serverWeekTotal = nil
	return nil
}

// WeekTotal returns the hours worked in the week containing now. A total
// from the last history load wins over the locally derived sum.
func (l *Ledger) WeekTotal(now time.Time) float64 {
	if l.serverWeekTotal != nil {
		return *l.serverWeekTotal
	}
	return SumWeek(l.timeEntries, timecalc.StartOfWeek(now))
}

// SumWeek sums hours of entries dated on or after weekStart. Entries still
// open (nil hours) are skipped.
func SumWeek(entries []model.TimeEntry, weekStart time.Time) float64 {
	from := timecalc.DayKey(weekStart)
	var total float64
	for _, e := range entries {
		if e.HoursWorked == nil {
			continue
		}
		if timecalc.NormalizeDay(e.Date) < from {
			continue
		}
		total += *e.HoursWorked
	}
	return total
}

// View is an ordered listing of entries for display.
type View struct {
	TimeEntries    []model.TimeEntry
	MileageEntries []model.MileageEntry
}

// HistoryView lists all entries, newest date first.
func (l *Ledger) HistoryView() View {
	v := View{TimeEntries: l.TimeEntries(), MileageEntries: l.MileageEntries()}
	sort.SliceStable(v.TimeEntries, func(i, j int) bool {
		return v.TimeEntries[i].Date > v.TimeEntries[j].Date
	})
	sort.SliceStable(v.MileageEntries, func(i, j int) bool {
		return v.MileageEntries[i].Date > v.MileageEntries[j].Date
	})
	return v
}

// WeekView lists the current week's entries, oldest date first.
func (l *Ledger) WeekView(now time.Time) View {
	from := timecalc.DayKey(timecalc.StartOfWeek(now))
	var v View
	for _, e := range l.timeEntries {
		if e.Date >= from {
			v.TimeEntries = append(v.TimeEntries, e)
		}
	}
	for _, e := range l.mileageEntries {
		if e.Date >= from {
			v.MileageEntries = append(v.MileageEntries, e)
		}
	}
	sort.SliceStable(v.TimeEntries, func(i, j int) bool {
		return v.TimeEntries[i].Date < v.TimeEntries[j].Date
	})
	sort.SliceStable(v.MileageEntries, func(i, j int) bool {
		return v.MileageEntries[i].Date < v.MileageEntries[j].Date
	})
	return v
}
