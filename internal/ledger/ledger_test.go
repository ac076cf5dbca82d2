package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/fieldclock/internal/model"
)

func hours(h float64) *float64 { return &h }

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSumWeekExcludesPriorWeekAndOpenEntries(t *testing.T) {
	entries := []model.TimeEntry{
		{ShiftID: "2024-01-05_Bri", Date: "2024-01-05", HoursWorked: hours(8)},
		{ShiftID: "2024-01-08_Bri", Date: "2024-01-08", HoursWorked: hours(2.5)},
		{ShiftID: "2024-01-09_Bri", Date: "2024-01-09", HoursWorked: hours(4.0)},
		{ShiftID: "2024-01-10_Bri", Date: "2024-01-10"},
	}
	weekStart := time.Date(2024, 1, 7, 0, 0, 0, 0, time.Local)
	assert.Equal(t, 6.5, SumWeek(entries, weekStart))
}

func TestWeekTotalPrefersServerValue(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	l := New()
	l.Replace(model.History{
		TimeEntries:    []model.TimeEntry{{ShiftID: "a", Date: "2024-01-08", HoursWorked: hours(2.5)}},
		WeekTotalHours: hours(9.75),
	})
	assert.Equal(t, 9.75, l.WeekTotal(now))

	l.AddConfirmedHours(1.25)
	assert.Equal(t, 11.0, l.WeekTotal(now))

	l.Replace(model.History{
		TimeEntries: []model.TimeEntry{{ShiftID: "a", Date: "2024-01-08", HoursWorked: hours(2.5)}},
	})
	assert.Equal(t, 2.5, l.WeekTotal(now))
}

func TestAddConfirmedHoursWithoutServerTotal(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	l := New()
	l.UpsertTimeEntry(model.TimeEntry{ShiftID: "2024-01-10_Bri", Date: "2024-01-10"})
	require.True(t, l.CloseOpenEntry("2024-01-10", now, 3.5))
	l.AddConfirmedHours(3.5)
	assert.Equal(t, 3.5, l.WeekTotal(now))
}

func TestReplaceIsFullReplace(t *testing.T) {
	l := New()
	l.UpsertTimeEntry(model.TimeEntry{ShiftID: "local", Date: "2024-01-10"})
	l.PrependMileage(model.MileageEntry{EntryID: "mileage_1", Date: "2024-01-10", Miles: 3})

	l.Replace(model.History{
		TimeEntries:    []model.TimeEntry{{ShiftID: "srv", Date: "2024-01-09T00:00:00Z"}},
		MileageEntries: []model.MileageEntry{{EntryID: "m-srv", Date: "2024-01-09", Miles: 12}},
	})

	te := l.TimeEntries()
	require.Len(t, te, 1)
	assert.Equal(t, "srv", te[0].ShiftID)
	assert.Equal(t, "2024-01-09", te[0].Date)
	me := l.MileageEntries()
	require.Len(t, me, 1)
	assert.Equal(t, "m-srv", me[0].EntryID)
}

func TestUpsertTimeEntryDeduplicatesByShiftID(t *testing.T) {
	l := New()
	l.UpsertTimeEntry(model.TimeEntry{ShiftID: "2024-01-10_Bri", Date: "2024-01-10", ClockIn: ts("2024-01-10T08:00:00Z")})
	l.UpsertTimeEntry(model.TimeEntry{ShiftID: "2024-01-10_Bri", Date: "2024-01-10", ClockIn: ts("2024-01-10T09:00:00Z")})
	te := l.TimeEntries()
	require.Len(t, te, 1)
	assert.True(t, te[0].ClockIn.Equal(ts("2024-01-10T09:00:00Z")))
}

func TestCloseOpenEntryMatchesByDateNotID(t *testing.T) {
	l := New()
	l.UpsertTimeEntry(model.TimeEntry{ShiftID: "2024-01-09_Bri", Date: "2024-01-09"})
	l.UpsertTimeEntry(model.TimeEntry{ShiftID: "srv-8812", Date: "2024-01-10", ClockIn: ts("2024-01-10T08:00:00Z")})

	out := ts("2024-01-10T16:00:00Z")
	require.True(t, l.CloseOpenEntry("2024-01-10", out, 8))

	te := l.TimeEntries()
	assert.True(t, te[0].Open(), "entry from another day must stay open")
	require.NotNil(t, te[1].ClockOut)
	assert.True(t, te[1].ClockOut.Equal(out))
	assert.Equal(t, 8.0, *te[1].HoursWorked)

	assert.False(t, l.CloseOpenEntry("2024-01-10", out, 1), "closed entries are not matched again")
}

func TestPrependMileage(t *testing.T) {
	l := New()
	l.PrependMileage(model.MileageEntry{EntryID: "a", Date: "2024-01-08"})
	l.PrependMileage(model.MileageEntry{EntryID: "b", Date: "2024-01-09"})
	me := l.MileageEntries()
	require.Len(t, me, 2)
	assert.Equal(t, "b", me[0].EntryID)
}

func TestViewsOrdering(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	l := New()
	l.Replace(model.History{
		TimeEntries: []model.TimeEntry{
			{ShiftID: "x", Date: "2024-01-09"},
			{ShiftID: "y", Date: "2024-01-03"},
			{ShiftID: "z", Date: "2024-01-08"},
			{ShiftID: "w", Date: "2024-01-09"},
		},
		MileageEntries: []model.MileageEntry{
			{EntryID: "m1", Date: "2024-01-08"},
			{EntryID: "m2", Date: "2024-01-02"},
			{EntryID: "m3", Date: "2024-01-10"},
		},
	})

	hist := l.HistoryView()
	assert.Equal(t, []string{"x", "w", "z", "y"}, shiftIDs(hist.TimeEntries))
	assert.Equal(t, []string{"m3", "m1", "m2"}, entryIDs(hist.MileageEntries))

	week := l.WeekView(now)
	assert.Equal(t, []string{"z", "x", "w"}, shiftIDs(week.TimeEntries))
	assert.Equal(t, []string{"m1", "m3"}, entryIDs(week.MileageEntries))

	// Views are derived; the ledger keeps insertion order.
	assert.Equal(t, []string{"x", "y", "z", "w"}, shiftIDs(l.TimeEntries()))
}

func TestApplyEdit(t *testing.T) {
	l := New()
	l.Replace(model.History{
		TimeEntries: []model.TimeEntry{{
			ShiftID:  "2024-01-09_Bri",
			Date:     "2024-01-09",
			ClockIn:  ts("2024-01-09T08:00:00Z"),
			ClockOut: func() *time.Time { t := ts("2024-01-09T16:00:00Z"); return &t }(),
		}},
		WeekTotalHours: hours(8),
	})

	require.NoError(t, l.ApplyEdit("2024-01-09_Bri", FieldClockIn, "2024-01-09T07:00:00Z"))
	e := l.TimeEntries()[0]
	require.NotNil(t, e.HoursWorked)
	assert.Equal(t, 9.0, *e.HoursWorked)
	assert.Equal(t, 9.0, l.WeekTotal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local)))

	require.NoError(t, l.ApplyEdit("2024-01-09_Bri", FieldHoursWorked, "8.5"))
	assert.Equal(t, 8.5, *l.TimeEntries()[0].HoursWorked)

	assert.Error(t, l.ApplyEdit("missing", FieldHoursWorked, "1"))
	assert.Error(t, l.ApplyEdit("2024-01-09_Bri", "mood", "ok"))
	assert.Error(t, l.ApplyEdit("2024-01-09_Bri", FieldClockOut, "yesterday"))
}

func shiftIDs(entries []model.TimeEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ShiftID)
	}
	return out
}

func entryIDs(entries []model.MileageEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.EntryID)
	}
	return out
}
