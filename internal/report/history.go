package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/fieldclock/internal/ledger"
	"github.com/verte-zerg/fieldclock/internal/model"
	"github.com/verte-zerg/fieldclock/internal/timecalc"
)

const clockLayout = "3:04 PM"

// Column headers shared by the CLI and the TUI tables.
var (
	TimeHeaders    = []string{"Date", "In", "Out", "Hours", "Shift"}
	MileageHeaders = []string{"Date", "Miles", "Description"}
)

// TimeRows formats time entries in the order given. Clock times are shown in
// loc.
func TimeRows(entries []model.TimeEntry, loc *time.Location) [][]string {
	if loc == nil {
		loc = time.Local
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		out := "open"
		if e.ClockOut != nil {
			out = e.ClockOut.In(loc).Format(clockLayout)
		}
		hours := "-"
		if e.HoursWorked != nil {
			hours = timecalc.FormatHours(*e.HoursWorked)
		}
		in := ""
		if !e.ClockIn.IsZero() {
			in = e.ClockIn.In(loc).Format(clockLayout)
		}
		rows = append(rows, []string{e.Date, in, out, hours, e.ShiftID})
	}
	return rows
}

// MileageRows formats mileage entries in the order given.
func MileageRows(entries []model.MileageEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Date, FormatMiles(e.Miles), e.Description})
	}
	return rows
}

// FormatMiles renders miles without trailing zeros.
func FormatMiles(miles float64) string {
	return strconv.FormatFloat(miles, 'f', -1, 64)
}

// WriteHistory writes the time and mileage tables followed by the week
// total. Lines wider than width are truncated; a non-positive width
// disables truncation.
func WriteHistory(w io.Writer, view ledger.View, weekTotal float64, width int) error {
	var lines []string
	lines = append(lines, "Time entries")
	if len(view.TimeEntries) == 0 {
		lines = append(lines, "  none")
	} else {
		for _, l := range FormatTable(TimeHeaders, TimeRows(view.TimeEntries, time.Local), map[int]bool{3: true}) {
			lines = append(lines, "  "+l)
		}
	}
	lines = append(lines, "", "Mileage")
	if len(view.MileageEntries) == 0 {
		lines = append(lines, "  none")
	} else {
		for _, l := range FormatTable(MileageHeaders, MileageRows(view.MileageEntries), map[int]bool{1: true}) {
			lines = append(lines, "  "+l)
		}
	}
	lines = append(lines, "", fmt.Sprintf("Week total: %s", timecalc.FormatHours(weekTotal)))

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, Truncate(line, width)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// StatusLine summarizes the clock session of tech.
func StatusLine(tech string, clock model.ClockSession, elapsed string, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	if !clock.ClockedIn || clock.ClockInTime == nil {
		return fmt.Sprintf("%s is clocked out", tech)
	}
	parts := []string{fmt.Sprintf("%s is clocked in since %s", tech, clock.ClockInTime.In(loc).Format(clockLayout))}
	if elapsed != "" {
		parts = append(parts, "("+elapsed+")")
	}
	return strings.Join(parts, " ")
}

// TechnicianRows formats the roster.
func TechnicianRows(techs []model.Technician) [][]string {
	rows := make([][]string, 0, len(techs))
	for _, t := range techs {
		rate := ""
		if t.HourlyRate != nil {
			rate = strconv.FormatFloat(*t.HourlyRate, 'f', 2, 64)
		}
		route := ""
		if t.FixedRouteMiles != nil {
			route = FormatMiles(*t.FixedRouteMiles)
		}
		rows = append(rows, []string{t.Name, rate, route})
	}
	return rows
}
