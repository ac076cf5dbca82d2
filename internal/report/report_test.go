package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/fieldclock/internal/ledger"
	"github.com/verte-zerg/fieldclock/internal/model"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Date", "Miles", "Description"}
	rows := [][]string{
		{"2024-01-10", "12.5", "Site visit"},
		{"2024-01-09", "3", "Depot"},
	}
	lines := FormatTable(headers, rows, map[int]bool{1: true})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Date        Miles  Description" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "2024-01-10   12.5  Site visit" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "2024-01-09      3  Depot" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableUsesDisplayWidth(t *testing.T) {
	lines := FormatTable([]string{"Name", "X"}, [][]string{{"日本", "1"}, {"ab", "2"}}, nil)
	if lines[1] != "日本  1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "ab    2" {
		t.Fatalf("unexpected narrow row: %q", lines[2])
	}
}

func TestFormatTableEmpty(t *testing.T) {
	if lines := FormatTable(nil, nil, nil); lines != nil {
		t.Fatalf("expected nil, got %v", lines)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdefghij", 5); got != "abcd…" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abc", 5); got != "abc" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abcdef", 0); got != "abcdef" {
		t.Fatalf("Truncate with zero width = %q", got)
	}
}

func TestTimeRows(t *testing.T) {
	in := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	out := time.Date(2024, 1, 10, 15, 15, 0, 0, time.UTC)
	hours := 7.25
	rows := TimeRows([]model.TimeEntry{
		{ShiftID: "2024-01-10_Bri", Date: "2024-01-10", ClockIn: in, ClockOut: &out, HoursWorked: &hours},
		{ShiftID: "2024-01-11_Bri", Date: "2024-01-11", ClockIn: in.AddDate(0, 0, 1)},
	}, time.UTC)
	want := [][]string{
		{"2024-01-10", "8:00 AM", "3:15 PM", "7.25h", "2024-01-10_Bri"},
		{"2024-01-11", "8:00 AM", "open", "-", "2024-01-11_Bri"},
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Fatalf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestWriteHistory(t *testing.T) {
	hours := 8.0
	view := ledger.View{
		TimeEntries: []model.TimeEntry{{ShiftID: "s", Date: "2024-01-09", HoursWorked: &hours}},
	}
	var buf bytes.Buffer
	if err := WriteHistory(&buf, view, 8, 0); err != nil {
		t.Fatalf("WriteHistory: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Time entries", "2024-01-09", "8h", "Mileage\n  none", "Week total: 8h"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusLine(t *testing.T) {
	at := time.Date(2024, 1, 10, 14, 5, 0, 0, time.UTC)
	got := StatusLine("Nick", model.ClockSession{ClockedIn: true, ClockInTime: &at}, "1h 5m", time.UTC)
	if got != "Nick is clocked in since 2:05 PM (1h 5m)" {
		t.Fatalf("StatusLine = %q", got)
	}
	if got := StatusLine("Nick", model.ClockSession{}, "", time.UTC); got != "Nick is clocked out" {
		t.Fatalf("StatusLine = %q", got)
	}
}

func TestTechnicianRows(t *testing.T) {
	rate := 32.5
	miles := 41.0
	rows := TechnicianRows([]model.Technician{{Name: "Bri", HourlyRate: &rate, FixedRouteMiles: &miles}, {Name: "Nick"}})
	if strings.Join(rows[0], "|") != "Bri|32.50|41" {
		t.Fatalf("row = %v", rows[0])
	}
	if strings.Join(rows[1], "|") != "Nick||" {
		t.Fatalf("row = %v", rows[1])
	}
}
