package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/fieldclock/internal/config"
	"github.com/verte-zerg/fieldclock/internal/model"
	"github.com/verte-zerg/fieldclock/internal/store"
	"github.com/verte-zerg/fieldclock/internal/webhook"
)

func validSettings() settings {
	return settings{
		Endpoints: webhook.Endpoints{
			Technicians: "http://x/technicians",
			Clock:       "http://x/clock",
			Status:      "http://x/status",
			Mileage:     "http://x/mileage",
			History:     "http://x/history",
			Edit:        "http://x/edit",
		},
		DebounceWindow: 2 * time.Second,
		SuccessTTL:     3 * time.Second,
		ErrorTTL:       4 * time.Second,
		HistoryDays:    14,
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*settings)
		wantErr string
	}{
		{"valid", func(*settings) {}, ""},
		{"zero debounce", func(s *settings) { s.DebounceWindow = 0 }, "--debounce-ms"},
		{"zero toast", func(s *settings) { s.ErrorTTL = 0 }, "toast"},
		{"too many days", func(s *settings) { s.HistoryDays = 400 }, "--days"},
		{"negative timeout", func(s *settings) { s.Timeout = -time.Second }, "--timeout-ms"},
		{"missing endpoints", func(s *settings) { s.Endpoints.Clock = ""; s.Endpoints.Edit = "" }, "clock, edit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)
			err := validateSettings(s)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveTech(t *testing.T) {
	if got, err := resolveTech(" Nick ", "Bri"); err != nil || got != "Nick" {
		t.Fatalf("flag should win, got %q %v", got, err)
	}
	if got, err := resolveTech("", "Bri"); err != nil || got != "Bri" {
		t.Fatalf("stored tech expected, got %q %v", got, err)
	}
	if _, err := resolveTech("", ""); err == nil {
		t.Fatal("expected error without technician")
	}
}

func TestValidateEdit(t *testing.T) {
	ok := model.EditRequest{ShiftID: "2024-01-10_Bri", Field: "hours_worked", NewValue: "7.5"}
	if err := validateEdit(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	missing := ok
	missing.NewValue = ""
	if err := validateEdit(missing); err == nil {
		t.Fatal("expected error for empty new value")
	}
}

func TestApplyConfigRespectsChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var debounce string
	var days int
	cmd.Flags().StringVar(&debounce, "debounce", "timer", "")
	cmd.Flags().IntVar(&days, "days", 14, "")
	if err := cmd.Flags().Set("days", "7"); err != nil {
		t.Fatal(err)
	}

	fileDebounce := "completion"
	fileDays := 30
	applyStringConfig(cmd, "debounce", &debounce, &fileDebounce)
	applyIntConfig(cmd, "days", &days, &fileDays)
	if debounce != "completion" {
		t.Fatalf("config should fill unchanged flag, got %q", debounce)
	}
	if days != 7 {
		t.Fatalf("changed flag should win, got %d", days)
	}
	applyIntConfig(cmd, "days", &days, nil)
	if days != 7 {
		t.Fatalf("nil config value changed flag")
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var cfg config.FileConfig
	if _, err := toml.Decode(defaultConfigTemplate(), &cfg); err != nil {
		t.Fatalf("template does not decode: %v", err)
	}
	if cfg.Endpoints.BaseURL != nil {
		t.Fatalf("template should leave values commented out")
	}
}

type fakeServer struct {
	mu        sync.Mutex
	clockedIn *time.Time
	clocks    []string
}

func (f *fakeServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.URL.Path {
		case "/status":
			st := model.Status{ClockedIn: f.clockedIn != nil, ClockInTime: f.clockedIn}
			if err := json.NewEncoder(w).Encode(st); err != nil {
				t.Errorf("encode status: %v", err)
			}
		case "/history":
			_, _ = io.WriteString(w, `{"time_entries":[],"mileage_entries":[]}`)
		case "/clock":
			var req struct {
				Action    string `json:"action"`
				Timestamp string `json:"timestamp"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode clock: %v", err)
			}
			f.clocks = append(f.clocks, req.Action)
			if req.Action == string(model.ActionClockIn) {
				at, err := time.Parse(time.RFC3339, req.Timestamp)
				if err != nil {
					t.Errorf("parse timestamp: %v", err)
				}
				f.clockedIn = &at
				_, _ = io.WriteString(w, "Accepted")
				return
			}
			f.clockedIn = nil
			_, _ = io.WriteString(w, `{"success":true,"hours_worked":0}`)
		case "/mileage":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"odometer required"}`)
		default:
			http.NotFound(w, r)
		}
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClockInOutRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	srv := &fakeServer{}
	ts := httptest.NewServer(srv.handler(t))
	t.Cleanup(ts.Close)

	out, err := runCLI(t, "in", "--tech", "Bri", "--base-url", ts.URL)
	if err != nil {
		t.Fatalf("in: %v", err)
	}
	if !strings.HasPrefix(out, "Clocked in at ") {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := runCLI(t, "in", "--base-url", ts.URL); err == nil || !strings.Contains(err.Error(), "already clocked in") {
		t.Fatalf("second clock in should be refused, got %v", err)
	}

	out, err = runCLI(t, "out", "--base-url", ts.URL)
	if err != nil {
		t.Fatalf("out: %v", err)
	}
	if !strings.HasPrefix(out, "Clocked out · ") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Join(srv.clocks, ",") != "clock_in,clock_out" {
		t.Fatalf("unexpected clock calls %v", srv.clocks)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = st.Close() }()
	snap, err := st.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Technician != "Bri" || snap.Clock.ClockedIn {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestMileageFailureExitsNonZero(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	ts := httptest.NewServer((&fakeServer{}).handler(t))
	t.Cleanup(ts.Close)

	_, err := runCLI(t, "mileage", "--tech", "Bri", "--base-url", ts.URL, "--miles", "12.5")
	if err == nil || err.Error() != "odometer required" {
		t.Fatalf("expected server error, got %v", err)
	}
	_, err = runCLI(t, "mileage", "--tech", "Bri", "--base-url", ts.URL, "--miles", "-3")
	if err == nil || !strings.Contains(err.Error(), "non-negative") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
