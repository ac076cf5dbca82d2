package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/fieldclock/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Endpoints{
		Technicians: srv.URL + "/techs",
		Clock:       srv.URL + "/clock",
		Status:      srv.URL + "/status",
		Mileage:     srv.URL + "/mileage",
		History:     srv.URL + "/history",
		Edit:        srv.URL + "/edit",
	}, WithHTTPClient(srv.Client()))
}

func TestInterpretActionResponse(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		success bool
		shiftID string
		errMsg  string
	}{
		{"accepted sentinel", 200, "Accepted", true, "", ""},
		{"accepted on 202", 202, "Accepted", true, "", ""},
		{"empty body", 204, "", true, "", ""},
		{"plain text on 201", 201, "queued for processing", true, "", ""},
		{"json with shift id", 200, `{"success":true,"shift_id":"2024-01-10_Bri"}`, true, "2024-01-10_Bri", ""},
		{"200 wins over json flag", 200, `{"success":false,"error":"nope"}`, true, "", ""},
		{"json failure on 201", 201, `{"success":false,"error":"duplicate shift"}`, false, "", "duplicate shift"},
		{"json without flag", 201, `{"entry_id":"M-1"}`, true, "", ""},
		{"server error json", 500, `{"error":"sheet locked"}`, false, "", "sheet locked"},
		{"server error text", 502, "Bad Gateway", false, "", "HTTP 502"},
		{"not found empty", 404, "", false, "", "HTTP 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := InterpretActionResponse(tt.status, []byte(tt.body))
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.shiftID, res.ShiftID)
			assert.Equal(t, tt.errMsg, res.Error)
		})
	}
}

func TestDecodeTechnicians(t *testing.T) {
	wrapped, err := DecodeTechnicians([]byte(`{"technicians":[{"name":"Bri","hourly_rate":32.5},{"name":"Nick","fixed_route_miles":41}]}`))
	require.NoError(t, err)
	require.Len(t, wrapped, 2)
	assert.Equal(t, "Bri", wrapped[0].Name)
	require.NotNil(t, wrapped[0].HourlyRate)
	assert.Equal(t, 32.5, *wrapped[0].HourlyRate)
	require.NotNil(t, wrapped[1].FixedRouteMiles)

	bare, err := DecodeTechnicians([]byte(` [{"name":"Sam"},{"name":""}]`))
	require.NoError(t, err)
	assert.Equal(t, []model.Technician{{Name: "Sam"}}, bare)

	_, err = DecodeTechnicians([]byte(`"Bri,Nick"`))
	assert.Error(t, err)
	_, err = DecodeTechnicians(nil)
	assert.Error(t, err)
}

func TestTechniciansFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	techs, err := c.Technicians(context.Background())
	assert.Error(t, err)
	assert.Equal(t, FallbackTechnicians(), techs)

	c = newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"technicians":[]}`)
	})
	techs, err = c.Technicians(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, FallbackTechnicians(), techs)
}

func TestClockPostsPayload(t *testing.T) {
	var got clockRequest
	var requestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/clock", r.URL.Path)
		requestID = r.Header.Get("X-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, "Accepted")
	})

	at := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	res := c.Clock(context.Background(), "Bri", model.ActionClockIn, at)

	assert.True(t, res.Success)
	assert.Equal(t, "Bri", got.TechName)
	assert.Equal(t, model.ActionClockIn, got.Action)
	assert.Equal(t, "2024-01-10T08:00:00Z", got.Timestamp)
	assert.NotEmpty(t, requestID)
}

func TestClockNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Endpoints{Clock: url + "/clock"})
	res := c.Clock(context.Background(), "Bri", model.ActionClockOut, time.Now())
	assert.False(t, res.Success)
	assert.Equal(t, ConnectError, res.Error)
}

func TestClockOutHoursFromServer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"hours_worked":7.75}`)
	})
	res := c.Clock(context.Background(), "Bri", model.ActionClockOut, time.Now())
	require.True(t, res.Success)
	require.NotNil(t, res.HoursWorked)
	assert.Equal(t, 7.75, *res.HoursWorked)
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Nick", r.URL.Query().Get("tech_name"))
		_, _ = io.WriteString(w, `{"clocked_in":true,"clock_in_time":"2024-01-10T08:00:00Z","elapsed_minutes":95}`)
	})
	st, err := c.Status(context.Background(), "Nick")
	require.NoError(t, err)
	assert.True(t, st.ClockedIn)
	require.NotNil(t, st.ClockInTime)
	assert.True(t, st.ClockInTime.Equal(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)))
}

func TestStatusDegradesToClockedOut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>maintenance</html>")
	})
	st, err := c.Status(context.Background(), "Nick")
	assert.Error(t, err)
	assert.Equal(t, model.Status{}, st)
}

func TestHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bri", r.URL.Query().Get("tech_name"))
		assert.Equal(t, "14", r.URL.Query().Get("days"))
		_, _ = io.WriteString(w, `{
			"time_entries":[{"shift_id":"2024-01-09_Bri","date":"2024-01-09","clock_in":"2024-01-09T08:00:00Z","clock_out":"2024-01-09T16:00:00Z","hours_worked":8}],
			"mileage_entries":[{"entry_id":"M-1","date":"2024-01-09","miles":12.5,"description":"Site visit"}],
			"week_total_hours":8
		}`)
	})
	h, err := c.History(context.Background(), "Bri", 0)
	require.NoError(t, err)
	require.Len(t, h.TimeEntries, 1)
	require.Len(t, h.MileageEntries, 1)
	require.NotNil(t, h.WeekTotalHours)
	assert.Equal(t, 8.0, *h.WeekTotalHours)
	assert.Equal(t, 12.5, h.MileageEntries[0].Miles)
}

func TestHistoryDegradesToEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	h, err := c.History(context.Background(), "Bri", 7)
	assert.Error(t, err)
	assert.Empty(t, h.TimeEntries)
	assert.Nil(t, h.WeekTotalHours)
}

func TestMileageAndEdit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mileage":
			var req model.MileageRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 12.5, req.Miles)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"success":true,"entry_id":"M-9"}`)
		case "/edit":
			var req model.EditRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "hours_worked", req.Field)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false,"error":"reason required"}`)
		}
	})

	res := c.SubmitMileage(context.Background(), model.MileageRequest{TechName: "Bri", Date: "2024-01-10", Miles: 12.5})
	assert.True(t, res.Success)
	assert.Equal(t, "M-9", res.EntryID)

	res = c.EditEntry(context.Background(), model.EditRequest{TechName: "Bri", ShiftID: "x", Field: "hours_worked"})
	assert.False(t, res.Success)
	assert.Equal(t, "reason required", res.Error)
}

func TestUnconfiguredEndpoint(t *testing.T) {
	c := New(Endpoints{})
	res := c.SubmitMileage(context.Background(), model.MileageRequest{})
	assert.False(t, res.Success)
	techs, err := c.Technicians(context.Background())
	assert.Error(t, err)
	assert.Len(t, techs, 2)
}
