// Package webhook is the HTTP client for the remote time-tracking endpoints.
//
// Reads (technicians, status, history) never fail from the caller's point of
// view: they return a safe default alongside the error so callers can log it
// and carry on. Writes (clock, mileage, edit) collapse every failure into an
// ActionResult with Success false.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/fieldclock/internal/model"
)

// ConnectError is the message reported when an endpoint cannot be reached.
const ConnectError = "Failed to connect to server"

// DefaultHistoryDays is the history window requested when none is given.
const DefaultHistoryDays = 14

// Endpoints holds the URL of each remote endpoint.
type Endpoints struct {
	Technicians string
	Clock       string
	Status      string
	Mileage     string
	History     string
	Edit        string
}

// Client calls the remote endpoints.
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the given endpoints. No timeout is applied
// beyond the transport default unless an http.Client with one is supplied.
func New(endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		endpoints:  endpoints,
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Technicians fetches the roster. On any failure, or an empty roster, it
// returns FallbackTechnicians together with the error (nil for an empty
// roster).
func (c *Client) Technicians(ctx context.Context) ([]model.Technician, error) {
	status, body, err := c.get(ctx, c.endpoints.Technicians, nil)
	if err != nil {
		return FallbackTechnicians(), err
	}
	if !isSuccessStatus(status) {
		return FallbackTechnicians(), fmt.Errorf("technicians endpoint returned HTTP %d", status)
	}
	techs, err := DecodeTechnicians(body)
	if err != nil {
		return FallbackTechnicians(), err
	}
	if len(techs) == 0 {
		return FallbackTechnicians(), nil
	}
	return techs, nil
}

// Status fetches the clock status of tech. On failure it returns a
// clocked-out status together with the error.
func (c *Client) Status(ctx context.Context, tech string) (model.Status, error) {
	status, body, err := c.get(ctx, c.endpoints.Status, url.Values{"tech_name": {tech}})
	if err != nil {
		return model.Status{}, err
	}
	if !isSuccessStatus(status) {
		return model.Status{}, fmt.Errorf("status endpoint returned HTTP %d", status)
	}
	var st model.Status
	if err := json.Unmarshal(body, &st); err != nil {
		return model.Status{}, fmt.Errorf("failed to decode status: %w", err)
	}
	if !st.ClockedIn {
		st.ClockInTime = nil
	}
	return st, nil
}

// History fetches the last days of entries for tech. A non-positive days
// uses DefaultHistoryDays. On failure it returns an empty History together
// with the error.
func (c *Client) History(ctx context.Context, tech string, days int) (model.History, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	query := url.Values{"tech_name": {tech}, "days": {strconv.Itoa(days)}}
	status, body, err := c.get(ctx, c.endpoints.History, query)
	if err != nil {
		return model.History{}, err
	}
	if !isSuccessStatus(status) {
		return model.History{}, fmt.Errorf("history endpoint returned HTTP %d", status)
	}
	var h model.History
	if err := json.Unmarshal(body, &h); err != nil {
		return model.History{}, fmt.Errorf("failed to decode history: %w", err)
	}
	return h, nil
}

type clockRequest struct {
	TechName  string            `json:"tech_name"`
	Action    model.ClockAction `json:"action"`
	Timestamp string            `json:"timestamp"`
}

// Clock posts a clock-in or clock-out for tech at the given time.
func (c *Client) Clock(ctx context.Context, tech string, action model.ClockAction, at time.Time) model.ActionResult {
	return c.post(ctx, c.endpoints.Clock, clockRequest{
		TechName:  tech,
		Action:    action,
		Timestamp: at.Format(time.RFC3339),
	})
}

// SubmitMileage posts a mileage entry.
func (c *Client) SubmitMileage(ctx context.Context, req model.MileageRequest) model.ActionResult {
	return c.post(ctx, c.endpoints.Mileage, req)
}

// EditEntry posts a correction to an existing shift.
func (c *Client) EditEntry(ctx context.Context, req model.EditRequest) model.ActionResult {
	return c.post(ctx, c.endpoints.Edit, req)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (int, []byte, error) {
	if endpoint == "" {
		return 0, nil, fmt.Errorf("endpoint not configured")
	}
	u := endpoint
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) model.ActionResult {
	if endpoint == "" {
		return model.ActionResult{Success: false, Error: "Endpoint not configured"}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return model.ActionResult{Success: false, Error: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return model.ActionResult{Success: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	status, body, err := c.do(req)
	if err != nil {
		return model.ActionResult{Success: false, Error: ConnectError}
	}
	res := InterpretActionResponse(status, body)
	if !res.Success {
		c.logger.Warn("remote action rejected",
			"endpoint", endpoint,
			"status", status,
			"request_id", req.Header.Get("X-Request-Id"),
			"error", res.Error)
	}
	return res
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", req.Method, "url", req.URL.Redacted(), "error", err)
		return 0, nil, fmt.Errorf("request to %s failed: %w", req.URL.Redacted(), err)
	}
	body, err := io.ReadAll(resp.Body)
	if cerr := resp.Body.Close(); cerr != nil {
		// Best-effort body close.
		_ = cerr
	}
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}
	c.logger.Debug("request done",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"status", resp.StatusCode,
		"elapsed", time.Since(start))
	return resp.StatusCode, body, nil
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
