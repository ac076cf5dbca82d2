package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/verte-zerg/fieldclock/internal/model"
)

// acceptedBody is the plain-text reply some webhook runners send instead of
// JSON when they queue a request.
const acceptedBody = "Accepted"

// FallbackTechnicians is the roster used when the remote roster is unavailable.
func FallbackTechnicians() []model.Technician {
	return []model.Technician{{Name: "Bri"}, {Name: "Nick"}}
}

// DecodeTechnicians accepts either {"technicians":[...]} or a bare array
// and normalizes both to a roster. Entries without a name are dropped.
func DecodeTechnicians(body []byte) ([]model.Technician, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty technicians response")
	}

	var raw []model.Technician
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode technician list: %w", err)
		}
	case '{':
		var wrapped struct {
			Technicians []model.Technician `json:"technicians"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode technicians object: %w", err)
		}
		raw = wrapped.Technicians
	default:
		return nil, fmt.Errorf("unexpected technicians response %q", truncate(trimmed, 40))
	}

	techs := make([]model.Technician, 0, len(raw))
	for _, t := range raw {
		if t.Name == "" {
			continue
		}
		techs = append(techs, t)
	}
	return techs, nil
}

// actionBody is the loose JSON shape of a mutating endpoint reply.
type actionBody struct {
	Success     *bool    `json:"success"`
	ShiftID     string   `json:"shift_id"`
	EntryID     string   `json:"entry_id"`
	HoursWorked *float64 `json:"hours_worked"`
	Error       string   `json:"error"`
	Message     string   `json:"message"`
}

// InterpretActionResponse maps a mutating endpoint reply to an ActionResult.
//
// Non-2xx is a failure. Within 2xx, the literal body "Accepted", an empty
// body, or HTTP 200 is success regardless of content; a body that does not
// parse as JSON is also success. Otherwise the JSON success flag decides,
// defaulting to true when absent. Any shift_id, entry_id and hours_worked in
// a parseable body are carried over.
func InterpretActionResponse(status int, body []byte) model.ActionResult {
	trimmed := bytes.TrimSpace(body)

	var parsed actionBody
	parseErr := json.Unmarshal(trimmed, &parsed)
	if len(trimmed) == 0 {
		parseErr = fmt.Errorf("empty body")
	}

	if !isSuccessStatus(status) {
		msg := fmt.Sprintf("HTTP %d", status)
		if parseErr == nil {
			if parsed.Error != "" {
				msg = parsed.Error
			} else if parsed.Message != "" {
				msg = parsed.Message
			}
		}
		return model.ActionResult{Success: false, Error: msg}
	}

	if string(trimmed) == acceptedBody || parseErr != nil {
		return model.ActionResult{Success: true}
	}

	res := model.ActionResult{
		Success:     true,
		ShiftID:     parsed.ShiftID,
		EntryID:     parsed.EntryID,
		HoursWorked: parsed.HoursWorked,
	}
	if status != http.StatusOK && parsed.Success != nil && !*parsed.Success {
		res.Success = false
		res.Error = parsed.Error
	}
	return res
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
