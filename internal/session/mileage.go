package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/fieldclock/internal/model"
	"github.com/verte-zerg/fieldclock/internal/timecalc"
)

// ErrInvalidMiles is returned for miles that are not a finite, non-negative
// number.
var ErrInvalidMiles = errors.New("miles must be a finite, non-negative number")

// MileageCommand is a validated mileage submission.
type MileageCommand struct {
	Date        string
	Miles       float64
	Description string
}

// NewMileageCommand parses and validates user input. Invalid miles are
// rejected here rather than sent to the server.
func NewMileageCommand(date, miles, description string) (MileageCommand, error) {
	date = strings.TrimSpace(date)
	if _, err := timecalc.ParseDay(date, time.Local); err != nil {
		return MileageCommand{}, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(miles), 64)
	if err != nil {
		return MileageCommand{}, fmt.Errorf("%w: %q", ErrInvalidMiles, miles)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return MileageCommand{}, fmt.Errorf("%w: %q", ErrInvalidMiles, miles)
	}
	return MileageCommand{
		Date:        date,
		Miles:       v,
		Description: strings.TrimSpace(description),
	}, nil
}

// Request builds the remote payload for tech.
func (c MileageCommand) Request(tech string) model.MileageRequest {
	return model.MileageRequest{
		TechName:    tech,
		Date:        c.Date,
		Miles:       c.Miles,
		Description: c.Description,
	}
}

// MileagePending is a submitted mileage entry awaiting its remote result.
type MileagePending struct {
	Command     MileageCommand
	Technician  string
	SubmittedAt time.Time

	epoch uint64
}

// BeginMileage records a submission. The ledger is only touched once the
// server confirms it.
func (m *Manager) BeginMileage(cmd MileageCommand, now time.Time) MileagePending {
	return MileagePending{Command: cmd, Technician: m.tech, SubmittedAt: now, epoch: m.epoch}
}

// FinishMileage reconciles a mileage result, prepending the entry on
// success. On failure the ledger is left untouched.
func (m *Manager) FinishMileage(p MileagePending, res model.ActionResult) (Notice, bool) {
	if p.epoch != m.epoch {
		return Notice{}, false
	}
	if !res.Success {
		return errorNotice(res.Error, "Failed to log mileage"), true
	}
	id := res.EntryID
	if id == "" {
		id = fmt.Sprintf("mileage_%d", p.SubmittedAt.UnixMilli())
	}
	m.ledger.PrependMileage(model.MileageEntry{
		EntryID:     id,
		Date:        p.Command.Date,
		Miles:       p.Command.Miles,
		Description: p.Command.Description,
	})
	return successNotice(fmt.Sprintf("Logged %s mi", strconv.FormatFloat(p.Command.Miles, 'f', -1, 64))), true
}

// SubmitMileage runs a whole mileage submission against r.
func (m *Manager) SubmitMileage(ctx context.Context, r Remote, cmd MileageCommand, now time.Time) Notice {
	p := m.BeginMileage(cmd, now)
	n, _ := m.FinishMileage(p, r.SubmitMileage(ctx, cmd.Request(p.Technician)))
	return n
}

// EditEntry sends a correction for one field of a shift and, once the
// server accepts it, applies it to the ledger. Fields the ledger does not
// model are left for the next history load.
func (m *Manager) EditEntry(ctx context.Context, r Remote, req model.EditRequest) Notice {
	req.TechName = m.tech
	res := r.EditEntry(ctx, req)
	if !res.Success {
		return errorNotice(res.Error, "Failed to edit entry")
	}
	if err := m.ledger.ApplyEdit(req.ShiftID, req.Field, req.NewValue); err != nil {
		return successNotice("Edit submitted; refresh history to see it")
	}
	return successNotice("Entry updated")
}
