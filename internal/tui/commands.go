package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/fieldclock/internal/model"
	"github.com/verte-zerg/fieldclock/internal/session"
)

// ElapsedTickInterval is how often the elapsed clock is recomputed while
// clocked in.
const ElapsedTickInterval = 60 * time.Second

func fetchTechnicians(r Remote) tea.Cmd {
	return func() tea.Msg {
		techs, err := r.Technicians(context.Background())
		return techsLoadedMsg{techs: techs, err: err}
	}
}

func fetchStatus(r Remote, tech string, ticket session.StatusTicket) tea.Cmd {
	return func() tea.Msg {
		st, err := r.Status(context.Background(), tech)
		return statusMsg{ticket: ticket, status: st, err: err}
	}
}

func fetchHistory(r Remote, tech string, days int, epoch uint64) tea.Cmd {
	return func() tea.Msg {
		h, err := r.History(context.Background(), tech, days)
		return historyMsg{epoch: epoch, history: h, err: err}
	}
}

func sendClock(r Remote, p session.Pending) tea.Cmd {
	return func() tea.Msg {
		res := r.Clock(context.Background(), p.Technician, p.Action, p.At)
		return clockResultMsg{pending: p, result: res}
	}
}

func sendMileage(r Remote, p session.MileagePending) tea.Cmd {
	return func() tea.Msg {
		res := r.SubmitMileage(context.Background(), p.Command.Request(p.Technician))
		return mileageResultMsg{pending: p, result: res}
	}
}

func releaseDebounceAfter(d time.Duration, epoch uint64) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return debounceReleaseMsg{epoch: epoch}
	})
}

func clearNoticeAfter(d time.Duration, id int) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return clearNoticeMsg{id: id}
	})
}

func elapsedTick(gen int) tea.Cmd {
	return tea.Tick(ElapsedTickInterval, func(_ time.Time) tea.Msg {
		return elapsedTickMsg{gen: gen}
	})
}

// Remote is everything the TUI calls on the webhook client.
type Remote interface {
	session.Remote
	Technicians(ctx context.Context) ([]model.Technician, error)
	Status(ctx context.Context, tech string) (model.Status, error)
	History(ctx context.Context, tech string, days int) (model.History, error)
}

// Store persists the mirrored state.
type Store interface {
	SaveSnapshot(ctx context.Context, snap model.Snapshot) error
	Clear(ctx context.Context) error
}
