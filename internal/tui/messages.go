package tui

import (
	"github.com/verte-zerg/fieldclock/internal/model"
	"github.com/verte-zerg/fieldclock/internal/session"
)

type techsLoadedMsg struct {
	techs []model.Technician
	err   error
}

type statusMsg struct {
	ticket session.StatusTicket
	status model.Status
	err    error
}

type historyMsg struct {
	epoch   uint64
	history model.History
	err     error
}

type clockResultMsg struct {
	pending session.Pending
	result  model.ActionResult
}

type mileageResultMsg struct {
	pending session.MileagePending
	result  model.ActionResult
}

type debounceReleaseMsg struct {
	epoch uint64
}

type clearNoticeMsg struct {
	id int
}

type elapsedTickMsg struct {
	gen int
}
