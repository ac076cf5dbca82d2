package session

import "time"

// Notice lifetimes.
const (
	SuccessNoticeTTL = 3000 * time.Millisecond
	ErrorNoticeTTL   = 4000 * time.Millisecond
)

// NoticeKind distinguishes success toasts from error toasts.
type NoticeKind int

// Notice kinds.
const (
	NoticeNone NoticeKind = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient, auto-dismissing message for the user.
type Notice struct {
	Kind NoticeKind
	Text string
	TTL  time.Duration
}

// Empty reports whether there is nothing to show.
func (n Notice) Empty() bool {
	return n.Kind == NoticeNone
}

func successNotice(text string) Notice {
	return Notice{Kind: NoticeSuccess, Text: text, TTL: SuccessNoticeTTL}
}

func errorNotice(msg, fallback string) Notice {
	if msg == "" {
		msg = fallback
	}
	return Notice{Kind: NoticeError, Text: msg, TTL: ErrorNoticeTTL}
}
