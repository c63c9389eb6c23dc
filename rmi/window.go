// Package rmi implements the server-side request consumer, dispatcher,
// and the client-side synchronous/asynchronous calling policies that
// compose the RPC messaging engine.
package rmi

import (
	"time"

	"go.rmagent.dev/core/envelope"
)

// ErrWindowMissed is the typed error for a request whose delivery window
// has already closed: `now > begin + duration`. RequestConsumer does not
// return it; it answers such a request with a KindWindowMissed reply.
type ErrWindowMissed struct {
	SN string
}

func (e *ErrWindowMissed) Error() string { return "request window missed" }

// ErrWindowPending is the typed error for a request whose delivery
// window has not opened yet: `now < begin`. RequestConsumer does not
// return it; it enqueues such a request in the pending store instead.
type ErrWindowPending struct {
	SN         string
	EligibleAt time.Time
}

func (e *ErrWindowPending) Error() string { return "request window pending" }

// Eligibility classifies a request's window state relative to now.
type Eligibility int

const (
	// Present means the request is eligible for immediate dispatch.
	Present Eligibility = iota
	// Past means the window has already closed.
	Past
	// Future means the window has not opened yet.
	Future
)

// Evaluate classifies w against now. An absent window is always Present.
// Exactly one of Past/Future/Present holds for any given window.
func Evaluate(w *envelope.Window, now time.Time) Eligibility {
	if w == nil {
		return Present
	}
	begin := time.Unix(w.Begin, 0)
	end := begin.Add(time.Duration(w.Duration) * time.Second)
	switch {
	case now.After(end):
		return Past
	case now.Before(begin):
		return Future
	default:
		return Present
	}
}

// EligibleAt returns the instant at which w's window opens. Meaningless
// unless Evaluate(w, now) == Future.
func EligibleAt(w *envelope.Window) time.Time {
	return time.Unix(w.Begin, 0)
}
