package rmi

import (
	"go.rmagent.dev/core/envelope"
)

// Return is the tagged outcome of a dispatched request: exactly one of
// Succeeded/Failed applies, observable via the predicate methods.
type Return struct {
	ok        bool
	value     any
	kind      Kind
	message   string
	traceback string
}

// Succeeded wraps a handler's return value as a successful Return.
func Succeeded(value any) Return {
	return Return{ok: true, value: value}
}

// Failed wraps an exception kind/message/traceback as a failed Return.
func Failed(kind Kind, message, traceback string) Return {
	return Return{kind: kind, message: message, traceback: traceback}
}

// IsSucceeded reports whether the dispatch produced a value.
func (r Return) IsSucceeded() bool { return r.ok }

// IsFailed reports whether the dispatch produced an exception.
func (r Return) IsFailed() bool { return !r.ok }

// Value returns the handler's return value; meaningless unless IsSucceeded.
func (r Return) Value() any { return r.value }

// Kind returns the failure kind; meaningless unless IsFailed.
func (r Return) Kind() Kind { return r.kind }

// Message returns the failure message; meaningless unless IsFailed.
func (r Return) Message() string { return r.message }

// Traceback returns the serialized failure traceback; meaningless unless
// IsFailed.
func (r Return) Traceback() string { return r.traceback }

// ToResult renders the Return in the envelope.Result wire shape.
func (r Return) ToResult() *envelope.Result {
	if r.ok {
		return &envelope.Result{Retval: r.value}
	}
	return &envelope.Result{
		Exval:   r.message,
		Xmodule: "rmi",
		Xclass:  string(r.kind),
		Xstate:  r.traceback,
	}
}

// FromResult reconstructs a Return from its wire representation, used by
// the client-side Policy to turn a reply's result back into a value or
// a RemoteException.
func FromResult(res *envelope.Result) Return {
	if res == nil {
		return Succeeded(nil)
	}
	if !res.Failed() {
		return Succeeded(res.Retval)
	}
	return Failed(Kind(res.Xclass), res.Exval, res.Xstate)
}
