// Package envelope defines the canonical message structure exchanged between
// agents and requesters, and its self-delimiting textual wire encoding.
package envelope

import "github.com/google/uuid"

// Window declares a delivery-eligibility interval for a request. A request
// carrying a window is only dispatched once `now` falls within
// `[begin, begin+duration]` (both ends inclusive); absent entirely, a
// request is always eligible.
type Window struct {
	Begin    int64 `json:"begin" yaml:"begin"`       // unix seconds
	Duration int64 `json:"duration" yaml:"duration"` // seconds
}

// Request carries the payload of an outbound call: the target class (if
// any), method name, and positional/keyword arguments.
type Request struct {
	ClassName string         `json:"classname,omitempty"`
	Method    string         `json:"method"`
	Args      []any          `json:"args,omitempty"`
	Kws       map[string]any `json:"kws,omitempty"`
}

// Result carries the outcome of a dispatched request: either a return
// value, or a structured exception description. The two are mutually
// exclusive; `Failed` reports which case applies.
type Result struct {
	// Retval holds the handler's return value on success.
	Retval any `json:"retval,omitempty"`

	// Exval holds the human-readable exception message of a failure.
	Exval string `json:"exval,omitempty"`

	// Xmodule/Xclass locate the exception kind, e.g. "builtins"/"ValueError"
	// or a domain-specific kind such as "RequestTimeout". A non-empty Xclass
	// marks this result as a failure.
	Xmodule string `json:"xmodule,omitempty"`
	Xclass  string `json:"xclass,omitempty"`

	// Xstate carries a serialized traceback/stack trace for diagnostics.
	Xstate string `json:"xstate,omitempty"`

	// Xargs carries structured exception arguments, used by synthetic
	// errors like RequestTimeout(sn, index).
	Xargs []any `json:"xargs,omitempty"`
}

// Failed reports whether this result represents a handler/remote exception.
func (r *Result) Failed() bool {
	return r != nil && r.Xclass != ""
}

// Envelope is the canonical message unit exchanged over the broker. Fields
// beyond the ones recognized here round-trip unchanged through Extra.
type Envelope struct {
	Version string         `json:"version"`
	SN      string         `json:"sn"`
	Any     any            `json:"any,omitempty"`
	ReplyTo string         `json:"replyto,omitempty"`
	Request *Request       `json:"request,omitempty"`
	Result  *Result        `json:"result,omitempty"`
	Status  string         `json:"status,omitempty"`
	Window  *Window        `json:"window,omitempty"`
	TTL     int64          `json:"ttl,omitempty"`
	Subject string         `json:"subject,omitempty"`
	Extra   map[string]any `json:"-"`
}

// ProtocolVersion is the protocol tag emitted by this implementation and
// the only value the dispatcher accepts on inbound envelopes.
const ProtocolVersion = "1.0"

// New returns an envelope with a freshly generated serial number and the
// running protocol version set. The `sn` is assigned exactly once here and
// MUST never be rewritten afterward.
func New() *Envelope {
	return &Envelope{
		Version: ProtocolVersion,
		SN:      uuid.NewString(),
	}
}

// Reply builds a response envelope carrying the same `sn` as the original
// request, per the invariant that replies echo the originating serial
// number verbatim.
func (e *Envelope) Reply() *Envelope {
	return &Envelope{
		Version: ProtocolVersion,
		SN:      e.SN,
		Any:     e.Any,
	}
}
