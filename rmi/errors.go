package rmi

import "fmt"

// Kind names the category of a Return.failed/remote exception, carried
// on the wire as envelope.Result.Xclass.
type Kind string

// Error kinds recognized by the engine. See spec §7.
const (
	KindTransportError    Kind = "TransportError"
	KindValidationFailed  Kind = "ValidationFailed"
	KindVersionMismatch   Kind = "VersionMismatch"
	KindWindowMissed      Kind = "WindowMissed"
	KindWindowPending     Kind = "WindowPending"
	KindNotFound          Kind = "NotFound"
	KindHandlerException  Kind = "HandlerException"
	KindRequestTimeout    Kind = "RequestTimeout"
	KindPendingFull       Kind = "PendingFull"
)

// RequestTimeout is raised client-side when a Policy.Synchronous.send
// call doesn't observe the expected phase within its deadline. Index 0
// marks a STARTED-phase timeout, index 1 a FINAL-phase timeout.
type RequestTimeout struct {
	SN    string
	Index int
}

func (e *RequestTimeout) Error() string {
	phase := "started"
	if e.Index == 1 {
		phase = "final"
	}
	return fmt.Sprintf("request %s: timed out waiting for %s", e.SN, phase)
}

// RemoteException is the client-side materialization of a Return.failed
// value received from the server: the remote handler's exception kind,
// message, and serialized traceback.
type RemoteException struct {
	Kind      string
	Message   string
	Traceback string
}

func (e *RemoteException) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
