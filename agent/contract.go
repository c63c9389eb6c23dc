// Package agent composes the RPC messaging engine (rmi, pending, amqp,
// messaging) with the external collaborators named in the core's design
// as "out of scope": daemonization, identity, the plugin loader, and the
// recurring-action scheduler. Each is a minimal, documented contract;
// cmd/rmagentd supplies the real implementations.
package agent

import "time"

// Lock guards against more than one instance of the agent running at
// once — the daemon lock / PID file collaborator. Acquire returns an
// error if another instance already holds the lock.
type Lock interface {
	Acquire() error
	Release() error
}

// Identity supplies the agent's UUID, used both as the inbound queue
// name and as correlation metadata. UUID may return "" before the
// identity provider has one ready; the core polls until it doesn't.
type Identity interface {
	UUID() (string, error)
}

// Action pairs a callable with the interval the scheduler should invoke
// it at, as registered by the plugin loader's `register_action`.
type Action struct {
	Name     string
	Interval time.Duration
	Run      func() error
}

// Actions is a read-only accessor over the recurring actions registered
// by the plugin loader.
type Actions interface {
	List() []Action
}

// RemoteFunctions is a read-only accessor over the classes/functions
// registered by the plugin loader via `register_remote`, consumed by the
// Dispatcher at startup.
type RemoteFunctions interface {
	// Classes maps a class name to an instance whose exported methods
	// (matching the Dispatcher's Handler signature) become dispatch
	// targets.
	Classes() map[string]any

	// Functions maps a bare function name to its Handler.
	Functions() map[string]func(args []any, kws map[string]any) (any, error)
}
