package amqp

import (
	"crypto/tls"
	"sync"
	"time"

	driver "github.com/rabbitmq/amqp091-go"
	"go.rmagent.dev/core/errors"
)

var errMaxFailedDials = errors.New("broker marked failed after too many dial attempts")

// BrokerDescriptor identifies a broker endpoint and the transport settings
// required to reach it.
type BrokerDescriptor struct {
	URL       string
	Heartbeat time.Duration // zero means the driver's own default
	MaxFailed int           // failed dial attempts before the entry is marked dead
}

// Registry is a process-wide, mutex-guarded mapping from broker URL to a
// shared underlying connection. Two concurrent Open calls for the same URL
// yield the same connection instance; lookup-or-create is atomic.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	conn   *driver.Connection
	failed int
	dead   bool
}

// NewRegistry returns an empty connection registry. Callers construct and
// inject a Registry explicitly; there is no implicit package-level
// singleton, so tests can use independent, disposable registries.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Open resolves the shared connection for desc.URL, dialing it on first
// use. Subsequent calls with the same URL return the existing connection
// as long as it remains open and has not exceeded its failure budget.
func (r *Registry) Open(desc BrokerDescriptor, tlsConf *tls.Config) (*driver.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[desc.URL]
	if ok && e.conn != nil && !e.conn.IsClosed() && !e.dead {
		return e.conn, nil
	}
	if !ok {
		e = &registryEntry{}
		r.entries[desc.URL] = e
	}
	if e.dead {
		return nil, errMaxFailedDials
	}

	conn, err := driver.DialConfig(desc.URL, dialConfig(desc.Heartbeat, tlsConf))
	if err != nil {
		e.failed++
		if desc.MaxFailed > 0 && e.failed >= desc.MaxFailed {
			e.dead = true
		}
		return nil, err
	}
	e.conn = conn
	e.failed = 0
	return conn, nil
}

// Close releases a single URL entry, closing the underlying connection.
// Idempotent and swallows transport errors, matching the session's own
// close semantics.
func (r *Registry) Close(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[url]
	if !ok || e.conn == nil {
		return
	}
	_ = e.conn.Close()
	delete(r.entries, url)
}

// CloseAll releases every entry in the registry. Intended for graceful
// shutdown and for test teardown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for url, e := range r.entries {
		if e.conn != nil {
			_ = e.conn.Close()
		}
		delete(r.entries, url)
	}
}

// Evict drops a registry entry without closing its connection, forcing
// the next Open to dial fresh. Exposed for testing reconnection paths.
func (r *Registry) Evict(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, url)
}
