package amqp

import (
	"crypto/tls"
	"time"

	xlog "go.rmagent.dev/core/log"
)

// Option instances are used to adjust the settings of a new
// session (publisher or consumer) at creation time.
type Option func(*session) error

// WithLogger sets the logging handler to use. If not provided, a
// no-op (discard) logger is used by default.
func WithLogger(ll xlog.Logger) Option {
	return func(s *session) error {
		s.log = ll
		return nil
	}
}

// WithName sets an identifier for the session instance. If not provided,
// publishers are automatically named as "publisher-*" and consumers as
// "consumer-*".
func WithName(name string) Option {
	return func(s *session) error {
		s.name = name
		return nil
	}
}

// WithPrefetch adjusts how many messages/bytes the server will try to
// keep on the network for consumers before receiving delivery acks.
// A "count" of zero means "no specific limit", which allows the
// server to send as many messages as allowed by "size" or as fast as
// network allows.
func WithPrefetch(count, size int) Option {
	return func(s *session) error {
		s.prefetchCount = count
		s.prefetchSize = size
		return nil
	}
}

// WithTopology sets the exchanges, queues and bindings expected to be
// present in the broker server used by the session instance. Missing
// entities will automatically be created.
func WithTopology(tp Topology) Option {
	return func(s *session) error {
		s.topology = tp
		return nil
	}
}

// WithTLS provides custom transport security settings when connecting
// to the broker server through an "amqps" endpoint.
func WithTLS(conf *tls.Config) Option {
	return func(s *session) error {
		s.tlsConf = conf
		return nil
	}
}

// WithRegistry routes connection establishment through a shared Registry,
// so every session pointed at the same broker URL reuses a single
// underlying connection instead of dialing its own.
func WithRegistry(r *Registry) Option {
	return func(s *session) error {
		s.registry = r
		return nil
	}
}

// WithHeartbeat sets the AMQP heartbeat interval negotiated with the
// broker on connect (§4.2 "set heartbeat (seconds, default 10)"). Zero
// leaves the driver's own default in effect.
func WithHeartbeat(d time.Duration) Option {
	return func(s *session) error {
		s.heartbeat = d
		return nil
	}
}

// WithMaxFailedDials bounds how many consecutive failed dial attempts a
// shared registry connection tolerates before it is marked dead and
// further session() calls fail loudly instead of retrying (§4.2). Only
// takes effect when the session also uses WithRegistry; zero means
// unbounded.
func WithMaxFailedDials(n int) Option {
	return func(s *session) error {
		s.maxFailed = n
		return nil
	}
}
