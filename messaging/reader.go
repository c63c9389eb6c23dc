package messaging

import (
	"encoding/base64"
	"sync"
	"time"

	"go.rmagent.dev/core/amqp"
	"go.rmagent.dev/core/auth"
	"go.rmagent.dev/core/envelope"
	"go.rmagent.dev/core/errors"
	xlog "go.rmagent.dev/core/log"
)

// transportBackoff is how long Get backs off after a non-Empty transport
// error before reporting "nothing available", per the reader's failure
// semantics: transient errors are logged and absorbed, not propagated to
// every caller on every tick.
const transportBackoff = 10 * time.Second

// Reader fetches envelopes from a single queue. Opening the underlying
// subscription is idempotent: concurrent opens coalesce onto one
// subscription, guarded by mu.
type Reader struct {
	endpoint
	con     *amqp.Consumer
	queue   string
	mu      sync.Mutex
	opened  bool
	sub     string
	deliver <-chan amqp.Delivery
}

// NewReader opens a consumer connection to addr for later use against a
// specific queue via Open.
func NewReader(addr string, signer auth.Signer, log xlog.Logger, options ...amqp.Option) (*Reader, error) {
	c, err := amqp.NewConsumer(addr, options...)
	if err != nil {
		return nil, err
	}
	return &Reader{endpoint: endpoint{signer: signer, log: log}, con: c}, nil
}

// Open subscribes to queue, if not already subscribed. Safe to call from
// multiple goroutines; only the first call opens a subscription.
func (r *Reader) Open(queue string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opened {
		return nil
	}
	dc, id, err := r.con.Subscribe(amqp.SubscribeOptions{Queue: queue})
	if err != nil {
		return err
	}
	r.queue = queue
	r.sub = id
	r.deliver = dc
	r.opened = true
	return nil
}

// Get performs a single blocking fetch with the given timeout. An empty
// result (nothing available within timeout) returns ok=false without an
// error. Validation is the caller's concern at this layer; Get returns
// the raw delivery.
func (r *Reader) Get(timeout time.Duration) (amqp.Delivery, bool, error) {
	select {
	case d, ok := <-r.deliver:
		if !ok {
			<-time.After(transportBackoff)
			return amqp.Delivery{}, false, nil
		}
		return d, true, nil
	case <-time.After(timeout):
		return amqp.Delivery{}, false, nil
	}
}

// Next fetches and decodes the next envelope, verifying its signature
// when a signer is configured. It returns the envelope and a bound ack
// callback for the caller to invoke once processing completes.
func (r *Reader) Next(timeout time.Duration) (*envelope.Envelope, func() error, error) {
	d, ok, err := r.Get(timeout)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, nil
	}

	if r.signer != nil {
		sigB64, _ := d.Headers["x-signature"].(string)
		sig, decErr := base64.StdEncoding.DecodeString(sigB64)
		if decErr != nil || !r.signer.Verify(d.Body, sig) {
			_ = d.Ack(false)
			return nil, nil, errors.New("envelope signature validation failed")
		}
	}

	e, err := envelope.Decode(d.Body)
	if err != nil {
		_ = d.Ack(false)
		return nil, nil, errors.Wrap(err, "malformed envelope")
	}
	return e, func() error { return d.Ack(false) }, nil
}

// Search repeatedly reads and acks envelopes, discarding those whose sn
// does not match and returning the first match (already acked) or nil on
// timeout. Correct only
// when the queue is consumed by a single client at a time, which is why
// synchronous reply queues are per-call and async reply queues are keyed
// by a single ctag/reader pair.
func (r *Reader) Search(sn string, timeout time.Duration) (*envelope.Envelope, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		e, ack, err := r.Next(remaining)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, nil
		}
		if ack != nil {
			_ = ack()
		}
		if e.SN != sn {
			continue
		}
		return e, nil
	}
}

// Close cancels the subscription, if any, and releases the underlying
// consumer connection.
func (r *Reader) Close() error {
	r.mu.Lock()
	sub := r.sub
	opened := r.opened
	r.mu.Unlock()
	if opened {
		_ = r.con.CloseSubscription(sub)
	}
	return r.con.Close()
}
