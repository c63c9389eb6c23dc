package rmi

import (
	"go.rmagent.dev/core/amqp"
	"go.rmagent.dev/core/auth"
	"go.rmagent.dev/core/envelope"
	xlog "go.rmagent.dev/core/log"
	"go.rmagent.dev/core/messaging"
)

// Asynchronous sends requests and correlates their replies by sn on a
// reply queue shared across calls, rather than blocking for them. A
// Watchdog, when configured, surfaces timeouts as synthetic replies on
// the same queue.
type Asynchronous struct {
	addr     string
	signer   auth.Signer
	log      xlog.Logger
	options  []amqp.Option
	ctag     string
	timeout  Timeout
	watchdog *Watchdog

	producer *messaging.Producer
	reader   *messaging.Reader
	replies  chan *envelope.Envelope
	stop     chan struct{}
	done     chan struct{}
}

// NewAsynchronous builds an Asynchronous policy. ctag, when non-empty,
// names the shared reply queue this policy consumes and registers
// requests against with watchdog (also optional); replies arriving on
// that queue are both handed to watchdog.Notify and published on
// Replies().
func NewAsynchronous(addr string, signer auth.Signer, log xlog.Logger, ctag string, timeout Timeout, watchdog *Watchdog, options ...amqp.Option) (*Asynchronous, error) {
	if log == nil {
		log = xlog.Discard()
	}
	producer, err := messaging.NewProducer(addr, signer, log, options...)
	if err != nil {
		return nil, err
	}

	a := &Asynchronous{
		addr:     addr,
		signer:   signer,
		log:      log,
		options:  options,
		ctag:     ctag,
		timeout:  timeout,
		watchdog: watchdog,
		producer: producer,
		replies:  make(chan *envelope.Envelope, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if ctag != "" {
		reader, err := messaging.NewReader(addr, signer, log, append(append([]amqp.Option{}, options...),
			amqp.WithTopology(amqp.Topology{Queues: []amqp.Queue{{Name: ctag, Durable: true}}}))...)
		if err != nil {
			producer.Close()
			return nil, err
		}
		if err := reader.Open(ctag); err != nil {
			producer.Close()
			return nil, err
		}
		a.reader = reader
		go a.observeLoop()
	} else {
		close(a.done)
	}
	return a, nil
}

// Replies returns the channel replies observed on the ctag queue are
// delivered on, after being forwarded to the watchdog.
func (a *Asynchronous) Replies() <-chan *envelope.Envelope {
	return a.replies
}

// Close stops the reply-observer loop and releases the reader/producer.
func (a *Asynchronous) Close() error {
	if a.reader != nil {
		close(a.stop)
		<-a.done
		_ = a.reader.Close()
	}
	return a.producer.Close()
}

// Send constructs a Trigger for dest/req/any and, unless deferred, fires
// it immediately, returning its assigned sn.
func (a *Asynchronous) Send(dest envelope.Destination, req *envelope.Request, any any, deferred bool) (string, *Trigger, error) {
	t := newTrigger(a, dest, req, any)
	if deferred {
		return "", t, nil
	}
	sn, err := t.Fire()
	return sn, nil, err
}

// Broadcast constructs one Trigger per destination. When deferred, the
// triggers are returned unfired; otherwise all are fired and their sns
// returned.
func (a *Asynchronous) Broadcast(destinations []envelope.Destination, req *envelope.Request, any any, deferred bool) ([]string, []*Trigger, error) {
	triggers := make([]*Trigger, len(destinations))
	for i, d := range destinations {
		triggers[i] = newTrigger(a, d, req, any)
	}
	if deferred {
		return nil, triggers, nil
	}

	sns := make([]string, 0, len(triggers))
	for _, t := range triggers {
		sn, err := t.Fire()
		if err != nil {
			return sns, nil, err
		}
		sns = append(sns, sn)
	}
	return sns, nil, nil
}

// fire sends t's request, setting replyto to the shared ctag queue when
// configured, and registers with the watchdog when all of
// {replyto, ctag, both timeouts, watchdog} are present.
func (a *Asynchronous) fire(t *Trigger) (string, error) {
	replyTo := ""
	if a.ctag != "" {
		replyTo = a.ctag
	}

	_, err := a.producer.Send(t.dest, messaging.SendOptions{
		SN:      t.sn,
		ReplyTo: replyTo,
		TTL:     a.timeout.Started,
		Request: t.req,
		Any:     t.any,
	})
	if err != nil {
		return "", err
	}

	if replyTo != "" && a.ctag != "" && a.timeout.Started > 0 && a.timeout.Final > 0 && a.watchdog != nil {
		a.watchdog.Track(t.sn, replyTo, t.any, a.timeout)
	}
	return t.sn, nil
}

// observeLoop feeds every envelope arriving on the ctag queue to the
// watchdog and republishes it on Replies() for application-level
// consumption.
func (a *Asynchronous) observeLoop() {
	defer close(a.done)
	for {
		select {
		case <-a.stop:
			return
		default:
		}

		env, ack, err := a.reader.Next(fetchTimeout)
		if err != nil {
			a.log.Warning(err.Error())
			continue
		}
		if env == nil {
			continue
		}
		if a.watchdog != nil {
			a.watchdog.Notify(env)
		}
		select {
		case a.replies <- env:
		case <-a.stop:
			if ack != nil {
				_ = ack()
			}
			return
		}
		if ack != nil {
			_ = ack()
		}
	}
}
