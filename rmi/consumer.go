package rmi

import (
	"context"
	"time"

	"go.rmagent.dev/core/envelope"
	"go.rmagent.dev/core/errors"
	xlog "go.rmagent.dev/core/log"
	"go.rmagent.dev/core/messaging"
	"go.rmagent.dev/core/pending"
)

// fetchTimeout bounds each Reader.Next poll of the inbound queue, so the
// consumer loop observes its stop signal promptly instead of blocking
// indefinitely.
const fetchTimeout = 5 * time.Second

// RequestConsumer composes a Reader on the agent's inbound queue, a
// Producer for replies, a Dispatcher, and a Pending store into the
// server side of the engine, implementing the RECEIVED/window/dispatch
// state machine.
type RequestConsumer struct {
	reader     *messaging.Reader
	producer   *messaging.Producer
	dispatcher *Dispatcher
	store      *pending.Store
	log        xlog.Logger

	stop chan struct{}
	done chan struct{}
}

// NewRequestConsumer wires the given collaborators into a RequestConsumer
// bound to queue. Reader and producer must already be usable (the caller
// owns their lifecycle up to Close).
func NewRequestConsumer(reader *messaging.Reader, producer *messaging.Producer, dispatcher *Dispatcher, store *pending.Store, queue string, log xlog.Logger) (*RequestConsumer, error) {
	if log == nil {
		log = xlog.Discard()
	}
	if err := reader.Open(queue); err != nil {
		return nil, errors.Wrap(err, "failed to open inbound queue")
	}
	return &RequestConsumer{
		reader:     reader,
		producer:   producer,
		dispatcher: dispatcher,
		store:      store,
		log:        log,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Start runs the receive loop and the pending-store release loop in the
// background. Returns immediately; call Shutdown to stop both.
func (c *RequestConsumer) Start() {
	go c.receiveLoop()
	go c.releaseLoop()
}

// Shutdown stops both background loops and waits for the receive loop to
// observe it.
func (c *RequestConsumer) Shutdown() {
	close(c.stop)
	<-c.done
}

// receiveLoop repeatedly polls the inbound queue, handling one envelope
// at a time.
func (c *RequestConsumer) receiveLoop() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		env, ack, err := c.reader.Next(fetchTimeout)
		if err != nil {
			c.log.Warning(err.Error())
			continue
		}
		if env == nil {
			continue
		}
		c.handle(env)
		if ack != nil {
			if err := ack(); err != nil {
				c.log.Warning("failed to ack inbound message: " + err.Error())
			}
		}
	}
}

// releaseLoop forwards entries released by the pending store's delivery
// worker back into the normal handling path, as if freshly received.
func (c *RequestConsumer) releaseLoop() {
	for {
		select {
		case <-c.stop:
			return
		case rel, ok := <-c.store.Ready():
			if !ok {
				return
			}
			c.handle(rel.Envelope)
			if err := rel.Ack(); err != nil {
				c.log.Warning("failed to ack pending entry: " + err.Error())
			}
		}
	}
}

// handle implements the RECEIVED state machine: version check, window
// evaluation, dispatch, and reply, per envelope.
func (c *RequestConsumer) handle(env *envelope.Envelope) {
	if env.Version != envelope.ProtocolVersion {
		c.log.Warning("dropping envelope with unknown protocol version: " + env.Version)
		return
	}

	switch Evaluate(env.Window, time.Now()) {
	case Past:
		c.reply(env, Failed(KindWindowMissed, "request window missed", ""))
		return
	case Future:
		if _, err := c.store.Add(env, EligibleAt(env.Window)); err != nil {
			c.log.Warning("failed to enqueue pending entry: " + err.Error())
			c.reply(env, Failed(KindPendingFull, err.Error(), ""))
		}
		return
	}

	// Present: announce start (if anyone is listening for it), dispatch,
	// and reply with the outcome.
	if env.ReplyTo != "" {
		if _, err := c.producer.Send(envelope.Q(env.ReplyTo), messaging.SendOptions{
			SN:     env.SN,
			Any:    env.Any,
			Status: "started",
		}); err != nil {
			c.log.Warning("failed to send started notice: " + err.Error())
		}
	}

	ret := c.dispatcher.Dispatch(context.Background(), env.SN, env.Request)
	c.reply(env, ret)
}

// reply sends ret as the final result for env, when env carries a
// replyto; absent replyto means fire-and-forget, and nothing is sent.
func (c *RequestConsumer) reply(env *envelope.Envelope, ret Return) {
	if env.ReplyTo == "" {
		return
	}
	if _, err := c.producer.Send(envelope.Q(env.ReplyTo), messaging.SendOptions{
		SN:     env.SN,
		Any:    env.Any,
		Result: ret.ToResult(),
	}); err != nil {
		c.log.Warning("failed to send reply: " + err.Error())
	}
}
