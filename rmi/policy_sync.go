package rmi

import (
	"context"
	"errors"
	"time"

	"go.rmagent.dev/core/amqp"
	"go.rmagent.dev/core/auth"
	"go.rmagent.dev/core/envelope"
	xlog "go.rmagent.dev/core/log"
	"go.rmagent.dev/core/messaging"
	"go.rmagent.dev/core/telemetry"
)

// Timeout is either a scalar applied to both phases or an explicit pair;
// use NewTimeout for the scalar form, or set Started and Final directly.
type Timeout struct {
	Started time.Duration
	Final   time.Duration
}

// DefaultTimeout matches the engine's documented default of 10s to
// observe STARTED and 90s to observe the FINAL reply.
var DefaultTimeout = Timeout{Started: 10 * time.Second, Final: 90 * time.Second}

// NewTimeout applies the same duration to both the STARTED and FINAL
// phases.
func NewTimeout(both time.Duration) Timeout {
	return Timeout{Started: both, Final: both}
}

// Synchronous sends a request and blocks for its reply, observing the
// two-phase STARTED/FINAL protocol over a private, per-call reply queue.
type Synchronous struct {
	addr    string
	signer  auth.Signer
	log     xlog.Logger
	options []amqp.Option
	timeout Timeout

	tracer  *telemetry.Tracer
	metrics *telemetry.Metrics
}

// NewSynchronous builds a Synchronous policy that opens fresh
// producer/reader connections to addr for every call.
func NewSynchronous(addr string, signer auth.Signer, log xlog.Logger, timeout Timeout, options ...amqp.Option) *Synchronous {
	if log == nil {
		log = xlog.Discard()
	}
	return &Synchronous{addr: addr, signer: signer, log: log, options: options, timeout: timeout}
}

// SetTelemetry attaches a tracer and/or metrics collector; either may be
// nil to leave that concern unobserved. Call before Send is used
// concurrently.
func (s *Synchronous) SetTelemetry(tracer *telemetry.Tracer, metrics *telemetry.Metrics) {
	s.tracer = tracer
	s.metrics = metrics
}

// Send implements the 7-step synchronous call protocol: allocate a
// private reply queue, send the request, await STARTED then FINAL, and
// always clean up the reader and queue regardless of outcome. When a
// tracer/metrics collector has been attached via SetTelemetry, the whole
// call is wrapped in an "rmi.send" span keyed by the request's own serial
// number, and the outcome is observed.
func (s *Synchronous) Send(dest envelope.Destination, req *envelope.Request, any any) (any, error) {
	sn := newSN()

	var value any
	do := func(context.Context) error {
		var err error
		value, err = s.send(sn, dest, req, any)
		return err
	}

	var err error
	if s.tracer != nil {
		err = s.tracer.Send(context.Background(), sn, do)
	} else {
		err = do(context.Background())
	}

	if s.metrics != nil {
		s.metrics.ObserveDispatch(outcomeKind(err))
	}
	return value, err
}

// send performs the actual request/reply exchange under the
// caller-assigned sn, outside of any tracing/metrics concern.
func (s *Synchronous) send(sn string, dest envelope.Destination, req *envelope.Request, any any) (any, error) {
	replyQueue := newSN()

	reader, err := messaging.NewReader(s.addr, s.signer, s.log, append(append([]amqp.Option{}, s.options...),
		amqp.WithTopology(amqp.Topology{Queues: []amqp.Queue{{Name: replyQueue, AutoDelete: true, Exclusive: true}}}))...)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	if err := reader.Open(replyQueue); err != nil {
		return nil, err
	}

	producer, err := messaging.NewProducer(s.addr, s.signer, s.log, s.options...)
	if err != nil {
		return nil, err
	}
	defer producer.Close()

	if _, err := producer.Send(dest, messaging.SendOptions{
		SN:      sn,
		ReplyTo: replyQueue,
		TTL:     s.timeout.Started,
		Request: req,
		Any:     any,
	}); err != nil {
		return nil, err
	}

	// Await STARTED. A reply carrying a result this early (handler
	// finished before the STARTED notice went out, or never sent one) is
	// treated as the final answer.
	started, err := reader.Search(sn, s.timeout.Started)
	if err != nil {
		return nil, err
	}
	if started == nil {
		return nil, &RequestTimeout{SN: sn, Index: 0}
	}
	if started.Result != nil {
		return resolveResult(started.Result)
	}

	// Await FINAL.
	final, err := reader.Search(sn, s.timeout.Final)
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, &RequestTimeout{SN: sn, Index: 1}
	}
	return resolveResult(final.Result)
}

// outcomeKind classifies a Send result for the dispatch-outcomes metric,
// matching Dispatcher.Dispatch's classification on the server side.
func outcomeKind(err error) string {
	if err == nil {
		return "Succeeded"
	}
	var remote *RemoteException
	if errors.As(err, &remote) {
		return remote.Kind
	}
	var timeout *RequestTimeout
	if errors.As(err, &timeout) {
		return string(KindRequestTimeout)
	}
	return string(KindTransportError)
}

// resolveResult turns a wire Result into a value or a *RemoteException.
func resolveResult(res *envelope.Result) (any, error) {
	ret := FromResult(res)
	if ret.IsFailed() {
		return nil, &RemoteException{Kind: string(ret.Kind()), Message: ret.Message(), Traceback: ret.Traceback()}
	}
	return ret.Value(), nil
}
