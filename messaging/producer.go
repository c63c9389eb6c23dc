package messaging

import (
	"encoding/base64"
	"time"

	"go.rmagent.dev/core/amqp"
	"go.rmagent.dev/core/auth"
	"go.rmagent.dev/core/envelope"
	xlog "go.rmagent.dev/core/log"
)

// SendOptions carries the per-call fields accepted by Producer.Send,
// mirroring the request's optional `ttl`, `replyto`, `sn`, and arbitrary
// envelope fields (`request`, `any`, `status`, `result`).
type SendOptions struct {
	TTL     time.Duration
	ReplyTo string
	SN      string
	Any     any
	Request *envelope.Request
	Result  *envelope.Result
	Status  string
	Window  *envelope.Window
	Subject string
}

// Producer sends envelopes to a named destination, assigning TTL and
// correlation headers recognized by the broker.
type Producer struct {
	endpoint
	pub *amqp.Publisher
}

// NewProducer opens a publisher connection to addr and wraps it as an
// envelope-level Producer.
func NewProducer(addr string, signer auth.Signer, log xlog.Logger, options ...amqp.Option) (*Producer, error) {
	p, err := amqp.NewPublisher(addr, options...)
	if err != nil {
		return nil, err
	}
	return &Producer{endpoint: endpoint{signer: signer, log: log}, pub: p}, nil
}

// Send builds an envelope from opts, encodes it, and submits it to dest.
// If opts.SN is empty a fresh one is generated. The assigned sn is
// returned on success.
func (p *Producer) Send(dest envelope.Destination, opts SendOptions) (string, error) {
	sn := opts.SN
	if sn == "" {
		sn = newSN()
	}

	e := &envelope.Envelope{
		Version: envelope.ProtocolVersion,
		SN:      sn,
		Any:     opts.Any,
		ReplyTo: opts.ReplyTo,
		Request: opts.Request,
		Result:  opts.Result,
		Status:  opts.Status,
		Window:  opts.Window,
		Subject: opts.Subject,
	}
	if opts.TTL > 0 {
		e.TTL = int64(opts.TTL.Seconds())
	}

	body, err := envelope.Encode(e)
	if err != nil {
		return "", err
	}

	msg := amqp.Message{
		Body:          body,
		ContentType:   "application/json",
		CorrelationId: sn,
	}
	if p.signer != nil {
		sig := p.signer.Sign(body)
		msg.Headers = map[string]any{"x-signature": base64.StdEncoding.EncodeToString(sig)}
	}

	msgOpts := amqp.MessageOptions{}
	if dest.IsQueue() {
		msgOpts.RoutingKey = dest.Queue
	} else {
		msgOpts.Exchange = dest.Exchange
		msgOpts.RoutingKey = dest.RoutingKey
	}
	if opts.TTL > 0 {
		msgOpts.TTL = int(opts.TTL.Seconds())
	}

	if err := p.pub.UnsafePush(msg, msgOpts); err != nil {
		return "", err
	}
	return sn, nil
}

// Close releases the underlying publisher connection.
func (p *Producer) Close() error {
	return p.pub.Close()
}
