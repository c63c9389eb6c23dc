// Package messaging adapts the transport-level amqp package to the
// envelope-oriented Producer/Reader model consumed by the RMI layer:
// sending and receiving Envelope values addressed by Destination, with
// TTL, correlation, and optional message signing.
package messaging

import (
	"go.rmagent.dev/core/auth"
	"go.rmagent.dev/core/envelope"
	xlog "go.rmagent.dev/core/log"
)

// endpoint holds the state shared by Producer and Reader: an optional
// message signer/verifier and the logger used throughout.
type endpoint struct {
	signer auth.Signer
	log    xlog.Logger
}

// id derives a stable identifier for logging, scoped to the endpoint's
// destination.
func (e *endpoint) id(dest envelope.Destination) string {
	return dest.String()
}
