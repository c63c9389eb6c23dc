package rmi

import (
	"sync/atomic"

	"go.rmagent.dev/core/envelope"
	"go.rmagent.dev/core/errors"
)

// errAlreadyFired is returned by a second invocation of the same Trigger.
var errAlreadyFired = errors.New("trigger already invoked")

// Trigger is a single-shot deferred send: constructing one never touches
// the network, only Fire does, and only once. Concurrency-safe via an
// atomic compare-and-set on the "fired" flag, per the engine's design
// note on deferred execution.
type Trigger struct {
	policy  *Asynchronous
	dest    envelope.Destination
	req     *envelope.Request
	any     any
	sn      string
	fired   int32
}

func newTrigger(policy *Asynchronous, dest envelope.Destination, req *envelope.Request, any any) *Trigger {
	return &Trigger{policy: policy, dest: dest, req: req, any: any, sn: newSN()}
}

// SN returns the serial number this trigger will send under, regardless
// of whether it has fired yet.
func (t *Trigger) SN() string { return t.sn }

// Fire sends the request, registering with the watchdog when configured.
// A second call on the same Trigger always fails with errAlreadyFired.
func (t *Trigger) Fire() (string, error) {
	if !atomic.CompareAndSwapInt32(&t.fired, 0, 1) {
		return "", errAlreadyFired
	}
	return t.policy.fire(t)
}
