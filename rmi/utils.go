package rmi

import "github.com/google/uuid"

// newSN generates a fresh serial number, used both for the private reply
// queues Synchronous opens per call and for deferred-request tracking.
func newSN() string {
	return uuid.NewString()
}
