package messaging

import "github.com/google/uuid"

// newSN generates a fresh serial number, assigned exactly once at
// request origination per the envelope invariant.
func newSN() string {
	return uuid.NewString()
}
