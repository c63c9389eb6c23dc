// Package pending implements the durable, time-ordered queue of
// future-windowed requests: entries are released to the RequestConsumer
// once their delivery window opens.
package pending

import (
	"time"

	"go.rmagent.dev/core/envelope"
	"go.rmagent.dev/core/ulid"
)

// Entry pairs an envelope with the instant it becomes eligible for
// dispatch. ID is a ULID: ordered, unique, and timestamp-embedding. The
// persisters identify entries by envelope sn, not by ID.
type Entry struct {
	ID         ulid.ULID            `json:"id"`
	Envelope   *envelope.Envelope   `json:"envelope"`
	EligibleAt time.Time            `json:"eligible_at"`
}

// Record is the on-disk append-log shape: either an addition or a
// dispatched-marker (by sn), so compaction can drop entries already
// delivered without re-reading the full envelope payload.
type Record struct {
	Entry      *Entry `json:"entry,omitempty"`
	DispatchedSN string `json:"dispatched_sn,omitempty"`
}
