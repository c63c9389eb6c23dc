package rmi

import (
	"testing"
	"time"

	tdd "github.com/stretchr/testify/assert"

	"go.rmagent.dev/core/envelope"
)

func newTestWatchdog() *Watchdog {
	return NewWatchdog(nil, nil)
}

func TestWatchdogTrackAndNearestDeadline(t *testing.T) {
	w := newTestWatchdog()
	defer w.Close()

	w.Track("sn-1", "replies", nil, Timeout{Started: time.Hour, Final: 2 * time.Hour})
	_, ok := w.nearestDeadline()
	tdd.True(t, ok)
}

func TestWatchdogNotifyStartedCancelsStartedDeadline(t *testing.T) {
	w := newTestWatchdog()
	defer w.Close()

	w.Track("sn-2", "replies", nil, Timeout{Started: time.Hour, Final: 2 * time.Hour})
	w.Notify(&envelope.Envelope{SN: "sn-2", Status: "started"})

	w.mu.Lock()
	entry := w.entries["sn-2"]
	w.mu.Unlock()
	tdd.True(t, entry.StartedSeen)
}

func TestWatchdogNotifyResultRemovesEntry(t *testing.T) {
	w := newTestWatchdog()
	defer w.Close()

	w.Track("sn-3", "replies", nil, Timeout{Started: time.Hour, Final: 2 * time.Hour})
	w.Notify(&envelope.Envelope{SN: "sn-3", Result: &envelope.Result{Retval: "done"}})

	w.mu.Lock()
	_, ok := w.entries["sn-3"]
	w.mu.Unlock()
	tdd.False(t, ok)
}

func TestWatchdogForgetRemovesEntry(t *testing.T) {
	w := newTestWatchdog()
	defer w.Close()

	w.Track("sn-4", "replies", nil, Timeout{Started: time.Hour, Final: 2 * time.Hour})
	w.Forget("sn-4")

	w.mu.Lock()
	_, ok := w.entries["sn-4"]
	w.mu.Unlock()
	tdd.False(t, ok)
}

func TestWatchdogNotifyUnknownSNIsNoop(t *testing.T) {
	w := newTestWatchdog()
	defer w.Close()

	tdd.NotPanics(t, func() {
		w.Notify(&envelope.Envelope{SN: "unknown", Status: "started"})
	})
}
