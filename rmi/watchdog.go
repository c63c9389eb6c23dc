package rmi

import (
	"sync"
	"time"

	"go.rmagent.dev/core/envelope"
	xlog "go.rmagent.dev/core/log"
	"go.rmagent.dev/core/messaging"
)

// WatchdogEntry tracks an outstanding asynchronous request's timeout
// deadlines, keyed by sn in the Watchdog's table.
type WatchdogEntry struct {
	SN              string
	ReplyTo         string
	Any             any
	DeadlineStarted time.Time
	DeadlineFinal   time.Time
	CreatedAt       time.Time
	StartedSeen     bool
}

// Watchdog tracks outstanding asynchronous requests and, when a STARTED
// or FINAL reply fails to show up in time, synthesizes a RequestTimeout
// reply indistinguishable from one produced by the remote handler.
type Watchdog struct {
	producer *messaging.Producer
	log      xlog.Logger

	mu      sync.Mutex
	entries map[string]*WatchdogEntry

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewWatchdog builds a Watchdog that emits synthetic timeout replies
// through producer.
func NewWatchdog(producer *messaging.Producer, log xlog.Logger) *Watchdog {
	if log == nil {
		log = xlog.Discard()
	}
	w := &Watchdog{
		producer: producer,
		log:      log,
		entries:  make(map[string]*WatchdogEntry),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Track registers sn for timeout enforcement: replyTo/any are carried
// into the synthetic reply if one is needed; the STARTED deadline is
// now+t.Started, the FINAL deadline now+t.Started+t.Final.
func (w *Watchdog) Track(sn, replyTo string, any any, t Timeout) {
	now := time.Now()
	w.mu.Lock()
	w.entries[sn] = &WatchdogEntry{
		SN:              sn,
		ReplyTo:         replyTo,
		Any:             any,
		DeadlineStarted: now.Add(t.Started),
		DeadlineFinal:   now.Add(t.Started + t.Final),
		CreatedAt:       now,
	}
	w.mu.Unlock()
	w.nudge()
}

// Notify is fed every envelope observed on a watched reply queue. A
// "started" status cancels the STARTED deadline; an envelope carrying a
// result (the FINAL reply) removes the entry entirely.
func (w *Watchdog) Notify(env *envelope.Envelope) {
	if env == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.entries[env.SN]
	if !ok {
		return
	}
	switch {
	case env.Result != nil:
		delete(w.entries, env.SN)
	case env.Status == "started":
		entry.StartedSeen = true
	}
}

// Forget removes sn from tracking without emitting anything, used when a
// caller cancels interest in a request outside the normal reply flow.
func (w *Watchdog) Forget(sn string) {
	w.mu.Lock()
	delete(w.entries, sn)
	w.mu.Unlock()
}

// Close stops the background worker.
func (w *Watchdog) Close() {
	close(w.stop)
	<-w.done
}

// Len reports how many requests are currently outstanding, for
// telemetry gauges.
func (w *Watchdog) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

func (w *Watchdog) nudge() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// nearestDeadline returns the soonest unresolved deadline across all
// entries and whether one exists.
func (w *Watchdog) nearestDeadline() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var nearest time.Time
	found := false
	for _, e := range w.entries {
		candidate := e.DeadlineFinal
		if !e.StartedSeen && e.DeadlineStarted.Before(candidate) {
			candidate = e.DeadlineStarted
		}
		if !found || candidate.Before(nearest) {
			nearest = candidate
			found = true
		}
	}
	return nearest, found
}

// sweep fires timeout replies for every entry whose deadline has
// elapsed.
func (w *Watchdog) sweep() {
	now := time.Now()
	var due []struct {
		entry *WatchdogEntry
		index int
	}

	w.mu.Lock()
	for sn, e := range w.entries {
		if !e.StartedSeen && !e.DeadlineStarted.After(now) {
			due = append(due, struct {
				entry *WatchdogEntry
				index int
			}{e, 0})
			delete(w.entries, sn)
			continue
		}
		if !e.DeadlineFinal.After(now) {
			due = append(due, struct {
				entry *WatchdogEntry
				index int
			}{e, 1})
			delete(w.entries, sn)
		}
	}
	w.mu.Unlock()

	for _, d := range due {
		w.emit(d.entry, d.index)
	}
}

// emit synthesizes and sends a RequestTimeout reply for entry's sn.
func (w *Watchdog) emit(entry *WatchdogEntry, index int) {
	if entry.ReplyTo == "" {
		return
	}
	ret := Failed(KindRequestTimeout, (&RequestTimeout{SN: entry.SN, Index: index}).Error(), "")
	if _, err := w.producer.Send(envelope.Q(entry.ReplyTo), messaging.SendOptions{
		SN:     entry.SN,
		Any:    entry.Any,
		Result: ret.ToResult(),
	}); err != nil {
		w.log.Warning("failed to emit watchdog timeout reply: " + err.Error())
	}
}

// run sleeps until the nearest deadline, sweeps due entries, and repeats.
func (w *Watchdog) run() {
	defer close(w.done)
	for {
		deadline, ok := w.nearestDeadline()
		if !ok {
			select {
			case <-w.stop:
				return
			case <-w.wake:
				continue
			}
		}

		wait := time.Until(deadline)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-w.stop:
			timer.Stop()
			return
		case <-w.wake:
			timer.Stop()
			continue
		case <-timer.C:
			w.sweep()
		}
	}
}
