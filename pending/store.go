package pending

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.rmagent.dev/core/envelope"
	"go.rmagent.dev/core/errors"
	xlog "go.rmagent.dev/core/log"
	"go.rmagent.dev/core/ulid"
)

// ErrStoreFull is returned by Add when the store has reached its
// configured capacity. A bounded store protects the agent from an
// unbounded backlog of future-windowed requests outliving their use.
var ErrStoreFull = errors.New("pending store is at capacity")

// Release is handed to the consumer of Ready() when an entry's window
// opens; Ack must be called once the entry has been handled (success or
// failure, doesn't matter): it marks the entry as dispatched in the
// backing log and compacts the log, so the entry is dropped from it.
type Release struct {
	Envelope *envelope.Envelope
	Ack      func() error
}

// Store is the durable, time-ordered queue of deferred requests: entries
// are kept sorted by EligibleAt, and a single worker goroutine sleeps
// until the earliest one opens, then hands it to whoever is reading
// Ready(). Capacity, when positive, bounds how many entries may be
// outstanding at once; Add past that bound fails with ErrStoreFull per
// the engine's backpressure story.
type Store struct {
	log      xlog.Logger
	persist  Persister
	capacity int

	mu    sync.Mutex
	items *list.List // of *Entry, sorted ascending by EligibleAt

	ready chan Release
	wake  chan struct{}

	ctx  context.Context
	halt context.CancelFunc
	wg   sync.WaitGroup
}

// NewStore builds a Store backed by persist, replaying any entries it
// already holds. capacity <= 0 means unbounded.
func NewStore(persist Persister, capacity int, log xlog.Logger) (*Store, error) {
	if log == nil {
		log = xlog.Discard()
	}
	entries, err := persist.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load pending store")
	}

	ctx, halt := context.WithCancel(context.Background())
	s := &Store{
		log:      log,
		persist:  persist,
		capacity: capacity,
		items:    list.New(),
		ready:    make(chan Release),
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		halt:     halt,
	}
	for _, e := range entries {
		s.insert(e)
	}

	s.wg.Add(1)
	go s.run()
	return s, nil
}

// Add enqueues env, eligible for dispatch at eligibleAt. Returns the
// assigned entry ID.
func (s *Store) Add(env *envelope.Envelope, eligibleAt time.Time) (ulid.ULID, error) {
	id, err := ulid.New()
	if err != nil {
		return id, errors.Wrap(err, "failed to allocate pending entry id")
	}

	s.mu.Lock()
	if s.capacity > 0 && s.items.Len() >= s.capacity {
		s.mu.Unlock()
		return id, ErrStoreFull
	}
	s.mu.Unlock()

	entry := &Entry{ID: id, Envelope: env, EligibleAt: eligibleAt}
	if err := s.persist.Append(entry); err != nil {
		return id, errors.Wrap(err, "failed to persist pending entry")
	}
	s.insert(entry)
	s.nudge()
	return id, nil
}

// Ready returns the channel entries are delivered on as their windows
// open, in EligibleAt order.
func (s *Store) Ready() <-chan Release {
	return s.ready
}

// Close stops the background worker. Entries not yet delivered remain in
// the backing log for the next Store built on it.
func (s *Store) Close() {
	s.halt()
	s.wg.Wait()
}

// Len reports how many entries are currently queued awaiting their
// eligibility window, for telemetry gauges.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Len()
}

// insert places entry in s.items keeping ascending EligibleAt order.
func (s *Store) insert(entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for e := s.items.Front(); e != nil; e = e.Next() {
		if entry.EligibleAt.Before(e.Value.(*Entry).EligibleAt) {
			s.items.InsertBefore(entry, e)
			return
		}
	}
	s.items.PushBack(entry)
}

// head returns (without removing) the earliest pending entry, if any.
func (s *Store) head() (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if front := s.items.Front(); front != nil {
		return front.Value.(*Entry), true
	}
	return nil, false
}

// popSN removes the entry identified by sn, wherever it currently sits.
func (s *Store) popSN(sn string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for e := s.items.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*Entry)
		if entry.Envelope != nil && entry.Envelope.SN == sn {
			s.items.Remove(e)
			return
		}
	}
}

// snapshot returns the entries currently held, in order, for Compact.
func (s *Store) snapshot() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, 0, s.items.Len())
	for e := s.items.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Entry))
	}
	return out
}

// nudge wakes the worker without blocking if it's busy handling a
// previous wake-up; one pending wake-up is enough since the worker
// always re-reads the current head after waking.
func (s *Store) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run sleeps until the head entry's window opens, then delivers it on
// ready. A fresh Add re-triggers the wait so the timer always targets
// the current head.
func (s *Store) run() {
	defer s.wg.Done()
	for {
		entry, ok := s.head()
		if !ok {
			select {
			case <-s.ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}

		wait := time.Until(entry.EligibleAt)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
			continue
		case <-timer.C:
			s.deliver(entry)
		}
	}
}

// deliver hands entry to Ready(), blocking until a receiver is present
// or the store is closed.
func (s *Store) deliver(entry *Entry) {
	sn := ""
	if entry.Envelope != nil {
		sn = entry.Envelope.SN
	}
	release := Release{
		Envelope: entry.Envelope,
		Ack: func() error {
			s.popSN(sn)
			if err := s.persist.MarkDispatched(sn); err != nil {
				return err
			}
			return s.persist.Compact(s.snapshot())
		},
	}
	select {
	case s.ready <- release:
		s.popSN(sn)
	case <-s.ctx.Done():
	}
}
