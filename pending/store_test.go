package pending_test

import (
	"testing"
	"time"

	tdd "github.com/stretchr/testify/assert"

	"go.rmagent.dev/core/envelope"
	"go.rmagent.dev/core/pending"
)

func TestStoreDeliversInEligibleAtOrder(t *testing.T) {
	store, err := pending.NewStore(pending.NewMemoryPersister(), 0, nil)
	tdd.NoError(t, err)
	defer store.Close()

	now := time.Now()
	late := envelope.New()
	late.Subject = "late"
	early := envelope.New()
	early.Subject = "early"

	_, err = store.Add(late, now.Add(150*time.Millisecond))
	tdd.NoError(t, err)
	_, err = store.Add(early, now.Add(50*time.Millisecond))
	tdd.NoError(t, err)

	first := mustRelease(t, store)
	tdd.Equal(t, "early", first.Envelope.Subject)
	tdd.NoError(t, first.Ack())

	second := mustRelease(t, store)
	tdd.Equal(t, "late", second.Envelope.Subject)
	tdd.NoError(t, second.Ack())
}

func TestStoreRejectsBeyondCapacity(t *testing.T) {
	store, err := pending.NewStore(pending.NewMemoryPersister(), 1, nil)
	tdd.NoError(t, err)
	defer store.Close()

	_, err = store.Add(envelope.New(), time.Now().Add(time.Hour))
	tdd.NoError(t, err)

	_, err = store.Add(envelope.New(), time.Now().Add(time.Hour))
	tdd.ErrorIs(t, err, pending.ErrStoreFull)
}

func TestStoreResumesFromPersister(t *testing.T) {
	persist := pending.NewMemoryPersister()
	env := envelope.New()
	env.Subject = "resumed"

	store, err := pending.NewStore(persist, 0, nil)
	tdd.NoError(t, err)
	_, err = store.Add(env, time.Now().Add(30*time.Millisecond))
	tdd.NoError(t, err)
	store.Close()

	resumed, err := pending.NewStore(persist, 0, nil)
	tdd.NoError(t, err)
	defer resumed.Close()

	rel := mustRelease(t, resumed)
	tdd.Equal(t, "resumed", rel.Envelope.Subject)
}

func mustRelease(t *testing.T, store *pending.Store) pending.Release {
	t.Helper()
	select {
	case rel := <-store.Ready():
		return rel
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pending release")
		return pending.Release{}
	}
}
