package pending_test

import (
	"path/filepath"
	"testing"

	tdd "github.com/stretchr/testify/assert"

	"go.rmagent.dev/core/envelope"
	"go.rmagent.dev/core/pending"
)

func TestMemoryPersisterRoundTrip(t *testing.T) {
	p := pending.NewMemoryPersister()
	env := envelope.New()
	env.Subject = "a"

	tdd.NoError(t, p.Append(&pending.Entry{Envelope: env}))
	loaded, err := p.Load()
	tdd.NoError(t, err)
	tdd.Len(t, loaded, 1)

	tdd.NoError(t, p.MarkDispatched(env.SN))
	loaded, err = p.Load()
	tdd.NoError(t, err)
	tdd.Empty(t, loaded)
}

func TestFilePersisterReplaysAndAppliesMarkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.log")
	p, err := pending.NewFilePersister(path)
	tdd.NoError(t, err)

	kept := envelope.New()
	kept.Subject = "kept"
	dropped := envelope.New()
	dropped.Subject = "dropped"

	tdd.NoError(t, p.Append(&pending.Entry{Envelope: kept}))
	tdd.NoError(t, p.Append(&pending.Entry{Envelope: dropped}))
	tdd.NoError(t, p.MarkDispatched(dropped.SN))

	loaded, err := p.Load()
	tdd.NoError(t, err)
	tdd.Len(t, loaded, 1)
	tdd.Equal(t, "kept", loaded[0].Envelope.Subject)
}

func TestFilePersisterCompactKeepsLiveEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.log")
	p, err := pending.NewFilePersister(path)
	tdd.NoError(t, err)

	env := envelope.New()
	tdd.NoError(t, p.Append(&pending.Entry{Envelope: env}))
	tdd.NoError(t, p.Compact([]*pending.Entry{{Envelope: env}}))

	loaded, err := p.Load()
	tdd.NoError(t, err)
	tdd.Len(t, loaded, 1)
	tdd.Equal(t, env.SN, loaded[0].Envelope.SN)
}

func TestFilePersisterFreshLogLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.log")
	p, err := pending.NewFilePersister(path)
	tdd.NoError(t, err)

	loaded, err := p.Load()
	tdd.NoError(t, err)
	tdd.Empty(t, loaded)
}
