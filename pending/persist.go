package pending

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"go.rmagent.dev/core/errors"
)

// Persister is the append-only backing log for the pending store. Append
// records a new entry; MarkDispatched records that an entry (by sn) was
// delivered and may be dropped on the next Compact; Load replays the log
// into the set of still-pending entries, applying dispatched markers as
// it goes; Compact rewrites the log to contain only what Load would
// currently return, bounding its growth.
type Persister interface {
	Append(e *Entry) error
	MarkDispatched(sn string) error
	Load() ([]*Entry, error)
	Compact(live []*Entry) error
}

// MemoryPersister is a non-durable Persister backed by an in-process
// slice, used for tests and for agents that don't need pending entries to
// survive a restart.
type MemoryPersister struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewMemoryPersister returns an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (m *MemoryPersister) Append(e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryPersister) MarkDispatched(sn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Envelope != nil && e.Envelope.SN == sn {
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return nil
}

func (m *MemoryPersister) Load() ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

func (m *MemoryPersister) Compact(live []*Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]*Entry(nil), live...)
	return nil
}

// FilePersister is a durable Persister backed by a newline-delimited JSON
// append log. Records are either an added entry or a dispatched marker;
// Load replays the file and applies markers, so a process restart resumes
// with exactly the entries that were neither dispatched nor compacted
// away. Compact rewrites the file to hold only the live entries, trimming
// the log startup accumulates between restarts.
type FilePersister struct {
	mu   sync.Mutex
	path string
}

// NewFilePersister opens (creating if necessary) the append log at path.
func NewFilePersister(path string) (*FilePersister, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open pending store log")
	}
	_ = f.Close()
	return &FilePersister{path: path}, nil
}

func (f *FilePersister) Append(e *Entry) error {
	return f.appendRecord(Record{Entry: e})
}

func (f *FilePersister) MarkDispatched(sn string) error {
	return f.appendRecord(Record{DispatchedSN: sn})
}

func (f *FilePersister) appendRecord(r Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer fh.Close()
	line, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = fh.Write(append(line, '\n'))
	return err
}

func (f *FilePersister) Load() ([]*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer fh.Close()

	bySN := make(map[string]*Entry)
	var order []string
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			continue // skip corrupt/partial trailing line
		}
		switch {
		case r.Entry != nil:
			sn := ""
			if r.Entry.Envelope != nil {
				sn = r.Entry.Envelope.SN
			}
			if _, seen := bySN[sn]; !seen {
				order = append(order, sn)
			}
			bySN[sn] = r.Entry
		case r.DispatchedSN != "":
			delete(bySN, r.DispatchedSN)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	out := make([]*Entry, 0, len(bySN))
	for _, sn := range order {
		if e, ok := bySN[sn]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *FilePersister) Compact(live []*Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := f.path + ".compact"
	fh, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	for _, e := range live {
		line, err := json.Marshal(Record{Entry: e})
		if err != nil {
			_ = fh.Close()
			return err
		}
		if _, err := fh.Write(append(line, '\n')); err != nil {
			_ = fh.Close()
			return err
		}
	}
	if err := fh.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
