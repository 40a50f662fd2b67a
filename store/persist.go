package store

import "sync"

// Persister is the key-value blob layer underneath the store. One fixed
// key holds the whole serialized store; there is no incremental
// persistence.
type Persister interface {
	// Save writes the store blob, replacing any previous value.
	Save(blob []byte) error

	// Load reads the store blob. found is false when nothing was ever
	// saved.
	Load() (blob []byte, found bool, err error)
}

// MemPersister keeps the blob in memory. Used by tests and as a no-op
// persistence layer for throwaway stores.
type MemPersister struct {
	mu    sync.Mutex
	blob  []byte
	found bool

	// FailSave, when set, makes Save return it. Lets tests exercise the
	// log-and-swallow flush path.
	FailSave error
}

func (m *MemPersister) Save(blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	m.blob = append([]byte(nil), blob...)
	m.found = true
	return nil
}

func (m *MemPersister) Load() ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.found {
		return nil, false, nil
	}
	return append([]byte(nil), m.blob...), true, nil
}
