package storage

import "fmt"

// Backend names accepted by NewStore. The sqlite backend is only compiled
// in under the sqlite build tag; selecting it otherwise fails at runtime.
const (
	MemoryBackend = "memory"
	SQLiteBackend = "sqlite"
)

// NewStore selects the run/segment store backend by name. An empty kind
// means the in-memory store.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", MemoryBackend:
		return NewMemoryStore(), nil
	case SQLiteBackend:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes backends that hold external resources; the memory
// store has nothing to release.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
