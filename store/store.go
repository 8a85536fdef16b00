// Package store defines a narrow persistence interface for tracked
// deposits, plus an in-memory reference implementation. Generalized from
// original_source/backend/src/storage/traits.rs's DepositStore trait
// (insert/update/get_by_id/get_by_address/get_by_status/get_active/
// count_by_status), narrowed to the operations lifecycle actually calls
// rather than the full CRUD surface a SQLite-backed store would need.
package store

import (
	"errors"
	"sync"

	"github.com/cheng-chun-yuan/zVault-sub001/lifecycle"
	"github.com/cheng-chun-yuan/zVault-sub001/pool"
)

// ErrNotFound mirrors traits.rs's StorageError::NotFound.
var ErrNotFound = errors.New("store: record not found")

// ErrDuplicate mirrors traits.rs's StorageError::Duplicate.
var ErrDuplicate = errors.New("store: duplicate record")

// Inserter persists a new deposit record, failing if one with the same
// ID already exists.
type Inserter interface {
	Insert(d lifecycle.TrackedDeposit) error
}

// Updater replaces an existing deposit record, failing if it does not
// exist yet — forcing callers through Insert first, as traits.rs does.
type Updater interface {
	Update(d lifecycle.TrackedDeposit) error
}

// Getter looks a deposit record up by ID or by its Taproot address.
type Getter interface {
	GetByID(id string) (lifecycle.TrackedDeposit, error)
	GetByAddress(address string) (lifecycle.TrackedDeposit, error)
}

// ListByStatus returns every record currently in a given status, the way
// traits.rs's get_by_status does for sweep/verify polling loops.
type ListByStatus interface {
	ListByStatus(status pool.DepositStatus) ([]lifecycle.TrackedDeposit, error)
}

// DepositStore is the full capability lifecycle consumers need, composed
// from the narrower interfaces above so a caller can depend on only the
// slice it uses (e.g. a read-only status page only needs Getter +
// ListByStatus).
type DepositStore interface {
	Inserter
	Updater
	Getter
	ListByStatus
}

// MemoryStore is an in-memory DepositStore, the Go analogue of
// traits.rs's MemoryDepositStore reference implementation used in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]lifecycle.TrackedDeposit
	byAddr map[string]string // address -> id
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]lifecycle.TrackedDeposit),
		byAddr: make(map[string]string),
	}
}

func (m *MemoryStore) Insert(d lifecycle.TrackedDeposit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[d.ID]; ok {
		return ErrDuplicate
	}
	m.byID[d.ID] = d
	m.byAddr[d.TaprootAddress] = d.ID
	return nil
}

func (m *MemoryStore) Update(d lifecycle.TrackedDeposit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[d.ID]; !ok {
		return ErrNotFound
	}
	m.byID[d.ID] = d
	m.byAddr[d.TaprootAddress] = d.ID
	return nil
}

func (m *MemoryStore) GetByID(id string) (lifecycle.TrackedDeposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.byID[id]
	if !ok {
		return lifecycle.TrackedDeposit{}, ErrNotFound
	}
	return d, nil
}

func (m *MemoryStore) GetByAddress(address string) (lifecycle.TrackedDeposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byAddr[address]
	if !ok {
		return lifecycle.TrackedDeposit{}, ErrNotFound
	}
	return m.byID[id], nil
}

func (m *MemoryStore) ListByStatus(status pool.DepositStatus) ([]lifecycle.TrackedDeposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []lifecycle.TrackedDeposit
	for _, d := range m.byID {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

// CountByStatus mirrors traits.rs's count_by_status aggregate, used for
// operator dashboards.
func (m *MemoryStore) CountByStatus() map[pool.DepositStatus]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[pool.DepositStatus]int)
	for _, d := range m.byID {
		counts[d.Status]++
	}
	return counts
}
