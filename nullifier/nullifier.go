// Package nullifier implements the pool program's single-use spend-tag
// set. Grounded on the keyed-record existence-as-spent-predicate pattern of
// the teacher's zk.ConfidentialPool.Nullifiers map and threshold's
// singleton-map-with-RWMutex style.
package nullifier

import (
	"sync"
	"time"

	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
)

// OperationType tags why a nullifier was revealed. Non-authoritative
// metadata only — never consulted for correctness, per spec §4.C's
// rationale that single-use records alone decide the spent predicate.
//
// Naming follows DESIGN.md's Open Question 1 decision: these read as
// actions on the note graph, distinct from pool.RedemptionStatus's
// withdrawal-phase language.
type OperationType uint8

const (
	OpRedemption OperationType = iota
	OpSplit
	OpTransfer
	OpJoin
)

func (o OperationType) String() string {
	switch o {
	case OpRedemption:
		return "redemption"
	case OpSplit:
		return "split"
	case OpTransfer:
		return "transfer"
	case OpJoin:
		return "join"
	default:
		return "unknown"
	}
}

// Record is written once per spent nullifier and never mutated or removed.
type Record struct {
	Nullifier [32]byte
	SpentAt   time.Time
	SpentBy   string // spender identity on the settlement chain
	Operation OperationType
}

// Set is the singleton nullifier set owned by the pool program.
type Set struct {
	mu      sync.RWMutex
	records map[[32]byte]Record
}

// New returns an empty nullifier set.
func New() *Set {
	return &Set{records: make(map[[32]byte]Record)}
}

// IsSpent reports whether a nullifier already has a record.
func (s *Set) IsSpent(n [32]byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[n]
	return ok
}

// MarkSpent writes a record for n, strictly monotonic: calling it twice for
// the same nullifier is rejected with poolerr.ErrAlreadySpent and leaves
// the first record untouched.
func (s *Set) MarkSpent(n [32]byte, op OperationType, spentBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[n]; ok {
		return poolerr.ErrAlreadySpent
	}

	s.records[n] = Record{
		Nullifier: n,
		SpentAt:   at,
		SpentBy:   spentBy,
		Operation: op,
	}
	return nil
}

// Get returns the record for a spent nullifier, if any.
func (s *Set) Get(n [32]byte) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[n]
	return r, ok
}

// Len returns the number of spent nullifiers tracked.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
