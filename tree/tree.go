// Package tree implements the pool program's commitment tree: a bounded
// Poseidon2 accumulator, not a classic indexed Merkle tree. Ported from the
// on-chain CommitmentTree account, dropping its zero-copy account layout
// (there is no Solana account model here) and keeping the accumulator
// semantics exactly.
package tree

import (
	"sync"

	"github.com/cheng-chun-yuan/zVault-sub001/crypto"
	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
)

// TreeDepth is the nominal depth; MaxLeaves = 2^TreeDepth bounds next_index.
const TreeDepth = 20

// MaxLeaves is the maximum number of leaves the tree accepts.
const MaxLeaves = 1 << TreeDepth

// RootHistorySize is the number of historical roots retained for the
// bounded-freshness window honest clients build proofs against.
const RootHistorySize = 100

// Tree is the singleton commitment-tree accumulator.
type Tree struct {
	mu sync.RWMutex

	currentRoot      [32]byte
	nextIndex        uint64
	rootHistory      [RootHistorySize][32]byte
	rootHistoryIndex uint32
}

// New returns an empty tree. The empty-tree root is the field zero element.
func New() *Tree {
	return &Tree{}
}

// CurrentRoot returns the tree's current accumulator root.
func (t *Tree) CurrentRoot() [32]byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.currentRoot
}

// NextIndex returns the number of leaves inserted so far.
func (t *Tree) NextIndex() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextIndex
}

// HasCapacity reports whether the tree can accept at least one more leaf.
func (t *Tree) HasCapacity() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextIndex < MaxLeaves
}

// Insert adds a new leaf commitment and returns the index it was inserted
// at. The canonical update is current_root := Poseidon2(current_root, leaf);
// this is the normative reference the ZK circuit must match bit-for-bit, so
// implementers must not substitute any other combination rule.
func (t *Tree) Insert(commitment [32]byte) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.nextIndex >= MaxLeaves {
		return 0, poolerr.ErrTreeFull
	}

	index := t.nextIndex
	newRoot := crypto.Poseidon2(t.currentRoot, commitment)
	t.pushHistory(t.currentRoot)
	t.currentRoot = newRoot
	t.nextIndex = index + 1

	return index, nil
}

// InsertMany inserts a sequence of leaves atomically with respect to the
// tree's own lock, failing (and leaving the tree unchanged) if capacity
// would be exceeded partway through — spec §4.B requires rejecting the
// entire enclosing operation on overflow, e.g. split_commitment's two-leaf
// insert.
func (t *Tree) InsertMany(commitments ...[32]byte) ([]uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if uint64(len(commitments))+t.nextIndex > MaxLeaves {
		return nil, poolerr.ErrTreeCapacityExceeded
	}

	indices := make([]uint64, len(commitments))
	for i, c := range commitments {
		index := t.nextIndex
		newRoot := crypto.Poseidon2(t.currentRoot, c)
		t.pushHistory(t.currentRoot)
		t.currentRoot = newRoot
		t.nextIndex = index + 1
		indices[i] = index
	}
	return indices, nil
}

// pushHistory records root into the ring buffer before it is overwritten.
// Caller must hold t.mu.
func (t *Tree) pushHistory(root [32]byte) {
	t.rootHistory[t.rootHistoryIndex%RootHistorySize] = root
	t.rootHistoryIndex++
}

// IsValidRoot reports whether root is the current root or appears anywhere
// in the bounded history — the freshness window that lets honest clients
// build proofs against a recent root without racing concurrent inserts.
func (t *Tree) IsValidRoot(root [32]byte) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.currentRoot == root {
		return true
	}
	for _, h := range t.rootHistory {
		if h == root {
			return true
		}
	}
	return false
}
