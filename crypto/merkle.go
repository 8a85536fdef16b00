package crypto

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// VerifyMerklePath checks a log-depth indexed Merkle inclusion proof over
// Poseidon2: at each level the running index's low bit selects whether leaf
// (or the accumulated hash) is the left or right child before combining
// with the supplied sibling. Even index = left child, matching spec §4.A.
//
// This is a standalone primitive, distinct from tree.Tree: the on-chain
// commitment tree (spec §4.B) is a sequential fold and never produces or
// checks sibling paths against its own canonical root. VerifyMerklePath
// exists for callers — circuits, off-chain provers — that reconstruct an
// indexed view of the tree independently.
func VerifyMerklePath(leaf [32]byte, index uint64, siblings [][32]byte, root [32]byte) bool {
	current := leaf
	idx := index
	for _, sibling := range siblings {
		if idx&1 == 0 {
			current = Poseidon2(current, sibling)
		} else {
			current = Poseidon2(sibling, current)
		}
		idx >>= 1
	}
	return current == root
}

// VerifyBitcoinMerkle checks a Bitcoin block merkle inclusion proof: same
// shape as VerifyMerklePath but combining with DoubleSHA256Pair and
// operating on chainhash.Hash (internal, little-endian byte order) rather
// than field elements.
func VerifyBitcoinMerkle(txid chainhash.Hash, index uint32, siblings []chainhash.Hash, root chainhash.Hash) bool {
	current := [32]byte(txid)
	idx := index
	for _, sibling := range siblings {
		s := [32]byte(sibling)
		if idx&1 == 0 {
			current = DoubleSHA256Pair(current, s)
		} else {
			current = DoubleSHA256Pair(s, current)
		}
		idx >>= 1
	}
	return chainhash.Hash(current) == root
}
