package crypto

import (
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// poseidon2HasherFactory mirrors the Merkle-Damgard construction the
// gnark-crypto poseidon2 package exposes; kept as a var, not a direct call,
// so tests can swap it out.
var poseidon2HasherFactory = poseidon2.NewMerkleDamgardHasher

// Poseidon2 computes the two-input Poseidon2 hash over the BN254 scalar
// field Fr, used by both the commitment tree accumulator (spec §4.B) and
// verify_merkle_path (spec §4.A). Inputs exceeding the field modulus are
// reduced automatically by fr.Element.SetBytes; this is required, not
// best-effort, since every consumer must agree on the reduced value.
func Poseidon2(left, right [32]byte) [32]byte {
	var l, r fr.Element
	l.SetBytes(left[:])
	r.SetBytes(right[:])

	lBytes := l.Bytes()
	rBytes := r.Bytes()

	hasher := poseidon2HasherFactory()
	hasher.Write(lBytes[:])
	hasher.Write(rBytes[:])

	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// zeroHashesOnce guards lazy computation of the recursive Poseidon2 chain
// over zero leaves, precomputed rather than hand-carried as a placeholder
// all-zero array (see DESIGN.md, Open Question 2).
var (
	zeroHashesOnce sync.Once
	zeroHashes     [20][32]byte
)

// ZeroHashes returns the 20-level chain of "empty subtree" digests:
// ZeroHashes()[0] is the field-zero leaf, and ZeroHashes()[i] is
// Poseidon2(ZeroHashes()[i-1], ZeroHashes()[i-1]) for i > 0. Used by
// verify_merkle_path callers that need a stand-in for an absent sibling at
// a given tree level.
func ZeroHashes() [20][32]byte {
	zeroHashesOnce.Do(func() {
		zeroHashes[0] = [32]byte{}
		for i := 1; i < len(zeroHashes); i++ {
			zeroHashes[i] = Poseidon2(zeroHashes[i-1], zeroHashes[i-1])
		}
	})
	return zeroHashes
}
