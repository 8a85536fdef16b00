// Package crypto implements the primitive operations shared by the tree,
// nullifier, pool, and custody packages: SHA-256/double-SHA-256 for Bitcoin
// hashing, Poseidon2 over the BN254 scalar field for the commitment
// accumulator, and the opaque succinct-proof verifier.
package crypto

import "crypto/sha256"

// SHA256 is the standard SHA-256 digest.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// DoubleSHA256 is Bitcoin's standard hash: SHA-256 applied twice. Used for
// txids, block hashes, and merkle tree nodes.
func DoubleSHA256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// DoubleSHA256Pair double-SHA256s two concatenated 32-byte values, the
// Bitcoin merkle tree node combination rule.
func DoubleSHA256Pair(left, right [32]byte) [32]byte {
	var combined [64]byte
	copy(combined[0:32], left[:])
	copy(combined[32:64], right[:])
	return DoubleSHA256(combined[:])
}

// HashMeetsTarget reports whether hash <= target under Bitcoin's
// little-endian proof-of-work comparison (most significant byte last).
func HashMeetsTarget(hash, target [32]byte) bool {
	for i := 31; i >= 0; i-- {
		if hash[i] > target[i] {
			return false
		}
		if hash[i] < target[i] {
			return true
		}
	}
	return true
}
