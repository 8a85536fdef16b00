package crypto

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func TestVerifyMerklePathSingleLevel(t *testing.T) {
	leaf := [32]byte{0xAA}
	sibling := [32]byte{0xBB}

	// index 0 (even): leaf is the left child
	root := Poseidon2(leaf, sibling)
	if !VerifyMerklePath(leaf, 0, [][32]byte{sibling}, root) {
		t.Error("expected valid merkle path (leaf as left child) to verify")
	}

	// index 1 (odd): leaf is the right child
	root2 := Poseidon2(sibling, leaf)
	if !VerifyMerklePath(leaf, 1, [][32]byte{sibling}, root2) {
		t.Error("expected valid merkle path (leaf as right child) to verify")
	}
}

func TestVerifyMerklePathRejectsWrongRoot(t *testing.T) {
	leaf := [32]byte{0xAA}
	sibling := [32]byte{0xBB}
	wrongRoot := [32]byte{0xCC}

	if VerifyMerklePath(leaf, 0, [][32]byte{sibling}, wrongRoot) {
		t.Error("expected mismatched root to fail verification")
	}
}

func TestVerifyMerklePathMultiLevel(t *testing.T) {
	leaf := [32]byte{0x01}
	s0 := [32]byte{0x02}
	s1 := [32]byte{0x03}
	s2 := [32]byte{0x04}

	index := uint64(5) // binary 101

	// Build root by replaying the same combination rule the function uses.
	current := leaf
	idx := index
	siblings := [][32]byte{s0, s1, s2}
	for _, s := range siblings {
		if idx&1 == 0 {
			current = Poseidon2(current, s)
		} else {
			current = Poseidon2(s, current)
		}
		idx >>= 1
	}

	if !VerifyMerklePath(leaf, index, siblings, current) {
		t.Error("expected multi-level merkle path to verify against its own construction")
	}
}

func TestVerifyBitcoinMerkle(t *testing.T) {
	txid := chainhash.Hash{0x01}
	sibling := chainhash.Hash{0x02}

	root := chainhash.Hash(DoubleSHA256Pair([32]byte(txid), [32]byte(sibling)))

	if !VerifyBitcoinMerkle(txid, 0, []chainhash.Hash{sibling}, root) {
		t.Error("expected valid bitcoin merkle path to verify")
	}

	if VerifyBitcoinMerkle(txid, 0, []chainhash.Hash{sibling}, chainhash.Hash{0xFF}) {
		t.Error("expected mismatched bitcoin merkle root to fail")
	}
}
