package crypto

import (
	"math/big"
	"testing"

	"github.com/luxfi/crypto/bn256"
)

func TestPairingCheckEmpty(t *testing.T) {
	// e() over an empty product is the identity; mirrors the teacher's own
	// pairing-check sanity test.
	if !PairingCheck([]*bn256.G1{}, []*bn256.G2{}) {
		t.Error("expected empty pairing check to return true")
	}
}

func TestVerifyZKInfinityPoints(t *testing.T) {
	g1Infinity := make([]byte, 64)
	g2Infinity := make([]byte, 128)

	vk := VerifyingKey{
		Alpha: g1Infinity,
		Beta:  g2Infinity,
		Gamma: g2Infinity,
		Delta: g2Infinity,
		IC:    [][]byte{g1Infinity, g1Infinity},
	}
	proof := Proof{A: g1Infinity, B: g2Infinity, C: g1Infinity}

	ok, err := VerifyZK(vk, proof, []*big.Int{big.NewInt(0)})
	if err != nil {
		t.Fatalf("VerifyZK returned error: %v", err)
	}
	// Identity points satisfy the pairing equation trivially; this checks
	// wire parsing and the arithmetic path complete without error.
	if !ok {
		t.Error("expected infinity-point proof to satisfy the pairing equation")
	}
}

func TestVerifyZKPublicInputCountMismatch(t *testing.T) {
	g1Infinity := make([]byte, 64)
	g2Infinity := make([]byte, 128)

	vk := VerifyingKey{
		Alpha: g1Infinity,
		Beta:  g2Infinity,
		Gamma: g2Infinity,
		Delta: g2Infinity,
		IC:    [][]byte{g1Infinity, g1Infinity, g1Infinity},
	}
	proof := Proof{A: g1Infinity, B: g2Infinity, C: g1Infinity}

	_, err := VerifyZK(vk, proof, []*big.Int{big.NewInt(1)})
	if err != ErrInvalidPublicInputCount {
		t.Errorf("expected ErrInvalidPublicInputCount, got %v", err)
	}
}

func TestVerifyZKMalformedProof(t *testing.T) {
	vk := VerifyingKey{
		Alpha: make([]byte, 64),
		Beta:  make([]byte, 128),
		Gamma: make([]byte, 128),
		Delta: make([]byte, 128),
		IC:    [][]byte{make([]byte, 64)},
	}
	proof := Proof{A: []byte("not a point"), B: make([]byte, 128), C: make([]byte, 64)}

	_, err := VerifyZK(vk, proof, nil)
	if err == nil {
		t.Error("expected malformed proof bytes to fail unmarshal")
	}
}
