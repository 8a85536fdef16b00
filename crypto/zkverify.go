package crypto

import (
	"math/big"

	"github.com/luxfi/crypto/bn256"
)

// VerifyingKey is the Groth16 verifying key in the proof system's native
// G1/G2 point encoding, matching the Sunspot/Noir proof layout carried over
// from the original source's groth16.rs (alpha/beta/gamma/delta + IC).
type VerifyingKey struct {
	Alpha []byte // G1
	Beta  []byte // G2
	Gamma []byte // G2
	Delta []byte // G2
	IC    [][]byte // G1 points, one per public input plus one constant term
}

// Proof is a Groth16 proof: the (A, B, C) group elements.
type Proof struct {
	A []byte // G1
	B []byte // G2
	C []byte // G1
}

// VerifyZK is the opaque succinct-proof verifier spec §4.A names as
// verify(vk, proof, public_inputs) -> bool. Treated as a black box by every
// caller in pool: the circuit and trusted setup live outside this repo's
// scope; this function only has to agree with them on the Groth16 pairing
// equation and proof wire format.
func VerifyZK(vk VerifyingKey, proof Proof, publicInputs []*big.Int) (bool, error) {
	var a bn256.G1
	if _, err := a.Unmarshal(proof.A); err != nil {
		return false, err
	}
	var b bn256.G2
	if _, err := b.Unmarshal(proof.B); err != nil {
		return false, err
	}
	var c bn256.G1
	if _, err := c.Unmarshal(proof.C); err != nil {
		return false, err
	}

	var alpha bn256.G1
	if _, err := alpha.Unmarshal(vk.Alpha); err != nil {
		return false, err
	}
	var beta bn256.G2
	if _, err := beta.Unmarshal(vk.Beta); err != nil {
		return false, err
	}
	var gamma bn256.G2
	if _, err := gamma.Unmarshal(vk.Gamma); err != nil {
		return false, err
	}
	var delta bn256.G2
	if _, err := delta.Unmarshal(vk.Delta); err != nil {
		return false, err
	}

	if len(vk.IC) < 1 || len(publicInputs) != len(vk.IC)-1 {
		return false, ErrInvalidPublicInputCount
	}

	ic := make([]*bn256.G1, len(vk.IC))
	for i, icBytes := range vk.IC {
		ic[i] = new(bn256.G1)
		if _, err := ic[i].Unmarshal(icBytes); err != nil {
			return false, err
		}
	}

	// vk_x = IC[0] + sum(publicInputs[i] * IC[i+1])
	vkX := new(bn256.G1)
	vkX.ScalarMult(ic[0], big.NewInt(1))
	for i, input := range publicInputs {
		term := new(bn256.G1)
		term.ScalarMult(ic[i+1], input)
		vkX.Add(vkX, term)
	}

	negAlpha := new(bn256.G1)
	negAlpha.ScalarMult(&alpha, big.NewInt(-1))
	negVkX := new(bn256.G1)
	negVkX.ScalarMult(vkX, big.NewInt(-1))
	negC := new(bn256.G1)
	negC.ScalarMult(&c, big.NewInt(-1))

	g1Points := []*bn256.G1{&a, negAlpha, negVkX, negC}
	g2Points := []*bn256.G2{&b, &beta, &gamma, &delta}

	return PairingCheck(g1Points, g2Points), nil
}

// PairingCheck wraps the BN254 multi-pairing check used by VerifyZK: it
// returns true iff the product of e(g1Points[i], g2Points[i]) over all i is
// the identity in GT. Spec §4.A names this bn254_pairing_check.
func PairingCheck(g1Points []*bn256.G1, g2Points []*bn256.G2) bool {
	return bn256.PairingCheck(g1Points, g2Points)
}
