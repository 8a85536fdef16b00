package frost

import "math/big"

// Identifier is a FROST participant identifier. Non-zero per spec §4.F;
// signer nodes are conventionally numbered 1..total.
type Identifier uint32

func (id Identifier) scalar() *big.Int {
	return new(big.Int).SetUint64(uint64(id))
}

// lagrangeCoefficient computes L_id(0) for the polynomial interpolated
// over set, evaluated at x=0 — the weight id's share contributes to the
// group secret when combined with the shares of every other member of set.
func lagrangeCoefficient(id Identifier, set []Identifier) *big.Int {
	num := big.NewInt(1)
	den := big.NewInt(1)
	idx := id.scalar()

	for _, j := range set {
		if j == id {
			continue
		}
		jx := j.scalar()
		num = scalarMul(num, jx)
		den = scalarMul(den, scalarSub(jx, idx))
	}
	return scalarMul(num, scalarInverse(den))
}
