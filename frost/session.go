package frost

import (
	"math/big"
	"sort"
	"time"

	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
)

// NonceCommitment is the pair of hiding/binding nonce commitments a signer
// publishes in round 1 of signing.
type NonceCommitment struct {
	Hiding  [33]byte
	Binding [33]byte
}

// signSession is one signer node's per-session nonce state. It is held only
// in memory and deleted after round 2 or after sessionTTL elapses, per
// spec §4.F: "a crash between round 1 and round 2 is recovered by aborting
// the session (no silent replay of nonces is ever permitted)."
type signSession struct {
	sessionID [32]byte
	sigHash   [32]byte
	tweak     *[32]byte
	createdAt time.Time

	hidingNonce  *big.Int
	bindingNonce *big.Int
	commitment   NonceCommitment
	round2Done   bool
}

func newSignSession(sessionID, sigHash [32]byte, tweak *[32]byte) (*signSession, error) {
	hiding, err := randScalar()
	if err != nil {
		return nil, err
	}
	binding, err := randScalar()
	if err != nil {
		return nil, err
	}
	return &signSession{
		sessionID:    sessionID,
		sigHash:      sigHash,
		tweak:        tweak,
		createdAt:    time.Now(),
		hidingNonce:  hiding,
		bindingNonce: binding,
		commitment: NonceCommitment{
			Hiding:  encodePoint(scalarBaseMult(hiding)),
			Binding: encodePoint(scalarBaseMult(binding)),
		},
	}, nil
}

// bindingFactor is FROST's rho_i: a per-signer scalar binding that signer's
// nonces to the full commitment set and the message, preventing a Wagner's
// algorithm rogue-nonce attack across concurrently signed messages.
func bindingFactor(id Identifier, sigHash [32]byte, commitments map[Identifier]NonceCommitment) *big.Int {
	ids := make([]Identifier, 0, len(commitments))
	for pid := range commitments {
		ids = append(ids, pid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([][]byte, 0, 2+3*len(ids))
	parts = append(parts, sigHash[:])
	for _, pid := range ids {
		c := commitments[pid]
		idBytes := pid.scalar().Bytes()
		parts = append(parts, idBytes, append([]byte(nil), c.Hiding[:]...), append([]byte(nil), c.Binding[:]...))
	}
	parts = append(parts, id.scalar().Bytes())

	digest := taggedHash("zVault/frost-binding", parts...)
	return new(big.Int).Mod(new(big.Int).SetBytes(digest[:]), curveOrder())
}

// groupCommitment computes R = Σ (D_i + rho_i·E_i) over the participating
// signer set, before any Taproot tweak parity correction is applied.
func groupCommitment(sigHash [32]byte, commitments map[Identifier]NonceCommitment) (point, error) {
	var r point
	for id, c := range commitments {
		d, err := decodePoint(c.Hiding)
		if err != nil {
			return infinity, err
		}
		e, err := decodePoint(c.Binding)
		if err != nil {
			return infinity, err
		}
		rho := bindingFactor(id, sigHash, commitments)
		r = pointAdd(r, pointAdd(d, scalarMult(e, rho)))
	}
	return r, nil
}

// round2 computes this session's BIP-340 Schnorr signature share.
//
// The group public key is tweaked per BIP-341 key-path spending
// (spec §4.F.2: "applied via add_xonly_tweak(keypair, tweak_scalar) so the
// resulting aggregate signature is valid under the tweaked output key").
// Exactly one signer — deterministically, the lowest identifier in the
// session — folds the tweak contribution into its share so the sum over
// all shares accounts for it exactly once.
func (s *signSession) round2(self Identifier, commitments map[Identifier]NonceCommitment, key *KeyShare, signerSet []Identifier) ([32]byte, error) {
	if s.round2Done {
		return [32]byte{}, poolerr.ErrInvalidRedemptionState
	}
	if _, ok := commitments[self]; !ok {
		return [32]byte{}, poolerr.ErrUnauthorized
	}

	groupKey, err := decodePoint(key.GroupPublicKey)
	if err != nil {
		return [32]byte{}, err
	}

	tweak := new(big.Int)
	tweakedKey := groupKey
	if s.tweak != nil {
		internalX := xOnly(groupKey)
		tweak = tapTweak(internalX, s.tweak[:])
		tweakedKey = pointAdd(groupKey, scalarBaseMult(tweak))
	}
	negateKey := !hasEvenY(tweakedKey)
	if negateKey {
		tweakedKey = pointNeg(tweakedKey)
	}

	r, err := groupCommitment(s.sigHash, commitments)
	if err != nil {
		return [32]byte{}, err
	}
	negateR := !hasEvenY(r)
	if negateR {
		r = pointNeg(r)
	}

	challenge := taggedHash("BIP0340/challenge", xOnly(r)[:], xOnly(tweakedKey)[:], s.sigHash[:])
	c := new(big.Int).Mod(new(big.Int).SetBytes(challenge[:]), curveOrder())

	rho := bindingFactor(self, s.sigHash, commitments)
	hidingNonce, bindingNonce := s.hidingNonce, s.bindingNonce
	if negateR {
		hidingNonce, bindingNonce = scalarNeg(hidingNonce), scalarNeg(bindingNonce)
	}

	lambda := lagrangeCoefficient(self, signerSet)
	signingShare := new(big.Int).SetBytes(key.SigningShare[:])
	if negateKey {
		signingShare = scalarNeg(signingShare)
	}

	z := scalarAdd(hidingNonce, scalarMul(bindingNonce, rho))
	z = scalarAdd(z, scalarMul(lambda, scalarMul(signingShare, c)))

	if s.tweak != nil && isLowestIdentifier(self, signerSet) {
		tweakTerm := tweak
		if negateKey {
			tweakTerm = scalarNeg(tweak)
		}
		z = scalarAdd(z, scalarMul(tweakTerm, c))
	}

	s.round2Done = true

	var out [32]byte
	b := z.Bytes()
	copy(out[32-len(b):], b)
	return out, nil
}

func isLowestIdentifier(self Identifier, set []Identifier) bool {
	for _, id := range set {
		if id < self {
			return false
		}
	}
	return true
}

// CombineSignatureShares sums the per-signer shares into the final 64-byte
// BIP-340 signature (R || s), the step the coordinator performs after
// collecting ≥t shares. It also returns the tweaked group key the
// signature verifies under.
func CombineSignatureShares(sigHash [32]byte, tweak *[32]byte, commitments map[Identifier]NonceCommitment, shares map[Identifier][32]byte, groupPublicKey [33]byte) ([64]byte, [32]byte, error) {
	groupKey, err := decodePoint(groupPublicKey)
	if err != nil {
		return [64]byte{}, [32]byte{}, err
	}
	tweakedKey := groupKey
	if tweak != nil {
		tweakedKey = pointAdd(groupKey, scalarBaseMult(tapTweak(xOnly(groupKey), tweak[:])))
	}
	if !hasEvenY(tweakedKey) {
		tweakedKey = pointNeg(tweakedKey)
	}

	r, err := groupCommitment(sigHash, commitments)
	if err != nil {
		return [64]byte{}, [32]byte{}, err
	}
	if !hasEvenY(r) {
		r = pointNeg(r)
	}

	z := new(big.Int)
	for _, share := range shares {
		z = scalarAdd(z, new(big.Int).SetBytes(share[:]))
	}

	var sig [64]byte
	rx := xOnly(r)
	copy(sig[:32], rx[:])
	b := z.Bytes()
	copy(sig[64-len(b):], b)

	return sig, xOnly(tweakedKey), nil
}

// VerifySchnorr checks a 64-byte BIP-340 signature against an x-only
// public key and message.
func VerifySchnorr(pubKeyX [32]byte, sigHash [32]byte, sig [64]byte) bool {
	x := new(big.Int).SetBytes(pubKeyX[:])
	ySq := new(big.Int).Exp(x, big.NewInt(3), curve.Params().P)
	ySq.Add(ySq, big.NewInt(7))
	ySq.Mod(ySq, curve.Params().P)
	exp := new(big.Int).Rsh(new(big.Int).Add(curve.Params().P, one), 2)
	y := new(big.Int).Exp(ySq, exp, curve.Params().P)
	if y.Bit(0) == 1 {
		y = new(big.Int).Sub(curve.Params().P, y)
	}
	if !curve.IsOnCurve(x, y) {
		return false
	}
	pubKey := point{x, y}

	rx := new(big.Int).SetBytes(sig[:32])
	if rx.Cmp(curve.Params().P) >= 0 {
		return false
	}
	s := new(big.Int).SetBytes(sig[32:])
	if s.Cmp(curveOrder()) >= 0 {
		return false
	}

	challenge := taggedHash("BIP0340/challenge", sig[:32], pubKeyX[:], sigHash[:])
	c := new(big.Int).Mod(new(big.Int).SetBytes(challenge[:]), curveOrder())

	lhs := scalarBaseMult(s)
	rhs := pointAdd(pointFromX(rx), scalarMult(pubKey, c))
	return !rhs.isInfinity() && lhs.x.Cmp(rhs.x) == 0 && lhs.y.Cmp(rhs.y) == 0
}

// pointFromX recovers the even-y point for a BIP-340 x-only coordinate.
func pointFromX(x *big.Int) point {
	p := curve.Params().P
	ySq := new(big.Int).Exp(x, big.NewInt(3), p)
	ySq.Add(ySq, big.NewInt(7))
	ySq.Mod(ySq, p)
	exp := new(big.Int).Rsh(new(big.Int).Add(p, one), 2)
	y := new(big.Int).Exp(ySq, exp, p)
	if y.Bit(0) == 1 {
		y = new(big.Int).Sub(p, y)
	}
	if !curve.IsOnCurve(x, y) {
		return infinity
	}
	return point{x, y}
}
