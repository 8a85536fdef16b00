package frost

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
)

// KeyShare is what spec §4.F calls a FROST key share: one per signer node,
// never transmitted once DKG completes.
type KeyShare struct {
	Identifier      Identifier
	SigningShare    [32]byte // big-endian scalar
	VerifyingShare  [33]byte // compressed point
	GroupPublicKey  [33]byte // compressed point
	Threshold       int
	Total           int
}

// Round1Package is a DKG participant's broadcast package: commitments to
// every coefficient of its secret polynomial, plus a Schnorr
// proof-of-possession of the constant term (its secret contribution).
type Round1Package struct {
	Identifier   Identifier
	Commitments  [][33]byte // degree t-1, Commitments[0] = secret*G
	PopR         [33]byte
	PopMu        [32]byte
}

// Round2Packages maps, for one DKG participant, every other participant's
// identifier to the secret share that participant evaluated for us:
// f_sender(us).
type Round2Packages map[Identifier][32]byte

var errPoPFailed = fmt.Errorf("frost: proof-of-possession verification failed")

// ceremony holds one signer node's in-progress view of a DKG.
type ceremony struct {
	mu sync.Mutex

	self      Identifier
	threshold int
	total     int

	coeffs      []*big.Int
	commitments [][33]byte

	round1Done bool
	round2Done bool
}

func newCeremony(self Identifier, threshold, total int) (*ceremony, Round1Package, error) {
	if threshold < 1 || threshold > total {
		return nil, Round1Package{}, poolerr.ErrInvalidEpoch
	}

	coeffs := make([]*big.Int, threshold)
	commitments := make([][33]byte, threshold)
	for i := 0; i < threshold; i++ {
		c, err := randScalar()
		if err != nil {
			return nil, Round1Package{}, err
		}
		coeffs[i] = c
		commitments[i] = encodePoint(scalarBaseMult(c))
	}

	// Proof-of-possession of the constant term (coeffs[0]), bound to self
	// so it cannot be replayed across identifiers. The ceremony ID is not
	// part of the challenge.
	k, err := randScalar()
	if err != nil {
		return nil, Round1Package{}, err
	}
	r := scalarBaseMult(k)
	challenge := popChallenge(self, commitments[0], encodePoint(r))
	mu := scalarAdd(k, scalarMul(coeffs[0], new(big.Int).SetBytes(challenge[:])))

	ce := &ceremony{self: self, threshold: threshold, total: total, coeffs: coeffs, commitments: commitments}

	var muBytes [32]byte
	b := mu.Bytes()
	copy(muBytes[32-len(b):], b)

	pkg := Round1Package{
		Identifier:  self,
		Commitments: commitments,
		PopR:        encodePoint(r),
		PopMu:       muBytes,
	}
	return ce, pkg, nil
}

func popChallenge(id Identifier, constantCommitment, r [33]byte) [32]byte {
	idBytes := id.scalar().Bytes()
	return taggedHash("zVault/frost-dkg-pop", idBytes, constantCommitment[:], r[:])
}

func verifyPoP(pkg Round1Package) error {
	r, err := decodePoint(pkg.PopR)
	if err != nil {
		return err
	}
	constantCommitment, err := decodePoint(pkg.Commitments[0])
	if err != nil {
		return err
	}
	challenge := popChallenge(pkg.Identifier, pkg.Commitments[0], pkg.PopR)
	c := new(big.Int).SetBytes(challenge[:])

	mu := new(big.Int).SetBytes(pkg.PopMu[:])
	lhs := scalarBaseMult(mu)
	rhs := pointAdd(r, scalarMult(constantCommitment, c))
	if lhs.x.Cmp(rhs.x) != 0 || lhs.y.Cmp(rhs.y) != 0 {
		return errPoPFailed
	}
	return nil
}

// evaluatePolynomial returns f(at) for this ceremony's secret polynomial.
func (ce *ceremony) evaluatePolynomial(at Identifier) [32]byte {
	x := at.scalar()
	acc := new(big.Int).Set(ce.coeffs[len(ce.coeffs)-1])
	for i := len(ce.coeffs) - 2; i >= 0; i-- {
		acc = scalarAdd(scalarMul(acc, x), ce.coeffs[i])
	}
	var out [32]byte
	b := acc.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// processRound1 verifies every peer's round-1 package and computes the
// pairwise shares this node sends back to each of them in round 2.
func (ce *ceremony) processRound1(packages map[Identifier]Round1Package) (Round2Packages, error) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	for id, pkg := range packages {
		if len(pkg.Commitments) != ce.threshold {
			return nil, poolerr.ErrInvalidProofLength
		}
		if err := verifyPoP(pkg); err != nil {
			return nil, fmt.Errorf("participant %d: %w", id, err)
		}
	}

	out := make(Round2Packages, len(packages))
	for id := range packages {
		if id == ce.self {
			continue
		}
		out[id] = ce.evaluatePolynomial(id)
	}
	ce.round1Done = true
	return out, nil
}

// finalize combines round-2 shares addressed to this node with every
// participant's round-1 commitments to produce this node's KeyShare.
// All honest participants must derive the same GroupPublicKey (DKG
// agreement, spec property 8); callers that gossip group keys after the
// fact can compare them directly.
func (ce *ceremony) finalize(round1Packages map[Identifier]Round1Package, round2Shares Round2Packages) (*KeyShare, error) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	signingShare := ce.evaluatePolynomial(ce.self) // our own share of our own polynomial
	acc := new(big.Int).SetBytes(signingShare[:])
	for id, share := range round2Shares {
		if _, ok := round1Packages[id]; !ok {
			return nil, fmt.Errorf("frost: round2 share from unknown participant %d", id)
		}
		acc = scalarAdd(acc, new(big.Int).SetBytes(share[:]))
	}

	var groupKey, verifyingShare point
	for _, pkg := range round1Packages {
		constantCommitment, err := decodePoint(pkg.Commitments[0])
		if err != nil {
			return nil, err
		}
		groupKey = pointAdd(groupKey, constantCommitment)

		contribution, err := evaluateCommitmentPolynomial(pkg.Commitments, ce.self)
		if err != nil {
			return nil, err
		}
		verifyingShare = pointAdd(verifyingShare, contribution)
	}

	var signingShareOut [32]byte
	b := acc.Bytes()
	copy(signingShareOut[32-len(b):], b)

	ce.round2Done = true

	return &KeyShare{
		Identifier:     ce.self,
		SigningShare:   signingShareOut,
		VerifyingShare: encodePoint(verifyingShare),
		GroupPublicKey: encodePoint(groupKey),
		Threshold:      ce.threshold,
		Total:          ce.total,
	}, nil
}

// evaluateCommitmentPolynomial computes Σ commitments[k] * at^k, the public
// evaluation of a participant's secret polynomial at at, known from
// commitments alone (Feldman VSS verification).
func evaluateCommitmentPolynomial(commitments [][33]byte, at Identifier) (point, error) {
	x := at.scalar()
	xPow := big.NewInt(1)
	var acc point
	for _, enc := range commitments {
		c, err := decodePoint(enc)
		if err != nil {
			return infinity, err
		}
		acc = pointAdd(acc, scalarMult(c, xPow))
		xPow = scalarMul(xPow, x)
	}
	return acc, nil
}
