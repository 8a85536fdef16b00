package frost

import (
	"errors"
	"math/big"
	"os"
)

// Signer is the narrow capability lifecycle coordinators consume: a
// public key plus sign / sign-with-tweak. Single-key and FROST
// implementations inhabit the same contract (spec §9 redesign note);
// production wiring must always use the FROST-backed Coordinator.
type Signer interface {
	PublicKey() [32]byte
	Sign(sigHash [32]byte) ([64]byte, error)
	SignTweaked(sigHash [32]byte, tweak [32]byte) ([64]byte, error)
}

// ErrMainnetRequiresFrost guards LocalSigner from running in production:
// a single key has none of FROST's compromise tolerance.
var ErrMainnetRequiresFrost = errors.New("frost: LocalSigner refuses to run with ZVAULT_NETWORK=mainnet")

// LocalSigner is a single secp256k1 key standing in for the whole signer
// cluster, for local development only.
type LocalSigner struct {
	priv   *big.Int
	pubX   [32]byte
	pubOdd bool
}

// NewLocalSigner derives a LocalSigner from priv. It refuses to construct
// one when ZVAULT_NETWORK=mainnet, mirroring custody's signer-key
// environment convention.
func NewLocalSigner(priv *big.Int) (*LocalSigner, error) {
	if os.Getenv("ZVAULT_NETWORK") == "mainnet" {
		return nil, ErrMainnetRequiresFrost
	}
	pub := scalarBaseMult(priv)
	return &LocalSigner{priv: priv, pubX: xOnly(pub), pubOdd: !hasEvenY(pub)}, nil
}

func (s *LocalSigner) PublicKey() [32]byte { return s.pubX }

func (s *LocalSigner) Sign(sigHash [32]byte) ([64]byte, error) {
	return s.sign(sigHash, nil)
}

func (s *LocalSigner) SignTweaked(sigHash [32]byte, tweak [32]byte) ([64]byte, error) {
	return s.sign(sigHash, &tweak)
}

func (s *LocalSigner) sign(sigHash [32]byte, tweak *[32]byte) ([64]byte, error) {
	d := new(big.Int).Set(s.priv)
	pubX := s.pubX
	if s.pubOdd {
		d = scalarNeg(d)
	}

	if tweak != nil {
		t := tapTweak(pubX, tweak[:])
		tweakedPub := pointAdd(scalarBaseMult(d), scalarBaseMult(t))
		d = scalarAdd(d, t)
		if !hasEvenY(tweakedPub) {
			d = scalarNeg(d)
		}
		pubX = xOnly(tweakedPub)
		if !hasEvenY(tweakedPub) {
			pubX = xOnly(pointNeg(tweakedPub))
		}
	}

	k, err := randScalar()
	if err != nil {
		return [64]byte{}, err
	}
	r := scalarBaseMult(k)
	if !hasEvenY(r) {
		k = scalarNeg(k)
		r = pointNeg(r)
	}

	challenge := taggedHash("BIP0340/challenge", xOnly(r)[:], pubX[:], sigHash[:])
	c := new(big.Int).Mod(new(big.Int).SetBytes(challenge[:]), curveOrder())

	z := scalarAdd(k, scalarMul(c, d))

	var sig [64]byte
	rx := xOnly(r)
	copy(sig[:32], rx[:])
	b := z.Bytes()
	copy(sig[64-len(b):], b)
	return sig, nil
}

// NewRandomPrivateKey returns a uniformly random secp256k1 scalar; the
// frost tests use it to build a LocalSigner.
func NewRandomPrivateKey() (*big.Int, error) {
	return randScalar()
}
