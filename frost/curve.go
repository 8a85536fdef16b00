// Package frost implements the pool program's FROST signer cluster:
// DKG (t-of-n), two-round Taproot-tweaked threshold Schnorr signing, and
// the session/ceremony lifecycle a signer node exposes over HTTP.
//
// The manager/session shape follows threshold.ThresholdManager's singleton
// map+RWMutex style and bridge.BridgeSigner's per-session expiry checks.
// The Schnorr and secret-sharing math is built directly on btcec's curve
// instead of threshold's frost protocol package — see DESIGN.md.
package frost

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

var curve = btcec.S256()

// curveOrder is the secp256k1 scalar field modulus.
func curveOrder() *big.Int { return curve.Params().N }

var one = big.NewInt(1)

// randScalar returns a uniformly random non-zero scalar mod the curve order.
func randScalar() (*big.Int, error) {
	n := curveOrder()
	for {
		k, err := rand.Int(rand.Reader, n)
		if err != nil {
			return nil, err
		}
		if k.Sign() != 0 {
			return k, nil
		}
	}
}

func scalarAdd(a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Add(a, b), curveOrder())
}

func scalarMul(a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Mul(a, b), curveOrder())
}

func scalarSub(a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Sub(a, b), curveOrder())
}

func scalarNeg(a *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Neg(a), curveOrder())
}

func scalarInverse(a *big.Int) *big.Int {
	return new(big.Int).ModInverse(a, curveOrder())
}

// point is an affine secp256k1 point. The zero value is the point at
// infinity (identity element under pointAdd).
type point struct {
	x, y *big.Int
}

func (p point) isInfinity() bool { return p.x == nil || p.y == nil }

var infinity = point{}

func scalarBaseMult(k *big.Int) point {
	x, y := curve.ScalarBaseMult(k.Bytes())
	return point{x, y}
}

func scalarMult(p point, k *big.Int) point {
	if p.isInfinity() {
		return infinity
	}
	x, y := curve.ScalarMult(p.x, p.y, k.Bytes())
	return point{x, y}
}

func pointAdd(a, b point) point {
	if a.isInfinity() {
		return b
	}
	if b.isInfinity() {
		return a
	}
	x, y := curve.Add(a.x, a.y, b.x, b.y)
	return point{x, y}
}

func pointNeg(p point) point {
	if p.isInfinity() {
		return infinity
	}
	return point{p.x, new(big.Int).Sub(curve.Params().P, p.y)}
}

func hasEvenY(p point) bool {
	return p.y.Bit(0) == 0
}

// xOnly returns the 32-byte big-endian x coordinate (BIP-340 x-only key).
func xOnly(p point) [32]byte {
	var out [32]byte
	b := p.x.Bytes()
	copy(out[32-len(b):], b)
	return out
}

var errDecompress = errors.New("frost: invalid compressed point encoding")

// encodePoint serializes p in SEC1 compressed form (33 bytes).
func encodePoint(p point) [33]byte {
	var out [33]byte
	if hasEvenY(p) {
		out[0] = 0x02
	} else {
		out[0] = 0x03
	}
	b := p.x.Bytes()
	copy(out[33-len(b):], b)
	return out
}

// decodePoint parses a SEC1-compressed point, recovering y via the
// p ≡ 3 (mod 4) square-root shortcut secp256k1 admits.
func decodePoint(enc [33]byte) (point, error) {
	if enc[0] != 0x02 && enc[0] != 0x03 {
		return infinity, errDecompress
	}
	p := curve.Params().P
	x := new(big.Int).SetBytes(enc[1:])
	if x.Cmp(p) >= 0 {
		return infinity, errDecompress
	}

	ySq := new(big.Int).Mod(new(big.Int).Mul(x, x), p)
	ySq.Mod(new(big.Int).Mul(ySq, x), p)
	ySq.Add(ySq, big.NewInt(7))
	ySq.Mod(ySq, p)

	exp := new(big.Int).Rsh(new(big.Int).Add(p, one), 2)
	y := new(big.Int).Exp(ySq, exp, p)
	if new(big.Int).Mul(y, y).Mod(new(big.Int).Mul(y, y), p).Cmp(ySq) != 0 {
		return infinity, errDecompress
	}

	wantOdd := enc[0] == 0x03
	if (y.Bit(0) == 1) != wantOdd {
		y = new(big.Int).Sub(p, y)
	}
	if !curve.IsOnCurve(x, y) {
		return infinity, errDecompress
	}
	return point{x, y}, nil
}

// taggedHash is BIP-340's domain-separated hash:
// SHA256(SHA256(tag) || SHA256(tag) || msg...).
func taggedHash(tag string, parts ...[]byte) [32]byte {
	t := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(t[:])
	h.Write(t[:])
	for _, part := range parts {
		h.Write(part)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// tapTweak computes BIP-341's key-path tweak scalar for an internal key
// and the script-tree merkle root it commits to; an empty merkleRoot
// gives the tweak for a key with no script path.
func tapTweak(internalX [32]byte, merkleRoot []byte) *big.Int {
	h := taggedHash("TapTweak", internalX[:], merkleRoot)
	return new(big.Int).Mod(new(big.Int).SetBytes(h[:]), curveOrder())
}
