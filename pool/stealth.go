package pool

import (
	"crypto/sha256"
	"errors"

	"github.com/cloudflare/circl/dh/x25519"
)

// Scanner implements a recipient's stealth-announcement discovery flow
// (spec §3, Stealth announcement): try ECDH against a viewing key for
// every announcement and recognize the ones whose derived commitment
// matches. Grounded on original_source's announce_stealth.rs doc comment
// describing the five-step scanning flow, simplified from its Grumpkin/
// stealthPub construction to a single shared-secret-to-commitment binding
// appropriate for this package's opaque Commitment type. Uses
// circl/dh/x25519 rather than stdlib crypto/ecdh, the same X25519 KEM
// family the teacher's hpke package wraps for its KEMX25519 operations.
//
// Scan never returns an error for a non-match; a caller filters the
// zero-length result instead, the same way a real recipient never learns
// which announcements were meant for someone else.
var ErrInvalidViewingKey = errors.New("pool: invalid viewing key length")

// Scanner holds a recipient's viewing private key. It can recognize
// announcements addressed to it but — by design — cannot derive the
// spending nullifier for them; that requires the separate spending key
// spec §3 calls out.
type Scanner struct {
	viewingKey x25519.Key
}

// NewScanner constructs a Scanner from a raw X25519 viewing private key.
func NewScanner(viewingKeyBytes []byte) (*Scanner, error) {
	if len(viewingKeyBytes) != x25519.Size {
		return nil, ErrInvalidViewingKey
	}
	s := &Scanner{}
	copy(s.viewingKey[:], viewingKeyBytes)
	return s, nil
}

// Match is one recognized stealth announcement, paired with the ECDH
// shared secret a caller needs for any further derivation (stealth
// address, memo decryption) the spending-key holder performs separately.
type Match struct {
	Announcement StealthAnnouncement
	SharedSecret [32]byte
}

// Scan tries viewing-key ECDH against every announcement and returns the
// ones whose derived shared-secret hash is bound into the announcement's
// commitment via expectCommitment. expectCommitment is supplied by the
// caller because the exact binding (Poseidon2 vs SHA-256, what else gets
// folded in) is a circuit-level decision spec §4.D's claim/split circuits
// own, not this package.
func (s *Scanner) Scan(announcements []StealthAnnouncement, expectCommitment func(sharedSecret [32]byte, a StealthAnnouncement) bool) ([]Match, error) {
	var matches []Match
	for _, a := range announcements {
		secret, err := s.sharedSecret(a.EphemeralPub)
		if err != nil {
			// A malformed ephemeral key is simply not a match; recipients
			// should not be able to distinguish malformed announcements
			// from ones meant for someone else.
			continue
		}
		if expectCommitment(secret, a) {
			matches = append(matches, Match{Announcement: a, SharedSecret: secret})
		}
	}
	return matches, nil
}

// sharedSecret computes ECDH(viewingPriv, ephemeralPub) and hashes the
// result down to a 32-byte value, the scanning half of the stealth flow.
// The 33-byte compressed ephemeral_pub carries a leading format byte the
// original Grumpkin encoding used for compression; this package only
// needs X25519's 32-byte raw point, so the leading byte is dropped.
func (s *Scanner) sharedSecret(ephemeralPub [33]byte) ([32]byte, error) {
	var pub x25519.Key
	copy(pub[:], ephemeralPub[1:])

	var shared x25519.Key
	if !x25519.Shared(&shared, &s.viewingKey, &pub) {
		return [32]byte{}, errors.New("pool: x25519 shared secret computation failed")
	}
	return sha256.Sum256(shared[:]), nil
}
