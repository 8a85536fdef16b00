package pool

import (
	"crypto/rand"
	"testing"

	"github.com/cloudflare/circl/dh/x25519"
)

func TestScannerRecognizesOwnAnnouncement(t *testing.T) {
	var viewPriv, viewPub x25519.Key
	if _, err := rand.Read(viewPriv[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	x25519.KeyGen(&viewPub, &viewPriv)

	var ephPriv, ephPub x25519.Key
	if _, err := rand.Read(ephPriv[:]); err != nil {
		t.Fatalf("rand: %v", err)
	}
	x25519.KeyGen(&ephPub, &ephPriv)

	var expectedShared x25519.Key
	if !x25519.Shared(&expectedShared, &ephPriv, &viewPub) {
		t.Fatal("expected shared secret computation to succeed")
	}

	scanner, err := NewScanner(viewPriv[:])
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	var ephemeralPub [33]byte
	ephemeralPub[0] = 0x02
	copy(ephemeralPub[1:], ephPub[:])

	announcements := []StealthAnnouncement{
		{EphemeralPub: ephemeralPub, AmountSats: 10_000, Commitment: [32]byte{0xAB}},
		{EphemeralPub: [33]byte{0x02, 0xFF}, AmountSats: 1, Commitment: [32]byte{0xCD}},
	}

	matches, err := scanner.Scan(announcements, func(shared [32]byte, a StealthAnnouncement) bool {
		return a.Commitment == [32]byte{0xAB}
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	if matches[0].Announcement.Commitment != [32]byte{0xAB} {
		t.Error("expected the matched announcement to be the one addressed to this scanner")
	}
}

func TestNewScannerRejectsShortKey(t *testing.T) {
	if _, err := NewScanner([]byte{0x01, 0x02}); err != ErrInvalidViewingKey {
		t.Errorf("expected ErrInvalidViewingKey, got %v", err)
	}
}
