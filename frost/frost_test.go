package frost

import (
	"testing"
)

// runDKG executes the full 3-round ceremony described in spec §4.F.1
// across n in-process Managers and returns each one's resulting KeyShare.
func runDKG(t *testing.T, threshold, total int) map[Identifier]*KeyShare {
	t.Helper()

	managers := make(map[Identifier]*Manager, total)
	for i := 1; i <= total; i++ {
		managers[Identifier(i)] = NewManager(Identifier(i))
	}

	ceremonyID := [32]byte{0xAA}

	round1 := make(map[Identifier]Round1Package, total)
	for id, m := range managers {
		pkg, err := m.DKGRound1(ceremonyID, threshold, total)
		if err != nil {
			t.Fatalf("signer %d DKGRound1: %v", id, err)
		}
		round1[id] = pkg
	}

	// round2: every signer computes a share for every other signer.
	round2Sent := make(map[Identifier]Round2Packages, total)
	for id, m := range managers {
		shares, err := m.DKGRound2(ceremonyID, round1)
		if err != nil {
			t.Fatalf("signer %d DKGRound2: %v", id, err)
		}
		round2Sent[id] = shares
	}

	keys := make(map[Identifier]*KeyShare, total)
	for id, m := range managers {
		incoming := make(Round2Packages, total-1)
		for senderID, sent := range round2Sent {
			if senderID == id {
				continue
			}
			incoming[senderID] = sent[id]
		}
		key, err := m.DKGFinalize(ceremonyID, round1, incoming)
		if err != nil {
			t.Fatalf("signer %d DKGFinalize: %v", id, err)
		}
		keys[id] = key
	}
	return keys
}

func TestDKGAgreement(t *testing.T) {
	// Property 8: all honest signers terminate with the identical
	// group_public_key.
	keys := runDKG(t, 2, 3)
	want := keys[1].GroupPublicKey
	for id, k := range keys {
		if k.GroupPublicKey != want {
			t.Errorf("signer %d group public key diverged", id)
		}
	}
}

// runSigning drives round1/round2 across the given signer subset using
// each signer's already-derived KeyShare, and returns the combined
// signature plus the x-only key it verifies under.
func runSigning(t *testing.T, keys map[Identifier]*KeyShare, signers []Identifier, sigHash [32]byte, tweak *[32]byte) ([64]byte, [32]byte) {
	t.Helper()

	sessions := make(map[Identifier]*Manager, len(signers))
	for _, id := range signers {
		m := NewManager(id)
		m.keyShare = keys[id]
		sessions[id] = m
	}

	sessionID := [32]byte{0x42}
	commitments := make(map[Identifier]NonceCommitment, len(signers))
	for _, id := range signers {
		c, err := sessions[id].SignRound1(sessionID, sigHash, tweak)
		if err != nil {
			t.Fatalf("signer %d SignRound1: %v", id, err)
		}
		commitments[id] = c
	}

	shares := make(map[Identifier][32]byte, len(signers))
	for _, id := range signers {
		share, err := sessions[id].SignRound2(sessionID, commitments)
		if err != nil {
			t.Fatalf("signer %d SignRound2: %v", id, err)
		}
		shares[id] = share
	}

	groupKey := keys[signers[0]].GroupPublicKey
	sig, tweakedX, err := CombineSignatureShares(sigHash, tweak, commitments, shares, groupKey)
	if err != nil {
		t.Fatalf("CombineSignatureShares: %v", err)
	}
	return sig, tweakedX
}

func TestFrost2of3SigningNoTweak(t *testing.T) {
	keys := runDKG(t, 2, 3)
	sigHash := [32]byte{}
	for i := range sigHash {
		sigHash[i] = 0x42
	}

	sig, groupX := runSigning(t, keys, []Identifier{1, 2}, sigHash, nil)
	if !VerifySchnorr(groupX, sigHash, sig) {
		t.Error("expected aggregated signature to verify under untweaked group key")
	}
}

func TestFrost2of3SigningWithTaprootTweak(t *testing.T) {
	// S4 — FROST 2-of-3: signers 1 and 2 jointly sign with a tweak; signer
	// 3 is never contacted; the signature verifies under the tweaked key.
	keys := runDKG(t, 2, 3)
	sigHash := [32]byte{}
	for i := range sigHash {
		sigHash[i] = 0x42
	}
	tweak := [32]byte{0x01, 0x02, 0x03}

	sig, tweakedX := runSigning(t, keys, []Identifier{1, 2}, sigHash, &tweak)
	if !VerifySchnorr(tweakedX, sigHash, sig) {
		t.Error("expected aggregated signature to verify under the tweaked group key")
	}

	// The same signature must not verify under the untweaked group key.
	untweakedX := xOnly(mustDecodePoint(t, keys[1].GroupPublicKey))
	if VerifySchnorr(untweakedX, sigHash, sig) {
		t.Error("expected signature to be invalid under the untweaked group key")
	}
}

func TestFrostDifferentSignerSubsetsAgree(t *testing.T) {
	// Any t-of-n honest subset must produce a valid signature under the
	// same group key (spec property 6).
	keys := runDKG(t, 2, 3)
	sigHash := [32]byte{0x07}

	sigA, keyA := runSigning(t, keys, []Identifier{1, 2}, sigHash, nil)
	sigB, keyB := runSigning(t, keys, []Identifier{1, 3}, sigHash, nil)

	if keyA != keyB {
		t.Fatal("expected both signer subsets to produce the same tweaked key output")
	}
	if !VerifySchnorr(keyA, sigHash, sigA) {
		t.Error("signers {1,2} signature does not verify")
	}
	if !VerifySchnorr(keyB, sigHash, sigB) {
		t.Error("signers {1,3} signature does not verify")
	}
}

func TestSignSessionRejectsDuplicateRound1(t *testing.T) {
	keys := runDKG(t, 2, 3)
	m := NewManager(1)
	m.keyShare = keys[1]

	sessionID := [32]byte{0x99}
	sigHash := [32]byte{0x01}
	if _, err := m.SignRound1(sessionID, sigHash, nil); err != nil {
		t.Fatalf("first SignRound1: %v", err)
	}
	if _, err := m.SignRound1(sessionID, sigHash, nil); err == nil {
		t.Error("expected duplicate session_id round1 to be rejected")
	}
}

func TestLocalSignerSelfConsistent(t *testing.T) {
	priv, err := NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey: %v", err)
	}
	signer, err := NewLocalSigner(priv)
	if err != nil {
		t.Fatalf("NewLocalSigner: %v", err)
	}

	sigHash := [32]byte{0x55}
	sig, err := signer.Sign(sigHash)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !VerifySchnorr(signer.PublicKey(), sigHash, sig) {
		t.Error("expected LocalSigner signature to verify against its own public key")
	}
}

func mustDecodePoint(t *testing.T, enc [33]byte) point {
	t.Helper()
	p, err := decodePoint(enc)
	if err != nil {
		t.Fatalf("decodePoint: %v", err)
	}
	return p
}
