package pool

import (
	"testing"
	"time"

	"github.com/cheng-chun-yuan/zVault-sub001/crypto"
	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
)

// identityProof returns a proof and verifying key made of identity
// points, which crypto.VerifyZK accepts for nInputs public inputs.
func identityProof(nInputs int) (crypto.Proof, crypto.VerifyingKey) {
	g1 := make([]byte, 64)
	g2 := make([]byte, 128)
	ic := make([][]byte, nInputs+1)
	for i := range ic {
		ic[i] = g1
	}
	return crypto.Proof{A: g1, B: g2, C: g1}, crypto.VerifyingKey{Alpha: g1, Beta: g2, Gamma: g2, Delta: g2, IC: ic}
}

func newInitializedPool(t *testing.T) *Pool {
	t.Helper()
	p := New()
	if err := p.Initialize("authority1", [32]byte{0xAA}, 1000, 1_000_000_000, 2, time.Unix(0, 0)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return p
}

func TestInitializeRejectsDouble(t *testing.T) {
	p := newInitializedPool(t)
	if err := p.Initialize("authority1", [32]byte{0xAA}, 1000, 1_000_000_000, 2, time.Unix(0, 0)); err != poolerr.ErrAlreadyInitialized {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
}

func TestSetPausedRequiresAuthority(t *testing.T) {
	p := newInitializedPool(t)
	if err := p.SetPaused("mallory", true, time.Now()); err != poolerr.ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := p.SetPaused("authority1", true, time.Now()); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	if !p.State().Paused {
		t.Error("expected pool to be paused")
	}
}

func TestVerifyDepositAmountBounds(t *testing.T) {
	p := newInitializedPool(t)
	in := VerifyDepositInput{
		Txid:          [32]byte{0x01},
		Vout:          0,
		AmountSats:    500, // below min
		BlockHeight:   100,
		Commitment:    [32]byte{0x02},
		Depositor:     "alice",
		SpvOK:         true,
		Confirmations: 6,
	}
	if _, err := p.VerifyDeposit(in, time.Now()); err != poolerr.ErrAmountTooSmall {
		t.Errorf("expected ErrAmountTooSmall, got %v", err)
	}

	in.AmountSats = 2_000_000_000 // above max
	if _, err := p.VerifyDeposit(in, time.Now()); err != poolerr.ErrAmountTooLarge {
		t.Errorf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestVerifyDepositRequiresSPVAndConfirmations(t *testing.T) {
	p := newInitializedPool(t)
	in := VerifyDepositInput{
		Txid: [32]byte{0x01}, AmountSats: 5000, Commitment: [32]byte{0x02},
		Depositor: "alice", SpvOK: false, Confirmations: 6,
	}
	if _, err := p.VerifyDeposit(in, time.Now()); err != poolerr.ErrInvalidSpvProof {
		t.Errorf("expected ErrInvalidSpvProof, got %v", err)
	}

	in.SpvOK = true
	in.Confirmations = 0
	if _, err := p.VerifyDeposit(in, time.Now()); err != poolerr.ErrInsufficientConfirmations {
		t.Errorf("expected ErrInsufficientConfirmations, got %v", err)
	}
}

func TestVerifyDepositInsertsAndMints(t *testing.T) {
	p := newInitializedPool(t)
	in := VerifyDepositInput{
		Txid: [32]byte{0x01}, AmountSats: 5000, Commitment: [32]byte{0x02},
		Depositor: "alice", SpvOK: true, Confirmations: 6,
	}
	index, err := p.VerifyDeposit(in, time.Now())
	if err != nil {
		t.Fatalf("VerifyDeposit: %v", err)
	}
	if index != 0 {
		t.Errorf("expected first deposit at leaf index 0, got %d", index)
	}

	rec, ok := p.DepositByTxid(in.Txid, in.Vout)
	if !ok || !rec.Minted {
		t.Fatal("expected deposit record to be recorded and minted")
	}

	if _, err := p.VerifyDeposit(in, time.Now()); err != poolerr.ErrAlreadyMinted {
		t.Errorf("expected ErrAlreadyMinted on re-submission of the same (txid,vout), got %v", err)
	}

	if p.State().TotalMinted.Uint64() != 5000 {
		t.Errorf("expected total_minted = 5000, got %s", p.State().TotalMinted.String())
	}
}

func TestVerifyDepositBlockedWhenPaused(t *testing.T) {
	p := newInitializedPool(t)
	if err := p.SetPaused("authority1", true, time.Now()); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	in := VerifyDepositInput{
		Txid: [32]byte{0x01}, AmountSats: 5000, Commitment: [32]byte{0x02},
		Depositor: "alice", SpvOK: true, Confirmations: 6,
	}
	if _, err := p.VerifyDeposit(in, time.Now()); err != poolerr.ErrPoolPaused {
		t.Errorf("expected ErrPoolPaused, got %v", err)
	}
}

func TestAddDemoCommitmentAndRequestRedemption(t *testing.T) {
	p := newInitializedPool(t)

	secret := [32]byte{0x42}
	_, commitment, err := p.AddDemoCommitment(secret, time.Now())
	if err != nil {
		t.Fatalf("AddDemoCommitment: %v", err)
	}
	if commitment == ([32]byte{}) {
		t.Fatal("expected non-zero derived commitment")
	}

	root := p.Tree().CurrentRoot()
	nullifierHash := [32]byte{0x99}
	proof, vk := identityProof(5)

	requestID, err := p.RequestRedemption(RequestRedemptionInput{
		Proof: proof, VerifyingKey: vk,
		Root:       root,
		Nullifier:  nullifierHash,
		AmountSats: 10_000,
		BtcAddress: "bcrt1qxyz0123456789abcdefghijklmno",
		Requester:  "alice",
	}, time.Now())
	if err != nil {
		t.Fatalf("RequestRedemption: %v", err)
	}

	rec, ok := p.Redemption(requestID)
	if !ok {
		t.Fatal("expected redemption record to exist")
	}
	if rec.Status != RedemptionPending {
		t.Errorf("expected RedemptionPending, got %v", rec.Status)
	}
	if p.State().PendingRedemptions != 1 {
		t.Errorf("expected pending_redemptions = 1, got %d", p.State().PendingRedemptions)
	}

	// A second redemption attempt against the same nullifier must be
	// rejected (spec property: double-spend rejection extends to
	// redemption requests).
	if _, err := p.RequestRedemption(RequestRedemptionInput{
		Root: root, Nullifier: nullifierHash, AmountSats: 10_000,
		BtcAddress: "bcrt1qxyz0123456789abcdefghijklmno", Requester: "mallory",
	}, time.Now()); err != poolerr.ErrNullifierAlreadyUsed {
		t.Errorf("expected ErrNullifierAlreadyUsed, got %v", err)
	}
}

func TestRequestRedemptionRejectsStaleRoot(t *testing.T) {
	p := newInitializedPool(t)
	if _, err := p.RequestRedemption(RequestRedemptionInput{
		Root: [32]byte{0xFF}, Nullifier: [32]byte{0x01}, AmountSats: 10_000,
		BtcAddress: "bcrt1qxyz0123456789abcdefghijklmno", Requester: "alice",
	}, time.Now()); err != poolerr.ErrInvalidRoot {
		t.Errorf("expected ErrInvalidRoot, got %v", err)
	}
}

func TestRequestRedemptionRejectsInvalidAddress(t *testing.T) {
	p := newInitializedPool(t)
	root := p.Tree().CurrentRoot()
	if _, err := p.RequestRedemption(RequestRedemptionInput{
		Root: root, Nullifier: [32]byte{0x01}, AmountSats: 10_000,
		BtcAddress: "x", Requester: "alice",
	}, time.Now()); err != poolerr.ErrInvalidBtcAddress {
		t.Errorf("expected ErrInvalidBtcAddress, got %v", err)
	}
}

func TestCompleteRedemptionLifecycle(t *testing.T) {
	p := newInitializedPool(t)
	root := p.Tree().CurrentRoot()
	proof, vk := identityProof(5)
	requestID, err := p.RequestRedemption(RequestRedemptionInput{
		Proof: proof, VerifyingKey: vk,
		Root: root, Nullifier: [32]byte{0x01}, AmountSats: 10_000,
		BtcAddress: "bcrt1qxyz0123456789abcdefghijklmno", Requester: "alice",
	}, time.Now())
	if err != nil {
		t.Fatalf("RequestRedemption: %v", err)
	}

	if err := p.CompleteRedemption("mallory", requestID, "deadbeef", time.Now()); err != poolerr.ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	if err := p.CompleteRedemption("authority1", requestID, "deadbeef", time.Now()); err != nil {
		t.Fatalf("CompleteRedemption: %v", err)
	}
	rec, _ := p.Redemption(requestID)
	if rec.Status != RedemptionCompleted || rec.BtcTxid != "deadbeef" {
		t.Errorf("expected completed redemption with btc_txid set, got %+v", rec)
	}
	if p.State().PendingRedemptions != 0 {
		t.Errorf("expected pending_redemptions decremented to 0, got %d", p.State().PendingRedemptions)
	}

	if err := p.CompleteRedemption("authority1", requestID, "other", time.Now()); err != poolerr.ErrRedemptionAlreadyCompleted {
		t.Errorf("expected ErrRedemptionAlreadyCompleted, got %v", err)
	}
}

func TestCompleteRedemptionNotBlockedByPause(t *testing.T) {
	// spec §4.D: pausing blocks shielded operations but not
	// complete_redemption, so pending BTC payouts can still drain.
	p := newInitializedPool(t)
	root := p.Tree().CurrentRoot()
	proof, vk := identityProof(5)
	requestID, err := p.RequestRedemption(RequestRedemptionInput{
		Proof: proof, VerifyingKey: vk,
		Root: root, Nullifier: [32]byte{0x01}, AmountSats: 10_000,
		BtcAddress: "bcrt1qxyz0123456789abcdefghijklmno", Requester: "alice",
	}, time.Now())
	if err != nil {
		t.Fatalf("RequestRedemption: %v", err)
	}
	if err := p.SetPaused("authority1", true, time.Now()); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	if err := p.CompleteRedemption("authority1", requestID, "deadbeef", time.Now()); err != nil {
		t.Errorf("expected CompleteRedemption to succeed while paused, got %v", err)
	}
}

func TestAnnounceStealthIdempotent(t *testing.T) {
	p := newInitializedPool(t)
	ephemeral := [33]byte{0x02, 0xAA}

	if err := p.AnnounceStealth(ephemeral, 10_000, [32]byte{0x01}, 3, time.Now()); err != nil {
		t.Fatalf("first AnnounceStealth: %v", err)
	}
	if err := p.AnnounceStealth(ephemeral, 10_000, [32]byte{0x01}, 3, time.Now()); err != poolerr.ErrAlreadyInitialized {
		t.Errorf("expected re-announcement under the same ephemeral key to be rejected, got %v", err)
	}

	anns := p.StealthAnnouncements()
	if len(anns) != 1 {
		t.Fatalf("expected exactly one stealth announcement, got %d", len(anns))
	}
}

func TestDispatchSetPaused(t *testing.T) {
	p := newInitializedPool(t)
	payload := append([]byte{byte(len("authority1"))}, append([]byte("authority1"), 1)...)
	if _, err := p.Dispatch(InstrSetPaused, payload, time.Now()); err != nil {
		t.Fatalf("Dispatch(InstrSetPaused): %v", err)
	}
	if !p.State().Paused {
		t.Error("expected pool paused via Dispatch")
	}
}

func TestDispatchAddDemoCommitment(t *testing.T) {
	p := newInitializedPool(t)
	secret := make([]byte, 32)
	secret[0] = 0x07
	out, err := p.Dispatch(InstrAddDemoCommitment, secret, time.Now())
	if err != nil {
		t.Fatalf("Dispatch(InstrAddDemoCommitment): %v", err)
	}
	if len(out) != 32 {
		t.Errorf("expected a 32-byte commitment back, got %d bytes", len(out))
	}
}
