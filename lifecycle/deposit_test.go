package lifecycle

import (
	"testing"
	"time"

	"github.com/cheng-chun-yuan/zVault-sub001/custody"
	"github.com/cheng-chun-yuan/zVault-sub001/pool"
)

type stubOracle struct {
	confirmationsByHeight map[uint32]uint32
	broadcasts            [][]byte
	broadcastTxid         [32]byte
}

func (o *stubOracle) HeaderMerkleRoot(height uint32) ([32]byte, bool) { return [32]byte{}, true }
func (o *stubOracle) TipHeight() uint32                               { return 1000 }
func (o *stubOracle) Confirmations(height uint32) uint32 {
	return o.confirmationsByHeight[height]
}
func (o *stubOracle) Broadcast(rawTx []byte) ([32]byte, error) {
	o.broadcasts = append(o.broadcasts, rawTx)
	return o.broadcastTxid, nil
}
func (o *stubOracle) Now() time.Time { return time.Unix(0, 0) }

type stubSigner struct{}

func (stubSigner) Sign(sigHash [32]byte) ([64]byte, error) { return [64]byte{0x01}, nil }
func (stubSigner) SignTweaked(sigHash [32]byte, tweak [32]byte) ([64]byte, error) {
	return [64]byte{0x01}, nil
}

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()
	p := pool.New()
	if err := p.Initialize("authority1", [32]byte{0xAA}, 1000, 1_000_000_000, 2, time.Unix(0, 0)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return p
}

func TestDepositTrackerRegisterAndLookup(t *testing.T) {
	p := newTestPool(t)
	oracle := &stubOracle{confirmationsByHeight: map[uint32]uint32{}}
	addr := &custody.DepositAddress{Address: "bc1p...", OutputKey: [32]byte{0x02}}

	tracker := NewDepositTracker(p, oracle, stubSigner{}, addr, 2)
	now := time.Unix(1000, 0)

	depositAddr := &custody.DepositAddress{Address: "bc1pdeposit", OutputKey: [32]byte{0x04}}
	d := tracker.Register(depositAddr, [32]byte{0x11}, 50_000, now)
	if d.Status != pool.DepositPending {
		t.Fatalf("expected DepositPending, got %v", d.Status)
	}

	got, ok := tracker.Get(d.ID)
	if !ok {
		t.Fatal("expected Get to find the registered deposit")
	}
	if got.AmountSats != 50_000 {
		t.Errorf("expected amount 50000, got %d", got.AmountSats)
	}
}

func TestDepositTrackerSweepsOnceConfirmed(t *testing.T) {
	p := newTestPool(t)
	oracle := &stubOracle{
		confirmationsByHeight: map[uint32]uint32{100: 3},
		broadcastTxid:         [32]byte{0xAB},
	}
	addr := &custody.DepositAddress{Address: "bc1ppool", OutputKey: [32]byte{0x03}}
	tracker := NewDepositTracker(p, oracle, stubSigner{}, addr, 2)

	now := time.Unix(1000, 0)
	depositAddr := &custody.DepositAddress{Address: "bc1pdeposit", OutputKey: [32]byte{0x04}}
	d := tracker.Register(depositAddr, [32]byte{0x11}, 50_000, now)
	txid := [32]byte{0x22}
	if err := tracker.ObserveDeposit(d.ID, txid, 0, now); err != nil {
		t.Fatalf("ObserveDeposit: %v", err)
	}

	height := uint32(100)
	tracker.mu.Lock()
	tracker.deposits[d.ID].DepositBlockHeight = &height
	tracker.mu.Unlock()

	tracker.Tick(now) // Detected -> Confirmed (3 confirmations observed)
	tracker.Tick(now) // Confirmed -> Sweeping -> SweepConfirming

	got, _ := tracker.Get(d.ID)
	if got.Status != pool.DepositSweepConfirming {
		t.Fatalf("expected DepositSweepConfirming, got %v", got.Status)
	}
	if got.SweepTxid == nil || *got.SweepTxid != [32]byte{0xAB} {
		t.Error("expected the sweep txid to be recorded from the broadcast")
	}
	if len(oracle.broadcasts) != 1 {
		t.Errorf("expected exactly one broadcast, got %d", len(oracle.broadcasts))
	}
}

func TestDepositTrackerSubmitSPVRequiresSweepConfirmations(t *testing.T) {
	p := newTestPool(t)
	oracle := &stubOracle{confirmationsByHeight: map[uint32]uint32{}}
	addr := &custody.DepositAddress{Address: "bc1ppool", OutputKey: [32]byte{0x03}}
	tracker := NewDepositTracker(p, oracle, stubSigner{}, addr, 2)

	now := time.Unix(1000, 0)
	depositAddr := &custody.DepositAddress{Address: "bc1pdeposit", OutputKey: [32]byte{0x04}}
	d := tracker.Register(depositAddr, [32]byte{0x11}, 50_000, now)

	err := tracker.SubmitSPV(d.ID, custody.SPVProof{}, "depositor1", now)
	if err == nil {
		t.Fatal("expected SubmitSPV to reject a deposit whose sweep has not confirmed")
	}
}
