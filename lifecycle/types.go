// Package lifecycle drives the off-chain coordinators spec §4.G
// describes: the deposit tracker that walks a Bitcoin deposit through
// confirmation, sweep, and SPV verification into a minted note, and the
// redemption processor that walks a burn request through signing,
// broadcast, and confirmation into a completed BTC payout. Grounded
// structurally on bridge/signer.go's session+goroutine+status pattern;
// the state machine itself and its queue operations are SUPPLEMENTED
// from original_source/backend/src/deposit_tracker/types.rs (the
// pending→detected→confirming→confirmed→sweeping→sweep_confirming→
// verifying→ready→claimed phase list, already mirrored by
// pool.DepositStatus) and redemption/queue.rs's WithdrawalQueue.
package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/cheng-chun-yuan/zVault-sub001/custody"
	"github.com/cheng-chun-yuan/zVault-sub001/pool"
)

// TrackedDeposit is the off-chain tracker's view of one deposit in
// progress, richer than pool.DepositRecord because it also carries the
// sweep transaction's own confirmation progress. Method set mirrors
// deposit_tracker/types.rs's DepositRecord (mark_detected,
// update_confirmations, mark_sweeping, mark_sweep_broadcast,
// update_sweep_confirmations, mark_verifying, mark_ready, mark_failed).
type TrackedDeposit struct {
	ID             string
	TaprootAddress string
	DepositAddr    *custody.DepositAddress // dual-path address this deposit's funds sit in; needed to sign its sweep input
	Commitment     [32]byte
	AmountSats     uint64
	Status         pool.DepositStatus
	Confirmations  uint32

	DepositTxid        *[32]byte
	DepositVout        *uint32
	DepositBlockHeight *uint32

	SweepTxid          *[32]byte
	SweepConfirmations uint32
	SweepBlockHeight   *uint32
	PoolAddress        string

	LeafIndex *uint64

	CreatedAt time.Time
	UpdatedAt time.Time
	Error     string
}

// NewTrackedDeposit creates a pending deposit record for a freshly
// generated dual-path Taproot address, the way deposit_tracker's
// DepositRecord::new does.
func NewTrackedDeposit(addr *custody.DepositAddress, commitment [32]byte, amountSats uint64, now time.Time) *TrackedDeposit {
	return &TrackedDeposit{
		ID:             "dep_" + uuid.NewString(),
		TaprootAddress: addr.Address,
		DepositAddr:    addr,
		Commitment:     commitment,
		AmountSats:     amountSats,
		Status:         pool.DepositPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (d *TrackedDeposit) touch(now time.Time) { d.UpdatedAt = now }

// MarkDetected records that the deposit transaction was observed
// (unconfirmed) on-chain.
func (d *TrackedDeposit) MarkDetected(txid [32]byte, vout uint32, now time.Time) {
	d.DepositTxid = &txid
	d.DepositVout = &vout
	d.Status = pool.DepositDetected
	d.touch(now)
}

// UpdateConfirmations records the confirmation count and sets the status
// to Detected at zero confirmations and to Confirmed from one onward; it
// never sets Confirming.
func (d *TrackedDeposit) UpdateConfirmations(confirmations uint32, blockHeight *uint32, now time.Time) {
	d.Confirmations = confirmations
	if blockHeight != nil {
		d.DepositBlockHeight = blockHeight
	}
	switch {
	case confirmations == 0:
		d.Status = pool.DepositDetected
	default:
		d.Status = pool.DepositConfirmed
	}
	d.touch(now)
}

// MarkSweeping records that the tracker is building/broadcasting the
// sweep transaction to the pool's consolidated UTXO set.
func (d *TrackedDeposit) MarkSweeping(now time.Time) {
	d.Status = pool.DepositSweeping
	d.touch(now)
}

// MarkSweepBroadcast records the broadcast sweep transaction's txid.
func (d *TrackedDeposit) MarkSweepBroadcast(sweepTxid [32]byte, poolAddress string, now time.Time) {
	d.SweepTxid = &sweepTxid
	d.PoolAddress = poolAddress
	d.Status = pool.DepositSweepConfirming
	d.touch(now)
}

// UpdateSweepConfirmations tracks the sweep transaction's own
// confirmation count, separate from the deposit transaction's.
func (d *TrackedDeposit) UpdateSweepConfirmations(confirmations uint32, blockHeight *uint32, now time.Time) {
	d.SweepConfirmations = confirmations
	if blockHeight != nil {
		d.SweepBlockHeight = blockHeight
	}
	d.touch(now)
}

// MarkVerifying records that the tracker is submitting the SPV proof to
// the pool's VerifyDeposit operation.
func (d *TrackedDeposit) MarkVerifying(now time.Time) {
	d.Status = pool.DepositVerifying
	d.touch(now)
}

// MarkReady records successful on-chain verification and mint.
func (d *TrackedDeposit) MarkReady(leafIndex uint64, now time.Time) {
	d.LeafIndex = &leafIndex
	d.Status = pool.DepositReady
	d.touch(now)
}

// MarkFailed records a terminal failure with its cause.
func (d *TrackedDeposit) MarkFailed(reason string, now time.Time) {
	d.Status = pool.DepositFailed
	d.Error = reason
	d.touch(now)
}
