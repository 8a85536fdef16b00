package lifecycle

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cheng-chun-yuan/zVault-sub001/custody"
	"github.com/cheng-chun-yuan/zVault-sub001/pool"
	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
)

// SweepRequiredConfirmations is the sweep transaction's own confirmation
// threshold before its SPV proof is submitted, per
// deposit_tracker/mod.rs's "After 2 sweep confirmations ... submits SPV
// proof".
const SweepRequiredConfirmations = 2

var (
	// ErrDepositNotFound is returned when a tracker operation references
	// an unknown deposit ID.
	ErrDepositNotFound = errors.New("lifecycle: deposit not found")
)

// DepositTracker drives a TrackedDeposit through
// pending→detected→confirmed→sweeping→sweep_confirming→
// verifying→ready, following deposit_tracker/mod.rs's service loop:
// poll the oracle for confirmations, sweep once confirmed, poll the
// sweep's own confirmations, then submit an SPV proof to the pool.
// Structurally grounded on bridge/signer.go's map+sync.RWMutex session
// store.
type DepositTracker struct {
	mu       sync.RWMutex
	deposits map[string]*TrackedDeposit

	oracle custody.ChainOracle
	pool   *pool.Pool
	signer SweepSigner

	poolAddress  *custody.DepositAddress
	requiredConf uint32

	registered prometheus.Counter
	swept      prometheus.Counter
	ready      prometheus.Counter
	failed     prometheus.Counter
}

// SweepSigner produces the aggregated Taproot key-path signature for a
// sweep transaction's per-input signature hash, either untweaked (for a
// plain key-spend output) or tweaked by a script-tree merkle root.
// frost.Signer (or frost.Coordinator) satisfies this directly.
type SweepSigner interface {
	Sign(sigHash [32]byte) ([64]byte, error)
	SignTweaked(sigHash [32]byte, tweak [32]byte) ([64]byte, error)
}

// NewDepositTracker constructs a tracker that sweeps confirmed deposits
// to poolAddress and requires requiredConf confirmations on the deposit
// transaction before sweeping.
func NewDepositTracker(p *pool.Pool, oracle custody.ChainOracle, signer SweepSigner, poolAddress *custody.DepositAddress, requiredConf uint32) *DepositTracker {
	return &DepositTracker{
		deposits:     make(map[string]*TrackedDeposit),
		oracle:       oracle,
		pool:         p,
		signer:       signer,
		poolAddress:  poolAddress,
		requiredConf: requiredConf,

		registered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zvault_deposits_registered_total",
			Help: "Deposits registered with the tracker.",
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zvault_deposits_swept_total",
			Help: "Deposits whose sweep transaction was broadcast.",
		}),
		ready: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zvault_deposits_ready_total",
			Help: "Deposits verified and minted on the pool.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zvault_deposits_failed_total",
			Help: "Deposits that reached a terminal failure.",
		}),
	}
}

// Register starts tracking a new deposit awaiting funds at addr, the
// dual-path Taproot address constructed for it.
func (t *DepositTracker) Register(addr *custody.DepositAddress, commitment [32]byte, amountSats uint64, now time.Time) *TrackedDeposit {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := NewTrackedDeposit(addr, commitment, amountSats, now)
	t.deposits[d.ID] = d
	t.registered.Inc()
	return d
}

// Get returns a snapshot of one tracked deposit.
func (t *DepositTracker) Get(id string) (TrackedDeposit, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.deposits[id]
	if !ok {
		return TrackedDeposit{}, false
	}
	return *d, true
}

// ByStatus returns a snapshot of every deposit currently in status.
func (t *DepositTracker) ByStatus(status pool.DepositStatus) []TrackedDeposit {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []TrackedDeposit
	for _, d := range t.deposits {
		if d.Status == status {
			out = append(out, *d)
		}
	}
	return out
}

// ObserveDeposit reports that the deposit address received a mempool
// transaction, beginning confirmation tracking.
func (t *DepositTracker) ObserveDeposit(id string, txid [32]byte, vout uint32, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.deposits[id]
	if !ok {
		return ErrDepositNotFound
	}
	d.MarkDetected(txid, vout, now)
	return nil
}

// Tick advances every in-flight deposit by one polling step against the
// chain oracle: updating confirmation counts, building and broadcasting
// sweep transactions once confirmed, and tracking sweep confirmations.
// It does not itself call VerifyDeposit — SubmitSPV does that once the
// caller has assembled the sweep transaction's merkle proof.
func (t *DepositTracker) Tick(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, d := range t.deposits {
		switch d.Status {
		case pool.DepositDetected, pool.DepositConfirming:
			if d.DepositBlockHeight == nil {
				continue
			}
			conf := t.oracle.Confirmations(*d.DepositBlockHeight)
			d.UpdateConfirmations(conf, d.DepositBlockHeight, now)

		case pool.DepositConfirmed:
			if d.Confirmations < t.requiredConf {
				if d.DepositBlockHeight != nil {
					conf := t.oracle.Confirmations(*d.DepositBlockHeight)
					d.UpdateConfirmations(conf, d.DepositBlockHeight, now)
				}
				continue
			}
			t.sweepLocked(d, now)

		case pool.DepositSweepConfirming:
			if d.SweepBlockHeight == nil {
				continue
			}
			conf := t.oracle.Confirmations(*d.SweepBlockHeight)
			d.UpdateSweepConfirmations(conf, d.SweepBlockHeight, now)
		}
	}
}

// sweepLocked builds, signs, and broadcasts the sweep transaction for a
// confirmed deposit. Caller holds t.mu.
func (t *DepositTracker) sweepLocked(d *TrackedDeposit, now time.Time) {
	if d.DepositTxid == nil || d.DepositVout == nil || d.DepositAddr == nil {
		return
	}
	if d.AmountSats <= custody.DustThreshold {
		d.MarkFailed(poolerr.ErrDepositBelowDust.Error(), now)
		t.failed.Inc()
		return
	}
	d.MarkSweeping(now)

	inputs := []custody.SweepInput{{
		Txid:      *d.DepositTxid,
		Vout:      *d.DepositVout,
		ValueSats: int64(d.AmountSats),
		PkScript:  taprootScriptPubKey(d.DepositAddr.OutputKey),
	}}
	sweepFee := custody.EstimateSweepVSize(1, 1) * 10
	if int64(d.AmountSats) <= sweepFee {
		d.MarkFailed(custody.ErrInsufficientFunds.Error(), now)
		t.failed.Inc()
		return
	}
	params := custody.SweepParams{
		Inputs:       inputs,
		PayoutSats:   int64(d.AmountSats) - sweepFee,
		PayoutScript: taprootScriptPubKey(t.poolAddress.OutputKey),
		FeeRateSatVB: 10,
	}

	tx, _, err := custody.BuildSweepTx(params)
	if err != nil {
		d.MarkFailed(err.Error(), now)
		t.failed.Inc()
		return
	}

	tweaks := []*[32]byte{tweakFor(d.DepositAddr)}
	if err := signTaprootInputs(tx, inputs, tweaks, t.signer); err != nil {
		d.MarkFailed(err.Error(), now)
		t.failed.Inc()
		return
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		d.MarkFailed(err.Error(), now)
		t.failed.Inc()
		return
	}

	txid, err := t.oracle.Broadcast(buf.Bytes())
	if err != nil {
		d.MarkFailed(err.Error(), now)
		t.failed.Inc()
		return
	}

	d.MarkSweepBroadcast(txid, t.poolAddress.Address, now)
	t.swept.Inc()
}

// SubmitSPV completes a deposit once its sweep transaction has reached
// SweepRequiredConfirmations: it builds the pool.VerifyDepositInput from
// the SPV proof and calls pool.VerifyDeposit, marking the deposit ready
// (or failed) with the result.
func (t *DepositTracker) SubmitSPV(id string, proof custody.SPVProof, depositor string, now time.Time) error {
	t.mu.Lock()
	d, ok := t.deposits[id]
	if !ok {
		t.mu.Unlock()
		return ErrDepositNotFound
	}
	if d.SweepConfirmations < SweepRequiredConfirmations {
		t.mu.Unlock()
		return errors.New("lifecycle: sweep has not reached the required confirmation count")
	}
	sweepPayout := int64(d.AmountSats) - custody.EstimateSweepVSize(1, 1)*10
	if err := custody.VerifySPV(proof, 0, t.poolAddress, sweepPayout, SweepRequiredConfirmations, t.oracle); err != nil {
		t.mu.Unlock()
		return err
	}
	d.MarkVerifying(now)
	t.mu.Unlock()

	leafIndex, err := t.pool.VerifyDeposit(pool.VerifyDepositInput{
		Txid:          proof.Txid,
		Vout:          0,
		AmountSats:    d.AmountSats,
		BlockHeight:   proof.BlockHeight,
		Commitment:    d.Commitment,
		Depositor:     depositor,
		SpvOK:         true,
		Confirmations: t.requiredConf,
	}, now)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		d.MarkFailed(err.Error(), now)
		t.failed.Inc()
		return err
	}
	d.MarkReady(leafIndex, now)
	t.ready.Inc()
	return nil
}
