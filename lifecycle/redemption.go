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

// RedemptionQueueCapacity mirrors redemption/queue.rs's WithdrawalQueue
// default max_size.
const RedemptionQueueCapacity = 1000

// PendingPayout is one burn request awaiting a BTC payout, tracked
// alongside the pool's own RedemptionRequest record. Grounded on
// redemption/queue.rs's WithdrawalQueue entries, adapted to this
// module's pool.RedemptionRequest/pool.RedemptionStatus rather than the
// original's Solana-burn-event-sourced WithdrawalRequest.
type PendingPayout struct {
	RequestID  [32]byte
	Attempts   int
	PayoutTxid *[32]byte
	NextRetry  time.Time
}

// RedemptionQueue is the off-chain processor's view of in-flight
// redemptions: it builds, signs, and broadcasts the BTC payout for each
// pool.RedemptionRequest and completes it via pool.CompleteRedemption
// as soon as the payout transaction is broadcast; it does not wait for
// the payout to confirm. Structurally grounded on
// redemption/queue.rs's WithdrawalQueue (map + capacity bound) plus
// bridge/signer.go's PendingSigns map style.
type RedemptionQueue struct {
	mu      sync.Mutex
	entries map[[32]byte]*PendingPayout
	cap     int

	pool      *pool.Pool
	oracle    custody.ChainOracle
	signer    SweepSigner
	authority string

	poolAddress *custody.DepositAddress // the address the spent UTXOs live at
	inputs      []custody.SweepInput    // available pool UTXOs to spend from

	processed prometheus.Counter
	failedCtr prometheus.Counter
}

// NewRedemptionQueue constructs a processor bound to pool p, spending
// from the pool's available UTXOs (held at poolAddress) via signer,
// authorized to call CompleteRedemption as authority.
func NewRedemptionQueue(p *pool.Pool, oracle custody.ChainOracle, signer SweepSigner, poolAddress *custody.DepositAddress, authority string) *RedemptionQueue {
	return &RedemptionQueue{
		entries:     make(map[[32]byte]*PendingPayout),
		cap:         RedemptionQueueCapacity,
		pool:        p,
		oracle:      oracle,
		signer:      signer,
		poolAddress: poolAddress,
		authority:   authority,

		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zvault_redemptions_processed_total",
			Help: "Redemptions whose BTC payout was broadcast.",
		}),
		failedCtr: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zvault_redemptions_failed_total",
			Help: "Redemptions that failed after exhausting retries.",
		}),
	}
}

// SetAvailableUTXOs replaces the pool UTXO set the queue may spend from
// when building payout transactions.
func (q *RedemptionQueue) SetAvailableUTXOs(inputs []custody.SweepInput) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inputs = inputs
}

// Enqueue registers requestID (a pending pool.RedemptionRequest) for
// processing.
func (q *RedemptionQueue) Enqueue(requestID [32]byte, now time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) >= q.cap {
		return poolerr.ErrQueueFull
	}
	if _, ok := q.entries[requestID]; ok {
		return nil
	}
	q.entries[requestID] = &PendingPayout{RequestID: requestID, NextRetry: now}
	return nil
}

// Pending returns every requestID still awaiting processing.
func (q *RedemptionQueue) Pending() [][32]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][32]byte, 0, len(q.entries))
	for id := range q.entries {
		out = append(out, id)
	}
	return out
}

// ErrNoUTXOsAvailable is returned when the queue has nothing left to
// spend from when asked to process a redemption.
var ErrNoUTXOsAvailable = errors.New("lifecycle: no pool UTXOs available for payout")

// Process attempts one payout for requestID: it reads the pending
// pool.RedemptionRequest, builds and signs a payout transaction from the
// queue's available UTXOs, broadcasts it, and calls
// pool.CompleteRedemption. On failure it schedules an exponential-backoff
// retry instead of dropping the entry.
func (q *RedemptionQueue) Process(requestID [32]byte, destScript []byte, now time.Time) error {
	req, ok := q.pool.Redemption(requestID)
	if !ok {
		return poolerr.ErrRedemptionNotFound
	}
	if req.Status != pool.RedemptionPending {
		return poolerr.ErrInvalidRedemptionState
	}

	q.mu.Lock()
	entry, ok := q.entries[requestID]
	if !ok {
		entry = &PendingPayout{RequestID: requestID}
		q.entries[requestID] = entry
	}
	if now.Before(entry.NextRetry) {
		q.mu.Unlock()
		return nil
	}
	if len(q.inputs) == 0 {
		q.mu.Unlock()
		return ErrNoUTXOsAvailable
	}
	inputs := append([]custody.SweepInput(nil), q.inputs...)
	q.mu.Unlock()

	poolScript := taprootScriptPubKey(q.poolAddress.OutputKey)
	for i := range inputs {
		inputs[i].PkScript = poolScript
	}

	tx, _, err := custody.BuildSweepTx(custody.SweepParams{
		Inputs:       inputs,
		PayoutSats:   int64(req.AmountSats),
		PayoutScript: destScript,
		FeeRateSatVB: 10,
	})
	if err != nil {
		q.scheduleRetry(entry, now)
		return err
	}

	tweak := tweakFor(q.poolAddress)
	tweaks := make([]*[32]byte, len(inputs))
	for i := range tweaks {
		tweaks[i] = tweak
	}
	if err := signTaprootInputs(tx, inputs, tweaks, q.signer); err != nil {
		q.scheduleRetry(entry, now)
		return err
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		q.scheduleRetry(entry, now)
		return err
	}

	txid, err := q.oracle.Broadcast(buf.Bytes())
	if err != nil {
		q.scheduleRetry(entry, now)
		return err
	}

	if err := q.pool.CompleteRedemption(q.authority, requestID, hexTxid(txid), now); err != nil {
		q.scheduleRetry(entry, now)
		return err
	}

	q.mu.Lock()
	entry.PayoutTxid = &txid
	delete(q.entries, requestID)
	q.mu.Unlock()
	q.processed.Inc()
	return nil
}

func (q *RedemptionQueue) scheduleRetry(entry *PendingPayout, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry.Attempts++
	entry.NextRetry = now.Add(NextBackoff(entry.Attempts-1, BackoffBase, BackoffMax))
	if entry.Attempts > 10 {
		q.failedCtr.Inc()
	}
}

func hexTxid(txid [32]byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 64)
	for i, b := range txid {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0x0f]
	}
	return string(out)
}
