package pool

import (
	"math/big"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/zeebo/blake3"

	"github.com/cheng-chun-yuan/zVault-sub001/crypto"
	"github.com/cheng-chun-yuan/zVault-sub001/nullifier"
	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
	"github.com/cheng-chun-yuan/zVault-sub001/tree"
)

// Pool is the singleton pool program: commitment tree, nullifier set,
// counters, pause flag, and the deposit/redemption/stealth record stores.
// Guarded by a single sync.RWMutex, following threshold.ThresholdClient's
// singleton-map-with-RWMutex shape.
type Pool struct {
	mu sync.RWMutex

	initialized bool
	state       State

	tree            *tree.Tree
	nullifiers      *nullifier.Set
	treeInitialized bool

	deposits    map[[32]byte]*DepositRecord // keyed by blake3(txid||vout)
	redemptions map[[32]byte]*RedemptionRequest
	stealth     map[[33]byte]*StealthAnnouncement
}

// New returns an uninitialized Pool. Initialize must be called before any
// other operation.
func New() *Pool {
	return &Pool{
		tree:        tree.New(),
		nullifiers:  nullifier.New(),
		deposits:    make(map[[32]byte]*DepositRecord),
		redemptions: make(map[[32]byte]*RedemptionRequest),
		stealth:     make(map[[33]byte]*StealthAnnouncement),
	}
}

// Tree exposes the underlying commitment tree for read access (e.g. a
// prover building a Merkle path against the current root).
func (p *Pool) Tree() *tree.Tree { return p.tree }

// Nullifiers exposes the underlying nullifier set for read access.
func (p *Pool) Nullifiers() *nullifier.Set { return p.nullifiers }

// depositKey derives the stable key a deposit record is stored under:
// blake3(txid || vout), matching the pool package's preference for
// content-addressed keys over pointer identity (spec §3, Ownership
// summary).
func depositKey(txid [32]byte, vout uint32) [32]byte {
	h := blake3.New()
	h.Write(txid[:])
	var voutBytes [4]byte
	voutBytes[0] = byte(vout)
	voutBytes[1] = byte(vout >> 8)
	voutBytes[2] = byte(vout >> 16)
	voutBytes[3] = byte(vout >> 24)
	h.Write(voutBytes[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Initialize creates the pool, tree, and counters. Preconditions: not
// already initialized (spec §4.D).
func (p *Pool) Initialize(authority string, groupPublicKey [32]byte, minDeposit, maxDeposit uint64, requiredConfirmations uint32, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return poolerr.ErrAlreadyInitialized
	}

	p.state = State{
		Config: Config{
			Authority:             authority,
			GroupPublicKey:         groupPublicKey,
			MinDepositSats:         minDeposit,
			MaxDepositSats:         maxDeposit,
			RequiredConfirmations:  requiredConfirmations,
		},
		TotalMinted: uint256.NewInt(0),
		TotalBurned: uint256.NewInt(0),
		Paused:      false,
		LastUpdate:  now,
	}
	p.initialized = true
	return nil
}

// SetPaused flips the pause flag. Preconditions: caller is the authority.
func (p *Pool) SetPaused(caller string, paused bool, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireInitializedLocked(); err != nil {
		return err
	}
	if caller != p.state.Config.Authority {
		return poolerr.ErrUnauthorized
	}
	p.state.Paused = paused
	p.state.LastUpdate = now
	return nil
}

// InitCommitmentTree marks the commitment tree ready for use, admin-only
// and callable exactly once per original_source's
// process_init_commitment_tree ("Initialize the commitment tree (admin
// only, called once)"). The tree itself is always allocated by New; this
// op exists so a Dispatch caller mirroring the original's two-step
// initialize-pool/initialize-tree account setup has an explicit op to
// call before VerifyDeposit.
func (p *Pool) InitCommitmentTree(caller string, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireInitializedLocked(); err != nil {
		return err
	}
	if caller != p.state.Config.Authority {
		return poolerr.ErrUnauthorized
	}
	if p.treeInitialized {
		return poolerr.ErrAlreadyInitialized
	}
	p.treeInitialized = true
	p.state.LastUpdate = now
	return nil
}

// State returns a snapshot of the pool's mutable state.
func (p *Pool) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pool) requireInitializedLocked() error {
	if !p.initialized {
		return poolerr.ErrNotInitialized
	}
	return nil
}

// requireNotPausedLocked enforces spec §4.D's shared invariant that
// pausing blocks every state-mutating shielded operation except
// CompleteRedemption, which must keep draining pending BTC payouts.
func (p *Pool) requireNotPausedLocked() error {
	if p.state.Paused {
		return poolerr.ErrPoolPaused
	}
	return nil
}

// VerifyDepositInput bundles verify_deposit's SPV-anchored arguments.
type VerifyDepositInput struct {
	Txid        [32]byte
	Vout        uint32
	AmountSats  uint64
	BlockHeight uint32
	Commitment  [32]byte
	Depositor   string

	// SpvOK is the caller's precomputed result of custody.VerifySPV plus
	// the confirmations check; the pool program itself never reaches into
	// the BTC light client, it only consumes the verdict (spec §1's
	// "light client... assumed to expose verify_inclusion/confirmations").
	SpvOK           bool
	Confirmations   uint32
}

// VerifyDeposit inserts commitment into the tree, mints amount of wrapped
// token to the pool vault, and writes a deposit record. Preconditions:
// not paused; amount in [min, max]; SPV verifies; sufficient
// confirmations; deposit not yet minted (spec §4.D).
func (p *Pool) VerifyDeposit(in VerifyDepositInput, now time.Time) (leafIndex uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireInitializedLocked(); err != nil {
		return 0, err
	}
	if err := p.requireNotPausedLocked(); err != nil {
		return 0, err
	}
	if in.AmountSats < p.state.Config.MinDepositSats {
		return 0, poolerr.ErrAmountTooSmall
	}
	if in.AmountSats > p.state.Config.MaxDepositSats {
		return 0, poolerr.ErrAmountTooLarge
	}
	if !in.SpvOK {
		return 0, poolerr.ErrInvalidSpvProof
	}
	if in.Confirmations < p.state.Config.RequiredConfirmations {
		return 0, poolerr.ErrInsufficientConfirmations
	}

	key := depositKey(in.Txid, in.Vout)
	if existing, ok := p.deposits[key]; ok && existing.Minted {
		return 0, poolerr.ErrAlreadyMinted
	}

	index, err := p.tree.Insert(in.Commitment)
	if err != nil {
		return 0, err
	}

	p.state.TotalMinted = new(uint256.Int).Add(p.state.TotalMinted, uint256.NewInt(in.AmountSats))
	p.state.DepositCount++
	p.state.LastUpdate = now

	p.deposits[key] = &DepositRecord{
		Txid:        in.Txid,
		Vout:        in.Vout,
		AmountSats:  in.AmountSats,
		BlockHeight: in.BlockHeight,
		LeafIndex:   index,
		Depositor:   in.Depositor,
		Minted:      true,
		Commitment:  in.Commitment,
		Status:      DepositReady,
	}
	return index, nil
}

// DepositByTxid looks up a deposit record by (txid, vout).
func (p *Pool) DepositByTxid(txid [32]byte, vout uint32) (DepositRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.deposits[depositKey(txid, vout)]
	if !ok {
		return DepositRecord{}, false
	}
	return *rec, true
}

// checkSpendPreconditionsLocked is the precondition check every shielded
// spend shares: pool initialized and not paused, root freshness,
// nullifier uniqueness. Each spend verifies its proof against its own
// public-input vector after this check.
func (p *Pool) checkSpendPreconditionsLocked(root, nullifierHash [32]byte) error {
	if err := p.requireInitializedLocked(); err != nil {
		return err
	}
	if err := p.requireNotPausedLocked(); err != nil {
		return err
	}
	if !p.tree.IsValidRoot(root) {
		return poolerr.ErrInvalidRoot
	}
	if p.nullifiers.IsSpent(nullifierHash) {
		return poolerr.ErrNullifierAlreadyUsed
	}
	return nil
}

// ClaimInput bundles claim's arguments. Public inputs per spec §4.D:
// [root, nullifier, output_commitment_or_hash_of_recipient, amount].
type ClaimInput struct {
	Proof              crypto.Proof
	VerifyingKey       crypto.VerifyingKey
	Root               [32]byte
	Nullifier          [32]byte
	PublicPayout       bool
	RecipientAddress   string // consulted only when PublicPayout
	RecipientCommitment [32]byte // consulted only when !PublicPayout
	AmountPublic       uint64
	Spender            string
}

// Claim marks the nullifier spent and either transfers amount_public from
// the vault (public payout) or inserts a new commitment (private output).
func (p *Pool) Claim(in ClaimInput, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkSpendPreconditionsLocked(in.Root, in.Nullifier); err != nil {
		return err
	}

	output := in.RecipientCommitment
	if in.PublicPayout {
		output = crypto.SHA256([]byte(in.RecipientAddress))
	}
	publicInputs := fieldElements(in.Root, in.Nullifier, output, amountField(in.AmountPublic))

	ok, err := crypto.VerifyZK(in.VerifyingKey, in.Proof, publicInputs)
	if err != nil {
		return err
	}
	if !ok {
		return poolerr.ErrZkVerificationFailed
	}

	if err := p.nullifiers.MarkSpent(in.Nullifier, nullifier.OpRedemption, in.Spender, now); err != nil {
		return err
	}

	if in.PublicPayout {
		p.state.TotalBurned = new(uint256.Int).Add(p.state.TotalBurned, uint256.NewInt(in.AmountPublic))
	} else {
		if _, err := p.tree.Insert(in.RecipientCommitment); err != nil {
			return err
		}
	}
	p.state.LastUpdate = now
	return nil
}

// SplitCommitmentInput bundles split_commitment's arguments. Public
// inputs: [root, nullifier, out_c1, out_c2].
type SplitCommitmentInput struct {
	Proof        crypto.Proof
	VerifyingKey crypto.VerifyingKey
	Root         [32]byte
	Nullifier    [32]byte
	OutC1        [32]byte
	OutC2        [32]byte
	Spender      string
}

// SplitCommitment marks the nullifier spent and inserts both output
// commitments. Preconditions: as Claim, plus tree capacity for 2 leaves.
func (p *Pool) SplitCommitment(in SplitCommitmentInput, now time.Time) ([2]uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var indices [2]uint64
	if err := p.checkSpendPreconditionsLocked(in.Root, in.Nullifier); err != nil {
		return indices, err
	}
	if p.tree.NextIndex()+2 > tree.MaxLeaves {
		return indices, poolerr.ErrTreeCapacityExceeded
	}

	publicInputs := fieldElements(in.Root, in.Nullifier, in.OutC1, in.OutC2)
	ok, err := crypto.VerifyZK(in.VerifyingKey, in.Proof, publicInputs)
	if err != nil {
		return indices, err
	}
	if !ok {
		return indices, poolerr.ErrZkVerificationFailed
	}

	if err := p.nullifiers.MarkSpent(in.Nullifier, nullifier.OpSplit, in.Spender, now); err != nil {
		return indices, err
	}

	idxs, err := p.tree.InsertMany(in.OutC1, in.OutC2)
	if err != nil {
		return indices, err
	}
	indices[0], indices[1] = idxs[0], idxs[1]

	p.state.SplitCount++
	p.state.LastUpdate = now
	return indices, nil
}

// SpendPartialPublicInput bundles spend_partial_public's arguments.
// Public inputs: [root, nullifier, change_commitment, payout_amount,
// recipient].
type SpendPartialPublicInput struct {
	Proof              crypto.Proof
	VerifyingKey       crypto.VerifyingKey
	Root               [32]byte
	Nullifier          [32]byte
	ChangeCommitment   [32]byte
	PublicPayoutAmount uint64
	Recipient          string
	Spender            string
}

// SpendPartialPublic marks the nullifier spent, inserts the change
// commitment, and transfers public_payout_amount.
func (p *Pool) SpendPartialPublic(in SpendPartialPublicInput, now time.Time) (leafIndex uint64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkSpendPreconditionsLocked(in.Root, in.Nullifier); err != nil {
		return 0, err
	}

	recipientHash := crypto.SHA256([]byte(in.Recipient))
	publicInputs := fieldElements(in.Root, in.Nullifier, in.ChangeCommitment, amountField(in.PublicPayoutAmount), recipientHash)

	ok, err := crypto.VerifyZK(in.VerifyingKey, in.Proof, publicInputs)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, poolerr.ErrZkVerificationFailed
	}

	if err := p.nullifiers.MarkSpent(in.Nullifier, nullifier.OpTransfer, in.Spender, now); err != nil {
		return 0, err
	}

	index, err := p.tree.Insert(in.ChangeCommitment)
	if err != nil {
		return 0, err
	}

	p.state.TotalBurned = new(uint256.Int).Add(p.state.TotalBurned, uint256.NewInt(in.PublicPayoutAmount))
	p.state.LastUpdate = now
	return index, nil
}

// RequestRedemptionInput bundles request_redemption's arguments. Public
// inputs: [root, nullifier, amount_sats, hash(btc_address),
// change_commitment].
type RequestRedemptionInput struct {
	Proof            crypto.Proof
	VerifyingKey     crypto.VerifyingKey
	Root             [32]byte
	Nullifier        [32]byte
	AmountSats       uint64
	BtcAddress       string
	ChangeCommitment *[32]byte // optional
	Requester        string
}

// RequestRedemption marks the nullifier spent, burns amount_sats from the
// pool vault, optionally inserts a change commitment, and creates a
// Pending redemption record.
func (p *Pool) RequestRedemption(in RequestRedemptionInput, now time.Time) ([32]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkSpendPreconditionsLocked(in.Root, in.Nullifier); err != nil {
		return [32]byte{}, err
	}
	if !isValidBtcAddress(in.BtcAddress) {
		return [32]byte{}, poolerr.ErrInvalidBtcAddress
	}

	var changeCommitment [32]byte
	if in.ChangeCommitment != nil {
		changeCommitment = *in.ChangeCommitment
	}
	addressHash := crypto.SHA256([]byte(in.BtcAddress))
	publicInputs := fieldElements(in.Root, in.Nullifier, amountField(in.AmountSats), addressHash, changeCommitment)

	ok, err := crypto.VerifyZK(in.VerifyingKey, in.Proof, publicInputs)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return [32]byte{}, poolerr.ErrZkVerificationFailed
	}

	if err := p.nullifiers.MarkSpent(in.Nullifier, nullifier.OpRedemption, in.Requester, now); err != nil {
		return [32]byte{}, err
	}

	if in.ChangeCommitment != nil {
		if _, err := p.tree.Insert(*in.ChangeCommitment); err != nil {
			return [32]byte{}, err
		}
	}

	p.state.TotalBurned = new(uint256.Int).Add(p.state.TotalBurned, uint256.NewInt(in.AmountSats))
	p.state.PendingRedemptions++
	p.state.LastUpdate = now

	requestID := requestIDFor(in.Nullifier, now)
	p.redemptions[requestID] = &RedemptionRequest{
		RequestID:  requestID,
		Requester:  in.Requester,
		AmountSats: in.AmountSats,
		BtcAddress: in.BtcAddress,
		Status:     RedemptionPending,
		CreatedAt:  now,
	}
	return requestID, nil
}

// Redemption looks up a redemption request by its ID.
func (p *Pool) Redemption(requestID [32]byte) (RedemptionRequest, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rec, ok := p.redemptions[requestID]
	if !ok {
		return RedemptionRequest{}, false
	}
	return *rec, true
}

// CompleteRedemption sets btc_txid and marks a redemption Completed.
// Preconditions: caller is the authority; record is in {Pending,
// Processing}. Not blocked by pause (spec §4.D).
func (p *Pool) CompleteRedemption(caller string, requestID [32]byte, btcTxid string, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireInitializedLocked(); err != nil {
		return err
	}
	if caller != p.state.Config.Authority {
		return poolerr.ErrUnauthorized
	}

	rec, ok := p.redemptions[requestID]
	if !ok {
		return poolerr.ErrRedemptionNotFound
	}
	if rec.Status == RedemptionCompleted {
		return poolerr.ErrRedemptionAlreadyCompleted
	}
	if rec.Status != RedemptionPending && rec.Status != RedemptionProcessing {
		return poolerr.ErrInvalidRedemptionState
	}

	rec.BtcTxid = btcTxid
	rec.Status = RedemptionCompleted
	rec.CompletedAt = now

	if p.state.PendingRedemptions > 0 {
		p.state.PendingRedemptions--
	}
	p.state.LastUpdate = now
	return nil
}

// AnnounceStealth creates a stealth announcement record keyed by
// ephemeral_pub (spec §4.D). A second announcement under a key already
// present is rejected with poolerr.ErrAlreadyInitialized and leaves the
// first record unchanged; this mirrors announce_stealth.rs's "account
// already exists" check.
func (p *Pool) AnnounceStealth(ephemeralPub [33]byte, amountSats uint64, commitment [32]byte, leafIndex uint64, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.stealth[ephemeralPub]; exists {
		return poolerr.ErrAlreadyInitialized
	}

	p.stealth[ephemeralPub] = &StealthAnnouncement{
		EphemeralPub: ephemeralPub,
		AmountSats:   amountSats,
		Commitment:   commitment,
		LeafIndex:    leafIndex,
		CreatedAt:    now,
	}
	return nil
}

// StealthAnnouncements returns a snapshot slice of every recorded
// announcement, for a Scanner to scan offline.
func (p *Pool) StealthAnnouncements() []StealthAnnouncement {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]StealthAnnouncement, 0, len(p.stealth))
	for _, a := range p.stealth {
		out = append(out, *a)
	}
	return out
}

// AddDemoCommitment is the supplemented demo operation (grounded on
// original_source's add_demo_note.rs): inserts a commitment directly
// without a real BTC deposit or SPV proof, minting the fixed demo amount.
// Not part of spec §4.D's production operation table; exists only so
// integration tests and local demos can seed the tree without a BTC
// network. Rejected once the pool is paused, same as any other mutating
// operation.
const DemoAmountSats = 10_000

func (p *Pool) AddDemoCommitment(secret [32]byte, now time.Time) (leafIndex uint64, commitment [32]byte, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.requireInitializedLocked(); err != nil {
		return 0, [32]byte{}, err
	}
	if err := p.requireNotPausedLocked(); err != nil {
		return 0, [32]byte{}, err
	}

	nullifierPreimage := append(append([]byte{}, secret[:]...), []byte("nullifier_salt__")...)
	demoNullifier := crypto.SHA256(nullifierPreimage)
	commitment = crypto.SHA256(append(append([]byte{}, demoNullifier[:]...), secret[:]...))

	index, err := p.tree.Insert(commitment)
	if err != nil {
		return 0, [32]byte{}, err
	}

	p.state.TotalMinted = new(uint256.Int).Add(p.state.TotalMinted, uint256.NewInt(DemoAmountSats))
	p.state.DepositCount++
	p.state.LastUpdate = now
	return index, commitment, nil
}

// requestIDFor derives a redemption request's content-addressed ID from
// its spent nullifier and the request time, following the pool package's
// blake3-keyed-record convention.
func requestIDFor(nullifierHash [32]byte, now time.Time) [32]byte {
	h := blake3.New()
	h.Write(nullifierHash[:])
	ts := big.NewInt(now.UnixNano()).Bytes()
	h.Write(ts)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// fieldElements converts the circuit-public-input convention's mixed
// 32-byte/field values into the canonical little-endian big.Int encoding
// crypto.VerifyZK expects (spec §4.D, "Circuit-public-input conventions").
func fieldElements(parts ...[32]byte) []*big.Int {
	out := make([]*big.Int, len(parts))
	for i, part := range parts {
		le := make([]byte, 32)
		for j := 0; j < 32; j++ {
			le[j] = part[31-j]
		}
		out[i] = new(big.Int).SetBytes(le)
	}
	return out
}

func amountField(amount uint64) [32]byte {
	var out [32]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(amount >> (8 * i))
	}
	return out
}

// isValidBtcAddress is a permissive shape check (spec §4.D's "btc_address
// parses as a valid BTC address"); it decodes nothing (cmd/redemption-
// processor runs btcutil.DecodeAddress before paying out), this only bounds
// length the way the original's variable-length bounded field does.
func isValidBtcAddress(addr string) bool {
	return len(addr) >= 14 && len(addr) <= 90
}
