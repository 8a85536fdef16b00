// Package pool implements the pool program: commitment tree, nullifier
// set, state machine, and the shielded-spend operations of spec §4.D.
// Dispatch follows zk.zkVerifyPrecompile's opcode-switch shape generalized
// from an EVM precompile's Run(caller, input) to a plain Go method call,
// since there is no EVM host in this repo.
package pool

import (
	"time"

	"github.com/holiman/uint256"
)

// Instruction discriminators, a closed and explicitly ordered set (spec
// §6): values 1-3 are reserved (record_deposit/claim_direct/
// mint_to_commitment, removed from the original program) and must stay
// unassigned. Stable numeric values so a wire-level caller (e.g.
// cmd/*) can route a single leading byte to the matching Pool method,
// mirroring zk/contract.go's OpVerifyGroth16..OpVerifyBatch opcode
// byte.
const (
	InstrInitialize         uint8 = 0
	InstrSplitCommitment    uint8 = 4
	InstrRequestRedemption  uint8 = 5
	InstrCompleteRedemption uint8 = 6
	InstrSetPaused          uint8 = 7
	InstrVerifyDeposit      uint8 = 8
	InstrClaim              uint8 = 9
	InstrInitCommitmentTree uint8 = 10
	InstrAddDemoCommitment  uint8 = 11
	InstrAnnounceStealth    uint8 = 12
)

// DepositStatus is a deposit record's lifecycle phase (spec §3).
type DepositStatus uint8

const (
	DepositPending DepositStatus = iota
	DepositDetected
	DepositConfirming
	DepositConfirmed
	DepositSweeping
	DepositSweepConfirming
	DepositVerifying
	DepositReady
	DepositClaimed
	DepositFailed
)

func (s DepositStatus) String() string {
	switch s {
	case DepositPending:
		return "pending"
	case DepositDetected:
		return "detected"
	case DepositConfirming:
		return "confirming"
	case DepositConfirmed:
		return "confirmed"
	case DepositSweeping:
		return "sweeping"
	case DepositSweepConfirming:
		return "sweep_confirming"
	case DepositVerifying:
		return "verifying"
	case DepositReady:
		return "ready"
	case DepositClaimed:
		return "claimed"
	case DepositFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RedemptionStatus is a redemption request's lifecycle phase.
type RedemptionStatus uint8

const (
	RedemptionPending RedemptionStatus = iota
	RedemptionProcessing
	RedemptionBroadcasting
	RedemptionCompleted
	RedemptionFailed
)

func (s RedemptionStatus) String() string {
	switch s {
	case RedemptionPending:
		return "pending"
	case RedemptionProcessing:
		return "processing"
	case RedemptionBroadcasting:
		return "broadcasting"
	case RedemptionCompleted:
		return "completed"
	case RedemptionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config is the pool's deployment-time configuration, set once by
// Initialize and read thereafter.
type Config struct {
	Authority           string // control key for admin ops
	GroupPublicKey      [32]byte // threshold-group x-only pubkey used for custody
	MinDepositSats      uint64
	MaxDepositSats      uint64
	RequiredConfirmations uint32
}

// State is the pool's mutable singleton state (spec §3, Pool state).
type State struct {
	Config Config

	DepositCount       uint64
	TotalMinted        *uint256.Int
	TotalBurned         *uint256.Int
	PendingRedemptions uint64
	SplitCount         uint64

	Paused     bool
	LastUpdate time.Time
}

// DepositRecord is one per BTC deposit (spec §3, Deposit record).
type DepositRecord struct {
	Txid       [32]byte
	Vout       uint32
	AmountSats uint64
	BlockHeight uint32
	LeafIndex  uint64
	Depositor  string
	Minted     bool
	Commitment [32]byte
	Status     DepositStatus
}

// RedemptionRequest is one per burn (spec §3, Redemption request).
type RedemptionRequest struct {
	RequestID   [32]byte
	Requester   string
	AmountSats  uint64
	BtcAddress  string
	Status      RedemptionStatus
	BtcTxid     string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// StealthAnnouncement is one per stealth send (spec §3, Stealth
// announcement), keyed by ephemeral_pub. Grounded on
// original_source's state/stealth_announcement.rs V1 layout
// (ephemeral pubkey + amount + commitment), dropping the V2 dual-ECDH
// fields as out of scope — a single compressed ephemeral key is
// sufficient for the EC-Diffie-Hellman scanning spec §3 describes.
type StealthAnnouncement struct {
	EphemeralPub [33]byte
	AmountSats   uint64
	Commitment   [32]byte
	LeafIndex    uint64
	CreatedAt    time.Time
}
