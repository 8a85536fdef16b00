// Package poolerr defines the closed set of pool-program error kinds and
// their stable numeric codes. Every component that can fail an on-chain
// operation returns one of these sentinels, wrapped with context via
// fmt.Errorf("...: %w", err) where additional detail is useful.
package poolerr

import "errors"

// Code is a stable numeric error code, preserved across implementations
// the way the pool program's instruction discriminators are preserved.
type Code uint32

// Configuration errors (6000-6002, 6041, 6043, 6044).
const (
	CodePoolPaused        Code = 6000
	CodeAmountTooSmall    Code = 6001
	CodeAmountTooLarge    Code = 6002
	CodeInvalidPool       Code = 6041
	CodeInvalidFeeRate    Code = 6043
	CodeInvalidEpoch      Code = 6044
)

// Authentication & state errors (6011, 6024-6027, 6060).
const (
	CodeUnauthorized      Code = 6011
	CodeAlreadyInitialized Code = 6024
	CodeNotInitialized    Code = 6025
	CodeWrongOwner        Code = 6026
	CodeInvalidAccountData Code = 6027
	CodeNotWritable       Code = 6060
)

// Cryptographic / ZK errors (6003, 6014, 6019, 6022, 6023, 6046, 6047).
const (
	CodeInvalidMerkleProof Code = 6003
	CodeInvalidProofLength Code = 6014
	CodeInvalidSpvProof    Code = 6019
	CodeInvalidZkProof     Code = 6022
	CodeZkVerificationFailed Code = 6023
	CodeNullifierAlreadyUsed Code = 6046
	CodeInvalidRoot        Code = 6047
)

// Tree errors (6020, 6048).
const (
	CodeTreeFull Code = 6020
	CodeTreeCapacityExceeded Code = 6048
)

// Bitcoin errors (6007, 6017, 6018, 6028, 6029).
const (
	CodeInvalidBtcAddress      Code = 6007
	CodeInvalidHeader          Code = 6017
	CodeInsufficientConfirmations Code = 6018
	CodeBadStealthOpReturn     Code = 6028
	CodeDepositBelowDust       Code = 6029
)

// Redemption errors (6008-6010).
const (
	CodeRedemptionNotFound         Code = 6008
	CodeRedemptionAlreadyCompleted Code = 6009
	CodeInvalidRedemptionState     Code = 6010
)

// Arithmetic errors (6013).
const (
	CodeArithmeticOverflow Code = 6013
)

// Sentinel errors. One per closed error kind; always returned directly or
// wrapped, never constructed ad hoc, so callers can errors.Is against them.
var (
	ErrPoolPaused            = errors.New("pool is paused")
	ErrAmountTooSmall        = errors.New("amount below minimum deposit")
	ErrAmountTooLarge        = errors.New("amount above maximum deposit")
	ErrInvalidPool           = errors.New("invalid pool configuration")
	ErrInvalidFeeRate        = errors.New("invalid fee rate")
	ErrInvalidEpoch          = errors.New("invalid epoch")

	ErrUnauthorized          = errors.New("unauthorized")
	ErrAlreadyInitialized    = errors.New("pool already initialized")
	ErrNotInitialized        = errors.New("pool not initialized")
	ErrWrongOwner            = errors.New("wrong account owner")
	ErrInvalidAccountData    = errors.New("invalid account data")
	ErrNotWritable           = errors.New("account not writable")

	ErrInvalidMerkleProof    = errors.New("invalid merkle proof")
	ErrInvalidProofLength    = errors.New("invalid proof length")
	ErrInvalidSpvProof       = errors.New("invalid spv proof")
	ErrInvalidZkProof        = errors.New("invalid zk proof")
	ErrZkVerificationFailed  = errors.New("zk verification failed")
	ErrNullifierAlreadyUsed  = errors.New("nullifier already used")
	ErrAlreadySpent          = ErrNullifierAlreadyUsed
	ErrInvalidRoot           = errors.New("invalid or stale root")

	ErrTreeFull              = errors.New("commitment tree full")
	ErrTreeCapacityExceeded  = errors.New("insufficient tree capacity for operation")

	ErrInvalidBtcAddress     = errors.New("invalid bitcoin address")
	ErrInvalidHeader         = errors.New("invalid block header")
	ErrInsufficientConfirmations = errors.New("insufficient confirmations")
	ErrBadStealthOpReturn    = errors.New("malformed stealth announcement")
	ErrDepositBelowDust      = errors.New("deposit value at or below dust threshold")

	ErrRedemptionNotFound         = errors.New("redemption request not found")
	ErrRedemptionAlreadyCompleted = errors.New("redemption already completed")
	ErrInvalidRedemptionState     = errors.New("invalid redemption state for operation")

	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	ErrAlreadyMinted = errors.New("deposit already minted")
	ErrQueueFull      = errors.New("redemption queue full")
)

// codeOf maps a sentinel to its stable numeric code for wire/log surfaces.
var codeOf = map[error]Code{
	ErrPoolPaused:         CodePoolPaused,
	ErrAmountTooSmall:     CodeAmountTooSmall,
	ErrAmountTooLarge:     CodeAmountTooLarge,
	ErrInvalidPool:        CodeInvalidPool,
	ErrInvalidFeeRate:     CodeInvalidFeeRate,
	ErrInvalidEpoch:       CodeInvalidEpoch,

	ErrUnauthorized:       CodeUnauthorized,
	ErrAlreadyInitialized: CodeAlreadyInitialized,
	ErrNotInitialized:     CodeNotInitialized,
	ErrWrongOwner:         CodeWrongOwner,
	ErrInvalidAccountData: CodeInvalidAccountData,
	ErrNotWritable:        CodeNotWritable,

	ErrInvalidMerkleProof:   CodeInvalidMerkleProof,
	ErrInvalidProofLength:   CodeInvalidProofLength,
	ErrInvalidSpvProof:      CodeInvalidSpvProof,
	ErrInvalidZkProof:       CodeInvalidZkProof,
	ErrZkVerificationFailed: CodeZkVerificationFailed,
	ErrNullifierAlreadyUsed: CodeNullifierAlreadyUsed,
	ErrInvalidRoot:          CodeInvalidRoot,

	ErrTreeFull:             CodeTreeFull,
	ErrTreeCapacityExceeded: CodeTreeCapacityExceeded,

	ErrInvalidBtcAddress:          CodeInvalidBtcAddress,
	ErrInvalidHeader:              CodeInvalidHeader,
	ErrInsufficientConfirmations:  CodeInsufficientConfirmations,
	ErrBadStealthOpReturn:         CodeBadStealthOpReturn,
	ErrDepositBelowDust:           CodeDepositBelowDust,

	ErrRedemptionNotFound:         CodeRedemptionNotFound,
	ErrRedemptionAlreadyCompleted: CodeRedemptionAlreadyCompleted,
	ErrInvalidRedemptionState:     CodeInvalidRedemptionState,

	ErrArithmeticOverflow: CodeArithmeticOverflow,
}

// CodeFor returns the stable numeric code for a sentinel error, and false
// if err is not one of the closed set (e.g. a wrapped I/O error).
func CodeFor(err error) (Code, bool) {
	for sentinel, code := range codeOf {
		if errors.Is(err, sentinel) {
			return code, true
		}
	}
	return 0, false
}
