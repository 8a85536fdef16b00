// Package custody implements spec §4.E's BTC custody primitives: dual-
// path Taproot output construction (threshold key path plus user refund
// script path), SPV deposit verification, and sweep-transaction
// construction. Taproot/Schnorr math is grounded on
// original_source/backend/src/taproot.rs's PoolKeys and its re-exported
// generate_deposit_address_dual_path/build_timelock_script shape, built
// here on github.com/btcsuite/btcd/{btcec/v2,txscript,wire,chaincfg,
// chaincfg/chainhash} — a stack this repo's teacher carries no
// equivalent of, adopted wholesale from sputn1ck-taproot-assets.
package custody

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg"
)

// Timelock defaults (spec §4.E), matching
// original_source/backend/src/bitcoin/mod.rs's re-exported
// REFUND_TIMELOCK_BLOCKS / REFUND_TIMELOCK_BLOCKS_TESTNET constants.
const (
	RefundTimelockBlocksMainnet = 144
	RefundTimelockBlocksTestnet = 6
)

// RequiredConfirmations is the design default for production deposits
// (spec §4.E); individual deployments may configure a different value.
const RequiredConfirmations = 2

// DepositAddress is the dual-path Taproot output for one deposit: the
// user's refund script path plus the threshold group's key path.
type DepositAddress struct {
	Address        string   // bech32m Taproot address (bc1p...)
	OutputKey      [32]byte // BIP-341 tweaked output key, x-only
	InternalKey    [32]byte // threshold group public key, x-only
	RefundPubKey   [32]byte // user refund key, x-only
	TimelockBlocks uint32   // relative-locktime (CSV) the script path requires
	MerkleRoot     [32]byte // single-leaf script tree root
	Network        *chaincfg.Params
}

// SpendingPath identifies which of the two Taproot paths a spend used.
type SpendingPath int

const (
	KeyPath SpendingPath = iota
	ScriptPath
)

// SweepParams bundles sweep-transaction construction inputs (spec
// §4.E's "Sweep transaction").
type SweepParams struct {
	Inputs       []SweepInput
	PayoutSats   int64
	PayoutScript []byte // destination scriptPubKey
	ChangeScript []byte // optional; nil means no change output
	FeeRateSatVB int64
}

// SweepInput is one UTXO being swept via the Taproot key path.
type SweepInput struct {
	Txid      [32]byte
	Vout      uint32
	ValueSats int64
	PkScript  []byte
}

// SPVProof bundles the data verify_spv checks (spec §4.E).
type SPVProof struct {
	RawTx       []byte
	Txid        [32]byte
	BlockHeight uint32
	MerklePath  [][32]byte
	TxIndex     uint32
}

// ChainOracle is the external light-client surface spec §1 assumes:
// "verify_inclusion(txid, block_height, merkle_path, index)" and
// "confirmations(height)". Grounded on
// original_source/backend/src/esplora.rs's EsploraClient
// (get_tx_status/get_block_height/get_confirmations), generalized from
// one concrete HTTP client to an interface so custody and lifecycle
// never depend on a transport.
type ChainOracle interface {
	// HeaderMerkleRoot returns the block merkle root the light client has
	// attested for the header at height, and whether that header exists.
	HeaderMerkleRoot(height uint32) ([32]byte, bool)
	// TipHeight returns the current chain tip height as observed by the
	// light client.
	TipHeight() uint32
	// Confirmations reports tipHeight - blockHeight + 1, the
	// EsploraClient.get_confirmations formula.
	Confirmations(blockHeight uint32) uint32
	// Broadcast submits a raw transaction and returns its txid.
	Broadcast(rawTx []byte) ([32]byte, error)
	// Now returns the oracle's view of wall-clock time, for callers that
	// need to timestamp observations without reaching for time.Now
	// directly (keeps watcher logic deterministic under test).
	Now() time.Time
}
