package custody

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Sweep transaction constants (spec §4.E's "Sweep transaction"): a
// version-2 transaction, RBF-signaled inputs, weight-estimated fee based
// on typical Taproot key-path input/output sizes.
const (
	sweepTxVersion      = 2
	sweepBaseVSize      = 10
	sweepPerInputVSize  = 58
	sweepPerOutputVSize = 43
	// sweepSequenceRBF signals replace-by-fee per BIP-125 on every input.
	sweepSequenceRBF = wire.MaxTxInSequenceNum - 2
)

// DustThreshold is btcd's standard relay dust limit for a P2TR output
// (546 sats): a UTXO at or below this value is not economical to sweep
// since it would round to zero after fee allocation.
const DustThreshold = 546

// ErrInsufficientFunds is returned when the swept inputs do not cover the
// payout plus the estimated fee.
var ErrInsufficientFunds = errors.New("custody: swept inputs do not cover payout plus fee")

// EstimateSweepVSize approximates the virtual size of a sweep transaction
// with nInputs Taproot key-path inputs and nOutputs outputs, following
// spec §4.E's fee model: 10 + n_inputs*58 + n_outputs*43.
func EstimateSweepVSize(nInputs, nOutputs int) int64 {
	return sweepBaseVSize + int64(nInputs)*sweepPerInputVSize + int64(nOutputs)*sweepPerOutputVSize
}

// BuildSweepTx assembles an unsigned sweep transaction spending
// params.Inputs via the Taproot key path to params.PayoutScript, with an
// optional change output back to params.ChangeScript. Returns the
// unsigned transaction and the estimated fee (EstimateSweepVSize times
// params.FeeRateSatVB); with no change output, input value beyond payout
// plus that fee is left to the miner as well. The caller is responsible for
// attaching the FROST aggregated Schnorr witness to each input before
// broadcast.
func BuildSweepTx(params SweepParams) (*wire.MsgTx, int64, error) {
	if len(params.Inputs) == 0 {
		return nil, 0, errors.New("custody: sweep requires at least one input")
	}

	var total int64
	for _, in := range params.Inputs {
		total += in.ValueSats
	}

	nOutputs := 1
	if params.ChangeScript != nil {
		nOutputs = 2
	}
	fee := EstimateSweepVSize(len(params.Inputs), nOutputs) * params.FeeRateSatVB

	if total < params.PayoutSats+fee {
		return nil, 0, ErrInsufficientFunds
	}

	tx := wire.NewMsgTx(sweepTxVersion)
	for _, in := range params.Inputs {
		hash := chainhash.Hash(in.Txid)
		prevOut := wire.NewOutPoint(&hash, in.Vout)
		txIn := wire.NewTxIn(prevOut, nil, nil)
		txIn.Sequence = sweepSequenceRBF
		tx.AddTxIn(txIn)
	}

	tx.AddTxOut(wire.NewTxOut(params.PayoutSats, params.PayoutScript))

	change := total - params.PayoutSats - fee
	if params.ChangeScript != nil && change > 0 {
		tx.AddTxOut(wire.NewTxOut(change, params.ChangeScript))
	}

	return tx, fee, nil
}
