package custody

import (
	"bytes"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/cheng-chun-yuan/zVault-sub001/crypto"
)

// Errors returned by VerifySPV, one per spec §4.E verification step.
var (
	ErrSPVDecodeFailed   = errors.New("custody: raw_tx does not decode to a transaction with txid proof.Txid")
	ErrSPVVoutOutOfRange = errors.New("custody: vout references an output the transaction does not have")
	ErrSPVMerkleMismatch = errors.New("custody: merkle path does not resolve to the attested block header root")
	ErrSPVUnknownHeader  = errors.New("custody: oracle has no header at block_height")
	ErrSPVNotConfirmed   = errors.New("custody: transaction has fewer than the required confirmations")
	ErrSPVOutputMismatch = errors.New("custody: transaction output does not match the expected deposit address/amount")
)

// VerifySPV implements spec §4.E's four-step deposit verification:
//  1. recompute the txid from raw_tx and check it matches proof.Txid
//  2. fold proof.MerklePath with the txid to a candidate block merkle root
//     and compare it against oracle's attested root for block_height
//  3. ask oracle for the confirmation count and require >= requiredConfirmations
//  4. parse raw_tx, locate the output at vout, and check its scriptPubKey
//     and value match the expected deposit address and amount
//
// Grounded on original_source/backend/src/esplora.rs's confirmation/header
// lookups (now behind ChainOracle) combined with crypto.VerifyBitcoinMerkle
// (btcd/chainhash-based, shared with the rest of this module).
func VerifySPV(proof SPVProof, vout uint32, expected *DepositAddress, expectedAmountSats int64, requiredConfirmations uint32, oracle ChainOracle) error {
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(proof.RawTx)); err != nil {
		return ErrSPVDecodeFailed
	}

	computedTxid := tx.TxHash()
	if [32]byte(computedTxid) != proof.Txid {
		return ErrSPVDecodeFailed
	}

	root, ok := oracle.HeaderMerkleRoot(proof.BlockHeight)
	if !ok {
		return ErrSPVUnknownHeader
	}

	siblings := make([]chainhash.Hash, len(proof.MerklePath))
	for i, s := range proof.MerklePath {
		siblings[i] = chainhash.Hash(s)
	}
	if !crypto.VerifyBitcoinMerkle(chainhash.Hash(proof.Txid), proof.TxIndex, siblings, chainhash.Hash(root)) {
		return ErrSPVMerkleMismatch
	}

	if oracle.Confirmations(proof.BlockHeight) < requiredConfirmations {
		return ErrSPVNotConfirmed
	}

	if int(vout) >= len(tx.TxOut) {
		return ErrSPVVoutOutOfRange
	}
	out := tx.TxOut[vout]

	expectedScript, err := expectedPkScript(expected)
	if err != nil {
		return err
	}
	if !bytes.Equal(out.PkScript, expectedScript) || out.Value != expectedAmountSats {
		return ErrSPVOutputMismatch
	}
	return nil
}

// expectedPkScript rebuilds the scriptPubKey a deposit address's Taproot
// output key decodes to: OP_1 <32-byte output key>, per BIP-341.
func expectedPkScript(addr *DepositAddress) ([]byte, error) {
	script := make([]byte, 0, 34)
	script = append(script, 0x51) // OP_1
	script = append(script, 0x20) // push 32 bytes
	script = append(script, addr.OutputKey[:]...)
	return script, nil
}
