package lifecycle

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/cheng-chun-yuan/zVault-sub001/custody"
)

// taprootScriptPubKey returns the witness-v1 P2TR scriptPubKey for a
// BIP-341 output key: OP_1 <32-byte x-only key>.
func taprootScriptPubKey(outputKey [32]byte) []byte {
	script := make([]byte, 0, 34)
	script = append(script, 0x51, 0x20)
	script = append(script, outputKey[:]...)
	return script
}

// tweakFor returns addr's script-tree merkle root for use as a FROST
// signing tweak, or nil when addr carries no script tree (the pool's own
// consolidated address spends via the raw, untweaked group key).
func tweakFor(addr *custody.DepositAddress) *[32]byte {
	if addr == nil || addr.MerkleRoot == ([32]byte{}) {
		return nil
	}
	root := addr.MerkleRoot
	return &root
}

// signTaprootInputs computes each input's BIP-341 key-path signature hash
// via txscript.CalcTaprootSignatureHash (SIGHASH_DEFAULT) and attaches the
// resulting FROST-aggregated witness to the matching tx.TxIn. One signing
// call is made per input: the taproot sighash commits to the spending
// input's own index even though every input in tx shares the same
// previous-output set. tweaks[i] is the script-tree merkle root to apply
// for input i, or nil to sign under the raw untweaked group key.
func signTaprootInputs(tx *wire.MsgTx, inputs []custody.SweepInput, tweaks []*[32]byte, signer SweepSigner) error {
	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(inputs))
	for _, in := range inputs {
		hash := chainhash.Hash(in.Txid)
		prevOuts[*wire.NewOutPoint(&hash, in.Vout)] = wire.NewTxOut(in.ValueSats, in.PkScript)
	}
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i := range inputs {
		raw, err := txscript.CalcTaprootSignatureHash(sigHashes, txscript.SigHashDefault, tx, i, fetcher)
		if err != nil {
			return err
		}
		var sigHash [32]byte
		copy(sigHash[:], raw)

		var sig [64]byte
		if tweaks[i] != nil {
			sig, err = signer.SignTweaked(sigHash, *tweaks[i])
		} else {
			sig, err = signer.Sign(sigHash)
		}
		if err != nil {
			return err
		}
		tx.TxIn[i].Witness = wire.TxWitness{append([]byte(nil), sig[:]...)}
	}
	return nil
}
