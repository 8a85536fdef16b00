package custody

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// ErrInvalidPubKey is returned when an x-only public key does not decode
// to a point on the curve.
var ErrInvalidPubKey = errors.New("custody: invalid x-only public key")

// RefundTimelockBlocks returns the default relative-timelock for network,
// mirroring original_source's REFUND_TIMELOCK_BLOCKS /
// REFUND_TIMELOCK_BLOCKS_TESTNET constants.
func RefundTimelockBlocks(network *chaincfg.Params) uint32 {
	if network.Net == chaincfg.MainNetParams.Net {
		return RefundTimelockBlocksMainnet
	}
	return RefundTimelockBlocksTestnet
}

// buildRefundScript constructs the single script-tree leaf spec §4.E
// names: <user_refund_xonly_pubkey> OP_CHECKSIGVERIFY <timelock_blocks>
// OP_CSV. Grounded on sputn1ck-taproot-assets's genTimeoutPathScript
// (schnorr.SerializePubKey + OP_CHECKSIGVERIFY + OP_CHECKSEQUENCEVERIFY
// builder chain).
func buildRefundScript(refundPubKey [32]byte, timelockBlocks uint32) ([]byte, error) {
	pub, err := schnorr.ParsePubKey(refundPubKey[:])
	if err != nil {
		return nil, ErrInvalidPubKey
	}

	builder := txscript.NewScriptBuilder()
	builder.AddData(schnorr.SerializePubKey(pub))
	builder.AddOp(txscript.OP_CHECKSIGVERIFY)
	builder.AddInt64(int64(timelockBlocks))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	return builder.Script()
}

// BuildDepositAddress constructs the dual-path Taproot output for one
// deposit: key path signs with the threshold group (internalKey), script
// path lets the depositor reclaim via refundPubKey after timelockBlocks.
// The output key is the standard BIP-341 tweak of internalKey by the
// script Merkle root (spec §4.E).
func BuildDepositAddress(internalKey, refundPubKey [32]byte, timelockBlocks uint32, network *chaincfg.Params) (*DepositAddress, error) {
	internal, err := schnorr.ParsePubKey(internalKey[:])
	if err != nil {
		return nil, ErrInvalidPubKey
	}

	script, err := buildRefundScript(refundPubKey, timelockBlocks)
	if err != nil {
		return nil, err
	}

	leaf := txscript.NewBaseTapLeaf(script)
	tree := txscript.AssembleTaprootScriptTree(leaf)
	rootHash := tree.RootNode.TapHash()

	outputKey := txscript.ComputeTaprootOutputKey(internal, rootHash[:])

	addr, err := btcutil.NewAddressTaproot(schnorrSerialize(outputKey), network)
	if err != nil {
		return nil, err
	}

	var outputKeyX, merkleRoot [32]byte
	copy(outputKeyX[:], schnorrSerialize(outputKey))
	copy(merkleRoot[:], rootHash[:])

	return &DepositAddress{
		Address:        addr.String(),
		OutputKey:      outputKeyX,
		InternalKey:    internalKey,
		RefundPubKey:   refundPubKey,
		TimelockBlocks: timelockBlocks,
		MerkleRoot:     merkleRoot,
		Network:        network,
	}, nil
}

// schnorrSerialize returns a public key's 32-byte x-only encoding.
func schnorrSerialize(pub *btcec.PublicKey) []byte {
	return schnorr.SerializePubKey(pub)
}

// RefundControlBlock builds the control block the depositor needs to
// spend the script path: leaf version, the (even-y-normalized) internal
// key, and the single-leaf inclusion proof, following
// sputn1ck-taproot-assets's genSuccessControlBlock pattern.
func RefundControlBlock(addr *DepositAddress) (*txscript.ControlBlock, []byte, error) {
	internal, err := schnorr.ParsePubKey(addr.InternalKey[:])
	if err != nil {
		return nil, nil, ErrInvalidPubKey
	}
	script, err := buildRefundScript(addr.RefundPubKey, addr.TimelockBlocks)
	if err != nil {
		return nil, nil, err
	}

	cb := &txscript.ControlBlock{
		LeafVersion: txscript.BaseLeafVersion,
		InternalKey: internal,
	}

	outputKey := txscript.ComputeTaprootOutputKey(internal, addr.MerkleRoot[:])
	if outputKey.SerializeCompressed()[0] == secp256k1OddPrefix {
		cb.OutputKeyYIsOdd = true
	}
	return cb, script, nil
}

// secp256k1OddPrefix is the SEC1 compressed-point prefix for an odd-y
// point (0x03), used to set ControlBlock.OutputKeyYIsOdd the way
// sputn1ck-taproot-assets's genSuccessControlBlock does.
const secp256k1OddPrefix = 0x03
