package custody

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg"
)

func xOnlyKey(t *testing.T) [32]byte {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	var out [32]byte
	copy(out[:], schnorr.SerializePubKey(priv.PubKey()))
	return out
}

func TestBuildDepositAddressProducesTaprootAddress(t *testing.T) {
	internal := xOnlyKey(t)
	refund := xOnlyKey(t)

	addr, err := BuildDepositAddress(internal, refund, RefundTimelockBlocksTestnet, &chaincfg.TestNet3Params)
	if err != nil {
		t.Fatalf("BuildDepositAddress: %v", err)
	}
	if addr.Address == "" {
		t.Fatal("expected a non-empty bech32m address")
	}
	if addr.Address[:4] != "tb1p" {
		t.Errorf("expected a testnet Taproot address (tb1p...), got %s", addr.Address)
	}
	if addr.InternalKey != internal || addr.RefundPubKey != refund {
		t.Error("expected the address to record the keys it was built from")
	}
}

func TestBuildDepositAddressDifferentRefundKeysDifferentOutputs(t *testing.T) {
	internal := xOnlyKey(t)
	refundA := xOnlyKey(t)
	refundB := xOnlyKey(t)

	addrA, err := BuildDepositAddress(internal, refundA, RefundTimelockBlocksMainnet, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("BuildDepositAddress A: %v", err)
	}
	addrB, err := BuildDepositAddress(internal, refundB, RefundTimelockBlocksMainnet, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("BuildDepositAddress B: %v", err)
	}
	if addrA.OutputKey == addrB.OutputKey {
		t.Error("expected different refund keys to tweak the internal key to different output keys")
	}
}

func TestBuildDepositAddressRejectsInvalidKey(t *testing.T) {
	internal := xOnlyKey(t)
	var badRefund [32]byte // all zero, not a valid x-only point
	if _, err := BuildDepositAddress(internal, badRefund, RefundTimelockBlocksMainnet, &chaincfg.MainNetParams); err == nil {
		t.Fatal("expected an error for an invalid refund key")
	}
}

func TestRefundControlBlockRootHashMatchesMerkleRoot(t *testing.T) {
	internal := xOnlyKey(t)
	refund := xOnlyKey(t)

	addr, err := BuildDepositAddress(internal, refund, RefundTimelockBlocksMainnet, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("BuildDepositAddress: %v", err)
	}

	cb, script, err := RefundControlBlock(addr)
	if err != nil {
		t.Fatalf("RefundControlBlock: %v", err)
	}
	if len(script) == 0 {
		t.Fatal("expected a non-empty refund script")
	}
	root := cb.RootHash(script)
	if [32]byte(chainhashFromSlice(root)) != addr.MerkleRoot {
		t.Error("expected the control block's root hash to match the address's recorded merkle root")
	}
}

func TestRefundTimelockBlocksByNetwork(t *testing.T) {
	if got := RefundTimelockBlocks(&chaincfg.MainNetParams); got != RefundTimelockBlocksMainnet {
		t.Errorf("mainnet: got %d, want %d", got, RefundTimelockBlocksMainnet)
	}
	if got := RefundTimelockBlocks(&chaincfg.TestNet3Params); got != RefundTimelockBlocksTestnet {
		t.Errorf("testnet: got %d, want %d", got, RefundTimelockBlocksTestnet)
	}
}

func chainhashFromSlice(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}
