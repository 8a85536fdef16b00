package custody

import (
	"bytes"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/cheng-chun-yuan/zVault-sub001/crypto"
)

// fakeOracle is a deterministic in-memory ChainOracle for tests.
type fakeOracle struct {
	headers       map[uint32][32]byte
	tip           uint32
	confirmations uint32
	broadcast     [][]byte
}

func (f *fakeOracle) HeaderMerkleRoot(height uint32) ([32]byte, bool) {
	root, ok := f.headers[height]
	return root, ok
}
func (f *fakeOracle) TipHeight() uint32 { return f.tip }
func (f *fakeOracle) Confirmations(uint32) uint32 { return f.confirmations }
func (f *fakeOracle) Broadcast(rawTx []byte) ([32]byte, error) {
	f.broadcast = append(f.broadcast, rawTx)
	return [32]byte{}, nil
}
func (f *fakeOracle) Now() time.Time { return time.Unix(0, 0) }

func buildTestDepositTx(t *testing.T, addr *DepositAddress, amount int64) (*wire.MsgTx, []byte) {
	t.Helper()
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, nil, nil))
	script := append([]byte{0x51, 0x20}, addr.OutputKey[:]...)
	tx.AddTxOut(wire.NewTxOut(amount, script))

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return tx, buf.Bytes()
}

func TestVerifySPVAcceptsValidProof(t *testing.T) {
	internal := xOnlyKey(t)
	refund := xOnlyKey(t)
	addr, err := BuildDepositAddress(internal, refund, RefundTimelockBlocksTestnet, &chaincfg.TestNet3Params)
	if err != nil {
		t.Fatalf("BuildDepositAddress: %v", err)
	}

	tx, raw := buildTestDepositTx(t, addr, 50_000)
	txid := [32]byte(tx.TxHash())

	root := crypto.DoubleSHA256Pair(txid, txid)
	oracle := &fakeOracle{
		headers:       map[uint32][32]byte{100: root},
		tip:           102,
		confirmations: 3,
	}

	proof := SPVProof{
		RawTx:       raw,
		Txid:        txid,
		BlockHeight: 100,
		MerklePath:  [][32]byte{txid},
		TxIndex:     0,
	}

	if err := VerifySPV(proof, 0, addr, 50_000, 2, oracle); err != nil {
		t.Fatalf("expected VerifySPV to accept a valid proof, got %v", err)
	}
}

func TestVerifySPVRejectsWrongAmount(t *testing.T) {
	internal := xOnlyKey(t)
	refund := xOnlyKey(t)
	addr, err := BuildDepositAddress(internal, refund, RefundTimelockBlocksTestnet, &chaincfg.TestNet3Params)
	if err != nil {
		t.Fatalf("BuildDepositAddress: %v", err)
	}

	tx, raw := buildTestDepositTx(t, addr, 50_000)
	txid := [32]byte(tx.TxHash())
	root := crypto.DoubleSHA256Pair(txid, txid)
	oracle := &fakeOracle{headers: map[uint32][32]byte{100: root}, tip: 102, confirmations: 3}

	proof := SPVProof{RawTx: raw, Txid: txid, BlockHeight: 100, MerklePath: [][32]byte{txid}, TxIndex: 0}

	if err := VerifySPV(proof, 0, addr, 99_999, 2, oracle); err != ErrSPVOutputMismatch {
		t.Errorf("expected ErrSPVOutputMismatch, got %v", err)
	}
}

func TestVerifySPVRejectsInsufficientConfirmations(t *testing.T) {
	internal := xOnlyKey(t)
	refund := xOnlyKey(t)
	addr, err := BuildDepositAddress(internal, refund, RefundTimelockBlocksTestnet, &chaincfg.TestNet3Params)
	if err != nil {
		t.Fatalf("BuildDepositAddress: %v", err)
	}

	tx, raw := buildTestDepositTx(t, addr, 50_000)
	txid := [32]byte(tx.TxHash())
	root := crypto.DoubleSHA256Pair(txid, txid)
	oracle := &fakeOracle{headers: map[uint32][32]byte{100: root}, tip: 100, confirmations: 1}

	proof := SPVProof{RawTx: raw, Txid: txid, BlockHeight: 100, MerklePath: [][32]byte{txid}, TxIndex: 0}

	if err := VerifySPV(proof, 0, addr, 50_000, 2, oracle); err != ErrSPVNotConfirmed {
		t.Errorf("expected ErrSPVNotConfirmed, got %v", err)
	}
}

func TestVerifySPVRejectsUnknownHeader(t *testing.T) {
	internal := xOnlyKey(t)
	refund := xOnlyKey(t)
	addr, err := BuildDepositAddress(internal, refund, RefundTimelockBlocksTestnet, &chaincfg.TestNet3Params)
	if err != nil {
		t.Fatalf("BuildDepositAddress: %v", err)
	}

	tx, raw := buildTestDepositTx(t, addr, 50_000)
	txid := [32]byte(tx.TxHash())
	oracle := &fakeOracle{headers: map[uint32][32]byte{}, tip: 100, confirmations: 3}

	proof := SPVProof{RawTx: raw, Txid: txid, BlockHeight: 100, MerklePath: nil, TxIndex: 0}

	if err := VerifySPV(proof, 0, addr, 50_000, 2, oracle); err != ErrSPVUnknownHeader {
		t.Errorf("expected ErrSPVUnknownHeader, got %v", err)
	}
}
