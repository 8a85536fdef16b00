package nullifier

import (
	"testing"
	"time"

	"github.com/cheng-chun-yuan/zVault-sub001/poolerr"
)

func TestIsSpentInitiallyFalse(t *testing.T) {
	s := New()
	n := [32]byte{0x01}
	if s.IsSpent(n) {
		t.Error("expected unspent nullifier to report false")
	}
}

func TestMarkSpentThenIsSpent(t *testing.T) {
	s := New()
	n := [32]byte{0x01}

	if err := s.MarkSpent(n, OpRedemption, "spender1", time.Unix(1000, 0)); err != nil {
		t.Fatalf("MarkSpent failed: %v", err)
	}
	if !s.IsSpent(n) {
		t.Error("expected nullifier to be spent after MarkSpent")
	}
}

func TestNullifierMonotonicity(t *testing.T) {
	// Property 3: once is_spent(N) is true it is true forever, and a double
	// mark_spent is rejected.
	s := New()
	n := [32]byte{0x02}

	if err := s.MarkSpent(n, OpSplit, "spender2", time.Unix(2000, 0)); err != nil {
		t.Fatalf("first MarkSpent failed: %v", err)
	}

	err := s.MarkSpent(n, OpSplit, "spender2", time.Unix(2001, 0))
	if err != poolerr.ErrAlreadySpent {
		t.Errorf("expected ErrAlreadySpent on second mark, got %v", err)
	}
	if !s.IsSpent(n) {
		t.Error("expected nullifier to remain spent after a rejected double-mark")
	}

	rec, ok := s.Get(n)
	if !ok {
		t.Fatal("expected record to exist")
	}
	if rec.SpentAt != time.Unix(2000, 0) {
		t.Error("expected the first mark's timestamp to be preserved, not overwritten")
	}
}

func TestDoubleSpendRejection(t *testing.T) {
	// S2 — Double-spend rejection: first call succeeds, second returns
	// NullifierAlreadyUsed and leaves state unchanged.
	s := New()
	n := [32]byte{0xAB}

	if err := s.MarkSpent(n, OpRedemption, "alice", time.Now()); err != nil {
		t.Fatalf("first claim should succeed: %v", err)
	}

	before, _ := s.Get(n)

	err := s.MarkSpent(n, OpRedemption, "mallory", time.Now())
	if err != poolerr.ErrNullifierAlreadyUsed {
		t.Errorf("expected ErrNullifierAlreadyUsed, got %v", err)
	}

	after, _ := s.Get(n)
	if before != after {
		t.Error("expected nullifier record unchanged by a rejected second spend")
	}
}

func TestOperationTypeString(t *testing.T) {
	cases := map[OperationType]string{
		OpRedemption: "redemption",
		OpSplit:      "split",
		OpTransfer:   "transfer",
		OpJoin:       "join",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("OperationType(%d).String() = %q, want %q", op, got, want)
		}
	}
}
