package crypto

import "testing"

func TestDoubleSHA256(t *testing.T) {
	data := []byte("hello bitcoin")
	got := DoubleSHA256(data)

	first := SHA256(data)
	want := SHA256(first[:])

	if got != want {
		t.Errorf("DoubleSHA256 mismatch: got %x, want %x", got, want)
	}
}

func TestDoubleSHA256PairOrderMatters(t *testing.T) {
	left := [32]byte{0x01}
	right := [32]byte{0x02}

	lr := DoubleSHA256Pair(left, right)
	rl := DoubleSHA256Pair(right, left)

	if lr == rl {
		t.Error("expected DoubleSHA256Pair to be order-sensitive")
	}
}

func TestHashMeetsTarget(t *testing.T) {
	target := [32]byte{}
	target[0] = 0x00
	target[1] = 0xFF

	below := [32]byte{}
	below[1] = 0x10

	above := [32]byte{}
	above[1] = 0xFF
	above[2] = 0x01

	if !HashMeetsTarget(below, target) {
		t.Error("expected hash below target to meet target")
	}
	if HashMeetsTarget(above, target) {
		t.Error("expected hash above target to fail")
	}
	if !HashMeetsTarget(target, target) {
		t.Error("expected equal hash to meet target")
	}
}
