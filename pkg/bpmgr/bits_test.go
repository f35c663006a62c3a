package bpmgr

import "testing"

func TestBitOps(t *testing.T) {
	var w uint32
	w = SetBit(w, 3)
	if !TestBit(w, 3) {
		t.Fatalf("expected bit 3 set")
	}
	w = SetBit(w, 7)
	if w != 0x88 {
		t.Fatalf("expected 0x88, got %#x", w)
	}
	w = ClearBit(w, 3)
	if TestBit(w, 3) {
		t.Fatalf("expected bit 3 cleared")
	}
	if !TestBit(w, 7) {
		t.Fatalf("expected bit 7 to remain set")
	}
}
