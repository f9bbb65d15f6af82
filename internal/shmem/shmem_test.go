package shmem

import (
	"testing"
	"unsafe"
)

func TestSlotsAlignment(t *testing.T) {
	mem := make([]byte, 4096)
	r := FromSlice(mem)

	fbs, err := r.Slots(2, 64)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if len(fbs) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(fbs))
	}

	base := uintptr(r.Base())
	for i, fb := range fbs {
		off := uintptr(fb.Data()) - base
		if off%64 != 0 {
			t.Fatalf("slot %d data offset %d not 64-byte aligned", i, off)
		}
		if fb.Size() == 0 {
			t.Fatalf("slot %d has zero data size", i)
		}
	}

	// Slot strides must not overlap.
	end0 := uintptr(fbs[0].Data()) + uintptr(fbs[0].Size())
	start1 := uintptr(unsafe.Pointer(fbs[1].cursor))
	if end0 > start1 {
		t.Fatalf("slot 0 data [%#x) overlaps slot 1 header %#x", end0, start1)
	}
}

func TestSlotsRejectsBadArguments(t *testing.T) {
	r := FromSlice(make([]byte, 4096))

	if _, err := r.Slots(0, 64); err == nil {
		t.Fatal("zero slot count should fail")
	}
	if _, err := r.Slots(2, 48); err == nil {
		t.Fatal("non-power-of-two alignment should fail")
	}
	if _, err := r.Slots(64, 64); err == nil {
		t.Fatal("region too small for slot count should fail")
	}
}

func TestWriteCursorRoundTrip(t *testing.T) {
	mem := make([]byte, 4096)
	r := FromSlice(mem)

	fbs, err := r.Slots(1, 16)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	fb := fbs[0]

	if fb.WriteCursor() != 0 {
		t.Fatalf("fresh slot cursor should be 0, got %d", fb.WriteCursor())
	}
	fb.SetWriteCursor(1920 * 1080 * 4)
	if fb.WriteCursor() != 1920*1080*4 {
		t.Fatalf("cursor readback mismatch: %d", fb.WriteCursor())
	}

	// The cursor lives in the first four bytes of the slot.
	if mem[0] == 0 && mem[1] == 0 && mem[2] == 0 && mem[3] == 0 {
		t.Fatal("cursor store should be visible in the backing memory")
	}
}

func TestFromSliceEmpty(t *testing.T) {
	r := FromSlice(nil)
	if r.Size() != 0 {
		t.Fatalf("empty region size should be 0, got %d", r.Size())
	}
	if _, err := r.Slots(1, 16); err == nil {
		t.Fatal("slicing an empty region should fail")
	}
}
