package wire

import (
	"errors"
	"math"
	"strings"
	"testing"
)

// TestPrimitiveRoundTrip writes one of every primitive and reads them back in
// the same order.
func TestPrimitiveRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteInt8(math.MinInt8)
	w.WriteUint8(math.MaxUint8)
	w.WriteInt16(math.MinInt16)
	w.WriteUint16(math.MaxUint16)
	w.WriteInt32(math.MinInt32)
	w.WriteUint32(math.MaxUint32)
	w.WriteInt64(math.MinInt64)
	w.WriteUint64(math.MaxUint64)
	w.WriteString("")
	w.WriteString("héllo\x00world")

	r := NewReader(w.Bytes())

	if v, err := r.ReadInt8(); err != nil || v != math.MinInt8 {
		t.Errorf("ReadInt8 = %d, %v", v, err)
	}
	if v, err := r.ReadUint8(); err != nil || v != math.MaxUint8 {
		t.Errorf("ReadUint8 = %d, %v", v, err)
	}
	if v, err := r.ReadInt16(); err != nil || v != math.MinInt16 {
		t.Errorf("ReadInt16 = %d, %v", v, err)
	}
	if v, err := r.ReadUint16(); err != nil || v != math.MaxUint16 {
		t.Errorf("ReadUint16 = %d, %v", v, err)
	}
	if v, err := r.ReadInt32(); err != nil || v != math.MinInt32 {
		t.Errorf("ReadInt32 = %d, %v", v, err)
	}
	if v, err := r.ReadUint32(); err != nil || v != math.MaxUint32 {
		t.Errorf("ReadUint32 = %d, %v", v, err)
	}
	if v, err := r.ReadInt64(); err != nil || v != math.MinInt64 {
		t.Errorf("ReadInt64 = %d, %v", v, err)
	}
	if v, err := r.ReadUint64(); err != nil || v != math.MaxUint64 {
		t.Errorf("ReadUint64 = %d, %v", v, err)
	}
	if v, err := r.ReadString(); err != nil || v != "" {
		t.Errorf("ReadString = %q, %v", v, err)
	}
	if v, err := r.ReadString(); err != nil || v != "héllo\x00world" {
		t.Errorf("ReadString = %q, %v", v, err)
	}

	if !r.End() {
		t.Errorf("expected reader at end, %d bytes remain", r.Remaining())
	}
}

// TestWriterGrowth checks that capacity starts at 64 and doubles.
func TestWriterGrowth(t *testing.T) {
	w := NewWriter()
	if w.Cap() != initialCapacity {
		t.Fatalf("initial cap = %d, want %d", w.Cap(), initialCapacity)
	}

	for i := 0; i < 64; i++ {
		w.WriteUint8(1)
	}
	if w.Cap() != 64 {
		t.Fatalf("cap after 64 bytes = %d, want 64", w.Cap())
	}

	w.WriteUint8(1)
	if w.Cap() != 128 {
		t.Fatalf("cap after 65 bytes = %d, want 128", w.Cap())
	}

	w.WriteString(strings.Repeat("x", 1000))
	if w.Cap() != 2048 {
		t.Fatalf("cap after large string = %d, want 2048", w.Cap())
	}
	if w.Len() != 65+8+1000 {
		t.Fatalf("len = %d, want %d", w.Len(), 65+8+1000)
	}
}

// TestReadPastEnd verifies that every truncated read fails with ErrOutOfRange.
func TestReadPastEnd(t *testing.T) {
	full := NewWriter()
	full.WriteString("hello")
	encoded := full.Bytes()

	testCases := []struct {
		name string
		data []byte
		read func(r *Reader) error
	}{
		{"uint8 on empty", nil, func(r *Reader) error { _, err := r.ReadUint8(); return err }},
		{"uint16 on one byte", []byte{1}, func(r *Reader) error { _, err := r.ReadUint16(); return err }},
		{"uint32 on three bytes", []byte{1, 2, 3}, func(r *Reader) error { _, err := r.ReadUint32(); return err }},
		{"uint64 on seven bytes", make([]byte, 7), func(r *Reader) error { _, err := r.ReadUint64(); return err }},
		{"string on empty", nil, func(r *Reader) error { _, err := r.ReadString(); return err }},
		{"string truncated in prefix", encoded[:5], func(r *Reader) error { _, err := r.ReadString(); return err }},
		{"string truncated in body", encoded[:len(encoded)-1], func(r *Reader) error { _, err := r.ReadString(); return err }},
		{"peek on empty", []byte{}, func(r *Reader) error { _, err := r.PeekUint8(); return err }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.read(NewReader(tc.data))
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("got %v, want ErrOutOfRange", err)
			}
		})
	}
}

// TestHugeStringLength makes sure a forged length prefix does not allocate.
func TestHugeStringLength(t *testing.T) {
	w := NewWriter()
	w.WriteUint64(math.MaxUint64)
	w.WriteUint8('x')

	if _, err := NewReader(w.Bytes()).ReadString(); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("got %v, want ErrOutOfRange", err)
	}
}

// TestPeekDoesNotAdvance checks that a peek leaves the offset untouched.
func TestPeekDoesNotAdvance(t *testing.T) {
	r := NewReader([]byte{7, 9})

	for i := 0; i < 3; i++ {
		v, err := r.PeekUint8()
		if err != nil || v != 7 {
			t.Fatalf("PeekUint8 = %d, %v", v, err)
		}
	}
	if r.Remaining() != 2 {
		t.Fatalf("Remaining = %d, want 2", r.Remaining())
	}

	v, _ := r.ReadUint8()
	if v != 7 {
		t.Fatalf("ReadUint8 = %d, want 7", v)
	}
	if v, _ := r.PeekUint8(); v != 9 {
		t.Fatalf("PeekUint8 after read = %d, want 9", v)
	}
}
