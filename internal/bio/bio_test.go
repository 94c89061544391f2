package bio

import (
	"errors"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		n     uint
	}{
		{"zero width", 0, 0},
		{"single bit set", 1, 1},
		{"single bit clear", 0, 1},
		{"byte aligned", 0xAB, 8},
		{"straddles byte boundary", 0x1FF, 9},
		{"16 bits", 0xBEEF, 16},
		{"64 bits", 0xDEADBEEFCAFEBABE, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 16)
			w := NewWriter(buf)
			if err := w.WriteBits(tt.value, tt.n); err != nil {
				t.Fatalf("WriteBits: %v", err)
			}
			r := NewReader(buf)
			got, err := r.ReadBits(tt.n)
			if err != nil {
				t.Fatalf("ReadBits: %v", err)
			}
			mask := uint64(0)
			if tt.n > 0 {
				mask = (uint64(1) << tt.n) - 1
				if tt.n == 64 {
					mask = ^uint64(0)
				}
			}
			if got != tt.value&mask {
				t.Errorf("got %#x, want %#x", got, tt.value&mask)
			}
		})
	}
}

func TestPackedSequenceIsContiguous(t *testing.T) {
	// Packs values of varying width back to back with no byte alignment,
	// matching a cell payload's px,py,pz,cx,cy,cz sequence.
	widths := []uint{3, 5, 8, 0, 2, 16}
	values := []uint64{0x5, 0x1B, 0xAA, 0, 0x3, 0xFFFF}

	buf := make([]byte, 8)
	w := NewWriter(buf)
	for i := range widths {
		if err := w.WriteBits(values[i], widths[i]); err != nil {
			t.Fatalf("WriteBits(%d): %v", i, err)
		}
	}
	wantBits := w.TellBits()

	r := NewReader(buf)
	for i := range widths {
		got, err := r.ReadBits(widths[i])
		if err != nil {
			t.Fatalf("ReadBits(%d): %v", i, err)
		}
		mask := uint64(0)
		if widths[i] > 0 {
			mask = (uint64(1) << widths[i]) - 1
		}
		if got != values[i]&mask {
			t.Errorf("field %d: got %#x, want %#x", i, got, values[i]&mask)
		}
	}
	if r.TellBits() != wantBits {
		t.Errorf("TellBits after read = %d, want %d", r.TellBits(), wantBits)
	}
}

func TestSeekAndTell(t *testing.T) {
	buf := make([]byte, 4)
	w := NewWriter(buf)
	if err := w.SeekToByte(2); err != nil {
		t.Fatalf("SeekToByte: %v", err)
	}
	if w.TellBits() != 16 {
		t.Errorf("TellBits = %d, want 16", w.TellBits())
	}
	if err := w.WriteBits(0xFF, 8); err != nil {
		t.Fatalf("WriteBits: %v", err)
	}
	if w.TellBytes() != 3 {
		t.Errorf("TellBytes = %d, want 3", w.TellBytes())
	}
	if buf[2] != 0xFF {
		t.Errorf("buf[2] = %#x, want 0xff", buf[2])
	}
	if buf[0] != 0 || buf[1] != 0 {
		t.Errorf("bytes before seek target were modified: %v", buf[:2])
	}
}

func TestTellBytesRoundsUp(t *testing.T) {
	buf := make([]byte, 4)
	w := NewWriter(buf)
	if err := w.WriteBits(0x3, 3); err != nil {
		t.Fatalf("WriteBits: %v", err)
	}
	if w.TellBytes() != 1 {
		t.Errorf("TellBytes = %d, want 1", w.TellBytes())
	}
}

func TestWriteOutOfBounds(t *testing.T) {
	buf := make([]byte, 1)
	w := NewWriter(buf)
	if err := w.WriteBits(1, 8); err != nil {
		t.Fatalf("first write should fit: %v", err)
	}
	if err := w.WriteBits(1, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("WriteBits past end: got %v, want ErrOutOfBounds", err)
	}
}

func TestReadOutOfBounds(t *testing.T) {
	buf := make([]byte, 1)
	r := NewReader(buf)
	if _, err := r.ReadBits(8); err != nil {
		t.Fatalf("first read should fit: %v", err)
	}
	if _, err := r.ReadBits(1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("ReadBits past end: got %v, want ErrOutOfBounds", err)
	}
}

func TestSeekOutOfBounds(t *testing.T) {
	buf := make([]byte, 2)
	w := NewWriter(buf)
	if err := w.SeekToByte(3); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("SeekToByte past end: got %v, want ErrOutOfBounds", err)
	}
	// Seeking exactly to the end (one past the last byte) is valid.
	if err := w.SeekToByte(2); err != nil {
		t.Errorf("SeekToByte at end: %v", err)
	}
}
