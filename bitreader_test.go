package flate

import (
	"bytes"
	"io"
	"testing"
)

func TestBitReader_ReadBitsLSB(t *testing.T) {
	// 0xb5 = 0b10110101 -- LSB first: 1,0,1,0,1,1,0,1
	br := newBitReader(bytes.NewReader([]byte{0xb5}))

	for i, want := range []uint32{1, 0, 1, 0, 1, 1, 0, 1} {
		got, err := br.readBitsLSB(1)
		if err != nil {
			t.Fatalf("bit %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("bit %d: got %d, want %d", i, got, want)
		}
	}
}

func TestBitReader_ReadBitsLSB_MultiBit(t *testing.T) {
	// Bytes 0x34, 0x12 read LSB-first as a 16-bit field reassemble to the
	// little-endian uint16 0x1234.
	br := newBitReader(bytes.NewReader([]byte{0x34, 0x12}))

	got, err := br.readBitsLSB(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x1234 {
		t.Errorf("got %#04x, want %#04x", got, 0x1234)
	}
}

func TestBitReader_ReadBitsLSB_SpansByteBoundary(t *testing.T) {
	// 0xf0 = 0b11110000, 0x0f = 0b00001111.
	// First 4 bits of byte 0 (LSB-first) are 0,0,0,0; reading 6 bits
	// crosses into byte 1 and picks up its low 2 bits (1,1).
	br := newBitReader(bytes.NewReader([]byte{0xf0, 0x0f}))

	if _, err := br.readBitsLSB(4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := br.readBitsLSB(6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Remaining 4 bits of byte 0 are 1,1,1,1; then 2 low bits of byte 1 are
	// 1,1: assembled LSB-first that's 0b111111 = 0x3f.
	if got != 0x3f {
		t.Errorf("got %#02x, want %#02x", got, 0x3f)
	}
}

func TestBitReader_AlignToByte(t *testing.T) {
	br := newBitReader(bytes.NewReader([]byte{0xff, 0xaa}))

	if _, err := br.readBitsLSB(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	br.alignToByte()

	got, err := br.readAlignedByte()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0xaa {
		t.Errorf("got %#02x, want %#02x", got, 0xaa)
	}
}

func TestBitReader_UnexpectedEOF(t *testing.T) {
	br := newBitReader(bytes.NewReader(nil))
	_, err := br.readBitsLSB(1)
	if err != io.ErrUnexpectedEOF {
		t.Errorf("got %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestBitReader_ReadCodeBit(t *testing.T) {
	// A Huffman code is assembled MSB-first from bits that are themselves
	// pulled LSB-first from the byte stream, exactly like readBitsLSB.
	// 0x02 = 0b00000010: first two bits off the wire are 0, then 1.
	br := newBitReader(bytes.NewReader([]byte{0x02}))

	var code byte
	for i := 0; i < 2; i++ {
		bit, err := br.readCodeBit()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		code = (code << 1) | bit
	}
	if code != 0b01 {
		t.Errorf("got %#02b, want %#02b", code, 0b01)
	}
}
