package flate

import (
	"bytes"
	"testing"
)

// packBitsLSB packs a sequence of 0/1 values into bytes such that the first
// bit in the sequence ends up as the low bit of the first byte, matching the
// order bitReader.readCodeBit consumes bits in.
func packBitsLSB(bits []byte) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b != 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func bitsOf(s string) []byte {
	out := make([]byte, len(s))
	for i, ch := range s {
		if ch == '1' {
			out[i] = 1
		}
	}
	return out
}

// This is the canonical-code worked example from RFC 1951 Section 3.2.2.
var rfcExampleLengths = []byte{3, 3, 3, 3, 3, 2, 4, 4}

func TestHuffmanDecoder_RFCExample(t *testing.T) {
	var hd huffmanDecoder
	if err := hd.init(rfcExampleLengths); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	// F=00, A=010, G=1110, H=1111
	bits := bitsOf("00" + "010" + "1110" + "1111")
	br := newBitReader(bytes.NewReader(packBitsLSB(bits)))

	want := []Symbol{5, 0, 6, 7}
	for i, w := range want {
		sym, err := hd.decodeSymbol(br)
		if err != nil {
			t.Fatalf("symbol %d: unexpected error: %v", i, err)
		}
		if sym != w {
			t.Errorf("symbol %d: got %d, want %d", i, sym, w)
		}
	}
}

func TestHuffmanDecoder_Oversubscribed(t *testing.T) {
	var hd huffmanDecoder
	// Three symbols competing for the two available length-1 codes.
	err := hd.init([]byte{1, 1, 1})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestHuffmanDecoder_Incomplete(t *testing.T) {
	var hd huffmanDecoder
	// Two length-2 symbols leave half the length-2 code space unassigned.
	err := hd.init([]byte{2, 2})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestHuffmanDecoder_SingleSymbolException(t *testing.T) {
	var hd huffmanDecoder
	// RFC 1951 explicitly permits an incomplete code of exactly one
	// length-1 symbol, as used for a distance alphabet with one distance.
	if err := hd.init([]byte{1}); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	br := newBitReader(bytes.NewReader(packBitsLSB(bitsOf("0"))))
	sym, err := hd.decodeSymbol(br)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sym != 0 {
		t.Errorf("got %d, want 0", sym)
	}
}

func TestHuffmanDecoder_Degenerate(t *testing.T) {
	var hd huffmanDecoder
	if err := hd.init([]byte{0, 0, 0}); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	br := newBitReader(bytes.NewReader([]byte{0x00}))
	if _, err := hd.decodeSymbol(br); err == nil {
		t.Errorf("expected error decoding from a degenerate code")
	}
}

func TestFixedHuffmanDecoders(t *testing.T) {
	hLL, hD := getFixedHuffDecoders()
	if hLL.empty || hD.empty {
		t.Fatalf("fixed decoders must not be degenerate")
	}
	if got, want := len(hLL.sizeBySymbol()), physicalNumLLCodes; got != want {
		t.Errorf("literal/length size vector: got %d entries, want %d", got, want)
	}
	if got, want := len(hD.sizeBySymbol()), physicalNumDCodes; got != want {
		t.Errorf("distance size vector: got %d entries, want %d", got, want)
	}
}
