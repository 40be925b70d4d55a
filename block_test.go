package flate

import (
	"bytes"
	"testing"
)

func TestInflateStored(t *testing.T) {
	// alignToByte is a no-op here since the bitReader starts byte-aligned.
	// LEN=0x0003, NLEN=~LEN, payload "xyz".
	raw := mustDecodeHex("0300fcff" + "78797a")
	inf := newInflater(bytes.NewReader(raw))

	var out bytes.Buffer
	if err := inf.inflateStored(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := out.String(), "xyz"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInflateStored_LengthMismatch(t *testing.T) {
	raw := mustDecodeHex("030000000000")
	inf := newInflater(bytes.NewReader(raw))

	var out bytes.Buffer
	if err := inf.inflateStored(&out); err == nil {
		t.Errorf("expected error for mismatched LEN/NLEN")
	}
}

// TestInflate_StaticBlock hand-assembles a single BFINAL=1, BTYPE=01 (fixed
// Huffman) block encoding the literal 'A' followed by the end-of-block
// symbol, using the fixed code table from RFC 1951 Section 3.2.6: literal 65
// is 8 bits '01110001', and symbol 256 is 7 bits '0000000'.
func TestInflate_StaticBlock(t *testing.T) {
	bits := bitsOf("110" + "01110001" + "0000000")
	inf := newInflater(bytes.NewReader(packBitsLSB(bits)))

	var out bytes.Buffer
	if err := inf.inflate(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := out.String(), "A"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestInflate_StaticBlockBackReference extends the static-block case with a
// length/distance back-reference: literals 'a','b' (codes '10010001' and
// '10010010', i.e. fixed code 48+literal), then length=3/distance=2 (length
// symbol 257 is 7 bits '0000001' with no extra bits for length 3; distance
// symbol 1 is 5 bits '00001' with no extra bits for distance 2), then
// end-of-block.
func TestInflate_StaticBlockBackReference(t *testing.T) {
	bits := bitsOf("110" +
		"10010001" + // 'a' = 97
		"10010010" + // 'b' = 98
		"0000001" + // length symbol 257 -> base length 3
		"00001" + // distance symbol 1 -> base distance 2
		"0000000") // end-of-block
	inf := newInflater(bytes.NewReader(packBitsLSB(bits)))

	var out bytes.Buffer
	if err := inf.inflate(&out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := out.String(), "ababa"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInflate_ReservedBlockType(t *testing.T) {
	bits := bitsOf("111")
	inf := newInflater(bytes.NewReader(packBitsLSB(bits)))

	var out bytes.Buffer
	if err := inf.inflate(&out); err == nil {
		t.Errorf("expected error for BTYPE=3")
	}
}
