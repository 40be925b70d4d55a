package flate

import (
	"bytes"
	"io"
	"testing"
)

func TestReader(t *testing.T) {
	type testRow struct {
		name         string
		format       Format
		dict         []byte
		compressed   []byte
		decompressed []byte
	}

	var testData = [...]testRow{
		{
			name:         "lipsum",
			format:       RawFormat,
			dict:         nil,
			compressed:   mustDecodeHex("04c0d10904210c04d056a680c32aee739b90382c036a2489fdef7b3cb8a0937761f8f440aad017eb07f39db462dd401f3a4ad37ec1a96af8fba6e1ce0a19b37d010000ffff"),
			decompressed: []byte("Lorem ipsum dolor sit amet, consectetur adipiscing elit. Donec ultrices."),
		},
		{
			name:         "pangram",
			format:       RawFormat,
			dict:         nil,
			compressed:   mustDecodeHex("0a2ec8c8ccab50c84f5348ca494cce56282c4d2c2aa9d251c82a4d494f55c8ad5428cb2fd703040000ffff"),
			decompressed: []byte("Sphinx of black quartz, judge my vow."),
		},
		{
			name:         "repetitive-1",
			format:       RawFormat,
			dict:         nil,
			compressed:   mustDecodeHex("52484c4a4e51484d4bcf406221b8083140000000ffff"),
			decompressed: []byte(" abcd efgh abcd efgh efgh abcd abcd efgh "),
		},
		{
			name:         "repetitive-2",
			format:       RawFormat,
			dict:         []byte(" abcd efgh "),
			compressed:   mustDecodeHex("42622258082e420c100000ffff"),
			decompressed: []byte(" abcd efgh abcd efgh efgh abcd abcd efgh "),
		},
		{
			// BFINAL=1, BTYPE=00 (stored), LEN=0x0005, NLEN=~LEN, "Hello".
			name:         "stored-block",
			format:       RawFormat,
			dict:         nil,
			compressed:   mustDecodeHex("010500faff48656c6c6f"),
			decompressed: []byte("Hello"),
		},
		{
			// BFINAL=1, BTYPE=00 (stored), LEN=0x0000, NLEN=0xffff: an empty
			// stored block decodes to zero bytes of output.
			name:         "stored-block-empty",
			format:       RawFormat,
			dict:         nil,
			compressed:   mustDecodeHex("010000ffff"),
			decompressed: []byte{},
		},
		{
			// Two blocks in one DEFLATE stream: the first (BFINAL=0) is
			// stored and holds "AB", the second (BFINAL=1) is also stored
			// and holds "CD".
			name:         "stored-block-multi",
			format:       RawFormat,
			dict:         nil,
			compressed:   mustDecodeHex("000200fdff4142" + "010200fdff4344"),
			decompressed: []byte("ABCD"),
		},
	}

	r := NewReader(eofReader{})

	for _, vector := range testData {
		t.Run(vector.name, func(t *testing.T) {
			src := bytes.NewReader(vector.compressed)
			r.Reset(
				src,
				WithFormat(vector.format),
				WithDictionary(vector.dict),
			)

			output, err := io.ReadAll(r)
			if err != nil {
				t.Errorf("Read failed: %v", err)
				return
			}

			actual := output
			expect := vector.decompressed
			if !bytes.Equal(actual, expect) {
				t.Errorf("unexpected diff:%s", tabify(hexDiff(expect, actual)))
			}
		})
	}
}

func TestReader_Tracers(t *testing.T) {
	var events []Event
	tr := TracerFunc(func(ev Event) {
		events = append(events, ev)
	})

	compressed := mustDecodeHex("010500faff48656c6c6f")
	r := NewReader(bytes.NewReader(compressed), WithFormat(RawFormat), WithTracers(tr))

	output, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(output) != "Hello" {
		t.Fatalf("wrong output: %q", output)
	}

	var sawBlockBegin, sawBlockEnd bool
	for _, ev := range events {
		switch ev.Type {
		case BlockBeginEvent:
			sawBlockBegin = true
			if ev.Block == nil || ev.Block.Type != StoredBlock {
				t.Errorf("BlockBeginEvent: expected StoredBlock, got %+v", ev.Block)
			}
		case BlockEndEvent:
			sawBlockEnd = true
		}
	}
	if !sawBlockBegin || !sawBlockEnd {
		t.Errorf("expected both BlockBeginEvent and BlockEndEvent to fire")
	}
}

func TestReader_CorruptStoredBlockLength(t *testing.T) {
	// LEN=0x0005 but NLEN is not its one's complement.
	compressed := mustDecodeHex("0105000000" + "48656c6c6f")
	r := NewReader(bytes.NewReader(compressed), WithFormat(RawFormat))

	_, err := io.ReadAll(r)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if _, ok := err.(CorruptInputError); !ok {
		t.Errorf("expected CorruptInputError, got %T: %v", err, err)
	}
}

func TestReader_ReservedBlockType(t *testing.T) {
	// BFINAL=1, BTYPE=11 (reserved): byte 0x07 = 0b00000111.
	compressed := mustDecodeHex("07")
	r := NewReader(bytes.NewReader(compressed), WithFormat(RawFormat))

	_, err := io.ReadAll(r)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func BenchmarkReader(b *testing.B) {
	raw := mustDecodeHex("04c0d10904210c04d056a680c32aee739b90382c036a2489fdef7b3cb8a0937761f8f440aad017eb07f39db462dd401f3a4ad37ec1a96af8fba6e1ce0a19b37d010000ffff")
	txt := []byte("Lorem ipsum dolor sit amet, consectetur adipiscing elit. Donec ultrices.")
	r := NewReader(eofReader{}, WithFormat(RawFormat))
	for n := 0; n < b.N; n++ {
		src := bytes.NewReader(raw)
		r.Reset(src)
		nn, err := io.Copy(io.Discard, r)
		if err != nil {
			b.Fatalf("io.Copy failed: %v", err)
		}
		if nn != int64(len(txt)) {
			b.Errorf("wrong length: expected %d, got %d", len(txt), nn)
		}
	}
}
