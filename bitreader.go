package flate

import (
	"io"
)

// byteSource is the pull-driven byte source that bitReader consumes. It is
// satisfied by readerByteSource (used by Reader) and by anything else with a
// single ReadByte method, such as bufio.Reader or bytes.Reader.
type byteSource interface {
	ReadByte() (byte, error)
}

// bitReader extracts bits LSB-first from a byteSource, one byte at a time.
// It has no suspension points of its own: ReadByte on the underlying source
// blocks (or errors) as needed.
//
// Bits are consumed least-significant-bit-first within each byte, in source
// byte order. Two assembly rules are exposed on top of that single bit
// stream: readBitsLSB, for integer fields, treats the first bit read as bit
// 0 of the result; readCodeBit, for walking a Huffman trie, is bit-for-bit
// identical to the underlying stream but is named separately because the
// caller assembles those bits MSB-first to spell out a Huffman code.
type bitReader struct {
	src byteSource
	cur block
	len byte
}

func newBitReader(src byteSource) *bitReader {
	return &bitReader{src: src}
}

// fill ensures at least n bits are buffered, reading whole bytes from the
// source as needed. n must not exceed bitsPerBlock-bitsPerByte, so that a
// freshly-fetched byte always has room to be shifted in.
func (br *bitReader) fill(n byte) error {
	for br.len < n {
		ch, err := br.src.ReadByte()
		if err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		br.cur |= block(ch) << br.len
		br.len += bitsPerByte
	}
	return nil
}

// readBitsLSB reads n bits (n <= 16) and assembles them such that the first
// bit read becomes bit 0 of the result, the second bit read becomes bit 1,
// and so on.
func (br *bitReader) readBitsLSB(n byte) (uint32, error) {
	if err := br.fill(n); err != nil {
		return 0, err
	}
	out := br.cur & makeMask(n)
	br.cur >>= n
	br.len -= n
	return uint32(out), nil
}

// readCodeBit returns the next single bit, MSB-first from the perspective of
// a Huffman code being assembled by the caller. The bit itself is fetched
// exactly like any other bit -- LSB-first out of the byte stream -- only the
// assembly rule at the call site differs from readBitsLSB.
func (br *bitReader) readCodeBit() (byte, error) {
	if err := br.fill(1); err != nil {
		return 0, err
	}
	bit := byte(br.cur & 1)
	br.cur >>= 1
	br.len--
	return bit, nil
}

// alignToByte discards any partially-consumed byte, so the next read starts
// at the next byte boundary of the underlying source.
func (br *bitReader) alignToByte() {
	br.cur = 0
	br.len = 0
}
