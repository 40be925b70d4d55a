package flate

import (
	"fmt"
	"io"
)

// readAlignedByte reads one raw byte directly from the bit reader's source.
// It must only be called once alignToByte has discarded any partial byte,
// as stored blocks require.
func (br *bitReader) readAlignedByte() (byte, error) {
	ch, err := br.src.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		return 0, err
	}
	return ch, nil
}

// inflateStored implements BTYPE=0: skip to the next byte boundary, read a
// 16-bit LEN and its one's-complement NLEN, then copy LEN raw bytes through
// to the output, feeding them into the sliding window as it goes.
func (inf *inflater) inflateStored(dst byteSink) error {
	inf.br.alignToByte()

	lenLo, err := inf.br.readAlignedByte()
	if err != nil {
		return err
	}
	lenHi, err := inf.br.readAlignedByte()
	if err != nil {
		return err
	}
	nlenLo, err := inf.br.readAlignedByte()
	if err != nil {
		return err
	}
	nlenHi, err := inf.br.readAlignedByte()
	if err != nil {
		return err
	}

	length := uint16(lenLo) | uint16(lenHi)<<8
	nlength := uint16(nlenLo) | uint16(nlenHi)<<8
	if nlength != ^length {
		return fmt.Errorf("flate: stored block LEN %#04x does not match NLEN %#04x", length, nlength)
	}

	for i := uint16(0); i < length; i++ {
		ch, err := inf.br.readAlignedByte()
		if err != nil {
			return err
		}
		if err := dst.WriteByte(ch); err != nil {
			return err
		}
		inf.win.writeByte(ch)
	}

	return nil
}

// Length codes 257..285: base length and count of extra (LSB-first) bits,
// per RFC 1951 Section 3.2.5.
var lengthBase = [...]uint32{
	3, 4, 5, 6, 7, 8, 9, 10,
	11, 13, 15, 17, 19, 23, 27, 31,
	35, 43, 51, 59, 67, 83, 99, 115,
	131, 163, 195, 227, 258,
}
var lengthExtraBits = [...]byte{
	0, 0, 0, 0, 0, 0, 0, 0,
	1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4,
	5, 5, 5, 5, 0,
}

// Distance codes 0..29: base distance and count of extra (LSB-first) bits.
var distanceBase = [...]uint32{
	1, 2, 3, 4, 5, 7, 9, 13,
	17, 25, 33, 49, 65, 97, 129, 193,
	257, 385, 513, 769, 1025, 1537, 2049, 3073,
	4097, 6145, 8193, 12289, 16385, 24577,
}
var distanceExtraBits = [...]byte{
	0, 0, 0, 0, 1, 1, 2, 2,
	3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10,
	11, 11, 12, 12, 13, 13,
}

// inflateHuffman runs the length/distance engine shared by BTYPE=1 and
// BTYPE=2 blocks: decode literal/length symbols until the end-of-block
// symbol (256) appears, emitting literals directly and resolving
// length/distance pairs (257..285) against the sliding window.
func (inf *inflater) inflateHuffman(dst byteSink) error {
	for {
		sym, err := inf.hLL.decodeSymbol(inf.br)
		if err != nil {
			return fmt.Errorf("flate: degenerate literal/length Huffman code: %w", err)
		}

		switch {
		case sym < 256:
			ch := byte(sym)
			if err := dst.WriteByte(ch); err != nil {
				return err
			}
			inf.win.writeByte(ch)
			continue

		case sym == 256:
			return nil

		case sym > 285:
			return fmt.Errorf("flate: invalid literal/length symbol %d", sym)
		}

		length, err := inf.decodeLength(sym)
		if err != nil {
			return err
		}

		dsym, err := inf.hD.decodeSymbol(inf.br)
		if err != nil {
			return fmt.Errorf("flate: degenerate distance Huffman code: %w", err)
		}

		distance, err := inf.decodeDistance(dsym)
		if err != nil {
			return err
		}

		if length < 3 || length > 258 {
			return fmt.Errorf("flate: copy length %d out of range [3, 258]", length)
		}

		if err := inf.win.copyMatch(dst.WriteByte, uint(length), uint(distance)); err != nil {
			return fmt.Errorf("flate: invalid back-reference: %w", err)
		}
	}
}

func (inf *inflater) decodeLength(sym Symbol) (uint32, error) {
	i := int(sym) - 257
	if i < 0 || i >= len(lengthBase) {
		return 0, fmt.Errorf("flate: invalid length symbol %d", sym)
	}

	length := lengthBase[i]
	if extra := lengthExtraBits[i]; extra != 0 {
		bits, err := inf.br.readBitsLSB(extra)
		if err != nil {
			return 0, err
		}
		length += bits
	}
	return length, nil
}

func (inf *inflater) decodeDistance(sym Symbol) (uint32, error) {
	i := int(sym)
	if i < 0 || i >= len(distanceBase) {
		return 0, fmt.Errorf("flate: invalid distance symbol %d", sym)
	}

	distance := distanceBase[i]
	if extra := distanceExtraBits[i]; extra != 0 {
		bits, err := inf.br.readBitsLSB(extra)
		if err != nil {
			return 0, err
		}
		distance += bits
	}
	return distance, nil
}

// readDynamicTrees implements the BTYPE=2 preamble: read HLIT/HDIST/HCLEN,
// the 19 code-length code lengths (in their fixed scrambled order), build
// the bootstrap code-length decoder, and use it to decode the combined
// literal/length + distance length vector, splitting it to build the two
// per-block trees.
//
// https://www.rfc-editor.org/rfc/rfc1951.html - Section 3.2.7
func (inf *inflater) readDynamicTrees(btype BlockType, isFinal bool) error {
	out, err := inf.br.readBitsLSB(14)
	if err != nil {
		return err
	}

	numLL := 257 + uint(out&0x1f)
	numD := 1 + uint((out>>5)&0x1f)
	numX := 4 + uint((out>>10)&0x0f)

	if numLL > logicalNumLLCodes {
		return fmt.Errorf("flate: HLIT %d exceeds maximum of 29", numLL-257)
	}
	if numD > logicalNumDCodes {
		return fmt.Errorf("flate: HDIST %d exceeds maximum of 29", numD-1)
	}

	var sX [physicalNumXCodes]byte
	for i := uint(0); i < numX; i++ {
		bits, err := inf.br.readBitsLSB(3)
		if err != nil {
			return err
		}
		sX[scramble[i]] = byte(bits)
	}

	if err := inf.hd0.init(sX[:]); err != nil {
		return fmt.Errorf("flate: failed to build code-length Huffman decoder: %w", err)
	}

	total := numLL + numD
	combined := make([]byte, total)
	i := uint(0)
	for i < total {
		sym, err := inf.hd0.decodeSymbol(inf.br)
		if err != nil {
			return fmt.Errorf("flate: degenerate code-length Huffman code: %w", err)
		}
		i, err = inf.expandCodeLength(sym, combined, i, total)
		if err != nil {
			return err
		}
	}

	sLL := make([]byte, physicalNumLLCodes)
	copy(sLL, combined[:numLL])

	sD := make([]byte, physicalNumDCodes)
	copy(sD, combined[numLL:])

	if err := inf.hd1.init(sLL); err != nil {
		return fmt.Errorf("flate: failed to build literal/length Huffman decoder: %w", err)
	}
	if err := inf.hd2.init(sD); err != nil {
		return fmt.Errorf("flate: failed to build distance Huffman decoder: %w", err)
	}

	inf.hLL = &inf.hd1
	inf.hD = &inf.hd2

	if inf.observer != nil {
		inf.observer.onBlockTrees(TreesEvent{
			CodeCount:          uint16(numX),
			LiteralLengthCount: uint16(numLL),
			DistanceCount:      uint16(numD),
			CodeSizes:          append(SizeList(nil), sX[:]...),
			LiteralLengthSizes: inf.hd1.sizeBySymbol(),
			DistanceSizes:      inf.hd2.sizeBySymbol(),
		}, btype, isFinal)
	}

	return nil
}

// expandCodeLength interprets one decoded code-length-alphabet symbol,
// writing into combined starting at i and returning the new i. Symbols
// 0..15 are literal lengths; 16 repeats the previous length 3+extra times;
// 17/18 emit runs of zero-length codes.
func (inf *inflater) expandCodeLength(sym Symbol, combined []byte, i, total uint) (uint, error) {
	switch {
	case sym < 16:
		combined[i] = byte(sym)
		return i + 1, nil

	case sym == 16:
		if i == 0 {
			return i, fmt.Errorf("flate: code-length symbol 16 at position 0")
		}
		bits, err := inf.br.readBitsLSB(2)
		if err != nil {
			return i, err
		}
		count := 3 + uint(bits)
		if count > total-i {
			return i, fmt.Errorf("flate: repeat count %d exceeds %d remaining codes", count, total-i)
		}
		last := combined[i-1]
		for ; count > 0; count-- {
			combined[i] = last
			i++
		}
		return i, nil

	case sym == 17:
		bits, err := inf.br.readBitsLSB(3)
		if err != nil {
			return i, err
		}
		count := 3 + uint(bits)
		if count > total-i {
			return i, fmt.Errorf("flate: repeat count %d exceeds %d remaining codes", count, total-i)
		}
		return i + count, nil

	case sym == 18:
		bits, err := inf.br.readBitsLSB(7)
		if err != nil {
			return i, err
		}
		count := 11 + uint(bits)
		if count > total-i {
			return i, fmt.Errorf("flate: repeat count %d exceeds %d remaining codes", count, total-i)
		}
		return i + count, nil

	default:
		return i, fmt.Errorf("flate: invalid code-length symbol %d", sym)
	}
}
