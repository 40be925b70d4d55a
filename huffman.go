package flate

import (
	"encoding/json"
	"fmt"
)

const (
	logicalNumLLCodes  = 286
	logicalNumDCodes   = 30
	physicalNumLLCodes = 288
	physicalNumDCodes  = 32
	physicalNumXCodes  = 19
	maxCodeLength      = 15
)

var scramble = [physicalNumXCodes]byte{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// Symbol is a decoded Huffman-coded symbol, or InvalidSymbol if no such
// symbol exists.
type Symbol int32

// InvalidSymbol is returned by huffmanDecoder.decodeSymbol on failure.
const InvalidSymbol Symbol = -1

const noChild int32 = -1

// huffmanNode is one node of an arena-indexed trie: node 0 is the root, and
// left/right are indices into huffmanDecoder.nodes for further descent.
// noChild means the edge carries no assigned code, so walking into it is a
// malformed-stream error; any other negative value v encodes a leaf symbol,
// recovered via decodeLeaf. This replaces a graph of heap-allocated,
// pointer-linked nodes with an arena addressed by integer index.
type huffmanNode struct {
	left, right int32
}

func encodeLeaf(sym Symbol) int32 {
	return -(int32(sym) + 2)
}

func decodeLeaf(v int32) Symbol {
	return Symbol(-(v + 2))
}

func isLeaf(v int32) bool {
	return v <= -2
}

// huffmanDecoder is a canonical-Huffman prefix-code decoder built from a
// per-symbol code-length vector, per RFC 1951 Section 3.2.2. It is rebuilt
// per block for dynamic Huffman blocks; the two fixed trees are built once
// and shared read-only thereafter.
type huffmanDecoder struct {
	nodes []huffmanNode
	sizes []byte
	empty bool
}

// init builds the canonical code from lengths, where lengths[s] is the code
// length in bits for symbol s, or 0 if s is unused. It rejects an
// oversubscribed code set, and rejects an undersubscribed one unless exactly
// one symbol is assigned and its length is 1.
func (hd *huffmanDecoder) init(lengths []byte) error {
	hd.nodes = hd.nodes[:0]
	hd.sizes = append(hd.sizes[:0], lengths...)
	hd.empty = false

	maxLen := byte(0)
	numAssigned := 0
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
		if l > 0 {
			numAssigned++
		}
	}
	if maxLen == 0 {
		hd.empty = true
		return nil
	}
	if maxLen > maxCodeLength {
		return fmt.Errorf("flate: code length %d exceeds maximum of %d", maxLen, maxCodeLength)
	}

	var blCount [maxCodeLength + 2]int
	for _, l := range lengths {
		if l > 0 {
			blCount[l]++
		}
	}

	var nextCode [maxCodeLength + 2]uint32
	code := uint32(0)
	blCount[0] = 0
	for b := byte(1); b <= maxLen; b++ {
		code = (code + uint32(blCount[b-1])) << 1
		nextCode[b] = code
	}

	// Each assigned symbol of length l contributes 2**(maxLen-l) out of a
	// total budget of 2**maxLen; an oversubscribed code overflows that
	// budget, an undersubscribed one falls short of it.
	var kraftSum uint64
	budget := uint64(1) << maxLen

	hd.nodes = append(hd.nodes, huffmanNode{noChild, noChild})
	for s := 0; s < len(lengths); s++ {
		l := lengths[s]
		if l == 0 {
			continue
		}
		c := nextCode[l]
		nextCode[l]++
		kraftSum += uint64(1) << (maxLen - l)
		if kraftSum > budget {
			return fmt.Errorf("flate: oversubscribed Huffman code set")
		}
		hd.insert(Symbol(s), c, l)
	}

	if kraftSum < budget && !(numAssigned == 1 && maxLen == 1) {
		return fmt.Errorf("flate: incomplete Huffman code set")
	}

	return nil
}

// insert walks/creates the path for an l-bit code value c, placing a leaf
// for sym at the end of the path. Bits are consumed MSB-first: the top bit
// of c (bit l-1) selects the first descent from the root.
func (hd *huffmanDecoder) insert(sym Symbol, c uint32, l byte) {
	idx := int32(0)
	for bit := int(l) - 1; bit > 0; bit-- {
		b := (c >> uint(bit)) & 1
		child := hd.nodes[idx].left
		if b != 0 {
			child = hd.nodes[idx].right
		}
		if child == noChild {
			hd.nodes = append(hd.nodes, huffmanNode{noChild, noChild})
			child = int32(len(hd.nodes) - 1)
			if b != 0 {
				hd.nodes[idx].right = child
			} else {
				hd.nodes[idx].left = child
			}
		}
		idx = child
	}

	b := c & 1
	node := &hd.nodes[idx]
	if b != 0 {
		node.right = encodeLeaf(sym)
	} else {
		node.left = encodeLeaf(sym)
	}
}

// decodeSymbol consumes bits from br, descending the trie one bit at a time
// until a leaf is reached.
func (hd *huffmanDecoder) decodeSymbol(br *bitReader) (Symbol, error) {
	if hd.empty {
		return InvalidSymbol, fmt.Errorf("flate: cannot decode from a degenerate Huffman code")
	}

	idx := int32(0)
	for {
		bit, err := br.readCodeBit()
		if err != nil {
			return InvalidSymbol, err
		}

		node := hd.nodes[idx]
		child := node.left
		if bit != 0 {
			child = node.right
		}

		switch {
		case child == noChild:
			return InvalidSymbol, fmt.Errorf("flate: bit sequence walks into an unassigned Huffman code")
		case isLeaf(child):
			return decodeLeaf(child), nil
		default:
			idx = child
		}
	}
}

// sizeBySymbol returns the code-length vector this decoder was built from.
func (hd *huffmanDecoder) sizeBySymbol() SizeList {
	out := make(SizeList, len(hd.sizes))
	copy(out, hd.sizes)
	return out
}

var (
	gFixedHuffmanDecoderLL huffmanDecoder
	gFixedHuffmanDecoderD  huffmanDecoder
)

func init() {
	// https://www.rfc-editor.org/rfc/rfc1951.html - Section 3.2.6
	sizes := make([]byte, physicalNumLLCodes)
	for i := 0; i < 144; i++ {
		sizes[i] = 8
	}
	for i := 144; i < 256; i++ {
		sizes[i] = 9
	}
	for i := 256; i < 280; i++ {
		sizes[i] = 7
	}
	for i := 280; i < 288; i++ {
		sizes[i] = 8
	}
	if err := gFixedHuffmanDecoderLL.init(sizes); err != nil {
		panic(fmt.Errorf("failed to initialize gFixedHuffmanDecoderLL: %w", err))
	}

	sizes = sizes[:physicalNumDCodes]
	for i := 0; i < physicalNumDCodes; i++ {
		sizes[i] = 5
	}
	if err := gFixedHuffmanDecoderD.init(sizes); err != nil {
		panic(fmt.Errorf("failed to initialize gFixedHuffmanDecoderD: %w", err))
	}
}

func getFixedHuffDecoders() (*huffmanDecoder, *huffmanDecoder) {
	return &gFixedHuffmanDecoderLL, &gFixedHuffmanDecoderD
}

// SizeList represents a list of symbol sizes in a Canonical Huffman Code.
type SizeList []byte

// MarshalJSON returns the JSON representation of this SizeList, as a JSON
// Array of JSON Numbers.
func (sizelist SizeList) MarshalJSON() ([]byte, error) {
	var arr []uint
	if sizelist != nil {
		arr = make([]uint, len(sizelist))
		for index, size := range sizelist {
			arr[index] = uint(size)
		}
	}
	return json.Marshal(arr)
}
