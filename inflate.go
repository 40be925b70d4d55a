package flate

import (
	"fmt"
)

// byteSink is the pull-driven inflater's only way to emit decoded output.
// It is satisfied by the ambient ouput-staging adapter Reader installs, so
// that checksumming and buffering stay entirely outside the core decoder.
type byteSink interface {
	WriteByte(b byte) error
}

// blockObserver receives per-block progress notifications as an inflater
// runs. It exists so that the ambient Tracer/Event system (see trace.go)
// can report block-level detail without the core decoder depending on any
// particular logging or tracing mechanism. A nil observer is valid.
type blockObserver interface {
	onBlockBegin(t BlockType, isFinal bool)
	onBlockTrees(ev TreesEvent, t BlockType, isFinal bool)
	onBlockEnd(t BlockType, isFinal bool)
}

// inflater is the DEFLATE core: it owns a bitReader, the sliding output
// window, and the per-block Huffman decoders, and it orchestrates
// successive blocks until BFINAL is seen. It is the public entry point of
// the core described by this package's design; everything else (gzip/zlib
// envelope parsing, checksums, the io.Reader-facing Reader type) is an
// ambient collaborator layered on top.
type inflater struct {
	br  *bitReader
	win window

	hLL *huffmanDecoder
	hD  *huffmanDecoder

	// hd0 bootstraps the code-length alphabet for dynamic blocks; hd1/hd2
	// are the per-block literal/length and distance decoders it builds.
	hd0, hd1, hd2 huffmanDecoder

	observer blockObserver
}

func newInflater(src byteSource) *inflater {
	return &inflater{br: newBitReader(src)}
}

// reset prepares the inflater to decode a fresh member/stream, optionally
// seeded with a preset LZ77 dictionary.
func (inf *inflater) reset(src byteSource, dict []byte) {
	inf.br = newBitReader(src)
	inf.win.seed(dict)
}

// inflateOne decodes exactly one DEFLATE block, writing decoded bytes to
// dst as they are produced. It returns (isFinal, error); the caller loops
// until isFinal is true or an error occurs.
func (inf *inflater) inflateOne(dst byteSink) (bool, error) {
	out, err := inf.br.readBitsLSB(3)
	if err != nil {
		return false, err
	}

	isFinal := (out & 0x01) != 0
	btype := BlockType(1+byte(out>>1)) & 0x03

	inf.notifyBegin(btype, isFinal)

	var blockErr error
	switch btype {
	case StoredBlock:
		blockErr = inf.inflateStored(dst)
	case StaticBlock:
		inf.hLL, inf.hD = getFixedHuffDecoders()
		inf.notifyTrees(btype, isFinal)
		blockErr = inf.inflateHuffman(dst)
	case DynamicBlock:
		blockErr = inf.readDynamicTrees(btype, isFinal)
		if blockErr == nil {
			blockErr = inf.inflateHuffman(dst)
		}
	default:
		blockErr = fmt.Errorf("flate: BTYPE 3 is reserved")
	}

	if blockErr != nil {
		return isFinal, blockErr
	}

	inf.notifyEnd(btype, isFinal)
	return isFinal, nil
}

// inflate decodes successive blocks until BFINAL is seen.
func (inf *inflater) inflate(dst byteSink) error {
	for {
		isFinal, err := inf.inflateOne(dst)
		if err != nil {
			return err
		}
		if isFinal {
			return nil
		}
	}
}

func (inf *inflater) notifyBegin(t BlockType, isFinal bool) {
	if inf.observer != nil {
		inf.observer.onBlockBegin(t, isFinal)
	}
}

func (inf *inflater) notifyTrees(t BlockType, isFinal bool) {
	if inf.observer == nil {
		return
	}
	inf.observer.onBlockTrees(TreesEvent{
		LiteralLengthSizes: inf.hLL.sizeBySymbol(),
		DistanceSizes:      inf.hD.sizeBySymbol(),
	}, t, isFinal)
}

func (inf *inflater) notifyEnd(t BlockType, isFinal bool) {
	if inf.observer != nil {
		inf.observer.onBlockEnd(t, isFinal)
	}
}
