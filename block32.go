// +build 386 arm

package flate

const bytesPerBlock = 4

// block is the bit accumulator register used by bitReader. Its width is
// chosen per architecture so that a full register's worth of input bytes can
// be buffered without needing a 64-bit shift on 32-bit hosts.
type block uint32
