package main

import (
	flate "github.com/chronos-tachyon/inflate"
	getopt "github.com/pborman/getopt/v2"
)

// type FormatFlag {{{

// FormatFlag implements getopt.Value for flate.Format.
type FormatFlag struct {
	Value flate.Format
}

// Set fulfills getopt.Value.
func (flag *FormatFlag) Set(str string, opt getopt.Option) error {
	return flag.Value.Parse(str)
}

// String fulfills getopt.Value.
func (flag FormatFlag) String() string {
	return flag.Value.String()
}

var _ getopt.Value = (*FormatFlag)(nil)

// }}}

// type MemoryLevelFlag {{{

// MemoryLevelFlag implements getopt.Value for flate.MemoryLevel.
type MemoryLevelFlag struct {
	Value flate.MemoryLevel
}

// Set fulfills getopt.Value.
func (flag *MemoryLevelFlag) Set(str string, opt getopt.Option) error {
	return flag.Value.Parse(str)
}

// String fulfills getopt.Value.
func (flag MemoryLevelFlag) String() string {
	return flag.Value.String()
}

var _ getopt.Value = (*MemoryLevelFlag)(nil)

// }}}

// type WindowBitsFlag {{{

// WindowBitsFlag implements getopt.Value for flate.WindowBits.
type WindowBitsFlag struct {
	Value flate.WindowBits
}

// Set fulfills getopt.Value.
func (flag *WindowBitsFlag) Set(str string, opt getopt.Option) error {
	return flag.Value.Parse(str)
}

// String fulfills getopt.Value.
func (flag WindowBitsFlag) String() string {
	return flag.Value.String()
}

var _ getopt.Value = (*WindowBitsFlag)(nil)

// }}}
