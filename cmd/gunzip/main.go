// Command gunzip decompresses a gzip, zlib, or raw DEFLATE stream, either
// named on the command line or read from standard input.
package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	flate "github.com/chronos-tachyon/inflate"
	getopt "github.com/pborman/getopt/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const version = "gunzip (inflate) 1.0.0"

var (
	flagVersion   = false
	flagDebug     = false
	flagTrace     = false
	flagLogStderr = false

	flagStdout = false
	flagForce  = false
	flagKeep   = false
	flagName   = false

	flagFormat = FormatFlag{flate.DefaultFormat}
	flagWBits  = WindowBitsFlag{flate.DefaultWindowBits}
	flagMLevel = MemoryLevelFlag{flate.DefaultMemory}
	flagDict   = ""
)

func init() {
	getopt.SetParameters("[<input>.gz]")

	getopt.FlagLong(&flagVersion, "version", 'V', "print version and exit")

	getopt.FlagLong(&flagDebug, "verbose", 'v', "enable debug logging")
	getopt.FlagLong(&flagTrace, "debug", 'D', "enable debug and trace logging")
	getopt.FlagLong(&flagLogStderr, "log-stderr", 'L', "log JSON to stderr")

	getopt.FlagLong(&flagFormat, "format", 'F', "input format; one of auto, gzip, zlib, or raw")
	getopt.FlagLong(&flagWBits, "window-size-bits", 'W', "base-2 logarithm of window size; one of default, 8, 9, 10, 11, 12, 13, 14, or 15")
	getopt.FlagLong(&flagMLevel, "memory-level", 'M', "memory level; one of default, 1, 2, 3, 4, 5, 6, 7, 8, or 9")
	getopt.FlagLong(&flagDict, "dictionary", 0, "contents of pre-set dictionary, or @filename")

	getopt.FlagLong(&flagStdout, "stdout", 'c', "write on standard output, keep original files unchanged")
	getopt.FlagLong(&flagForce, "force", 'f', "force overwrite of output file")
	getopt.FlagLong(&flagKeep, "keep", 'k', "keep (don't delete) input files")
	getopt.FlagLong(&flagName, "name", 'N', "restore the original filename and timestamp from the gzip header, if present")
}

func main() {
	getopt.Parse()

	if flagVersion {
		fmt.Println(strings.TrimSpace(version))
		os.Exit(0)
	}

	setupLogging()

	var dict []byte
	if flagDict != "" {
		if flagDict[0] == '@' {
			raw, err := os.ReadFile(flagDict[1:])
			if err != nil {
				log.Logger.Fatal().
					Str("filename", flagDict[1:]).
					Err(err).
					Msg("os.ReadFile failed")
			}
			dict = raw
		} else {
			dict = []byte(flagDict)
		}
	}

	args := getopt.Args()
	switch len(args) {
	case 0:
		if err := decompressStream(os.Stdout, os.Stdin, dict); err != nil {
			log.Logger.Fatal().Err(err).Msg("decompression failed")
		}
	case 1:
		if err := decompressFile(args[0], dict); err != nil {
			log.Logger.Fatal().
				Str("input", args[0]).
				Err(err).
				Msg("decompression failed")
		}
	default:
		log.Logger.Fatal().Msg("expected at most one input file")
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.DurationFieldUnit = time.Second
	zerolog.DurationFieldInteger = false
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if flagDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if flagTrace {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	switch {
	case flagLogStderr:
		// do nothing; default JSON writer to stderr

	default:
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

func readerOptions(dict []byte, extraTracers ...flate.Tracer) []flate.Option {
	tracers := append([]flate.Tracer{flate.Log(log.Logger)}, extraTracers...)

	opts := make([]flate.Option, 3, 5)
	opts[0] = flate.WithTracers(tracers...)
	opts[1] = flate.WithFormat(flagFormat.Value)
	opts[2] = flate.WithWindowBits(flagWBits.Value)
	if flagMLevel.Value != flate.DefaultMemory {
		opts = append(opts, flate.WithMemoryLevel(flagMLevel.Value))
	}
	if dict != nil {
		opts = append(opts, flate.WithDictionary(dict))
	}
	return opts
}

// decompressStream copies a decompressed stream straight through, used for
// stdin/stdout operation with no filename bookkeeping to do.
func decompressStream(w io.Writer, r io.Reader, dict []byte) error {
	fr := flate.NewReader(r, readerOptions(dict)...)

	if _, err := io.Copy(w, fr); err != nil {
		return err
	}
	return fr.Close()
}

// decompressFile decompresses the named input file to either standard
// output (-c) or a sibling file, deriving the destination name from the
// gzip header's embedded FNAME (-N) or by stripping a known compressed-file
// suffix from the input path.
func decompressFile(inputPath string, dict []byte) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	if flagStdout {
		return decompressStream(os.Stdout, in, dict)
	}

	var header flate.Header
	opts := readerOptions(dict, flate.CaptureHeader(&header))
	fr := flate.NewReader(in, opts...)
	defer fr.Close()

	// StreamHeaderEvent fires synchronously inside the decode goroutine
	// before any decoded bytes reach the pipe, so priming with one Read
	// guarantees header is populated by the time outputPathFor runs, even
	// if the stream decompresses to zero bytes.
	primer := make([]byte, 32*1024)
	n, readErr := fr.Read(primer)
	if readErr != nil && readErr != io.EOF {
		return readErr
	}

	outputPath, err := outputPathFor(inputPath, &header)
	if err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !flagForce {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(outputPath, flags, 0666)
	if err != nil {
		return fmt.Errorf("refusing to overwrite %s without --force: %w", outputPath, err)
	}

	if n > 0 {
		if _, err := out.Write(primer[:n]); err != nil {
			out.Close()
			os.Remove(outputPath)
			return err
		}
	}
	if readErr != io.EOF {
		if _, err := io.Copy(out, fr); err != nil {
			out.Close()
			os.Remove(outputPath)
			return err
		}
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := fr.Close(); err != nil {
		return err
	}

	if flagName && !header.LastModified.IsZero() {
		_ = os.Chtimes(outputPath, header.LastModified, header.LastModified)
	}

	if !flagKeep {
		if err := os.Remove(inputPath); err != nil {
			log.Logger.Warn().
				Str("input", inputPath).
				Err(err).
				Msg("failed to remove input file after decompression")
		}
	}

	return nil
}

// outputPathFor decides the sibling output file's name. -N prefers the
// gzip header's embedded FNAME when the stream actually carries one;
// otherwise a known compressed-file suffix is stripped from the input path,
// matching traditional gunzip behavior.
func outputPathFor(inputPath string, header *flate.Header) (string, error) {
	if flagName && header.FileName != "" {
		if err := header.Validate(); err != nil {
			return "", fmt.Errorf("gzip header failed validation: %w", err)
		}
		dir := filepath.Dir(inputPath)
		return filepath.Join(dir, header.FileName), nil
	}

	for _, suffix := range []string{".gz", ".z", ".Z", ".zz"} {
		if strings.HasSuffix(inputPath, suffix) {
			return strings.TrimSuffix(inputPath, suffix), nil
		}
	}

	return inputPath + ".out", nil
}
