package ape

import (
	"errors"
	"fmt"
)

// Errors reported while opening or decoding an APE file. Decode errors
// surface at the frame boundary where they are detected; the sample iterator
// yields the error once and terminates.
var (
	// ErrInvalidMagic means the input does not start with "MAC ".
	ErrInvalidMagic = errors.New("ape: not a Monkey's Audio file (invalid magic)")
	// ErrUnsupportedVersion means the format version is below 3990 or unknown.
	ErrUnsupportedVersion = errors.New("ape: unsupported format version")
	// ErrUnsupportedConfiguration means the channel count, bit depth, or
	// compression level is outside what the format allows.
	ErrUnsupportedConfiguration = errors.New("ape: unsupported configuration")
	// ErrInvalidHeader means a header field is inconsistent.
	ErrInvalidHeader = errors.New("ape: invalid header")
	// ErrInvalidSeekTable means the seek table is missing or truncated.
	ErrInvalidSeekTable = errors.New("ape: invalid or missing seek table")
	// ErrTruncatedFrame means a frame's byte window is shorter than expected.
	ErrTruncatedFrame = errors.New("ape: truncated frame")
	// ErrCorruptBitstream means the range decoder ran out of data mid-frame.
	ErrCorruptBitstream = errors.New("ape: corrupt bitstream")
	// ErrCorruptFrame means a frame header is inconsistent with the stream.
	ErrCorruptFrame = errors.New("ape: corrupt frame")
)

// CRCMismatchError is returned from decoding when CRC verification is
// enabled and a frame's stored CRC does not match the decoded output.
type CRCMismatchError struct {
	Frame    uint32
	Expected uint32
	Actual   uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("ape: CRC mismatch in frame %d: expected %#010x, got %#010x",
		e.Frame, e.Expected, e.Actual)
}
