/*
Package ape provides a decoder for Monkey's Audio (APE) lossless audio files,
format version 3.99 (3990) and later.

The following is condensed from the public format documentation:

# Data Format

An APE file begins with a descriptor, a header, and a seek table, followed by
the compressed frame data and optional tag data at the end of the file. All
header fields are little-endian.

	struct {
		char     magic[4];              // magic bytes "MAC "
		uint16_t version;               // format version * 1000 (3990 = v3.99)
		uint16_t padding;
		uint32_t descriptor_bytes;      // size of this descriptor (52)
		uint32_t header_bytes;          // size of the header (24)
		uint32_t seek_table_bytes;      // size of the seek table
		uint32_t header_data_bytes;     // size of the original WAV header
		uint32_t frame_data_bytes;      // size of the compressed frame data
		uint32_t frame_data_bytes_high; // high 32 bits of the above
		uint32_t terminating_data_bytes;// tag data after the audio
		uint8_t  file_md5[16];          // MD5 of the decoded audio
	} descriptor;

	struct {
		uint16_t compression_level;     // 1000=Fast .. 5000=Insane
		uint16_t format_flags;
		uint32_t blocks_per_frame;      // blocks in every non-final frame
		uint32_t final_frame_blocks;    // blocks in the final frame
		uint32_t total_frames;
		uint16_t bits_per_sample;       // 8, 16, or 24
		uint16_t channels;              // 1 or 2
		uint32_t sample_rate;           // in Hz
	} header;

	uint32_t seek_table[];              // byte offset of each frame

A block is one sample per channel; a frame is an independently decodable unit
of blocks_per_frame blocks (final_frame_blocks in the last frame).

Each frame is decoded by a four stage pipeline. A carry-less arithmetic range
coder turns the compressed bytes into integer residuals, driven by an adaptive
Golomb-Rice style parameter. The residuals pass through zero to three cascaded
adaptive FIR filter stages (the "neural network" filters — the stage count and
orders grow with the compression level), then through an adaptive linear
predictor that restores long-range correlation. Stereo frames carry a
mid/side-like pair which a final decorrelation step turns back into left and
right samples.

Every stage is integer arithmetic with state that resets at frame boundaries,
so decoding is deterministic and frames are independently decodable. The
decoder output is bit-exact with the PCM audio the encoder was given.

Frame data is written through a 32-bit little-endian buffer, so the decoder
swaps each 4-byte group of the frame window before range decoding.
*/
package ape

import (
	"fmt"
	"io"
	"os"
)

const (
	// Magic is the magic number identifying an APE file ("MAC ").
	Magic = 0x4D414320
	// MinVersion is the lowest supported format version (v3.99).
	MinVersion = 3990
	// MaxChannels is the maximum number of audio channels supported by APE.
	MaxChannels = 2

	// CompressionFast through CompressionInsane are the five compression
	// levels an encoder can use. The decoder derives its filter topology
	// from the level, so it must be one of these.
	CompressionFast      = 1000
	CompressionNormal    = 2000
	CompressionHigh      = 3000
	CompressionExtraHigh = 4000
	CompressionInsane    = 5000
)

// Info describes the audio stream in an APE file.
type Info struct {
	// SampleRate in Hz (e.g. 44100).
	SampleRate uint32
	// Channels is 1 for mono, 2 for stereo.
	Channels uint16
	// BitsPerSample is 8, 16, or 24.
	BitsPerSample uint16
	// TotalSamples is the total interleaved sample count (blocks × channels).
	TotalSamples uint64
	// CompressionLevel the file was encoded at (1000..5000).
	CompressionLevel uint16
	// FormatVersion, e.g. 3990 for v3.99.
	FormatVersion uint16
}

// Reader decodes a Monkey's Audio file. Open a file, read metadata with
// Info, then pull PCM with Samples or ReadAll.
type Reader struct {
	dec  *decoder
	info Info

	// CheckCRC enables per-frame CRC verification. The reference decoder
	// produces best-effort output on CRC mismatch, so this is off by
	// default. Set it before reading samples.
	CheckCRC bool
}

// Open opens an APE file by path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ape: %w", err)
	}
	r, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.dec.closer = f
	return r, nil
}

// New creates a Reader from any io.ReadSeeker positioned at the start of an
// APE stream. The header is parsed immediately.
func New(rs io.ReadSeeker) (*Reader, error) {
	hdr, err := parseHeader(rs)
	if err != nil {
		return nil, err
	}

	info := Info{
		SampleRate:       hdr.header.sampleRate,
		Channels:         hdr.header.channels,
		BitsPerSample:    hdr.header.bitsPerSample,
		TotalSamples:     hdr.totalSamples(),
		CompressionLevel: hdr.header.compressionLevel,
		FormatVersion:    hdr.descriptor.version,
	}

	return &Reader{dec: newDecoder(rs, hdr), info: info}, nil
}

// Info returns metadata about the audio stream.
func (r *Reader) Info() Info {
	return r.info
}

// Close releases the underlying file if the Reader was created with Open.
func (r *Reader) Close() error {
	if r.dec.closer != nil {
		return r.dec.closer.Close()
	}
	return nil
}

// Samples returns an iterator over the decoded PCM samples. Samples are
// native int32, interleaved for stereo: [L0, R0, L1, R1, ...]. Consumers
// normalize using BitsPerSample (divide by 32768 for 16-bit to get float).
//
// The iterator is not restartable; it decodes frames lazily and stops at the
// first error.
func (r *Reader) Samples() *Samples {
	r.dec.checkCRC = r.CheckCRC
	return &Samples{dec: r.dec}
}

// ReadAll decodes the entire stream into one interleaved sample slice.
func (r *Reader) ReadAll() ([]int32, error) {
	out := make([]int32, 0, r.info.TotalSamples)
	s := r.Samples()
	for {
		v, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Samples iterates over decoded PCM samples, one int32 at a time.
type Samples struct {
	dec *decoder
	err error
}

// Next returns the next sample. It reports false when the stream ends or an
// error occurs; check Err afterwards.
func (s *Samples) Next() (int32, bool) {
	if s.err != nil {
		return 0, false
	}
	if v, ok := s.dec.nextSample(); ok {
		return v, true
	}
	for !s.dec.finished {
		more, err := s.dec.decodeNextFrame()
		if err != nil {
			s.err = err
			return 0, false
		}
		if !more {
			return 0, false
		}
		if v, ok := s.dec.nextSample(); ok {
			return v, true
		}
	}
	return 0, false
}

// Err returns the first error encountered while decoding, if any.
func (s *Samples) Err() error {
	return s.err
}

// IsValidAPEFile reports whether the file starts with the APE magic bytes,
// optionally behind an ID3v2 tag.
func IsValidAPEFile(inputFile string) (bool, error) {
	f, err := os.Open(inputFile)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if _, err := findMagic(f); err != nil {
		return false, fmt.Errorf("no magic word 'MAC ' found in %s", inputFile)
	}
	return true, nil
}
