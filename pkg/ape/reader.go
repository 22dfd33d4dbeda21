package ape

import "io"

// PCMReader adapts decoded APE samples to an io.Reader producing 16-bit
// little-endian stereo PCM, the layout audio players consume. Samples at
// other bit depths are rescaled and mono input is duplicated to both
// channels.
type PCMReader struct {
	data          []int32
	channels      int
	bitsPerSample int
	pos           int
}

// NewPCMReader creates a PCMReader over interleaved decoded samples.
func NewPCMReader(data []int32, channels, bitsPerSample int) *PCMReader {
	return &PCMReader{
		data:          data,
		channels:      channels,
		bitsPerSample: bitsPerSample,
	}
}

// Read implements the io.Reader interface.
func (r *PCMReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}

	// Each source sample becomes one stereo pair for mono input, so it
	// needs 4 output bytes; stereo needs 2.
	bytesPerSample := 2 * (3 - r.channels)

	n := 0
	for r.pos < len(r.data) && n+bytesPerSample <= len(p) {
		s := r.scale(r.data[r.pos])
		p[n] = byte(s)
		p[n+1] = byte(s >> 8)
		n += 2
		if r.channels == 1 {
			p[n] = byte(s)
			p[n+1] = byte(s >> 8)
			n += 2
		}
		r.pos++
	}

	return n, nil
}

// scale converts a sample at the stream's bit depth to 16-bit.
func (r *PCMReader) scale(s int32) int16 {
	switch r.bitsPerSample {
	case 8:
		return int16(s << 8)
	case 24:
		return int16(s >> 8)
	default:
		return int16(s)
	}
}

// SamplesPlayed returns the number of source samples consumed so far.
func (r *PCMReader) SamplesPlayed() int {
	return r.pos
}
