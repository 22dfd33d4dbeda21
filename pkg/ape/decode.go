package ape

import (
	"fmt"
	"hash/crc32"
	"io"
)

// Frame decoder — runs the decode pipeline once per frame:
//
//  1. Seek to the frame's offset, read its byte window, swap each 32-bit group
//  2. Skip the in-stream frame header (CRC word, optional flags word)
//  3. Range-decode residuals
//  4. Filter bank inverse (short-term correlation)
//  5. Predictor inverse (long-term correlation)
//  6. Channel decorrelation inverse (mid/side → L/R, stereo only)
//  7. Buffer interleaved PCM

// Frame flag bits carried in the optional flags word. Any other bit set is
// treated as a decode failure rather than silently ignored.
const (
	frameFlagLeftSilence  = 1
	frameFlagRightSilence = 2
	frameFlagPseudoStereo = 4

	frameFlagStereoSilence = frameFlagLeftSilence | frameFlagRightSilence
	frameFlagsKnown        = frameFlagStereoSilence | frameFlagPseudoStereo
)

// decoder holds the per-stream decode state.
type decoder struct {
	reader io.ReadSeeker
	closer io.Closer
	hdr    *fileHeader

	currentFrame uint32
	finished     bool
	buffer       sampleBuffer

	// One filter bank per channel; the predictor handles both channels.
	filters []*nnFilter
	pred    *predictor

	checkCRC bool

	// window is the reusable frame byte buffer.
	window []byte
}

func newDecoder(r io.ReadSeeker, hdr *fileHeader) *decoder {
	fset := int(hdr.header.compressionLevel/1000) - 1
	channels := int(hdr.header.channels)

	filters := make([]*nnFilter, channels)
	for i := range filters {
		filters[i] = newNNFilter(fset)
	}

	return &decoder{
		reader:  r,
		hdr:     hdr,
		filters: filters,
		pred:    newPredictor(),
	}
}

// nextSample returns the next buffered sample, if any.
func (d *decoder) nextSample() (int32, bool) {
	return d.buffer.next()
}

// decodeNextFrame decodes one frame into the sample buffer. It reports
// false when the stream has ended.
func (d *decoder) decodeNextFrame() (bool, error) {
	if d.currentFrame >= d.hdr.header.totalFrames {
		d.finished = true
		return false, nil
	}

	nblocks := d.hdr.header.blocksPerFrame
	if d.currentFrame == d.hdr.header.totalFrames-1 {
		nblocks = d.hdr.header.finalFrameBlocks
	}
	if nblocks == 0 {
		d.finished = true
		return false, nil
	}

	frameData, err := d.readFrameData()
	if err != nil {
		return false, err
	}

	// All pipeline state resets at frame boundaries; nothing carries over.
	for _, f := range d.filters {
		f.reset()
	}
	d.pred.reset()
	d.buffer.clear()

	payload, crc, flags, err := d.splitFrameHeader(frameData)
	if err != nil {
		return false, err
	}

	if d.hdr.header.channels == 1 {
		err = d.decodeFrameMono(payload, nblocks, flags)
	} else {
		err = d.decodeFrameStereo(payload, nblocks, flags)
	}
	if err != nil {
		return false, err
	}

	if d.checkCRC {
		if err := d.verifyCRC(crc); err != nil {
			return false, err
		}
	}

	d.currentFrame++
	return true, nil
}

// readFrameData reads and byte-swaps the current frame's compressed window.
//
// The window starts at the 4-byte aligned seek table offset (the low 2 bits
// are an alignment skip) and runs to the next frame's offset, or to the end
// of the frame data for the last frame. The encoder writes through a 32-bit
// little-endian buffer, so each 4-byte group is reversed before decoding.
func (d *decoder) readFrameData() ([]byte, error) {
	frameIdx := int(d.currentFrame)
	seekTable := d.hdr.seekTable

	if frameIdx >= len(seekTable) {
		return nil, ErrInvalidSeekTable
	}

	start := uint64(seekTable[frameIdx] &^ 3)

	var end uint64
	if frameIdx+1 < len(seekTable) {
		end = uint64(seekTable[frameIdx+1])
	} else {
		totalData := uint64(d.hdr.descriptor.frameDataBytes) |
			uint64(d.hdr.descriptor.frameDataBytesHigh)<<32
		end = d.hdr.dataOffset + totalData
	}

	if end <= start {
		return nil, fmt.Errorf("%w: frame %d window is empty", ErrTruncatedFrame, frameIdx)
	}
	size := int(end - start)

	if _, err := d.reader.Seek(int64(start), io.SeekStart); err != nil {
		return nil, fmt.Errorf("ape: %w", err)
	}
	if cap(d.window) < size {
		d.window = make([]byte, size)
	}
	data := d.window[:size]
	if _, err := io.ReadFull(d.reader, data); err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", ErrTruncatedFrame, frameIdx, err)
	}

	for off := 0; off+4 <= size; off += 4 {
		data[off], data[off+3] = data[off+3], data[off]
		data[off+1], data[off+2] = data[off+2], data[off+1]
	}

	return data, nil
}

// splitFrameHeader consumes the in-stream frame header: the alignment skip,
// the 4-byte CRC, the flags word if the CRC's high bit is set, and the one
// byte the range coder discards. It returns the range-coded payload.
func (d *decoder) splitFrameHeader(frameData []byte) ([]byte, uint32, uint32, error) {
	pos := int(d.hdr.seekTable[d.currentFrame] & 3)

	if pos+4 > len(frameData) {
		return nil, 0, 0, fmt.Errorf("%w: frame %d header", ErrTruncatedFrame, d.currentFrame)
	}
	crc := uint32(frameData[pos])<<24 | uint32(frameData[pos+1])<<16 |
		uint32(frameData[pos+2])<<8 | uint32(frameData[pos+3])
	pos += 4

	var flags uint32
	if crc&0x80000000 != 0 {
		if pos+4 > len(frameData) {
			return nil, 0, 0, fmt.Errorf("%w: frame %d flags", ErrTruncatedFrame, d.currentFrame)
		}
		flags = uint32(frameData[pos])<<24 | uint32(frameData[pos+1])<<16 |
			uint32(frameData[pos+2])<<8 | uint32(frameData[pos+3])
		pos += 4
		crc &= 0x7FFFFFFF
	}

	if pos >= len(frameData) {
		return nil, 0, 0, fmt.Errorf("%w: frame %d payload", ErrTruncatedFrame, d.currentFrame)
	}
	pos++ // first byte is discarded by the range coder

	if flags&^uint32(frameFlagsKnown) != 0 {
		return nil, 0, 0, fmt.Errorf("%w: frame %d has unknown flags %#x",
			ErrCorruptFrame, d.currentFrame, flags)
	}

	return frameData[pos:], crc, flags, nil
}

// decodeFrameMono decodes one mono frame into the buffer.
func (d *decoder) decodeFrameMono(payload []byte, nblocks, flags uint32) error {
	if flags&frameFlagLeftSilence != 0 {
		for i := uint32(0); i < nblocks; i++ {
			d.buffer.push(0)
		}
		return nil
	}

	rc := newRangeDecoder(payload)
	rice := newRiceState()

	for i := uint32(0); i < nblocks; i++ {
		residual := rc.decodeValue(&rice)
		filtered := d.filters[0].decompress(residual)
		d.buffer.push(d.pred.decodeMono(filtered))
	}

	if rc.exhausted() {
		return fmt.Errorf("%w: frame %d", ErrCorruptBitstream, d.currentFrame)
	}
	return nil
}

// decodeFrameStereo decodes one stereo frame into the buffer.
func (d *decoder) decodeFrameStereo(payload []byte, nblocks, flags uint32) error {
	if flags&frameFlagStereoSilence == frameFlagStereoSilence {
		for i := uint32(0); i < nblocks; i++ {
			d.buffer.pushStereo(0, 0)
		}
		return nil
	}
	if flags&frameFlagPseudoStereo != 0 {
		// One coded channel, duplicated to both outputs.
		rc := newRangeDecoder(payload)
		rice := newRiceState()
		for i := uint32(0); i < nblocks; i++ {
			residual := rc.decodeValue(&rice)
			filtered := d.filters[0].decompress(residual)
			sample := d.pred.decodeMono(filtered)
			d.buffer.pushStereo(sample, sample)
		}
		if rc.exhausted() {
			return fmt.Errorf("%w: frame %d", ErrCorruptBitstream, d.currentFrame)
		}
		return nil
	}
	if flags&frameFlagStereoSilence != 0 {
		// A single silent channel still needs the joint stereo pipeline;
		// no known encoder emits this.
		return fmt.Errorf("%w: frame %d has unsupported flags %#x",
			ErrCorruptFrame, d.currentFrame, flags)
	}

	rc := newRangeDecoder(payload)
	riceY := newRiceState()
	riceX := newRiceState()

	for i := uint32(0); i < nblocks; i++ {
		// Channel order at the entropy layer is fixed: Y then X.
		residualY := rc.decodeValue(&riceY)
		filteredY := d.filters[0].decompress(residualY)

		residualX := rc.decodeValue(&riceX)
		filteredX := d.filters[1].decompress(residualX)

		left, right := d.pred.decodeStereo(filteredY, filteredX)
		d.buffer.pushStereo(left, right)
	}

	if rc.exhausted() {
		return fmt.Errorf("%w: frame %d", ErrCorruptBitstream, d.currentFrame)
	}
	return nil
}

// verifyCRC checks the frame's stored CRC against the decoded output. The
// CRC covers the frame's PCM serialized at the stream's bit depth, and the
// stored word keeps only 31 bits, so the computed CRC is compared shifted.
func (d *decoder) verifyCRC(stored uint32) error {
	bps := d.hdr.header.bitsPerSample
	buf := make([]byte, 0, len(d.buffer.samples)*int(bps/8))
	for _, s := range d.buffer.samples {
		switch bps {
		case 8:
			buf = append(buf, byte(s+128))
		case 16:
			buf = append(buf, byte(s), byte(s>>8))
		default:
			buf = append(buf, byte(s), byte(s>>8), byte(s>>16))
		}
	}
	crc := crc32.ChecksumIEEE(buf) >> 1
	if crc != stored {
		return &CRCMismatchError{Frame: d.currentFrame, Expected: stored, Actual: crc}
	}
	return nil
}
