package ape

import (
	"encoding/binary"
	"fmt"
	"io"
)

// apeMagic is the file magic: "MAC ".
var apeMagic = [4]byte{0x4D, 0x41, 0x43, 0x20}

// apeDescriptor is the first structure in the file (52 bytes for v3.99+).
type apeDescriptor struct {
	version              uint16
	descriptorBytes      uint32
	headerBytes          uint32
	seekTableBytes       uint32
	headerDataBytes      uint32
	frameDataBytes       uint32
	frameDataBytesHigh   uint32
	terminatingDataBytes uint32
	fileMD5              [16]byte
}

// apeHeader follows the descriptor (24 bytes).
type apeHeader struct {
	compressionLevel uint16
	formatFlags      uint16
	blocksPerFrame   uint32
	finalFrameBlocks uint32
	totalFrames      uint32
	bitsPerSample    uint16
	channels         uint16
	sampleRate       uint32
}

// fileHeader is the complete parsed file header: descriptor + header + seek
// table, plus the offset where compressed frame data begins.
type fileHeader struct {
	descriptor apeDescriptor
	header     apeHeader
	seekTable  []uint32
	dataOffset uint64
}

// totalSamples is the total interleaved sample count (blocks × channels).
func (h *fileHeader) totalSamples() uint64 {
	return h.totalBlocks() * uint64(h.header.channels)
}

// totalBlocks is the total block count (one block = one sample per channel).
func (h *fileHeader) totalBlocks() uint64 {
	if h.header.totalFrames == 0 {
		return 0
	}
	fullFrames := uint64(h.header.totalFrames - 1)
	return fullFrames*uint64(h.header.blocksPerFrame) + uint64(h.header.finalFrameBlocks)
}

// parseHeader parses an APE file header. After it returns, the reader's
// position is unspecified; frame decoding seeks using the seek table.
func parseHeader(r io.ReadSeeker) (*fileHeader, error) {
	descStart, err := findMagic(r)
	if err != nil {
		return nil, err
	}

	descriptor, err := readDescriptor(r)
	if err != nil {
		return nil, err
	}

	// Seek to the header using descriptorBytes so future descriptor
	// extensions don't break parsing.
	if _, err := r.Seek(int64(descStart)+int64(descriptor.descriptorBytes), io.SeekStart); err != nil {
		return nil, fmt.Errorf("ape: %w", err)
	}
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	seekTableStart := descStart + uint64(descriptor.descriptorBytes) + uint64(descriptor.headerBytes)
	if _, err := r.Seek(int64(seekTableStart), io.SeekStart); err != nil {
		return nil, fmt.Errorf("ape: %w", err)
	}
	seekTable, err := readSeekTable(r, descriptor)
	if err != nil {
		return nil, err
	}
	if uint64(len(seekTable)) < uint64(header.totalFrames) {
		return nil, fmt.Errorf("%w: %d entries for %d frames",
			ErrInvalidSeekTable, len(seekTable), header.totalFrames)
	}

	dataOffset := seekTableStart + uint64(descriptor.seekTableBytes) + uint64(descriptor.headerDataBytes)

	return &fileHeader{
		descriptor: *descriptor,
		header:     *header,
		seekTable:  seekTable,
		dataOffset: dataOffset,
	}, nil
}

// findMagic scans forward for the "MAC " magic, skipping a leading ID3v2 tag
// if present, and returns the byte offset of the magic.
func findMagic(r io.ReadSeeker) (uint64, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, ErrInvalidMagic
	}
	if buf == apeMagic {
		return 0, nil
	}

	// ID3v2 tags start with "ID3"; the tag size is a 28-bit syncsafe
	// integer at bytes 6-9 of the 10-byte tag header.
	if buf[0] == 'I' && buf[1] == 'D' && buf[2] == '3' {
		var id3 [6]byte
		if _, err := io.ReadFull(r, id3[:]); err != nil {
			return 0, ErrInvalidMagic
		}
		size := uint32(id3[2])<<21 | uint32(id3[3])<<14 | uint32(id3[4])<<7 | uint32(id3[5])
		offset := uint64(10 + size)
		if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
			return 0, ErrInvalidMagic
		}
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, ErrInvalidMagic
		}
		if buf == apeMagic {
			return offset, nil
		}
	}

	return 0, ErrInvalidMagic
}

// readDescriptor reads the descriptor fields after the 4 magic bytes.
func readDescriptor(r io.Reader) (*apeDescriptor, error) {
	version, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	if version < MinVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	// 2 padding bytes after the version.
	var padding [2]byte
	if _, err := io.ReadFull(r, padding[:]); err != nil {
		return nil, fmt.Errorf("ape: %w", err)
	}

	d := &apeDescriptor{version: version}
	for _, field := range []*uint32{
		&d.descriptorBytes, &d.headerBytes, &d.seekTableBytes,
		&d.headerDataBytes, &d.frameDataBytes, &d.frameDataBytesHigh,
		&d.terminatingDataBytes,
	} {
		if *field, err = readUint32(r); err != nil {
			return nil, err
		}
	}
	if _, err := io.ReadFull(r, d.fileMD5[:]); err != nil {
		return nil, fmt.Errorf("ape: %w", err)
	}
	return d, nil
}

// readHeader reads and validates the 24-byte APE header.
func readHeader(r io.Reader) (*apeHeader, error) {
	h := &apeHeader{}
	var err error
	if h.compressionLevel, err = readUint16(r); err != nil {
		return nil, err
	}
	if h.formatFlags, err = readUint16(r); err != nil {
		return nil, err
	}
	if h.blocksPerFrame, err = readUint32(r); err != nil {
		return nil, err
	}
	if h.finalFrameBlocks, err = readUint32(r); err != nil {
		return nil, err
	}
	if h.totalFrames, err = readUint32(r); err != nil {
		return nil, err
	}
	if h.bitsPerSample, err = readUint16(r); err != nil {
		return nil, err
	}
	if h.channels, err = readUint16(r); err != nil {
		return nil, err
	}
	if h.sampleRate, err = readUint32(r); err != nil {
		return nil, err
	}

	if h.channels == 0 || h.channels > MaxChannels {
		return nil, fmt.Errorf("%w: channel count %d", ErrUnsupportedConfiguration, h.channels)
	}
	if h.bitsPerSample != 8 && h.bitsPerSample != 16 && h.bitsPerSample != 24 {
		return nil, fmt.Errorf("%w: bits per sample %d", ErrUnsupportedConfiguration, h.bitsPerSample)
	}
	switch h.compressionLevel {
	case CompressionFast, CompressionNormal, CompressionHigh, CompressionExtraHigh, CompressionInsane:
	default:
		return nil, fmt.Errorf("%w: compression level %d", ErrUnsupportedConfiguration, h.compressionLevel)
	}
	if h.totalFrames > 0 && h.finalFrameBlocks > h.blocksPerFrame {
		return nil, fmt.Errorf("%w: final frame blocks %d exceeds blocks per frame %d",
			ErrInvalidHeader, h.finalFrameBlocks, h.blocksPerFrame)
	}

	return h, nil
}

// readSeekTable reads the frame offset table — one uint32 per frame.
func readSeekTable(r io.Reader, d *apeDescriptor) ([]uint32, error) {
	n := d.seekTableBytes / 4
	table := make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := readUint32(r)
		if err != nil {
			return nil, ErrInvalidSeekTable
		}
		table = append(table, v)
	}
	return table, nil
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("ape: %w", err)
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("ape: %w", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
