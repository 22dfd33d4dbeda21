package ape

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	data := buildTestFile(testFileOpts{
		channels:       2,
		bitsPerSample:  16,
		level:          CompressionNormal,
		sampleRate:     44100,
		blocksPerFrame: 73728,
		finalBlocks:    1024,
		frames:         [][]byte{silenceFrame(8), silenceFrame(8)},
	})

	hdr, err := parseHeader(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, uint16(MinVersion), hdr.descriptor.version)
	assert.Equal(t, uint32(52), hdr.descriptor.descriptorBytes)
	assert.Equal(t, uint32(24), hdr.descriptor.headerBytes)
	assert.Equal(t, uint16(2), hdr.header.channels)
	assert.Equal(t, uint16(16), hdr.header.bitsPerSample)
	assert.Equal(t, uint16(CompressionNormal), hdr.header.compressionLevel)
	assert.Equal(t, uint32(73728), hdr.header.blocksPerFrame)
	assert.Equal(t, uint32(1024), hdr.header.finalFrameBlocks)
	assert.Equal(t, uint32(2), hdr.header.totalFrames)
	assert.Len(t, hdr.seekTable, 2)
	assert.Equal(t, uint64(52+24+8), hdr.dataOffset)
	assert.Equal(t, uint64(hdr.dataOffset), uint64(hdr.seekTable[0]))
}

func TestTotalBlocks(t *testing.T) {
	h := &fileHeader{header: apeHeader{
		blocksPerFrame:   100,
		finalFrameBlocks: 33,
		totalFrames:      4,
		channels:         2,
	}}
	assert.Equal(t, uint64(3*100+33), h.totalBlocks())
	assert.Equal(t, uint64((3*100+33)*2), h.totalSamples())

	h.header.totalFrames = 0
	assert.Zero(t, h.totalBlocks())
}

func TestUnsupportedVersion(t *testing.T) {
	data := buildTestFile(testFileOpts{
		version:        3970,
		channels:       1,
		bitsPerSample:  16,
		level:          CompressionNormal,
		blocksPerFrame: 16,
		finalBlocks:    16,
		frames:         [][]byte{silenceFrame(8)},
	})

	_, err := New(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestInvalidMagic(t *testing.T) {
	_, err := New(bytes.NewReader([]byte("RIFF0000 not an ape file")))
	assert.ErrorIs(t, err, ErrInvalidMagic)

	_, err = New(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestID3v2Skip(t *testing.T) {
	ape := buildTestFile(testFileOpts{
		channels:       1,
		bitsPerSample:  16,
		level:          CompressionFast,
		blocksPerFrame: 10,
		finalBlocks:    10,
		frames:         [][]byte{silenceFrame(64)},
	})

	// ID3v2 header: "ID3", version, flags, then a 28-bit syncsafe size.
	body := make([]byte, 200)
	tag := append([]byte{'I', 'D', '3', 4, 0, 0, 0, 0, 200 >> 7, 200 & 0x7F}, body...)

	r, err := New(bytes.NewReader(append(tag, ape...)))
	require.NoError(t, err)
	assert.Equal(t, uint16(1), r.Info().Channels)
	assert.Equal(t, uint64(10), r.Info().TotalSamples)
}

func TestUnsupportedConfiguration(t *testing.T) {
	base := testFileOpts{
		channels:       1,
		bitsPerSample:  16,
		level:          CompressionNormal,
		blocksPerFrame: 16,
		finalBlocks:    16,
		frames:         [][]byte{silenceFrame(8)},
	}

	bad := base
	bad.channels = 3
	_, err := New(bytes.NewReader(buildTestFile(bad)))
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	bad = base
	bad.bitsPerSample = 12
	_, err = New(bytes.NewReader(buildTestFile(bad)))
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	bad = base
	bad.level = 6000
	_, err = New(bytes.NewReader(buildTestFile(bad)))
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestInvalidFinalFrameBlocks(t *testing.T) {
	data := buildTestFile(testFileOpts{
		channels:       1,
		bitsPerSample:  16,
		level:          CompressionNormal,
		blocksPerFrame: 16,
		finalBlocks:    17,
		frames:         [][]byte{silenceFrame(8)},
	})

	_, err := New(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestSeekTableTooShort(t *testing.T) {
	data := buildTestFile(testFileOpts{
		channels:       1,
		bitsPerSample:  16,
		level:          CompressionNormal,
		blocksPerFrame: 16,
		finalBlocks:    16,
		frames:         [][]byte{silenceFrame(8), silenceFrame(8)},
	})

	// Shrink the declared seek table to one entry: 2 frames remain in
	// the header, so parsing must reject the table.
	// seek_table_bytes lives at descriptor offset 16.
	data[16] = 4
	_, err := New(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrInvalidSeekTable)
}
