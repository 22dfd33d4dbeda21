package ape

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.ape")
	data := buildTestFile(testFileOpts{
		channels:       2,
		bitsPerSample:  16,
		level:          CompressionNormal,
		blocksPerFrame: 20,
		finalBlocks:    20,
		frames:         [][]byte{silenceFrame(256)},
	})
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	samples, err := r.ReadAll()
	require.NoError(t, err)
	assert.Len(t, samples, 40)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.ape"))
	assert.Error(t, err)
}

func TestIsValidAPEFile(t *testing.T) {
	dir := t.TempDir()

	apePath := filepath.Join(dir, "ok.ape")
	require.NoError(t, os.WriteFile(apePath, []byte("MAC \x96\x0f\x00\x00"), 0o644))
	valid, err := IsValidAPEFile(apePath)
	require.NoError(t, err)
	assert.True(t, valid)

	wavPath := filepath.Join(dir, "no.wav")
	require.NoError(t, os.WriteFile(wavPath, []byte("RIFF\x00\x00\x00\x00WAVE"), 0o644))
	valid, err = IsValidAPEFile(wavPath)
	assert.Error(t, err)
	assert.False(t, valid)
}

func TestSamplesIteratorExactCount(t *testing.T) {
	r := openTestFile(t, testFileOpts{
		channels:       1,
		bitsPerSample:  16,
		level:          CompressionFast,
		blocksPerFrame: 25,
		finalBlocks:    5,
		frames:         [][]byte{silenceFrame(128), silenceFrame(128), silenceFrame(128)},
	})

	s := r.Samples()
	count := 0
	for {
		_, ok := s.Next()
		if !ok {
			break
		}
		count++
	}
	require.NoError(t, s.Err())
	assert.Equal(t, 25+25+5, count)

	// The iterator is finite and non-restartable.
	_, ok := s.Next()
	assert.False(t, ok)
}

func TestPCMReaderStereo16(t *testing.T) {
	r := NewPCMReader([]int32{100, -200, 32767, -32768}, 2, 16)

	buf := make([]byte, 16)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{
		100, 0,
		0x38, 0xFF, // -200
		0xFF, 0x7F, // 32767
		0x00, 0x80, // -32768
	}, buf[:n])
	assert.Equal(t, 4, r.SamplesPlayed())

	_, err = r.Read(buf)
	assert.Equal(t, io.EOF, err)
}

func TestPCMReaderMonoDuplicates(t *testing.T) {
	r := NewPCMReader([]int32{5, -5}, 1, 16)

	buf := make([]byte, 16)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{
		5, 0, 5, 0,
		0xFB, 0xFF, 0xFB, 0xFF,
	}, buf[:n])
}

func TestPCMReaderScaling(t *testing.T) {
	// 8-bit samples scale up, 24-bit samples scale down.
	r := NewPCMReader([]int32{1, -1}, 2, 8)
	buf := make([]byte, 4)
	_, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0xFF}, buf)

	r = NewPCMReader([]int32{1 << 16, -(1 << 16)}, 2, 24)
	_, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0xFF}, buf)
}

func TestPCMReaderShortBuffer(t *testing.T) {
	r := NewPCMReader([]int32{1, 2, 3}, 2, 16)

	// A buffer with room for one sample reads exactly one.
	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, r.SamplesPlayed())
}
