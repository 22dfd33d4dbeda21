package cmd

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/braheezy/qoa"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavbird/goape/pkg/ape"
)

func execute(t *testing.T, command *cobra.Command, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	command.SetOut(buf)
	command.SetErr(buf)
	command.SetArgs(args)

	err := command.Execute()
	return strings.TrimSpace(buf.String()), err
}

// writeSilenceAPE writes a minimal stereo 16-bit APE file holding one frame
// of digital silence and returns its path.
func writeSilenceAPE(t *testing.T, dir string, blocks uint32) string {
	t.Helper()

	// One silence frame: zero CRC word, one discarded byte, and an all-zero
	// range coder payload, padded to a 4-byte boundary.
	frameData := make([]byte, (4+1+512+3)&^3)

	var buf bytes.Buffer
	le := binary.LittleEndian

	buf.WriteString("MAC ")
	binary.Write(&buf, le, uint16(3990))
	buf.Write([]byte{0, 0})
	binary.Write(&buf, le, uint32(52))             // descriptor bytes
	binary.Write(&buf, le, uint32(24))             // header bytes
	binary.Write(&buf, le, uint32(4))              // seek table bytes
	binary.Write(&buf, le, uint32(0))              // header data bytes
	binary.Write(&buf, le, uint32(len(frameData))) // frame data bytes
	binary.Write(&buf, le, uint32(0))              // frame data bytes high
	binary.Write(&buf, le, uint32(0))              // terminating data bytes
	buf.Write(make([]byte, 16))                    // MD5

	binary.Write(&buf, le, uint16(ape.CompressionNormal))
	binary.Write(&buf, le, uint16(0)) // format flags
	binary.Write(&buf, le, blocks)    // blocks per frame
	binary.Write(&buf, le, blocks)    // final frame blocks
	binary.Write(&buf, le, uint32(1)) // total frames
	binary.Write(&buf, le, uint16(16))
	binary.Write(&buf, le, uint16(2))
	binary.Write(&buf, le, uint32(44100))

	binary.Write(&buf, le, uint32(52+24+4)) // seek table
	buf.Write(frameData)

	path := filepath.Join(dir, "silence.ape")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestInfoCmd(t *testing.T) {
	path := writeSilenceAPE(t, t.TempDir(), 100)

	out, err := execute(t, rootCmd, "info", path)
	require.NoError(t, err)

	assert.Contains(t, out, "3.99")
	assert.Contains(t, out, "Normal (2000)")
	assert.Contains(t, out, "44100 Hz")
	assert.Contains(t, out, "100 per channel")
}

func TestConvertCmdWav(t *testing.T) {
	dir := t.TempDir()
	inputFile := writeSilenceAPE(t, dir, 100)
	outputFile := filepath.Join(dir, "silence.wav")

	_, err := execute(t, rootCmd, "convert", inputFile, outputFile)
	require.NoError(t, err)

	wavFile, err := os.Open(outputFile)
	require.NoError(t, err)
	defer wavFile.Close()

	wavDecoder := wav.NewDecoder(wavFile)
	wavBuffer, err := wavDecoder.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, 2, wavBuffer.Format.NumChannels)
	assert.Equal(t, 44100, wavBuffer.Format.SampleRate)
	require.Len(t, wavBuffer.Data, 200)
	for i, s := range wavBuffer.Data {
		require.Zerof(t, s, "sample %d", i)
	}
}

func TestConvertCmdQOA(t *testing.T) {
	dir := t.TempDir()
	inputFile := writeSilenceAPE(t, dir, 100)
	outputFile := filepath.Join(dir, "silence.qoa")

	_, err := execute(t, rootCmd, "convert", inputFile, outputFile)
	require.NoError(t, err)

	qoaBytes, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	q, decoded, err := qoa.Decode(qoaBytes)
	require.NoError(t, err)
	assert.Equal(t, uint32(44100), q.SampleRate)
	assert.Equal(t, uint32(2), q.Channels)
	assert.Len(t, decoded, 200)
}

func TestIsSupportedConversion(t *testing.T) {
	testCases := []struct {
		input    string
		output   string
		expected bool
	}{
		{"in.ape", "out.wav", true},
		{"in.ape", "out.flac", true},
		{"in.ape", "out.mp3", true},
		{"in.ape", "out.qoa", true},
		{"in.ape", "out.ape", false},
		{"in.ape", "out.ogg", false},
		{"in.wav", "out.ape", false},
		{"in.wav", "out.wav", false},
	}

	for _, tc := range testCases {
		assert.Equalf(t, tc.expected, isSupportedConversion(tc.input, tc.output),
			"%s -> %s", tc.input, tc.output)
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "2.00 KB", formatSize(2048))
	assert.Equal(t, "3.00 MB", formatSize(3*1024*1024))
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "Fast", levelName(ape.CompressionFast))
	assert.Equal(t, "Insane", levelName(ape.CompressionInsane))
	assert.Equal(t, "Unknown", levelName(1234))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", formatDuration(0))
	assert.Equal(t, "01:05", formatDuration(65*time.Second))
	assert.Equal(t, "61:00", formatDuration(61*time.Minute))
}
