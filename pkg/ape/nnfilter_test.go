package ape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApesign(t *testing.T) {
	assert.Equal(t, int32(0), apesign(0))
	assert.Equal(t, int32(-1), apesign(5))
	assert.Equal(t, int32(1), apesign(-5))
}

func TestClampS16(t *testing.T) {
	testCases := []struct {
		v        int32
		expected int16
	}{
		{32767, 32767},
		{32768, 32767},
		{100000, 32767},
		{-32768, -32768},
		{-32769, -32768},
		{-100000, -32768},
		{10000, 10000},
		{-15000, -15000},
		{0, 0},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, clampS16(tc.v), "v=%d", tc.v)
	}
}

func TestFilterTopology(t *testing.T) {
	testCases := []struct {
		level    uint16
		orders   []int
		fracBits []uint8
	}{
		{CompressionFast, nil, nil},
		{CompressionNormal, []int{16}, []uint8{11}},
		{CompressionHigh, []int{64}, []uint8{11}},
		{CompressionExtraHigh, []int{32, 256}, []uint8{10, 13}},
		{CompressionInsane, []int{16, 256, 1280}, []uint8{11, 13, 15}},
	}

	for _, tc := range testCases {
		f := newNNFilter(int(tc.level/1000) - 1)
		require.Lenf(t, f.stages, len(tc.orders), "level %d", tc.level)
		for i, s := range f.stages {
			assert.Equalf(t, tc.orders[i], s.order, "level %d stage %d", tc.level, i)
			assert.Equalf(t, tc.fracBits[i], s.fracBits, "level %d stage %d", tc.level, i)
		}
	}
}

func TestFilterZeroResiduals(t *testing.T) {
	for fset := 0; fset < 5; fset++ {
		f := newNNFilter(fset)
		for i := 0; i < 1000; i++ {
			require.Zerof(t, f.decompress(0), "fset %d sample %d", fset, i)
		}
	}
}

func TestFilterFirstSamplePassesThrough(t *testing.T) {
	// With zeroed history the prediction is zero, so the first residual
	// comes through unchanged.
	s := newNNFilterStage(16, 11)
	assert.Equal(t, int32(123), s.decompress(123))

	// The output lands in the delay line and an adaptation term of
	// -sign*8<<2 is recorded (|res| is far above the zero average).
	assert.Equal(t, int16(123), s.history[s.delayPos-1])
	assert.Equal(t, int16(-32), s.history[s.adaptPos-1])
	assert.Equal(t, uint32(123/16), s.avg)
}

func TestFilterHistoryClamped(t *testing.T) {
	s := newNNFilterStage(16, 11)
	assert.Equal(t, int32(40000), s.decompress(40000))
	assert.Equal(t, int16(32767), s.history[s.delayPos-1])
}

func TestFilterResetDeterminism(t *testing.T) {
	input := []int32{5, -3, 1200, 0, -88, 17, 17, -17, 40000, -40000, 3}

	run := func(f *nnFilter) []int32 {
		out := make([]int32, len(input))
		for i, v := range input {
			out[i] = f.decompress(v)
		}
		return out
	}

	f := newNNFilter(4)
	first := run(f)
	f.reset()
	second := run(f)

	assert.Equal(t, first, second)
}

func TestFilterWindowRewind(t *testing.T) {
	// Push enough samples through a small stage to rewind its sliding
	// window several times; state positions must stay in bounds and the
	// filter must remain deterministic against a fresh instance fed the
	// same longer sequence in two halves.
	s := newNNFilterStage(16, 11)
	for i := 0; i < filterHistorySize*3; i++ {
		s.decompress(int32(i%256 - 128))
	}
	assert.GreaterOrEqual(t, s.delayPos, s.order*2)
	assert.Less(t, s.delayPos, len(s.history))
}
