package ape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictorMonoZero(t *testing.T) {
	p := newPredictor()
	for i := 0; i < 2000; i++ {
		require.Zerof(t, p.decodeMono(0), "sample %d", i)
	}
}

func TestPredictorStereoZero(t *testing.T) {
	p := newPredictor()
	for i := 0; i < 2000; i++ {
		l, r := p.decodeStereo(0, 0)
		require.Zerof(t, l, "left %d", i)
		require.Zerof(t, r, "right %d", i)
	}
}

func TestPredictorMonoFirstSamples(t *testing.T) {
	p := newPredictor()

	// First sample: empty history, zero prediction, IIR feedback zero.
	assert.Equal(t, int32(1024), p.decodeMono(1024))

	// Second sample: prediction from the seeded A coefficients over the
	// first reconstruction (value and delta both 1024), then the 31/32
	// IIR feedback of the previous output.
	expected := int32((1024*(360+317))>>10 + (1024*31)>>5)
	assert.Equal(t, expected, p.decodeMono(0))
}

func TestPredictorStereoFirstBlock(t *testing.T) {
	p := newPredictor()

	// Empty state passes both channels through; the decorrelation is
	// left = X - Y/2, right = left + Y.
	l, r := p.decodeStereo(10, 100)
	assert.Equal(t, int32(95), l)
	assert.Equal(t, int32(105), r)
}

func TestStereoDecorrelationTruncation(t *testing.T) {
	// Y/2 truncates toward zero for negative mid values.
	p := newPredictor()
	l, r := p.decodeStereo(-7, 0)
	assert.Equal(t, int32(3), l)
	assert.Equal(t, int32(-4), r)
}

func TestPredictorResetDeterminism(t *testing.T) {
	input := []int32{0, 1, -1, 500, -500, 123456, -123456, 7, 7, 7, -3}

	run := func(p *predictor) []int32 {
		out := make([]int32, 0, len(input)*2)
		for _, v := range input {
			l, r := p.decodeStereo(v, -v)
			out = append(out, l, r)
		}
		return out
	}

	p := newPredictor()
	first := run(p)
	p.reset()
	second := run(p)

	assert.Equal(t, first, second)
}

func TestPredictorResetRestoresCoefficients(t *testing.T) {
	p := newPredictor()
	for i := 0; i < 100; i++ {
		p.decodeMono(int32(i*37 - 50))
	}
	p.reset()

	assert.Equal(t, initialCoeffsA, p.coeffsA[0])
	assert.Equal(t, initialCoeffsA, p.coeffsA[1])
	assert.Equal(t, [2][5]int64{}, p.coeffsB)
	assert.Zero(t, p.bufPos)
	for i, v := range p.buf {
		require.Zerof(t, v, "buf[%d]", i)
	}
}

func TestPredictorWindowRewind(t *testing.T) {
	// Run past the history size so the sliding buffer rewinds; the
	// position must wrap and extreme inputs must not disturb
	// determinism across a reset.
	p := newPredictor()
	for i := 0; i < predictorHistorySize*2+10; i++ {
		p.decodeStereo(int32(i)<<16, -int32(i)<<16)
	}
	assert.Less(t, p.bufPos, predictorHistorySize)
}
