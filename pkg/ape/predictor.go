package ape

// Adaptive linear predictor for v3.99 streams (the v3.95 predictor design).
// It restores the long-range correlation the filter bank cannot reach, and
// for stereo it folds in a cross-channel term ahead of the final mid/side
// inversion.
//
// All per-sample state lives in one sliding int64 delay buffer; offsets
// below address the per-channel delay lines and adaptation sign slots
// relative to the current buffer position.

const (
	predictorHistorySize = 512
	predictorSize        = 50

	yDelayA = 18 + 8*4
	yDelayB = 18 + 8*3
	xDelayA = 18 + 8*2
	xDelayB = 18 + 8

	yAdaptCoeffsA = 18
	xAdaptCoeffsA = 14
	yAdaptCoeffsB = 10
	xAdaptCoeffsB = 5
)

// initialCoeffsA seeds the own-channel filter for v3.93+ streams.
var initialCoeffsA = [4]int64{360, 317, -109, 98}

// apesign64 is apesign over the predictor's int64 state.
func apesign64(x int64) int64 {
	var s int64
	if x < 0 {
		s = 1
	}
	if x > 0 {
		s--
	}
	return s
}

// predictor holds both channels' prediction state for one frame.
type predictor struct {
	buf    []int64
	bufPos int

	lastA   [2]int64
	filterA [2]int64
	filterB [2]int64
	coeffsA [2][4]int64
	coeffsB [2][5]int64
}

func newPredictor() *predictor {
	p := &predictor{buf: make([]int64, predictorHistorySize+predictorSize)}
	p.reset()
	return p
}

// reset clears predictor state. Called at frame boundaries.
func (p *predictor) reset() {
	for i := range p.buf {
		p.buf[i] = 0
	}
	p.bufPos = 0
	p.lastA = [2]int64{}
	p.filterA = [2]int64{}
	p.filterB = [2]int64{}
	p.coeffsA = [2][4]int64{initialCoeffsA, initialCoeffsA}
	p.coeffsB = [2][5]int64{}
}

// decodeMono reconstructs one mono sample from a filtered residual.
func (p *predictor) decodeMono(input int32) int32 {
	a := int64(input)
	bp := p.bufPos

	p.buf[bp+yDelayA] = p.lastA[0]
	p.buf[bp+yDelayA-1] = p.buf[bp+yDelayA] - p.buf[bp+yDelayA-1]

	predictionA := p.buf[bp+yDelayA]*p.coeffsA[0][0] +
		p.buf[bp+yDelayA-1]*p.coeffsA[0][1] +
		p.buf[bp+yDelayA-2]*p.coeffsA[0][2] +
		p.buf[bp+yDelayA-3]*p.coeffsA[0][3]

	currentA := a + predictionA>>10
	p.lastA[0] = currentA

	p.buf[bp+yAdaptCoeffsA] = apesign64(p.buf[bp+yDelayA])
	p.buf[bp+yAdaptCoeffsA-1] = apesign64(p.buf[bp+yDelayA-1])

	if sign := apesign64(a); sign != 0 {
		p.coeffsA[0][0] += p.buf[bp+yAdaptCoeffsA] * sign
		p.coeffsA[0][1] += p.buf[bp+yAdaptCoeffsA-1] * sign
		p.coeffsA[0][2] += p.buf[bp+yAdaptCoeffsA-2] * sign
		p.coeffsA[0][3] += p.buf[bp+yAdaptCoeffsA-3] * sign
	}

	p.advance()

	p.filterA[0] = currentA + p.filterA[0]*31>>5
	return int32(p.filterA[0])
}

// decodeStereo reconstructs one block from the two filtered residuals and
// inverts the channel decorrelation, returning (left, right).
func (p *predictor) decodeStereo(inputY, inputX int32) (int32, int32) {
	decodedY := p.updateFilter(int64(inputY), 0, yDelayA, yDelayB, yAdaptCoeffsA, yAdaptCoeffsB)
	decodedX := p.updateFilter(int64(inputX), 1, xDelayA, xDelayB, xAdaptCoeffsA, xAdaptCoeffsB)

	p.advance()

	left := int32(decodedX - decodedY/2)
	right := left + int32(decodedY)
	return left, right
}

// advance moves the buffer position, rewinding the sliding window once it
// reaches the history size.
func (p *predictor) advance() {
	p.bufPos++
	if p.bufPos >= predictorHistorySize {
		copy(p.buf[:predictorSize], p.buf[p.bufPos:p.bufPos+predictorSize])
		for i := predictorSize; i < len(p.buf); i++ {
			p.buf[i] = 0
		}
		p.bufPos = 0
	}
}

// updateFilter runs one channel of the stereo predictor: the own-channel
// filter A over the last reconstructions, plus the cross-channel filter B
// over the other channel's smoothed output.
func (p *predictor) updateFilter(decoded int64, ch, delayA, delayB, adaptA, adaptB int) int64 {
	bp := p.bufPos

	p.buf[bp+delayA] = p.lastA[ch]
	p.buf[bp+adaptA] = apesign64(p.buf[bp+delayA])
	p.buf[bp+delayA-1] = p.buf[bp+delayA] - p.buf[bp+delayA-1]
	p.buf[bp+adaptA-1] = apesign64(p.buf[bp+delayA-1])

	predictionA := p.buf[bp+delayA]*p.coeffsA[ch][0] +
		p.buf[bp+delayA-1]*p.coeffsA[ch][1] +
		p.buf[bp+delayA-2]*p.coeffsA[ch][2] +
		p.buf[bp+delayA-3]*p.coeffsA[ch][3]

	// Filter B input: the other channel's output minus its own IIR tail.
	p.buf[bp+delayB] = p.filterA[ch^1] - p.filterB[ch]*31>>5
	p.buf[bp+adaptB] = apesign64(p.buf[bp+delayB])
	p.buf[bp+delayB-1] = p.buf[bp+delayB] - p.buf[bp+delayB-1]
	p.buf[bp+adaptB-1] = apesign64(p.buf[bp+delayB-1])
	p.filterB[ch] = p.filterA[ch^1]

	predictionB := p.buf[bp+delayB]*p.coeffsB[ch][0] +
		p.buf[bp+delayB-1]*p.coeffsB[ch][1] +
		p.buf[bp+delayB-2]*p.coeffsB[ch][2] +
		p.buf[bp+delayB-3]*p.coeffsB[ch][3] +
		p.buf[bp+delayB-4]*p.coeffsB[ch][4]

	p.lastA[ch] = decoded + (predictionA+predictionB>>1)>>10
	p.filterA[ch] = p.lastA[ch] + p.filterA[ch]*31>>5

	if sign := apesign64(decoded); sign != 0 {
		p.coeffsA[ch][0] += p.buf[bp+adaptA] * sign
		p.coeffsA[ch][1] += p.buf[bp+adaptA-1] * sign
		p.coeffsA[ch][2] += p.buf[bp+adaptA-2] * sign
		p.coeffsA[ch][3] += p.buf[bp+adaptA-3] * sign

		p.coeffsB[ch][0] += p.buf[bp+adaptB] * sign
		p.coeffsB[ch][1] += p.buf[bp+adaptB-1] * sign
		p.coeffsB[ch][2] += p.buf[bp+adaptB-2] * sign
		p.coeffsB[ch][3] += p.buf[bp+adaptB-3] * sign
		p.coeffsB[ch][4] += p.buf[bp+adaptB-4] * sign
	}

	return p.filterA[ch]
}
