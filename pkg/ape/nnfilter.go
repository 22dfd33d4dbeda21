package ape

// The "neural network" filters — cascaded adaptive FIR stages that strip
// short-term correlation ahead of the predictor. The stage count, orders,
// and fractional shifts are fixed by the compression level:
//
//	Fast (1000):       no filter
//	Normal (2000):     1 stage,  16 taps,        fracbits 11
//	High (3000):       1 stage,  64 taps,        fracbits 11
//	Extra High (4000): 2 stages, 32+256 taps,    fracbits 10,13
//	Insane (5000):     3 stages, 16+256+1280 taps, fracbits 11,13,15

// maxFilterStages is the most stages any compression level uses.
const maxFilterStages = 3

// filterOrders holds taps per stage, indexed by (level/1000)-1.
var filterOrders = [5][maxFilterStages]uint16{
	{0, 0, 0},
	{16, 0, 0},
	{64, 0, 0},
	{32, 256, 0},
	{16, 256, 1280},
}

// filterFracBits holds the rounding shift per stage, same indexing.
var filterFracBits = [5][maxFilterStages]uint8{
	{0, 0, 0},
	{11, 0, 0},
	{11, 0, 0},
	{10, 13, 0},
	{11, 13, 15},
}

// filterHistorySize is the sliding window before the buffer rewinds.
const filterHistorySize = 512

// apesign returns -1 for positive, +1 for negative, 0 for zero. The
// inverted sign is what the format's adaptation law expects, and
// sign(0) = 0 is load-bearing.
func apesign(x int32) int32 {
	var s int32
	if x < 0 {
		s = 1
	}
	if x > 0 {
		s--
	}
	return s
}

// nnFilterStage is one adaptive FIR stage. The history buffer packs the
// adaptation terms and the delay line into one slice so both walk forward
// together:
//
//	[scratch(order)] [adapt terms(order)] [delay(filterHistorySize)]
type nnFilterStage struct {
	order    int
	fracBits uint8
	coeffs   []int16
	history  []int16
	delayPos int
	adaptPos int
	// avg is a running average of |output|, driving adaptation magnitude.
	avg uint32
}

func newNNFilterStage(order int, fracBits uint8) *nnFilterStage {
	return &nnFilterStage{
		order:    order,
		fracBits: fracBits,
		coeffs:   make([]int16, order),
		history:  make([]int16, order*2+filterHistorySize),
		delayPos: order * 2,
		adaptPos: order,
	}
}

// reset clears all stage state. Called at frame boundaries.
func (f *nnFilterStage) reset() {
	for i := range f.coeffs {
		f.coeffs[i] = 0
	}
	for i := range f.history {
		f.history[i] = 0
	}
	f.delayPos = f.order * 2
	f.adaptPos = f.order
	f.avg = 0
}

// decompress runs the inverse filter over one residual: predict from the
// delay line, add the residual back, then adapt the coefficients by the
// sign of the input.
func (f *nnFilterStage) decompress(input int32) int32 {
	if f.order == 0 {
		return input
	}

	order := f.order
	dp := f.delayPos
	ap := f.adaptPos
	sign := apesign(input)

	// Dot product over the delay line, adapting coefficients in the same
	// pass. The adaptation uses the input residual, not the output — the
	// decoder mirrors the encoder's update exactly.
	var sum int64
	for i := 0; i < order; i++ {
		sum += int64(f.coeffs[i]) * int64(f.history[dp-order+i])
		f.coeffs[i] += int16(int32(f.history[ap-order+i]) * sign)
	}

	rounding := int64(1) << (f.fracBits - 1)
	filtered := int32((sum + rounding) >> f.fracBits)

	res := input + filtered

	// The delay line holds int16; saturate on write.
	f.history[dp] = clampS16(res)

	// Adaptation term for this output: ±8, scaled up when |res| runs
	// ahead of the average.
	absres := uint32(res)
	if res < 0 {
		absres = uint32(-res)
	}
	var adapt int32
	if absres != 0 {
		var shift uint32
		if uint64(absres) > uint64(f.avg)*3 {
			shift++
		}
		if uint64(absres) > uint64(f.avg)+uint64(f.avg)/3 {
			shift++
		}
		adapt = apesign(res) * (8 << shift)
	}
	f.history[ap] = int16(adapt)

	avg := int64(f.avg) + (int64(absres)-int64(f.avg))/16
	if avg < 0 {
		avg = 0
	}
	f.avg = uint32(avg)

	// Decay the most recent adaptation terms.
	f.history[ap-1] >>= 1
	f.history[ap-2] >>= 1
	f.history[ap-8] >>= 1

	f.delayPos++
	f.adaptPos++

	// Rewind the window: move the live tail back to the front.
	if f.delayPos == len(f.history) {
		copy(f.history[:order*2], f.history[f.delayPos-order*2:])
		f.delayPos = order * 2
		f.adaptPos = order
	}

	return res
}

// nnFilter cascades the filter stages for one channel.
type nnFilter struct {
	stages []*nnFilterStage
}

// newNNFilter builds the stage cascade for a compression level set index,
// (level/1000)-1. Fast has no stages and passes residuals through.
func newNNFilter(fset int) *nnFilter {
	var stages []*nnFilterStage
	for s := 0; s < maxFilterStages; s++ {
		if order := int(filterOrders[fset][s]); order > 0 {
			stages = append(stages, newNNFilterStage(order, filterFracBits[fset][s]))
		}
	}
	return &nnFilter{stages: stages}
}

func (f *nnFilter) reset() {
	for _, s := range f.stages {
		s.reset()
	}
}

// decompress runs all stages in order over one residual.
func (f *nnFilter) decompress(value int32) int32 {
	for _, s := range f.stages {
		value = s.decompress(value)
	}
	return value
}

// clampS16 saturates v to the signed 16-bit range.
func clampS16(v int32) int16 {
	if v <= -32768 {
		return -32768
	}
	if v >= 32767 {
		return 32767
	}
	return int16(v)
}
