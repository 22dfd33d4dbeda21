package ape

import "math/bits"

// Carry-less arithmetic range decoder for APE entropy coding, v3.99+.
// The coder keeps a 32-bit range register with bottom-value normalization:
// whenever range falls to 2^23 or below, a byte is pulled from the frame
// window and shifted into low.

const (
	rcCodeBits    = 32
	rcTopValue    = uint32(1) << (rcCodeBits - 1)
	rcBottomValue = rcTopValue >> 8
	// rcExtraBits is the count of bits taken from the very first byte;
	// the remaining bit is the alignment shift the encoder emits.
	rcExtraBits = (rcCodeBits-2)%8 + 1

	// modelElements is the number of symbols in the overflow frequency
	// model: overflow counts 0..20 plus an escape bucket.
	modelElements = 22
)

// Cumulative frequency table for the overflow model, v3.98+ streams.
var counts3980 = [modelElements]uint16{
	0, 19578, 36160, 48417, 56323, 60899, 63265, 64435, 64971, 65232, 65351,
	65416, 65447, 65466, 65476, 65482, 65485, 65488, 65490, 65491, 65492,
	65493,
}

// Per-symbol widths of counts3980.
var countsDiff3980 = [modelElements - 1]uint16{
	19578, 16582, 12257, 7906, 4576, 2366, 1170, 536, 261, 119, 65, 31, 19,
	10, 6, 3, 3, 2, 1, 1, 1,
}

// overflowEscape marks a symbol decoded past the end of the model.
const overflowEscape = ^uint32(0)

// riceState is the adaptive Golomb-Rice style parameter driving residual
// magnitudes. One instance per entropy channel, reset per frame.
type riceState struct {
	k    uint32
	ksum uint32
}

func newRiceState() riceState {
	// k=10 and ksum=(1<<k)*16 give an initial pivot of ksum>>5 = 512.
	return riceState{k: 10, ksum: 1 << 14}
}

// update adapts k and ksum after decoding the unsigned value x. ksum is an
// exponential moving average of half the decoded magnitudes; k tracks
// log2(ksum) so that ksum stays within [2^(k+4), 2^(k+5)).
func (rs *riceState) update(x uint32) {
	add := (x + 1) / 2
	if add > ^rs.ksum {
		add = ^rs.ksum
	}
	rs.ksum += add
	rs.ksum -= (rs.ksum + 16) >> 5

	if rs.k > 0 && rs.ksum < 1<<(rs.k+4) {
		rs.k--
	} else if rs.k < 24 && rs.ksum >= 1<<(rs.k+5) {
		rs.k++
	}
}

// pivot is the expected magnitude of the next value, never zero.
func (rs *riceState) pivot() uint32 {
	if p := rs.ksum >> 5; p > 1 {
		return p
	}
	return 1
}

// rangeDecoder decodes symbols from a frame's compressed byte window.
type rangeDecoder struct {
	data []byte
	pos  int
	low  uint32
	rng  uint32
	help uint32
	// overrun counts bytes requested past the end of the window.
	// Normalization legitimately buffers a few bytes ahead of the last
	// symbol, so small overruns on the final frame are not an error.
	overrun int
}

// newRangeDecoder initializes the coder on a byte window. The top
// rcExtraBits bits of the first byte seed low; the low bit is discarded.
func newRangeDecoder(data []byte) *rangeDecoder {
	rc := &rangeDecoder{data: data, rng: 1 << rcExtraBits}
	rc.low = uint32(rc.readByte()) >> (8 - rcExtraBits)
	rc.normalize()
	return rc
}

// readByte returns the next window byte, or 0 past the end.
func (rc *rangeDecoder) readByte() byte {
	if rc.pos < len(rc.data) {
		b := rc.data[rc.pos]
		rc.pos++
		return b
	}
	rc.overrun++
	return 0
}

func (rc *rangeDecoder) normalize() {
	for rc.rng <= rcBottomValue {
		rc.low = rc.low<<8 | uint32(rc.readByte())
		rc.rng <<= 8
	}
}

// decodeCulshift reads the cumulative frequency of the pending symbol
// against a total of 2^shift.
func (rc *rangeDecoder) decodeCulshift(shift uint32) uint32 {
	rc.help = rc.rng >> shift
	if rc.help == 0 {
		// Only reachable through the escape path on corrupt streams,
		// where shift can exceed the normalized range width.
		rc.help = 1
	}
	v := rc.low / rc.help
	if max := uint32(1)<<shift - 1; v > max {
		v = max
	}
	return v
}

// decodeUpdate consumes a symbol with cumulative frequency ltF and
// frequency syF, then renormalizes.
func (rc *rangeDecoder) decodeUpdate(ltF, syF uint32) {
	rc.low -= rc.help * ltF
	rc.rng = rc.help * syF
	rc.normalize()
}

// decodeDirect decodes a uniform value in [0, total) and consumes it.
func (rc *rangeDecoder) decodeDirect(total uint32) uint32 {
	rc.help = rc.rng / total
	v := rc.low / rc.help
	if v > total-1 {
		v = total - 1
	}
	rc.low -= rc.help * v
	rc.rng = rc.help
	rc.normalize()
	return v
}

// decodeDirectShift decodes a uniform value in [0, 2^shift) and consumes it.
func (rc *rangeDecoder) decodeDirectShift(shift uint32) uint32 {
	v := rc.decodeCulshift(shift)
	rc.low -= rc.help * v
	rc.rng = rc.help
	rc.normalize()
	return v
}

// getSymbol decodes one symbol from the overflow frequency model. It
// returns the symbol index 0..20, or overflowEscape for the escape bucket.
func (rc *rangeDecoder) getSymbol() uint32 {
	cf := rc.decodeCulshift(16)

	if last := uint32(counts3980[modelElements-1]); cf >= last {
		rc.decodeUpdate(last, 65536-last)
		return overflowEscape
	}

	// Largest index whose cumulative frequency is <= cf.
	lo, hi := 0, modelElements-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if uint32(counts3980[mid]) <= cf {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	rc.decodeUpdate(uint32(counts3980[lo]), uint32(countsDiff3980[lo]))
	return uint32(lo)
}

// getOverflow decodes the overflow count, following escape buckets for
// counts beyond the model.
func (rc *rangeDecoder) getOverflow() uint32 {
	sym := rc.getSymbol()
	if sym != overflowEscape {
		return sym
	}

	high := rc.getSymbol()
	if high != overflowEscape {
		return high + modelElements - 1
	}

	// Double escape: an explicit bit count followed by that many bits.
	nbits := rc.decodeDirectShift(5)
	value := rc.decodeDirectShift(nbits)
	return value + modelElements - 1
}

// decodeValue decodes one signed residual: a base value in [0, pivot), an
// overflow count against the frequency model, and a zigzag fold to signed.
func (rc *rangeDecoder) decodeValue(rice *riceState) int32 {
	pivot := rice.pivot()

	var base, overflow uint32
	if pivot < 65536 {
		base = rc.decodeDirect(pivot)
		overflow = rc.getOverflow()
	} else {
		// Large pivot: overflow first, then the base split into a
		// 16-bit high part and the remaining low bits.
		overflow = rc.getOverflow()

		pivotBits := uint32(bits.Len32(pivot))
		shift := pivotBits - 16

		baseHigh := rc.decodeDirectShift(16)
		baseLow := rc.decodeDirectShift(shift)
		base = baseHigh<<shift | baseLow
	}

	x := base + overflow*pivot
	rice.update(x)

	return unfoldValue(x)
}

// unfoldValue is the zigzag fold from unsigned code to signed residual:
// odd values are positive, even values non-positive.
func unfoldValue(x uint32) int32 {
	if x&1 != 0 {
		return int32(x>>1) + 1
	}
	return -int32(x >> 1)
}

// exhausted reports whether the coder consumed more bytes than the window
// holds, beyond the normalization lookahead.
func (rc *rangeDecoder) exhausted() bool {
	return rc.overrun > 4
}
