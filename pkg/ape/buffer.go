package ape

// sampleBuffer accumulates one frame's decoded samples and hands them out
// one at a time through the iterator.
type sampleBuffer struct {
	// samples are interleaved for stereo: [L0, R0, L1, R1, ...]
	samples []int32
	pos     int
}

func (b *sampleBuffer) push(sample int32) {
	b.samples = append(b.samples, sample)
}

func (b *sampleBuffer) pushStereo(left, right int32) {
	b.samples = append(b.samples, left, right)
}

// next returns the next sample, or false when the buffer is drained.
func (b *sampleBuffer) next() (int32, bool) {
	if b.pos < len(b.samples) {
		s := b.samples[b.pos]
		b.pos++
		return s, true
	}
	return 0, false
}

// clear resets the buffer for the next frame, keeping capacity.
func (b *sampleBuffer) clear() {
	b.samples = b.samples[:0]
	b.pos = 0
}
