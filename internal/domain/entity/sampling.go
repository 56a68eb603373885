package entity

import "fmt"

// timeEpsilon absorbs float error when comparing frame timestamps against
// sampling boundaries (a frame at 0.9999999s must still hit the 1s boundary).
const timeEpsilon = 1e-9

// SamplingPolicy selects which decoded frames are retained. FPS == 0 means
// no subsampling: every decoded frame is kept. FPS == R > 0 keeps the first
// decoded frame at or after each boundary i/R seconds.
type SamplingPolicy struct {
	FPS float64
}

func NewSamplingPolicy(fps float64) (SamplingPolicy, error) {
	if fps < 0 {
		return SamplingPolicy{}, fmt.Errorf("%w: sample fps must be >= 0, got %v", ErrConfiguration, fps)
	}
	return SamplingPolicy{FPS: fps}, nil
}

// KeepAll reports whether the policy retains every decoded frame.
func (p SamplingPolicy) KeepAll() bool {
	return p.FPS == 0
}

// Selector returns a fresh selector positioned at the first boundary.
// Selectors are single-use, one per decoded stream.
func (p SamplingPolicy) Selector() *FrameSelector {
	return &FrameSelector{policy: p}
}

// FrameSelector decides, frame by frame and in timestamp order, whether a
// decoded frame is retained. The decision depends only on the policy and the
// timestamp sequence, so the selected subset is identical on every run.
type FrameSelector struct {
	policy       SamplingPolicy
	nextBoundary int
}

// Keep reports whether the frame at the given timestamp is retained. Must be
// called with strictly increasing timestamps.
func (s *FrameSelector) Keep(timestamp float64) bool {
	if s.policy.KeepAll() {
		return true
	}
	boundary := float64(s.nextBoundary) / s.policy.FPS
	if timestamp+timeEpsilon < boundary {
		return false
	}
	// Skip past every boundary this frame covers, so a sparse stream never
	// retains two frames for one boundary.
	for float64(s.nextBoundary)/s.policy.FPS <= timestamp+timeEpsilon {
		s.nextBoundary++
	}
	return true
}
