package effects

import "math"

// DefaultLimiterThreshold keeps the output just under full scale.
const DefaultLimiterThreshold = 0.98

// Limiter is a stereo-linked peak limiter with instant attack and a
// smoothed release. The output never exceeds the threshold.
type Limiter struct {
	threshold float32
	release   float32 // coefficient
	gain      float32
}

// NewLimiter creates a limiter.
// threshold: peak ceiling, linear
// releaseMs: time for the gain to recover
func NewLimiter(sampleRate int, threshold, releaseMs float32) *Limiter {
	releaseMs = clamp(releaseMs, 1, 5000)
	return &Limiter{
		threshold: clamp(threshold, 0.01, 1),
		release:   float32(1.0 - math.Exp(-1.0/(float64(releaseMs)*float64(sampleRate)/1000.0))),
		gain:      1,
	}
}

func (lim *Limiter) Process(l, r float32) (float32, float32) {
	peak := float32(math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	target := float32(1)
	if peak > lim.threshold {
		target = lim.threshold / peak
	}
	if target < lim.gain {
		lim.gain = target
	} else {
		lim.gain += lim.release * (target - lim.gain)
	}
	l, r = l*lim.gain, r*lim.gain
	// Non-finite input resets the limiter.
	if l != l || r != r || peak > math.MaxFloat32 {
		lim.gain = 1
		return 0, 0
	}
	return l, r
}

// Gain returns the current gain reduction factor (1 = none).
func (lim *Limiter) Gain() float32 { return lim.gain }

func (lim *Limiter) Reset() {
	lim.gain = 1
}
