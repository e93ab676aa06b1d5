package filter

import (
	"fmt"
	"math"
	"strings"
)

// Type selects the biquad response.
type Type uint8

const (
	LowPass Type = iota
	HighPass
	BandPass
	numTypes
)

var typeNames = [numTypes]string{"lowpass", "highpass", "bandpass"}

func (t Type) String() string {
	if t < numTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func (t Type) Valid() bool { return t < numTypes }

// ParseType accepts the full names and lp/hp/bp.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "lp", "lowpass", "low":
		return LowPass, nil
	case "hp", "highpass", "high":
		return HighPass, nil
	case "bp", "bandpass", "band":
		return BandPass, nil
	}
	return 0, fmt.Errorf("unknown filter type %q", s)
}

const (
	MinCutoff = 20.0
	MinQ      = 0.5
	MaxQ      = 10.0

	maxNyquistRatio = 0.49
	smoothTime      = 0.002 // seconds
	updateInterval  = 16    // samples between coefficient checks
	updateThreshold = 1e-4  // relative change that forces a recompute

	maxB  = 3.0
	maxA1 = 2.0
	maxA2 = 0.9999
)

type coeffs struct {
	b0, b1, b2, a1, a2 float64
}

type section struct {
	x1, x2, y1, y2 float64
}

func (s *section) process(c *coeffs, x float64) float64 {
	y := c.b0*x + c.b1*s.x1 + c.b2*s.x2 - c.a1*s.y1 - c.a2*s.y2
	s.x2, s.x1 = s.x1, x
	s.y2, s.y1 = s.y1, y
	return y
}

// Biquad is a Direct Form I cookbook filter with smoothed cutoff and Q.
// With a 24 dB slope two sections run in series on the same coefficients.
type Biquad struct {
	sampleRate float64
	typ        Type
	sections   int

	targetCutoff, targetQ float64
	cutoff, q             float64
	coefCutoff, coefQ     float64
	alpha                 float64 // smoothing coefficient
	counter               int

	c  coeffs
	st [2]section
}

// New returns a 12 dB lowpass at 1 kHz, Q 0.707.
func New(sampleRate float64) *Biquad {
	f := &Biquad{}
	f.Init(sampleRate)
	return f
}

// Init resets f to the state returned by New.
func (f *Biquad) Init(sampleRate float64) {
	if !(sampleRate > 0) {
		sampleRate = 48000
	}
	*f = Biquad{
		sampleRate: sampleRate,
		typ:        LowPass,
		sections:   1,
		alpha:      1 - math.Exp(-1/(smoothTime*sampleRate)),
	}
	f.SetTarget(1000, 0.707)
	f.Snap()
}

// SetType switches the response and recomputes coefficients at once.
func (f *Biquad) SetType(t Type) {
	if !t.Valid() {
		t = LowPass
	}
	if t == f.typ {
		return
	}
	f.typ = t
	f.recompute()
}

func (f *Biquad) Type() Type { return f.typ }

// SetSlope selects 12 or 24 dB/octave. Anything above 12 means 24.
func (f *Biquad) SetSlope(db int) {
	n := 1
	if db > 12 {
		n = 2
	}
	if n != f.sections {
		f.sections = n
		f.st[1] = section{}
	}
}

// Slope returns the rolloff in dB/octave.
func (f *Biquad) Slope() int { return 12 * f.sections }

// SetTarget sets the cutoff (Hz) and Q the filter glides toward.
func (f *Biquad) SetTarget(cutoff, q float64) {
	f.targetCutoff = clampRange(cutoff, MinCutoff, f.sampleRate*maxNyquistRatio, 1000)
	f.targetQ = clampRange(q, MinQ, MaxQ, 0.707)
}

// Snap jumps the smoothed values to the target and recomputes.
func (f *Biquad) Snap() {
	f.cutoff, f.q = f.targetCutoff, f.targetQ
	f.recompute()
}

// Cutoff returns the smoothed cutoff in Hz.
func (f *Biquad) Cutoff() float64 { return f.cutoff }

// Q returns the smoothed resonance.
func (f *Biquad) Q() float64 { return f.q }

// Reset zeroes the delay elements of every section.
func (f *Biquad) Reset() {
	f.st = [2]section{}
}

// Process filters one sample.
func (f *Biquad) Process(x float64) float64 {
	f.cutoff += f.alpha * (f.targetCutoff - f.cutoff)
	f.q += f.alpha * (f.targetQ - f.q)
	f.counter++
	if f.counter >= updateInterval {
		f.counter = 0
		if relChange(f.cutoff, f.coefCutoff) > updateThreshold || relChange(f.q, f.coefQ) > updateThreshold {
			f.recompute()
		}
	}

	y := f.st[0].process(&f.c, x)
	if f.sections == 2 {
		y = f.st[1].process(&f.c, y)
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		f.Reset()
		return 0
	}
	return y
}

func relChange(a, b float64) float64 {
	if b == 0 {
		return math.Abs(a)
	}
	return math.Abs(a-b) / math.Abs(b)
}

func (f *Biquad) recompute() {
	f.coefCutoff, f.coefQ = f.cutoff, f.q
	f.c = design(f.typ, f.cutoff, f.q, f.sampleRate)
}

// design computes normalized cookbook coefficients and clamps them into
// the stability triangle.
func design(t Type, cutoff, q, sampleRate float64) coeffs {
	w := 2 * math.Pi * cutoff / sampleRate
	sin, cos := math.Sincos(w)
	alpha := sin / (2 * q)

	var b0, b1, b2 float64
	switch t {
	case HighPass:
		b0 = (1 + cos) / 2
		b1 = -(1 + cos)
		b2 = b0
	case BandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	default:
		b1 = 1 - cos
		b0 = b1 / 2
		b2 = b0
	}
	a0 := 1 + alpha
	c := coeffs{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: -2 * cos / a0,
		a2: (1 - alpha) / a0,
	}

	c.b0 = clampAbs(c.b0, maxB)
	c.b1 = clampAbs(c.b1, maxB)
	c.b2 = clampAbs(c.b2, maxB)
	c.a1 = clampAbs(c.a1, maxA1)
	c.a2 = clampAbs(c.a2, maxA2)
	if lim := (1 + c.a2) * maxA2; math.Abs(c.a1) >= lim {
		c.a1 = math.Copysign(lim, c.a1)
	}
	return c
}

func clampAbs(v, max float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > max {
		return max
	}
	if v < -max {
		return -max
	}
	return v
}

func clampRange(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
