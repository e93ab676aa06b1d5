package effects

// Reverb implements a Schroeder-style reverb with four damped comb
// filters and two allpass filters. Buffers are sized for the largest
// room; Set only shortens the active lengths.
type Reverb struct {
	sampleRate int
	combs      [4]combFilter
	allpass    [2]allpassFilter
	wet        float32
}

type combFilter struct {
	buf    []float32
	length int
	pos    int
	fb     float32
	damp   float32
	store  float32
}

type allpassFilter struct {
	buf    []float32
	length int
	pos    int
	fb     float32
}

// Comb and allpass lengths relative to the base length.
var (
	combRatios    = [4]int{1000, 1117, 1271, 1437}
	allpassRatios = [2]int{347, 213}
)

func reverbBase(sampleRate int, roomSize float32) int {
	base := int(float32(sampleRate) * roomSize * 0.05)
	if base < 10 {
		base = 10
	}
	return base
}

// NewReverb creates a reverb effect.
// roomSize: 0..1 controls delay lengths
// feedback: 0..1 controls decay time
// damping: 0..1 high-frequency loss inside the combs
// wet: wet/dry mix 0..1
func NewReverb(sampleRate int, roomSize, feedback, damping, wet float32) *Reverb {
	maxBase := reverbBase(sampleRate, 1)
	r := &Reverb{sampleRate: sampleRate}
	for i := range r.combs {
		r.combs[i].buf = make([]float32, maxBase*combRatios[i]/1000)
	}
	for i := range r.allpass {
		r.allpass[i].buf = make([]float32, max(maxBase*allpassRatios[i]/1000, 1))
		r.allpass[i].fb = 0.5
	}
	r.Set(roomSize, feedback, damping, wet)
	return r
}

// Set updates the room without reallocating.
func (r *Reverb) Set(roomSize, feedback, damping, wet float32) {
	base := reverbBase(r.sampleRate, clamp(roomSize, 0, 1))
	fb := clamp(feedback, 0, 0.95)
	damp := clamp(damping, 0, 1) * 0.8
	for i := range r.combs {
		c := &r.combs[i]
		c.fb = fb
		c.damp = damp
		c.setLength(base * combRatios[i] / 1000)
	}
	for i := range r.allpass {
		r.allpass[i].setLength(max(base*allpassRatios[i]/1000, 1))
	}
	r.wet = clamp(wet, 0, 1)
}

func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	mono := (l + r2) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].process(mono)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	return l*(1-r.wet) + out*r.wet, r2*(1-r.wet) + out*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].pos = 0
		r.combs[i].store = 0
	}
	for i := range r.allpass {
		clear(r.allpass[i].buf)
		r.allpass[i].pos = 0
	}
}

func (c *combFilter) setLength(n int) {
	n = min(max(n, 1), len(c.buf))
	c.length = n
	if c.pos >= n {
		c.pos = 0
	}
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.store = out*(1-c.damp) + c.store*c.damp
	c.buf[c.pos] = in + c.store*c.fb
	c.pos++
	if c.pos >= c.length {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) setLength(n int) {
	n = min(max(n, 1), len(a.buf))
	a.length = n
	if a.pos >= n {
		a.pos = 0
	}
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= a.length {
		a.pos = 0
	}
	return out
}
