package effects

import "math"

// maxChorusMs bounds base delay plus modulation depth.
const maxChorusMs = 50

// Chorus implements a modulated delay for chorus/flanger effects. The
// right channel's modulator runs a quarter cycle behind the left.
type Chorus struct {
	sampleRate float64
	bufL, bufR []float32
	pos        int
	size       int
	base       float32 // base delay in samples
	depth      float32 // modulation depth in samples
	rate       float64 // modulation rate in radians per sample
	phase      float64
	feedback   float32
	wet        float32
}

// NewChorus creates a chorus/flanger effect.
// delayMs: base delay time in ms (typically 5-30ms)
// feedback: feedback amount 0..1
// depthMs: modulation depth in ms
// rateHz: modulation rate in Hz (typically 0.1-5Hz)
// wet: wet/dry mix 0..1
func NewChorus(sampleRate int, delayMs, feedback, depthMs, rateHz, wet float32) *Chorus {
	size := int(maxChorusMs*float64(sampleRate)/1000.0) + 4
	c := &Chorus{
		sampleRate: float64(sampleRate),
		bufL:       make([]float32, size),
		bufR:       make([]float32, size),
		size:       size,
	}
	c.Set(delayMs, feedback, depthMs, rateHz, wet)
	return c
}

// Set changes the chorus parameters without reallocating.
func (c *Chorus) Set(delayMs, feedback, depthMs, rateHz, wet float32) {
	delayMs = clamp(delayMs, 1, maxChorusMs/2)
	depthMs = clamp(depthMs, 0, maxChorusMs/2-1)
	perMs := float32(c.sampleRate / 1000.0)
	c.base = delayMs * perMs
	c.depth = depthMs * perMs
	if c.depth >= c.base {
		c.depth = c.base - 1
	}
	c.rate = 2.0 * math.Pi * float64(clamp(rateHz, 0.01, 10)) / c.sampleRate
	c.feedback = clamp(feedback, 0, 0.9)
	c.wet = clamp(wet, 0, 1)
}

func (c *Chorus) read(buf []float32, delay float32) float32 {
	readPos := float32(c.pos) - delay
	for readPos < 0 {
		readPos += float32(c.size)
	}
	idx := int(readPos)
	if idx >= c.size {
		idx -= c.size
	}
	frac := readPos - float32(int(readPos))
	idx2 := idx + 1
	if idx2 >= c.size {
		idx2 = 0
	}
	return buf[idx]*(1-frac) + buf[idx2]*frac
}

func (c *Chorus) Process(l, r float32) (float32, float32) {
	modL := float32(math.Sin(c.phase)) * c.depth
	modR := float32(math.Cos(c.phase)) * c.depth
	c.phase += c.rate
	if c.phase > 2*math.Pi {
		c.phase -= 2 * math.Pi
	}
	c.bufL[c.pos] = l
	c.bufR[c.pos] = r

	delL := c.read(c.bufL, c.base+modL)
	delR := c.read(c.bufR, c.base+modR)

	c.bufL[c.pos] += delL * c.feedback
	c.bufR[c.pos] += delR * c.feedback

	c.pos++
	if c.pos >= c.size {
		c.pos = 0
	}
	return l*(1-c.wet) + delL*c.wet, r*(1-c.wet) + delR*c.wet
}

func (c *Chorus) Reset() {
	for i := range c.bufL {
		c.bufL[i] = 0
		c.bufR[i] = 0
	}
	c.pos = 0
	c.phase = 0
}
