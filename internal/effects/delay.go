package effects

// MaxDelayMs bounds the delay time; the buffers are sized for it once.
const MaxDelayMs = 2000

// Delay implements a stereo delay with feedback and cross-channel
// (ping-pong) mixing.
type Delay struct {
	sampleRate float64
	bufL, bufR []float32
	length     int // active delay in samples, <= len(bufL)
	pos        int
	feedback   float32
	cross      float32
	wet        float32
}

// NewDelay creates a delay effect.
// delayMs: delay time in milliseconds
// feedback: feedback amount 0..1
// cross: cross-channel feedback 0..1
// wet: wet/dry mix 0..1
func NewDelay(sampleRate int, delayMs float64, feedback, cross, wet float32) *Delay {
	n := int(MaxDelayMs*float64(sampleRate)/1000.0) + 1
	d := &Delay{
		sampleRate: float64(sampleRate),
		bufL:       make([]float32, n),
		bufR:       make([]float32, n),
	}
	d.Set(delayMs, feedback, cross, wet)
	return d
}

// Set changes the delay without reallocating.
func (d *Delay) Set(delayMs float64, feedback, cross, wet float32) {
	samples := int(delayMs * d.sampleRate / 1000.0)
	if samples < 1 || delayMs != delayMs {
		samples = 1
	}
	if samples > len(d.bufL) {
		samples = len(d.bufL)
	}
	if samples != d.length {
		d.length = samples
		if d.pos >= samples {
			d.pos = 0
		}
	}
	d.feedback = clamp(feedback, 0, 0.95)
	d.cross = clamp(cross, 0, 1)
	d.wet = clamp(wet, 0, 1)
}

func (d *Delay) Process(l, r float32) (float32, float32) {
	delL := d.bufL[d.pos]
	delR := d.bufR[d.pos]
	fbL := delL*d.feedback*(1-d.cross) + delR*d.feedback*d.cross
	fbR := delR*d.feedback*(1-d.cross) + delL*d.feedback*d.cross
	d.bufL[d.pos] = l + fbL
	d.bufR[d.pos] = r + fbR
	d.pos++
	if d.pos >= d.length {
		d.pos = 0
	}
	return l*(1-d.wet) + delL*d.wet, r*(1-d.wet) + delR*d.wet
}

func (d *Delay) Reset() {
	for i := range d.bufL {
		d.bufL[i] = 0
		d.bufR[i] = 0
	}
	d.pos = 0
}
