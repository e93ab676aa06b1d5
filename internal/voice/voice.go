// Package voice renders a single synth note: three band-limited
// oscillators, each with unison copies, panned into a stereo resonant
// filter and shaped by two envelopes and two LFOs.
package voice

import (
	"fmt"
	"math"

	"github.com/cbegin/polysynth-go/internal/envelope"
	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/lfo"
	"github.com/cbegin/polysynth-go/internal/osc"
	"github.com/cbegin/polysynth-go/internal/params"
	"github.com/cbegin/polysynth-go/internal/wavetable"
)

// State is the lifecycle state of a voice.
type State uint8

const (
	Idle State = iota
	Active
	Releasing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Releasing:
		return "releasing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Voice is one note's worth of signal path. The zero value is not usable;
// call Init first. A Voice never allocates after Init.
type Voice struct {
	sampleRate float64

	osc       [params.NumOscillators][params.MaxUnison]osc.Oscillator
	flt       [2]filter.Biquad // left, right
	ampEnv    envelope.ADSR
	filterEnv envelope.ADSR
	lfo       [params.NumLFOs]lfo.LFO

	state    State
	note     uint8
	velocity float64
	seq      uint64

	// Cached from the last Apply.
	pitchRatio [params.NumOscillators]float64
	unison     [params.NumOscillators]int
	unisonMul  [params.NumOscillators][params.MaxUnison]float64
	panGain    [params.NumOscillators][2]float64
	panMod     bool
	oscCount   int
	keyMul     float64

	// Last output of each oscillator slot, read by FM.
	last [params.NumOscillators]float64

	freq      float64 // current base frequency, glides toward target
	target    float64
	glideMul  float64
	glideLeft int

	sumSq float64
	count int
	rms   float64
}

// goldenPhase staggers the start phases of unison copies.
const goldenPhase = 0.6180339887498949

// Init prepares v at sampleRate. id seeds the noise generators so that
// voices do not share a noise sequence.
func (v *Voice) Init(sampleRate float64, k osc.Kernel, tables *wavetable.Library, id int) {
	*v = Voice{sampleRate: sampleRate, keyMul: 1}
	for i := range v.osc {
		for j := range v.osc[i] {
			o := &v.osc[i][j]
			o.Init(sampleRate, k, tables)
			o.SetSeed(uint32((id*len(v.osc)+i)*params.MaxUnison+j+1) * 0x9e3779b1)
			o.SetPhase(float64(j) * goldenPhase)
		}
		v.pitchRatio[i] = 1
		v.unison[i] = 1
		v.unisonMul[i][0] = 1
		v.panGain[i] = panGains(0)
	}
	for i := range v.flt {
		v.flt[i].Init(sampleRate)
	}
	v.ampEnv.Init(sampleRate)
	v.filterEnv.Init(sampleRate)
}

// New returns an initialized voice.
func New(sampleRate float64, k osc.Kernel, tables *wavetable.Library, id int) *Voice {
	v := &Voice{}
	v.Init(sampleRate, k, tables, id)
	return v
}

// Apply pushes the slow-changing parts of s into the voice. s must
// already be clamped.
func (v *Voice) Apply(s *params.Snapshot) {
	v.oscCount = 0
	for i := range v.osc {
		o := &s.Osc[i]
		for j := range v.osc[i] {
			v.osc[i][j].SetWaveform(o.Waveform)
			v.osc[i][j].SetShape(o.Shape)
			v.osc[i][j].SetTablePos(o.TablePos)
		}
		v.pitchRatio[i] = math.Exp2((o.Pitch + o.Detune/100) / 12)
		v.unison[i] = min(max(o.Unison, 1), params.MaxUnison)
		unisonSpread(v.unisonMul[i][:v.unison[i]], o.UnisonDetune)
		v.panGain[i] = panGains(o.Pan)
		if o.Level > 0 {
			v.oscCount++
		}
	}
	v.panMod = false
	for i := range s.LFO {
		if math.Abs(s.LFO[i].Pan*s.LFO[i].Depth) > 0.001 {
			v.panMod = true
		}
	}
	for i := range v.flt {
		v.flt[i].SetType(s.Filter.Type)
		v.flt[i].SetSlope(s.Filter.Slope)
	}
	v.ampEnv.Set(s.AmpEnv)
	v.filterEnv.Set(s.FilterEnv)
	for i := range v.lfo {
		l := &s.LFO[i]
		v.lfo[i].Set(l.Depth, l.Rate, l.Waveform)
	}
	v.keyMul = keyTracking(v.note, s.Filter.KeyTracking)
	v.target = noteFreq(v.note, s.Tune)
	if v.glideLeft == 0 {
		v.freq = v.target
	}
}

// Trigger starts note from silence: envelopes, filter, decimators and
// LFOs restart. Oscillator phases restart only when s.PhaseReset is set;
// unison copies then start a golden-ratio step apart.
func (v *Voice) Trigger(note uint8, velocity float64, seq uint64, s *params.Snapshot) {
	v.note = note & 0x7f
	v.velocity = clampUnit(velocity)
	v.seq = seq
	v.glideLeft = 0
	v.Apply(s)
	v.freq = v.target

	v.ampEnv.ResetLevel()
	v.filterEnv.ResetLevel()
	v.ampEnv.Trigger()
	v.filterEnv.Trigger()

	cutoff := v.cutoff(s, 0, 0)
	for i := range v.flt {
		v.flt[i].Reset()
		v.flt[i].SetTarget(cutoff, s.Filter.Resonance)
		v.flt[i].Snap()
	}
	for i := range v.osc {
		for j := range v.osc[i] {
			v.osc[i][j].Reset()
			if s.PhaseReset {
				v.osc[i][j].SetPhase(s.Osc[i].Phase + float64(j)*goldenPhase)
			}
		}
		v.last[i] = 0
	}
	for i := range v.lfo {
		v.lfo[i].Reset()
	}

	v.sumSq, v.count, v.rms = 0, 0, 0
	v.state = Active
}

// Retune moves a sounding voice to note without restarting anything.
// With a non-zero s.Glide the pitch slides exponentially over that many
// seconds.
func (v *Voice) Retune(note uint8, velocity float64, s *params.Snapshot) {
	from := v.freq
	v.note = note & 0x7f
	v.velocity = clampUnit(velocity)
	v.keyMul = keyTracking(v.note, s.Filter.KeyTracking)
	v.target = noteFreq(v.note, s.Tune)
	v.glideLeft = 0
	n := int(s.Glide * v.sampleRate)
	if n > 0 && from > 0 {
		v.glideMul = math.Pow(v.target/from, 1/float64(n))
		v.glideLeft = n
		v.freq = from
	} else {
		v.freq = v.target
	}
	if v.state == Releasing {
		v.ampEnv.Trigger()
		v.filterEnv.Trigger()
		v.state = Active
	}
}

// Release sends both envelopes into their release stage.
func (v *Voice) Release() {
	if v.state != Active {
		return
	}
	v.ampEnv.Release()
	v.filterEnv.Release()
	v.state = Releasing
}

// Kill silences the voice at once.
func (v *Voice) Kill() {
	v.ampEnv.Reset()
	v.filterEnv.Reset()
	v.flt[0].Reset()
	v.flt[1].Reset()
	v.glideLeft = 0
	v.sumSq, v.count, v.rms = 0, 0, 0
	v.state = Idle
}

func (v *Voice) State() State { return v.state }

func (v *Voice) Note() uint8 { return v.note }

// Seq returns the trigger sequence number passed to Trigger.
func (v *Voice) Seq() uint64 { return v.seq }

func (v *Voice) Velocity() float64 { return v.velocity }

// Level returns the amplitude envelope level.
func (v *Voice) Level() float64 { return v.ampEnv.Level() }

// RMS returns the smoothed output level.
func (v *Voice) RMS() float64 { return v.rms }

// Render produces one stereo sample.
func (v *Voice) Render(s *params.Snapshot) (left, right float64) {
	if v.state == Idle {
		return 0, 0
	}

	var pitchCents, cutoffHz, gain, pwm, pan float64
	for i := range v.lfo {
		m := v.lfo[i].Sample(v.sampleRate)
		if m == 0 {
			continue
		}
		l := &s.LFO[i]
		pitchCents += m * l.Pitch
		cutoffHz += m * l.Cutoff
		gain += m * l.Gain
		pwm += m * l.PWM
		pan += m * l.Pan
	}

	if v.glideLeft > 0 {
		v.freq *= v.glideMul
		v.glideLeft--
		if v.glideLeft == 0 {
			v.freq = v.target
		}
	}
	base := v.freq
	if pitchCents != 0 {
		base *= math.Exp2(pitchCents / 1200)
	}

	var l, r float64
	for i := range v.osc {
		p := &s.Osc[i]
		f := base * v.pitchRatio[i]
		if src := p.FMSource; src > 0 && src <= len(v.last) && p.FMAmount > 0.001 {
			f *= 1 + p.FMAmount*v.last[src-1]
		}
		n := v.unison[i]
		var x float64
		for j := 0; j < n; j++ {
			o := &v.osc[i][j]
			o.SetFrequency(f * v.unisonMul[i][j])
			if pwm != 0 {
				o.SetShape(p.Shape + pwm)
			}
			x += o.Next()
		}
		if n > 1 {
			x /= float64(n)
		}
		v.last[i] = x
		if p.Level <= 0 {
			continue
		}
		g := v.panGain[i]
		if v.panMod {
			g = panGains(min(max(p.Pan+pan, -1), 1))
		}
		x *= p.Level
		l += x * g[0]
		r += x * g[1]
	}
	if v.oscCount > 1 {
		l /= float64(v.oscCount)
		r /= float64(v.oscCount)
	}

	fenv := v.filterEnv.Next()
	cutoff := v.cutoff(s, fenv, cutoffHz)
	v.flt[0].SetTarget(cutoff, s.Filter.Resonance)
	v.flt[1].SetTarget(cutoff, s.Filter.Resonance)
	l = v.flt[0].Process(l)
	r = v.flt[1].Process(r)

	amp := v.ampEnv.Next() * (1 + s.Velocity.Amp*(v.velocity-0.5))
	if gain != 0 {
		amp *= max(0, 1+gain)
	}
	l *= amp
	r *= amp
	if !finite(l) || !finite(r) {
		v.flt[0].Reset()
		v.flt[1].Reset()
		l, r = 0, 0
	}

	v.sumSq += (l*l + r*r) / 2
	v.count++
	if !v.ampEnv.Active() {
		v.state = Idle
		v.filterEnv.Reset()
		v.flt[0].Reset()
		v.flt[1].Reset()
	}
	return l, r
}

// UpdateRMS folds the samples rendered since the last call into the
// level estimate.
func (v *Voice) UpdateRMS() {
	if v.count == 0 {
		return
	}
	block := math.Sqrt(v.sumSq / float64(v.count))
	v.rms += 0.5 * (block - v.rms)
	v.sumSq, v.count = 0, 0
}

func (v *Voice) cutoff(s *params.Snapshot, fenv, lfoHz float64) float64 {
	base := s.Filter.Cutoff
	return base*v.keyMul +
		base*s.Velocity.Filter*(v.velocity-0.5) +
		fenv*s.Filter.EnvAmount +
		lfoHz
}

// unisonSpread fills mul with frequency ratios spread evenly over
// detune cents, centred on 1.
func unisonSpread(mul []float64, detune float64) {
	n := len(mul)
	if n == 1 {
		mul[0] = 1
		return
	}
	for j := range mul {
		off := float64(j)/float64(n-1) - 0.5
		mul[j] = math.Exp2(off * detune / 1200)
	}
}

// panGains maps pan in [-1, 1] to equal-power left and right gains,
// scaled so that centre passes at unity.
func panGains(pan float64) [2]float64 {
	theta := (pan + 1) * math.Pi / 4
	return [2]float64{math.Sqrt2 * math.Cos(theta), math.Sqrt2 * math.Sin(theta)}
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func keyTracking(note uint8, amount float64) float64 {
	if amount == 0 {
		return 1
	}
	return math.Exp2((float64(note) - 60) / 12 * amount)
}

func noteFreq(note uint8, tune float64) float64 {
	return 440 * math.Exp2((float64(note)-69+tune)/12)
}

func clampUnit(x float64) float64 {
	switch {
	case !(x > 0):
		return 0
	case x > 1:
		return 1
	}
	return x
}
