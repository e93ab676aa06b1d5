package params

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/envelope"
	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/lfo"
	"github.com/cbegin/polysynth-go/internal/osc"
)

const (
	NumOscillators = 3
	NumLFOs        = 2
	MaxUnison      = 7
)

// Oscillator configures one of a voice's oscillators.
type Oscillator struct {
	Waveform osc.Waveform
	Level    float64 // 0..1
	Pitch    float64 // semitones, -24..24
	Detune   float64 // cents, -50..50
	Shape    float64 // -1..1, pulse width 0.5+0.4*shape
	TablePos float64 // 0..1 wavetable morph
	Phase    float64 // 0..1 start phase when PhaseReset is set
	Pan      float64 // -1 (left)..1 (right)

	// Unison stacks 1..MaxUnison copies spread evenly across
	// UnisonDetune cents (0..50).
	Unison       int
	UnisonDetune float64

	// FMSource names the oscillator (1..NumOscillators) that modulates
	// this one's frequency; 0 disables FM. FMAmount is the depth, 0..10.
	FMSource int
	FMAmount float64
}

type Filter struct {
	Type        filter.Type
	Cutoff      float64 // Hz, 20..20000
	Resonance   float64 // Q, 0.5..10
	KeyTracking float64 // 0..1
	EnvAmount   float64 // Hz, -10000..10000
	Slope       int     // 12 or 24 dB/octave
}

// LFO configures a per-voice LFO and where it is routed.
type LFO struct {
	Waveform lfo.Waveform
	Rate     float64 // Hz, 0.01..20
	Depth    float64 // 0..1
	Pitch    float64 // cents at full depth, 0..100
	Cutoff   float64 // Hz at full depth, 0..5000
	Gain     float64 // 0..1
	PWM      float64 // 0..1
	Pan      float64 // 0..1, pan offset at full depth
}

// Velocity holds the velocity sensitivities.
type Velocity struct {
	Amp    float64 // 0..1
	Filter float64 // 0..1
}

// Snapshot is the complete sound definition read by the render side. It
// is a plain value with no pointers, slices or maps: assigning it copies
// everything.
type Snapshot struct {
	Osc       [NumOscillators]Oscillator
	Filter    Filter
	AmpEnv    envelope.Settings
	FilterEnv envelope.Settings
	LFO       [NumLFOs]LFO
	Velocity  Velocity
	Effects   effects.Settings

	MasterGain float64 // 0..1
	Tune       float64 // semitones, -24..24
	Glide      float64 // seconds, 0..5
	Spread     float64 // 0..1 stereo spread across voices
	PhaseReset bool
}

// Default returns a saw and square patch through a 2 kHz lowpass.
func Default() Snapshot {
	s := Snapshot{
		Filter: Filter{
			Type:      filter.LowPass,
			Cutoff:    2000,
			Resonance: 0.707,
			Slope:     12,
		},
		AmpEnv:     envelope.DefaultSettings(),
		FilterEnv:  envelope.DefaultSettings(),
		Velocity:   Velocity{Amp: 0.7, Filter: 0.5},
		Effects:    effects.DefaultSettings(),
		MasterGain: 0.5,
		Spread:     0.3,
	}
	s.Osc[0] = Oscillator{Waveform: osc.WaveSaw, Level: 0.6}
	s.Osc[1] = Oscillator{Waveform: osc.WaveSquare, Level: 0.3, Detune: 7}
	s.Osc[2] = Oscillator{Waveform: osc.WaveSine}
	for i := range s.Osc {
		s.Osc[i].Unison = 1
		s.Osc[i].UnisonDetune = 10
	}
	for i := range s.LFO {
		s.LFO[i] = LFO{Waveform: lfo.WaveSine, Rate: 2}
	}
	return s
}

// Clamp forces every field into its legal range. NaN values, and enum
// values out of range, are replaced by the Default value.
func (s *Snapshot) Clamp() {
	d := Default()
	for i := range s.Osc {
		o, od := &s.Osc[i], d.Osc[i]
		if !o.Waveform.Valid() {
			o.Waveform = od.Waveform
		}
		o.Level = clamp(o.Level, 0, 1, od.Level)
		o.Pitch = clamp(o.Pitch, -24, 24, 0)
		o.Detune = clamp(o.Detune, -50, 50, od.Detune)
		o.Shape = clamp(o.Shape, -1, 1, 0)
		o.TablePos = clamp(o.TablePos, 0, 1, 0)
		o.Phase = clamp(o.Phase, 0, 1, 0)
		o.Pan = clamp(o.Pan, -1, 1, 0)
		o.Unison = min(max(o.Unison, 1), MaxUnison)
		o.UnisonDetune = clamp(o.UnisonDetune, 0, 50, od.UnisonDetune)
		if o.FMSource < 0 || o.FMSource > NumOscillators {
			o.FMSource = 0
		}
		o.FMAmount = clamp(o.FMAmount, 0, 10, 0)
	}

	f := &s.Filter
	if !f.Type.Valid() {
		f.Type = d.Filter.Type
	}
	f.Cutoff = clamp(f.Cutoff, filter.MinCutoff, 20000, d.Filter.Cutoff)
	f.Resonance = clamp(f.Resonance, filter.MinQ, filter.MaxQ, d.Filter.Resonance)
	f.KeyTracking = clamp(f.KeyTracking, 0, 1, 0)
	f.EnvAmount = clamp(f.EnvAmount, -10000, 10000, 0)
	if f.Slope != 24 {
		f.Slope = 12
	}

	s.AmpEnv = s.AmpEnv.Clamped()
	s.FilterEnv = s.FilterEnv.Clamped()

	for i := range s.LFO {
		l := &s.LFO[i]
		if !l.Waveform.Valid() {
			l.Waveform = lfo.WaveSine
		}
		l.Rate = clamp(l.Rate, lfo.MinRate, lfo.MaxRate, 2)
		l.Depth = clamp(l.Depth, 0, 1, 0)
		l.Pitch = clamp(l.Pitch, 0, 100, 0)
		l.Cutoff = clamp(l.Cutoff, 0, 5000, 0)
		l.Gain = clamp(l.Gain, 0, 1, 0)
		l.PWM = clamp(l.PWM, 0, 1, 0)
		l.Pan = clamp(l.Pan, 0, 1, 0)
	}

	s.Velocity.Amp = clamp(s.Velocity.Amp, 0, 1, d.Velocity.Amp)
	s.Velocity.Filter = clamp(s.Velocity.Filter, 0, 1, d.Velocity.Filter)
	s.Effects = s.Effects.Clamped()

	s.MasterGain = clamp(s.MasterGain, 0, 1, d.MasterGain)
	s.Tune = clamp(s.Tune, -24, 24, 0)
	s.Glide = clamp(s.Glide, 0, 5, 0)
	s.Spread = clamp(s.Spread, 0, 1, d.Spread)
}

func clamp(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return math.Max(lo, math.Min(hi, v))
}
