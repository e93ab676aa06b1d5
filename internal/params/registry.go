package params

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/envelope"
	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/lfo"
	"github.com/cbegin/polysynth-go/internal/osc"
)

var (
	ErrUnknownParam = errors.New("unknown parameter")
	ErrBadValue     = errors.New("invalid parameter value")
)

// Info describes one addressable parameter.
type Info struct {
	ID       string
	Min, Max float64
	Default  float64
	// Choices lists the names of an enumerated parameter, indexed by
	// value. Empty for continuous parameters.
	Choices []string
}

type entry struct {
	Info
	get   func(*Snapshot) float64
	set   func(*Snapshot, float64)
	parse func(string) (float64, error)
}

// Registry maps stable string IDs onto Snapshot fields. It belongs to
// the host side; the render path never consults it.
type Registry struct {
	entries []entry
	byID    map[string]int
}

// NewRegistry builds the registry of every Snapshot field.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[string]int)}
	d := Default()

	for i := 0; i < NumOscillators; i++ {
		p := fmt.Sprintf("osc%d.", i+1)
		r.enum(p+"waveform", waveformChoices(), float64(d.Osc[i].Waveform),
			func(s *Snapshot) float64 { return float64(s.Osc[i].Waveform) },
			func(s *Snapshot, v float64) { s.Osc[i].Waveform = osc.Waveform(v) },
			parseEnum(osc.ParseWaveform))
		r.num(p+"level", 0, 1, d.Osc[i].Level, func(s *Snapshot) *float64 { return &s.Osc[i].Level })
		r.num(p+"pitch", -24, 24, 0, func(s *Snapshot) *float64 { return &s.Osc[i].Pitch })
		r.num(p+"detune", -50, 50, d.Osc[i].Detune, func(s *Snapshot) *float64 { return &s.Osc[i].Detune })
		r.num(p+"shape", -1, 1, 0, func(s *Snapshot) *float64 { return &s.Osc[i].Shape })
		r.num(p+"tablepos", 0, 1, 0, func(s *Snapshot) *float64 { return &s.Osc[i].TablePos })
		r.num(p+"phase", 0, 1, 0, func(s *Snapshot) *float64 { return &s.Osc[i].Phase })
		r.num(p+"pan", -1, 1, 0, func(s *Snapshot) *float64 { return &s.Osc[i].Pan })
		r.add(entry{
			Info: Info{ID: p + "unison", Min: 1, Max: MaxUnison, Default: 1},
			get:  func(s *Snapshot) float64 { return float64(s.Osc[i].Unison) },
			set:  func(s *Snapshot, v float64) { s.Osc[i].Unison = int(math.Round(v)) },
		})
		r.num(p+"unisondetune", 0, 50, d.Osc[i].UnisonDetune, func(s *Snapshot) *float64 { return &s.Osc[i].UnisonDetune })
		r.enum(p+"fmsource", fmSourceChoices(), 0,
			func(s *Snapshot) float64 { return float64(s.Osc[i].FMSource) },
			func(s *Snapshot, v float64) { s.Osc[i].FMSource = int(v) },
			parseFMSource)
		r.num(p+"fmamount", 0, 10, 0, func(s *Snapshot) *float64 { return &s.Osc[i].FMAmount })
	}

	r.enum("filter.type", []string{"lowpass", "highpass", "bandpass"}, float64(d.Filter.Type),
		func(s *Snapshot) float64 { return float64(s.Filter.Type) },
		func(s *Snapshot, v float64) { s.Filter.Type = filter.Type(v) },
		parseEnum(filter.ParseType))
	r.num("filter.cutoff", filter.MinCutoff, 20000, d.Filter.Cutoff, func(s *Snapshot) *float64 { return &s.Filter.Cutoff })
	r.num("filter.resonance", filter.MinQ, filter.MaxQ, d.Filter.Resonance, func(s *Snapshot) *float64 { return &s.Filter.Resonance })
	r.num("filter.keytrack", 0, 1, 0, func(s *Snapshot) *float64 { return &s.Filter.KeyTracking })
	r.num("filter.envamount", -10000, 10000, 0, func(s *Snapshot) *float64 { return &s.Filter.EnvAmount })
	r.add(entry{
		Info: Info{ID: "filter.slope", Min: 12, Max: 24, Default: 12},
		get:  func(s *Snapshot) float64 { return float64(s.Filter.Slope) },
		set:  func(s *Snapshot, v float64) { s.Filter.Slope = int(v) },
	})

	r.envelope("ampenv.", func(s *Snapshot) *envelope.Settings { return &s.AmpEnv })
	r.envelope("filterenv.", func(s *Snapshot) *envelope.Settings { return &s.FilterEnv })

	for i := 0; i < NumLFOs; i++ {
		p := fmt.Sprintf("lfo%d.", i+1)
		r.enum(p+"waveform", []string{"sine", "triangle", "square", "saw", "random"}, float64(d.LFO[i].Waveform),
			func(s *Snapshot) float64 { return float64(s.LFO[i].Waveform) },
			func(s *Snapshot, v float64) { s.LFO[i].Waveform = lfo.Waveform(v) },
			parseEnum(lfo.ParseWaveform))
		r.num(p+"rate", lfo.MinRate, lfo.MaxRate, d.LFO[i].Rate, func(s *Snapshot) *float64 { return &s.LFO[i].Rate })
		r.num(p+"depth", 0, 1, 0, func(s *Snapshot) *float64 { return &s.LFO[i].Depth })
		r.num(p+"pitch", 0, 100, 0, func(s *Snapshot) *float64 { return &s.LFO[i].Pitch })
		r.num(p+"cutoff", 0, 5000, 0, func(s *Snapshot) *float64 { return &s.LFO[i].Cutoff })
		r.num(p+"gain", 0, 1, 0, func(s *Snapshot) *float64 { return &s.LFO[i].Gain })
		r.num(p+"pwm", 0, 1, 0, func(s *Snapshot) *float64 { return &s.LFO[i].PWM })
		r.num(p+"pan", 0, 1, 0, func(s *Snapshot) *float64 { return &s.LFO[i].Pan })
	}

	r.num("velocity.amp", 0, 1, d.Velocity.Amp, func(s *Snapshot) *float64 { return &s.Velocity.Amp })
	r.num("velocity.filter", 0, 1, d.Velocity.Filter, func(s *Snapshot) *float64 { return &s.Velocity.Filter })

	r.effects(d.Effects)

	r.num("master.gain", 0, 1, d.MasterGain, func(s *Snapshot) *float64 { return &s.MasterGain })
	r.num("master.tune", -24, 24, 0, func(s *Snapshot) *float64 { return &s.Tune })
	r.num("glide", 0, 5, 0, func(s *Snapshot) *float64 { return &s.Glide })
	r.num("spread", 0, 1, d.Spread, func(s *Snapshot) *float64 { return &s.Spread })
	r.flag("phasereset", func(s *Snapshot) *bool { return &s.PhaseReset })
	return r
}

func (r *Registry) envelope(p string, env func(*Snapshot) *envelope.Settings) {
	d := envelope.DefaultSettings()
	r.num(p+"attack", envelope.MinTime, envelope.MaxTime, d.Attack, func(s *Snapshot) *float64 { return &env(s).Attack })
	r.num(p+"decay", envelope.MinTime, envelope.MaxTime, d.Decay, func(s *Snapshot) *float64 { return &env(s).Decay })
	r.num(p+"sustain", 0, 1, d.Sustain, func(s *Snapshot) *float64 { return &env(s).Sustain })
	r.num(p+"release", envelope.MinTime, envelope.MaxTime, d.Release, func(s *Snapshot) *float64 { return &env(s).Release })
	r.num(p+"attackcurve", -1, 1, 0, func(s *Snapshot) *float64 { return &env(s).AttackCurve })
	r.num(p+"decaycurve", -1, 1, 0, func(s *Snapshot) *float64 { return &env(s).DecayCurve })
	r.num(p+"releasecurve", -1, 1, 0, func(s *Snapshot) *float64 { return &env(s).ReleaseCurve })
}

func (r *Registry) effects(d effects.Settings) {
	r.flag("fx.comp.enabled", func(s *Snapshot) *bool { return &s.Effects.Compressor.Enabled })
	r.num("fx.comp.threshold", -60, 0, d.Compressor.ThresholdDB, func(s *Snapshot) *float64 { return &s.Effects.Compressor.ThresholdDB })
	r.num("fx.comp.ratio", 1, 20, d.Compressor.Ratio, func(s *Snapshot) *float64 { return &s.Effects.Compressor.Ratio })
	r.num("fx.comp.attack", 0.1, 500, d.Compressor.AttackMs, func(s *Snapshot) *float64 { return &s.Effects.Compressor.AttackMs })
	r.num("fx.comp.release", 1, 5000, d.Compressor.ReleaseMs, func(s *Snapshot) *float64 { return &s.Effects.Compressor.ReleaseMs })
	r.num("fx.comp.makeup", 0, 24, 0, func(s *Snapshot) *float64 { return &s.Effects.Compressor.MakeupDB })

	r.flag("fx.dist.enabled", func(s *Snapshot) *bool { return &s.Effects.Distortion.Enabled })
	r.enum("fx.dist.type", []string{"tanh", "soft", "hard", "cubic"}, 0,
		func(s *Snapshot) float64 { return float64(s.Effects.Distortion.Type) },
		func(s *Snapshot, v float64) { s.Effects.Distortion.Type = effects.DistortionType(v) },
		parseEnum(effects.ParseDistortionType))
	r.num("fx.dist.drive", 1, 20, d.Distortion.Drive, func(s *Snapshot) *float64 { return &s.Effects.Distortion.Drive })
	r.num("fx.dist.mix", 0, 1, d.Distortion.Mix, func(s *Snapshot) *float64 { return &s.Effects.Distortion.Mix })

	r.flag("fx.chorus.enabled", func(s *Snapshot) *bool { return &s.Effects.Chorus.Enabled })
	r.num("fx.chorus.rate", 0.01, 10, d.Chorus.Rate, func(s *Snapshot) *float64 { return &s.Effects.Chorus.Rate })
	r.num("fx.chorus.depth", 0, 20, d.Chorus.Depth, func(s *Snapshot) *float64 { return &s.Effects.Chorus.Depth })
	r.num("fx.chorus.feedback", 0, 0.9, d.Chorus.Feedback, func(s *Snapshot) *float64 { return &s.Effects.Chorus.Feedback })
	r.num("fx.chorus.mix", 0, 1, d.Chorus.Mix, func(s *Snapshot) *float64 { return &s.Effects.Chorus.Mix })

	r.flag("fx.delay.enabled", func(s *Snapshot) *bool { return &s.Effects.Delay.Enabled })
	r.num("fx.delay.time", 1, effects.MaxDelayMs, d.Delay.TimeMs, func(s *Snapshot) *float64 { return &s.Effects.Delay.TimeMs })
	r.num("fx.delay.feedback", 0, 0.95, d.Delay.Feedback, func(s *Snapshot) *float64 { return &s.Effects.Delay.Feedback })
	r.num("fx.delay.pingpong", 0, 1, d.Delay.PingPong, func(s *Snapshot) *float64 { return &s.Effects.Delay.PingPong })
	r.num("fx.delay.mix", 0, 1, d.Delay.Mix, func(s *Snapshot) *float64 { return &s.Effects.Delay.Mix })

	r.flag("fx.reverb.enabled", func(s *Snapshot) *bool { return &s.Effects.Reverb.Enabled })
	r.num("fx.reverb.room", 0, 1, d.Reverb.Room, func(s *Snapshot) *float64 { return &s.Effects.Reverb.Room })
	r.num("fx.reverb.damping", 0, 1, d.Reverb.Damping, func(s *Snapshot) *float64 { return &s.Effects.Reverb.Damping })
	r.num("fx.reverb.mix", 0, 1, d.Reverb.Mix, func(s *Snapshot) *float64 { return &s.Effects.Reverb.Mix })

	r.flag("fx.eq.enabled", func(s *Snapshot) *bool { return &s.Effects.EQ.Enabled })
	r.num("fx.eq.low", 0, effects.MaxBandGain, 1, func(s *Snapshot) *float64 { return &s.Effects.EQ.Low })
	r.num("fx.eq.mid", 0, effects.MaxBandGain, 1, func(s *Snapshot) *float64 { return &s.Effects.EQ.Mid })
	r.num("fx.eq.high", 0, effects.MaxBandGain, 1, func(s *Snapshot) *float64 { return &s.Effects.EQ.High })
}

func (r *Registry) add(e entry) {
	if _, dup := r.byID[e.ID]; dup {
		panic("params: duplicate id " + e.ID)
	}
	r.byID[e.ID] = len(r.entries)
	r.entries = append(r.entries, e)
}

func (r *Registry) num(id string, lo, hi, def float64, field func(*Snapshot) *float64) {
	r.add(entry{
		Info: Info{ID: id, Min: lo, Max: hi, Default: def},
		get:  func(s *Snapshot) float64 { return *field(s) },
		set:  func(s *Snapshot, v float64) { *field(s) = v },
	})
}

func (r *Registry) flag(id string, field func(*Snapshot) *bool) {
	r.add(entry{
		Info: Info{ID: id, Min: 0, Max: 1, Choices: []string{"off", "on"}},
		get: func(s *Snapshot) float64 {
			if *field(s) {
				return 1
			}
			return 0
		},
		set: func(s *Snapshot, v float64) { *field(s) = v >= 0.5 },
		parse: func(n string) (float64, error) {
			b, err := strconv.ParseBool(n)
			if err != nil {
				switch n {
				case "on", "yes":
					return 1, nil
				case "off", "no":
					return 0, nil
				}
				return 0, err
			}
			if b {
				return 1, nil
			}
			return 0, nil
		},
	})
}

func (r *Registry) enum(id string, choices []string, def float64, get func(*Snapshot) float64, set func(*Snapshot, float64), parse func(string) (float64, error)) {
	r.add(entry{
		Info:  Info{ID: id, Min: 0, Max: float64(len(choices) - 1), Default: def, Choices: choices},
		get:   get,
		set:   set,
		parse: parse,
	})
}

func parseEnum[T ~uint8](parse func(string) (T, error)) func(string) (float64, error) {
	return func(n string) (float64, error) {
		v, err := parse(n)
		return float64(v), err
	}
}

func fmSourceChoices() []string {
	out := []string{"off"}
	for i := 1; i <= NumOscillators; i++ {
		out = append(out, fmt.Sprintf("osc%d", i))
	}
	return out
}

func parseFMSource(n string) (float64, error) {
	for i, c := range fmSourceChoices() {
		if n == c {
			return float64(i), nil
		}
	}
	return 0, fmt.Errorf("unknown fm source %q", n)
}

func waveformChoices() []string {
	var out []string
	for w := osc.WaveSine; w.Valid(); w++ {
		out = append(out, w.String())
	}
	return out
}

// Len returns the number of parameters.
func (r *Registry) Len() int { return len(r.entries) }

// IDs returns every parameter ID in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.ID
	}
	return out
}

// Lookup returns the description of id.
func (r *Registry) Lookup(id string) (Info, bool) {
	i, ok := r.byID[strings.ToLower(id)]
	if !ok {
		return Info{}, false
	}
	return r.entries[i].Info, true
}

// Get reads parameter id from s.
func (r *Registry) Get(s *Snapshot, id string) (float64, error) {
	i, ok := r.byID[strings.ToLower(id)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParam, id)
	}
	return r.entries[i].get(s), nil
}

// Set writes v into parameter id of s, clamped to the parameter range.
// Enumerated values are rounded to the nearest choice.
func (r *Registry) Set(s *Snapshot, id string, v float64) error {
	i, ok := r.byID[strings.ToLower(id)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParam, id)
	}
	e := r.entries[i]
	if v != v {
		return fmt.Errorf("%w: %s is NaN", ErrBadValue, id)
	}
	if v < e.Min {
		v = e.Min
	}
	if v > e.Max {
		v = e.Max
	}
	if len(e.Choices) > 0 {
		v = float64(int(v + 0.5))
	}
	e.set(s, v)
	return nil
}

// Assign parses "id=value" and applies it to s. The value may be a
// number or, for enumerated parameters, a choice name.
func (r *Registry) Assign(s *Snapshot, assignment string) error {
	id, val, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("%w: %q is not id=value", ErrBadValue, assignment)
	}
	id = strings.ToLower(strings.TrimSpace(id))
	val = strings.ToLower(strings.TrimSpace(val))
	i, found := r.byID[id]
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownParam, id)
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		parse := r.entries[i].parse
		if parse == nil {
			return fmt.Errorf("%w: %s=%q", ErrBadValue, id, val)
		}
		if v, err = parse(val); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBadValue, id, err)
		}
	}
	return r.Set(s, id, v)
}

// Dump returns "id=value" lines for every parameter of s, sorted by ID.
func (r *Registry) Dump(s *Snapshot) []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		v := e.get(s)
		if n := int(v); len(e.Choices) > 0 && n >= 0 && n < len(e.Choices) {
			out = append(out, e.ID+"="+e.Choices[n])
			continue
		}
		out = append(out, e.ID+"="+strconv.FormatFloat(v, 'g', -1, 64))
	}
	sort.Strings(out)
	return out
}
