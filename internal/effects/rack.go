package effects

import "math"

type CompressorSettings struct {
	Enabled     bool
	ThresholdDB float64 // -60..0
	Ratio       float64 // 1..20
	AttackMs    float64 // 0.1..500
	ReleaseMs   float64 // 1..5000
	MakeupDB    float64 // 0..24
}

type DistortionSettings struct {
	Enabled bool
	Type    DistortionType
	Drive   float64 // 1..20
	Mix     float64 // 0..1
}

type ChorusSettings struct {
	Enabled  bool
	Rate     float64 // Hz, 0.01..10
	Depth    float64 // ms, 0..20
	Feedback float64 // 0..0.9
	Mix      float64 // 0..1
}

type DelaySettings struct {
	Enabled  bool
	TimeMs   float64 // 1..MaxDelayMs
	Feedback float64 // 0..0.95
	PingPong float64 // cross feedback 0..1
	Mix      float64 // 0..1
}

type ReverbSettings struct {
	Enabled bool
	Room    float64 // 0..1, size and decay
	Damping float64 // 0..1
	Mix     float64 // 0..1
}

type EQSettings struct {
	Enabled        bool
	Low, Mid, High float64 // linear gains 0..4
}

// Settings configures every stage of a Rack. It is a plain value so it
// can travel inside a parameter snapshot.
type Settings struct {
	Compressor CompressorSettings
	Distortion DistortionSettings
	Chorus     ChorusSettings
	Delay      DelaySettings
	Reverb     ReverbSettings
	EQ         EQSettings
}

// DefaultSettings has every stage disabled with usable values.
func DefaultSettings() Settings {
	return Settings{
		Compressor: CompressorSettings{ThresholdDB: -12, Ratio: 4, AttackMs: 10, ReleaseMs: 100},
		Distortion: DistortionSettings{Type: DistTanh, Drive: 4, Mix: 0.5},
		Chorus:     ChorusSettings{Rate: 0.8, Depth: 3, Feedback: 0.2, Mix: 0.3},
		Delay:      DelaySettings{TimeMs: 375, Feedback: 0.35, PingPong: 0.3, Mix: 0.25},
		Reverb:     ReverbSettings{Room: 0.5, Damping: 0.5, Mix: 0.25},
		EQ:         EQSettings{Low: 1, Mid: 1, High: 1},
	}
}

// Clamped returns s with every value in range; NaN takes the default.
func (s Settings) Clamped() Settings {
	d := DefaultSettings()
	c := &s.Compressor
	c.ThresholdDB = clampDef(c.ThresholdDB, -60, 0, d.Compressor.ThresholdDB)
	c.Ratio = clampDef(c.Ratio, 1, 20, d.Compressor.Ratio)
	c.AttackMs = clampDef(c.AttackMs, 0.1, 500, d.Compressor.AttackMs)
	c.ReleaseMs = clampDef(c.ReleaseMs, 1, 5000, d.Compressor.ReleaseMs)
	c.MakeupDB = clampDef(c.MakeupDB, 0, 24, 0)

	ds := &s.Distortion
	if !ds.Type.Valid() {
		ds.Type = DistTanh
	}
	ds.Drive = clampDef(ds.Drive, 1, 20, d.Distortion.Drive)
	ds.Mix = clampDef(ds.Mix, 0, 1, d.Distortion.Mix)

	ch := &s.Chorus
	ch.Rate = clampDef(ch.Rate, 0.01, 10, d.Chorus.Rate)
	ch.Depth = clampDef(ch.Depth, 0, 20, d.Chorus.Depth)
	ch.Feedback = clampDef(ch.Feedback, 0, 0.9, d.Chorus.Feedback)
	ch.Mix = clampDef(ch.Mix, 0, 1, d.Chorus.Mix)

	dl := &s.Delay
	dl.TimeMs = clampDef(dl.TimeMs, 1, MaxDelayMs, d.Delay.TimeMs)
	dl.Feedback = clampDef(dl.Feedback, 0, 0.95, d.Delay.Feedback)
	dl.PingPong = clampDef(dl.PingPong, 0, 1, d.Delay.PingPong)
	dl.Mix = clampDef(dl.Mix, 0, 1, d.Delay.Mix)

	rv := &s.Reverb
	rv.Room = clampDef(rv.Room, 0, 1, d.Reverb.Room)
	rv.Damping = clampDef(rv.Damping, 0, 1, d.Reverb.Damping)
	rv.Mix = clampDef(rv.Mix, 0, 1, d.Reverb.Mix)

	eq := &s.EQ
	eq.Low = clampDef(eq.Low, 0, MaxBandGain, 1)
	eq.Mid = clampDef(eq.Mid, 0, MaxBandGain, 1)
	eq.High = clampDef(eq.High, 0, MaxBandGain, 1)
	return s
}

func clampDef(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return math.Max(lo, math.Min(hi, v))
}

// chorusBaseMs is the fixed centre delay of the master chorus.
const chorusBaseMs = 12

// Rack is the master effects chain: compressor, distortion, chorus,
// delay, reverb and 3-band EQ (each switchable), then the host 5-band EQ
// and the output limiter. Everything is allocated by NewRack; Apply and
// Process never allocate.
type Rack struct {
	compressor *Compressor
	distortion *Distortion
	chorus     *Chorus
	delay      *Delay
	reverb     *Reverb
	eq         *EQ3Band
	master     *EQ5Band
	limiter    *Limiter

	slots [6]slot
	chain *Chain

	cur     Settings
	applied bool
}

func NewRack(sampleRate int) *Rack {
	d := DefaultSettings()
	r := &Rack{
		compressor: NewCompressor(sampleRate, -12, 4, 10, 100, 0),
		distortion: NewDistortion(DistTanh, 4, 0.5),
		chorus:     NewChorus(sampleRate, chorusBaseMs, 0.2, 3, 0.8, 0.3),
		delay:      NewDelay(sampleRate, 375, 0.35, 0.3, 0.25),
		reverb:     NewReverb(sampleRate, 0.5, 0.82, 0.5, 0.25),
		eq:         NewEQ3Band(sampleRate, 1, 1, 1, 300, 3000),
		master:     NewEQ5Band(sampleRate),
		limiter:    NewLimiter(sampleRate, DefaultLimiterThreshold, 50),
	}
	r.slots = [6]slot{
		{fx: r.compressor},
		{fx: r.distortion},
		{fx: r.chorus},
		{fx: r.delay},
		{fx: r.reverb},
		{fx: r.eq},
	}
	r.chain = NewChain()
	for i := range r.slots {
		r.chain.Add(&r.slots[i])
	}
	r.chain.Add(r.master)
	r.chain.Add(r.limiter)
	r.Apply(d)
	return r
}

// Apply pushes new settings into the stages. Unchanged settings are a
// no-op.
func (r *Rack) Apply(s Settings) {
	s = s.Clamped()
	if r.applied && s == r.cur {
		return
	}
	r.cur, r.applied = s, true

	c := s.Compressor
	r.compressor.Set(float32(c.ThresholdDB), float32(c.Ratio), float32(c.AttackMs), float32(c.ReleaseMs), float32(c.MakeupDB))
	dist := s.Distortion
	r.distortion.Set(dist.Type, float32(dist.Drive), float32(dist.Mix))
	ch := s.Chorus
	r.chorus.Set(chorusBaseMs, float32(ch.Feedback), float32(ch.Depth), float32(ch.Rate), float32(ch.Mix))
	dl := s.Delay
	r.delay.Set(dl.TimeMs, float32(dl.Feedback), float32(dl.PingPong), float32(dl.Mix))
	rv := s.Reverb
	r.reverb.Set(float32(rv.Room), float32(0.7+0.25*rv.Room), float32(rv.Damping), float32(rv.Mix))
	r.eq.SetGains(float32(s.EQ.Low), float32(s.EQ.Mid), float32(s.EQ.High))

	enabled := [6]bool{c.Enabled, dist.Enabled, ch.Enabled, dl.Enabled, rv.Enabled, s.EQ.Enabled}
	for i := range r.slots {
		r.slots[i].enabled = enabled[i]
	}
}

// Settings returns the settings last applied.
func (r *Rack) Settings() Settings { return r.cur }

// MasterEQ exposes the host-controlled 5-band EQ. Its gains may be set
// from any goroutine.
func (r *Rack) MasterEQ() *EQ5Band { return r.master }

// Limiter exposes the output limiter.
func (r *Rack) Limiter() *Limiter { return r.limiter }

func (r *Rack) Process(l, rr float32) (float32, float32) {
	return r.chain.Process(l, rr)
}

func (r *Rack) Reset() {
	r.chain.Reset()
}
