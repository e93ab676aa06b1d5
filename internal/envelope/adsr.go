package envelope

import (
	"fmt"
	"math"
)

// Stage is the current segment of an ADSR.
type Stage uint8

const (
	Idle Stage = iota
	Attack
	Decay
	Sustain
	Release
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

const (
	// MinTime is the shortest stage duration in seconds.
	MinTime = 0.001
	// MaxTime is the longest stage duration in seconds.
	MaxTime = 10.0
	// Epsilon is the level under which a releasing envelope goes idle.
	Epsilon = 1e-4
)

// Settings holds stage times in seconds, the sustain level and the
// per-stage curve amounts in [-1, 1] (0 is linear).
type Settings struct {
	Attack, Decay, Sustain, Release       float64
	AttackCurve, DecayCurve, ReleaseCurve float64
}

// DefaultSettings is a short pluck-friendly envelope: 10 ms attack,
// 100 ms decay, 0.7 sustain, 200 ms release.
func DefaultSettings() Settings {
	return Settings{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 0.2}
}

// Clamped returns s with every field in range. NaN fields take the
// default value.
func (s Settings) Clamped() Settings {
	d := DefaultSettings()
	s.Attack = clamp(s.Attack, MinTime, MaxTime, d.Attack)
	s.Decay = clamp(s.Decay, MinTime, MaxTime, d.Decay)
	s.Sustain = clamp(s.Sustain, 0, 1, d.Sustain)
	s.Release = clamp(s.Release, MinTime, MaxTime, d.Release)
	s.AttackCurve = clamp(s.AttackCurve, -1, 1, 0)
	s.DecayCurve = clamp(s.DecayCurve, -1, 1, 0)
	s.ReleaseCurve = clamp(s.ReleaseCurve, -1, 1, 0)
	return s
}

// ADSR is a curved attack/decay/sustain/release envelope generator.
type ADSR struct {
	sampleRate float64
	s          Settings

	stage      Stage
	level      float64
	progress   float64 // linear progress through the current stage
	startLevel float64 // level at the start of attack or release

	attackInc, decayInc, releaseInc float64
}

func New(sampleRate float64) *ADSR {
	e := &ADSR{}
	e.Init(sampleRate)
	return e
}

// Init resets e to Idle with default settings.
func (e *ADSR) Init(sampleRate float64) {
	if !(sampleRate > 0) {
		sampleRate = 48000
	}
	*e = ADSR{sampleRate: sampleRate}
	e.Set(DefaultSettings())
}

// Set applies new settings. A running stage continues from its current
// progress with the new rate.
func (e *ADSR) Set(s Settings) {
	s = s.Clamped()
	if s == e.s && e.attackInc != 0 {
		return
	}
	e.s = s
	e.attackInc = 1 / (s.Attack * e.sampleRate)
	e.decayInc = 1 / (s.Decay * e.sampleRate)
	e.releaseInc = 1 / (s.Release * e.sampleRate)
}

func (e *ADSR) Settings() Settings { return e.s }

// Trigger starts the attack from the current level.
func (e *ADSR) Trigger() {
	e.startLevel = e.level
	e.progress = 0
	e.stage = Attack
}

// ResetLevel drops the level to zero without changing the stage.
func (e *ADSR) ResetLevel() {
	e.level = 0
	e.progress = 0
}

// Release enters the release stage from the current level. It is a no-op
// when idle.
func (e *ADSR) Release() {
	if e.stage == Idle {
		return
	}
	e.startLevel = e.level
	e.progress = 0
	e.stage = Release
}

// Reset forces the envelope to Idle at level zero.
func (e *ADSR) Reset() {
	e.stage = Idle
	e.level = 0
	e.progress = 0
	e.startLevel = 0
}

func (e *ADSR) Stage() Stage { return e.stage }

func (e *ADSR) Level() float64 { return e.level }

// Active reports whether the envelope is anywhere but Idle.
func (e *ADSR) Active() bool { return e.stage != Idle }

// Next advances one sample and returns the level.
func (e *ADSR) Next() float64 {
	switch e.stage {
	case Idle:
		e.level = 0
	case Attack:
		e.progress += e.attackInc
		if e.progress >= 1 {
			e.level = 1
			e.progress = 0
			e.stage = Decay
		} else {
			e.level = e.startLevel + (1-e.startLevel)*shape(e.progress, e.s.AttackCurve)
		}
	case Decay:
		e.progress += e.decayInc
		if e.progress >= 1 {
			e.level = e.s.Sustain
			e.progress = 0
			e.stage = Sustain
		} else {
			e.level = 1 - shape(e.progress, e.s.DecayCurve)*(1-e.s.Sustain)
		}
	case Sustain:
		e.level = e.s.Sustain
	case Release:
		e.progress += e.releaseInc
		if e.progress >= 1 {
			e.Reset()
		} else {
			e.level = e.startLevel * (1 - shape(e.progress, e.s.ReleaseCurve))
			if e.level < Epsilon {
				e.Reset()
			}
		}
	}
	return e.level
}

// shape bends linear progress: positive curves rise fast, negative slow.
func shape(p, curve float64) float64 {
	if math.Abs(curve) < 0.01 {
		return p
	}
	return math.Pow(p, 1-0.67*curve)
}

func clamp(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return math.Max(lo, math.Min(hi, v))
}
