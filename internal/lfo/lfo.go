package lfo

import (
	"fmt"
	"math"
	"strings"
)

// Waveform selects the LFO shape.
type Waveform uint8

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSquare
	WaveSaw
	WaveRandom // sample-and-hold, one value per cycle
	numWaveforms
)

var names = [numWaveforms]string{"sine", "triangle", "square", "saw", "random"}

func (w Waveform) String() string {
	if w < numWaveforms {
		return names[w]
	}
	return fmt.Sprintf("Waveform(%d)", int(w))
}

func (w Waveform) Valid() bool { return w < numWaveforms }

// ParseWaveform resolves an LFO waveform name; "s&h" and "sh" mean random.
func ParseWaveform(s string) (Waveform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if s == n {
			return Waveform(i), nil
		}
	}
	switch s {
	case "sin":
		return WaveSine, nil
	case "tri":
		return WaveTriangle, nil
	case "s&h", "sh":
		return WaveRandom, nil
	}
	return 0, fmt.Errorf("unknown lfo waveform %q", s)
}

const (
	MinRate = 0.01
	MaxRate = 20.0

	defaultSeed uint32 = 0x9e3779b9
)

// LFO is a low-frequency oscillator that produces per-sample modulation.
// Each voice owns its own pair so the phase restarts with the note.
type LFO struct {
	depth    float64 // output is in [-depth, +depth]
	rateHz   float64
	waveform Waveform
	phase    float64 // [0, 1)
	held     float64 // sample-and-hold value
	seed     uint32
}

// Set configures the LFO. Rates are clamped to [MinRate, MaxRate] and
// depth to [0, 1]; a zero rate or depth switches the LFO off.
func (l *LFO) Set(depth, rateHz float64, waveform Waveform) {
	switch {
	case !(depth > 0):
		depth = 0
	case depth > 1:
		depth = 1
	}
	switch {
	case !(rateHz > 0):
		rateHz = 0
	case rateHz < MinRate:
		rateHz = MinRate
	case rateHz > MaxRate:
		rateHz = MaxRate
	}
	if !waveform.Valid() {
		waveform = WaveSine
	}
	l.depth = depth
	l.rateHz = rateHz
	l.waveform = waveform
}

// Sample advances the LFO by one sample and returns a value in
// [-depth, +depth]. It returns 0 while the LFO is off.
func (l *LFO) Sample(sampleRate float64) float64 {
	if l.depth == 0 || l.rateHz == 0 || !(sampleRate > 0) {
		return 0
	}

	var v float64
	switch l.waveform {
	case WaveSine:
		v = math.Sin(2 * math.Pi * l.phase)
	case WaveTriangle:
		if l.phase < 0.5 {
			v = 4*l.phase - 1
		} else {
			v = 3 - 4*l.phase
		}
	case WaveSquare:
		if l.phase < 0.5 {
			v = 1
		} else {
			v = -1
		}
	case WaveSaw:
		v = 1 - 2*l.phase
	case WaveRandom:
		v = l.held
	}

	l.phase += l.rateHz / sampleRate
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
		if l.waveform == WaveRandom {
			l.held = l.nextRandom()
		}
	}
	return v * l.depth
}

func (l *LFO) nextRandom() float64 {
	if l.seed == 0 {
		l.seed = defaultSeed
	}
	x := l.seed
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	l.seed = x
	return float64(x)/math.MaxUint32*2 - 1
}

// Active returns true if the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

// Reset restarts the cycle. The random sequence is not rewound.
func (l *LFO) Reset() {
	l.phase = 0
	l.held = 0
}
