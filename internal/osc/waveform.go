package osc

import (
	"fmt"
	"strings"
)

// Waveform selects the raw shape an Oscillator generates.
type Waveform uint8

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveSquare
	WaveTriangle
	WavePulse
	WaveTable
	WaveNoise
	numWaveforms
)

var waveformNames = [numWaveforms]string{"sine", "saw", "square", "triangle", "pulse", "wavetable", "noise"}

func (w Waveform) String() string {
	if w < numWaveforms {
		return waveformNames[w]
	}
	return fmt.Sprintf("Waveform(%d)", int(w))
}

// Valid reports whether w is a known waveform.
func (w Waveform) Valid() bool { return w < numWaveforms }

// ParseWaveform resolves a waveform name, case-insensitively.
func ParseWaveform(s string) (Waveform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range waveformNames {
		if s == name {
			return Waveform(i), nil
		}
	}
	switch s {
	case "sin":
		return WaveSine, nil
	case "sawtooth":
		return WaveSaw, nil
	case "tri":
		return WaveTriangle, nil
	case "table", "wt":
		return WaveTable, nil
	}
	return 0, fmt.Errorf("unknown waveform %q", s)
}
