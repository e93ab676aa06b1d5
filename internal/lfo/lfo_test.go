package lfo

import (
	"math"
	"testing"
)

func TestLFOTriangleBasicShape(t *testing.T) {
	l := &LFO{}
	l.Set(1.0, 1.0, WaveTriangle) // 1 Hz, depth 1

	sr := 100.0 // 100 samples per cycle
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = l.Sample(sr)
	}

	if math.Abs(samples[0]-(-1.0)) > 0.05 {
		t.Errorf("triangle at phase 0: got %f, want -1.0", samples[0])
	}
	if math.Abs(samples[25]) > 0.05 {
		t.Errorf("triangle at phase 0.25: got %f, want ~0", samples[25])
	}
	if math.Abs(samples[50]-1.0) > 0.05 {
		t.Errorf("triangle at phase 0.5: got %f, want 1.0", samples[50])
	}
}

func TestLFOSineQuarterCycle(t *testing.T) {
	l := &LFO{}
	l.Set(0.5, 1.0, WaveSine)
	var v float64
	for i := 0; i <= 25; i++ {
		v = l.Sample(100)
	}
	if math.Abs(v-0.5) > 1e-9 {
		t.Errorf("sine at phase 0.25: got %f, want 0.5", v)
	}
}

func TestLFOSquareShape(t *testing.T) {
	l := &LFO{}
	l.Set(0.5, 1.0, WaveSquare)

	sr := 100.0
	v := l.Sample(sr)
	if math.Abs(v-0.5) > 0.01 {
		t.Errorf("square first half: got %f, want 0.5", v)
	}
	for i := 1; i < 50; i++ {
		l.Sample(sr)
	}
	v = l.Sample(sr)
	if math.Abs(v-(-0.5)) > 0.01 {
		t.Errorf("square second half: got %f, want -0.5", v)
	}
}

func TestLFOSawShape(t *testing.T) {
	l := &LFO{}
	l.Set(1.0, 1.0, WaveSaw)

	v := l.Sample(100)
	if math.Abs(v-1.0) > 0.05 {
		t.Errorf("saw at phase 0: got %f, want 1.0", v)
	}
}

func TestLFOSetClamps(t *testing.T) {
	tests := []struct {
		depth, rate       float64
		wantDepth, wantHz float64
	}{
		{2, 100, 1, MaxRate},
		{-1, 0.001, 0, MinRate},
		{math.NaN(), math.NaN(), 0, 0},
		{0.3, 5, 0.3, 5},
	}
	for _, tt := range tests {
		l := &LFO{}
		l.Set(tt.depth, tt.rate, Waveform(42))
		if l.depth != tt.wantDepth || l.rateHz != tt.wantHz || l.waveform != WaveSine {
			t.Errorf("Set(%v, %v) -> depth %v rate %v wave %v", tt.depth, tt.rate, l.depth, l.rateHz, l.waveform)
		}
	}
}

func TestLFOZeroDepthReturnsZero(t *testing.T) {
	l := &LFO{}
	l.Set(0, 5.0, WaveTriangle)

	if v := l.Sample(44100); v != 0 {
		t.Errorf("zero depth should return 0, got %f", v)
	}
}

func TestLFOZeroRateReturnsZero(t *testing.T) {
	l := &LFO{}
	l.Set(1.0, 0, WaveTriangle)

	if v := l.Sample(44100); v != 0 {
		t.Errorf("zero rate should return 0, got %f", v)
	}
}

func TestLFOActive(t *testing.T) {
	l := &LFO{}
	if l.Active() {
		t.Error("default LFO should not be active")
	}
	l.Set(1.0, 5.0, WaveTriangle)
	if !l.Active() {
		t.Error("configured LFO should be active")
	}
	l.Set(0, 5.0, WaveTriangle)
	if l.Active() {
		t.Error("zero-depth LFO should not be active")
	}
}

func TestLFORandomHoldsPerCycle(t *testing.T) {
	l := &LFO{}
	l.Set(1.0, 10.0, WaveRandom)

	sr := 1000.0 // 100 samples per cycle
	var changes, nonZero int
	prev := l.Sample(sr)
	for i := 1; i < 500; i++ {
		v := l.Sample(sr)
		if math.Abs(v) > 1.0 {
			t.Fatalf("random sample exceeds depth: %f", v)
		}
		if v != prev {
			changes++
		}
		if v != 0 {
			nonZero++
		}
		prev = v
	}
	if changes < 3 || changes > 5 {
		t.Errorf("held value changed %d times over 5 cycles", changes)
	}
	if nonZero == 0 {
		t.Error("random LFO never left zero")
	}
}

func TestLFOResetRestartsCycle(t *testing.T) {
	l := &LFO{}
	l.Set(1, 3, WaveSaw)
	first := l.Sample(1000)
	for i := 0; i < 123; i++ {
		l.Sample(1000)
	}
	l.Reset()
	if v := l.Sample(1000); v != first {
		t.Errorf("after Reset got %f, want %f", v, first)
	}
}

func TestParseWaveform(t *testing.T) {
	for in, want := range map[string]Waveform{"Sine": WaveSine, "tri": WaveTriangle, "s&h": WaveRandom, "saw": WaveSaw} {
		got, err := ParseWaveform(in)
		if err != nil || got != want {
			t.Errorf("ParseWaveform(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseWaveform("wobble"); err == nil {
		t.Error("expected error")
	}
}
