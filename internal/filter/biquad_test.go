package filter

import (
	"math"
	"testing"
)

func TestTargetClamping(t *testing.T) {
	f := New(44100)
	tests := []struct {
		cutoff, q      float64
		wantCut, wantQ float64
	}{
		{10, 0.1, 20, 0.5},
		{25000, 20, 44100 * 0.49, 10},
		{1000, 2, 1000, 2},
		{math.NaN(), math.NaN(), 1000, 0.707},
		{math.Inf(1), math.Inf(-1), 44100 * 0.49, 0.5},
	}
	for _, tt := range tests {
		f.SetTarget(tt.cutoff, tt.q)
		f.Snap()
		if f.Cutoff() != tt.wantCut || f.Q() != tt.wantQ {
			t.Errorf("SetTarget(%v, %v) -> (%v, %v), want (%v, %v)",
				tt.cutoff, tt.q, f.Cutoff(), f.Q(), tt.wantCut, tt.wantQ)
		}
	}
}

func checkCoeffs(t *testing.T, c coeffs, label string) {
	t.Helper()
	for _, v := range []float64{c.b0, c.b1, c.b2, c.a1, c.a2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s: non-finite coefficient in %+v", label, c)
		}
	}
	if math.Abs(c.b0) > maxB || math.Abs(c.b1) > maxB || math.Abs(c.b2) > maxB {
		t.Fatalf("%s: feed-forward out of range: %+v", label, c)
	}
	if math.Abs(c.a2) > maxA2 || math.Abs(c.a1) >= 1+c.a2 {
		t.Fatalf("%s: outside stability triangle: %+v", label, c)
	}
}

var sweepCutoffs = []float64{20, 50, 200, 1000, 5000, 12000, 20000, 23000}
var sweepQs = []float64{0.5, 0.707, 2, 5, 10}

func TestCoefficientsStableAcrossSweep(t *testing.T) {
	for _, sr := range []float64{44100, 48000, 96000} {
		for typ := LowPass; typ < numTypes; typ++ {
			for _, fc := range sweepCutoffs {
				for _, q := range sweepQs {
					f := New(sr)
					f.SetType(typ)
					f.SetTarget(fc, q)
					f.Snap()
					checkCoeffs(t, f.c, typ.String())
				}
			}
		}
	}
}

func TestStepResponseBounded(t *testing.T) {
	for typ := LowPass; typ < numTypes; typ++ {
		for _, slope := range []int{12, 24} {
			for _, fc := range sweepCutoffs {
				for _, q := range sweepQs {
					f := New(48000)
					f.SetType(typ)
					f.SetSlope(slope)
					f.SetTarget(fc, q)
					f.Snap()
					for i := 0; i < 48000; i++ {
						y := f.Process(1)
						if math.IsNaN(y) || math.Abs(y) > 50 {
							t.Fatalf("%v/%ddB fc=%v q=%v: step output %v at %d", typ, slope, fc, q, y, i)
						}
					}
				}
			}
		}
	}
}

func TestModulatedNoiseStaysFinite(t *testing.T) {
	for typ := LowPass; typ < numTypes; typ++ {
		f := New(48000)
		f.SetType(typ)
		f.SetSlope(24)
		seed := uint32(1)
		for i := 0; i < 3*48000; i++ {
			seed = seed*1664525 + 1013904223
			x := float64(seed)/math.MaxUint32*2 - 1
			mod := math.Sin(2 * math.Pi * 3 * float64(i) / 48000)
			f.SetTarget(5000+4900*mod, 6+4*mod)
			y := f.Process(x)
			if math.IsNaN(y) || math.IsInf(y, 0) || math.Abs(y) > 1e3 {
				t.Fatalf("%v: sample %d = %v", typ, i, y)
			}
		}
	}
}

func settle(f *Biquad, x float64, n int) float64 {
	var y float64
	for i := 0; i < n; i++ {
		y = f.Process(x)
	}
	return y
}

func TestDCResponse(t *testing.T) {
	lp := New(44100)
	lp.SetTarget(1000, 0.707)
	lp.Snap()
	if y := settle(lp, 1, 4000); math.Abs(y-1) > 1e-3 {
		t.Errorf("lowpass dc = %f, want 1", y)
	}
	hp := New(44100)
	hp.SetType(HighPass)
	hp.SetTarget(1000, 0.707)
	hp.Snap()
	if y := settle(hp, 1, 4000); math.Abs(y) > 1e-3 {
		t.Errorf("highpass dc = %f, want 0", y)
	}
}

func toneGain(f *Biquad, hz, sr float64) float64 {
	var peak float64
	for i := 0; i < int(sr); i++ {
		y := f.Process(math.Sin(2 * math.Pi * hz * float64(i) / sr))
		if i > int(sr)/2 {
			peak = math.Max(peak, math.Abs(y))
		}
	}
	return peak
}

func TestSteeperSlopeAttenuatesMore(t *testing.T) {
	a := New(48000)
	a.SetTarget(500, 0.707)
	a.Snap()
	b := New(48000)
	b.SetSlope(24)
	b.SetTarget(500, 0.707)
	b.Snap()
	g12 := toneGain(a, 4000, 48000)
	g24 := toneGain(b, 4000, 48000)
	if g24 >= g12*0.2 {
		t.Fatalf("24 dB gain %g not well below 12 dB gain %g", g24, g12)
	}
	if b.Slope() != 24 || a.Slope() != 12 {
		t.Fatalf("slopes = %d, %d", a.Slope(), b.Slope())
	}
}

func TestSmoothingApproachesTarget(t *testing.T) {
	f := New(48000)
	f.SetTarget(8000, 0.707)
	f.Process(0)
	if f.Cutoff() >= 2000 {
		t.Fatalf("cutoff jumped to %f after one sample", f.Cutoff())
	}
	settle(f, 0, 48000/10)
	if math.Abs(f.Cutoff()-8000) > 1 {
		t.Fatalf("cutoff = %f after 100 ms, want ~8000", f.Cutoff())
	}
	if relChange(f.coefCutoff, 8000) > 1e-3 {
		t.Fatalf("coefficients computed for %f, want ~8000", f.coefCutoff)
	}
}

func TestNonFiniteInputResets(t *testing.T) {
	f := New(48000)
	settle(f, 0.5, 100)
	if y := f.Process(math.NaN()); y != 0 {
		t.Fatalf("NaN input returned %v, want 0", y)
	}
	if f.st[0] != (section{}) {
		t.Fatalf("state not reset: %+v", f.st[0])
	}
	if y := f.Process(0.5); math.IsNaN(y) {
		t.Fatal("filter stuck at NaN")
	}
}

func TestParseType(t *testing.T) {
	for in, want := range map[string]Type{"LP": LowPass, "highpass": HighPass, "bp": BandPass} {
		got, err := ParseType(in)
		if err != nil || got != want {
			t.Errorf("ParseType(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseType("notch"); err == nil {
		t.Error("expected error for notch")
	}
}
