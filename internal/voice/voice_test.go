package voice

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/cbegin/polysynth-go/internal/envelope"
	"github.com/cbegin/polysynth-go/internal/lfo"
	"github.com/cbegin/polysynth-go/internal/osc"
	"github.com/cbegin/polysynth-go/internal/params"
)

const sr = 48000.0

func newVoice(id int) *Voice {
	return New(sr, osc.KernelScalar, nil, id)
}

func render(v *Voice, s *params.Snapshot, n int) (peak float64) {
	for i := 0; i < n; i++ {
		l, r := v.Render(s)
		peak = max(peak, math.Abs(l), math.Abs(r))
	}
	return peak
}

// renderLeft collects n samples of the left channel.
func renderLeft(v *Voice, s *params.Snapshot, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i], _ = v.Render(s)
	}
	return out
}

func TestIdleVoiceIsSilent(t *testing.T) {
	v := newVoice(0)
	s := params.Default()
	if v.State() != Idle {
		t.Fatalf("state = %v", v.State())
	}
	if p := render(v, &s, 1000); p != 0 {
		t.Fatalf("idle voice peak %v", p)
	}
}

func TestTriggerReleaseLifecycle(t *testing.T) {
	v := newVoice(0)
	s := params.Default()
	v.Trigger(60, 0.8, 1, &s)
	if v.State() != Active || v.Note() != 60 || v.Seq() != 1 {
		t.Fatalf("after trigger: %v note %d seq %d", v.State(), v.Note(), v.Seq())
	}
	if p := render(v, &s, int(0.1*sr)); p < 0.01 {
		t.Fatalf("active voice peak %v", p)
	}
	v.Release()
	if v.State() != Releasing {
		t.Fatalf("after release: %v", v.State())
	}
	limit := int(s.AmpEnv.Release*sr) + 64
	for i := 0; i < limit && v.State() != Idle; i++ {
		v.Render(&s)
	}
	if v.State() != Idle {
		t.Fatalf("voice still %v after %d samples of release", v.State(), limit)
	}
	if p := render(v, &s, 100); p != 0 {
		t.Fatalf("idle after release peak %v", p)
	}
}

func TestReleaseWhileIdleIsNoop(t *testing.T) {
	v := newVoice(0)
	v.Release()
	if v.State() != Idle {
		t.Fatalf("state = %v", v.State())
	}
}

func TestKillIsImmediate(t *testing.T) {
	v := newVoice(0)
	s := params.Default()
	v.Trigger(64, 1, 1, &s)
	render(v, &s, 2000)
	v.UpdateRMS()
	v.Kill()
	if v.State() != Idle || v.RMS() != 0 {
		t.Fatalf("after kill: %v rms %v", v.State(), v.RMS())
	}
	if l, r := v.Render(&s); l != 0 || r != 0 {
		t.Fatalf("killed voice rendered %v %v", l, r)
	}
}

func TestVelocityScalesLevel(t *testing.T) {
	s := params.Default()
	level := func(vel float64) float64 {
		v := newVoice(0)
		v.Trigger(57, vel, 1, &s)
		for i := 0; i < 4; i++ {
			render(v, &s, 2048)
			v.UpdateRMS()
		}
		return v.RMS()
	}
	soft, hard := level(0.1), level(1)
	if !(hard > soft*1.3) {
		t.Fatalf("rms soft %v hard %v", soft, hard)
	}
}

func TestRMSSmoothing(t *testing.T) {
	v := newVoice(0)
	s := params.Default()
	v.Trigger(60, 1, 1, &s)
	render(v, &s, 4096)
	if v.RMS() != 0 {
		t.Fatal("RMS moved before UpdateRMS")
	}
	v.UpdateRMS()
	first := v.RMS()
	if first <= 0 {
		t.Fatalf("rms = %v", first)
	}
	// With no new samples the estimate holds.
	v.UpdateRMS()
	if v.RMS() != first {
		t.Fatalf("rms changed without samples: %v -> %v", first, v.RMS())
	}
	v.Trigger(60, 1, 2, &s)
	if v.RMS() != 0 {
		t.Fatal("trigger did not clear RMS")
	}
}

func TestPhaseResetOnlyWhenRequested(t *testing.T) {
	s := params.Default()
	v := newVoice(0)
	v.Trigger(60, 1, 1, &s)
	render(v, &s, 333)
	before := v.osc[0][0].Phase()
	v.Trigger(62, 1, 2, &s)
	if v.osc[0][0].Phase() != before {
		t.Fatalf("phase changed without PhaseReset: %v -> %v", before, v.osc[0][0].Phase())
	}

	s.PhaseReset = true
	s.Osc[0].Phase = 0.25
	s.Osc[0].Unison = 3
	v.Trigger(62, 1, 3, &s)
	for j, want := range []float64{0.25, 0.25 + goldenPhase, 0.25 + 2*goldenPhase - 1} {
		if got := v.osc[0][j].Phase(); math.Abs(got-want) > 1e-12 {
			t.Fatalf("copy %d phase = %v, want %v", j, got, want)
		}
	}
}

func TestSameInputsRenderIdentically(t *testing.T) {
	s := params.Default()
	s.PhaseReset = true
	s.LFO[0].Depth = 0.5
	s.LFO[0].Pitch = 30
	s.LFO[1] = params.LFO{Waveform: lfo.WaveRandom, Rate: 7, Depth: 1, Cutoff: 800, Pan: 0.5}
	s.Osc[0].Unison = 5
	s.Osc[2] = params.Oscillator{Waveform: osc.WaveNoise, Level: 0.2, Unison: 2, FMSource: 1, FMAmount: 1}
	a, b := newVoice(3), newVoice(3)
	a.Trigger(48, 0.7, 1, &s)
	b.Trigger(48, 0.7, 1, &s)
	for i := 0; i < 20000; i++ {
		al, ar := a.Render(&s)
		bl, br := b.Render(&s)
		if al != bl || ar != br {
			t.Fatalf("sample %d: (%v, %v) != (%v, %v)", i, al, ar, bl, br)
		}
	}
}

func TestRetuneGlides(t *testing.T) {
	s := params.Default()
	s.Glide = 0.05
	v := newVoice(0)
	v.Trigger(60, 1, 1, &s)
	render(v, &s, 100)
	start := v.freq
	v.Retune(72, 1, &s)
	if v.State() != Active {
		t.Fatalf("state = %v", v.State())
	}
	n := int(s.Glide * sr)
	render(v, &s, n/2)
	mid := v.freq
	if !(mid > start*1.2 && mid < start*1.8) {
		t.Fatalf("mid-glide freq %v (start %v)", mid, start)
	}
	render(v, &s, n)
	want := noteFreq(72, 0)
	if math.Abs(v.freq-want) > 1e-9 {
		t.Fatalf("glide ended at %v, want %v", v.freq, want)
	}
}

func TestRetuneWithoutGlideJumps(t *testing.T) {
	s := params.Default()
	v := newVoice(0)
	v.Trigger(60, 1, 1, &s)
	render(v, &s, 1000)
	lvl := v.ampEnv.Level()
	v.Retune(67, 0.4, &s)
	if v.freq != noteFreq(67, 0) || v.Velocity() != 0.4 {
		t.Fatalf("freq %v vel %v", v.freq, v.Velocity())
	}
	if v.ampEnv.Level() != lvl {
		t.Fatal("retune touched the envelope")
	}
}

func TestKeyTracking(t *testing.T) {
	if got := keyTracking(72, 1); math.Abs(got-2) > 1e-12 {
		t.Fatalf("keytrack(72, 1) = %v", got)
	}
	if got := keyTracking(48, 0.5); math.Abs(got-math.Sqrt2/2) > 1e-12 {
		t.Fatalf("keytrack(48, 0.5) = %v", got)
	}
	if keyTracking(100, 0) != 1 {
		t.Fatal("zero tracking must be 1")
	}
}

func TestNonFiniteParamsStayFinite(t *testing.T) {
	s := params.Default()
	v := newVoice(0)
	v.Trigger(60, 1, 1, &s)
	s.Velocity.Amp = math.NaN()
	s.Filter.EnvAmount = math.Inf(1)
	for i := 0; i < 1000; i++ {
		l, r := v.Render(&s)
		if !finite(l) || !finite(r) {
			t.Fatalf("sample %d = %v %v", i, l, r)
		}
	}
}

func TestRenderDoesNotAllocate(t *testing.T) {
	s := params.Default()
	s.LFO[0].Depth = 1
	s.LFO[0].PWM = 0.5
	s.LFO[0].Pan = 1
	s.Osc[0].Unison = params.MaxUnison
	s.Osc[1].FMSource = 3
	s.Osc[1].FMAmount = 2
	v := newVoice(0)
	v.Trigger(60, 1, 1, &s)
	allocs := testing.AllocsPerRun(100, func() {
		for i := 0; i < 64; i++ {
			v.Render(&s)
		}
		v.UpdateRMS()
	})
	if allocs != 0 {
		t.Fatalf("allocated %.1f times per run", allocs)
	}
}

func TestIdleTransitionClearsFilter(t *testing.T) {
	s := params.Default()
	s.AmpEnv.Release = 0.01
	s.Filter.Resonance = 8
	v := newVoice(0)
	v.Trigger(45, 1, 1, &s)
	render(v, &s, 2000)
	v.Release()
	for i := 0; i < int(sr) && v.State() != Idle; i++ {
		v.Render(&s)
	}
	if v.State() != Idle {
		t.Fatalf("state = %v", v.State())
	}
	for i := range v.flt {
		clean := v.flt[i]
		clean.Reset()
		if v.flt[i] != clean {
			t.Fatalf("filter %d kept state after the voice went idle", i)
		}
	}
}

func TestUnisonSpread(t *testing.T) {
	tests := []struct {
		n      int
		detune float64
		cents  []float64
	}{
		{1, 40, []float64{0}},
		{2, 20, []float64{-10, 10}},
		{3, 20, []float64{-10, 0, 10}},
		{5, 40, []float64{-20, -10, 0, 10, 20}},
	}
	for _, tt := range tests {
		mul := make([]float64, tt.n)
		unisonSpread(mul, tt.detune)
		for j, want := range tt.cents {
			if got := 1200 * math.Log2(mul[j]); math.Abs(got-want) > 1e-9 {
				t.Errorf("n=%d copy %d: %v cents, want %v", tt.n, j, got, want)
			}
		}
	}
}

func TestUnisonCopiesAreDetuned(t *testing.T) {
	s := params.Default()
	s.Osc[0].Unison = 3
	s.Osc[0].UnisonDetune = 30
	v := newVoice(0)
	v.Trigger(69, 1, 1, &s)
	v.Render(&s)
	centre := v.osc[0][1].Frequency()
	if math.Abs(centre-440) > 1e-9 {
		t.Fatalf("centre copy at %v Hz", centre)
	}
	for j, want := range []float64{-15, 0, 15} {
		got := 1200 * math.Log2(v.osc[0][j].Frequency()/centre)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("copy %d: %v cents, want %v", j, got, want)
		}
	}
	if f := v.osc[0][3].Frequency(); f != 0 {
		t.Fatalf("unused copy running at %v Hz", f)
	}
}

// sidebandRatio returns the share of spectral energy more than three bins
// from the strongest bin.
func sidebandRatio(x []float64) float64 {
	w := window.Hann(len(x))
	for i := range x {
		x[i] *= w[i]
	}
	bins := fft.FFTReal(x)[:len(x)/2]
	peak := 0
	for i := range bins {
		if cmplx.Abs(bins[i]) > cmplx.Abs(bins[peak]) {
			peak = i
		}
	}
	var total, side float64
	for i, b := range bins {
		e := real(b)*real(b) + imag(b)*imag(b)
		total += e
		if i < peak-3 || i > peak+3 {
			side += e
		}
	}
	return side / total
}

func TestFMAddsSidebands(t *testing.T) {
	s := params.Default()
	s.AmpEnv = envelope.Settings{Attack: 0.001, Decay: 0.001, Sustain: 1, Release: 0.1}
	s.Filter.Cutoff = 20000
	s.Velocity.Amp = 0
	s.Osc[0] = params.Oscillator{Waveform: osc.WaveSine, Level: 1, Unison: 1}
	s.Osc[1] = params.Oscillator{Waveform: osc.WaveSine, Unison: 1}
	s.Osc[2].Level = 0

	spectrum := func(amount float64) float64 {
		s.Osc[0].FMSource = 2
		s.Osc[0].FMAmount = amount
		v := newVoice(0)
		v.Trigger(69, 1, 1, &s)
		render(v, &s, 4800)
		return sidebandRatio(renderLeft(v, &s, 8192))
	}
	plain, fm := spectrum(0), spectrum(2)
	if plain > 0.01 {
		t.Fatalf("plain sine has %.3f of its energy in sidebands", plain)
	}
	if fm < 0.2 {
		t.Fatalf("fm sine has only %.3f of its energy in sidebands", fm)
	}
}

func TestOscillatorPan(t *testing.T) {
	s := params.Default()
	s.Osc[1].Level = 0
	s.Osc[0].Pan = -1
	v := newVoice(0)
	v.Trigger(60, 1, 1, &s)
	var left, right float64
	for i := 0; i < 4800; i++ {
		l, r := v.Render(&s)
		left = max(left, math.Abs(l))
		right = max(right, math.Abs(r))
	}
	if left < 0.05 || right > 1e-9 {
		t.Fatalf("hard left pan: left peak %v right peak %v", left, right)
	}

	g := panGains(0)
	if math.Abs(g[0]-1) > 1e-12 || math.Abs(g[1]-1) > 1e-12 {
		t.Fatalf("centre gains %v", g)
	}
}

func TestLFOPanSweeps(t *testing.T) {
	s := params.Default()
	s.Osc[1].Level = 0
	s.LFO[0] = params.LFO{Waveform: lfo.WaveSquare, Rate: 2, Depth: 1, Pan: 1}
	v := newVoice(0)
	v.Trigger(60, 1, 1, &s)
	var left, right float64
	// The first half cycle pushes hard right, the second hard left.
	for i := 0; i < int(0.25*sr); i++ {
		l, _ := v.Render(&s)
		left = max(left, math.Abs(l))
	}
	render(v, &s, int(0.01*sr))
	for i := 0; i < int(0.2*sr); i++ {
		_, r := v.Render(&s)
		right = max(right, math.Abs(r))
	}
	if left > 1e-6 || right > 1e-6 {
		t.Fatalf("left peak %v in first half, right peak %v in second", left, right)
	}
}
