package params

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/osc"
)

func TestDefaultIsAlreadyClamped(t *testing.T) {
	d := Default()
	c := d
	c.Clamp()
	if c != d {
		t.Fatalf("Clamp changed the default:\n got %+v\nwant %+v", c, d)
	}
}

func TestSnapshotCopyIsIndependent(t *testing.T) {
	a := Default()
	b := a
	b.Osc[0].Level = 0.1
	b.Effects.Delay.TimeMs = 10
	if a.Osc[0].Level == 0.1 || a.Effects.Delay.TimeMs == 10 {
		t.Fatal("copy shares state with the original")
	}
}

func TestClampReplacesNaNAndOutOfRange(t *testing.T) {
	s := Default()
	s.Osc[1].Level = math.NaN()
	s.Osc[2].Waveform = osc.Waveform(200)
	s.Osc[0].Pitch = 99
	s.Filter.Cutoff = math.Inf(1)
	s.Filter.Resonance = -3
	s.Filter.Type = filter.Type(9)
	s.Filter.Slope = 36
	s.AmpEnv.Attack = 0
	s.LFO[0].Rate = math.NaN()
	s.MasterGain = 7
	s.Glide = -1
	s.Osc[0].Unison = 0
	s.Osc[1].Unison = 40
	s.Osc[2].FMSource = 7
	s.Osc[0].FMAmount = 50
	s.Osc[1].Pan = math.NaN()
	s.Osc[2].UnisonDetune = -5
	s.LFO[1].Pan = 2
	s.Clamp()

	d := Default()
	checks := []struct {
		name      string
		got, want float64
	}{
		{"osc2 level", s.Osc[1].Level, d.Osc[1].Level},
		{"osc3 waveform", float64(s.Osc[2].Waveform), float64(d.Osc[2].Waveform)},
		{"osc1 pitch", s.Osc[0].Pitch, 24},
		{"cutoff", s.Filter.Cutoff, 20000},
		{"resonance", s.Filter.Resonance, filter.MinQ},
		{"filter type", float64(s.Filter.Type), float64(filter.LowPass)},
		{"slope", float64(s.Filter.Slope), 12},
		{"attack", s.AmpEnv.Attack, 0.001},
		{"lfo rate", s.LFO[0].Rate, 2},
		{"master", s.MasterGain, 1},
		{"glide", s.Glide, 0},
		{"osc1 unison", float64(s.Osc[0].Unison), 1},
		{"osc2 unison", float64(s.Osc[1].Unison), MaxUnison},
		{"osc3 fm source", float64(s.Osc[2].FMSource), 0},
		{"osc1 fm amount", s.Osc[0].FMAmount, 10},
		{"osc2 pan", s.Osc[1].Pan, 0},
		{"osc3 unison detune", s.Osc[2].UnisonDetune, 0},
		{"lfo2 pan", s.LFO[1].Pan, 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	s := Default()
	if err := r.Set(&s, "filter.cutoff", 800); err != nil {
		t.Fatal(err)
	}
	if s.Filter.Cutoff != 800 {
		t.Fatalf("cutoff = %v", s.Filter.Cutoff)
	}
	v, err := r.Get(&s, "FILTER.CUTOFF")
	if err != nil || v != 800 {
		t.Fatalf("Get = %v, %v", v, err)
	}
	if err := r.Set(&s, "osc2.level", 5); err != nil || s.Osc[1].Level != 1 {
		t.Fatalf("Set clamps: level %v err %v", s.Osc[1].Level, err)
	}
}

func TestRegistryAssign(t *testing.T) {
	r := NewRegistry()
	s := Default()
	tests := []struct {
		in    string
		check func() bool
	}{
		{"osc1.waveform=triangle", func() bool { return s.Osc[0].Waveform == osc.WaveTriangle }},
		{"osc3.waveform = 5", func() bool { return s.Osc[2].Waveform == osc.WaveTable }},
		{"filter.type=hp", func() bool { return s.Filter.Type == filter.HighPass }},
		{"filter.slope=24", func() bool { return s.Filter.Slope == 24 }},
		{"fx.reverb.enabled=on", func() bool { return s.Effects.Reverb.Enabled }},
		{"fx.reverb.enabled=false", func() bool { return !s.Effects.Reverb.Enabled }},
		{"fx.dist.type=cubic", func() bool { return s.Effects.Distortion.Type.String() == "cubic" }},
		{"lfo2.waveform=s&h", func() bool { return s.LFO[1].Waveform.String() == "random" }},
		{"ampenv.release=1.5", func() bool { return s.AmpEnv.Release == 1.5 }},
		{"phasereset=1", func() bool { return s.PhaseReset }},
		{"osc1.fmsource=osc3", func() bool { return s.Osc[0].FMSource == 3 }},
		{"osc1.fmsource=off", func() bool { return s.Osc[0].FMSource == 0 }},
		{"osc2.unison=9", func() bool { return s.Osc[1].Unison == MaxUnison }},
		{"osc2.unison=2.6", func() bool { return s.Osc[1].Unison == 3 }},
		{"osc3.pan=-0.5", func() bool { return s.Osc[2].Pan == -0.5 }},
		{"lfo1.pan=0.25", func() bool { return s.LFO[0].Pan == 0.25 }},
	}
	for _, tt := range tests {
		if err := r.Assign(&s, tt.in); err != nil {
			t.Errorf("Assign(%q): %v", tt.in, err)
			continue
		}
		if !tt.check() {
			t.Errorf("Assign(%q) did not take effect", tt.in)
		}
	}
}

func TestRegistryErrors(t *testing.T) {
	r := NewRegistry()
	s := Default()
	if err := r.Set(&s, "nope", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Set unknown: %v", err)
	}
	if _, err := r.Get(&s, "nope"); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Get unknown: %v", err)
	}
	if err := r.Assign(&s, "filter.cutoff"); !errors.Is(err, ErrBadValue) {
		t.Errorf("Assign without '=': %v", err)
	}
	if err := r.Assign(&s, "filter.cutoff=loud"); !errors.Is(err, ErrBadValue) {
		t.Errorf("Assign bad number: %v", err)
	}
	if err := r.Assign(&s, "osc1.waveform=fm"); !errors.Is(err, ErrBadValue) {
		t.Errorf("Assign bad choice: %v", err)
	}
	if err := r.Set(&s, "master.gain", math.NaN()); !errors.Is(err, ErrBadValue) {
		t.Errorf("Set NaN: %v", err)
	}
}

func TestRegistryIDsUniqueAndDescribed(t *testing.T) {
	r := NewRegistry()
	ids := r.IDs()
	if len(ids) != r.Len() || len(ids) < 80 {
		t.Fatalf("registry has %d ids", len(ids))
	}
	s := Default()
	for _, id := range ids {
		info, ok := r.Lookup(id)
		if !ok || info.Min > info.Max {
			t.Fatalf("bad info for %s: %+v", id, info)
		}
		v, err := r.Get(&s, id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		if v < info.Min || v > info.Max {
			t.Errorf("default %s = %v outside [%v, %v]", id, v, info.Min, info.Max)
		}
	}
}

func TestDumpUsesChoiceNames(t *testing.T) {
	r := NewRegistry()
	s := Default()
	out := strings.Join(r.Dump(&s), "\n")
	for _, want := range []string{"osc1.waveform=saw", "filter.type=lowpass", "fx.delay.enabled=off", "master.gain=0.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q", want)
		}
	}
}
