package wavetable

import (
	"errors"
	"math"
	"testing"
)

func TestBuiltinOrderAndNormalization(t *testing.T) {
	l := Builtin()
	want := []string{"sine", "triangle", "saw", "square"}
	got := l.Names()
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	for i := 0; i < l.Len(); i++ {
		var peak, sum float64
		for k := 0; k < tableLen; k++ {
			v := l.Lookup(i, float64(k)/tableLen)
			sum += v
			peak = math.Max(peak, math.Abs(v))
		}
		if math.Abs(peak-1) > 1e-9 {
			t.Errorf("table %d peak = %f, want 1", i, peak)
		}
		if math.Abs(sum/tableLen) > 1e-9 {
			t.Errorf("table %d mean = %g, want 0", i, sum/tableLen)
		}
	}
}

func TestLookupSineQuarterPhase(t *testing.T) {
	l := Builtin()
	if v := l.Lookup(0, 0.25); math.Abs(v-1) > 1e-3 {
		t.Fatalf("sine at 0.25 = %f, want 1", v)
	}
	if v := l.Lookup(0, 1.75); math.Abs(v+1) > 1e-3 {
		t.Fatalf("sine at 1.75 (wrapped) = %f, want -1", v)
	}
}

func TestMorphEndpointsAndMidpoint(t *testing.T) {
	l := NewLibrary()
	if err := l.Add("low", []float64{1, 1, -1, -1}); err != nil {
		t.Fatalf("add low: %v", err)
	}
	if err := l.Add("high", []float64{-1, -1, 1, 1}); err != nil {
		t.Fatalf("add high: %v", err)
	}
	phase := 0.1
	a := l.Morph(0, phase)
	b := l.Morph(1, phase)
	if math.Abs(a-l.Lookup(0, phase)) > 1e-12 {
		t.Errorf("morph(0) = %f, want first table %f", a, l.Lookup(0, phase))
	}
	if math.Abs(b-l.Lookup(1, phase)) > 1e-12 {
		t.Errorf("morph(1) = %f, want last table %f", b, l.Lookup(1, phase))
	}
	if mid := l.Morph(0.5, phase); math.Abs(mid-(a+b)/2) > 1e-12 {
		t.Errorf("morph(0.5) = %f, want %f", mid, (a+b)/2)
	}
	if v := l.Morph(math.NaN(), phase); math.IsNaN(v) {
		t.Error("morph with NaN position returned NaN")
	}
}

func TestAddErrors(t *testing.T) {
	l := NewLibrary()
	if err := l.Add("empty", nil); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("empty add err = %v, want ErrEmptyTable", err)
	}
	if err := l.Add("a", []float64{0, 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.Add("a", []float64{0, 1}); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("duplicate add err = %v, want ErrDuplicateKey", err)
	}
	if err := l.AddWAVB("bad", "zz"); !errors.Is(err, ErrInvalidWAVB) {
		t.Fatalf("bad WAVB err = %v, want ErrInvalidWAVB", err)
	}
}

func TestParseWAVB(t *testing.T) {
	got := ParseWAVB("7f0081")
	want := []float64{1, 0, -1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d = %f, want %f", i, got[i], want[i])
		}
	}
	if ParseWAVB("") != nil {
		t.Error("empty input should return nil")
	}
}

func TestAddWAVBCopiesIntoLibrary(t *testing.T) {
	l := NewLibrary()
	if err := l.AddWAVB("ramp", "8090a0b0c0d0e0f000102030405060 70"); err == nil {
		t.Fatal("expected error for data with embedded space")
	}
	if err := l.AddWAVB("ramp", "8090a0b0c0d0e0f0001020304050607f"); err != nil {
		t.Fatalf("add ramp: %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("len = %d, want 1", l.Len())
	}
}
