package wavetable

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeCycle(t *testing.T, channels int, cycle []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cycle.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, 44100, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: 44100},
		SourceBitDepth: 16,
	}
	for _, v := range cycle {
		for c := 0; c < channels; c++ {
			buf.Data = append(buf.Data, int(math.Round(v*32767)))
		}
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAddWAVMatchesBuiltinSine(t *testing.T) {
	cycle := make([]float64, CycleLen)
	for i := range cycle {
		cycle[i] = math.Sin(twoPi * float64(i) / CycleLen)
	}
	for _, channels := range []int{1, 2} {
		f, err := os.Open(writeCycle(t, channels, cycle))
		if err != nil {
			t.Fatal(err)
		}
		l := NewLibrary()
		err = l.AddWAV("sine", f)
		f.Close()
		if err != nil {
			t.Fatalf("%d channels: %v", channels, err)
		}
		ref := Builtin()
		for k := 0; k < 64; k++ {
			p := float64(k) / 64
			if d := math.Abs(l.Lookup(0, p) - ref.Lookup(0, p)); d > 1e-3 {
				t.Fatalf("%d channels: phase %v differs by %g", channels, p, d)
			}
		}
	}
}

func TestAddWAVRejectsGarbage(t *testing.T) {
	l := NewLibrary()
	err := l.AddWAV("x", strings.NewReader("RIFF but not really a wave file"))
	if !errors.Is(err, ErrInvalidWAV) {
		t.Fatalf("err = %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("library has %d tables", l.Len())
	}
}
