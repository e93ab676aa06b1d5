package main

import (
	"testing"
	"time"

	"github.com/cbegin/polysynth-go"
)

func TestKeyNote(t *testing.T) {
	tests := []struct {
		key    byte
		octave int
		want   uint8
		ok     bool
	}{
		{'a', 4, 60, true},
		{'w', 4, 61, true},
		{'k', 4, 72, true},
		{'a', -1, 0, true},
		{'\'', 9, 0, false},
		{'m', 4, 0, false},
	}
	for _, tt := range tests {
		got, ok := keyNote(tt.key, tt.octave)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("keyNote(%q, %d) = %d, %v; want %d, %v", tt.key, tt.octave, got, ok, tt.want, tt.ok)
		}
	}
}

func TestKeyboardHoldsThenReleases(t *testing.T) {
	pl, err := polysynth.NewPlayer(48000)
	if err != nil {
		t.Fatal(err)
	}
	kb := newKeyboard(pl, 20*time.Millisecond, 4)
	buf := make([]float32, 512)
	if more, err := kb.press('a'); !more || err != nil {
		t.Fatalf("press = %v, %v", more, err)
	}
	pl.Process(buf)
	if pl.ActiveVoices() != 1 {
		t.Fatalf("active = %d", pl.ActiveVoices())
	}
	time.Sleep(60 * time.Millisecond)
	kb.mu.Lock()
	held := len(kb.timers)
	kb.mu.Unlock()
	if held != 0 {
		t.Fatalf("%d notes still held", held)
	}

	kb.press('x')
	if kb.octave != 5 {
		t.Fatalf("octave = %d", kb.octave)
	}
	if more, _ := kb.press('q'); more {
		t.Fatal("q did not quit")
	}
}
