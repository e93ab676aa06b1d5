package events

import (
	"errors"
	"sync"
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func TestConstructorsClamp(t *testing.T) {
	tests := []struct {
		got  Event
		want Event
	}{
		{On(60, 0.5), Event{Kind: NoteOn, Note: 60, Velocity: 0.5}},
		{On(200, 3), Event{Kind: NoteOn, Note: 200 & 0x7f, Velocity: 1}},
		{On(1, -1), Event{Kind: NoteOn, Note: 1}},
		{Off(129), Event{Kind: NoteOff, Note: 1}},
		{AllOff(), Event{Kind: AllNotesOff}},
	}
	for i, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("case %d: got %+v, want %+v", i, tt.got, tt.want)
		}
	}
}

func TestFromMIDI(t *testing.T) {
	tests := []struct {
		name string
		msg  midi.Message
		want Event
		ok   bool
	}{
		{"note on", midi.NoteOn(3, 64, 127), On(64, 1), true},
		{"note on zero velocity", midi.NoteOn(0, 64, 0), Off(64), true},
		{"note off", midi.NoteOff(0, 70), Off(70), true},
		{"all notes off", midi.ControlChange(0, 123, 0), AllOff(), true},
		{"all sound off", midi.ControlChange(9, 120, 0), AllOff(), true},
		{"mod wheel", midi.ControlChange(0, 1, 64), Event{}, false},
		{"pitch bend", midi.Pitchbend(0, 100), Event{}, false},
	}
	for _, tt := range tests {
		got, ok := FromMIDI(tt.msg)
		if ok != tt.ok || got != tt.want {
			t.Errorf("%s: got %+v, %v; want %+v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestQueueFIFOAndFull(t *testing.T) {
	q := NewQueue(4)
	for i := 0; i < 4; i++ {
		if err := q.Push(On(uint8(i), 1)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := q.Push(Off(9)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("push on full queue: %v", err)
	}
	dst := make([]Event, 3)
	if n := q.DrainInto(dst); n != 3 {
		t.Fatalf("drained %d, want 3", n)
	}
	for i := 0; i < 3; i++ {
		if dst[i].Note != uint8(i) {
			t.Fatalf("dst[%d] = %v", i, dst[i])
		}
	}
	// Wrap around the ring.
	if err := q.Push(Off(10)); err != nil {
		t.Fatal(err)
	}
	if n := q.DrainInto(dst); n != 2 || dst[0].Note != 3 || dst[1] != Off(10) {
		t.Fatalf("second drain: n=%d %v", n, dst[:2])
	}
	if q.Len() != 0 {
		t.Fatalf("len = %d", q.Len())
	}
}

func TestDrainSkipsWhenLocked(t *testing.T) {
	q := NewQueue(8)
	_ = q.Push(On(1, 1))
	q.mu.Lock()
	n := q.DrainInto(make([]Event, 8))
	q.mu.Unlock()
	if n != 0 {
		t.Fatalf("drained %d while locked", n)
	}
	if q.Len() != 1 {
		t.Fatal("event lost while locked")
	}
}

func TestConcurrentPushersPreserveOrderPerProducer(t *testing.T) {
	q := NewQueue(64)
	const perProducer = 2000
	var wg sync.WaitGroup
	for p := 0; p < 2; p++ {
		wg.Add(1)
		go func(note uint8) {
			defer wg.Done()
			for i := 0; i < perProducer; {
				if q.Push(Event{Kind: NoteOn, Note: note, Velocity: float32(i)}) == nil {
					i++
				}
			}
		}(uint8(p))
	}
	next := [2]float32{}
	got := 0
	dst := make([]Event, 16)
	for got < 2*perProducer {
		n := q.DrainInto(dst)
		for _, ev := range dst[:n] {
			if ev.Velocity != next[ev.Note] {
				t.Fatalf("producer %d: got %v, want %v", ev.Note, ev.Velocity, next[ev.Note])
			}
			next[ev.Note]++
		}
		got += n
	}
	wg.Wait()
}

func TestDrainDoesNotAllocate(t *testing.T) {
	q := NewQueue(32)
	dst := make([]Event, 32)
	allocs := testing.AllocsPerRun(100, func() {
		_ = q.Push(On(60, 1))
		_ = q.Push(Off(60))
		q.DrainInto(dst)
	})
	if allocs != 0 {
		t.Fatalf("allocated %.1f times per run", allocs)
	}
}
