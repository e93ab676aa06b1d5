package events

import (
	"errors"
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
)

// ErrQueueFull is returned by Queue.Push when the ring has no room.
var ErrQueueFull = errors.New("event queue full")

// Kind identifies a note event.
type Kind uint8

const (
	NoteOn Kind = iota
	NoteOff
	AllNotesOff
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	case AllNotesOff:
		return "all-notes-off"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is a note event for the render side.
type Event struct {
	Kind     Kind
	Note     uint8   // 0..127
	Velocity float32 // 0..1, NoteOn only
}

// On returns a NoteOn event; note is masked to 7 bits and velocity
// clamped to [0, 1].
func On(note uint8, velocity float32) Event {
	switch {
	case !(velocity > 0):
		velocity = 0
	case velocity > 1:
		velocity = 1
	}
	return Event{Kind: NoteOn, Note: note & 0x7f, Velocity: velocity}
}

// Off returns a NoteOff event.
func Off(note uint8) Event {
	return Event{Kind: NoteOff, Note: note & 0x7f}
}

// AllOff returns an AllNotesOff event.
func AllOff() Event {
	return Event{Kind: AllNotesOff}
}

func (e Event) String() string {
	if e.Kind == NoteOn {
		return fmt.Sprintf("%v %d %.3f", e.Kind, e.Note, e.Velocity)
	}
	if e.Kind == NoteOff {
		return fmt.Sprintf("%v %d", e.Kind, e.Note)
	}
	return e.Kind.String()
}

// MIDI controllers that silence every voice.
const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

// FromMIDI converts a live MIDI message. Channel is ignored. ok is false
// for messages that carry no note event.
func FromMIDI(msg midi.Message) (ev Event, ok bool) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return On(key, float32(vel)/127), true
	case msg.GetNoteEnd(&ch, &key):
		return Off(key), true
	case msg.GetControlChange(&ch, &key, &vel):
		if key == ccAllSoundOff || key == ccAllNotesOff {
			return AllOff(), true
		}
	}
	return Event{}, false
}

// Queue is a bounded FIFO ring of events guarded by a mutex. Producers
// call Push; the render side drains with DrainInto, which never waits
// for the lock.
type Queue struct {
	mu   sync.Mutex
	buf  []Event
	head int // next read
	n    int
}

// DefaultQueueSize is used when NewQueue is given a non-positive size.
const DefaultQueueSize = 256

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{buf: make([]Event, size)}
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return len(q.buf) }

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Push appends ev, or returns ErrQueueFull.
func (q *Queue) Push(ev Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == len(q.buf) {
		return ErrQueueFull
	}
	q.buf[(q.head+q.n)%len(q.buf)] = ev
	q.n++
	return nil
}

// DrainInto moves up to len(dst) events into dst in FIFO order and
// returns how many were moved. If the lock is held elsewhere it returns 0
// at once and the events stay queued for the next call.
func (q *Queue) DrainInto(dst []Event) int {
	if !q.mu.TryLock() {
		return 0
	}
	n := min(len(dst), q.n)
	for i := 0; i < n; i++ {
		dst[i] = q.buf[q.head]
		q.head++
		if q.head == len(q.buf) {
			q.head = 0
		}
	}
	q.n -= n
	q.mu.Unlock()
	return n
}

// Clear drops every queued event.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.head, q.n = 0, 0
	q.mu.Unlock()
}
