// Package score holds timed note and parameter events for offline
// rendering and scripted playback, and reads them from Standard MIDI
// Files and Lua scripts.
package score

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cbegin/polysynth-go/internal/events"
)

// ErrUnknownFormat is returned by Load for unrecognised file extensions.
var ErrUnknownFormat = errors.New("unknown score format")

// Event is a note event or, when Param is set, a parameter assignment
// of the form "id=value".
type Event struct {
	At    time.Duration
	Note  events.Event
	Param string
}

func (e Event) String() string {
	if e.Param != "" {
		return fmt.Sprintf("%v set %s", e.At, e.Param)
	}
	return fmt.Sprintf("%v %v", e.At, e.Note)
}

// Score is a time-ordered list of events.
type Score struct {
	Events []Event
}

// Add appends a note event at the given time.
func (s *Score) Add(at time.Duration, ev events.Event) {
	s.Events = append(s.Events, Event{At: max(at, 0), Note: ev})
}

// Note adds a NoteOn at at and the matching NoteOff dur later.
func (s *Score) Note(at time.Duration, note uint8, velocity float32, dur time.Duration) {
	s.Add(at, events.On(note, velocity))
	s.Add(at+max(dur, 0), events.Off(note))
}

// Set appends a parameter assignment.
func (s *Score) Set(at time.Duration, assignment string) {
	s.Events = append(s.Events, Event{At: max(at, 0), Param: assignment})
}

// Sort orders events by time, keeping insertion order for equal times.
func (s *Score) Sort() {
	slices.SortStableFunc(s.Events, func(a, b Event) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
}

// End returns the time of the last event.
func (s *Score) End() time.Duration {
	var end time.Duration
	for _, ev := range s.Events {
		end = max(end, ev.At)
	}
	return end
}

// Load reads a score from path, choosing the reader by extension:
// .mid and .midi are Standard MIDI Files, .lua is a Lua script.
func Load(ctx context.Context, path string) (*Score, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi", ".smf":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadSMF(f)
	case ".lua":
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return RunLua(ctx, filepath.Base(path), string(src))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}
