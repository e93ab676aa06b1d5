package score

import (
	"fmt"
	"io"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/polysynth-go/internal/events"
)

// ReadSMF converts the note events of every track in a Standard MIDI File
// into a score. Channels are merged; tempo changes are honoured.
func ReadSMF(r io.Reader) (*Score, error) {
	s := &Score{}
	err := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		ev, ok := events.FromMIDI(midi.Message(te.Message))
		if !ok {
			return
		}
		s.Add(time.Duration(te.AbsMicroSeconds)*time.Microsecond, ev)
	}).Error()
	if err != nil {
		return nil, fmt.Errorf("read midi file: %w", err)
	}
	s.Sort()
	return s, nil
}
