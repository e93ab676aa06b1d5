package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// beepLatency is the speaker buffer length.
const beepLatency = 50 * time.Millisecond

var (
	speakerOnce sync.Once
	speakerErr  error
	speakerRate int
)

func initSpeaker(sampleRate int) error {
	speakerOnce.Do(func() {
		speakerRate = sampleRate
		sr := beep.SampleRate(sampleRate)
		speakerErr = speaker.Init(sr, sr.N(beepLatency))
	})
	if speakerErr != nil {
		return speakerErr
	}
	if speakerRate != sampleRate {
		return fmt.Errorf("speaker already initialized at %d Hz (requested %d Hz)", speakerRate, sampleRate)
	}
	return nil
}

type beepOutput struct {
	ctrl   *beep.Ctrl
	frames frameBuffer
	closed bool
}

func newBeepOutput(sampleRate int, source SampleSource) (*beepOutput, error) {
	if err := initSpeaker(sampleRate); err != nil {
		return nil, err
	}
	o := &beepOutput{}
	stream := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		o.frames.fill(source, samples)
		if fs, ok := source.(FinishingSource); ok && fs.Finished() {
			return len(samples), false
		}
		return len(samples), true
	})
	o.ctrl = &beep.Ctrl{Streamer: stream, Paused: true}
	speaker.Play(o.ctrl)
	return o, nil
}

func (o *beepOutput) Play() {
	speaker.Lock()
	o.ctrl.Paused = false
	speaker.Unlock()
}

func (o *beepOutput) Pause() {
	speaker.Lock()
	o.ctrl.Paused = true
	speaker.Unlock()
}

func (o *beepOutput) IsPlaying() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return !o.ctrl.Paused && !o.closed
}

// Close detaches the stream from the shared speaker.
func (o *beepOutput) Close() error {
	speaker.Lock()
	o.ctrl.Paused = true
	o.ctrl.Streamer = nil
	o.closed = true
	speaker.Unlock()
	return nil
}
