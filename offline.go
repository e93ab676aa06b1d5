package polysynth

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	intengine "github.com/cbegin/polysynth-go/internal/engine"
	intevents "github.com/cbegin/polysynth-go/internal/events"
	intosc "github.com/cbegin/polysynth-go/internal/osc"
	intparams "github.com/cbegin/polysynth-go/internal/params"
	intscore "github.com/cbegin/polysynth-go/internal/score"
	intwt "github.com/cbegin/polysynth-go/internal/wavetable"
)

// DefaultTail is how long Render keeps going after the last event so
// releases and effect tails can ring out.
const DefaultTail = 2 * time.Second

// RenderConfig configures an offline render.
type RenderConfig struct {
	SampleRate int
	Polyphony  int
	Mono       bool
	Kernel     intosc.Kernel
	Params     *intparams.Snapshot
	Wavetables *intwt.Library
	Tail       time.Duration // 0 means DefaultTail
}

// Render plays sc through a fresh engine and returns interleaved stereo
// samples. The same score and config always produce the same samples.
func Render(sc *intscore.Score, cfg RenderConfig) ([]float32, error) {
	if sc == nil {
		return nil, errors.New("nil score")
	}
	snap := intparams.Default()
	if cfg.Params != nil {
		snap = *cfg.Params
	}
	eng, err := intengine.New(intengine.Config{
		SampleRate: cfg.SampleRate,
		Polyphony:  cfg.Polyphony,
		Mono:       cfg.Mono,
		Kernel:     cfg.Kernel,
		Wavetables: cfg.Wavetables,
		Params:     &snap,
	})
	if err != nil {
		return nil, err
	}
	tail := cfg.Tail
	if tail <= 0 {
		tail = DefaultTail
	}

	events := append([]intscore.Event(nil), sc.Events...)
	ordered := intscore.Score{Events: events}
	ordered.Sort()

	sr := cfg.SampleRate
	total := frameAt(ordered.End()+tail, sr)
	out := make([]float32, total*2)
	reg := intparams.NewRegistry()
	pos := 0
	advance := func(to int) {
		to = min(to, total)
		if to > pos {
			eng.Process(out[pos*2 : to*2])
			pos = to
		}
	}
	for _, ev := range ordered.Events {
		advance(frameAt(ev.At, sr))
		if ev.Param != "" {
			if err := reg.Assign(&snap, ev.Param); err != nil {
				return nil, fmt.Errorf("at %v: %w", ev.At, err)
			}
			eng.Publish(snap)
			continue
		}
		for {
			err := eng.Send(ev.Note)
			if err == nil {
				break
			}
			if !errors.Is(err, intevents.ErrQueueFull) || pos >= total {
				return nil, err
			}
			// Let the next block drain the queue.
			advance(pos + intengine.BlockSize)
		}
	}
	advance(total)
	return out, nil
}

func frameAt(t time.Duration, sampleRate int) int {
	return int(math.Round(t.Seconds() * float64(sampleRate)))
}

// WriteWAV encodes interleaved stereo samples as PCM WAV. bitDepth is 16
// or 24. Samples are clipped to [-1, 1].
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate, bitDepth int) error {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 2, 1)
	scale := float64(int(1)<<(bitDepth-1) - 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 2,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(samples)&^1),
		SourceBitDepth: bitDepth,
	}
	for i := range buf.Data {
		v := float64(samples[i])
		if v != v {
			v = 0
		}
		buf.Data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * scale))
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}
