// Package polysynth is a real-time polyphonic subtractive synthesizer:
// three band-limited oscillators per voice, a resonant filter, two
// envelopes and two LFOs, voice stealing, and a master effects rack.
package polysynth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	intaudio "github.com/cbegin/polysynth-go/internal/audio"
	intengine "github.com/cbegin/polysynth-go/internal/engine"
	intevents "github.com/cbegin/polysynth-go/internal/events"
	intosc "github.com/cbegin/polysynth-go/internal/osc"
	intparams "github.com/cbegin/polysynth-go/internal/params"
	intscore "github.com/cbegin/polysynth-go/internal/score"
	intwt "github.com/cbegin/polysynth-go/internal/wavetable"
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	polyphony  int
	mono       bool
	backend    intaudio.Backend
	kernel     intosc.Kernel
	queueSize  int
	wavetables *intwt.Library
	params     *intparams.Snapshot
	sampleTap  func([]float32)
	logger     *slog.Logger
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		polyphony: intengine.DefaultPolyphony,
		backend:   intaudio.BackendEbiten,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithPolyphony sets the number of voices (1..64).
func WithPolyphony(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.polyphony = n
	}
}

// WithMono switches to a single voice with last-note priority.
func WithMono(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.mono = enabled
	}
}

func WithBackend(b intaudio.Backend) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.backend = b
	}
}

func WithKernel(k intosc.Kernel) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.kernel = k
	}
}

// WithQueueSize sets the note event queue capacity.
func WithQueueSize(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.queueSize = n
	}
}

func WithWavetables(lib *intwt.Library) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.wavetables = lib
	}
}

// WithParams sets the initial sound.
func WithParams(s intparams.Snapshot) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.params = &s
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

func WithLogger(l *slog.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// Player drives an engine from the host side and owns the audio output.
// All methods are safe for concurrent use.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	engine     *intengine.Engine
	registry   *intparams.Registry
	params     intparams.Snapshot
	backend    intaudio.Backend
	audio      intaudio.Output
	volume     float64
	sampleTap  func([]float32)
	log        *slog.Logger
	dropped    atomic.Uint64
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	snap := intparams.Default()
	if cfg.params != nil {
		snap = *cfg.params
	}
	snap.Clamp()
	eng, err := intengine.New(intengine.Config{
		SampleRate: sampleRate,
		Polyphony:  cfg.polyphony,
		Mono:       cfg.mono,
		QueueSize:  cfg.queueSize,
		Kernel:     cfg.kernel,
		Wavetables: cfg.wavetables,
		Params:     &snap,
	})
	if err != nil {
		return nil, err
	}
	return &Player{
		sampleRate: sampleRate,
		engine:     eng,
		registry:   intparams.NewRegistry(),
		params:     snap,
		backend:    cfg.backend,
		volume:     1,
		sampleTap:  cfg.sampleTap,
		log:        cfg.logger,
	}, nil
}

// Process renders interleaved stereo frames. It is the audio source the
// backend pulls from and may also be called directly when no backend is
// started.
func (p *Player) Process(dst []float32) {
	p.engine.Process(dst)
	if p.sampleTap != nil {
		p.sampleTap(dst)
	}
}

// Start opens the audio backend and begins playback. Calling Start while
// already started is a no-op.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		return nil
	}
	out, err := intaudio.Open(p.backend, p.sampleRate, p)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", p.backend, err)
	}
	p.audio = out
	p.audio.Play()
	p.log.Info("audio started", "backend", p.backend, "sample_rate", p.sampleRate,
		"polyphony", p.engine.Polyphony(), "mono", p.engine.Mono())
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

// Stop silences every voice and closes the audio backend.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.engine.AllNotesOff()
	if p.audio == nil {
		return nil
	}
	err := p.audio.Close()
	p.audio = nil
	p.log.Info("audio stopped", "backend", p.backend, "dropped_events", p.dropped.Load())
	return err
}

// Send enqueues a note event. A full queue drops the event and returns
// an error wrapping events.ErrQueueFull.
func (p *Player) Send(ev intevents.Event) error {
	p.mu.Lock()
	err := p.engine.Send(ev)
	p.mu.Unlock()
	if err != nil {
		n := p.dropped.Add(1)
		p.log.Warn("note event dropped", "event", ev.String(), "dropped", n)
		return fmt.Errorf("send %v: %w", ev, err)
	}
	return nil
}

func (p *Player) NoteOn(note uint8, velocity float32) error {
	return p.Send(intevents.On(note, velocity))
}

func (p *Player) NoteOff(note uint8) error {
	return p.Send(intevents.Off(note))
}

func (p *Player) AllNotesOff() error {
	return p.Send(intevents.AllOff())
}

// DroppedEvents returns how many events were rejected by a full queue.
func (p *Player) DroppedEvents() uint64 { return p.dropped.Load() }

// SetParams replaces the whole sound. Values are clamped.
func (p *Player) SetParams(s intparams.Snapshot) {
	s.Clamp()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params = s
	p.engine.Publish(s)
}

// Params returns the current sound.
func (p *Player) Params() intparams.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

// SetParam sets one parameter by ID, e.g. "filter.cutoff".
func (p *Player) SetParam(id string, value float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.registry.Set(&p.params, id, value); err != nil {
		return err
	}
	p.params.Clamp()
	p.engine.Publish(p.params)
	return nil
}

// Assign applies an "id=value" assignment.
func (p *Player) Assign(assignment string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.registry.Assign(&p.params, assignment); err != nil {
		return err
	}
	p.params.Clamp()
	p.engine.Publish(p.params)
	return nil
}

// Registry returns the parameter ID registry.
func (p *Player) Registry() *intparams.Registry { return p.registry }

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if !(volume > 0) {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.engine.SetMasterGain(volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetEQBand sets the gain for a master EQ band (0-4). 1.0 = unity.
// Band frequencies: 0=<200Hz, 1=200-800Hz, 2=800-2.5kHz, 3=2.5-8kHz, 4=>8kHz.
// This takes effect immediately on the audio thread (lock-free).
func (p *Player) SetEQBand(band int, gain float32) {
	p.engine.MasterEQ().SetGain(band, gain)
}

// EQBand returns the current gain for a master EQ band (0-4).
func (p *Player) EQBand(band int) float32 {
	return p.engine.MasterEQ().Gain(band)
}

// ActiveVoices returns the number of sounding voices.
func (p *Player) ActiveVoices() int {
	return p.engine.ActiveVoiceCount()
}

func (p *Player) SampleRate() int { return p.sampleRate }

// PlayScore sends sc's events in real time, relative to the moment it is
// called, and returns when the last one has been sent or ctx is done.
// Every note is released when ctx ends early.
func (p *Player) PlayScore(ctx context.Context, sc *intscore.Score) error {
	ordered := intscore.Score{Events: append([]intscore.Event(nil), sc.Events...)}
	ordered.Sort()
	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C
	for _, ev := range ordered.Events {
		if wait := ev.At - time.Since(start); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				_ = p.AllNotesOff()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if ev.Param != "" {
			if err := p.Assign(ev.Param); err != nil {
				return fmt.Errorf("at %v: %w", ev.At, err)
			}
			continue
		}
		if err := p.Send(ev.Note); err != nil && !errors.Is(err, intevents.ErrQueueFull) {
			return err
		}
	}
	return nil
}
