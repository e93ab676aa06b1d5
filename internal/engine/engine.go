// Package engine is the polyphonic voice manager and mixer. The control
// side publishes parameter snapshots and enqueues note events; the render
// side pulls stereo samples through Process.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/events"
	"github.com/cbegin/polysynth-go/internal/exchange"
	"github.com/cbegin/polysynth-go/internal/osc"
	"github.com/cbegin/polysynth-go/internal/params"
	"github.com/cbegin/polysynth-go/internal/voice"
	"github.com/cbegin/polysynth-go/internal/wavetable"
)

// ErrInvalidConfig is wrapped by every error New returns.
var ErrInvalidConfig = errors.New("invalid engine config")

const (
	DefaultPolyphony = 16
	MaxPolyphony     = 64
	MaxSampleRate    = 384000

	// BlockSize is the number of frames between snapshot and event
	// adoption.
	BlockSize = 32
	// rmsInterval is the number of frames between voice level updates.
	rmsInterval = 128

	gainCompExp  = 0.35
	gainCompTime = 0.01 // seconds
)

// Config fixes the engine shape for its whole lifetime.
type Config struct {
	SampleRate int
	Polyphony  int // 1..MaxPolyphony, 0 means DefaultPolyphony
	Mono       bool
	QueueSize  int // 0 means events.DefaultQueueSize
	Kernel     osc.Kernel
	Wavetables *wavetable.Library
	Params     *params.Snapshot // initial sound, nil means params.Default
}

// Engine owns the voices and the master effects. Publish, Send and the
// note helpers belong to a single control goroutine; Process and Render
// belong to a single render goroutine. SetMasterGain, MasterGain,
// ActiveVoiceCount and MasterEQ are safe from anywhere.
type Engine struct {
	sampleRate float64
	mono       bool
	voices     []voice.Voice
	pan        [][2]float64
	spread     float64

	snap    params.Snapshot // render side
	pending *exchange.TripleBuffer[params.Snapshot]
	queue   *events.Queue
	scratch []events.Event

	rack      *effects.Rack
	stack     NoteStack
	seq       uint64
	blockLeft int
	rmsPhase  int

	comp     float64
	compCoef float64
	gain     float64 // snapshot master × host master, per block

	masterGain atomic.Uint64
	active     atomic.Int32
}

// New validates cfg and builds an engine. All render-side memory is
// allocated here.
func New(cfg Config) (*Engine, error) {
	if cfg.SampleRate <= 0 || cfg.SampleRate > MaxSampleRate {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, cfg.SampleRate)
	}
	if cfg.Polyphony == 0 {
		cfg.Polyphony = DefaultPolyphony
	}
	if cfg.Polyphony < 1 || cfg.Polyphony > MaxPolyphony {
		return nil, fmt.Errorf("%w: polyphony %d outside 1..%d", ErrInvalidConfig, cfg.Polyphony, MaxPolyphony)
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("%w: queue size %d", ErrInvalidConfig, cfg.QueueSize)
	}
	if cfg.Kernel != osc.KernelScalar && cfg.Kernel != osc.KernelUnrolled {
		return nil, fmt.Errorf("%w: kernel %v", ErrInvalidConfig, cfg.Kernel)
	}

	snap := params.Default()
	if cfg.Params != nil {
		snap = *cfg.Params
	}
	snap.Clamp()

	n := cfg.Polyphony
	if cfg.Mono {
		n = 1
	}
	sr := float64(cfg.SampleRate)
	queue := events.NewQueue(cfg.QueueSize)
	e := &Engine{
		sampleRate: sr,
		mono:       cfg.Mono,
		voices:     make([]voice.Voice, n),
		pan:        make([][2]float64, n),
		snap:       snap,
		pending:    exchange.NewTripleBuffer(snap),
		queue:      queue,
		scratch:    make([]events.Event, queue.Cap()),
		rack:       effects.NewRack(cfg.SampleRate),
		comp:       1,
		compCoef:   1 - math.Exp(-1/(gainCompTime*sr)),
	}
	for i := range e.voices {
		e.voices[i].Init(sr, cfg.Kernel, cfg.Wavetables, i)
	}
	e.SetMasterGain(1)
	e.spread = snap.Spread
	e.updatePan()
	e.adopt()
	return e, nil
}

func (e *Engine) SampleRate() int { return int(e.sampleRate) }

func (e *Engine) Mono() bool { return e.mono }

// Polyphony returns the number of voices.
func (e *Engine) Polyphony() int { return len(e.voices) }

// Publish makes s the sound used from the next block on. It never blocks.
func (e *Engine) Publish(s params.Snapshot) {
	e.pending.Publish(s)
}

// Send enqueues ev for the next block. It returns events.ErrQueueFull
// when the queue has no room.
func (e *Engine) Send(ev events.Event) error {
	return e.queue.Push(ev)
}

func (e *Engine) NoteOn(note uint8, velocity float32) error {
	return e.Send(events.On(note, velocity))
}

func (e *Engine) NoteOff(note uint8) error {
	return e.Send(events.Off(note))
}

func (e *Engine) AllNotesOff() error {
	return e.Send(events.AllOff())
}

// SetMasterGain sets the host gain applied after the snapshot master
// gain. Negative and NaN values become 0.
func (e *Engine) SetMasterGain(gain float64) {
	if !(gain > 0) {
		gain = 0
	}
	e.masterGain.Store(math.Float64bits(gain))
}

func (e *Engine) MasterGain() float64 {
	return math.Float64frombits(e.masterGain.Load())
}

// ActiveVoiceCount returns the number of non-idle voices as of the last
// block.
func (e *Engine) ActiveVoiceCount() int {
	return int(e.active.Load())
}

// MasterEQ exposes the host 5-band EQ.
func (e *Engine) MasterEQ() *effects.EQ5Band {
	return e.rack.MasterEQ()
}

// Process fills dst with interleaved stereo frames. A trailing odd
// sample is zeroed.
func (e *Engine) Process(dst []float32) {
	n := len(dst) &^ 1
	for i := 0; i < n; i += 2 {
		dst[i], dst[i+1] = e.frame()
	}
	if n < len(dst) {
		dst[n] = 0
	}
}

// Render fills left and right with min(len(left), len(right)) frames.
func (e *Engine) Render(left, right []float32) {
	n := min(len(left), len(right))
	for i := 0; i < n; i++ {
		left[i], right[i] = e.frame()
	}
}

func (e *Engine) frame() (float32, float32) {
	if e.blockLeft == 0 {
		e.startBlock()
	}
	e.blockLeft--

	var l, r float64
	n := 0
	for i := range e.voices {
		v := &e.voices[i]
		if v.State() == voice.Idle {
			continue
		}
		n++
		vl, vr := v.Render(&e.snap)
		l += vl * e.pan[i][0]
		r += vr * e.pan[i][1]
	}
	target := 1.0
	if n > 1 {
		target = math.Pow(float64(n), -gainCompExp)
	}
	e.comp += e.compCoef * (target - e.comp)
	g := e.comp * e.gain
	return e.rack.Process(float32(l*g), float32(r*g))
}

func (e *Engine) startBlock() {
	e.blockLeft = BlockSize
	if e.pending.Fetch(&e.snap) {
		e.snap.Clamp()
		e.adopt()
	}
	n := e.queue.DrainInto(e.scratch)
	for _, ev := range e.scratch[:n] {
		e.handle(ev)
	}
	if e.rmsPhase == 0 {
		for i := range e.voices {
			if e.voices[i].State() != voice.Idle {
				e.voices[i].UpdateRMS()
			}
		}
	}
	e.rmsPhase = (e.rmsPhase + BlockSize) % rmsInterval

	active := 0
	for i := range e.voices {
		if e.voices[i].State() != voice.Idle {
			active++
		}
	}
	e.active.Store(int32(active))
	e.gain = e.snap.MasterGain * e.MasterGain()
}

// adopt pushes e.snap into the voices and effects.
func (e *Engine) adopt() {
	for i := range e.voices {
		e.voices[i].Apply(&e.snap)
	}
	e.rack.Apply(e.snap.Effects)
	if e.snap.Spread != e.spread {
		e.spread = e.snap.Spread
		e.updatePan()
	}
}

// updatePan spreads the voice slots across the stereo field with an
// equal-power law.
func (e *Engine) updatePan() {
	n := len(e.voices)
	for i := range e.pan {
		pos := 0.0
		if n > 1 {
			pos = float64(i)/float64(n-1)*2 - 1
		}
		theta := (pos*e.spread + 1) * math.Pi / 4
		e.pan[i] = [2]float64{math.Cos(theta), math.Sin(theta)}
	}
}

func (e *Engine) handle(ev events.Event) {
	switch ev.Kind {
	case events.NoteOn:
		if e.mono {
			e.monoNoteOn(ev.Note, float64(ev.Velocity))
		} else {
			e.polyNoteOn(ev.Note, float64(ev.Velocity))
		}
	case events.NoteOff:
		e.noteOff(ev.Note)
	case events.AllNotesOff:
		e.stack.Clear()
		for i := range e.voices {
			e.voices[i].Kill()
		}
	}
}

func (e *Engine) noteOff(note uint8) {
	if e.mono {
		e.monoNoteOff(note)
		return
	}
	for i := range e.voices {
		v := &e.voices[i]
		if v.State() == voice.Active && v.Note() == note {
			v.Release()
		}
	}
}

func (e *Engine) trigger(v *voice.Voice, note uint8, velocity float64) {
	e.seq++
	v.Trigger(note, velocity, e.seq, &e.snap)
}

func (e *Engine) polyNoteOn(note uint8, velocity float64) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.State() != voice.Idle && v.Note() == note {
			e.trigger(v, note, velocity)
			return
		}
	}
	e.trigger(&e.voices[e.allocate()], note, velocity)
}

// allocate returns the lowest-index idle voice, or failing that the
// quietest one, the oldest among equals.
func (e *Engine) allocate() int {
	for i := range e.voices {
		if e.voices[i].State() == voice.Idle {
			return i
		}
	}
	best := 0
	for i := 1; i < len(e.voices); i++ {
		v, b := &e.voices[i], &e.voices[best]
		if v.RMS() < b.RMS() || (v.RMS() == b.RMS() && v.Seq() < b.Seq()) {
			best = i
		}
	}
	return best
}

func (e *Engine) monoNoteOn(note uint8, velocity float64) {
	wasEmpty := e.stack.Len() == 0
	e.stack.Push(note)
	v := &e.voices[0]
	if wasEmpty || v.State() == voice.Idle {
		e.trigger(v, note, velocity)
		return
	}
	v.Retune(note, velocity, &e.snap)
}

func (e *Engine) monoNoteOff(note uint8) {
	if !e.stack.Remove(note) {
		return
	}
	v := &e.voices[0]
	top, ok := e.stack.Top()
	if !ok {
		v.Release()
		return
	}
	if top != v.Note() && v.State() != voice.Idle {
		v.Retune(top, v.Velocity(), &e.snap)
	}
}
