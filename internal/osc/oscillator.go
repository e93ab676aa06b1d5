package osc

import (
	"fmt"
	"math"
	"strings"

	"github.com/cbegin/polysynth-go/internal/wavetable"
)

const twoPi = math.Pi * 2

const defaultNoiseSeed uint32 = 2463534242

// Kernel selects the inner-loop implementation used to generate and
// decimate the oversampled block. KernelScalar is the reference.
type Kernel uint8

const (
	KernelScalar Kernel = iota
	KernelUnrolled
)

func (k Kernel) String() string {
	switch k {
	case KernelScalar:
		return "scalar"
	case KernelUnrolled:
		return "unrolled"
	}
	return fmt.Sprintf("Kernel(%d)", int(k))
}

// ParseKernel resolves "scalar" or "unrolled".
func ParseKernel(s string) (Kernel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scalar":
		return KernelScalar, nil
	case "unrolled", "simd":
		return KernelUnrolled, nil
	}
	return 0, fmt.Errorf("unknown kernel %q (expected scalar|unrolled)", s)
}

type kernel interface {
	next(o *Oscillator) float64
}

type scalarKernel struct{}

type unrolledKernel struct{}

func kernelFor(k Kernel) kernel {
	if k == KernelUnrolled {
		return unrolledKernel{}
	}
	return scalarKernel{}
}

// Oscillator is a band-limited oscillator: it runs at Oversample times
// the output rate and decimates through a Downsampler.
type Oscillator struct {
	sampleRate float64
	phase      float64 // [0, 1)
	inc        float64 // phase increment per oversampled sample
	waveform   Waveform
	width      float64 // pulse width
	tablePos   float64
	tables     *wavetable.Library
	noise      uint32
	ds         Downsampler
	k          kernel
}

// Init prepares o for use. tables may be nil when WaveTable is never
// selected; the oscillator then falls back to a sine.
func (o *Oscillator) Init(sampleRate float64, k Kernel, tables *wavetable.Library) {
	*o = Oscillator{
		sampleRate: sampleRate,
		waveform:   WaveSine,
		width:      0.5,
		tables:     tables,
		noise:      defaultNoiseSeed,
		k:          kernelFor(k),
	}
}

// New returns an initialized oscillator.
func New(sampleRate float64, k Kernel, tables *wavetable.Library) *Oscillator {
	o := &Oscillator{}
	o.Init(sampleRate, k, tables)
	return o
}

// SetFrequency sets the output frequency in Hz. Non-finite values stop
// the phase; anything else is accepted and wrapped.
func (o *Oscillator) SetFrequency(hz float64) {
	inc := hz / (o.sampleRate * Oversample)
	if math.IsNaN(inc) || math.IsInf(inc, 0) {
		inc = 0
	}
	o.inc = inc
}

// Frequency returns the current output frequency in Hz.
func (o *Oscillator) Frequency() float64 {
	return o.inc * o.sampleRate * Oversample
}

func (o *Oscillator) SetWaveform(w Waveform) {
	if !w.Valid() {
		w = WaveSine
	}
	o.waveform = w
}

func (o *Oscillator) Waveform() Waveform { return o.waveform }

// SetShape maps shape in [-1, 1] to a pulse width of 0.5+0.4*shape.
func (o *Oscillator) SetShape(shape float64) {
	if !(shape >= -1) {
		shape = -1
	}
	if shape > 1 {
		shape = 1
	}
	o.width = 0.5 + 0.4*shape
}

// SetTablePos sets the wavetable morph position in [0, 1].
func (o *Oscillator) SetTablePos(pos float64) {
	o.tablePos = pos
}

// SetPhase sets the phase, wrapped into [0, 1).
func (o *Oscillator) SetPhase(p float64) {
	o.phase = wrap(p)
}

func (o *Oscillator) Phase() float64 { return o.phase }

// SetSeed reseeds the noise generator. Zero is replaced by the default.
func (o *Oscillator) SetSeed(seed uint32) {
	if seed == 0 {
		seed = defaultNoiseSeed
	}
	o.noise = seed
}

// Reset clears the decimation filter. Phase is kept.
func (o *Oscillator) Reset() {
	o.ds.Reset()
}

// Next returns one output-rate sample.
func (o *Oscillator) Next() float64 {
	return o.k.next(o)
}

func wrap(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	p -= math.Floor(p)
	if p >= 1 {
		p = 0
	}
	return p
}

func (o *Oscillator) advance() {
	o.phase = wrap(o.phase + o.inc)
}

func (o *Oscillator) nextNoise() float64 {
	x := o.noise
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	o.noise = x
	return float64(x)/float64(math.MaxUint32)*2 - 1
}

// raw evaluates the current waveform at phase p.
func (o *Oscillator) raw(p float64) float64 {
	switch o.waveform {
	case WaveSine:
		return math.Sin(twoPi * p)
	case WaveSaw:
		return 2*p - 1
	case WaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case WavePulse:
		if p < o.width {
			return 1
		}
		return -1
	case WaveTriangle:
		return 1 - 4*math.Abs(p-0.5)
	case WaveTable:
		if o.tables.Len() == 0 {
			return math.Sin(twoPi * p)
		}
		return o.tables.Morph(o.tablePos, p)
	case WaveNoise:
		return o.nextNoise()
	}
	return 0
}

func (scalarKernel) next(o *Oscillator) float64 {
	var raw [Oversample]float64
	for i := range raw {
		raw[i] = o.raw(o.phase)
		o.advance()
	}
	return o.ds.Process(&raw)
}

// next computes the four lane phases up front, dispatches on the
// waveform once per block and evaluates the lanes inline.
func (unrolledKernel) next(o *Oscillator) float64 {
	p0 := o.phase
	p1 := wrap(p0 + o.inc)
	p2 := wrap(p1 + o.inc)
	p3 := wrap(p2 + o.inc)
	o.phase = wrap(p3 + o.inc)

	var raw [Oversample]float64
	switch o.waveform {
	case WaveSine:
		raw[0] = math.Sin(twoPi * p0)
		raw[1] = math.Sin(twoPi * p1)
		raw[2] = math.Sin(twoPi * p2)
		raw[3] = math.Sin(twoPi * p3)
	case WaveSaw:
		raw[0] = 2*p0 - 1
		raw[1] = 2*p1 - 1
		raw[2] = 2*p2 - 1
		raw[3] = 2*p3 - 1
	case WaveSquare:
		raw[0] = sign(p0 < 0.5)
		raw[1] = sign(p1 < 0.5)
		raw[2] = sign(p2 < 0.5)
		raw[3] = sign(p3 < 0.5)
	case WavePulse:
		w := o.width
		raw[0] = sign(p0 < w)
		raw[1] = sign(p1 < w)
		raw[2] = sign(p2 < w)
		raw[3] = sign(p3 < w)
	case WaveTriangle:
		raw[0] = 1 - 4*math.Abs(p0-0.5)
		raw[1] = 1 - 4*math.Abs(p1-0.5)
		raw[2] = 1 - 4*math.Abs(p2-0.5)
		raw[3] = 1 - 4*math.Abs(p3-0.5)
	default:
		raw[0] = o.raw(p0)
		raw[1] = o.raw(p1)
		raw[2] = o.raw(p2)
		raw[3] = o.raw(p3)
	}
	return o.ds.processUnrolled(&raw)
}

func sign(pos bool) float64 {
	if pos {
		return 1
	}
	return -1
}
