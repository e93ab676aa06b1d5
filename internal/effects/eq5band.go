package effects

import (
	"math"
	"sync/atomic"
)

// Bands is the number of EQ5Band bands.
const Bands = 5

// MaxBandGain is the largest accepted EQ5Band gain (+12 dB).
const MaxBandGain = 4

// EQ5Band implements a 5-band equalizer whose gains may be changed from
// any goroutine while the audio goroutine processes.
// Bands are split at 200Hz, 800Hz, 2.5kHz, and 8kHz.
// Targets are stored as float32 bit patterns; the audio side glides
// toward them so host changes do not click.
type EQ5Band struct {
	targets [Bands]atomic.Uint32
	gains   [Bands]float32 // smoothed, audio goroutine only
	glide   float32
	alphas  [Bands - 1]float32 // crossover filter coefficients
	lpL     [Bands - 1]float32 // lowpass state per crossover, left
	lpR     [Bands - 1]float32 // lowpass state per crossover, right
}

var defaultCrossovers = [Bands - 1]float64{200, 800, 2500, 8000}

// NewEQ5Band creates a 5-band EQ with all gains at unity.
func NewEQ5Band(sampleRate int) *EQ5Band {
	eq := &EQ5Band{}
	dt := 1.0 / float64(sampleRate)
	for i, freq := range defaultCrossovers {
		rc := 1.0 / (2.0 * math.Pi * freq)
		eq.alphas[i] = float32(dt / (rc + dt))
	}
	// ~10 ms gain glide
	eq.glide = float32(1 - math.Exp(-1/(0.01*float64(sampleRate))))
	for i := range eq.targets {
		eq.targets[i].Store(math.Float32bits(1.0))
		eq.gains[i] = 1
	}
	return eq
}

// SetGain sets the gain for band (0-4). 1.0 = unity, 0.0 = silence,
// 2.0 = +6dB. Out-of-range bands are ignored.
func (eq *EQ5Band) SetGain(band int, gain float32) {
	if band >= 0 && band < Bands {
		eq.targets[band].Store(math.Float32bits(clamp(gain, 0, MaxBandGain)))
	}
}

// Gain returns the requested gain for band (0-4).
func (eq *EQ5Band) Gain(band int) float32 {
	if band >= 0 && band < Bands {
		return math.Float32frombits(eq.targets[band].Load())
	}
	return 1.0
}

func (eq *EQ5Band) Process(l, r float32) (float32, float32) {
	var outL, outR float32
	remL, remR := l, r
	for i := 0; i < Bands; i++ {
		var bl, br float32
		if i < Bands-1 {
			eq.lpL[i] += eq.alphas[i] * (remL - eq.lpL[i])
			eq.lpR[i] += eq.alphas[i] * (remR - eq.lpR[i])
			bl, br = eq.lpL[i], eq.lpR[i]
			remL -= bl
			remR -= br
		} else {
			bl, br = remL, remR
		}
		target := math.Float32frombits(eq.targets[i].Load())
		eq.gains[i] += eq.glide * (target - eq.gains[i])
		outL += bl * eq.gains[i]
		outR += br * eq.gains[i]
	}
	return outL, outR
}

func (eq *EQ5Band) Reset() {
	clear(eq.lpL[:])
	clear(eq.lpR[:])
	for i := range eq.gains {
		eq.gains[i] = math.Float32frombits(eq.targets[i].Load())
	}
}
