package osc

import "math"

const (
	// Oversample is the ratio between the internal generation rate and
	// the output rate.
	Oversample = 4
	// Taps is the length of the decimation filter.
	Taps = 20
	// KaiserBeta shapes the Kaiser window of the decimation filter.
	KaiserBeta = 8.5
	// Cutoff is the decimation filter cutoff in cycles per oversampled
	// sample, placed just below the output Nyquist (0.5/Oversample).
	Cutoff = 0.45 / Oversample
)

// firCoeffs is computed once and shared read-only by every Downsampler.
var firCoeffs = designKaiserLowpass(Taps, KaiserBeta, Cutoff)

// Coefficients returns a copy of the decimation filter taps.
func Coefficients() [Taps]float64 {
	return firCoeffs
}

// designKaiserLowpass returns a windowed-sinc lowpass normalized to unity
// gain at DC.
func designKaiserLowpass(taps int, beta, cutoff float64) [Taps]float64 {
	var c [Taps]float64
	center := float64(taps-1) / 2
	i0beta := besselI0(beta)
	var sum float64
	for i := 0; i < taps; i++ {
		x := float64(i) - center
		var sinc float64
		if math.Abs(x) < 1e-9 {
			sinc = 2 * math.Pi * cutoff
		} else {
			sinc = math.Sin(2*math.Pi*cutoff*x) / x
		}
		alpha := x / center
		w := besselI0(beta*math.Sqrt(math.Max(0, 1-alpha*alpha))) / i0beta
		c[i] = sinc * w
		sum += c[i]
	}
	for i := range c {
		c[i] /= sum
	}
	return c
}

// besselI0 evaluates the zeroth-order modified Bessel function of the
// first kind by its power series.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	q := x * x / 4
	for k := 1; k < 32; k++ {
		term *= q / float64(k*k)
		sum += term
		if term < 1e-12*sum {
			break
		}
	}
	return sum
}

// Downsampler decimates Oversample input samples to one output sample
// through the shared Kaiser FIR. The delay line is stored twice so the
// newest Taps samples are always contiguous.
type Downsampler struct {
	buf [2 * Taps]float64
	idx int // next write position in [0, Taps)
}

func (d *Downsampler) push(raw *[Oversample]float64) {
	for _, s := range raw {
		d.buf[d.idx] = s
		d.buf[d.idx+Taps] = s
		d.idx++
		if d.idx == Taps {
			d.idx = 0
		}
	}
}

// Process pushes one block of oversampled input and returns the decimated
// sample. The convolution walks backwards from the newest sample.
func (d *Downsampler) Process(raw *[Oversample]float64) float64 {
	d.push(raw)
	var out float64
	j := d.idx
	for k := 0; k < Taps; k++ {
		j--
		if j < 0 {
			j = Taps - 1
		}
		out += d.buf[j] * firCoeffs[k]
	}
	return out
}

// processUnrolled computes the same convolution with four independent
// accumulators over the contiguous mirror of the delay line.
func (d *Downsampler) processUnrolled(raw *[Oversample]float64) float64 {
	d.push(raw)
	base := d.idx + Taps - 1
	w := d.buf[base-Taps+1 : base+1]
	var a0, a1, a2, a3 float64
	for k := 0; k < Taps; k += 4 {
		a0 += w[Taps-1-k] * firCoeffs[k]
		a1 += w[Taps-2-k] * firCoeffs[k+1]
		a2 += w[Taps-3-k] * firCoeffs[k+2]
		a3 += w[Taps-4-k] * firCoeffs[k+3]
	}
	return (a0 + a1) + (a2 + a3)
}

// Reset clears the delay line.
func (d *Downsampler) Reset() {
	d.buf = [2 * Taps]float64{}
	d.idx = 0
}
