package effects

import (
	"fmt"
	"math"
	"strings"
)

// DistortionType selects the waveshaping curve.
type DistortionType uint8

const (
	DistTanh DistortionType = iota
	DistSoft
	DistHard
	DistCubic
	numDistortionTypes
)

var distortionNames = [numDistortionTypes]string{"tanh", "soft", "hard", "cubic"}

func (t DistortionType) String() string {
	if t < numDistortionTypes {
		return distortionNames[t]
	}
	return fmt.Sprintf("DistortionType(%d)", int(t))
}

func (t DistortionType) Valid() bool { return t < numDistortionTypes }

func ParseDistortionType(s string) (DistortionType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range distortionNames {
		if s == n {
			return DistortionType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown distortion type %q", s)
}

// Distortion implements waveshaping distortion with a dry/wet mix.
type Distortion struct {
	typ      DistortionType
	preGain  float32
	postGain float32
	wet      float32
}

// NewDistortion creates a distortion effect.
// drive: input gain, 1..20 (higher = more distortion)
// wet: wet/dry mix 0..1
func NewDistortion(typ DistortionType, drive, wet float32) *Distortion {
	d := &Distortion{}
	d.Set(typ, drive, wet)
	return d
}

// Set updates the curve, drive and mix. The post gain keeps a full-scale
// input near full scale whatever the drive.
func (d *Distortion) Set(typ DistortionType, drive, wet float32) {
	if !typ.Valid() {
		typ = DistTanh
	}
	d.typ = typ
	d.preGain = clamp(drive, 1, 20)
	d.wet = clamp(wet, 0, 1)
	d.postGain = 1 / d.shape(d.preGain)
}

func (d *Distortion) shape(x float32) float32 {
	switch d.typ {
	case DistSoft:
		return x / (1 + float32(math.Abs(float64(x))))
	case DistHard:
		return clamp(x, -1, 1)
	case DistCubic:
		x = clamp(x, -1, 1)
		return 1.5 * (x - x*x*x/3)
	}
	return float32(math.Tanh(float64(x)))
}

func (d *Distortion) Process(l, r float32) (float32, float32) {
	wl := d.shape(l*d.preGain) * d.postGain
	wr := d.shape(r*d.preGain) * d.postGain
	return l*(1-d.wet) + wl*d.wet, r*(1-d.wet) + wr*d.wet
}

func (d *Distortion) Reset() {}
