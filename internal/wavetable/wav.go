package wavetable

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// maxCycleFrames bounds how long a WAV cycle may be.
const maxCycleFrames = 1 << 16

var ErrInvalidWAV = errors.New("wavetable: invalid WAV cycle")

// AddWAV reads a single-cycle PCM WAV file and adds its first channel as
// a table. The whole file is taken to be one cycle.
func (l *Library) AddWAV(name string, r io.ReadSeeker) error {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return fmt.Errorf("%q: %w", name, ErrInvalidWAV)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("%q: %w: %v", name, ErrInvalidWAV, err)
	}
	ch := int(dec.NumChans)
	if ch < 1 || dec.BitDepth == 0 || dec.BitDepth > 32 {
		return fmt.Errorf("%q: %w: %d channels, %d bits", name, ErrInvalidWAV, dec.NumChans, dec.BitDepth)
	}
	frames := len(buf.Data) / ch
	if frames > maxCycleFrames {
		return fmt.Errorf("%q: %w: %d frames is too long for one cycle", name, ErrInvalidWAV, frames)
	}
	full := float64(int64(1) << (dec.BitDepth - 1))
	cycle := make([]float64, frames)
	for i := range cycle {
		cycle[i] = float64(buf.Data[i*ch]) / full
	}
	return l.Add(name, cycle)
}
