package wavetable

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
)

const twoPi = math.Pi * 2

const (
	// CycleLen is the number of points a loaded cycle is resampled to
	// before oversampling.
	CycleLen = 256
	// Oversample is the factor applied to every table at load time.
	Oversample = 4

	tableLen  = CycleLen * Oversample
	maxTables = 64
)

var (
	ErrEmptyTable   = errors.New("wavetable: empty table")
	ErrLibraryFull  = errors.New("wavetable: library full")
	ErrInvalidWAVB  = errors.New("wavetable: invalid WAVB data")
	ErrDuplicateKey = errors.New("wavetable: duplicate table name")
)

type table struct {
	name    string
	samples []float64 // tableLen points, peak-normalized, zero mean
}

// Library is an ordered set of single-cycle tables. Tables are resampled,
// oversampled and normalized once when added; lookups never allocate.
// A Library must not be modified once it has been handed to an engine.
type Library struct {
	tables []table
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{}
}

// Builtin returns a library with sine, triangle, saw and square cycles, in
// that order, so a morph position sweeps from soft to bright.
func Builtin() *Library {
	l := NewLibrary()
	cycle := make([]float64, CycleLen)
	for i := range cycle {
		cycle[i] = math.Sin(twoPi * float64(i) / CycleLen)
	}
	_ = l.Add("sine", cycle)
	_ = l.Add("triangle", additive(CycleLen, func(k int) float64 {
		if k%2 == 0 {
			return 0
		}
		sign := 1.0
		if (k/2)%2 == 1 {
			sign = -1
		}
		return sign / float64(k*k)
	}))
	_ = l.Add("saw", additive(CycleLen, func(k int) float64 {
		return 1 / float64(k)
	}))
	_ = l.Add("square", additive(CycleLen, func(k int) float64 {
		if k%2 == 0 {
			return 0
		}
		return 1 / float64(k)
	}))
	return l
}

// additive builds a cycle from the first CycleLen/4 sine partials.
func additive(n int, amp func(k int) float64) []float64 {
	out := make([]float64, n)
	for k := 1; k <= n/4; k++ {
		a := amp(k)
		if a == 0 {
			continue
		}
		for i := range out {
			out[i] += a * math.Sin(twoPi*float64(k)*float64(i)/float64(n))
		}
	}
	return out
}

// Add stores a copy of one cycle of samples under name.
func (l *Library) Add(name string, cycle []float64) error {
	if len(cycle) == 0 {
		return fmt.Errorf("%q: %w", name, ErrEmptyTable)
	}
	if len(l.tables) >= maxTables {
		return ErrLibraryFull
	}
	for _, t := range l.tables {
		if t.name == name {
			return fmt.Errorf("%q: %w", name, ErrDuplicateKey)
		}
	}
	l.tables = append(l.tables, table{name: name, samples: prepare(cycle)})
	return nil
}

// AddWAVB decodes hex WAVB data (see ParseWAVB) and adds it as a table.
func (l *Library) AddWAVB(name, data string) error {
	samples := ParseWAVB(strings.TrimSpace(data))
	if samples == nil {
		return fmt.Errorf("%q: %w", name, ErrInvalidWAVB)
	}
	return l.Add(name, samples)
}

// Len returns the number of tables.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.tables)
}

// Names returns table names in morph order.
func (l *Library) Names() []string {
	out := make([]string, len(l.tables))
	for i, t := range l.tables {
		out[i] = t.name
	}
	return out
}

// Lookup reads table idx at phase [0,1) with linear interpolation.
func (l *Library) Lookup(idx int, phase float64) float64 {
	if l.Len() == 0 {
		return 0
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(l.tables) {
		idx = len(l.tables) - 1
	}
	return lerpTable(l.tables[idx].samples, phase)
}

// Morph crossfades linearly between the two tables adjacent to pos, where
// pos in [0,1] spans the whole library.
func (l *Library) Morph(pos, phase float64) float64 {
	n := l.Len()
	switch n {
	case 0:
		return 0
	case 1:
		return lerpTable(l.tables[0].samples, phase)
	}
	if !(pos > 0) {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	x := pos * float64(n-1)
	i := int(x)
	if i >= n-1 {
		return lerpTable(l.tables[n-1].samples, phase)
	}
	frac := x - float64(i)
	a := lerpTable(l.tables[i].samples, phase)
	if frac == 0 {
		return a
	}
	b := lerpTable(l.tables[i+1].samples, phase)
	return a + (b-a)*frac
}

func lerpTable(t []float64, phase float64) float64 {
	phase -= math.Floor(phase)
	pos := phase * float64(len(t))
	i := int(pos)
	if i >= len(t) {
		i = 0
	}
	j := i + 1
	if j == len(t) {
		j = 0
	}
	frac := pos - float64(i)
	return t[i] + (t[j]-t[i])*frac
}

// prepare resamples a cycle to tableLen points with periodic Catmull-Rom
// interpolation, removes DC and normalizes the peak to 1.
func prepare(cycle []float64) []float64 {
	n := len(cycle)
	out := make([]float64, tableLen)
	at := func(i int) float64 {
		i %= n
		if i < 0 {
			i += n
		}
		return cycle[i]
	}
	for i := range out {
		pos := float64(i) * float64(n) / tableLen
		k := int(pos)
		t := pos - float64(k)
		p0, p1, p2, p3 := at(k-1), at(k), at(k+1), at(k+2)
		out[i] = 0.5 * (2*p1 +
			(-p0+p2)*t +
			(2*p0-5*p1+4*p2-p3)*t*t +
			(-p0+3*p1-3*p2+p3)*t*t*t)
	}
	var mean float64
	for _, v := range out {
		mean += v
	}
	mean /= tableLen
	var peak float64
	for i := range out {
		out[i] -= mean
		if a := math.Abs(out[i]); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}

// ParseWAVB converts a hex string (pairs of hex digits representing signed 8-bit
// values) into a slice of float64 samples normalized to the range [-1, 1].
func ParseWAVB(h string) []float64 {
	data, err := hex.DecodeString(h)
	if err != nil || len(data) == 0 {
		return nil
	}
	out := make([]float64, len(data))
	for i, b := range data {
		out[i] = float64(int8(b)) / 127.0
	}
	return out
}
