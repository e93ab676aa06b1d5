package audio

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBackend is returned for backend names Open does not know.
var ErrUnknownBackend = errors.New("unknown audio backend")

// Backend names an audio output library.
type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
	BackendBeep   Backend = "beep"
)

// Backends lists every supported backend, default first.
func Backends() []Backend {
	return []Backend{BackendEbiten, BackendOto, BackendBeep}
}

func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return BackendEbiten, nil
	}
	for _, known := range Backends() {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// Output is a running device stream pulling from a SampleSource.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// Open starts a paused output on backend pulling stereo frames from
// source at sampleRate. Every backend shares its device context across
// calls, so all outputs in a process must use the same rate.
func Open(backend Backend, sampleRate int, source SampleSource) (Output, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	switch backend {
	case BackendEbiten, "":
		return newEbitenOutput(sampleRate, source)
	case BackendOto:
		return newOtoOutput(sampleRate, source)
	case BackendBeep:
		return newBeepOutput(sampleRate, source)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, string(backend))
}
