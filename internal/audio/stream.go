package audio

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
)

// SampleSource produces interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// StreamReader adapts a SampleSource to an io.Reader of little-endian
// float32 stereo PCM, the format the ebiten and oto players consume.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	n := frames * 8
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

// frameBuffer converts between interleaved float32 and beep's [][2]float64
// frames without allocating once it has grown to the host block size.
type frameBuffer struct {
	buf []float32
}

func (f *frameBuffer) fill(source SampleSource, dst [][2]float64) {
	need := len(dst) * 2
	if cap(f.buf) < need {
		f.buf = make([]float32, need)
	}
	f.buf = f.buf[:need]
	source.Process(f.buf)
	for i := range dst {
		dst[i][0] = float64(f.buf[2*i])
		dst[i][1] = float64(f.buf[2*i+1])
	}
}
