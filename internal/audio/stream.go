package audio

import (
	"encoding/binary"
	"math"
)

// SampleSource fills interleaved float32 frames. The renderer is the only
// implementation outside tests.
type SampleSource interface {
	Process(dst []float32)
}

// StatusReporter receives the device's underflow flag once per callback.
type StatusReporter interface {
	ReportStatus(underflow bool)
}

// StreamReader adapts a SampleSource to the io.Reader pull model of the oto
// and ebiten players, emitting little-endian float32 samples. Read is called
// from a single player goroutine.
type StreamReader struct {
	source   SampleSource
	channels int
	buf      []float32
}

// NewStreamReader reads channels-wide frames from source; frames is a sizing
// hint for the first buffer.
func NewStreamReader(source SampleSource, channels, frames int) *StreamReader {
	if channels <= 0 {
		channels = 2
	}
	return &StreamReader{
		source:   source,
		channels: channels,
		buf:      make([]float32, max(frames, 0)*channels),
	}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	frameBytes := 4 * r.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	need := frames * r.channels
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i, v := range r.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return frames * frameBytes, nil
}

func (r *StreamReader) Close() error { return nil }
