package phasor

import (
	"math"
	"math/bits"

	"github.com/cbegin/oscmusic-go/internal/anim"
)

const phaseRange = 1 << 32

// DefaultBits addresses a 4096 point table.
const DefaultBits = 12

// Increment returns floor(2^32 * freq / sampleRate), the per-sample phase step
// for freq. Non-positive inputs give 0; steps past the phase range saturate.
func Increment(freq, sampleRate float64) uint32 {
	if !(freq > 0) || !(sampleRate > 0) {
		return 0
	}
	inc := math.Floor(phaseRange * freq / sampleRate)
	if inc >= phaseRange {
		return math.MaxUint32
	}
	return uint32(inc)
}

// BitsFor returns the index width needed to address a table of n points.
func BitsFor(n int) int {
	if n <= 2 {
		return 1
	}
	b := bits.Len(uint(n - 1))
	if b > 32 {
		b = 32
	}
	return b
}

// Oscillator reads a 2D table with a 32-bit phase accumulator. The top Bits
// of the phase select the table entry; there is no interpolation.
type Oscillator struct {
	Bits int
}

// New returns an oscillator addressing 2^bits entries.
func New(bits int) Oscillator {
	if bits < 1 {
		bits = 1
	}
	if bits > 32 {
		bits = 32
	}
	return Oscillator{Bits: bits}
}

// Read fills dst from table starting at phase, advancing by inc per sample,
// and returns the phase following the last sample so consecutive blocks join
// without a discontinuity. An index past the end of a table whose length is
// not 2^Bits wraps modulo the length. An empty table yields zeros.
func (o Oscillator) Read(table anim.Frame, dst []anim.Point, phase, inc uint32) uint32 {
	n := uint32(len(table))
	if n == 0 {
		clear(dst)
		return phase + inc*uint32(len(dst))
	}
	shift := uint(32 - o.Bits)
	for i := range dst {
		idx := phase >> shift
		if idx >= n {
			idx %= n
		}
		dst[i] = table[idx]
		phase += inc
	}
	return phase
}
