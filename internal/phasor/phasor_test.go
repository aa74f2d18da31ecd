package phasor

import (
	"math"
	"testing"

	"github.com/cbegin/oscmusic-go/internal/anim"
)

func TestIncrementFormula(t *testing.T) {
	cases := []struct {
		freq, rate float64
	}{
		{50, 44100}, {440, 48000}, {0.2, 44100}, {2000, 44100}, {22050, 44100},
	}
	for _, c := range cases {
		want := uint32(math.Floor(math.Pow(2, 32) * c.freq / c.rate))
		if got := Increment(c.freq, c.rate); got != want {
			t.Fatalf("Increment(%v, %v) = %d, want %d", c.freq, c.rate, got, want)
		}
	}
	if got := Increment(0, 44100); got != 0 {
		t.Fatalf("Increment(0) = %d, want 0", got)
	}
	if got := Increment(100, 0); got != 0 {
		t.Fatalf("Increment with zero rate = %d, want 0", got)
	}
	if got := Increment(1e6, 44100); got != math.MaxUint32 {
		t.Fatalf("Increment over range = %d, want saturation", got)
	}
}

func TestPhaseAdvanceWraps(t *testing.T) {
	inc := Increment(1234.5, 44100)
	table := make(anim.Frame, 4096)
	osc := New(DefaultBits)
	for _, n := range []int{1, 17, 4096, 100000} {
		dst := make([]anim.Point, n)
		got := osc.Read(table, dst, 0, inc)
		want := uint32((uint64(n) * uint64(inc)) % (1 << 32))
		if got != want {
			t.Fatalf("phase after %d = %d, want %d", n, got, want)
		}
	}
}

func TestReadNeverIndexesOutOfRange(t *testing.T) {
	// 3000 is not a power of two, so the top 12 phase bits overshoot.
	table := make(anim.Frame, 3000)
	for i := range table {
		table[i] = anim.Point{X: float64(i), Y: -float64(i)}
	}
	osc := New(DefaultBits)
	dst := make([]anim.Point, 5000)
	osc.Read(table, dst, math.MaxUint32-1000, Increment(997, 44100))
	for i, p := range dst {
		if p.X < 0 || int(p.X) >= len(table) {
			t.Fatalf("sample %d read index %v outside table", i, p.X)
		}
	}
}

func TestReadUsesTopBits(t *testing.T) {
	table := make(anim.Frame, 4)
	for i := range table {
		table[i] = anim.Point{X: float64(i)}
	}
	osc := New(2)
	dst := make([]anim.Point, 8)
	osc.Read(table, dst, 0, 1<<29)
	want := []float64{0, 0, 1, 1, 2, 2, 3, 3}
	for i, w := range want {
		if dst[i].X != w {
			t.Fatalf("sample %d = %v, want %v", i, dst[i].X, w)
		}
	}
}

func TestBlocksComposeWithoutDiscontinuity(t *testing.T) {
	table := make(anim.Frame, 4096)
	for i := range table {
		table[i] = anim.Point{X: float64(i)}
	}
	osc := New(DefaultBits)
	inc := Increment(333, 44100)

	whole := make([]anim.Point, 1024)
	osc.Read(table, whole, 0, inc)

	parts := make([]anim.Point, 1024)
	phase := uint32(0)
	for off := 0; off < len(parts); off += 100 {
		end := min(off+100, len(parts))
		phase = osc.Read(table, parts[off:end], phase, inc)
	}
	for i := range whole {
		if whole[i] != parts[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, whole[i], parts[i])
		}
	}
}

func TestEmptyTableYieldsSilence(t *testing.T) {
	dst := []anim.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}
	got := New(DefaultBits).Read(nil, dst, 10, 5)
	if got != 20 {
		t.Fatalf("phase = %d, want 20", got)
	}
	for i, p := range dst {
		if p != (anim.Point{}) {
			t.Fatalf("sample %d = %v, want zero", i, p)
		}
	}
}

func TestBitsFor(t *testing.T) {
	cases := map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 4096: 12, 4097: 13, 3000: 12}
	for n, want := range cases {
		if got := BitsFor(n); got != want {
			t.Fatalf("BitsFor(%d) = %d, want %d", n, got, want)
		}
	}
}
