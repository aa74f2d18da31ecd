package render

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cbegin/oscmusic-go/internal/anim"
	"github.com/cbegin/oscmusic-go/internal/params"
	"github.com/cbegin/oscmusic-go/internal/phasor"
)

func newTestRenderer(t *testing.T, channels int, mode LayoutMode, block int) (*Renderer, *Wavetable, *atomic.Bool, *params.State) {
	t.Helper()
	layout, err := NewLayout(channels, mode)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	st := params.New(44100, 1, params.DefaultValues())
	table := &Wavetable{}
	stop := &atomic.Bool{}
	r := New(Config{SampleRate: 44100, BlockSize: block, Layout: layout}, st, table, stop)
	return r, table, stop, st
}

func TestEightChannelMirrorRouting(t *testing.T) {
	r, table, _, _ := newTestRenderer(t, 8, LayoutMirror, 64)
	table.Publish(anim.Frame{{X: 1, Y: -1}, {X: 1, Y: -1}})

	out := make([]float32, 64*8)
	r.Process(out)
	for f := 0; f < 64; f++ {
		fr := out[f*8 : f*8+8]
		want := []float32{1, -1, 1, -1, 0, 0, 0, 0}
		for c := range want {
			if fr[c] != want[c] {
				t.Fatalf("frame %d channel %d = %v, want %v", f, c, fr[c], want[c])
			}
		}
	}
}

func TestFillLayoutUsesEveryPair(t *testing.T) {
	r, table, _, _ := newTestRenderer(t, 6, LayoutFill, 16)
	table.Publish(anim.Frame{{X: 0.5, Y: -0.25}})
	out := make([]float32, 16*6)
	r.Process(out)
	for c := 0; c < 6; c += 2 {
		if out[c] != 1 || out[c+1] != -0.5 {
			t.Fatalf("pair %d = (%v, %v), want (1, -0.5)", c, out[c], out[c+1])
		}
	}
}

func TestStereoLayoutIsDirect(t *testing.T) {
	r, table, _, _ := newTestRenderer(t, 2, LayoutMirror, 8)
	table.Publish(anim.Frame{{X: -1, Y: 1}})
	out := make([]float32, 16)
	r.Process(out)
	for f := 0; f < 8; f++ {
		if out[2*f] != -1 || out[2*f+1] != 1 {
			t.Fatalf("frame %d = (%v, %v)", f, out[2*f], out[2*f+1])
		}
	}
}

func TestInvalidChannelCounts(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 7} {
		if _, err := NewLayout(n, LayoutMirror); !errors.Is(err, ErrChannelLayout) {
			t.Fatalf("NewLayout(%d) err = %v, want ErrChannelLayout", n, err)
		}
	}
	if _, err := ParseLayoutMode("surround"); !errors.Is(err, ErrChannelLayout) {
		t.Fatalf("ParseLayoutMode err = %v, want ErrChannelLayout", err)
	}
}

func TestStopFlagSilences(t *testing.T) {
	r, table, stop, _ := newTestRenderer(t, 2, LayoutMirror, 32)
	table.Publish(anim.Frame{{X: 1, Y: 1}})
	stop.Store(true)
	out := make([]float32, 64)
	for i := range out {
		out[i] = 9
	}
	r.Process(out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %v, want silence", i, v)
		}
	}
	if got := r.Stats().Silent; got != 1 {
		t.Fatalf("silent blocks = %d, want 1", got)
	}
}

func TestNoWavetableIsSilence(t *testing.T) {
	r, _, _, _ := newTestRenderer(t, 2, LayoutMirror, 32)
	out := []float32{3, 3, 3, 3}
	r.Process(out)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d = %v, want 0", i, v)
		}
	}
}

func TestProcessFollowsFrequencyAndKeepsPhase(t *testing.T) {
	r, table, _, st := newTestRenderer(t, 2, LayoutMirror, 100)
	ramp := make(anim.Frame, 4096)
	for i := range ramp {
		ramp[i] = anim.Point{X: float64(i+1) / 4096, Y: 1}
	}
	table.Publish(ramp)
	st.SetFrequency(440)

	// A request larger than the block size is rendered in chunks.
	out := make([]float32, 2*250)
	r.Process(out)
	inc := phasor.Increment(440, 44100)
	want := uint32(250) * inc
	if r.phase != want {
		t.Fatalf("phase = %d, want %d", r.phase, want)
	}
	for i := 0; i < 250; i++ {
		if v := out[2*i]; v < 0 || v > 1 || math.IsNaN(float64(v)) {
			t.Fatalf("sample %d = %v outside [0, 1]", i, v)
		}
	}
}

func TestOddBufferTailIsCleared(t *testing.T) {
	r, table, _, _ := newTestRenderer(t, 2, LayoutMirror, 8)
	table.Publish(anim.Frame{{X: 1, Y: 1}})
	out := []float32{5, 5, 5}
	r.Process(out)
	if out[2] != 0 {
		t.Fatalf("trailing partial frame = %v, want 0", out[2])
	}
}

func TestPublishIsRaceFree(t *testing.T) {
	r, table, _, _ := newTestRenderer(t, 2, LayoutMirror, 256)
	frames := []anim.Frame{make(anim.Frame, 4096), make(anim.Frame, 4096)}
	for i := range frames[1] {
		frames[1][i] = anim.Point{X: 1, Y: 1}
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			table.Publish(frames[i%2])
		}
	}()
	out := make([]float32, 512)
	for i := 0; i < 500; i++ {
		r.Process(out)
	}
	wg.Wait()
	if table.Published() != 500 {
		t.Fatalf("published = %d, want 500", table.Published())
	}
	if r.Stats().Faults != 0 {
		t.Fatalf("faults = %d, want 0", r.Stats().Faults)
	}
}
