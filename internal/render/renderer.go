package render

import (
	"sync/atomic"

	"github.com/cbegin/oscmusic-go/internal/anim"
	"github.com/cbegin/oscmusic-go/internal/effects"
	"github.com/cbegin/oscmusic-go/internal/params"
	"github.com/cbegin/oscmusic-go/internal/phasor"
)

// Config fixes the renderer's session-constant properties.
type Config struct {
	SampleRate float64
	BlockSize  int
	Layout     Layout
	IndexBits  int
}

// Stats counts what the renderer has done since it was created.
type Stats struct {
	Blocks     uint64
	Silent     uint64
	Underflows uint64
	Faults     uint64
}

// Renderer is the audio callback. Process runs on the audio thread: it only
// reads atomics and the live wavetable, never blocks and, after New, never
// allocates. The phase belongs to the callback alone.
type Renderer struct {
	cfg    Config
	params *params.State
	table  *Wavetable
	stop   *atomic.Bool
	osc    phasor.Oscillator

	phase   uint32
	scratch []anim.Point

	blocks     atomic.Uint64
	silent     atomic.Uint64
	underflows atomic.Uint64
	faults     atomic.Uint64
}

// New creates a renderer. stop may be nil. A block size <= 0 defaults to 512.
func New(cfg Config, st *params.State, table *Wavetable, stop *atomic.Bool) *Renderer {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 512
	}
	if cfg.IndexBits <= 0 {
		cfg.IndexBits = phasor.DefaultBits
	}
	if stop == nil {
		stop = new(atomic.Bool)
	}
	return &Renderer{
		cfg:     cfg,
		params:  st,
		table:   table,
		stop:    stop,
		osc:     phasor.New(cfg.IndexBits),
		scratch: make([]anim.Point, cfg.BlockSize),
	}
}

// Channels returns the interleaved channel count Process expects.
func (r *Renderer) Channels() int { return r.cfg.Layout.Channels }

// Process fills out, an interleaved buffer of len(out)/Channels frames.
func (r *Renderer) Process(out []float32) {
	defer func() {
		if recover() != nil {
			clear(out)
			r.faults.Add(1)
		}
	}()
	r.blocks.Add(1)

	if r.stop.Load() {
		clear(out)
		r.silent.Add(1)
		return
	}
	table := r.table.Load()
	if len(table) == 0 {
		clear(out)
		r.silent.Add(1)
		return
	}
	inc := phasor.Increment(r.params.Frequency(), r.cfg.SampleRate)

	ch := r.cfg.Layout.Channels
	frames := len(out) / ch
	for off := 0; off < frames; off += len(r.scratch) {
		n := min(len(r.scratch), frames-off)
		pts := r.scratch[:n]
		r.phase = r.osc.Read(table, pts, r.phase, inc)
		effects.Normalize(pts)
		for i, p := range pts {
			base := (off + i) * ch
			r.cfg.Layout.Route(out[base:base+ch], float32(p.X), float32(p.Y))
		}
	}
	clear(out[frames*ch:])
}

// ReportStatus records a device status flag; backends call it from the audio
// thread.
func (r *Renderer) ReportStatus(underflow bool) {
	if underflow {
		r.underflows.Add(1)
	}
}

// Stats returns the counters.
func (r *Renderer) Stats() Stats {
	return Stats{
		Blocks:     r.blocks.Load(),
		Silent:     r.silent.Load(),
		Underflows: r.underflows.Load(),
		Faults:     r.faults.Load(),
	}
}
