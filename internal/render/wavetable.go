package render

import (
	"sync/atomic"

	"github.com/cbegin/oscmusic-go/internal/anim"
)

// Wavetable is the single live table handed from the scheduler to the audio
// callback. A published frame must never be written again; each Publish swaps
// in a new one atomically so a reader never sees a partial update.
type Wavetable struct {
	cur       atomic.Pointer[anim.Frame]
	published atomic.Uint64
}

// Publish makes f the live table.
func (w *Wavetable) Publish(f anim.Frame) {
	w.cur.Store(&f)
	w.published.Add(1)
}

// Load returns the live table, nil before the first Publish.
func (w *Wavetable) Load() anim.Frame {
	p := w.cur.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Published returns how many tables have been published.
func (w *Wavetable) Published() uint64 {
	return w.published.Load()
}
