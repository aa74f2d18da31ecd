package effects

import (
	"sync"

	"github.com/cbegin/oscmusic-go/internal/anim"
)

// Settings are the per-frame transform controls.
type Settings struct {
	Scale      float64
	Rotation   float64 // degrees
	Distortion float64 // 0 disables saturation
}

// Stage transforms a frame in place.
type Stage interface {
	Apply(f anim.Frame, s Settings)
}

// StageFunc adapts a function to Stage.
type StageFunc func(f anim.Frame, s Settings)

func (fn StageFunc) Apply(f anim.Frame, s Settings) { fn(f, s) }

// Chain applies stages in order.
type Chain struct {
	stages []Stage
}

func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

func (c *Chain) Apply(f anim.Frame, s Settings) {
	for _, st := range c.stages {
		st.Apply(f, s)
	}
}

func (c *Chain) Add(st Stage) {
	c.stages = append(c.stages, st)
}

// Pipeline turns a raw animation frame into a wavetable: scale, invert Y,
// rotate, soft-distort, normalize.
type Pipeline struct {
	mu    sync.Mutex
	chain *Chain
	rot   *Rotator
}

func NewPipeline() *Pipeline {
	rot := &Rotator{}
	return &Pipeline{
		rot: rot,
		chain: NewChain(
			StageFunc(scale),
			StageFunc(invertY),
			rot,
			StageFunc(func(f anim.Frame, s Settings) { Distort(f, s.Distortion) }),
			StageFunc(func(f anim.Frame, _ Settings) { Normalize(f) }),
		),
	}
}

// Apply returns the transformed copy of frame; frame itself is not modified.
func (p *Pipeline) Apply(frame anim.Frame, s Settings) anim.Frame {
	return p.ApplyInto(make(anim.Frame, len(frame)), frame, s)
}

// ApplyInto writes the transformed frame into dst, growing it if needed, and
// returns it. dst must not alias a frame that is currently published.
func (p *Pipeline) ApplyInto(dst, frame anim.Frame, s Settings) anim.Frame {
	if cap(dst) < len(frame) {
		dst = make(anim.Frame, len(frame))
	}
	dst = dst[:len(frame)]
	copy(dst, frame)
	p.mu.Lock()
	p.chain.Apply(dst, s)
	p.mu.Unlock()
	return dst
}

// RotationRecomputes reports how many times the rotation matrix was rebuilt.
func (p *Pipeline) RotationRecomputes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rot.recomputes
}

func scale(f anim.Frame, s Settings) {
	if s.Scale == 1 {
		return
	}
	for i := range f {
		f[i].X *= s.Scale
		f[i].Y *= s.Scale
	}
}

// invertY flips the art's downward Y axis to the oscilloscope's upward one.
func invertY(f anim.Frame, _ Settings) {
	for i := range f {
		f[i].Y = -f[i].Y
	}
}
