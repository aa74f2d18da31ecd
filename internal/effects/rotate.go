package effects

import (
	"math"

	"github.com/cbegin/oscmusic-go/internal/anim"
)

// Rotator rotates frames by Settings.Rotation degrees. The cos/sin pair is
// only recomputed when the angle differs from the previous call.
type Rotator struct {
	valid      bool
	last       float64
	cos, sin   float64
	recomputes int
}

func (r *Rotator) matrix(deg float64) (float64, float64) {
	if !r.valid || deg != r.last {
		rad := deg * math.Pi / 180
		r.cos, r.sin = math.Cos(rad), math.Sin(rad)
		r.last = deg
		r.valid = true
		r.recomputes++
	}
	return r.cos, r.sin
}

// Apply multiplies each point, as a row vector, by [[cos, -sin], [sin, cos]].
func (r *Rotator) Apply(f anim.Frame, s Settings) {
	c, sn := r.matrix(s.Rotation)
	if c == 1 && sn == 0 {
		return
	}
	for i, p := range f {
		f[i] = anim.Point{X: p.X*c + p.Y*sn, Y: -p.X*sn + p.Y*c}
	}
}
