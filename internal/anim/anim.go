package anim

import "math"

// DefaultFrameLen is the point count the archive preprocessor resamples every
// frame to.
const DefaultFrameLen = 4096

// Point is one XY sample of a vector-art frame.
type Point struct {
	X, Y float64
}

// Frame is an ordered, fixed-length sequence of points.
type Frame []Point

// Clone returns a copy that shares no memory with f.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	out := make(Frame, len(f))
	copy(out, f)
	return out
}

// Rotate rotates every point in place by degrees, treating points as row
// vectors multiplied by [[cos, -sin], [sin, cos]].
func (f Frame) Rotate(degrees float64) {
	if degrees == 0 {
		return
	}
	rad := degrees * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	for i, p := range f {
		f[i] = Point{X: p.X*c + p.Y*s, Y: -p.X*s + p.Y*c}
	}
}

// Animation is a named sequence of frames in playback order.
type Animation struct {
	Name   string
	Frames []Frame
}

// Len returns the number of frames.
func (a *Animation) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Frames)
}
