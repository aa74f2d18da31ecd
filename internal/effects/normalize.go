package effects

import (
	"math"

	"github.com/cbegin/oscmusic-go/internal/anim"
)

// MaxAbs returns the largest absolute coordinate in pts.
func MaxAbs(pts []anim.Point) float64 {
	var m float64
	for _, p := range pts {
		if a := math.Abs(p.X); a > m {
			m = a
		}
		if a := math.Abs(p.Y); a > m {
			m = a
		}
	}
	return m
}

// Normalize divides every coordinate by MaxAbs so the peak is 1. Silent input
// is left as is.
func Normalize(pts []anim.Point) {
	m := MaxAbs(pts)
	if m == 0 || m == 1 {
		return
	}
	for i := range pts {
		pts[i].X /= m
		pts[i].Y /= m
	}
}
