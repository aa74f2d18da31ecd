package anim

import (
	"errors"
	"fmt"
	"io"

	"github.com/sbinet/npyio"
)

var ErrArchive = errors.New("anim: malformed archive")

// MaxFramePoints bounds the point count a frame header may declare.
const MaxFramePoints = 1 << 20

// DecodeNPY reads a single .npy array of shape (N, 2) holding float32 or
// float64 values and returns it as a frame.
func DecodeNPY(r io.Reader) (Frame, error) {
	npy, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}
	d := npy.Header.Descr
	if len(d.Shape) != 2 || d.Shape[1] != 2 {
		return nil, fmt.Errorf("%w: shape %v, want (N, 2)", ErrArchive, d.Shape)
	}
	n := d.Shape[0]
	if n <= 0 || n > MaxFramePoints {
		return nil, fmt.Errorf("%w: %d points", ErrArchive, n)
	}

	var vals []float64
	switch d.Type {
	case "<f8", ">f8", "=f8":
		if err := npy.Read(&vals); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchive, err)
		}
	case "<f4", ">f4", "=f4":
		var f32 []float32
		if err := npy.Read(&f32); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrArchive, err)
		}
		vals = make([]float64, len(f32))
		for i, v := range f32 {
			vals[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported dtype %q", ErrArchive, d.Type)
	}
	if len(vals) != 2*n {
		return nil, fmt.Errorf("%w: %d values for %d points", ErrArchive, len(vals), n)
	}

	f := make(Frame, n)
	for i := range f {
		if d.Fortran {
			f[i] = Point{X: vals[i], Y: vals[n+i]}
		} else {
			f[i] = Point{X: vals[2*i], Y: vals[2*i+1]}
		}
	}
	return f, nil
}
