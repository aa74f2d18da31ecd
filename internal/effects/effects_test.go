package effects

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cbegin/oscmusic-go/internal/anim"
)

const eps = 1e-12

func randomFrame(n int, seed int64) anim.Frame {
	r := rand.New(rand.NewSource(seed))
	f := make(anim.Frame, n)
	for i := range f {
		f[i] = anim.Point{X: r.Float64()*200 - 100, Y: r.Float64()*200 - 100}
	}
	return f
}

func TestApplyNormalizesPeakToOne(t *testing.T) {
	p := NewPipeline()
	settings := []Settings{
		{Scale: 1},
		{Scale: 0.1, Rotation: 45},
		{Scale: 2, Rotation: 300, Distortion: 0.8},
		{Scale: 1.3, Rotation: 90, Distortion: 0.05},
	}
	for i, s := range settings {
		out := p.Apply(randomFrame(512, int64(i)), s)
		if got := MaxAbs(out); math.Abs(got-1) > eps {
			t.Fatalf("settings %+v: max abs = %v, want 1", s, got)
		}
	}
}

func TestApplyLeavesSilenceSilent(t *testing.T) {
	p := NewPipeline()
	out := p.Apply(make(anim.Frame, 64), Settings{Scale: 2, Rotation: 33, Distortion: 0.5})
	for i, pt := range out {
		if pt != (anim.Point{}) {
			t.Fatalf("point %d = %v, want zero", i, pt)
		}
	}
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	in := randomFrame(32, 7)
	orig := in.Clone()
	NewPipeline().Apply(in, Settings{Scale: 1.5, Rotation: 10, Distortion: 0.3})
	for i := range in {
		if in[i] != orig[i] {
			t.Fatalf("input point %d changed", i)
		}
	}
}

func TestZeroRotationIsScaledInvertedNormalized(t *testing.T) {
	in := randomFrame(256, 3)
	out := NewPipeline().Apply(in, Settings{Scale: 0.7})

	want := in.Clone()
	for i := range want {
		want[i].X *= 0.7
		want[i].Y *= -0.7
	}
	Normalize(want)
	for i := range out {
		if math.Abs(out[i].X-want[i].X) > eps || math.Abs(out[i].Y-want[i].Y) > eps {
			t.Fatalf("point %d = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestRotationDirectionMatchesRowVectorProduct(t *testing.T) {
	f := anim.Frame{{X: 1, Y: 0}}
	(&Rotator{}).Apply(f, Settings{Rotation: 90})
	if math.Abs(f[0].X) > eps || math.Abs(f[0].Y+1) > eps {
		t.Fatalf("rotated = %v, want (0, -1)", f[0])
	}
}

func TestRotationMatrixCachedUntilAngleChanges(t *testing.T) {
	p := NewPipeline()
	in := randomFrame(8, 1)
	p.Apply(in, Settings{Scale: 1, Rotation: 30})
	p.Apply(in, Settings{Scale: 1, Rotation: 30})
	p.Apply(in, Settings{Scale: 1, Rotation: 30})
	if got := p.RotationRecomputes(); got != 1 {
		t.Fatalf("recomputes = %d, want 1", got)
	}
	p.Apply(in, Settings{Scale: 1, Rotation: 31})
	if got := p.RotationRecomputes(); got != 2 {
		t.Fatalf("recomputes = %d, want 2", got)
	}
}

func TestDistortionZeroIsIdentity(t *testing.T) {
	in := randomFrame(64, 11)
	f := in.Clone()
	Distort(f, 0)
	for i := range f {
		if f[i] != in[i] {
			t.Fatalf("point %d changed at level 0", i)
		}
	}
}

func TestDistortionSaturatesMonotonically(t *testing.T) {
	// Mean |v| of a normalized ramp grows as the tanh drive squashes it
	// toward the rails.
	ramp := make(anim.Frame, 101)
	for i := range ramp {
		v := float64(i-50) / 50
		ramp[i] = anim.Point{X: v, Y: v / 2}
	}
	fill := func(level float64) float64 {
		f := ramp.Clone()
		Distort(f, level)
		Normalize(f)
		var sum float64
		for _, p := range f {
			sum += math.Abs(p.X) + math.Abs(p.Y)
		}
		return sum
	}
	prev := fill(0)
	for _, d := range []float64{0.05, 0.1, 0.2, 0.4, 0.6, 0.8} {
		cur := fill(d)
		if !(cur > prev) {
			t.Fatalf("saturation at %v = %v, not above %v", d, cur, prev)
		}
		prev = cur
	}
}

func TestDistortionBounded(t *testing.T) {
	f := anim.Frame{{X: 100, Y: -100}, {X: 0.5, Y: -0.5}}
	Distort(f, 0.8)
	for _, p := range f {
		if math.Abs(p.X) > 1 || math.Abs(p.Y) > 1 {
			t.Fatalf("distorted point %v outside [-1, 1]", p)
		}
	}
}

func TestApplyIntoReusesDestination(t *testing.T) {
	p := NewPipeline()
	dst := make(anim.Frame, 0, 16)
	out := p.ApplyInto(dst, randomFrame(16, 5), Settings{Scale: 1})
	if &out[0] != &dst[:1][0] {
		t.Fatalf("ApplyInto should reuse dst backing array")
	}
}
