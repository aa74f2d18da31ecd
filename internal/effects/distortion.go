package effects

import (
	"math"

	"github.com/cbegin/oscmusic-go/internal/anim"
)

// DistortionGain scales the distortion level into the tanh drive.
const DistortionGain = 5

// Distort applies tanh soft clipping with drive DistortionGain*level to both
// coordinates. Output stays inside (-1, 1). A level <= 0 leaves f untouched.
func Distort(f anim.Frame, level float64) {
	if !(level > 0) {
		return
	}
	gain := DistortionGain * level
	for i := range f {
		f[i].X = math.Tanh(gain * f[i].X)
		f[i].Y = math.Tanh(gain * f[i].Y)
	}
}
