// Package analysis estimates properties of rendered audio.
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/maddyblue/go-dsp/fft"
	"github.com/maddyblue/go-dsp/window"
)

// Fundamental returns the frequency in Hz of the strongest spectral peak of
// samples, refined by interpolating the log magnitude of the neighbouring
// bins. It returns 0 for fewer than 4 samples or a silent signal.
func Fundamental(samples []float64, sampleRate float64) float64 {
	n := len(samples)
	if n < 4 || sampleRate <= 0 {
		return 0
	}
	x := make([]float64, n)
	copy(x, samples)
	removeDC(x)
	window.Apply(x, window.Hann)

	spec := fft.FFTReal(x)
	half := n / 2
	mag := make([]float64, half+1)
	peak := 0
	for k := 1; k <= half; k++ {
		mag[k] = cmplx.Abs(spec[k])
		if mag[k] > mag[peak] {
			peak = k
		}
	}
	if peak == 0 || mag[peak] < 1e-12 {
		return 0
	}
	bin := float64(peak)
	if peak > 1 && peak < half {
		a, b, c := logMag(mag[peak-1]), logMag(mag[peak]), logMag(mag[peak+1])
		if d := a - 2*b + c; d != 0 {
			bin += 0.5 * (a - c) / d
		}
	}
	return bin * sampleRate / float64(n)
}

func logMag(v float64) float64 { return math.Log(v + 1e-300) }

func removeDC(x []float64) {
	var sum float64
	for _, v := range x {
		sum += v
	}
	mean := sum / float64(len(x))
	for i := range x {
		x[i] -= mean
	}
}

// Channel extracts channel ch of an interleaved buffer.
func Channel(interleaved []float32, channels, ch int) []float64 {
	if channels <= 0 || ch < 0 || ch >= channels {
		return nil
	}
	out := make([]float64, 0, len(interleaved)/channels)
	for i := ch; i < len(interleaved); i += channels {
		out = append(out, float64(interleaved[i]))
	}
	return out
}

// Peak returns the largest absolute sample.
func Peak(samples []float64) float64 {
	var m float64
	for _, v := range samples {
		m = math.Max(m, math.Abs(v))
	}
	return m
}
