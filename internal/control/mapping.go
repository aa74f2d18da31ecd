package control

import "math"

const (
	// Threshold is the controller value at which a switch reads as on.
	Threshold = 64

	maxValue = 127

	minSweepFrequency = 0.2
	maxSweepFrequency = 2000.0
)

func unit(v int) float64 {
	if v < 0 {
		v = 0
	}
	if v > maxValue {
		v = maxValue
	}
	return float64(v) / maxValue
}

// ScaleValue maps 0..127 linearly onto [0.1, 2.0].
func ScaleValue(v int) float64 { return 0.1 + 1.9*unit(v) }

// RotationValue maps 0..127 linearly onto [0, 360] degrees.
func RotationValue(v int) float64 { return unit(v) * 360 }

// DistortionValue maps 0..127 linearly onto [0, 0.8].
func DistortionValue(v int) float64 { return unit(v) * 0.8 }

// FPSValue maps 0..127 linearly onto 10..120, truncated.
func FPSValue(v int) int { return int(10 + 110*unit(v)) }

// FrequencyValue maps 0..127 exponentially onto [0.2, 2000] Hz.
func FrequencyValue(v int) float64 {
	return minSweepFrequency * math.Pow(maxSweepFrequency/minSweepFrequency, unit(v))
}

// On reports whether v is past the switch threshold.
func On(v int) bool { return v >= Threshold }
