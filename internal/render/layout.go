package render

import (
	"errors"
	"fmt"
	"strings"
)

var ErrChannelLayout = errors.New("render: unsupported channel layout")

// LayoutMode selects how the stereo XY pair is spread over output channels.
type LayoutMode string

const (
	// LayoutMirror carries the pair on channels 0-1 and 2-3 (scope and
	// monitor speakers) and leaves the rest silent.
	LayoutMirror LayoutMode = "mirror"
	// LayoutFill carries the pair on every channel pair.
	LayoutFill LayoutMode = "fill"
)

// ParseLayoutMode accepts "mirror" or "fill"; empty means mirror.
func ParseLayoutMode(s string) (LayoutMode, error) {
	switch LayoutMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LayoutMirror:
		return LayoutMirror, nil
	case LayoutFill:
		return LayoutFill, nil
	default:
		return "", fmt.Errorf("%w: mode %q (expected mirror|fill)", ErrChannelLayout, s)
	}
}

// Layout routes the XY pair into an interleaved frame of Channels samples.
type Layout struct {
	Channels int
	// Pairs holds the first channel of every pair that carries the signal.
	Pairs []int
}

// NewLayout builds the routing for a channel count: 2 is direct stereo, an
// even count of 4 or more follows mode. Anything else is a configuration
// error.
func NewLayout(channels int, mode LayoutMode) (Layout, error) {
	switch {
	case channels == 2:
		return Layout{Channels: 2, Pairs: []int{0}}, nil
	case channels >= 4 && channels%2 == 0:
	default:
		return Layout{}, fmt.Errorf("%w: %d channels (expected 2 or an even count >= 4)", ErrChannelLayout, channels)
	}
	switch mode {
	case "", LayoutMirror:
		return Layout{Channels: channels, Pairs: []int{0, 2}}, nil
	case LayoutFill:
		pairs := make([]int, 0, channels/2)
		for c := 0; c < channels; c += 2 {
			pairs = append(pairs, c)
		}
		return Layout{Channels: channels, Pairs: pairs}, nil
	default:
		return Layout{}, fmt.Errorf("%w: mode %q", ErrChannelLayout, mode)
	}
}

// Route writes one sample frame: x and y on every pair, silence elsewhere.
func (l Layout) Route(frame []float32, x, y float32) {
	clear(frame)
	for _, c := range l.Pairs {
		frame[c] = x
		frame[c+1] = y
	}
}
