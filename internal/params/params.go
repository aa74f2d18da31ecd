package params

import (
	"math"
	"sync/atomic"
)

// Ranges accepted by the setters. Values outside are clamped.
const (
	MinFrequency  = 0.2
	MinScale      = 0.1
	MaxScale      = 2.0
	MaxDistortion = 0.8
	MinFPS        = 10
	MaxFPS        = 120
)

// Defaults holds the values a State starts with.
type Defaults struct {
	Frequency  float64
	Scale      float64
	Rotation   float64
	Distortion float64
	FPS        int
	Animation  int
}

// DefaultValues returns the startup control values.
func DefaultValues() Defaults {
	return Defaults{
		Frequency: 50,
		Scale:     1,
		FPS:       25,
		Animation: 2,
	}
}

// State is the shared control plane. Every field is an independent atomic so
// the audio callback can read it without locks; there is no cross-field
// consistency.
type State struct {
	sampleRate float64

	frequency  atomic.Uint64 // float64 bits
	scale      atomic.Uint64
	rotation   atomic.Uint64
	distortion atomic.Uint64

	fps            atomic.Int32
	animation      atomic.Int32
	animationCount atomic.Int32

	paused    atomic.Bool
	song      atomic.Bool
	songIndex atomic.Int64
}

// New creates a State for the given sample rate and number of animation
// slots. An initial animation outside the slot range falls back to 0.
func New(sampleRate float64, animationCount int, d Defaults) *State {
	s := &State{sampleRate: sampleRate}
	s.animationCount.Store(int32(animationCount))
	s.SetFrequency(d.Frequency)
	s.SetScale(d.Scale)
	s.SetRotation(d.Rotation)
	s.SetDistortion(d.Distortion)
	s.SetFPS(d.FPS)
	if !s.SelectAnimation(d.Animation) {
		s.animation.Store(0)
	}
	return s
}

// SampleRate returns the session sample rate.
func (s *State) SampleRate() float64 { return s.sampleRate }

func storeFloat(a *atomic.Uint64, v float64) { a.Store(math.Float64bits(v)) }
func loadFloat(a *atomic.Uint64) float64  { return math.Float64frombits(a.Load()) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetFrequency stores f clamped to [MinFrequency, Nyquist]. NaN is ignored.
func (s *State) SetFrequency(f float64) {
	if math.IsNaN(f) {
		return
	}
	hi := math.Inf(1)
	if s.sampleRate > 0 {
		hi = s.sampleRate / 2
	}
	storeFloat(&s.frequency, clamp(f, MinFrequency, hi))
}

func (s *State) Frequency() float64 { return loadFloat(&s.frequency) }

func (s *State) SetScale(v float64) {
	if math.IsNaN(v) {
		return
	}
	storeFloat(&s.scale, clamp(v, MinScale, MaxScale))
}

func (s *State) Scale() float64 { return loadFloat(&s.scale) }

// SetRotation stores degrees wrapped into [0, 360).
func (s *State) SetRotation(deg float64) {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	storeFloat(&s.rotation, deg)
}

func (s *State) Rotation() float64 { return loadFloat(&s.rotation) }

func (s *State) SetDistortion(v float64) {
	if math.IsNaN(v) {
		return
	}
	storeFloat(&s.distortion, clamp(v, 0, MaxDistortion))
}

func (s *State) Distortion() float64 { return loadFloat(&s.distortion) }

func (s *State) SetFPS(fps int) {
	if fps < MinFPS {
		fps = MinFPS
	}
	if fps > MaxFPS {
		fps = MaxFPS
	}
	s.fps.Store(int32(fps))
}

func (s *State) FPS() int { return int(s.fps.Load()) }

// SelectAnimation switches to index if it names a slot and reports whether it
// did.
func (s *State) SelectAnimation(index int) bool {
	if index < 0 || index >= int(s.animationCount.Load()) {
		return false
	}
	s.animation.Store(int32(index))
	return true
}

func (s *State) Animation() int { return int(s.animation.Load()) }

// AnimationCount returns the number of selectable slots.
func (s *State) AnimationCount() int { return int(s.animationCount.Load()) }

// SetPaused stores the pause flag and returns the previous value.
func (s *State) SetPaused(v bool) bool { return s.paused.Swap(v) }

func (s *State) Paused() bool { return s.paused.Load() }

// SetSong stores the song flag and returns the previous value.
func (s *State) SetSong(v bool) bool { return s.song.Swap(v) }

func (s *State) Song() bool { return s.song.Load() }

// SetSongIndex stores the next melody position. Negative values become 0.
func (s *State) SetSongIndex(i int) {
	if i < 0 {
		i = 0
	}
	s.songIndex.Store(int64(i))
}

func (s *State) SongIndex() int { return int(s.songIndex.Load()) }

// Snapshot is a point-in-time copy of every field, for logs and tests.
type Snapshot struct {
	Frequency  float64
	Scale      float64
	Rotation   float64
	Distortion float64
	FPS        int
	Animation  int
	Paused     bool
	Song       bool
	SongIndex  int
}

// Snapshot reads every field. Fields are read independently.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Frequency:  s.Frequency(),
		Scale:      s.Scale(),
		Rotation:   s.Rotation(),
		Distortion: s.Distortion(),
		FPS:        s.FPS(),
		Animation:  s.Animation(),
		Paused:     s.Paused(),
		Song:       s.Song(),
		SongIndex:  s.SongIndex(),
	}
}
