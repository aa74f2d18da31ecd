// Package scheduler advances the animation once per visual frame and
// publishes each processed frame as the renderer's wavetable.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cbegin/oscmusic-go/internal/anim"
	"github.com/cbegin/oscmusic-go/internal/effects"
	"github.com/cbegin/oscmusic-go/internal/melody"
	"github.com/cbegin/oscmusic-go/internal/params"
)

var (
	ErrAnimationMissing = errors.New("scheduler: selected animation not loaded")
	ErrTickPanic        = errors.New("scheduler: tick panicked")
)

// DefaultMaxNote caps how long one song note holds before the next.
const DefaultMaxNote = 2 * time.Second

// State is the playback mode of one tick.
type State int

const (
	Normal State = iota
	Paused
	Song
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Paused:
		return "paused"
	case Song:
		return "song"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Clock is the time source. Tests substitute a manual one.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time                         { return time.Now() }
func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Animations is the read side of the animation store.
type Animations interface {
	Get(index int) (*anim.Animation, error)
	Ready() <-chan struct{}
}

// Publisher receives each processed frame. A published frame is never
// written again.
type Publisher interface {
	Publish(anim.Frame)
}

// Output is the audio device the scheduler starts once animations are ready
// and closes when it returns.
type Output interface {
	Start(ctx context.Context) error
	Close() error
}

// Options are the optional collaborators.
type Options struct {
	Clock  Clock
	Logger *slog.Logger
	// Open creates the output after the store is ready. Nil runs without one.
	Open func() (Output, error)
	// Stop, when set, ends Run at the next tick.
	Stop *atomic.Bool
	// OnTick observes every tick report.
	OnTick func(Report)
	// Underflows returns the device underflow count; increases are logged.
	Underflows func() uint64
	MaxNote    time.Duration
}

// Report describes one tick.
type Report struct {
	State       State
	Animation   int
	Frame       int
	Published   bool
	NoteChanged bool
	Frequency   float64
	Err         error
}

// Scheduler owns the frame index. Tick and Run must be called from one
// goroutine.
type Scheduler struct {
	store    Animations
	params   *params.State
	pipeline *effects.Pipeline
	table    Publisher
	melody   []melody.Event
	opts     Options
	clock    Clock
	logger   *slog.Logger

	state     State
	animation int
	index     int
	captured  int
	missing   bool

	lastNote time.Time
	noteLen  time.Duration

	underflows uint64
}

// New creates a scheduler. melody may be empty, which makes song mode inert.
func New(store Animations, st *params.State, pipeline *effects.Pipeline, table Publisher, notes []melody.Event, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = wallClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxNote <= 0 {
		opts.MaxNote = DefaultMaxNote
	}
	if pipeline == nil {
		pipeline = effects.NewPipeline()
	}
	return &Scheduler{
		store:     store,
		params:    st,
		pipeline:  pipeline,
		table:     table,
		melody:    notes,
		opts:      opts,
		clock:     opts.Clock,
		logger:    opts.Logger,
		animation: st.Animation(),
	}
}

// FrameIndex is the index the next NORMAL tick plays.
func (s *Scheduler) FrameIndex() int { return s.index }

// State is the mode of the last tick.
func (s *Scheduler) State() State { return s.state }

// Tick runs one scheduling step at time now.
func (s *Scheduler) Tick(now time.Time) (rep Report) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick failed", "panic", r)
			rep.Published = false
			rep.Err = fmt.Errorf("%w: %v", ErrTickPanic, r)
		}
	}()

	sel := s.params.Animation()
	if sel != s.animation {
		s.logger.Info("animation changed", "from", s.animation, "to", sel)
		s.animation = sel
		s.index = 0
		s.captured = 0
	}
	rep.Animation = sel

	a, err := s.store.Get(sel)
	if err == nil && a.Len() == 0 {
		err = anim.ErrEmpty
	}
	if err != nil {
		if !s.missing {
			s.logger.Warn("animation unavailable, holding last frame", "index", sel, "err", err)
		}
		s.missing = true
		rep.State = s.state
		rep.Err = fmt.Errorf("%w: %w", ErrAnimationMissing, err)
		return rep
	}
	s.missing = false
	n := a.Len()
	if s.index < 0 || s.index >= n {
		s.index = 0
	}

	if s.params.Paused() {
		if s.state != Paused {
			s.captured = s.index
			s.logger.Info("paused", "frame", s.captured)
		}
		s.state = Paused
		if s.captured >= n {
			s.captured = 0
		}
		s.publish(a.Frames[s.captured])
		rep.State, rep.Frame, rep.Published = Paused, s.captured, true
		rep.Frequency = s.params.Frequency()
		return rep
	}

	if s.state == Paused {
		s.index = (s.captured + 1) % n
		s.logger.Info("resumed", "frame", s.index)
	}
	if s.params.Song() && len(s.melody) > 0 {
		if s.state != Song {
			s.lastNote = time.Time{}
		}
		s.state = Song
		rep.NoteChanged = s.advanceSong(now)
	} else {
		s.state = Normal
	}

	rep.State, rep.Frame, rep.Published = s.state, s.index, true
	s.publish(a.Frames[s.index])
	s.index = (s.index + 1) % n
	rep.Frequency = s.params.Frequency()
	return rep
}

// advanceSong moves to the next melody note once the current one has held
// for min(duration, MaxNote).
func (s *Scheduler) advanceSong(now time.Time) bool {
	if !s.lastNote.IsZero() && now.Sub(s.lastNote) < min(s.noteLen, s.opts.MaxNote) {
		return false
	}
	i := s.params.SongIndex() % len(s.melody)
	ev := s.melody[i]
	s.params.SetFrequency(ev.Frequency)
	s.noteLen = min(time.Duration(ev.Duration*float64(time.Second)), s.opts.MaxNote)
	s.lastNote = now
	s.params.SetSongIndex((i + 1) % len(s.melody))
	s.logger.Debug("note", "index", i, "frequency", ev.Frequency, "duration", s.noteLen)
	return true
}

func (s *Scheduler) publish(f anim.Frame) {
	s.table.Publish(s.pipeline.Apply(f, effects.Settings{
		Scale:      s.params.Scale(),
		Rotation:   s.params.Rotation(),
		Distortion: s.params.Distortion(),
	}))
}

func (s *Scheduler) stopped() bool {
	return s.opts.Stop != nil && s.opts.Stop.Load()
}

// Run waits for the store, opens and starts the output, then ticks every
// 1/fps until ctx is done or the stop flag is set. The output is closed on
// return. A clean stop returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	select {
	case <-s.store.Ready():
	case <-ctx.Done():
		return nil
	}
	if s.opts.Open != nil {
		out, err := s.opts.Open()
		if err != nil {
			return fmt.Errorf("scheduler: open output: %w", err)
		}
		defer func() {
			if err := out.Close(); err != nil {
				s.logger.Warn("output close", "err", err)
			}
		}()
		if err := out.Start(ctx); err != nil {
			return fmt.Errorf("scheduler: start output: %w", err)
		}
	}
	s.logger.Info("playback started", "animation", s.params.Animation(), "fps", s.params.FPS())

	for {
		if ctx.Err() != nil || s.stopped() {
			s.logger.Info("playback stopped")
			return nil
		}
		rep := s.Tick(s.clock.Now())
		s.checkUnderflows()
		if s.opts.OnTick != nil {
			s.opts.OnTick(rep)
		}
		wait := time.Second / time.Duration(max(s.params.FPS(), 1))
		select {
		case <-ctx.Done():
		case <-s.clock.After(wait):
		}
	}
}

func (s *Scheduler) checkUnderflows() {
	if s.opts.Underflows == nil {
		return
	}
	n := s.opts.Underflows()
	if n > s.underflows {
		s.logger.Debug("output underflow", "count", n, "new", n-s.underflows)
	}
	s.underflows = n
}
