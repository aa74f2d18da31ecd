// Package oscmusic plays vector animations as multichannel audio for an
// oscilloscope in XY mode, with live MIDI and keyboard control.
package oscmusic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cbegin/oscmusic-go/internal/anim"
	"github.com/cbegin/oscmusic-go/internal/audio"
	"github.com/cbegin/oscmusic-go/internal/config"
	"github.com/cbegin/oscmusic-go/internal/control"
	"github.com/cbegin/oscmusic-go/internal/control/midiport"
	"github.com/cbegin/oscmusic-go/internal/effects"
	"github.com/cbegin/oscmusic-go/internal/melody"
	"github.com/cbegin/oscmusic-go/internal/params"
	"github.com/cbegin/oscmusic-go/internal/phasor"
	"github.com/cbegin/oscmusic-go/internal/render"
	"github.com/cbegin/oscmusic-go/internal/scheduler"
)

// OutputFunc opens the audio device for a renderer.
type OutputFunc func(audio.Config, audio.SampleSource) (scheduler.Output, error)

type SessionOption func(*sessionConfig)

type sessionConfig struct {
	logger    *slog.Logger
	clock     scheduler.Clock
	output    OutputFunc
	sources   []control.Source
	sourcesOK bool
	melody    []melody.Event
	melodyOK  bool
	read      func(name, path string, rotation float64) (*anim.Animation, error)
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		logger: slog.Default(),
		output: func(c audio.Config, src audio.SampleSource) (scheduler.Output, error) {
			return audio.New(c, src)
		},
		read: anim.ReadArchive,
	}
}

func WithLogger(logger *slog.Logger) SessionOption {
	return func(cfg *sessionConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithClock replaces the scheduler's wall clock.
func WithClock(c scheduler.Clock) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.clock = c
	}
}

// WithOutput replaces the audio backend factory.
func WithOutput(fn OutputFunc) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.output = fn
	}
}

// WithControlSources replaces the MIDI and keyboard sources the config asks
// for. No arguments means no control input.
func WithControlSources(sources ...control.Source) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.sources = sources
		cfg.sourcesOK = true
	}
}

// WithMelody supplies the song instead of reading the configured MIDI file.
func WithMelody(events []melody.Event) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.melody = events
		cfg.melodyOK = true
	}
}

// WithArchiveReader replaces the .npz reader.
func WithArchiveReader(fn func(name, path string, rotation float64) (*anim.Animation, error)) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.read = fn
	}
}

// Session is one playback run: the animation store, the shared parameters,
// the renderer fed to the device, the scheduler feeding the renderer and the
// control sources writing the parameters.
type Session struct {
	cfg    config.Config
	opts   sessionConfig
	logger *slog.Logger

	store    *anim.Store
	params   *params.State
	pipeline *effects.Pipeline
	table    *render.Wavetable
	renderer *render.Renderer
	melody   []melody.Event
	adapter  *control.Adapter
	sources  []control.Source

	stop   atomic.Bool
	mu     sync.Mutex
	cancel context.CancelFunc
	ran    bool
}

// NewSession validates cfg and builds every component. Nothing touches a
// device until Run.
func NewSession(cfg config.Config, opts ...SessionOption) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sc := defaultSessionConfig()
	for _, opt := range opts {
		opt(&sc)
	}
	layout, err := render.NewLayout(cfg.Channels, cfg.LayoutMode())
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		opts:     sc,
		logger:   sc.logger,
		pipeline: effects.NewPipeline(),
		table:    &render.Wavetable{},
	}
	srcs := cfg.Sources()
	names := make([]string, len(srcs))
	for i, src := range srcs {
		names[i] = src.Name
	}
	s.store = anim.NewStore(names...)

	d := params.DefaultValues()
	d.Frequency, d.FPS, d.Animation = cfg.Frequency, cfg.FPS, cfg.Animation
	s.params = params.New(float64(cfg.SampleRate), len(names), d)
	if s.params.Animation() != cfg.Animation {
		s.logger.Warn("initial animation out of range, using 0", "animation", cfg.Animation, "count", len(names))
	}

	s.renderer = render.New(render.Config{
		SampleRate: float64(cfg.SampleRate),
		BlockSize:  cfg.BlockSize,
		Layout:     layout,
		IndexBits:  cfg.TableBits,
	}, s.params, s.table, &s.stop)

	s.melody = sc.melody
	if !sc.melodyOK {
		s.melody = loadMelody(cfg, s.logger)
	}
	if cfg.Song && len(s.melody) > 0 {
		s.params.SetSong(true)
	}
	s.adapter = control.NewAdapter(s.params, control.DefaultMapping(), len(s.melody), s.Stop, s.logger)

	s.sources = sc.sources
	if !sc.sourcesOK {
		if cfg.Keyboard {
			s.sources = append(s.sources, control.NewKeyboardSource(s.logger))
		}
		if cfg.MIDI {
			s.sources = append(s.sources, midiport.New(cfg.MIDIDevice, s.logger))
		}
	}
	return s, nil
}

func loadMelody(cfg config.Config, logger *slog.Logger) []melody.Event {
	if cfg.MelodyPath == "" {
		return nil
	}
	events, err := melody.Load(cfg.MelodyPath, melody.Options{Ceiling: cfg.MelodyCeiling})
	if err != nil {
		logger.Error("melody unavailable, song mode disabled", "path", cfg.MelodyPath, "err", err)
		return nil
	}
	logger.Info("melody loaded", "path", cfg.MelodyPath, "notes", len(events))
	return events
}

// Params exposes the live control plane.
func (s *Session) Params() *params.State { return s.params }

// Store exposes the animation store.
func (s *Session) Store() *anim.Store { return s.store }

// Renderer exposes the audio callback.
func (s *Session) Renderer() *render.Renderer { return s.renderer }

// Wavetable exposes the live table holder.
func (s *Session) Wavetable() *render.Wavetable { return s.table }

// Melody returns the song events, possibly empty.
func (s *Session) Melody() []melody.Event { return s.melody }

// Adapter is the handler the control sources write through.
func (s *Session) Adapter() *control.Adapter { return s.adapter }

// Stop asks a running session to finish. The renderer goes silent at once and
// Run returns after the current tick.
func (s *Session) Stop() {
	s.stop.Store(true)
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Stopped reports whether Stop was called or Run finished.
func (s *Session) Stopped() bool { return s.stop.Load() }

func (s *Session) load(ctx context.Context) error {
	l := anim.NewLoader(s.store, s.logger)
	l.Rotation = s.cfg.InitialRotation
	l.Read = s.opts.read
	err := l.Load(ctx, s.cfg.Sources())
	if n := s.store.FrameLen(); n > 0 && phasor.BitsFor(n) != s.cfg.TableBits {
		s.logger.Warn("frame length does not fill the phase table", "points", n, "bits", s.cfg.TableBits, "suggested", phasor.BitsFor(n))
	}
	return err
}

func (s *Session) newScheduler(opts scheduler.Options) *scheduler.Scheduler {
	if opts.Clock == nil {
		opts.Clock = s.opts.clock
	}
	opts.Logger = s.logger
	opts.Stop = &s.stop
	return scheduler.New(s.store, s.params, s.pipeline, s.table, s.melody, opts)
}

func (s *Session) audioConfig() audio.Config {
	return audio.Config{
		Backend:    s.cfg.Backend,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		BlockSize:  s.cfg.BlockSize,
		Device:     s.cfg.AudioDevice,
	}
}

// Run plays until ctx is done, Stop is called, or the device fails. Control
// sources start once the animations are loaded. Load errors and control
// source failures are logged and do not end the session. A session runs once.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return errors.New("oscmusic: session already ran")
	}
	s.ran = true
	s.cancel = cancel
	s.mu.Unlock()
	if s.stop.Load() {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.load(gctx); err != nil && gctx.Err() == nil {
			s.logger.Warn("some animations failed to load", "err", err)
		}
		return nil
	})
	sched := s.newScheduler(scheduler.Options{
		Open: func() (scheduler.Output, error) {
			return s.opts.output(s.audioConfig(), s.renderer)
		},
		Underflows: func() uint64 { return s.renderer.Stats().Underflows },
	})
	g.Go(func() error {
		defer cancel()
		if err := sched.Run(gctx); err != nil {
			return fmt.Errorf("oscmusic: playback: %w", err)
		}
		return nil
	})
	for _, src := range s.sources {
		g.Go(func() error {
			select {
			case <-s.store.Ready():
			case <-gctx.Done():
				return nil
			}
			if err := src.Run(gctx, s.adapter); err != nil && gctx.Err() == nil {
				s.logger.Warn("control source stopped", "source", fmt.Sprintf("%T", src), "err", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.stop.Store(true)
		return nil
	})

	err := g.Wait()
	st := s.renderer.Stats()
	s.logger.Info("session finished", "blocks", st.Blocks, "silent", st.Silent, "underflows", st.Underflows, "faults", st.Faults)
	return err
}
