package oscmusic

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/cbegin/oscmusic-go/internal/analysis"
	"github.com/cbegin/oscmusic-go/internal/config"
	"github.com/cbegin/oscmusic-go/internal/scheduler"
)

// analysisWindow bounds the samples kept for the pitch estimate.
const analysisWindow = 1 << 16

// RenderStats summarizes an offline render.
type RenderStats struct {
	Frames      int
	Ticks       int
	Published   uint64
	Fundamental float64 // Hz, estimated on the X channel
	Peak        float64
}

// sampleClock is scheduler time derived from the rendered sample count.
type sampleClock struct {
	start time.Time
	rate  int
	pos   int
}

func (c *sampleClock) Now() time.Time {
	return c.start.Add(time.Duration(c.pos) * time.Second / time.Duration(c.rate))
}

func (c *sampleClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now().Add(d)
	return ch
}

// Render plays the session without a device and writes cfg.Duration of
// stereo 16-bit WAV to w. The scheduler ticks on sample time, so the output
// is deterministic for a given configuration.
func Render(ctx context.Context, w io.WriteSeeker, cfg config.Config, opts ...SessionOption) (RenderStats, error) {
	cfg.Channels = 2
	opts = append(opts, WithControlSources())
	s, err := NewSession(cfg, opts...)
	if err != nil {
		return RenderStats{}, err
	}
	if err := s.load(ctx); err != nil {
		if ctx.Err() != nil {
			return RenderStats{}, ctx.Err()
		}
		s.logger.Warn("some animations failed to load", "err", err)
	}

	var stats RenderStats
	clock := &sampleClock{start: time.Unix(0, 0), rate: cfg.SampleRate}
	sched := s.newScheduler(scheduler.Options{Clock: clock})
	block := cfg.BlockSize
	buf := make([]float32, 2*block)
	xs := make([]float64, 0, analysisWindow)
	nextTick := 0

	src := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if ctx.Err() != nil {
			return 0, false
		}
		n := 0
		for n < len(samples) {
			if clock.pos >= nextTick {
				sched.Tick(clock.Now())
				stats.Ticks++
				nextTick = clock.pos + max(cfg.SampleRate/s.params.FPS(), 1)
			}
			chunk := min(len(samples)-n, nextTick-clock.pos, block)
			out := buf[:2*chunk]
			s.renderer.Process(out)
			for i := 0; i < chunk; i++ {
				x, y := float64(out[2*i]), float64(out[2*i+1])
				samples[n+i] = [2]float64{x, y}
				if len(xs) < analysisWindow {
					xs = append(xs, x)
				}
			}
			n += chunk
			clock.pos += chunk
		}
		return n, true
	})

	frames := int(cfg.Duration.Seconds() * float64(cfg.SampleRate))
	format := beep.Format{SampleRate: beep.SampleRate(cfg.SampleRate), NumChannels: 2, Precision: 2}
	if err := wav.Encode(w, beep.Take(frames, src), format); err != nil {
		return stats, fmt.Errorf("oscmusic: encode wav: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	stats.Frames = clock.pos
	stats.Published = s.table.Published()
	stats.Fundamental = analysis.Fundamental(xs, float64(cfg.SampleRate))
	stats.Peak = analysis.Peak(xs)
	return stats, nil
}
