package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cbegin/oscmusic-go/internal/config"
)

var (
	ErrUnknownBackend = errors.New("audio: unknown backend")
	ErrChannels       = errors.New("audio: channel count not supported by backend")
	ErrNoDevice       = errors.New("audio: output device not found")
)

// Config is fixed for a session.
type Config struct {
	Backend    string
	SampleRate int
	Channels   int
	BlockSize  int
	// Device selects a portaudio output by index or name substring. Empty
	// means the host default.
	Device string
}

func (c Config) blockDuration() time.Duration {
	if c.SampleRate <= 0 || c.BlockSize <= 0 {
		return 0
	}
	return time.Duration(c.BlockSize) * time.Second / time.Duration(c.SampleRate)
}

// Output is an open device stream.
type Output interface {
	// Start begins pulling samples from the source.
	Start(ctx context.Context) error
	Close() error
}

// New opens cfg.Backend for src. Nothing plays until Start.
func New(cfg Config, src SampleSource) (Output, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", config.BackendPortAudio:
		return newPortAudio(cfg, src)
	case config.BackendOto:
		return newOto(cfg, src)
	case config.BackendEbiten:
		return newEbiten(cfg, src)
	default:
		return nil, fmt.Errorf("%w: %q (expected %s)", ErrUnknownBackend, cfg.Backend, strings.Join(config.Backends(), "|"))
	}
}
