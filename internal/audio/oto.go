package audio

import (
	"context"
	"fmt"

	"github.com/ebitengine/oto/v3"
)

// otoOutput pulls from the source through a StreamReader. oto allows one
// context per process.
type otoOutput struct {
	ctx    *oto.Context
	ready  chan struct{}
	player *oto.Player
}

func newOto(cfg Config, src SampleSource) (Output, error) {
	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   2 * cfg.blockDuration(),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio: oto: %w", err)
	}
	return &otoOutput{
		ctx:    ctx,
		ready:  ready,
		player: ctx.NewPlayer(NewStreamReader(src, cfg.Channels, cfg.BlockSize)),
	}, nil
}

func (o *otoOutput) Start(ctx context.Context) error {
	select {
	case <-o.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	o.player.Play()
	return nil
}

func (o *otoOutput) Close() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("audio: oto close: %w", err)
	}
	return o.ctx.Suspend()
}
