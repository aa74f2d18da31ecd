package audio

import (
	"context"
	"fmt"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// ebitenOutput plays through ebiten's audio context, which is stereo only.
type ebitenOutput struct {
	player *ebitaudio.Player
	reader *StreamReader
}

func newEbiten(cfg Config, src SampleSource) (Output, error) {
	if cfg.Channels != 2 {
		return nil, fmt.Errorf("%w: ebiten plays 2 channels, got %d", ErrChannels, cfg.Channels)
	}
	ctx, err := sharedAudioContext(cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(src, 2, cfg.BlockSize)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("audio: ebiten player: %w", err)
	}
	if d := cfg.blockDuration(); d > 0 {
		pl.SetBufferSize(2 * d)
	}
	return &ebitenOutput{player: pl, reader: reader}, nil
}

func (o *ebitenOutput) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.player.Play()
	return nil
}

func (o *ebitenOutput) Close() error {
	o.player.Pause()
	o.player.Close()
	return o.reader.Close()
}
