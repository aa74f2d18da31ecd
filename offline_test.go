package oscmusic

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func renderFile(t *testing.T, name string, freq float64) ([]byte, RenderStats) {
	t.Helper()
	cfg := testConfig()
	cfg.Frequency = freq
	cfg.Duration = 2 * time.Second
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	stats, err := Render(context.Background(), f, cfg,
		WithLogger(quietLogger()),
		WithMelody(nil),
		WithArchiveReader(circleReader(4, 4096)),
	)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data, stats
}

func TestRenderWritesStereoWAV(t *testing.T) {
	data, stats := renderFile(t, "out.wav", 441)
	if stats.Frames != 88200 {
		t.Fatalf("frames = %d, want 88200", stats.Frames)
	}
	if stats.Ticks != 50 || stats.Published != 50 {
		t.Fatalf("ticks=%d published=%d, want 50 at 25 fps", stats.Ticks, stats.Published)
	}
	if len(data) != 44+88200*4 {
		t.Fatalf("file size = %d, want %d", len(data), 44+88200*4)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF/WAVE header")
	}
	if ch := binary.LittleEndian.Uint16(data[22:24]); ch != 2 {
		t.Fatalf("channels = %d, want 2", ch)
	}
	if sr := binary.LittleEndian.Uint32(data[24:28]); sr != 44100 {
		t.Fatalf("sample rate = %d, want 44100", sr)
	}
}

func TestRenderFundamentalMatchesFrequency(t *testing.T) {
	for _, freq := range []float64{110, 441, 1000} {
		_, stats := renderFile(t, "out.wav", freq)
		if math.Abs(stats.Fundamental-freq) > 1 {
			t.Fatalf("fundamental = %v, want %v", stats.Fundamental, freq)
		}
		if stats.Peak < 0.9 || stats.Peak > 1.0001 {
			t.Fatalf("peak = %v, want about 1", stats.Peak)
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	a, _ := renderFile(t, "a.wav", 200)
	b, _ := renderFile(t, "b.wav", 200)
	if !bytes.Equal(a, b) {
		t.Fatalf("renders differ")
	}
}

func TestRenderHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f, err := os.Create(filepath.Join(t.TempDir(), "out.wav"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	_, err = Render(ctx, f, testConfig(),
		WithLogger(quietLogger()),
		WithMelody(nil),
		WithArchiveReader(circleReader(1, 16)),
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
