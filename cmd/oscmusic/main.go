package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	oscmusic "github.com/cbegin/oscmusic-go"
	"github.com/cbegin/oscmusic-go/internal/audio"
	"github.com/cbegin/oscmusic-go/internal/config"
	"github.com/cbegin/oscmusic-go/internal/control/midiport"
)

const usage = `usage: oscmusic [play|render|devices] [flags]

  play     play the animations through the audio device (default)
  render   write the session to a WAV file without a device
  devices  list audio outputs and MIDI inputs

Run "oscmusic <command> -h" for the flags. Every flag also reads an OSC_*
environment variable, e.g. OSC_CHANNELS=2.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := "play"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fs := flag.NewFlagSet("oscmusic "+cmd, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	switch cmd {
	case "play":
		config.RegisterFlags(fs, &cfg)
	case "render":
		config.RegisterFlags(fs, &cfg)
		config.RegisterRenderFlags(fs, &cfg)
	case "devices":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	logger := initLogger(cfg.Debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "render":
		err = render(ctx, cfg, logger)
	case "devices":
		err = devices()
	default:
		err = play(ctx, cfg, logger)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("fatal", "cmd", cmd, "err", err)
		return 1
	}
	return 0
}

func initLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func play(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	s, err := oscmusic.NewSession(cfg, oscmusic.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Info("starting", "backend", cfg.Backend, "channels", cfg.Channels, "sample_rate", cfg.SampleRate, "animations", s.Store().Names())
	return s.Run(ctx)
}

func render(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	f, err := os.Create(cfg.Output)
	if err != nil {
		return err
	}
	stats, err := oscmusic.Render(ctx, f, cfg, oscmusic.WithLogger(logger))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	logger.Info("rendered", "path", cfg.Output, "frames", stats.Frames, "ticks", stats.Ticks,
		"fundamental_hz", fmt.Sprintf("%.2f", stats.Fundamental), "peak", fmt.Sprintf("%.3f", stats.Peak))
	return nil
}

func devices() error {
	outs, err := audio.OutputDevices()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	fmt.Println("audio outputs (portaudio):")
	for _, d := range outs {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Printf(" %s %3d  %-40s %-12s %2d ch  %.0f Hz\n", mark, d.Index, d.Name, d.HostAPI, d.Channels, d.SampleRate)
	}

	ins, merr := midiport.Inputs()
	if merr != nil {
		fmt.Fprintln(os.Stderr, merr)
	}
	fmt.Println("midi inputs (portmidi):")
	for _, d := range ins {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Printf(" %s %3d  %-40s %s\n", mark, d.ID, d.Name, d.Interface)
	}
	return errors.Join(err, merr)
}
