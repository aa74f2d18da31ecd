package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cbegin/oscmusic-go/internal/anim"
	"github.com/cbegin/oscmusic-go/internal/params"
	"github.com/cbegin/oscmusic-go/internal/render"
)

var ErrInvalid = errors.New("config: invalid")

// Audio backend names.
const (
	BackendPortAudio = "portaudio"
	BackendOto       = "oto"
	BackendEbiten    = "ebiten"
)

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendPortAudio, BackendOto, BackendEbiten}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Config holds the session configuration. It is fixed once playback starts.
type Config struct {
	// Audio device
	Backend     string
	AudioDevice string // portaudio index or name substring
	SampleRate  int
	BlockSize   int
	Channels    int
	Layout      string // mirror | fill
	TableBits   int    // phase accumulator index width

	// Content
	Animations      ArchiveList
	AnimationDir    string  // base for relative archive paths
	InitialRotation float64 // degrees applied to every loaded frame
	MelodyPath      string
	MelodyCeiling   float64 // Hz

	// Control
	MIDI       bool
	MIDIDevice int // -1 = system default
	Keyboard   bool

	// Startup values
	Frequency float64
	FPS       int
	Animation int
	Song      bool // start in song mode

	// Offline render
	Output   string
	Duration time.Duration

	Debug bool
}

// DefaultAnimations is the stock archive set, in selection order.
func DefaultAnimations() ArchiveList {
	names := []string{"peli", "text", "break1", "car2", "gameboy", "cube"}
	out := make(ArchiveList, len(names))
	for i, n := range names {
		out[i] = anim.Source{Name: n, Path: n + "_redimensionado.npz"}
	}
	return out
}

// Default returns the built-in configuration.
func Default() Config {
	d := params.DefaultValues()
	return Config{
		Backend:    BackendPortAudio,
		SampleRate: 44100,
		BlockSize:  512,
		Channels:   8,
		Layout:     string(render.LayoutMirror),
		TableBits:  12,

		Animations:      DefaultAnimations(),
		AnimationDir:    ".",
		InitialRotation: 90,
		MelodyPath:      "Techno-3.MID",
		MelodyCeiling:   2000,

		MIDI:       true,
		MIDIDevice: -1,
		Keyboard:   true,

		Frequency: d.Frequency,
		FPS:       d.FPS,
		Animation: d.Animation,

		Output:   "out.wav",
		Duration: 10 * time.Second,
	}
}

// Load reads OSC_* environment variables over the defaults.
func Load() (Config, error) {
	c := Default()
	c.Backend = envStr("OSC_BACKEND", c.Backend)
	c.AudioDevice = envStr("OSC_AUDIO_DEVICE", c.AudioDevice)
	c.SampleRate = envInt("OSC_SAMPLE_RATE", c.SampleRate)
	c.BlockSize = envInt("OSC_BLOCK_SIZE", c.BlockSize)
	c.Channels = envInt("OSC_CHANNELS", c.Channels)
	c.Layout = envStr("OSC_LAYOUT", c.Layout)
	c.TableBits = envInt("OSC_TABLE_BITS", c.TableBits)

	if v := os.Getenv("OSC_ANIMATIONS"); v != "" {
		var list ArchiveList
		if err := list.Set(v); err != nil {
			return c, fmt.Errorf("OSC_ANIMATIONS: %w", err)
		}
		c.Animations = list
	}
	c.AnimationDir = envStr("OSC_ANIMATION_DIR", c.AnimationDir)
	c.InitialRotation = envFloat("OSC_INITIAL_ROTATION", c.InitialRotation)
	c.MelodyPath = envStr("OSC_MELODY", c.MelodyPath)
	c.MelodyCeiling = envFloat("OSC_MELODY_CEILING", c.MelodyCeiling)

	c.MIDI = envBool("OSC_MIDI", c.MIDI)
	c.MIDIDevice = envInt("OSC_MIDI_DEVICE", c.MIDIDevice)
	c.Keyboard = envBool("OSC_KEYBOARD", c.Keyboard)

	c.Frequency = envFloat("OSC_FREQUENCY", c.Frequency)
	c.FPS = envInt("OSC_FPS", c.FPS)
	c.Animation = envInt("OSC_ANIMATION", c.Animation)
	c.Song = envBool("OSC_SONG", c.Song)
	c.Debug = envBool("OSC_DEBUG", c.Debug)
	return c, nil
}

// RegisterFlags binds the session flags to c; values already in c are the
// defaults shown by -h.
func RegisterFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.Backend, "backend", c.Backend, "audio backend: "+strings.Join(Backends(), "|"))
	fs.StringVar(&c.AudioDevice, "device", c.AudioDevice, "audio output device index or name (portaudio)")
	fs.IntVar(&c.SampleRate, "sample-rate", c.SampleRate, "output sample rate")
	fs.IntVar(&c.BlockSize, "block", c.BlockSize, "frames per audio callback")
	fs.IntVar(&c.Channels, "channels", c.Channels, "output channels: 2 or an even count >= 4")
	fs.StringVar(&c.Layout, "layout", c.Layout, "multichannel routing: mirror|fill")
	fs.IntVar(&c.TableBits, "table-bits", c.TableBits, "phase accumulator index bits")

	fs.Var(&c.Animations, "anim", "animation archives as name=path[,name=path...]")
	fs.StringVar(&c.AnimationDir, "anim-dir", c.AnimationDir, "directory for relative archive paths")
	fs.Float64Var(&c.InitialRotation, "anim-rotation", c.InitialRotation, "rotation in degrees applied to frames at load")
	fs.StringVar(&c.MelodyPath, "melody", c.MelodyPath, "MIDI file for song mode (empty disables)")
	fs.Float64Var(&c.MelodyCeiling, "melody-ceiling", c.MelodyCeiling, "highest song frequency in Hz")

	fs.BoolVar(&c.MIDI, "midi", c.MIDI, "read control changes from a MIDI input")
	fs.IntVar(&c.MIDIDevice, "midi-device", c.MIDIDevice, "MIDI input device id (-1 = default)")
	fs.BoolVar(&c.Keyboard, "keyboard", c.Keyboard, "read hotkeys from the terminal")

	fs.Float64Var(&c.Frequency, "freq", c.Frequency, "initial frequency in Hz")
	fs.IntVar(&c.FPS, "fps", c.FPS, "initial animation frame rate")
	fs.IntVar(&c.Animation, "animation", c.Animation, "initial animation index")
	fs.BoolVar(&c.Song, "song", c.Song, "start in song mode")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "debug logging")
}

// RegisterRenderFlags adds the offline render flags.
func RegisterRenderFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.Output, "o", c.Output, "output WAV path")
	fs.DurationVar(&c.Duration, "duration", c.Duration, "length of the render")
	fs.Func("seconds", "length of the render in seconds", func(s string) error {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		c.Duration = time.Duration(f * float64(time.Second))
		return nil
	})
}

// Validate checks the values that cannot be clamped at runtime.
func (c Config) Validate() error {
	var errs []error
	if b := strings.ToLower(c.Backend); b != "" && !slices.Contains(Backends(), b) {
		errs = append(errs, fmt.Errorf("backend %q", c.Backend))
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate %d", c.SampleRate))
	}
	if c.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("block size %d", c.BlockSize))
	}
	if c.TableBits < 1 || c.TableBits > 32 {
		errs = append(errs, fmt.Errorf("table bits %d", c.TableBits))
	}
	mode, err := render.ParseLayoutMode(c.Layout)
	if err != nil {
		errs = append(errs, err)
	} else if _, err := render.NewLayout(c.Channels, mode); err != nil {
		errs = append(errs, err)
	}
	if len(c.Animations) == 0 {
		errs = append(errs, errors.New("no animations"))
	}
	seen := make(map[string]bool, len(c.Animations))
	for _, s := range c.Animations {
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("duplicate animation %q", s.Name))
		}
		seen[s.Name] = true
	}
	if c.Frequency <= 0 {
		errs = append(errs, fmt.Errorf("frequency %v", c.Frequency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Sources resolves archive paths against AnimationDir.
func (c Config) Sources() []anim.Source {
	out := make([]anim.Source, len(c.Animations))
	for i, s := range c.Animations {
		if !filepath.IsAbs(s.Path) && c.AnimationDir != "" {
			s.Path = filepath.Join(c.AnimationDir, s.Path)
		}
		out[i] = s
	}
	return out
}

// LayoutMode returns the parsed layout; call after Validate.
func (c Config) LayoutMode() render.LayoutMode {
	m, _ := render.ParseLayoutMode(c.Layout)
	return m
}

// ArchiveList is a flag.Value of name=path pairs. A bare path takes its file
// name without extension as the animation name.
type ArchiveList []anim.Source

func (l *ArchiveList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, s := range *l {
		parts[i] = s.Name + "=" + s.Path
	}
	return strings.Join(parts, ",")
}

// Set replaces the list.
func (l *ArchiveList) Set(v string) error {
	var out ArchiveList
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, path, ok := strings.Cut(item, "=")
		if !ok {
			path = name
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if name == "" || path == "" {
			return fmt.Errorf("%w: archive %q", ErrInvalid, item)
		}
		out = append(out, anim.Source{Name: name, Path: path})
	}
	if len(out) == 0 {
		return fmt.Errorf("%w: empty archive list", ErrInvalid)
	}
	*l = out
	return nil
}
