package audio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// portAudioOutput drives the source from the PortAudio callback, one block
// of cfg.BlockSize frames per call.
type portAudioOutput struct {
	stream    paStream
	terminate func() error
	started   bool
}

// paStream is the part of *portaudio.Stream the output drives.
type paStream interface {
	Start() error
	Stop() error
	Close() error
}

func newPortAudio(cfg Config, src SampleSource) (Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: portaudio init: %w", err)
	}
	out, err := openPortAudio(cfg, src)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return out, nil
}

func openPortAudio(cfg Config, src SampleSource) (*portAudioOutput, error) {
	dev, _, err := findOutput(cfg.Device)
	if err != nil {
		return nil, err
	}
	if dev.MaxOutputChannels < cfg.Channels {
		return nil, fmt.Errorf("%w: %q has %d outputs, need %d", ErrChannels, dev.Name, dev.MaxOutputChannels, cfg.Channels)
	}
	p := portaudio.LowLatencyParameters(nil, dev)
	p.Output.Channels = cfg.Channels
	p.SampleRate = float64(cfg.SampleRate)
	p.FramesPerBuffer = cfg.BlockSize

	rep, _ := src.(StatusReporter)
	cb := func(out []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		if rep != nil {
			rep.ReportStatus(flags&portaudio.OutputUnderflow != 0)
		}
		src.Process(out)
	}
	stream, err := portaudio.OpenStream(p, cb)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", dev.Name, err)
	}
	return &portAudioOutput{stream: stream, terminate: portaudio.Terminate}, nil
}

func (o *portAudioOutput) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.stream.Start(); err != nil {
		return fmt.Errorf("audio: start: %w", err)
	}
	o.started = true
	return nil
}

func (o *portAudioOutput) Close() error {
	defer o.terminate()
	var stopErr error
	if o.started {
		stopErr = o.stream.Stop()
		o.started = false
	}
	return errors.Join(stopErr, o.stream.Close())
}

// findOutput resolves a device selector: empty is the host default, a number
// is a device index, anything else matches a name substring.
func findOutput(sel string) (*portaudio.DeviceInfo, int, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, -1, fmt.Errorf("audio: list devices: %w", err)
	}
	if sel == "" {
		def, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, -1, fmt.Errorf("%w: %v", ErrNoDevice, err)
		}
		for i, d := range devs {
			if sameDevice(d, def) {
				return d, i, nil
			}
		}
		return def, -1, nil
	}
	if idx, err := strconv.Atoi(sel); err == nil {
		if idx < 0 || idx >= len(devs) || devs[idx].MaxOutputChannels == 0 {
			return nil, -1, fmt.Errorf("%w: index %d", ErrNoDevice, idx)
		}
		return devs[idx], idx, nil
	}
	want := strings.ToLower(sel)
	for i, d := range devs {
		if d.MaxOutputChannels > 0 && strings.Contains(strings.ToLower(d.Name), want) {
			return d, i, nil
		}
	}
	return nil, -1, fmt.Errorf("%w: %q", ErrNoDevice, sel)
}

func sameDevice(a, b *portaudio.DeviceInfo) bool {
	if a == b {
		return true
	}
	if a.Name != b.Name || a.MaxOutputChannels != b.MaxOutputChannels {
		return false
	}
	return a.HostApi == nil || b.HostApi == nil || a.HostApi.Name == b.HostApi.Name
}

// Device describes one output device.
type Device struct {
	Index      int
	Name       string
	HostAPI    string
	Channels   int
	SampleRate float64
	Default    bool
}

// OutputDevices lists PortAudio devices that can play.
func OutputDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: list devices: %w", err)
	}
	def, _ := portaudio.DefaultOutputDevice()
	var out []Device
	for i, d := range devs {
		if d.MaxOutputChannels == 0 {
			continue
		}
		host := ""
		if d.HostApi != nil {
			host = d.HostApi.Name
		}
		out = append(out, Device{
			Index:      i,
			Name:       d.Name,
			HostAPI:    host,
			Channels:   d.MaxOutputChannels,
			SampleRate: d.DefaultSampleRate,
			Default:    def != nil && sameDevice(d, def),
		})
	}
	return out, nil
}
