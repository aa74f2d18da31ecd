// Package midiport reads control events from a PortMidi input device.
package midiport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rakyll/portmidi"

	"github.com/cbegin/oscmusic-go/internal/control"
)

var ErrNoDevice = errors.New("midiport: no MIDI input device")

const bufferSize = 1024

// Source polls one input device. Device < 0 selects the system default.
type Source struct {
	Device int
	Poll   time.Duration
	Logger *slog.Logger
}

// New returns a Source for device, polling every 10ms.
func New(device int, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{Device: device, Poll: 10 * time.Millisecond, Logger: logger}
}

// Run opens the device and forwards decoded events to h until ctx is done.
// A read error closes the stream and is returned.
func (s *Source) Run(ctx context.Context, h control.Handler) error {
	if err := portmidi.Initialize(); err != nil {
		return fmt.Errorf("midiport: initialize: %w", err)
	}
	defer portmidi.Terminate()

	id := portmidi.DeviceID(s.Device)
	if s.Device < 0 {
		id = portmidi.DefaultInputDeviceID()
	}
	if id < 0 || int(id) >= portmidi.CountDevices() {
		return ErrNoDevice
	}
	info := portmidi.Info(id)
	if info == nil || !info.IsInputAvailable {
		return fmt.Errorf("%w: device %d is not an input", ErrNoDevice, id)
	}
	in, err := portmidi.NewInputStream(id, bufferSize)
	if err != nil {
		return fmt.Errorf("midiport: open %q: %w", info.Name, err)
	}
	defer in.Close()
	s.Logger.Info("MIDI input open", "device", int(id), "name", info.Name)

	poll := s.Poll
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		ready, err := in.Poll()
		if err != nil {
			return fmt.Errorf("midiport: poll: %w", err)
		}
		if !ready {
			continue
		}
		events, err := in.Read(bufferSize)
		if err != nil {
			return fmt.Errorf("midiport: read: %w", err)
		}
		for _, e := range events {
			ev, ok := control.DecodeMIDI(int(e.Status), int(e.Data1), int(e.Data2))
			if !ok {
				continue
			}
			h.Handle(ev)
		}
	}
}

// Device describes one MIDI input.
type Device struct {
	ID        int
	Name      string
	Interface string
	Default   bool
}

// Inputs lists the MIDI input devices.
func Inputs() ([]Device, error) {
	if err := portmidi.Initialize(); err != nil {
		return nil, fmt.Errorf("midiport: initialize: %w", err)
	}
	defer portmidi.Terminate()

	def := portmidi.DefaultInputDeviceID()
	var out []Device
	for i := 0; i < portmidi.CountDevices(); i++ {
		info := portmidi.Info(portmidi.DeviceID(i))
		if info == nil || !info.IsInputAvailable {
			continue
		}
		out = append(out, Device{
			ID:        i,
			Name:      info.Name,
			Interface: info.Interface,
			Default:   portmidi.DeviceID(i) == def,
		})
	}
	return out, nil
}
