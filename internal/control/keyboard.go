package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"
)

// Key is a single decoded key press.
type Key rune

const (
	KeyCtrlC Key = 0x03
	KeyEsc   Key = 0x1b
)

// Source delivers events to h until ctx is done or the source fails.
type Source interface {
	Run(ctx context.Context, h Handler) error
}

// KeyboardSource reads single key presses from a raw terminal.
type KeyboardSource struct {
	In     *os.File
	Poll   time.Duration
	Logger *slog.Logger
}

// NewKeyboardSource reads from stdin.
func NewKeyboardSource(logger *slog.Logger) *KeyboardSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyboardSource{In: os.Stdin, Poll: 10 * time.Millisecond, Logger: logger}
}

// Run puts the terminal in raw mode and restores it on return. When In is
// not a terminal there is nothing to read and Run just waits for ctx.
func (k *KeyboardSource) Run(ctx context.Context, h Handler) error {
	fd := int(k.In.Fd())
	if !term.IsTerminal(fd) {
		k.Logger.Info("stdin is not a terminal, keyboard control disabled")
		<-ctx.Done()
		return nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("control: raw terminal: %w", err)
	}
	defer term.Restore(fd, old)

	r, err := openKeyReader(k.In)
	if err != nil {
		return fmt.Errorf("control: keyboard: %w", err)
	}
	defer r.close()

	k.Logger.Info("keyboard control ready, press Esc to quit")
	poll := k.Poll
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	buf := make([]byte, 32)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.read(buf)
		for _, key := range parseKeys(buf[:n]) {
			h.Handle(Event{Kind: KeyPress, Key: key})
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("control: keyboard read: %w", err)
		}
		if n > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(poll):
		}
	}
}

// parseKeys splits one read into keys. A lone ESC is the Esc key; ESC
// followed by '[' or 'O' starts a cursor or function key sequence, which is
// dropped.
func parseKeys(b []byte) []Key {
	var keys []Key
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != byte(KeyEsc) {
			keys = append(keys, Key(c))
			continue
		}
		if i+1 >= len(b) || (b[i+1] != '[' && b[i+1] != 'O') {
			keys = append(keys, KeyEsc)
			continue
		}
		// Skip to the final byte of the sequence.
		i += 2
		for i < len(b) && (b[i] < 0x40 || b[i] > 0x7e) {
			i++
		}
	}
	return keys
}
