package anim

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Source names one archive to load into the store.
type Source struct {
	Name string
	Path string
}

// Loader fills a Store from archives and opens its ready gate.
type Loader struct {
	Store  *Store
	Logger *slog.Logger
	// Rotation is applied to every frame at load time, in degrees.
	Rotation float64
	// Read defaults to ReadArchive; tests swap it out.
	Read func(name, path string, rotation float64) (*Animation, error)
}

// NewLoader returns a loader that applies the 90 degree orientation fix the
// archive preprocessor expects.
func NewLoader(store *Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Store: store, Logger: logger, Rotation: 90, Read: ReadArchive}
}

// Load reads every source in order. A failing archive is logged and skipped so
// the others still load. The ready gate is opened on return regardless of the
// outcome; the returned error joins every failure.
func (l *Loader) Load(ctx context.Context, sources []Source) error {
	defer l.Store.MarkReady()
	for _, src := range sources {
		l.Store.Declare(src.Name)
	}

	start := time.Now()
	var errs []error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		a, err := l.Read(src.Name, src.Path, l.Rotation)
		if err != nil {
			l.Logger.Error("animation load", "name", src.Name, "path", src.Path, "err", err)
			errs = append(errs, err)
		}
		if a == nil {
			continue
		}
		if err := l.Store.Put(a); err != nil {
			l.Logger.Error("animation store", "name", src.Name, "err", err)
			errs = append(errs, err)
			continue
		}
		l.Logger.Info("animation loaded", "name", src.Name, "frames", a.Len())
	}
	l.Logger.Info("animation cache ready", "elapsed", time.Since(start).Round(time.Millisecond), "loaded", l.loaded(), "slots", l.Store.Count())
	return errors.Join(errs...)
}

func (l *Loader) loaded() int {
	n := 0
	for _, name := range l.Store.Names() {
		if _, ok := l.Store.Lookup(name); ok {
			n++
		}
	}
	return n
}
