package anim

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// ReadArchive opens an .npz file and decodes every .npy entry as a frame.
// A broken entry is reported in the returned error and skipped; the
// animation holds whatever decoded cleanly.
func ReadArchive(name, file string, rotation float64) (*Animation, error) {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchive, file, err)
	}
	defer zr.Close()
	return decodeZip(name, &zr.Reader, rotation)
}

// ReadArchiveFrom is ReadArchive for an archive already in memory.
func ReadArchiveFrom(name string, r io.ReaderAt, size int64, rotation float64) (*Animation, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return decodeZip(name, zr, rotation)
}

func decodeZip(name string, zr *zip.Reader, rotation float64) (*Animation, error) {
	entries := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".npy") {
			entries = append(entries, f)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return natural.Less(entryName(entries[i].Name), entryName(entries[j].Name))
	})

	a := &Animation{Name: name}
	var errs []error
	for _, e := range entries {
		f, err := decodeEntry(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", name, e.Name, err))
			continue
		}
		if len(a.Frames) > 0 && len(f) != len(a.Frames[0]) {
			errs = append(errs, fmt.Errorf("%s/%s: %w", name, e.Name, ErrFrameLength))
			continue
		}
		f.Rotate(rotation)
		a.Frames = append(a.Frames, f)
	}
	if len(a.Frames) == 0 {
		errs = append(errs, fmt.Errorf("%w: %q", ErrEmpty, name))
		return nil, errors.Join(errs...)
	}
	return a, errors.Join(errs...)
}

func decodeEntry(e *zip.File) (Frame, error) {
	rc, err := e.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return DecodeNPY(rc)
}

func entryName(p string) string {
	return strings.TrimSuffix(path.Base(p), ".npy")
}
