//go:build windows

package control

import "os"

type readResult struct {
	b   []byte
	err error
}

// keyReader on Windows reads stdin from a goroutine; a pending read is
// abandoned on close.
type keyReader struct {
	results chan readResult
}

func openKeyReader(f *os.File) (*keyReader, error) {
	r := &keyReader{results: make(chan readResult, 1)}
	go func() {
		for {
			buf := make([]byte, 32)
			n, err := f.Read(buf)
			r.results <- readResult{b: buf[:n], err: err}
			if err != nil {
				return
			}
		}
	}()
	return r, nil
}

func (r *keyReader) read(p []byte) (int, error) {
	select {
	case res := <-r.results:
		return copy(p, res.b), res.err
	default:
		return 0, nil
	}
}

func (r *keyReader) close() error { return nil }
