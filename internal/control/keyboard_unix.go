//go:build !windows

package control

import (
	"io"
	"os"
	"syscall"
)

type keyReader struct {
	fd int
}

func openKeyReader(f *os.File) (*keyReader, error) {
	fd := int(f.Fd())
	if err := syscall.SetNonblock(fd, true); err != nil {
		return nil, err
	}
	return &keyReader{fd: fd}, nil
}

// read returns 0, nil when no input is pending.
func (r *keyReader) read(p []byte) (int, error) {
	n, err := syscall.Read(r.fd, p)
	if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || err == syscall.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *keyReader) close() error {
	return syscall.SetNonblock(r.fd, false)
}
