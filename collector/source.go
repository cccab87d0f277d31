package collector

import (
	"bytes"
	"io"
	"os"
)

// Source is a byte source that can be opened again to restart a decode
// from the first byte.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource reads a log from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.Path)
}

// BytesSource serves a log already held in memory.
type BytesSource struct {
	Label string
	Data  []byte
}

func (s BytesSource) Name() string { return s.Label }

func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}
