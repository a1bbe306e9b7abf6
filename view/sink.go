package view

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/farbridge/patchbay"
)

// PNGSink writes each presented frame as a numbered PNG file in a
// directory, frame_000000.png onward. It satisfies patchbay.OutputSink
// for offline rendering.
type PNGSink struct {
	dir    string
	prefix string
	frame  int
	closed bool
}

var _ patchbay.OutputSink = (*PNGSink)(nil)

// NewPNGSink creates the output directory if needed. An empty prefix
// defaults to "frame".
func NewPNGSink(dir, prefix string) (*PNGSink, error) {
	if prefix == "" {
		prefix = "frame"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("view: create %s: %w", dir, err)
	}
	return &PNGSink{dir: dir, prefix: prefix}, nil
}

// Present encodes one frame to the next numbered file.
func (s *PNGSink) Present(frame image.Image) error {
	if s.closed {
		return fmt.Errorf("view: sink is closed")
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s_%06d.png", s.prefix, s.frame))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.frame++
	return nil
}

// Close marks the sink finished. Present refuses further frames.
func (s *PNGSink) Close() error {
	s.closed = true
	return nil
}

// IsOpen reports whether the sink still accepts frames.
func (s *PNGSink) IsOpen() bool {
	return !s.closed
}

// Frames returns how many frames have been written.
func (s *PNGSink) Frames() int {
	return s.frame
}
