// Package export turns a frame list into firmware artifacts. Each output
// format is an Exporter; New picks one by name.
package export

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/ivlev/anim2lvgl/internal/codec"
	"github.com/ivlev/anim2lvgl/internal/config"
	"github.com/ivlev/anim2lvgl/internal/document"
)

// Sink receives artifact files. The engine stages them in a temporary
// directory; tests and the bridge keep them in memory.
type Sink interface {
	Create(name string) (io.WriteCloser, error)
}

// Job is everything an exporter needs for one animation.
type Job struct {
	Name     string
	Width    int
	Height   int
	Frames   []document.Frame
	Defaults config.Defaults
	Pixel    codec.PixelFormat
}

// Kind tells the project registry how an artifact is registered.
type Kind int

const (
	// KindNone artifacts are loaded at runtime and never registered.
	KindNone Kind = iota
	KindBitmap
	KindVector
)

type Exporter interface {
	Format() string
	Kind() Kind
	// Export writes the artifacts for job into sink and returns their
	// file names.
	Export(job *Job, sink Sink) ([]string, error)
}

// New creates the exporter for a config.Format* name.
func New(format string) (Exporter, error) {
	switch format {
	case config.FormatBitmap:
		return &BitmapExporter{}, nil
	case config.FormatVector, "":
		return &VectorExporter{}, nil
	case config.FormatRBAT:
		return &RBATExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}
}

// writeFile creates name in sink and runs fn on it.
func writeFile(sink Sink, name string, fn func(io.Writer) error) error {
	w, err := sink.Create(name)
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		w.Close()
		return fmt.Errorf("export %s: %w", name, err)
	}
	return w.Close()
}

// MemorySink keeps artifacts in memory.
type MemorySink struct {
	Files map[string]*bytes.Buffer
}

func NewMemorySink() *MemorySink {
	return &MemorySink{Files: make(map[string]*bytes.Buffer)}
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func (m *MemorySink) Create(name string) (io.WriteCloser, error) {
	b := &bytes.Buffer{}
	m.Files[name] = b
	return nopCloser{b}, nil
}

// Names returns the stored file names in sorted order.
func (m *MemorySink) Names() []string {
	names := make([]string, 0, len(m.Files))
	for n := range m.Files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
