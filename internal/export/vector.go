package export

import (
	"io"

	"github.com/ivlev/anim2lvgl/internal/codec"
)

// VectorExporter emits shape records as C source for the runtime's
// vector player.
type VectorExporter struct{}

func (e *VectorExporter) Format() string { return "vector" }
func (e *VectorExporter) Kind() Kind     { return KindVector }

func (e *VectorExporter) Export(job *Job, sink Sink) ([]string, error) {
	src, hdr := job.Name+".c", job.Name+".h"

	if err := writeFile(sink, src, func(w io.Writer) error {
		return codec.WriteVectorSource(w, job.Name, job.Frames)
	}); err != nil {
		return nil, err
	}
	if err := writeFile(sink, hdr, func(w io.Writer) error {
		return codec.WriteVectorHeader(w, job.Name)
	}); err != nil {
		return nil, err
	}
	return []string{src, hdr}, nil
}

// RBATExporter writes the binary container loaded from storage by
// anim_manager_load_rbat.
type RBATExporter struct{}

func (e *RBATExporter) Format() string { return "rbat" }
func (e *RBATExporter) Kind() Kind     { return KindNone }

func (e *RBATExporter) Export(job *Job, sink Sink) ([]string, error) {
	data, err := codec.EncodeRBAT(job.Width, job.Height, job.Frames)
	if err != nil {
		return nil, err
	}
	name := job.Name + ".rbat"
	if err := writeFile(sink, name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return nil, err
	}
	return []string{name}, nil
}
