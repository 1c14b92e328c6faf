package export

import (
	"io"

	"github.com/ivlev/anim2lvgl/internal/codec"
	"github.com/ivlev/anim2lvgl/internal/raster"
)

// BitmapExporter rasterizes every frame and emits RGB565 image
// descriptors. Frames are composed one at a time into a pooled buffer.
type BitmapExporter struct{}

func (e *BitmapExporter) Format() string { return "bitmap" }
func (e *BitmapExporter) Kind() Kind     { return KindBitmap }

func (e *BitmapExporter) Export(job *Job, sink Sink) ([]string, error) {
	src, hdr := job.Name+".c", job.Name+".h"

	err := writeFile(sink, src, func(w io.Writer) error {
		enc := codec.NewBitmapEncoder(w, job.Name, job.Width, job.Height, job.Pixel)
		comp := raster.NewCompositor(job.Width, job.Height, job.Defaults)
		for _, f := range job.Frames {
			err := comp.Render(f, func(buf *raster.Buffer) error {
				return enc.WriteFrame(buf.Pix)
			})
			if err != nil {
				return err
			}
		}
		return enc.Close()
	})
	if err != nil {
		return nil, err
	}

	if err := writeFile(sink, hdr, func(w io.Writer) error {
		return codec.WriteBitmapHeader(w, job.Name)
	}); err != nil {
		return nil, err
	}
	return []string{src, hdr}, nil
}
