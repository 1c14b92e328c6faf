// Package preview writes images of rasterized frames so an animation can
// be checked without flashing the device: one image per frame and a
// labelled contact sheet.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/anim2lvgl/internal/export"
	"github.com/ivlev/anim2lvgl/internal/logging"
	"github.com/ivlev/anim2lvgl/internal/raster"
)

// Options selects what Render writes. An empty Format disables per-frame
// images.
type Options struct {
	Format string
	Scale  int
	Sheet  bool
	// Thumb is the longest side of a contact-sheet cell in pixels.
	Thumb int
}

const (
	defaultThumb = 96
	labelHeight  = 16
)

// Encode writes img as png, webp or tga.
func Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "", "png":
		return png.Encode(w, img)
	case "webp":
		return nativewebp.Encode(w, img, nil)
	case "tga":
		return tga.Encode(w, img)
	}
	return fmt.Errorf("preview: unknown format %q", format)
}

// Ext returns the file extension for format.
func Ext(format string) string {
	if format == "" {
		return ".png"
	}
	return "." + strings.ToLower(format)
}

// Scale enlarges img by an integer factor with nearest-neighbour sampling
// so single pixels stay crisp.
func Scale(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Sheet is a grid of labelled thumbnails, filled one frame at a time.
type Sheet struct {
	img   *image.RGBA
	cols  int
	cellW int
	cellH int
	n     int
}

// NewSheet sizes a sheet for count frames of width x height.
func NewSheet(count, width, height, thumb int) *Sheet {
	if thumb <= 0 {
		thumb = defaultThumb
	}
	k := float64(thumb) / float64(max(width, height))
	cellW := max(1, int(math.Round(float64(width)*k)))
	cellH := max(1, int(math.Round(float64(height)*k)))

	cols := int(math.Ceil(math.Sqrt(float64(count))))
	cols = max(cols, 1)
	rows := max(1, (count+cols-1)/cols)

	img := image.NewRGBA(image.Rect(0, 0, cols*cellW, rows*(cellH+labelHeight)))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{0x20, 0x20, 0x20, 0xFF}), image.Point{}, draw.Src)
	return &Sheet{img: img, cols: cols, cellW: cellW, cellH: cellH}
}

// Add draws the next thumbnail with label under it.
func (s *Sheet) Add(frame image.Image, label string) {
	col, row := s.n%s.cols, s.n/s.cols
	s.n++

	x0, y0 := col*s.cellW, row*(s.cellH+labelHeight)
	cell := image.Rect(x0, y0, x0+s.cellW, y0+s.cellH)
	if !cell.In(s.img.Bounds()) {
		return
	}
	draw.CatmullRom.Scale(s.img, cell, frame, frame.Bounds(), draw.Src, nil)

	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x0+2, y0+s.cellH+basicfont.Face7x13.Ascent+1),
	}
	d.DrawString(label)
}

func (s *Sheet) Image() *image.RGBA { return s.img }

// Render rasterizes job's frames and writes the requested previews into
// sink. It returns the file names written.
func Render(job *export.Job, opts Options, sink export.Sink) ([]string, error) {
	if opts.Format == "" && !opts.Sheet {
		return nil, nil
	}

	var files []string
	var sheet *Sheet
	if opts.Sheet {
		sheet = NewSheet(len(job.Frames), job.Width, job.Height, opts.Thumb)
	}

	comp := raster.NewCompositor(job.Width, job.Height, job.Defaults)
	for i, f := range job.Frames {
		err := comp.Render(f, func(buf *raster.Buffer) error {
			img := buf.Image()
			if sheet != nil {
				sheet.Add(img, fmt.Sprintf("%d %dms", i, f.Duration))
			}
			if opts.Format == "" {
				return nil
			}
			name := fmt.Sprintf("%s_f%03d%s", job.Name, i, Ext(opts.Format))
			if err := writeImage(sink, name, Scale(img, opts.Scale), opts.Format); err != nil {
				return err
			}
			files = append(files, name)
			return nil
		})
		if err != nil {
			return files, err
		}
	}

	if sheet != nil {
		name := job.Name + "_sheet.png"
		if err := writeImage(sink, name, sheet.Image(), "png"); err != nil {
			return files, err
		}
		files = append(files, name)
	}

	logging.Logger().Info("previews written", "name", job.Name, "files", len(files))
	return files, nil
}

func writeImage(sink export.Sink, name string, img image.Image, format string) error {
	w, err := sink.Create(name)
	if err != nil {
		return err
	}
	if err := Encode(w, img, format); err != nil {
		w.Close()
		return fmt.Errorf("preview %s: %w", name, err)
	}
	return w.Close()
}
