package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ivlev/anim2lvgl/internal/document"
)

const (
	rbatMagic = "RBAT"
	// RBATVersion is the container version written by EncodeRBAT.
	RBATVersion = 1

	rbatHeaderSize = 4 + 2 + 2 + 2 + 2 + 4
)

var ErrBadContainer = errors.New("bad RBAT container")

// Container is the decoded content of an RBAT file.
type Container struct {
	Version uint16
	Width   int
	Height  int
	Frames  []document.Frame
}

// EncodeRBAT packs frames into the little-endian RBAT layout read by the
// runtime loader. Shape ids and frame easing are not part of the format.
func EncodeRBAT(width, height int, frames []document.Frame) ([]byte, error) {
	if width < 0 || width > math.MaxUint16 || height < 0 || height > math.MaxUint16 {
		return nil, fmt.Errorf("codec: canvas %dx%d: %w", width, height, ErrRange)
	}
	if err := checkFrames(frames); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, rbatHeaderSize+len(frames)*64)
	buf = append(buf, rbatMagic...)
	buf = binary.LittleEndian.AppendUint16(buf, RBATVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(width))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(height))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(frames)))
	buf = binary.LittleEndian.AppendUint32(buf, 0)

	f32 := func(v float64) {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
	}

	for _, f := range frames {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(f.Duration))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(f.Shapes)))

		for _, s := range f.Shapes {
			buf = append(buf, uint8(s.Type))
			f32(s.X)
			f32(s.Y)
			f32(s.Width)
			f32(s.Height)
			f32(s.Rotation)
			f32(s.Opacity)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(s.Color)&0xFFFFFF)

			x2, y2 := 0.0, 0.0
			if s.LineEnd != nil {
				x2, y2 = s.LineEnd.X, s.LineEnd.Y
			}
			f32(x2)
			f32(y2)

			buf = append(buf, uint8(min(max(s.FontSize, 0), math.MaxUint8)))
			buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s.Text)))
			buf = append(buf, s.Text...)
		}
	}
	return buf, nil
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) take(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, fmt.Errorf("codec: %w: truncated at offset %d", ErrBadContainer, r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) f32() (float64, error) {
	v, err := r.u32()
	return float64(math.Float32frombits(v)), err
}

// DecodeRBAT parses a container produced by EncodeRBAT. Line shapes get a
// LineEnd from x2/y2; other shapes only when x2 or y2 is non-zero.
func DecodeRBAT(data []byte) (*Container, error) {
	r := &reader{data: data}

	magic, err := r.take(4)
	if err != nil {
		return nil, err
	}
	if string(magic) != rbatMagic {
		return nil, fmt.Errorf("codec: %w: magic %q", ErrBadContainer, magic)
	}

	var hdr [4]uint16
	for i := range hdr {
		if hdr[i], err = r.u16(); err != nil {
			return nil, err
		}
	}
	if _, err := r.u32(); err != nil {
		return nil, err
	}

	c := &Container{Version: hdr[0], Width: int(hdr[1]), Height: int(hdr[2])}
	if c.Version != RBATVersion {
		return nil, fmt.Errorf("codec: %w: version %d", ErrBadContainer, c.Version)
	}

	count := int(hdr[3])
	c.Frames = make([]document.Frame, 0, count)
	for i := 0; i < count; i++ {
		f, err := r.frame()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		c.Frames = append(c.Frames, f)
	}
	if r.off != len(data) {
		return nil, fmt.Errorf("codec: %w: %d trailing bytes", ErrBadContainer, len(data)-r.off)
	}
	return c, nil
}

func (r *reader) frame() (document.Frame, error) {
	var f document.Frame
	dur, err := r.u16()
	if err != nil {
		return f, err
	}
	n, err := r.u16()
	if err != nil {
		return f, err
	}
	f.Duration = int(dur)
	f.Shapes = make([]document.Shape, n)
	for j := range f.Shapes {
		if f.Shapes[j], err = r.shape(); err != nil {
			return f, fmt.Errorf("shape %d: %w", j, err)
		}
	}
	return f, nil
}

func (r *reader) shape() (document.Shape, error) {
	var s document.Shape
	t, err := r.u8()
	if err != nil {
		return s, err
	}
	s.Type = document.ShapeType(t)

	for _, dst := range []*float64{&s.X, &s.Y, &s.Width, &s.Height, &s.Rotation, &s.Opacity} {
		if *dst, err = r.f32(); err != nil {
			return s, err
		}
	}
	color, err := r.u32()
	if err != nil {
		return s, err
	}
	s.Color = document.RGB(color & 0xFFFFFF)

	x2, err := r.f32()
	if err != nil {
		return s, err
	}
	y2, err := r.f32()
	if err != nil {
		return s, err
	}
	if s.Type == document.ShapeLine || x2 != 0 || y2 != 0 {
		s.LineEnd = &document.Point{X: x2, Y: y2}
	}

	fs, err := r.u8()
	if err != nil {
		return s, err
	}
	s.FontSize = int(fs)

	n, err := r.u16()
	if err != nil {
		return s, err
	}
	text, err := r.take(int(n))
	if err != nil {
		return s, err
	}
	s.Text = string(text)
	return s, nil
}
