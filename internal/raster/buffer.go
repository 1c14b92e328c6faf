package raster

import (
	"image"
	"image/color"

	"github.com/ivlev/anim2lvgl/internal/document"
)

// Buffer is a packed 8-bit RGB canvas, row-major, 3 bytes per pixel.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewBuffer allocates a zeroed (black) buffer.
func NewBuffer(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Len returns the number of pixels.
func (b *Buffer) Len() int { return b.Width * b.Height }

// Fill paints every pixel with c.
func (b *Buffer) Fill(c document.RGB) {
	r, g, bl := c.Components()
	for i := 0; i+2 < len(b.Pix); i += 3 {
		b.Pix[i], b.Pix[i+1], b.Pix[i+2] = r, g, bl
	}
}

// At returns the colour of pixel index i, or black when i is out of range.
func (b *Buffer) At(i int) (r, g, bl uint8) {
	if i < 0 || i >= b.Len() {
		return 0, 0, 0
	}
	o := i * 3
	return b.Pix[o], b.Pix[o+1], b.Pix[o+2]
}

// Set writes c at pixel index i. Indices outside the buffer are dropped.
func (b *Buffer) Set(i int, c document.RGB) bool {
	if i < 0 || i >= b.Len() {
		return false
	}
	o := i * 3
	b.Pix[o], b.Pix[o+1], b.Pix[o+2] = c.Components()
	return true
}

// Blend mixes c over pixel i with weight alpha in [0,1]:
// bg*(1-alpha) + fg*alpha, truncated to 8 bits.
func (b *Buffer) Blend(i int, c document.RGB, alpha float64) bool {
	if alpha <= 0 || i < 0 || i >= b.Len() {
		return false
	}
	if alpha >= 1 {
		return b.Set(i, c)
	}
	o := i * 3
	fr, fg, fb := c.Components()
	b.Pix[o] = mix(b.Pix[o], fr, alpha)
	b.Pix[o+1] = mix(b.Pix[o+1], fg, alpha)
	b.Pix[o+2] = mix(b.Pix[o+2], fb, alpha)
	return true
}

func mix(bg, fg uint8, alpha float64) uint8 {
	v := float64(bg)*(1-alpha) + float64(fg)*alpha
	if v >= 255 {
		return 255
	}
	if v <= 0 {
		return 0
	}
	return uint8(v)
}

// Image converts the buffer to an *image.RGBA for preview encoders.
func (b *Buffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i := 0; i < b.Len(); i++ {
		o := i * 3
		img.SetRGBA(i%b.Width, i/b.Width, color.RGBA{R: b.Pix[o], G: b.Pix[o+1], B: b.Pix[o+2], A: 0xFF})
	}
	return img
}
