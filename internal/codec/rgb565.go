// Package codec serializes frames for the firmware: RGB565 bitmap arrays,
// vector shape records as C source, and the RBAT binary container.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ErrRange reports a value that does not fit its on-device field.
var ErrRange = errors.New("value out of range")

// ByteOrder selects how the two bytes of an RGB565 pixel are emitted.
type ByteOrder int

const (
	// HighByteFirst emits [hi, lo]. LVGL expects it with LV_COLOR_16_SWAP.
	HighByteFirst ByteOrder = iota
	// LowByteFirst emits [lo, hi], the natural little-endian layout.
	LowByteFirst
)

func (o ByteOrder) String() string {
	if o == LowByteFirst {
		return "low-first"
	}
	return "high-first"
}

func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "high-first", "swap", "be":
		return HighByteFirst, nil
	case "low-first", "le":
		return LowByteFirst, nil
	}
	return HighByteFirst, fmt.Errorf("codec: unknown byte order %q", s)
}

// PackRGB565 packs an 8-bit RGB triple into 5-6-5 bits.
func PackRGB565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// AppendRGB565 appends v to dst in byte order o.
func (o ByteOrder) AppendRGB565(dst []byte, v uint16) []byte {
	if o == LowByteFirst {
		return binary.LittleEndian.AppendUint16(dst, v)
	}
	return binary.BigEndian.AppendUint16(dst, v)
}

// PixelFormat describes the bitmap pixel layout.
type PixelFormat struct {
	Order ByteOrder
	// Alpha appends a constant alpha byte after every pixel (legacy
	// LV_IMG_CF_TRUE_COLOR_ALPHA images).
	Alpha      bool
	AlphaValue uint8
}

func (f PixelFormat) BytesPerPixel() int {
	if f.Alpha {
		return 3
	}
	return 2
}

// ColorFormat returns the LVGL colour-format tag for image descriptors.
func (f PixelFormat) ColorFormat() string {
	if f.Alpha {
		return "LV_IMG_CF_TRUE_COLOR_ALPHA"
	}
	return "LV_IMG_CF_TRUE_COLOR"
}

// AppendFrame converts a packed RGB888 buffer and appends the encoded
// pixels to dst.
func (f PixelFormat) AppendFrame(dst []byte, rgb []uint8) []byte {
	for i := 0; i+2 < len(rgb); i += 3 {
		dst = f.Order.AppendRGB565(dst, PackRGB565(rgb[i], rgb[i+1], rgb[i+2]))
		if f.Alpha {
			dst = append(dst, f.AlphaValue)
		}
	}
	return dst
}
