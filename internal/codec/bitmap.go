package codec

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// MaxBitmapFrames is the frame limit of the runtime's uint8_t frame counter.
const MaxBitmapFrames = 255

const bytesPerLine = 24

// BitmapEncoder streams frames into a C source file of LVGL image
// descriptors. Only one frame is held in memory at a time.
type BitmapEncoder struct {
	w      *bufio.Writer
	name   string
	width  int
	height int
	format PixelFormat

	frames int
	buf    []byte
	err    error
}

func NewBitmapEncoder(w io.Writer, name string, width, height int, format PixelFormat) *BitmapEncoder {
	return &BitmapEncoder{
		w:      bufio.NewWriter(w),
		name:   name,
		width:  width,
		height: height,
		format: format,
	}
}

// FrameSize is the byte size of one encoded frame.
func (e *BitmapEncoder) FrameSize() int {
	return e.width * e.height * e.format.BytesPerPixel()
}

func (e *BitmapEncoder) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *BitmapEncoder) preamble() {
	e.printf(`/**
 * @file %s.c
 * @brief Generated animation, %dx%d
 * Compatible with LVGL (RGB565, %s)
 */

#if defined(LV_LVGL_H_INCLUDE_SIMPLE)
#include "lvgl.h"
#else
#include "lvgl/lvgl.h"
#endif

#ifndef LV_ATTRIBUTE_MEM_ALIGN
#define LV_ATTRIBUTE_MEM_ALIGN
#endif

`, e.name, e.width, e.height, e.format.Order)
}

// WriteFrame encodes one RGB888 frame of width*height pixels.
func (e *BitmapEncoder) WriteFrame(rgb []uint8) error {
	if e.err != nil {
		return e.err
	}
	if want := e.width * e.height * 3; len(rgb) != want {
		return fmt.Errorf("codec: frame %d has %d bytes, want %d", e.frames, len(rgb), want)
	}
	if e.frames >= MaxBitmapFrames {
		return fmt.Errorf("codec: frame %d: %w: bitmap animations hold at most %d frames", e.frames, ErrRange, MaxBitmapFrames)
	}
	if e.frames == 0 {
		e.preamble()
	}

	e.buf = e.format.AppendFrame(e.buf[:0], rgb)
	frameName := fmt.Sprintf("%s_f%d", e.name, e.frames)

	e.printf("const LV_ATTRIBUTE_MEM_ALIGN uint8_t %s_map[] = {\n", frameName)
	if e.err == nil {
		e.err = writeHexBytes(e.w, e.buf)
	}
	e.printf("};\n\n")

	e.printf(`const lv_img_dsc_t %s = {
    .header.always_zero = 0,
    .header.w = %d,
    .header.h = %d,
    .data_size = %d,
    .header.cf = %s,
    .data = %s_map,
};

`, frameName, e.width, e.height, len(e.buf), e.format.ColorFormat(), frameName)

	e.frames++
	return e.err
}

// Frames returns the number of frames written so far.
func (e *BitmapEncoder) Frames() int { return e.frames }

// Close writes the frame table and flushes.
func (e *BitmapEncoder) Close() error {
	if e.err != nil {
		return e.err
	}
	if e.frames == 0 {
		return fmt.Errorf("codec: bitmap %s has no frames", e.name)
	}

	e.printf("const lv_img_dsc_t* %s_frames[] = {\n", e.name)
	for i := 0; i < e.frames; i++ {
		e.printf("    &%s_f%d,\n", e.name, i)
	}
	e.printf("};\n\n")
	e.printf("const uint8_t %s_frame_count = %d;\n", e.name, e.frames)

	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

func writeHexBytes(w io.Writer, data []byte) error {
	var line strings.Builder
	for i := 0; i < len(data); i += bytesPerLine {
		end := min(i+bytesPerLine, len(data))
		line.Reset()
		line.WriteString("    ")
		for j, b := range data[i:end] {
			if j > 0 {
				line.WriteByte(' ')
			}
			fmt.Fprintf(&line, "0x%02x,", b)
		}
		line.WriteByte('\n')
		if _, err := io.WriteString(w, line.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteBitmapHeader writes the declarations matching a BitmapEncoder
// source file.
func WriteBitmapHeader(w io.Writer, name string) error {
	guard := strings.ToUpper(name) + "_H"
	_, err := fmt.Fprintf(w, `/**
 * @file %[1]s.h
 * @brief Header for %[1]s.c
 */

#ifndef %[2]s
#define %[2]s

#include "lvgl/lvgl.h"

extern const lv_img_dsc_t* %[1]s_frames[];
extern const uint8_t %[1]s_frame_count;

#endif // %[2]s
`, name, guard)
	return err
}
