package codec

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ivlev/anim2lvgl/internal/document"
)

var shapeTags = [...]string{
	document.ShapeRect:    "SHAPE_RECT",
	document.ShapeEllipse: "SHAPE_ELLIPSE",
	document.ShapeLine:    "SHAPE_LINE",
	document.ShapeText:    "SHAPE_TEXT",
}

func shapeTag(t document.ShapeType) string {
	if int(t) < len(shapeTags) {
		return shapeTags[t]
	}
	return shapeTags[document.ShapeRect]
}

// checkFrames verifies counts and durations fit the runtime's uint16_t
// fields.
func checkFrames(frames []document.Frame) error {
	if len(frames) > math.MaxUint16 {
		return fmt.Errorf("codec: %d frames: %w", len(frames), ErrRange)
	}
	for i, f := range frames {
		if f.Duration < 0 || f.Duration > math.MaxUint16 {
			return fmt.Errorf("codec: frame %d duration %d: %w", i, f.Duration, ErrRange)
		}
		if len(f.Shapes) > math.MaxUint16 {
			return fmt.Errorf("codec: frame %d has %d shapes: %w", i, len(f.Shapes), ErrRange)
		}
		for j, s := range f.Shapes {
			if len(s.Text) > math.MaxUint16 {
				return fmt.Errorf("codec: frame %d shape %d text is %d bytes: %w", i, j, len(s.Text), ErrRange)
			}
		}
	}
	return nil
}

// WriteVectorSource emits frames as anim_shape_t records plus the
// anim_vector_t descriptor NAME_data. Floats use a fixed two-decimal form
// so regenerated files diff cleanly.
func WriteVectorSource(w io.Writer, name string, frames []document.Frame) error {
	if err := checkFrames(frames); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#include \"anim_manager.h\"\n#include \"lvgl.h\"\n\n")

	for i, f := range frames {
		if len(f.Shapes) == 0 {
			continue
		}
		fmt.Fprintf(bw, "static const anim_shape_t %s_f%d_shapes[] = {\n", name, i)
		for _, s := range f.Shapes {
			x2, y2 := 0.0, 0.0
			if s.LineEnd != nil {
				x2, y2 = s.LineEnd.X, s.LineEnd.Y
			}
			text := "NULL"
			if s.Text != "" {
				text = cString(s.Text)
			}
			fmt.Fprintf(bw, "    { %s, %sf, %sf, %sf, %sf, %sf, 0x%06x, %sf, %sf, %sf, %s, %d },\n",
				shapeTag(s.Type),
				fixed(s.X), fixed(s.Y), fixed(s.Width), fixed(s.Height), fixed(s.Rotation),
				uint32(s.Color)&0xFFFFFF, fixed(s.Opacity), fixed(x2), fixed(y2),
				text, s.FontSize)
		}
		fmt.Fprintf(bw, "};\n\n")
	}

	fmt.Fprintf(bw, "static const anim_vector_frame_t %s_frames[] = {\n", name)
	for i, f := range frames {
		shapes := "NULL"
		if len(f.Shapes) > 0 {
			shapes = fmt.Sprintf("%s_f%d_shapes", name, i)
		}
		fmt.Fprintf(bw, "    { .shapes = %s, .shape_count = %d, .duration_ms = %d, .easing = %d },\n",
			shapes, len(f.Shapes), f.Duration, f.Easing)
	}
	fmt.Fprintf(bw, "};\n\n")

	fmt.Fprintf(bw, "const anim_vector_t %s_data = {\n", name)
	fmt.Fprintf(bw, "    .name = %s,\n", cString(name))
	fmt.Fprintf(bw, "    .frames = %s_frames,\n", name)
	fmt.Fprintf(bw, "    .frame_count = %d\n", len(frames))
	fmt.Fprintf(bw, "};\n")

	return bw.Flush()
}

// WriteVectorHeader declares NAME_data.
func WriteVectorHeader(w io.Writer, name string) error {
	guard := strings.ToUpper(name) + "_H"
	_, err := fmt.Fprintf(w, `#ifndef %[2]s
#define %[2]s

#include "anim_manager.h"

extern const anim_vector_t %[1]s_data;

#endif // %[2]s
`, name, guard)
	return err
}

// fixed formats v with two decimals, never as "-0.00".
func fixed(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

// cString quotes s as a C string literal. Non-ASCII bytes are written as
// octal escapes so the literal stays valid in any source encoding.
func cString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c >= 0x7F {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
