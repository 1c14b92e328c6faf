package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/ivlev/anim2lvgl/internal/document"
)

func TestWriteVectorSource(t *testing.T) {
	frames := []document.Frame{
		{Duration: 41, Shapes: []document.Shape{
			{Type: document.ShapeEllipse, X: 103, Y: 168, Width: 115, Height: 71, Color: 0x00FFFF, Opacity: 1, FontSize: 14},
			{Type: document.ShapeLine, X: 1.234, Y: -0.001, LineEnd: &document.Point{X: 5.5, Y: 6}, Color: 0xFF, Opacity: 0.5, FontSize: 14},
			{Type: document.ShapeText, X: 10, Y: 20, Text: `say "hi"`, Color: 0xFFFFFF, Opacity: 1, FontSize: 20},
		}},
		{Duration: 59, Easing: document.EaseOut},
	}

	var sb strings.Builder
	if err := WriteVectorSource(&sb, "my_anim", frames); err != nil {
		t.Fatalf("WriteVectorSource failed: %v", err)
	}
	out := sb.String()

	wants := []string{
		"static const anim_shape_t my_anim_f0_shapes[] = {",
		"    { SHAPE_ELLIPSE, 103.00f, 168.00f, 115.00f, 71.00f, 0.00f, 0x00ffff, 1.00f, 0.00f, 0.00f, NULL, 14 },",
		"    { SHAPE_LINE, 1.23f, 0.00f, 0.00f, 0.00f, 0.00f, 0x0000ff, 0.50f, 5.50f, 6.00f, NULL, 14 },",
		`    { SHAPE_TEXT, 10.00f, 20.00f, 0.00f, 0.00f, 0.00f, 0xffffff, 1.00f, 0.00f, 0.00f, "say \"hi\"", 20 },`,
		"static const anim_vector_frame_t my_anim_frames[] = {",
		"    { .shapes = my_anim_f0_shapes, .shape_count = 3, .duration_ms = 41, .easing = 0 },",
		"    { .shapes = NULL, .shape_count = 0, .duration_ms = 59, .easing = 2 },",
		".name = \"my_anim\",",
		".frames = my_anim_frames,",
		".frame_count = 2",
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q\n%s", w, out)
		}
	}
	if strings.Contains(out, "my_anim_f1_shapes") {
		t.Error("empty frames must not declare a shape array")
	}
}

func TestWriteVectorSourceRange(t *testing.T) {
	frames := []document.Frame{{Duration: 70000}}
	var sb strings.Builder
	if err := WriteVectorSource(&sb, "x", frames); !errors.Is(err, ErrRange) {
		t.Errorf("expected ErrRange, got %v", err)
	}
}

func TestWriteVectorHeader(t *testing.T) {
	var sb strings.Builder
	if err := WriteVectorHeader(&sb, "my_anim"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "extern const anim_vector_t my_anim_data;") {
		t.Errorf("header missing declaration:\n%s", sb.String())
	}
}

func TestCString(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", `"plain"`},
		{`a\b`, `"a\\b"`},
		{"line\nnext", `"line\nnext"`},
		{"é", `"\303\251"`},
	}
	for _, tt := range tests {
		if got := cString(tt.in); got != tt.want {
			t.Errorf("cString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
