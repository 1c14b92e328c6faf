package timeline

import (
	"math"
	"testing"

	"github.com/ivlev/anim2lvgl/internal/config"
	"github.com/ivlev/anim2lvgl/internal/document"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func rect(id string, x float64) document.Shape {
	return document.Shape{ID: id, Type: document.ShapeRect, X: x, Width: 10, Height: 10, Color: 0xFFFFFF, Opacity: 1}
}

func twoFrames() []document.Frame {
	return []document.Frame{
		{Duration: 500, Shapes: []document.Shape{rect("s1", 0)}},
		{Duration: 500, Shapes: []document.Shape{rect("s1", 10)}},
	}
}

func TestBakeTwoFrameScenario(t *testing.T) {
	b := NewBaker(config.DefaultDefaults())
	out := b.Bake(twoFrames(), 100, 100, 20)

	if len(out) != 20 {
		t.Fatalf("expected 20 baked frames, got %d", len(out))
	}

	tests := []struct {
		index int
		x     float64
	}{
		{0, 0},
		{5, 5},   // midpoint of frame 0
		{10, 10}, // start of frame 1
		{15, 5},  // frame 1 heading back to frame 0
		{19, 1},  // t=950, p=0.9
	}
	for _, tt := range tests {
		got := out[tt.index].Shapes[0].X
		if abs(got-tt.x) > 1e-9 {
			t.Errorf("frame %d: x = %.3f, want %.3f", tt.index, got, tt.x)
		}
	}

	total := 0
	for i, f := range out {
		if f.Duration != 50 {
			t.Errorf("frame %d duration = %d, want 50", i, f.Duration)
		}
		total += f.Duration
		if f.Shapes[0].ID != "s1" || f.Shapes[0].Width != 10 {
			t.Errorf("frame %d lost shape fields: %+v", i, f.Shapes[0])
		}
	}
	if total != 1000 {
		t.Errorf("baked total = %d, want 1000", total)
	}
}

func TestBakePassThrough(t *testing.T) {
	b := NewBaker(config.DefaultDefaults())

	single := []document.Frame{{Duration: 300, Shapes: []document.Shape{rect("a", 1)}}}
	if out := b.Bake(single, 10, 10, 30); len(out) != 1 || &out[0] != &single[0] {
		t.Errorf("single frame should pass through unchanged")
	}

	noShapes := []document.Frame{{Duration: 100}, {Duration: 100}}
	if out := b.Bake(noShapes, 10, 10, 30); len(out) != 2 || &out[0] != &noShapes[0] {
		t.Errorf("shape-less timeline should pass through unchanged")
	}
}

func TestBakeClampsFPS(t *testing.T) {
	b := NewBaker(config.DefaultDefaults())

	// 1 fps clamps to 10 -> 100ms interval
	if out := b.Bake(twoFrames(), 10, 10, 1); len(out) != 10 {
		t.Errorf("expected 10 frames at clamped 10fps, got %d", len(out))
	}
	// 500 fps clamps to 60 -> 16.67ms interval, ceil(1000/16.67) = 60
	if out := b.Bake(twoFrames(), 10, 10, 500); len(out) != 60 {
		t.Errorf("expected 60 frames at clamped 60fps, got %d", len(out))
	}
}

func TestBakeRemainderDuration(t *testing.T) {
	b := NewBaker(config.DefaultDefaults())
	frames := []document.Frame{
		{Duration: 120, Shapes: []document.Shape{rect("s", 0)}},
		{Duration: 100, Shapes: []document.Shape{rect("s", 10)}},
	}
	out := b.Bake(frames, 10, 10, 10)

	// 220ms at 100ms steps: 100, 100, 20
	if len(out) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(out))
	}
	if out[2].Duration != 20 {
		t.Errorf("last frame duration = %d, want 20", out[2].Duration)
	}
}

func TestBakeZeroDurationFrame(t *testing.T) {
	b := NewBaker(config.DefaultDefaults())
	frames := []document.Frame{
		{Duration: 0, Shapes: []document.Shape{rect("s", 0)}},
		{Duration: 200, Shapes: []document.Shape{rect("s", 10)}},
	}
	out := b.Bake(frames, 10, 10, 10)
	if len(out) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(out))
	}
	for i, f := range out {
		if math.IsNaN(f.Shapes[0].X) {
			t.Errorf("frame %d has NaN x", i)
		}
	}
	// t=0 falls in frame 1's window and heads back to frame 0
	if out[0].Shapes[0].X != 10 {
		t.Errorf("frame 0 x = %f, want 10", out[0].Shapes[0].X)
	}
}

func TestBakeUnmatchedShapesCarried(t *testing.T) {
	b := NewBaker(config.DefaultDefaults())
	frames := []document.Frame{
		{Duration: 100, Shapes: []document.Shape{rect("", 3), rect("only-here", 7)}, Pixels: []document.Pixel{{Index: 1, Color: 0xFF}}},
		{Duration: 100, Shapes: []document.Shape{rect("other", 50)}},
	}
	out := b.Bake(frames, 10, 10, 20)

	mid := out[1] // t=50, p=0.5 within frame 0
	if mid.Shapes[0].X != 3 || mid.Shapes[1].X != 7 {
		t.Errorf("unmatched shapes should keep their geometry: %+v", mid.Shapes)
	}
	if len(mid.Pixels) != 1 || mid.Pixels[0].Color != 0xFF {
		t.Errorf("pixels should be carried forward: %+v", mid.Pixels)
	}
}

func TestBakeEasing(t *testing.T) {
	b := NewBaker(config.DefaultDefaults())
	frames := twoFrames()
	frames[0].Easing = document.EaseIn

	out := b.Bake(frames, 10, 10, 20)
	// p=0.5 eased in -> 0.25
	if got := out[5].Shapes[0].X; abs(got-2.5) > 1e-9 {
		t.Errorf("eased x = %f, want 2.5", got)
	}
	if out[5].Easing != document.EaseLinear {
		t.Errorf("baked frames should carry linear easing")
	}
}
