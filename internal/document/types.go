package document

import (
	"strconv"
	"strings"
)

// ShapeType tags the primitive a Shape describes. Values match the
// runtime's shape_type_t.
type ShapeType uint8

const (
	ShapeRect ShapeType = iota
	ShapeEllipse
	ShapeLine
	ShapeText
)

func (t ShapeType) String() string {
	switch t {
	case ShapeRect:
		return "rect"
	case ShapeEllipse:
		return "ellipse"
	case ShapeLine:
		return "line"
	case ShapeText:
		return "text"
	}
	return "shape(" + strconv.Itoa(int(t)) + ")"
}

// ParseShapeType maps a studio type name to a ShapeType. Unknown names
// report ok=false and fall back to ShapeRect.
func ParseShapeType(s string) (ShapeType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rect", "rectangle":
		return ShapeRect, true
	case "ellipse", "circle":
		return ShapeEllipse, true
	case "line":
		return ShapeLine, true
	case "text":
		return ShapeText, true
	}
	return ShapeRect, false
}

// RGB is a 24-bit colour stored as 0xRRGGBB.
type RGB uint32

func (c RGB) Components() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

func (c RGB) Hex() string {
	return "#" + strings.ToLower(leftPad(strconv.FormatUint(uint64(c&0xFFFFFF), 16), 6))
}

// ParseColor accepts "#RRGGBB", "RRGGBB" and the short "#RGB" form.
func ParseColor(s string) (RGB, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3:
		v, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return 0, false
		}
		r, g, b := (v>>8)&0xF, (v>>4)&0xF, v&0xF
		return RGB(r*17<<16 | g*17<<8 | b*17), true
	case 6:
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return 0, false
		}
		return RGB(v), true
	}
	return 0, false
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}

// Easing shapes the local progress between two keyframes. Values are the
// indices written into vector frame records.
type Easing uint8

const (
	EaseLinear Easing = iota
	EaseIn
	EaseOut
	EaseInOut
	EaseOvershoot
	EaseBounce
	EaseSpring
)

var easingNames = []string{"linear", "ease-in", "ease-out", "ease-in-out", "overshoot", "bounce", "spring"}

func (e Easing) String() string {
	if int(e) < len(easingNames) {
		return easingNames[e]
	}
	return "linear"
}

// ParseEasing returns EaseLinear for empty or unknown names.
func ParseEasing(s string) Easing {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range easingNames {
		if name == s {
			return Easing(i)
		}
	}
	return EaseLinear
}

// Point is a 2D coordinate in canvas pixels.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Shape is one primitive within a frame. Type selects which geometry fields
// are meaningful: X/Y/Width/Height for rect and ellipse, X/Y plus LineEnd
// for lines, X/Y plus Text/FontSize for text.
type Shape struct {
	ID       string    `yaml:"id,omitempty"`
	Type     ShapeType `yaml:"type"`
	X        float64   `yaml:"x"`
	Y        float64   `yaml:"y"`
	Width    float64   `yaml:"width"`
	Height   float64   `yaml:"height"`
	Rotation float64   `yaml:"rotation"` // degrees
	Color    RGB       `yaml:"color"`
	Opacity  float64   `yaml:"opacity"`
	LineEnd  *Point    `yaml:"line_end,omitempty"`
	Text     string    `yaml:"text,omitempty"`
	FontSize int       `yaml:"font_size,omitempty"`
}

// Clone returns a copy that shares no pointers with s.
func (s Shape) Clone() Shape {
	if s.LineEnd != nil {
		le := *s.LineEnd
		s.LineEnd = &le
	}
	return s
}

// Pixel is a single painted pixel from the studio's raster layer.
type Pixel struct {
	Index int `yaml:"i"`
	Color RGB `yaml:"c"`
}

// Frame is one keyframe: shapes drawn in order, shown for Duration ms.
type Frame struct {
	Duration int     `yaml:"duration"`
	Easing   Easing  `yaml:"easing"`
	Shapes   []Shape `yaml:"shapes"`
	Pixels   []Pixel `yaml:"pixels,omitempty"`
}

// HasShapes reports whether any frame carries at least one shape.
func HasShapes(frames []Frame) bool {
	for _, f := range frames {
		if len(f.Shapes) > 0 {
			return true
		}
	}
	return false
}

// TotalDuration sums frame durations in ms.
func TotalDuration(frames []Frame) int {
	total := 0
	for _, f := range frames {
		total += f.Duration
	}
	return total
}

type State struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Frames []Frame `yaml:"frames"`
}

// Document is a parsed animation project.
type Document struct {
	Version       string  `yaml:"version,omitempty"`
	Name          string  `yaml:"name"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	FPS           int     `yaml:"fps"`
	Easing        Easing  `yaml:"easing"`
	ActiveStateID string  `yaml:"active_state"`
	States        []State `yaml:"states"`

	// Warnings lists input problems recovered with a default.
	Warnings []error `yaml:"-"`
}
