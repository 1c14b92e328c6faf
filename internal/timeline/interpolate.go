package timeline

import (
	"math"

	"github.com/ivlev/anim2lvgl/internal/document"
)

// Interpolate blends the numeric fields of a toward b at parameter t.
// Type, colour, id, text and font size always come from a. When b is nil,
// a is returned unchanged.
func Interpolate(a, b *document.Shape, t float64) document.Shape {
	out := a.Clone()
	if b == nil {
		return out
	}

	out.X = lerp(a.X, b.X, t)
	out.Y = lerp(a.Y, b.Y, t)
	out.Width = lerp(a.Width, b.Width, t)
	out.Height = lerp(a.Height, b.Height, t)
	out.Rotation = lerp(a.Rotation, b.Rotation, t)
	out.Opacity = clamp(lerp(a.Opacity, b.Opacity, t), 0, 1)

	if a.LineEnd != nil && b.LineEnd != nil {
		out.LineEnd = &document.Point{
			X: lerp(a.LineEnd.X, b.LineEnd.X, t),
			Y: lerp(a.LineEnd.Y, b.LineEnd.Y, t),
		}
	}
	return out
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Ease shapes linear progress t in [0,1] with the named curve. Overshoot,
// bounce and spring may leave [0,1] in between but end at 1.
func Ease(e document.Easing, t float64) float64 {
	switch e {
	case document.EaseIn:
		return t * t
	case document.EaseOut:
		return t * (2 - t)
	case document.EaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t
	case document.EaseOvershoot:
		return 2.70158*t*t*t - 1.70158*t*t
	case document.EaseBounce:
		return easeOutBounce(t)
	case document.EaseSpring:
		return 1 - math.Exp(-5*t)*math.Cos(10*t)
	}
	return t
}

func easeOutBounce(t float64) float64 {
	const n, d = 7.5625, 2.75
	switch {
	case t < 1/d:
		return n * t * t
	case t < 2/d:
		t -= 1.5 / d
		return n*t*t + 0.75
	case t < 2.5/d:
		t -= 2.25 / d
		return n*t*t + 0.9375
	}
	t -= 2.625 / d
	return n*t*t + 0.984375
}
