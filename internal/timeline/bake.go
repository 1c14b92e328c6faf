// Package timeline resamples sparse keyframes into a uniform frame rate.
package timeline

import (
	"math"

	"github.com/ivlev/anim2lvgl/internal/config"
	"github.com/ivlev/anim2lvgl/internal/document"
	"github.com/ivlev/anim2lvgl/internal/logging"
)

type Baker struct {
	MinFPS int
	MaxFPS int
}

func NewBaker(d config.Defaults) *Baker {
	return &Baker{MinFPS: d.MinFPS, MaxFPS: d.MaxFPS}
}

// window is the slice of the source clock owned by one keyframe.
type window struct {
	start float64
	dur   float64
	index *document.Index
}

// Bake resamples frames at fps. The timeline loops: the last keyframe
// interpolates toward the first. Timelines with fewer than two frames or
// without any shape are returned as is.
func (b *Baker) Bake(frames []document.Frame, width, height, fps int) []document.Frame {
	if len(frames) < 2 || !document.HasShapes(frames) {
		return frames
	}

	fps = config.Defaults{MinFPS: b.MinFPS, MaxFPS: b.MaxFPS}.ClampFPS(fps)
	interval := 1000.0 / float64(fps)

	windows := make([]window, len(frames))
	total := 0.0
	for i, f := range frames {
		windows[i] = window{start: total, dur: float64(f.Duration), index: document.NewIndex(f.Shapes)}
		total += float64(f.Duration)
	}
	if total <= 0 {
		logging.Logger().Warn("timeline has zero total duration, bake skipped", "frames", len(frames))
		return frames
	}

	count := int(math.Ceil(total / interval))
	out := make([]document.Frame, 0, count)
	step := int(math.Round(interval))

	cur := 0
	for k := 0; ; k++ {
		t := float64(k) * interval
		if t >= total {
			break
		}

		i := locate(windows, &cur, t)
		w := windows[i]
		p := 0.0
		if w.dur > 0 {
			p = clamp((t-w.start)/w.dur, 0, 1)
		}

		src := frames[i]
		next := frames[(i+1)%len(frames)]
		nextIx := windows[(i+1)%len(frames)].index
		eased := Ease(src.Easing, p)

		baked := document.Frame{
			Duration: step,
			Easing:   document.EaseLinear,
			Shapes:   make([]document.Shape, len(src.Shapes)),
			Pixels:   src.Pixels,
		}
		for si := range src.Shapes {
			var partner *document.Shape
			if j, ok := nextIx.Lookup(src.Shapes[si].ID); ok {
				partner = &next.Shapes[j]
			}
			baked.Shapes[si] = Interpolate(&src.Shapes[si], partner, eased)
		}

		if rest := total - t; rest < interval {
			baked.Duration = max(1, int(math.Round(rest)))
		}
		out = append(out, baked)
	}

	logging.Logger().Debug("timeline baked",
		"source_frames", len(frames), "baked_frames", len(out),
		"fps", fps, "total_ms", total, "canvas", [2]int{width, height})
	return out
}

// locate returns the keyframe whose window holds t, starting the scan at
// *cur since t only grows. Falls back to frame 0.
func locate(windows []window, cur *int, t float64) int {
	for i := *cur; i < len(windows); i++ {
		w := windows[i]
		if t >= w.start && t < w.start+w.dur {
			*cur = i
			return i
		}
	}
	for i := 0; i < *cur; i++ {
		w := windows[i]
		if t >= w.start && t < w.start+w.dur {
			*cur = i
			return i
		}
	}
	return 0
}
