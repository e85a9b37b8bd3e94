package visibility

import "math"

// Viewport is the visible window in document coordinates.
type Viewport struct {
	ScrollY float64
	Height  float64
}

// Rect is an element's vertical extent in document coordinates.
type Rect struct {
	Top    float64
	Height float64
}

type EventKind string

const (
	EventScroll EventKind = "scroll"
	EventResize EventKind = "resize"
)

// Event is what the host publishes on every scroll or resize. Bounds carries
// the geometry of any elements the host measured for this frame.
type Event struct {
	Kind     EventKind
	Viewport Viewport
	Bounds   map[string]Rect
}

// Ratio is the fraction of r inside vp, clamped to [0,1]. ok is false when
// the element has no height to measure against.
func Ratio(r Rect, vp Viewport) (ratio float64, ok bool) {
	if r.Height <= 0 {
		return 0, false
	}
	top := math.Max(r.Top, vp.ScrollY)
	bottom := math.Min(r.Top+r.Height, vp.ScrollY+vp.Height)
	overlap := math.Max(0, bottom-top)
	return clamp01(overlap / r.Height), true
}

// RatioOpacity is 1 at or above threshold and ramps linearly to 0 below it.
func RatioOpacity(ratio, threshold float64) float64 {
	ratio = clamp01(ratio)
	if threshold <= 0 || ratio >= threshold {
		return 1
	}
	return clamp01(ratio / threshold)
}

// DistanceOpacity fades from 1 to 0 over fadeDistance pixels of scrolling in
// either direction from initial.
func DistanceOpacity(offset, initial, fadeDistance float64) float64 {
	if fadeDistance <= 0 {
		return 1
	}
	return math.Max(0, 1-math.Abs(offset-initial)/fadeDistance)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
