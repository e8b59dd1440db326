package viewport

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/jengzang/camglobe/internal/spatial"
)

// Window is a latitude band and a longitude arc. A projection's window for a
// screen rectangle contains every position it can draw inside that
// rectangle; it may admit more, never less.
type Window struct {
	MinLat, MaxLat float64
	// Lon is the middle of the longitude arc and LonHalf its half-width in
	// degrees. A half-width of 180 or more admits every longitude.
	Lon, LonHalf float64
}

// EmptyWindow admits nothing.
var EmptyWindow = Window{MinLat: 1, MaxLat: -1}

// Bounded is implemented by projections that can bound what they draw.
// Positions farther than horizonDeg from the view center may be left out of
// the window since the filter culls them anyway.
type Bounded interface {
	Window(minX, minY, maxX, maxY, horizonDeg float64) (Window, bool)
}

// CapWindow bounds the spherical cap of radiusDeg around center. A cap that
// reaches a pole spans every longitude.
func CapWindow(center LonLat, radiusDeg float64) Window {
	if !(radiusDeg >= 0) {
		return EmptyWindow
	}
	axis := s2.PointFromLatLng(s2.LatLngFromDegrees(center.Lat, center.Lon))
	rect := s2.CapFromCenterAngle(axis, s1.Angle(radiusDeg)*s1.Degree).RectBound()
	if rect.IsEmpty() {
		return EmptyWindow
	}

	w := Window{
		MinLat:  s1.Angle(rect.Lat.Lo).Degrees(),
		MaxLat:  s1.Angle(rect.Lat.Hi).Degrees(),
		Lon:     center.Lon,
		LonHalf: 180,
	}
	if !rect.Lng.IsFull() {
		w.Lon = s1.Angle(rect.Lng.Center()).Degrees()
		w.LonHalf = s1.Angle(rect.Lng.Length()).Degrees() / 2
	}
	return w
}

// Empty reports whether w admits nothing.
func (w Window) Empty() bool {
	return !(w.MinLat <= w.MaxLat)
}

// Grow widens w by deg on every side.
func (w Window) Grow(deg float64) Window {
	if w.Empty() || !(deg > 0) {
		return w
	}
	w.MinLat -= deg
	w.MaxLat += deg
	w.LonHalf += deg
	return w
}

func (w Window) Contains(lat, lon float64) bool {
	if lat < w.MinLat || lat > w.MaxLat {
		return false
	}
	return w.LonHalf >= 180 || spatial.LongitudeDelta(lon, w.Lon) <= w.LonHalf
}

// preCheck returns the window for the padded screen, or false when proj
// cannot bound itself and every cluster has to be projected.
func preCheck(vp Viewport, proj Projection, opts Options, horizon float64) (Window, bool) {
	b, ok := proj.(Bounded)
	if !ok {
		return Window{}, false
	}
	pad := opts.PaddingPx
	w, ok := b.Window(-pad, -pad, vp.Width+pad, vp.Height+pad, horizon)
	if !ok {
		return Window{}, false
	}
	return w.Grow(math.Max(0, opts.MarginDeg) + windowSlackDeg), true
}

// windowSlackDeg absorbs rounding between a window's edges and the
// projection's own arithmetic.
const windowSlackDeg = 1e-6
