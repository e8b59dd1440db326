// Package projection provides the reference projections the host hands to
// the visibility filter: an unclipped orthographic globe, equirectangular
// and Mercator flat maps, and a screen-space blend used while morphing
// between the two.
package projection

import (
	"math"

	"github.com/jengzang/camglobe/internal/spatial"
	"github.com/jengzang/camglobe/internal/viewport"
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi

	// GlobeFill is the share of the shorter screen side the globe's
	// diameter covers at zoom 1.
	GlobeFill = 0.9
)

// Orthographic projects onto a sphere seen from infinitely far away. It is
// unclipped: points on the far side still project (onto the disc) and the
// visibility filter removes them by angular distance.
type Orthographic struct {
	Center viewport.LonLat
	Radius float64
	CX, CY float64
}

func (o Orthographic) Project(lon, lat float64) (float64, float64, bool) {
	if !spatial.Finite(lat, lon) || o.Radius <= 0 {
		return 0, 0, false
	}
	phi0 := o.Center.Lat * degToRad
	lambda := (lon - o.Center.Lon) * degToRad
	phi := lat * degToRad

	x := o.Radius * math.Cos(phi) * math.Sin(lambda)
	y := o.Radius * (math.Cos(phi0)*math.Sin(phi) - math.Sin(phi0)*math.Cos(phi)*math.Cos(lambda))
	return o.CX + x, o.CY - y, true
}

// Invert returns false for screen points off the disc.
func (o Orthographic) Invert(x, y float64) (float64, float64, bool) {
	if o.Radius <= 0 {
		return 0, 0, false
	}
	dx, dy := x-o.CX, o.CY-y
	rho := math.Hypot(dx, dy)
	if rho > o.Radius || math.IsNaN(rho) {
		return 0, 0, false
	}
	if rho == 0 {
		return o.Center.Lon, o.Center.Lat, true
	}

	phi0 := o.Center.Lat * degToRad
	c := math.Asin(rho / o.Radius)
	sinC, cosC := math.Sin(c), math.Cos(c)

	lat := math.Asin(cosC*math.Sin(phi0) + dy*sinC*math.Cos(phi0)/rho)
	lon := o.Center.Lon*degToRad + math.Atan2(dx*sinC, rho*cosC*math.Cos(phi0)-dy*sinC*math.Sin(phi0))
	return spatial.NormalizeLongitude(lon * radToDeg), lat * radToDeg, true
}

// Window bounds the globe inside the rectangle. A point c degrees from the
// center lands R·sin(c) from the disc center, so the rectangle's farthest
// corner caps c on the near side. The far side only counts when the horizon
// allowance reaches back to where it shows through the disc.
func (o Orthographic) Window(minX, minY, maxX, maxY, horizonDeg float64) (viewport.Window, bool) {
	if o.Radius <= 0 {
		return viewport.Window{}, false
	}
	far := 0.0
	for _, x := range []float64{minX, maxX} {
		for _, y := range []float64{minY, maxY} {
			far = math.Max(far, math.Hypot(x-o.CX, y-o.CY))
		}
	}
	ratio := far / o.Radius
	if math.IsNaN(ratio) {
		return viewport.Window{}, false
	}

	radius := horizonDeg
	if ratio < 1 {
		near := math.Asin(ratio) * radToDeg
		if 180-near > horizonDeg {
			radius = math.Min(near, horizonDeg)
		}
	}
	return viewport.CapWindow(o.Center, radius), true
}

// Blend interpolates two projections in screen space. T is 0 for Globe and 1
// for Flat. Inversion delegates to whichever side dominates.
type Blend struct {
	Globe viewport.Projection
	Flat  viewport.Projection
	T     float64
}

func (b Blend) Project(lon, lat float64) (float64, float64, bool) {
	gx, gy, gok := b.Globe.Project(lon, lat)
	fx, fy, fok := b.Flat.Project(lon, lat)
	if !gok || !fok {
		return 0, 0, false
	}
	return gx + (fx-gx)*b.T, gy + (fy-gy)*b.T, true
}

func (b Blend) Invert(x, y float64) (float64, float64, bool) {
	if b.T < 0.5 {
		return b.Globe.Invert(x, y)
	}
	return b.Flat.Invert(x, y)
}

// ForViewport builds the projection matching vp: orthographic at progress 0,
// the variant's flat map at progress 100, a Blend in between.
func ForViewport(vp viewport.Viewport) viewport.Projection {
	vp = vp.Normalize()
	switch {
	case vp.Progress <= 0:
		return globeFor(vp)
	case vp.Progress >= viewport.FlatProgress:
		return flatFor(vp)
	}
	return Blend{Globe: globeFor(vp), Flat: flatFor(vp), T: vp.Progress / viewport.FlatProgress}
}

func globeFor(vp viewport.Viewport) Orthographic {
	return Orthographic{
		Center: vp.Rotation,
		Radius: math.Min(vp.Width, vp.Height) / 2 * GlobeFill * vp.Zoom,
		CX:     vp.Width / 2,
		CY:     vp.Height / 2,
	}
}

func flatFor(vp viewport.Viewport) Flat {
	return Flat{
		Variant:   vp.Variant,
		Scale:     vp.Width / (2 * math.Pi) * vp.Zoom,
		CX:        vp.Width / 2,
		CY:        vp.Height / 2,
		CenterLon: vp.Rotation.Lon,
		Pan:       vp.Pan,
	}
}

// FlatPanFor returns the pan offset that puts lon/lat at the screen center
// of vp's flat map, at the given zoom.
func FlatPanFor(vp viewport.Viewport, lon, lat, zoom float64) viewport.Offset {
	vp.Zoom = zoom
	vp.Pan = viewport.Offset{}
	f := flatFor(vp.Normalize())
	x, y, ok := f.Project(lon, lat)
	if !ok {
		return viewport.Offset{}
	}
	return viewport.Offset{X: f.CX - x, Y: f.CY - y}
}
