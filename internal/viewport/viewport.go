// Package viewport describes what the viewer is looking at and decides,
// frame by frame, which clusters are visible and where they land on screen.
// The package never does projection math itself; a Projection is supplied by
// the host.
package viewport

import (
	"math"

	"github.com/jengzang/camglobe/internal/spatial"
)

const (
	// MinZoom is the zoom floor.
	MinZoom = 0.5
	// GlobeThreshold is the progress value at which the view stops being
	// treated as a globe.
	GlobeThreshold = 50
	// FlatProgress is the progress of a fully flat map.
	FlatProgress = 100
)

// MapVariant selects the flat projection family used at full progress.
type MapVariant string

const (
	Equirectangular MapVariant = "equirectangular"
	Mercator        MapVariant = "mercator"
)

// Valid reports whether v names a known variant.
func (v MapVariant) Valid() bool {
	return v == Equirectangular || v == Mercator
}

// LonLat is a geographic position in degrees.
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Offset is a pixel offset.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Viewport is the current view. Rotation is the globe's center of view and
// Pan the flat map's pixel offset; which one applies depends on Progress.
type Viewport struct {
	Width    float64    `json:"width"`
	Height   float64    `json:"height"`
	Zoom     float64    `json:"zoom"`
	Rotation LonLat     `json:"rotation"`
	Pan      Offset     `json:"pan"`
	Progress float64    `json:"progress"`
	Variant  MapVariant `json:"variant"`
}

// Globe reports whether globe-style culling applies.
func (v Viewport) Globe() bool {
	return v.Progress < GlobeThreshold
}

// Aspect returns width/height, or 1 for an empty viewport.
func (v Viewport) Aspect() float64 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return v.Width / v.Height
}

// Normalize returns a copy with zoom floored at MinZoom, progress clamped to
// [0, 100], latitude clamped and longitude wrapped. Non-finite values and an
// unknown variant are replaced by defaults.
func (v Viewport) Normalize() Viewport {
	if !finite(v.Zoom) {
		v.Zoom = 1
	}
	v.Zoom = math.Max(MinZoom, v.Zoom)
	if !finite(v.Progress) {
		v.Progress = 0
	}
	v.Progress = math.Max(0, math.Min(FlatProgress, v.Progress))

	if !spatial.Finite(v.Rotation.Lat, v.Rotation.Lon) {
		v.Rotation = LonLat{}
	}
	v.Rotation.Lat = spatial.ClampLatitude(v.Rotation.Lat)
	v.Rotation.Lon = spatial.NormalizeLongitude(v.Rotation.Lon)

	if !finite(v.Pan.X) || !finite(v.Pan.Y) {
		v.Pan = Offset{}
	}
	if !finite(v.Width) || v.Width < 0 {
		v.Width = 0
	}
	if !finite(v.Height) || v.Height < 0 {
		v.Height = 0
	}
	if !v.Variant.Valid() {
		v.Variant = Equirectangular
	}
	return v
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
