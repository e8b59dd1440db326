package projection

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/jengzang/camglobe/internal/spatial"
	"github.com/jengzang/camglobe/internal/viewport"
)

// MaxMercatorLatitude is where the square Web Mercator world ends.
const MaxMercatorLatitude = 85.05112878

// Flat is a cylindrical world map centered on CenterLon. Scale is pixels per
// radian of longitude; Pan shifts the map on screen.
type Flat struct {
	Variant   viewport.MapVariant
	Scale     float64
	CX, CY    float64
	CenterLon float64
	Pan       viewport.Offset
}

func (f Flat) Project(lon, lat float64) (float64, float64, bool) {
	if !spatial.Finite(lat, lon) || f.Scale <= 0 {
		return 0, 0, false
	}
	mx, my := f.forward(spatial.NormalizeLongitude(lon-f.CenterLon), lat)
	return f.CX + f.Pan.X + mx*f.Scale, f.CY + f.Pan.Y - my*f.Scale, true
}

// Invert returns false for screen points off the map.
func (f Flat) Invert(x, y float64) (float64, float64, bool) {
	if f.Scale <= 0 {
		return 0, 0, false
	}
	mx := (x - f.CX - f.Pan.X) / f.Scale
	my := (f.CY + f.Pan.Y - y) / f.Scale
	if math.IsNaN(mx) || math.IsNaN(my) || math.Abs(mx) > math.Pi {
		return 0, 0, false
	}

	lon, lat := f.inverse(mx, my)
	if math.Abs(lat) > f.maxLatitude() {
		return 0, 0, false
	}
	return spatial.NormalizeLongitude(lon + f.CenterLon), lat, true
}

// Window inverts the rectangle's edges. The map spans one turn of
// longitude, and Mercator pins latitudes past its limit to the top and
// bottom rows, so a rectangle reaching either row takes in the pole.
func (f Flat) Window(minX, minY, maxX, maxY, _ float64) (viewport.Window, bool) {
	if f.Scale <= 0 {
		return viewport.Window{}, false
	}
	_, top := f.forward(0, 90)
	x0 := math.Max((minX-f.CX-f.Pan.X)/f.Scale, -math.Pi)
	x1 := math.Min((maxX-f.CX-f.Pan.X)/f.Scale, math.Pi)
	y0 := math.Max((f.CY+f.Pan.Y-maxY)/f.Scale, -top)
	y1 := math.Min((f.CY+f.Pan.Y-minY)/f.Scale, top)
	if !(x0 <= x1 && y0 <= y1) {
		return viewport.EmptyWindow, true
	}

	_, minLat := f.inverse(0, y0)
	_, maxLat := f.inverse(0, y1)
	if y0 <= -top {
		minLat = -90
	}
	if y1 >= top {
		maxLat = 90
	}
	return viewport.Window{
		MinLat:  minLat,
		MaxLat:  maxLat,
		Lon:     spatial.NormalizeLongitude(f.CenterLon + (x0+x1)/2*radToDeg),
		LonHalf: (x1 - x0) / 2 * radToDeg,
	}, true
}

// forward maps a longitude offset and latitude (degrees) to unit map
// coordinates in radians.
func (f Flat) forward(dLon, lat float64) (float64, float64) {
	if f.Variant != viewport.Mercator {
		return dLon * degToRad, lat * degToRad
	}
	lat = math.Max(-MaxMercatorLatitude, math.Min(MaxMercatorLatitude, lat))
	p := project.WGS84.ToMercator(orb.Point{dLon, lat})
	return p.X() / orb.EarthRadius, p.Y() / orb.EarthRadius
}

func (f Flat) inverse(mx, my float64) (float64, float64) {
	if f.Variant != viewport.Mercator {
		return mx * radToDeg, my * radToDeg
	}
	p := project.Mercator.ToWGS84(orb.Point{mx * orb.EarthRadius, my * orb.EarthRadius})
	return p.Lon(), p.Lat()
}

func (f Flat) maxLatitude() float64 {
	if f.Variant == viewport.Mercator {
		return MaxMercatorLatitude
	}
	return 90
}
