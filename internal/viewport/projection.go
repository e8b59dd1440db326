package viewport

// Projection maps geographic positions to screen pixels and back. Either
// direction may fail (ok == false) for positions with no image, such as the
// back of an azimuthal projection or a point off the map.
type Projection interface {
	Project(lon, lat float64) (x, y float64, ok bool)
	Invert(x, y float64) (lon, lat float64, ok bool)
}

// ProjectionFuncs adapts a pair of plain functions to Projection. A nil
// function always fails. Bounds is optional; without it the visibility
// filter projects every cluster.
type ProjectionFuncs struct {
	Forward func(lon, lat float64) (x, y float64, ok bool)
	Inverse func(x, y float64) (lon, lat float64, ok bool)
	Bounds  func(minX, minY, maxX, maxY, horizonDeg float64) (Window, bool)
}

func (f ProjectionFuncs) Project(lon, lat float64) (float64, float64, bool) {
	if f.Forward == nil {
		return 0, 0, false
	}
	return f.Forward(lon, lat)
}

func (f ProjectionFuncs) Invert(x, y float64) (float64, float64, bool) {
	if f.Inverse == nil {
		return 0, 0, false
	}
	return f.Inverse(x, y)
}

func (f ProjectionFuncs) Window(minX, minY, maxX, maxY, horizonDeg float64) (Window, bool) {
	if f.Bounds == nil {
		return Window{}, false
	}
	return f.Bounds(minX, minY, maxX, maxY, horizonDeg)
}

// Pick inverts a screen position. It returns false, never panics, when the
// position has no geographic image.
func Pick(proj Projection, x, y float64) (LonLat, bool) {
	if proj == nil || !finite(x) || !finite(y) {
		return LonLat{}, false
	}
	lon, lat, ok := proj.Invert(x, y)
	if !ok || !finite(lon) || !finite(lat) {
		return LonLat{}, false
	}
	return LonLat{Lon: lon, Lat: lat}, true
}

// ViewCenter returns the geographic position at the middle of the screen.
// On the globe that is the rotation center; on a flat map it is found by
// inverting the screen center, falling back to the rotation center.
func ViewCenter(vp Viewport, proj Projection) LonLat {
	if vp.Globe() {
		return vp.Rotation
	}
	if c, ok := Pick(proj, vp.Width/2, vp.Height/2); ok {
		return c
	}
	return vp.Rotation
}
