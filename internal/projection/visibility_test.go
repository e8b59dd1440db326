package projection

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/jengzang/camglobe/internal/cluster"
	"github.com/jengzang/camglobe/internal/spatial"
	"github.com/jengzang/camglobe/internal/viewport"
)

// drawable repeats the filter's projection, horizon and padding steps
// without the window pre-check.
func drawable(vp viewport.Viewport, proj viewport.Projection, opts viewport.Options, c cluster.Cluster) bool {
	vp = vp.Normalize()
	x, y, ok := proj.Project(c.Longitude, c.Latitude)
	if !ok || math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return false
	}
	if vp.Globe() && spatial.CentralAngleDegrees(vp.Rotation.Lat, vp.Rotation.Lon, c.Latitude, c.Longitude) > 90+opts.HorizonEpsilonDeg {
		return false
	}
	pad := opts.PaddingPx
	return x >= -pad && x <= vp.Width+pad && y >= -pad && y <= vp.Height+pad
}

// assertNoneHidden fails for every drawable cluster the filter leaves out.
func assertNoneHidden(t *testing.T, vp viewport.Viewport, clusters []cluster.Cluster) int {
	t.Helper()
	proj := ForViewport(vp)
	opts := viewport.DefaultOptions()
	opts.MaxVisible = len(clusters) + 1

	shown := map[string]bool{}
	for _, m := range viewport.ComputeVisibleClusters(clusters, vp, proj, opts) {
		shown[m.Cluster.ID] = true
	}
	drawn := 0
	for _, c := range clusters {
		if !drawable(vp, proj, opts, c) {
			continue
		}
		drawn++
		if !shown[c.ID] {
			t.Errorf("view %+v hides drawable cluster at lat %v lon %v", vp, c.Latitude, c.Longitude)
		}
	}
	return drawn
}

func TestVisibilityWindowRegressions(t *testing.T) {
	flatScale := 800 / (2 * math.Pi) * 4

	tests := []struct {
		name     string
		vp       viewport.Viewport
		lat, lon float64
	}{
		{
			name: "wide short globe shows its limb",
			vp: viewport.Viewport{
				Width: 1962, Height: 262, Zoom: 3.11,
				Rotation: viewport.LonLat{Lat: 68.5, Lon: -59.8},
			},
			lat: 18.57, lon: 3.42,
		},
		{
			name: "flat map panned off its center",
			vp: viewport.Viewport{
				Width: 800, Height: 400, Zoom: 4, Progress: 100,
				Variant: viewport.Equirectangular,
				Pan:     viewport.Offset{Y: 95 * degToRad * flatScale},
			},
			lat: 85, lon: 0,
		},
		{
			name: "mercator panned past the top row",
			vp: viewport.Viewport{
				Width: 800, Height: 400, Zoom: 4, Progress: 100,
				Variant: viewport.Mercator,
				Pan:     viewport.Offset{Y: 3.3 * flatScale},
			},
			lat: 89, lon: 10,
		},
		{
			name: "zoomed out map panned into the left padding",
			vp: viewport.Viewport{
				Width: 800, Height: 400, Zoom: 0.5, Progress: 100,
				Variant: viewport.Equirectangular,
				Pan:     viewport.Offset{X: -630},
			},
			lat: 0, lon: 170,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cluster.Cluster{ID: "target", Latitude: tt.lat, Longitude: tt.lon, Count: 1}
			if assertNoneHidden(t, tt.vp, []cluster.Cluster{c}) != 1 {
				t.Fatalf("cluster at lat %v lon %v is not drawn in %+v", tt.lat, tt.lon, tt.vp)
			}
		})
	}
}

func TestVisibilityNeverHidesDrawnClusters(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	progresses := []float64{0, 0, 20, 49, 50, 80, 100, 100}
	variants := []viewport.MapVariant{viewport.Equirectangular, viewport.Mercator}

	drawn := 0
	for i := 0; i < 2000; i++ {
		vp := viewport.Viewport{
			Width:    50 + rng.Float64()*1950,
			Height:   50 + rng.Float64()*1950,
			Zoom:     0.5 * math.Pow(2, rng.Float64()*4),
			Rotation: viewport.LonLat{Lat: rng.Float64()*180 - 90, Lon: rng.Float64()*360 - 180},
			Progress: progresses[rng.Intn(len(progresses))],
			Variant:  variants[rng.Intn(len(variants))],
		}
		if rng.Intn(2) == 0 {
			reach := vp.Width * vp.Zoom
			vp.Pan = viewport.Offset{X: (rng.Float64()*2 - 1) * reach, Y: (rng.Float64()*2 - 1) * reach}
		}

		clusters := make([]cluster.Cluster, 0, 100)
		for j := 0; j < 100; j++ {
			var lat, lon float64
			if j%2 == 0 {
				lat = math.Asin(rng.Float64()*2-1) * radToDeg
				lon = rng.Float64()*360 - 180
			} else {
				spread := 120 / vp.Zoom
				lat = spatial.ClampLatitude(vp.Rotation.Lat + (rng.Float64()*2-1)*spread)
				lon = spatial.NormalizeLongitude(vp.Rotation.Lon + (rng.Float64()*2-1)*spread)
			}
			clusters = append(clusters, cluster.Cluster{ID: fmt.Sprintf("c%03d", j), Latitude: lat, Longitude: lon, Count: 1})
		}
		drawn += assertNoneHidden(t, vp, clusters)
		if t.Failed() {
			t.FailNow()
		}
	}
	if drawn == 0 {
		t.Fatal("no cluster was ever drawn")
	}
}

func TestProjectionWindows(t *testing.T) {
	square := viewport.Viewport{Width: 800, Height: 800, Zoom: 4}
	globe := globeFor(square)
	w, ok := globe.Window(-50, -50, 850, 850, 92)
	if !ok {
		t.Fatal("orthographic window not bounded")
	}
	if w.Contains(0, 180) || w.Contains(60, 0) {
		t.Errorf("zoomed globe window %+v admits the far side", w)
	}
	if !w.Contains(10, 10) {
		t.Errorf("zoomed globe window %+v misses the center", w)
	}

	// Facing the antimeridian at zoom 4, the prime meridian is culled before
	// it is projected.
	square.Rotation = viewport.LonLat{Lon: 180}
	if w, _ := globeFor(square).Window(-50, -50, 850, 850, 92); w.Contains(0, 0) {
		t.Errorf("antimeridian window %+v admits the origin", w)
	}

	// Zoomed out the whole disc is on screen, so the horizon decides.
	out := globeFor(viewport.Viewport{Width: 800, Height: 800, Zoom: 1})
	if w, _ := out.Window(-50, -50, 850, 850, 92); !w.Contains(0, 91) || w.LonHalf < 180 {
		t.Errorf("full disc window %+v", w)
	}

	flat := flatFor(viewport.Viewport{Width: 800, Height: 400, Zoom: 4, Progress: 100, Variant: viewport.Equirectangular})
	w, ok = flat.Window(-50, -50, 850, 450, 180)
	if !ok || w.Contains(0, 180) || !w.Contains(0, 45) {
		t.Errorf("flat window %+v", w)
	}

	// Panned entirely off the map: nothing can be drawn.
	flat.Pan = viewport.Offset{X: 10 * flat.Scale}
	if w, _ := flat.Window(-50, -50, 850, 450, 180); !w.Empty() {
		t.Errorf("off-map window %+v should be empty", w)
	}

	if _, ok := (Orthographic{}).Window(0, 0, 1, 1, 92); ok {
		t.Error("zero-radius globe should not bound itself")
	}
	if _, ok := (Flat{}).Window(0, 0, 1, 1, 180); ok {
		t.Error("zero-scale map should not bound itself")
	}
}
