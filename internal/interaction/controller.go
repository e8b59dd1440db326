// Package interaction turns pointer, wheel and command input into viewport
// changes: drag to rotate or pan, pinch and wheel to zoom, eased fly-to,
// timed globe/map morphs and constant-rate auto-rotation.
//
// A Controller is not safe for concurrent use. It is meant to live on a
// single goroutine (see Loop) together with the Scheduler that drives its
// animations.
package interaction

import (
	"math"
	"time"

	"github.com/jengzang/camglobe/internal/spatial"
	"github.com/jengzang/camglobe/internal/viewport"
)

// State is the controller's current interaction state.
type State int

const (
	Idle State = iota
	Dragging
	Pinching
	Animating
	AutoRotating
)

var stateNames = [...]string{"idle", "dragging", "pinching", "animating", "auto_rotating"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Config tunes a Controller. Zero fields take DefaultConfig values.
type Config struct {
	// DragSensitivity is degrees of rotation per dragged pixel at zoom 1.
	DragSensitivity float64
	// ClickThresholdPx is how far a pointer may travel and still click.
	ClickThresholdPx float64
	FlyDuration      time.Duration
	MorphDuration    time.Duration
	// AutoRotateDegPerSec is the auto-rotation speed in longitude.
	AutoRotateDegPerSec float64
	// WheelZoomRate converts wheel delta to a zoom exponent.
	WheelZoomRate float64
	// Projector builds the projection for a viewport. When set it is used to
	// center flat-map fly-to targets and to keep the view center fixed across
	// morphs; without it those fall back to zoom-only changes.
	Projector func(viewport.Viewport) viewport.Projection
}

// DefaultConfig returns the stock interaction tuning.
func DefaultConfig() Config {
	return Config{
		DragSensitivity:     0.25,
		ClickThresholdPx:    5,
		FlyDuration:         time.Second,
		MorphDuration:       1600 * time.Millisecond,
		AutoRotateDegPerSec: 4,
		WheelZoomRate:       0.002,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DragSensitivity <= 0 {
		c.DragSensitivity = d.DragSensitivity
	}
	if c.ClickThresholdPx <= 0 {
		c.ClickThresholdPx = d.ClickThresholdPx
	}
	if c.FlyDuration <= 0 {
		c.FlyDuration = d.FlyDuration
	}
	if c.MorphDuration <= 0 {
		c.MorphDuration = d.MorphDuration
	}
	if c.AutoRotateDegPerSec == 0 {
		c.AutoRotateDegPerSec = d.AutoRotateDegPerSec
	}
	if c.WheelZoomRate <= 0 {
		c.WheelZoomRate = d.WheelZoomRate
	}
	return c
}

// Click is a pointer press and release that moved less than the click
// threshold.
type Click struct {
	X, Y float64
}

type pointer struct {
	x, y float64
}

func (p pointer) dist(q pointer) float64 {
	return math.Hypot(p.x-q.x, p.y-q.y)
}

type flight struct {
	start    time.Time
	globe    bool
	fromRot  viewport.LonLat
	toRot    viewport.LonLat
	fromPan  viewport.Offset
	toPan    viewport.Offset
	fromZoom float64
	toZoom   float64
	frame    FrameID
}

type morph struct {
	start    time.Time
	from, to float64
	duration time.Duration
	frame    FrameID
}

// Controller owns one viewport and the state machine that mutates it.
type Controller struct {
	cfg      Config
	sched    Scheduler
	onChange func(viewport.Viewport)

	vp viewport.Viewport

	pointers  map[int]pointer
	order     []int
	dragStart pointer
	dragMax   float64
	clickable bool
	pinchDist float64

	fly   *flight
	morph *morph

	autoRotate bool
	autoFrame  FrameID
	autoLast   time.Time

	closed bool
}

// NewController creates a controller for vp. onChange, if not nil, is called
// with the new viewport after every mutation.
func NewController(vp viewport.Viewport, sched Scheduler, cfg Config, onChange func(viewport.Viewport)) *Controller {
	return &Controller{
		cfg:      cfg.withDefaults(),
		sched:    sched,
		onChange: onChange,
		vp:       vp.Normalize(),
		pointers: make(map[int]pointer),
	}
}

// Viewport returns the current viewport.
func (c *Controller) Viewport() viewport.Viewport {
	return c.vp
}

// State reports the dominant state: direct manipulation first, then
// animation, then auto-rotation.
func (c *Controller) State() State {
	switch {
	case len(c.order) >= 2:
		return Pinching
	case len(c.order) == 1:
		return Dragging
	case c.fly != nil || c.morph != nil:
		return Animating
	case c.autoRotate:
		return AutoRotating
	}
	return Idle
}

// Flying reports whether a fly-to animation is running.
func (c *Controller) Flying() bool { return c.fly != nil }

// Morphing reports whether a globe/map transition is running.
func (c *Controller) Morphing() bool { return c.morph != nil }

// AutoRotate reports whether auto-rotation is enabled.
func (c *Controller) AutoRotate() bool { return c.autoRotate }

// PointerDown starts a drag, or a pinch when a second pointer goes down.
// Manual input supersedes any fly-to. Pointers beyond the second are
// ignored.
func (c *Controller) PointerDown(id int, x, y float64) {
	if c.closed || !finite(x, y) {
		return
	}
	if _, ok := c.pointers[id]; ok {
		c.pointers[id] = pointer{x, y}
		return
	}
	if len(c.order) >= 2 {
		return
	}
	c.cancelFly()

	p := pointer{x, y}
	c.pointers[id] = p
	c.order = append(c.order, id)

	if len(c.order) == 1 {
		c.dragStart, c.dragMax, c.clickable = p, 0, true
		return
	}
	c.clickable = false
	c.pinchDist = c.pointers[c.order[0]].dist(c.pointers[c.order[1]])
}

// PointerMove drags or pinches. Moves of untracked pointers are ignored, as
// are zero-length moves.
func (c *Controller) PointerMove(id int, x, y float64) {
	if c.closed || !finite(x, y) {
		return
	}
	prev, ok := c.pointers[id]
	if !ok {
		return
	}
	p := pointer{x, y}
	c.pointers[id] = p

	switch len(c.order) {
	case 1:
		dx, dy := p.x-prev.x, p.y-prev.y
		if dx == 0 && dy == 0 {
			return
		}
		c.dragMax = math.Max(c.dragMax, p.dist(c.dragStart))
		c.drag(dx, dy)
		c.changed()

	case 2:
		a, b := c.pointers[c.order[0]], c.pointers[c.order[1]]
		d := a.dist(b)
		last := c.pinchDist
		c.pinchDist = d
		if d <= 0 || last <= 0 {
			return
		}
		if c.zoomBy(d/last, (a.x+b.x)/2, (a.y+b.y)/2) {
			c.changed()
		}
	}
}

// PointerUp ends a drag or pinch. It returns a click when a lone pointer is
// released without having travelled past the click threshold.
func (c *Controller) PointerUp(id int, x, y float64) (Click, bool) {
	if c.closed {
		return Click{}, false
	}
	if _, ok := c.pointers[id]; !ok {
		return Click{}, false
	}
	wasSingle := len(c.order) == 1
	c.release(id)

	if !wasSingle || !c.clickable || !finite(x, y) {
		return Click{}, false
	}
	up := pointer{x, y}
	if c.dragMax >= c.cfg.ClickThresholdPx || up.dist(c.dragStart) >= c.cfg.ClickThresholdPx {
		return Click{}, false
	}
	return Click{X: x, Y: y}, true
}

// PointerCancel drops a pointer without producing a click.
func (c *Controller) PointerCancel(id int) {
	if c.closed {
		return
	}
	if _, ok := c.pointers[id]; ok {
		c.release(id)
		c.clickable = false
	}
}

func (c *Controller) release(id int) {
	delete(c.pointers, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.pinchDist = 0
	// The finger left on the screen after a pinch keeps dragging, from where
	// it is now, but can no longer click.
	if len(c.order) == 1 {
		c.dragStart = c.pointers[c.order[0]]
		c.dragMax = 0
		c.clickable = false
	}
}

// Wheel zooms around the cursor. Positive deltaY zooms out.
func (c *Controller) Wheel(deltaY, x, y float64) {
	if c.closed || deltaY == 0 || !finite(deltaY, 0) || !finite(x, y) {
		return
	}
	c.cancelFly()
	if c.zoomBy(math.Exp(-deltaY*c.cfg.WheelZoomRate), x, y) {
		c.changed()
	}
}

// Resize sets the screen size.
func (c *Controller) Resize(width, height float64) {
	if c.closed || !finite(width, height) || width < 0 || height < 0 {
		return
	}
	c.vp.Width, c.vp.Height = width, height
	c.changed()
}

// SetMapVariant selects the flat projection family.
func (c *Controller) SetMapVariant(v viewport.MapVariant) {
	if c.closed || !v.Valid() || v == c.vp.Variant {
		return
	}
	c.vp.Variant = v
	c.changed()
}

func (c *Controller) drag(dx, dy float64) {
	if c.vp.Globe() {
		s := c.cfg.DragSensitivity / c.vp.Zoom
		c.vp.Rotation.Lon = spatial.NormalizeLongitude(c.vp.Rotation.Lon - dx*s)
		c.vp.Rotation.Lat = spatial.ClampLatitude(c.vp.Rotation.Lat + dy*s)
		return
	}
	c.vp.Pan.X += dx
	c.vp.Pan.Y += dy
}

// zoomBy scales the zoom by ratio. On the flat map the pan is corrected so
// the point under (ax, ay) stays put. It reports whether anything changed.
func (c *Controller) zoomBy(ratio, ax, ay float64) bool {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return false
	}
	next := math.Max(viewport.MinZoom, c.vp.Zoom*ratio)
	if next == c.vp.Zoom || math.IsInf(next, 0) {
		return false
	}
	r := next / c.vp.Zoom
	c.vp.Zoom = next

	if !c.vp.Globe() {
		cx, cy := c.vp.Width/2, c.vp.Height/2
		c.vp.Pan.X = ax - cx - (ax-cx-c.vp.Pan.X)*r
		c.vp.Pan.Y = ay - cy - (ay-cy-c.vp.Pan.Y)*r
	}
	return true
}

// FlyTo animates to lat/lon at the given zoom. A non-finite or non-positive
// zoom keeps the current one. A newer FlyTo replaces a running one; there is
// no queue. It returns false if the target is not a finite position.
func (c *Controller) FlyTo(lat, lon, zoom float64) bool {
	if c.closed || !finite(lat, lon) {
		return false
	}
	if !finite(zoom, 0) || zoom <= 0 {
		zoom = c.vp.Zoom
	}
	zoom = math.Max(viewport.MinZoom, zoom)
	c.cancelFly()

	f := &flight{
		globe:    c.vp.Globe(),
		fromRot:  c.vp.Rotation,
		toRot:    viewport.LonLat{Lon: spatial.NormalizeLongitude(lon), Lat: spatial.ClampLatitude(lat)},
		fromPan:  c.vp.Pan,
		toPan:    c.vp.Pan,
		fromZoom: c.vp.Zoom,
		toZoom:   zoom,
	}
	if !f.globe {
		f.toRot = c.vp.Rotation
		if pan, ok := c.flatPanFor(lon, lat, zoom); ok {
			f.toPan = pan
		}
	}
	c.fly = f
	f.frame = c.sched.RequestFrame(c.flyTick)
	return true
}

func (c *Controller) flyTick(now time.Time) {
	f := c.fly
	if f == nil || c.closed {
		return
	}
	if f.start.IsZero() {
		f.start = now
	}
	t := fraction(now.Sub(f.start), c.cfg.FlyDuration)
	e := EaseInOutQuad(t)

	c.vp.Zoom = Lerp(f.fromZoom, f.toZoom, e)
	if f.globe {
		lat, lon := spatial.Interpolate(f.fromRot.Lat, f.fromRot.Lon, f.toRot.Lat, f.toRot.Lon, e)
		c.vp.Rotation = viewport.LonLat{Lon: spatial.NormalizeLongitude(lon), Lat: spatial.ClampLatitude(lat)}
	} else {
		c.vp.Pan = viewport.Offset{X: Lerp(f.fromPan.X, f.toPan.X, e), Y: Lerp(f.fromPan.Y, f.toPan.Y, e)}
	}

	if t >= 1 {
		c.fly = nil
	} else {
		f.frame = c.sched.RequestFrame(c.flyTick)
	}
	c.changed()
}

func (c *Controller) cancelFly() {
	if c.fly != nil {
		c.sched.CancelFrame(c.fly.frame)
		c.fly = nil
	}
}

// flatPanFor returns the pan that centers lon/lat on the flat map at zoom.
func (c *Controller) flatPanFor(lon, lat, zoom float64) (viewport.Offset, bool) {
	if c.cfg.Projector == nil {
		return viewport.Offset{}, false
	}
	target := c.vp
	target.Zoom = zoom
	target.Progress = viewport.FlatProgress
	proj := c.cfg.Projector(target)
	if proj == nil {
		return viewport.Offset{}, false
	}
	x, y, ok := proj.Project(lon, lat)
	if !ok || !finite(x, y) {
		return viewport.Offset{}, false
	}
	return viewport.Offset{
		X: target.Pan.X + target.Width/2 - x,
		Y: target.Pan.Y + target.Height/2 - y,
	}, true
}

// ToggleMode starts a morph toward the other mode. Toggling during a morph
// reverses it from where it is.
func (c *Controller) ToggleMode() {
	if c.closed {
		return
	}
	to := float64(viewport.FlatProgress)
	switch {
	case c.morph != nil:
		to = viewport.FlatProgress - c.morph.to
		c.sched.CancelFrame(c.morph.frame)
	case c.vp.Progress >= viewport.GlobeThreshold:
		to = 0
	}
	c.alignForMorph(to)

	from := c.vp.Progress
	dur := time.Duration(float64(c.cfg.MorphDuration) * math.Abs(to-from) / viewport.FlatProgress)
	m := &morph{from: from, to: to, duration: dur}
	c.morph = m
	m.frame = c.sched.RequestFrame(c.morphTick)
}

// alignForMorph makes the globe and the flat map agree on the view center
// before a morph starts, so the blend does not slide.
func (c *Controller) alignForMorph(to float64) {
	if c.cfg.Projector == nil || c.morph != nil {
		return
	}
	if to == 0 && c.vp.Progress >= viewport.FlatProgress {
		center := viewport.ViewCenter(c.vp, c.cfg.Projector(c.vp))
		c.vp.Rotation = viewport.LonLat{Lon: spatial.NormalizeLongitude(center.Lon), Lat: spatial.ClampLatitude(center.Lat)}
	}
	if pan, ok := c.flatPanFor(c.vp.Rotation.Lon, c.vp.Rotation.Lat, c.vp.Zoom); ok {
		c.vp.Pan = pan
	}
}

func (c *Controller) morphTick(now time.Time) {
	m := c.morph
	if m == nil || c.closed {
		return
	}
	if m.start.IsZero() {
		m.start = now
	}
	t := fraction(now.Sub(m.start), m.duration)
	c.vp.Progress = Lerp(m.from, m.to, EaseInOutQuad(t))

	if t >= 1 {
		c.vp.Progress = m.to
		c.morph = nil
	} else {
		m.frame = c.sched.RequestFrame(c.morphTick)
	}
	c.changed()
}

// SetAutoRotate turns auto-rotation on or off. While on, the rotation loop
// keeps ticking and skips its update whenever the user or an animation owns
// the view, re-basing its clock so it resumes without a jump.
func (c *Controller) SetAutoRotate(on bool) {
	if c.closed || on == c.autoRotate {
		return
	}
	c.autoRotate = on
	if on {
		c.autoLast = time.Time{}
		c.autoFrame = c.sched.RequestFrame(c.autoTick)
		return
	}
	c.sched.CancelFrame(c.autoFrame)
	c.autoFrame = 0
}

func (c *Controller) autoTick(now time.Time) {
	if !c.autoRotate || c.closed {
		return
	}
	c.autoFrame = c.sched.RequestFrame(c.autoTick)

	if c.autoLast.IsZero() || c.suspended() {
		c.autoLast = now
		return
	}
	dt := now.Sub(c.autoLast).Seconds()
	c.autoLast = now
	if dt <= 0 {
		return
	}
	c.vp.Rotation.Lon = spatial.NormalizeLongitude(c.vp.Rotation.Lon + c.cfg.AutoRotateDegPerSec*dt)
	c.changed()
}

func (c *Controller) suspended() bool {
	return len(c.order) > 0 || c.fly != nil || c.morph != nil
}

// Close cancels every pending frame. The controller ignores input afterwards.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.cancelFly()
	if c.morph != nil {
		c.sched.CancelFrame(c.morph.frame)
		c.morph = nil
	}
	if c.autoFrame != 0 {
		c.sched.CancelFrame(c.autoFrame)
		c.autoFrame = 0
	}
	c.closed = true
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange(c.vp)
	}
}

func fraction(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	return math.Max(0, math.Min(1, float64(elapsed)/float64(total)))
}

func finite(a, b float64) bool {
	return spatial.Finite(a, b)
}
