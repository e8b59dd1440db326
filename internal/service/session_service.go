package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jengzang/camglobe/internal/interaction"
	"github.com/jengzang/camglobe/internal/metrics"
	"github.com/jengzang/camglobe/internal/models"
	"github.com/jengzang/camglobe/internal/pipeline"
	"github.com/jengzang/camglobe/internal/projection"
	"github.com/jengzang/camglobe/internal/spatial"
	"github.com/jengzang/camglobe/internal/viewport"
)

// SessionConfig tunes interactive sessions
type SessionConfig struct {
	// TTL is how long a session survives without requests
	TTL           time.Duration
	FrameInterval time.Duration
	// HitRadiusPx is how close a click must land to a marker to select it
	HitRadiusPx float64
	Visibility  viewport.Options
	Interaction interaction.Config
}

// DefaultSessionConfig returns the stock session settings
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:           10 * time.Minute,
		FrameInterval: 16 * time.Millisecond,
		HitRadiusPx:   12,
		Visibility:    viewport.DefaultOptions(),
		Interaction:   interaction.DefaultConfig(),
	}
}

// Session is one viewer's globe. Its controller lives on the session's own
// loop goroutine.
type Session struct {
	ID      string
	created time.Time
	seen    atomic.Int64

	loop   *interaction.Loop
	cancel context.CancelFunc
	ctrl   *interaction.Controller

	mu      sync.Mutex
	markers []viewport.Marker
}

func (s *Session) touch(now time.Time) {
	s.seen.Store(now.UnixNano())
}

func (s *Session) lastSeen() time.Time {
	return time.Unix(0, s.seen.Load())
}

func (s *Session) setMarkers(m []viewport.Marker) {
	s.mu.Lock()
	s.markers = m
	s.mu.Unlock()
}

// hit finds the marker of the latest frame under a screen point
func (s *Session) hit(x, y, radius float64) *models.MarkerDTO {
	s.mu.Lock()
	m, ok := viewport.HitTest(s.markers, x, y, radius)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	dto := models.NewMarkerDTOs([]viewport.Marker{m})[0]
	return &dto
}

// SessionService owns the interactive sessions
type SessionService struct {
	cfg      SessionConfig
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService creates a new session service
func NewSessionService(cfg SessionConfig, p *pipeline.Pipeline, m *metrics.Metrics, log zerolog.Logger) *SessionService {
	d := DefaultSessionConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = d.TTL
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = d.FrameInterval
	}
	if cfg.HitRadiusPx <= 0 {
		cfg.HitRadiusPx = d.HitRadiusPx
	}
	if cfg.Interaction.Projector == nil {
		cfg.Interaction.Projector = projection.ForViewport
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &SessionService{
		cfg:      cfg,
		pipeline: p,
		metrics:  m,
		log:      log.With().Str("component", "session_service").Logger(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// initialViewport validates a create request and builds the starting view
func initialViewport(req models.CreateSessionRequest) (viewport.Viewport, error) {
	if !spatial.Finite(req.Width, req.Height) || req.Width <= 0 || req.Height <= 0 {
		return viewport.Viewport{}, fmt.Errorf("%w: width and height must be positive", ErrInvalidParams)
	}
	vp := viewport.Viewport{
		Width:   req.Width,
		Height:  req.Height,
		Zoom:    req.Zoom,
		Variant: viewport.Equirectangular,
	}
	if vp.Zoom == 0 {
		vp.Zoom = 1
	}
	if math.IsNaN(vp.Zoom) || math.IsInf(vp.Zoom, 0) || vp.Zoom < 0 {
		return vp, fmt.Errorf("%w: zoom must be a positive number", ErrInvalidParams)
	}

	if req.Variant != "" {
		v := viewport.MapVariant(req.Variant)
		if !v.Valid() {
			return vp, fmt.Errorf("%w: unknown map variant %q", ErrInvalidParams, req.Variant)
		}
		vp.Variant = v
	}

	switch req.Mode {
	case "", "globe":
	case "flat":
		vp.Progress = viewport.FlatProgress
	default:
		return vp, fmt.Errorf("%w: mode must be globe or flat", ErrInvalidParams)
	}

	if (req.Latitude == nil) != (req.Longitude == nil) {
		return vp, fmt.Errorf("%w: latitude and longitude go together", ErrInvalidParams)
	}
	if req.Latitude != nil {
		lat, lon := *req.Latitude, *req.Longitude
		if !spatial.ValidCoordinate(lat, lon) {
			return vp, fmt.Errorf("%w: center out of range", ErrInvalidParams)
		}
		if vp.Globe() {
			vp.Rotation = viewport.LonLat{Lon: lon, Lat: lat}
		} else {
			vp.Pan = projection.FlatPanFor(vp, lon, lat, vp.Zoom)
		}
	}
	return vp.Normalize(), nil
}

// Create opens a session
func (s *SessionService) Create(ctx context.Context, req models.CreateSessionRequest) (*models.SessionInfo, error) {
	vp, err := initialViewport(req)
	if err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		ID:      uuid.NewString(),
		created: s.now(),
		loop:    interaction.NewLoop(loopCtx, s.cfg.FrameInterval),
		cancel:  cancel,
	}
	sess.touch(sess.created)

	var info *models.SessionInfo
	err = sess.loop.Do(ctx, func() {
		sess.ctrl = interaction.NewController(vp, sess.loop, s.cfg.Interaction, nil)
		sess.ctrl.SetAutoRotate(req.AutoRotate)
		info = s.info(sess)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	s.metrics.Sessions.Set(float64(n))

	s.log.Info().Str("session", sess.ID).Float64("width", vp.Width).Float64("height", vp.Height).Msg("session created")
	return info, nil
}

// info must run on the session's loop
func (s *SessionService) info(sess *Session) *models.SessionInfo {
	return &models.SessionInfo{
		ID:         sess.ID,
		State:      sess.ctrl.State().String(),
		Viewport:   sess.ctrl.Viewport(),
		AutoRotate: sess.ctrl.AutoRotate(),
		Flying:     sess.ctrl.Flying(),
		Morphing:   sess.ctrl.Morphing(),
		CreatedAt:  sess.created.Unix(),
		LastSeen:   sess.lastSeen().Unix(),
	}
}

func (s *SessionService) lookup(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// do runs fn on the session's loop
func (s *SessionService) do(ctx context.Context, id string, fn func(*Session)) (*Session, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.touch(s.now())
	err = sess.loop.Do(ctx, func() { fn(sess) })
	if errors.Is(err, interaction.ErrLoopStopped) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns a session's state
func (s *SessionService) Get(ctx context.Context, id string) (*models.SessionInfo, error) {
	var info *models.SessionInfo
	if _, err := s.do(ctx, id, func(sess *Session) { info = s.info(sess) }); err != nil {
		return nil, err
	}
	return info, nil
}

// Frame assembles the markers visible in the session's current view
func (s *SessionService) Frame(ctx context.Context, id string) (*models.FrameResponse, error) {
	var vp viewport.Viewport
	var state interaction.State
	sess, err := s.do(ctx, id, func(sess *Session) {
		vp = sess.ctrl.Viewport()
		state = sess.ctrl.State()
	})
	if err != nil {
		return nil, err
	}

	f := s.pipeline.Frame(vp, projection.ForViewport(vp), s.cfg.Visibility)
	sess.setMarkers(f.Markers)

	return &models.FrameResponse{
		Version:  f.Version,
		ZoomKey:  f.ZoomKey,
		Total:    f.Total,
		Clusters: f.Clusters,
		State:    state.String(),
		Viewport: vp,
		Markers:  models.NewMarkerDTOs(f.Markers),
	}, nil
}

func validateEvents(events []models.InputEvent) error {
	for i, ev := range events {
		switch ev.Type {
		case models.EventPointerDown, models.EventPointerMove, models.EventPointerUp,
			models.EventPointerCancel, models.EventWheel, models.EventResize:
		default:
			return fmt.Errorf("%w: event %d has unknown type %q", ErrInvalidParams, i, ev.Type)
		}
	}
	return nil
}

// Input applies a batch of pointer, wheel and resize events in order.
// Clicks are matched against the markers of the latest frame.
func (s *SessionService) Input(ctx context.Context, id string, events []models.InputEvent) (*models.InputResponse, error) {
	if err := validateEvents(events); err != nil {
		return nil, err
	}

	var clicks []interaction.Click
	var resp models.InputResponse
	sess, err := s.do(ctx, id, func(sess *Session) {
		c := sess.ctrl
		for _, ev := range events {
			switch ev.Type {
			case models.EventPointerDown:
				c.PointerDown(ev.PointerID, ev.X, ev.Y)
			case models.EventPointerMove:
				c.PointerMove(ev.PointerID, ev.X, ev.Y)
			case models.EventPointerUp:
				if click, ok := c.PointerUp(ev.PointerID, ev.X, ev.Y); ok {
					clicks = append(clicks, click)
				}
			case models.EventPointerCancel:
				c.PointerCancel(ev.PointerID)
			case models.EventWheel:
				c.Wheel(ev.DeltaY, ev.X, ev.Y)
			case models.EventResize:
				c.Resize(ev.Width, ev.Height)
			}
		}
		resp.State = c.State().String()
		resp.Viewport = c.Viewport()
	})
	if err != nil {
		return nil, err
	}

	resp.Clicks = make([]models.ClickResult, len(clicks))
	for i, click := range clicks {
		resp.Clicks[i] = models.ClickResult{
			X:       click.X,
			Y:       click.Y,
			Cluster: sess.hit(click.X, click.Y, s.cfg.HitRadiusPx),
		}
	}
	return &resp, nil
}

// FlyTo starts an animated move to a position
func (s *SessionService) FlyTo(ctx context.Context, id string, req models.FlyToRequest) (*models.SessionInfo, error) {
	if req.Latitude == nil || req.Longitude == nil || !spatial.ValidCoordinate(*req.Latitude, *req.Longitude) {
		return nil, fmt.Errorf("%w: fly-to target out of range", ErrInvalidParams)
	}
	var info *models.SessionInfo
	_, err := s.do(ctx, id, func(sess *Session) {
		sess.ctrl.FlyTo(*req.Latitude, *req.Longitude, req.Zoom)
		info = s.info(sess)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// FlyToCamera flies to a camera's position, keeping the current zoom when
// zoom is zero
func (s *SessionService) FlyToCamera(ctx context.Context, id string, camera *models.Camera, zoom float64) (*models.SessionInfo, error) {
	lat, lon := camera.Latitude, camera.Longitude
	return s.FlyTo(ctx, id, models.FlyToRequest{Latitude: &lat, Longitude: &lon, Zoom: zoom})
}

// ToggleMode morphs between globe and flat map
func (s *SessionService) ToggleMode(ctx context.Context, id string) (*models.SessionInfo, error) {
	var info *models.SessionInfo
	_, err := s.do(ctx, id, func(sess *Session) {
		sess.ctrl.ToggleMode()
		info = s.info(sess)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// SetAutoRotate turns auto-rotation on or off
func (s *SessionService) SetAutoRotate(ctx context.Context, id string, on bool) (*models.SessionInfo, error) {
	var info *models.SessionInfo
	_, err := s.do(ctx, id, func(sess *Session) {
		sess.ctrl.SetAutoRotate(on)
		info = s.info(sess)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// SetVariant selects the flat map projection
func (s *SessionService) SetVariant(ctx context.Context, id string, variant string) (*models.SessionInfo, error) {
	v := viewport.MapVariant(variant)
	if !v.Valid() {
		return nil, fmt.Errorf("%w: unknown map variant %q", ErrInvalidParams, variant)
	}
	var info *models.SessionInfo
	_, err := s.do(ctx, id, func(sess *Session) {
		sess.ctrl.SetMapVariant(v)
		info = s.info(sess)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Pick returns the geographic position and the marker under a screen point
func (s *SessionService) Pick(ctx context.Context, id string, x, y float64) (*models.PickResponse, error) {
	if !spatial.Finite(x, y) {
		return nil, fmt.Errorf("%w: x and y must be numbers", ErrInvalidParams)
	}
	var vp viewport.Viewport
	sess, err := s.do(ctx, id, func(sess *Session) { vp = sess.ctrl.Viewport() })
	if err != nil {
		return nil, err
	}

	var resp models.PickResponse
	if ll, ok := viewport.Pick(projection.ForViewport(vp), x, y); ok {
		resp.Position = &ll
	}
	resp.Cluster = sess.hit(x, y, s.cfg.HitRadiusPx)
	return &resp, nil
}

// Delete closes a session
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.cancel()
	s.metrics.Sessions.Set(float64(n))
	s.log.Info().Str("session", id).Msg("session closed")
	return nil
}

// Len returns the number of live sessions
func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap closes sessions idle for longer than the TTL and returns how many
func (s *SessionService) Reap() int {
	cutoff := s.now().Add(-s.cfg.TTL)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.lastSeen().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range expired {
		sess.cancel()
	}
	if len(expired) > 0 {
		s.metrics.Sessions.Set(float64(n))
		s.log.Info().Int("expired", len(expired)).Int("live", n).Msg("reaped idle sessions")
	}
	return len(expired)
}

// Run reaps idle sessions until ctx is cancelled, then closes the rest
func (s *SessionService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TTL / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			s.Reap()
		}
	}
}

// Close closes every session
func (s *SessionService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.cancel()
	}
	s.metrics.Sessions.Set(0)
}
