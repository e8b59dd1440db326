package models

import "github.com/jengzang/camglobe/internal/viewport"

// CreateSessionRequest opens an interactive view
type CreateSessionRequest struct {
	Width      float64  `json:"width" binding:"required,gt=0"`
	Height     float64  `json:"height" binding:"required,gt=0"`
	Zoom       float64  `json:"zoom"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Mode       string   `json:"mode"`    // globe, flat
	Variant    string   `json:"variant"` // equirectangular, mercator
	AutoRotate bool     `json:"autoRotate"`
}

// SessionInfo describes a session's current state
type SessionInfo struct {
	ID         string            `json:"id"`
	State      string            `json:"state"`
	Viewport   viewport.Viewport `json:"viewport"`
	AutoRotate bool              `json:"autoRotate"`
	Flying     bool              `json:"flying"`
	Morphing   bool              `json:"morphing"`
	CreatedAt  int64             `json:"createdAt"`
	LastSeen   int64             `json:"lastSeen"`
}

// FrameResponse is what the viewer draws
type FrameResponse struct {
	Version  uint64            `json:"version"`
	ZoomKey  float64           `json:"zoomKey"`
	Total    int               `json:"total"`
	Clusters int               `json:"clusters"`
	State    string            `json:"state"`
	Viewport viewport.Viewport `json:"viewport"`
	Markers  []MarkerDTO       `json:"markers"`
}

// Input event types
const (
	EventPointerDown   = "pointerdown"
	EventPointerMove   = "pointermove"
	EventPointerUp     = "pointerup"
	EventPointerCancel = "pointercancel"
	EventWheel         = "wheel"
	EventResize        = "resize"
)

// InputEvent is one pointer, wheel or resize event
type InputEvent struct {
	Type      string  `json:"type" binding:"required"`
	PointerID int     `json:"pointerId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	DeltaY    float64 `json:"deltaY"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// InputRequest is a batch of events applied in order
type InputRequest struct {
	Events []InputEvent `json:"events" binding:"required,dive"`
}

// ClickResult is a click and the marker under it, if any
type ClickResult struct {
	X       float64    `json:"x"`
	Y       float64    `json:"y"`
	Cluster *MarkerDTO `json:"cluster,omitempty"`
}

// InputResponse is the viewport after a batch of events
type InputResponse struct {
	State    string            `json:"state"`
	Viewport viewport.Viewport `json:"viewport"`
	Clicks   []ClickResult     `json:"clicks"`
}

// FlyToRequest starts a fly-to animation
type FlyToRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Zoom      float64  `json:"zoom"`
}

// AutoRotateRequest toggles auto-rotation
type AutoRotateRequest struct {
	Enabled bool `json:"enabled"`
}

// VariantRequest selects the flat map projection
type VariantRequest struct {
	Variant string `json:"variant" binding:"required"`
}

// PickResponse is the geographic position and marker under a screen point
type PickResponse struct {
	Position *viewport.LonLat `json:"position,omitempty"`
	Cluster  *MarkerDTO       `json:"cluster,omitempty"`
}
