package service

import "errors"

var (
	// ErrInvalidParams wraps every validation failure.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrCameraNotFound is returned for unknown camera ids.
	ErrCameraNotFound = errors.New("camera not found")
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
)
