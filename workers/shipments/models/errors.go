package models

import "errors"

var (
	ErrInvalidTracking          = errors.New("invalid tracking")
	ErrNotYetDelivered          = errors.New("not yet delivered")
	ErrDetailsUnavailable       = errors.New("tracking details unavailable")
	ErrInternationalUnsupported = errors.New("international unsupported")
	ErrLocationUnresolved       = errors.New("location unresolved")
	ErrNoRouteFound             = errors.New("no ground route found")
)
