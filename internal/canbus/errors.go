package canbus

import "errors"

// Sentinel errors for the canbus package. Each is wrapped with additional
// context via fmt.Errorf's %w verb at the call site.
var (
	ErrNotConnected     = errors.New("canbus: not connected")
	ErrAlreadyConnected = errors.New("canbus: already connected")
	ErrConnectionFailed = errors.New("canbus: connection failed")
	ErrInvalidFrame     = errors.New("canbus: invalid frame")
	ErrSendFailed       = errors.New("canbus: send failed")
	ErrReadOnly         = errors.New("canbus: bus opened read-only")
	ErrTimeout          = errors.New("canbus: timeout")
)
