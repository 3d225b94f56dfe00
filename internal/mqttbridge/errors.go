package mqttbridge

import "errors"

// Sentinel errors for the mqttbridge package.
var (
	ErrUnknownEasing     = errors.New("mqttbridge: unknown easing name")
	ErrInvalidFlash      = errors.New("mqttbridge: invalid flash value")
	ErrInvalidBrightness = errors.New("mqttbridge: brightness out of range")
	ErrInvalidPayload    = errors.New("mqttbridge: command payload is neither ON/OFF nor valid JSON")
)

// Kind classifies a bridge-level failure the way spec.md §7 distinguishes
// them, mirroring bloc9.Kind for the parts of error handling that live at
// the MQTT boundary rather than inside the router.
type Kind int

const (
	KindMqttParseFailed Kind = iota
	KindStaleRetainedCommand
	KindMqttAuthFailed
)

func (k Kind) String() string {
	switch k {
	case KindMqttParseFailed:
		return "MqttParseFailed"
	case KindStaleRetainedCommand:
		return "StaleRetainedCommand"
	case KindMqttAuthFailed:
		return "MqttAuthFailed"
	default:
		return "Unknown"
	}
}

// KindError tags an error with its Kind, enabling errors.As-based dispatch
// by callers that want to distinguish a parse failure from a staleness
// rejection without string matching.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string { return e.Kind.String() + ": " + e.Err.Error() }
func (e *KindError) Unwrap() error { return e.Err }

func newKindError(k Kind, err error) *KindError {
	return &KindError{Kind: k, Err: err}
}
