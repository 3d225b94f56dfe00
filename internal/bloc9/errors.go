package bloc9

import "errors"

// Sentinel errors for the bloc9 package.
var (
	ErrInvalidDeviceID  = errors.New("bloc9: invalid device id")
	ErrInvalidSwitchNr  = errors.New("bloc9: invalid switch number")
	ErrFrameMalformed   = errors.New("bloc9: malformed frame")
	ErrDuplicateEntity  = errors.New("bloc9: duplicate entity id")
	ErrUnknownEntity    = errors.New("bloc9: unknown entity id")
	ErrTransitionBusy   = errors.New("bloc9: transition already running")
	ErrPersistenceFault = errors.New("bloc9: state persistence failed")
)

// Kind classifies an error the way spec.md §7 distinguishes them, so
// callers can decide fatal-vs-logged handling with errors.As instead of
// string matching.
type Kind int

const (
	KindConfigInvalid Kind = iota
	KindBusSendFailed
	KindBusFrameMalformed
	KindUnknownArbitrationID
	KindStatePersistIoFailed
)

func (k Kind) String() string {
	switch k {
	case KindConfigInvalid:
		return "ConfigInvalid"
	case KindBusSendFailed:
		return "BusSendFailed"
	case KindBusFrameMalformed:
		return "BusFrameMalformed"
	case KindUnknownArbitrationID:
		return "UnknownArbitrationId"
	case KindStatePersistIoFailed:
		return "StatePersistIoFailed"
	default:
		return "Unknown"
	}
}

// KindError tags an error with its Kind, enabling errors.As-based dispatch.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string { return e.Kind.String() + ": " + e.Err.Error() }
func (e *KindError) Unwrap() error { return e.Err }

func newKindError(k Kind, err error) *KindError {
	return &KindError{Kind: k, Err: err}
}
