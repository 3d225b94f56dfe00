package canbus

import (
	"sync/atomic"
	"time"
)

// Logger is the minimal logging surface this package needs. Satisfied by
// *logging.Logger and by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Stats holds atomically-updated counters describing bus activity.
// Read with Snapshot; do not copy a live Stats value.
type Stats struct {
	FramesTx     atomic.Uint64
	FramesRx     atomic.Uint64
	ErrorsTotal  atomic.Uint64
	Dropped      atomic.Uint64
	LastActivity atomic.Int64 // unix nanos
	Connected    atomic.Bool
}

// StatsSnapshot is a point-in-time copy of Stats suitable for exposing over
// /healthz or /metrics.
type StatsSnapshot struct {
	FramesTx     uint64
	FramesRx     uint64
	ErrorsTotal  uint64
	Dropped      uint64
	LastActivity time.Time
	Connected    bool
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FramesTx:     s.FramesTx.Load(),
		FramesRx:     s.FramesRx.Load(),
		ErrorsTotal:  s.ErrorsTotal.Load(),
		Dropped:      s.Dropped.Load(),
		LastActivity: time.Unix(0, s.LastActivity.Load()),
		Connected:    s.Connected.Load(),
	}
}

func (s *Stats) touch() {
	s.LastActivity.Store(time.Now().UnixNano())
}

// OnFrame is invoked once per inbound frame. It is called from a bounded
// pool of callback workers, never from the socket read loop directly, and
// must not block for long — a slow callback only ever holds up other
// queued callbacks, never frame reception.
type OnFrame func(Frame)

// Conn is the transport abstraction the rest of the bridge depends on.
// Any CAN adapter driver exposing "send extended frame" and "receive
// frames" satisfies it; SocketCANConn is the concrete implementation used
// in production.
type Conn interface {
	// Send transmits f. It returns ErrReadOnly if the connection was opened
	// read-only, and wraps the underlying write error otherwise.
	Send(f Frame) error

	// SetOnFrame installs the callback invoked for every inbound frame.
	// Must be called before Open's read loop starts delivering frames;
	// calling it later replaces the callback for subsequent frames only.
	SetOnFrame(cb OnFrame)

	// IsConnected reports whether the socket is currently open.
	IsConnected() bool

	// Stats returns a snapshot of I/O counters.
	Stats() StatsSnapshot

	// Close shuts the connection down. Idempotent.
	Close() error
}
