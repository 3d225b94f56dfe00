package bloc9

import (
	"context"
	"sync"
	"time"
)

// TickInterval is the cadence at which an active transition recomputes and
// sends brightness samples (spec.md §4.4: 10 Hz nominal).
const TickInterval = 100 * time.Millisecond

// transitionHandle lets a running transition goroutine be cancelled and
// joined by whatever call supersedes it.
type transitionHandle struct {
	cancel chan struct{}
	done   chan struct{}
}

func newTransitionHandle() *transitionHandle {
	return &transitionHandle{cancel: make(chan struct{}), done: make(chan struct{})}
}

// SetCommand is the Home-Assistant-style composite command DimmableLight.Set
// accepts. Precedence when multiple fields are set: Flash > Transition >
// Brightness > State.
type SetCommand struct {
	State      *bool
	Brightness *uint8
	Transition *time.Duration
	Effect     *EasingKind
	Flash      *time.Duration
}

// DimmableLight is a dimmable Output. It owns at most one live transition
// at a time; every mutating call cancels any running transition first.
type DimmableLight struct {
	core

	state         bool // guarded by core.mu
	brightness    uint8
	defaultEasing EasingKind

	transMu    sync.Mutex
	transition *transitionHandle
	wg         sync.WaitGroup
}

var _ Output = (*DimmableLight)(nil)

// NewDimmableLight constructs a DimmableLight bound to deviceID/switchNr.
func NewDimmableLight(deviceID, switchNr uint8, entityID, displayName string, sender CanSender) (*DimmableLight, error) {
	c, err := newCore(deviceID, switchNr, entityID, displayName, sender)
	if err != nil {
		return nil, err
	}
	return &DimmableLight{core: c, defaultEasing: DefaultEasing}, nil
}

func (l *DimmableLight) Matchers() []Matcher {
	return []Matcher{l.pairMatcher()}
}

func (l *DimmableLight) Snapshot() Snapshot {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return Snapshot{State: l.state, Brightness: l.brightness}
}

func (l *DimmableLight) processMatched(data []byte) (Snapshot, bool) {
	state, brightness, err := DecodePairHalf(data, l.switchNr)
	if err != nil {
		l.core.logError("malformed pair-state frame", err)
		return Snapshot{}, false
	}

	l.core.mu.Lock()
	changed := state != l.state || brightness != l.brightness
	l.state = state
	l.brightness = brightness
	snap := Snapshot{State: state, Brightness: brightness}
	l.core.mu.Unlock()

	return snap, changed
}

func (l *DimmableLight) restoreState(snap Snapshot) {
	l.core.mu.Lock()
	l.state = snap.State
	l.brightness = snap.Brightness
	l.core.mu.Unlock()
}

// writeState updates the stored snapshot and, if notify is true, fires
// observers with it.
func (l *DimmableLight) writeState(state bool, brightness uint8, notify bool) {
	l.core.mu.Lock()
	l.state = state
	l.brightness = brightness
	l.core.mu.Unlock()

	if notify {
		l.core.notify(Snapshot{State: state, Brightness: brightness})
	}
}

// cancelTransition stops and joins any running transition. It is safe to
// call when none is running.
func (l *DimmableLight) cancelTransition() {
	l.transMu.Lock()
	t := l.transition
	l.transition = nil
	l.transMu.Unlock()

	if t == nil {
		return
	}
	close(t.cancel)
	<-t.done
}

// SetBrightness cancels any running transition and drives the light
// directly to brightness. The safety rule in spec.md §4.4 requires the
// command frame to go out before the predecessor transition is cancelled
// and joined, so an OFF command stops a climbing fade almost immediately
// instead of waiting for the tick loop to notice first.
func (l *DimmableLight) SetBrightness(_ context.Context, brightness uint8, easing *EasingKind) error {
	state := brightness > 0

	err := l.sendCommand(state, brightness)
	l.cancelTransition()

	if easing != nil {
		l.core.mu.Lock()
		l.defaultEasing = *easing
		l.core.mu.Unlock()
	}

	l.writeState(state, brightness, true)
	return err
}

// FadeTo cancels any running transition and starts a new one ramping from
// the current brightness to target over duration using easing. If easing
// is empty, AutoEasing picks one. A no-op if target already equals the
// current brightness.
func (l *DimmableLight) FadeTo(ctx context.Context, target uint8, duration time.Duration, easing EasingKind) error {
	l.cancelTransition()

	l.core.mu.Lock()
	current := l.brightness
	l.core.mu.Unlock()

	if current == target {
		return nil
	}
	if easing == "" {
		easing = AutoEasing(current, target)
	}

	t := newTransitionHandle()
	l.transMu.Lock()
	l.transition = t
	l.transMu.Unlock()

	l.wg.Add(1)
	go l.runFade(ctx, t, current, target, duration, easing)
	return nil
}

func (l *DimmableLight) runFade(ctx context.Context, t *transitionHandle, start, target uint8, duration time.Duration, easing EasingKind) {
	defer l.wg.Done()
	defer close(t.done)

	ease := resolveEasing(easing)
	startTime := time.Now()
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.cancel:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(startTime)
			tNorm := float64(elapsed) / float64(duration)
			final := tNorm >= 1
			bright := sample(start, target, tNorm, ease)
			state := bright > 0

			if err := l.sendCommand(state, bright); err != nil {
				l.core.logError("transient send failure during fade", err)
			}
			l.writeState(state, bright, final)

			if final {
				l.clearTransitionIfCurrent(t)
				return
			}
		}
	}
}

func (l *DimmableLight) clearTransitionIfCurrent(t *transitionHandle) {
	l.transMu.Lock()
	if l.transition == t {
		l.transition = nil
	}
	l.transMu.Unlock()
}

// Flash cancels any running transition, snapshots the current state, drives
// the light to full brightness for duration, then restores the snapshot.
// Complex contextual flash (varying behaviour by current brightness) is
// explicitly out of scope per spec.md §9.
func (l *DimmableLight) Flash(ctx context.Context, duration time.Duration) error {
	l.cancelTransition()

	l.core.mu.Lock()
	restoreState, restoreBright := l.state, l.brightness
	l.core.mu.Unlock()

	t := newTransitionHandle()
	l.transMu.Lock()
	l.transition = t
	l.transMu.Unlock()

	l.wg.Add(1)
	go l.runFlash(ctx, t, restoreState, restoreBright, duration)
	return nil
}

func (l *DimmableLight) runFlash(ctx context.Context, t *transitionHandle, restoreState bool, restoreBright uint8, duration time.Duration) {
	defer l.wg.Done()
	defer close(t.done)

	if err := l.sendCommand(true, FullBrightness); err != nil {
		l.core.logError("transient send failure during flash", err)
	}
	l.writeState(true, FullBrightness, false)

	select {
	case <-t.cancel:
		return
	case <-ctx.Done():
		return
	case <-time.After(duration):
	}

	if err := l.sendCommand(restoreState, restoreBright); err != nil {
		l.core.logError("transient send failure restoring after flash", err)
	}
	l.writeState(restoreState, restoreBright, true)
	l.clearTransitionIfCurrent(t)
}

// Set applies a Home-Assistant-style composite command. Precedence: Flash
// overrides Transition overrides Brightness/State. If only Effect is set,
// it is remembered as the new default easing and no command is sent.
func (l *DimmableLight) Set(ctx context.Context, cmd SetCommand) error {
	if cmd.Flash != nil {
		return l.Flash(ctx, *cmd.Flash)
	}

	if cmd.Transition != nil {
		target := l.resolveTarget(cmd)
		easing := l.currentDefaultEasing()
		if cmd.Effect != nil {
			easing = *cmd.Effect
		}
		return l.FadeTo(ctx, target, *cmd.Transition, easing)
	}

	if cmd.Brightness != nil || cmd.State != nil {
		target := l.resolveTarget(cmd)
		return l.SetBrightness(ctx, target, cmd.Effect)
	}

	if cmd.Effect != nil {
		l.core.mu.Lock()
		l.defaultEasing = *cmd.Effect
		l.core.mu.Unlock()
	}
	return nil
}

func (l *DimmableLight) resolveTarget(cmd SetCommand) uint8 {
	if cmd.Brightness != nil {
		return *cmd.Brightness
	}
	if cmd.State != nil && *cmd.State {
		return FullBrightness
	}
	return 0
}

func (l *DimmableLight) currentDefaultEasing() EasingKind {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.defaultEasing
}
