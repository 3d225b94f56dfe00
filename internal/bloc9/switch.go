package bloc9

import "context"

// Switch is a non-dimmable Output. It exposes only a boolean state and
// publishes plain "ON"/"OFF" rather than a JSON envelope at the MQTT layer.
// Its stored state is never updated optimistically — only a matched frame
// confirming the change moves it, matching hardware truth and avoiding
// ghost updates on rejected commands.
type Switch struct {
	core

	state bool // guarded by core.mu
}

var _ Output = (*Switch)(nil)

// NewSwitch constructs a Switch bound to deviceID/switchNr and sending
// commands through sender.
func NewSwitch(deviceID, switchNr uint8, entityID, displayName string, sender CanSender) (*Switch, error) {
	c, err := newCore(deviceID, switchNr, entityID, displayName, sender)
	if err != nil {
		return nil, err
	}
	return &Switch{core: c}, nil
}

func (s *Switch) Matchers() []Matcher {
	return []Matcher{s.pairMatcher()}
}

func (s *Switch) Snapshot() Snapshot {
	s.core.mu.Lock()
	defer s.core.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Switch) snapshotLocked() Snapshot {
	if s.state {
		return Snapshot{State: true, Brightness: FullBrightness}
	}
	return Snapshot{State: false, Brightness: 0}
}

func (s *Switch) processMatched(data []byte) (Snapshot, bool) {
	state, _, err := DecodePairHalf(data, s.switchNr)
	if err != nil {
		s.core.logError("malformed pair-state frame", err)
		return Snapshot{}, false
	}

	s.core.mu.Lock()
	changed := state != s.state
	s.state = state
	snap := s.snapshotLocked()
	s.core.mu.Unlock()

	return snap, changed
}

func (s *Switch) restoreState(snap Snapshot) {
	s.core.mu.Lock()
	s.state = snap.State
	s.core.mu.Unlock()
}

// Set issues a command turning the switch on or off. The stored state is
// not updated here; it changes only when the device echoes back a matched
// pair-state frame confirming the command took effect.
func (s *Switch) Set(_ context.Context, state bool) error {
	brightness := uint8(0)
	if state {
		brightness = FullBrightness
	}
	return s.sendCommand(state, brightness)
}
