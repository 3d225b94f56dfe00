package bloc9

import (
	"sync"
	"time"
)

// RouteResult classifies how a frame was handled by Device.Route.
type RouteResult int

const (
	RouteUnmatched RouteResult = iota
	RouteHeartbeat
	RouteEcho
	RouteMatched
)

// AvailabilityObserver is notified whenever a device's heartbeat-derived
// online/offline status changes.
type AvailabilityObserver func(online bool)

// Device is a single Bloc9 controller: a fixed six-slot array of optional
// Outputs plus the matcher index built from them at construction time.
type Device struct {
	id      uint8
	outputs [NumOutputs]Output

	patternIndex map[uint32][]Output
	heartbeat    uint32
	commandEcho  uint32

	availMu              sync.Mutex
	online               bool
	lastHeartbeat        time.Time
	availabilityObservers []AvailabilityObserver

	logger Logger
}

// Type identifies this device family in persisted-state keys and MQTT
// topics. Always "bloc9" — the core does not support other device
// families (see spec.md Non-goals).
func (d *Device) Type() string { return "bloc9" }

func (d *Device) ID() uint8 { return d.id }

// NewBloc9 constructs a Device from up to six Outputs, keyed by their own
// SwitchNr. Outputs must agree with their slot index and every matcher
// they publish must use a full 32-bit mask (enforced here, not merely
// assumed, because a narrower mask silently aliases across devices).
func NewBloc9(deviceID uint8, outputs []Output) (*Device, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return nil, err
	}

	d := &Device{
		id:           deviceID,
		patternIndex: make(map[uint32][]Output),
		heartbeat:    HeartbeatPattern(deviceID),
		commandEcho:  CommandEchoPattern(deviceID),
	}

	seen := make(map[string]bool, len(outputs))
	for _, o := range outputs {
		if o == nil {
			continue
		}
		if o.DeviceID() != deviceID {
			return nil, newKindError(KindConfigInvalid, ErrInvalidDeviceID)
		}
		if seen[o.EntityID()] {
			return nil, newKindError(KindConfigInvalid, ErrDuplicateEntity)
		}
		seen[o.EntityID()] = true

		slot := o.SwitchNr()
		if d.outputs[slot] != nil {
			return nil, newKindError(KindConfigInvalid, ErrInvalidSwitchNr)
		}
		d.outputs[slot] = o

		for _, m := range o.Matchers() {
			if m.Mask != 0xFFFFFFFF {
				return nil, newKindError(KindConfigInvalid, ErrFrameMalformed)
			}
			d.patternIndex[m.Pattern] = append(d.patternIndex[m.Pattern], o)
		}
	}

	return d, nil
}

// Outputs returns the six output slots in S1..S6 order; unused slots are
// nil.
func (d *Device) Outputs() [NumOutputs]Output { return d.outputs }

// Online reports the device's heartbeat-derived availability.
func (d *Device) Online() bool {
	d.availMu.Lock()
	defer d.availMu.Unlock()
	return d.online
}

func (d *Device) SetLogger(l Logger) { d.logger = l }

// SubscribeAvailability registers a callback fired whenever the device's
// online/offline status changes.
func (d *Device) SubscribeAvailability(obs AvailabilityObserver) {
	d.availMu.Lock()
	d.availabilityObservers = append(d.availabilityObservers, obs)
	d.availMu.Unlock()
}

// Route dispatches a single inbound frame. Heartbeats only refresh
// availability and never touch an Output; the command-echo pattern is
// recognised and dropped; everything else is looked up in the matcher
// index built at construction.
func (d *Device) Route(arbID uint32, data []byte) RouteResult {
	switch arbID {
	case d.heartbeat:
		d.markOnline()
		return RouteHeartbeat
	case d.commandEcho:
		return RouteEcho
	}

	outputs, ok := d.patternIndex[arbID]
	if !ok {
		return RouteUnmatched
	}

	for _, o := range outputs {
		snap, changed := o.processMatched(data)
		if changed {
			o.notify(snap)
		}
	}
	return RouteMatched
}

func (d *Device) markOnline() {
	d.availMu.Lock()
	wasOnline := d.online
	d.online = true
	d.lastHeartbeat = time.Now()
	observers := make([]AvailabilityObserver, len(d.availabilityObservers))
	copy(observers, d.availabilityObservers)
	d.availMu.Unlock()

	if !wasOnline {
		for _, obs := range observers {
			obs(true)
		}
	}
}

// PersistedOutputState is the on-disk shape of one output's state, keyed
// by entity_id within its owning device (spec.md §6). Switch outputs omit
// Brightness.
type PersistedOutputState struct {
	State      bool  `json:"state"`
	Brightness *uint8 `json:"brightness,omitempty"`
}

// StateSnapshot returns every output's current state keyed by entity_id,
// for persistence.
func (d *Device) StateSnapshot() map[string]PersistedOutputState {
	out := make(map[string]PersistedOutputState, NumOutputs)
	for _, o := range d.outputs {
		if o == nil {
			continue
		}
		snap := o.Snapshot()
		ps := PersistedOutputState{State: snap.State}
		if _, isLight := o.(*DimmableLight); isLight {
			b := snap.Brightness
			ps.Brightness = &b
		}
		out[o.EntityID()] = ps
	}
	return out
}

// RestoreState seeds output state from a previously persisted snapshot.
// Unknown entity_ids are ignored (the configuration may have changed).
func (d *Device) RestoreState(states map[string]PersistedOutputState) {
	for _, o := range d.outputs {
		if o == nil {
			continue
		}
		ps, ok := states[o.EntityID()]
		if !ok {
			continue
		}
		brightness := uint8(0)
		if ps.Brightness != nil {
			brightness = *ps.Brightness
		} else if ps.State {
			brightness = FullBrightness
		}
		o.restoreState(Snapshot{State: ps.State, Brightness: brightness})
	}
}
