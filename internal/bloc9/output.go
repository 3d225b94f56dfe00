package bloc9

import (
	"fmt"
	"sync"
)

// Snapshot is the (state, brightness) pair delivered to observers. For a
// Switch, Brightness is always 0 or FullBrightness and mirrors State.
type Snapshot struct {
	State      bool
	Brightness uint8
}

// Observer receives a Snapshot whenever the Output it is subscribed to
// changes. Observer callbacks are invoked behind a recover boundary — a
// panicking subscriber cannot poison the router (spec.md §7).
type Observer func(Snapshot)

// Output is the common interface Switch and DimmableLight implement. The
// router (Device) dispatches matched frames to Outputs by calling
// processMatched directly; everything else goes through exported methods.
type Output interface {
	DeviceID() uint8
	SwitchNr() uint8
	EntityID() string
	DisplayName() string
	Matchers() []Matcher
	Subscribe(Observer)
	Snapshot() Snapshot

	// processMatched applies the payload of a frame this Output's matcher
	// accepted. It returns the new snapshot and whether it differs from
	// the previously stored one; the caller (Device) is responsible for
	// notifying observers exactly when changed is true.
	processMatched(data []byte) (snap Snapshot, changed bool)

	// restoreState seeds initial state from a persisted snapshot, without
	// sending any command or notifying observers. Used once at startup.
	restoreState(Snapshot)

	// notify fires every registered observer with snap. Unexported: only
	// the router (Device.Route) decides when a change warrants notifying.
	notify(Snapshot)
}

// CanSender is the narrow transport surface Outputs need: send a
// device-addressed command frame. Implemented by the value NewCanSender
// returns (busSender in system.go), which composes a BusConn's Send with
// the device's command arbitration ID.
type CanSender interface {
	SendCommand(deviceID uint8, payload []byte) error
}

// core holds the fields common to Switch and DimmableLight.
type core struct {
	deviceID    uint8
	switchNr    uint8
	entityID    string
	displayName string
	sender      CanSender
	logger      Logger

	mu        sync.Mutex
	observers []Observer
}

// Logger is the minimal logging surface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

func newCore(deviceID, switchNr uint8, entityID, displayName string, sender CanSender) (core, error) {
	if switchNr >= NumOutputs {
		return core{}, fmt.Errorf("%w: %d", ErrInvalidSwitchNr, switchNr)
	}
	if entityID == "" {
		return core{}, fmt.Errorf("%w: entity id must not be empty", ErrDuplicateEntity)
	}
	return core{
		deviceID:    deviceID,
		switchNr:    switchNr,
		entityID:    entityID,
		displayName: displayName,
		sender:      sender,
	}, nil
}

func (c *core) DeviceID() uint8      { return c.deviceID }
func (c *core) SwitchNr() uint8      { return c.switchNr }
func (c *core) EntityID() string     { return c.entityID }
func (c *core) DisplayName() string  { return c.displayName }

func (c *core) pairMatcher() Matcher {
	pattern, err := PairPattern(c.deviceID, c.switchNr)
	if err != nil {
		// switchNr was already validated in newCore; this cannot happen.
		panic(err)
	}
	return FullMatcher(pattern)
}

func (c *core) Subscribe(obs Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, obs)
	c.mu.Unlock()
}

// notify invokes every observer with snap, recovering from any panic so a
// misbehaving subscriber cannot take down the dispatch loop.
func (c *core) notify(snap Snapshot) {
	c.mu.Lock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, obs := range observers {
		c.safeInvoke(obs, snap)
	}
}

func (c *core) safeInvoke(obs Observer, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.logError("panic in output observer", fmt.Errorf("%v", r))
		}
	}()
	obs(snap)
}

func (c *core) SetLogger(l Logger) { c.logger = l }

func (c *core) logError(msg string, err error) {
	if c.logger != nil {
		c.logger.Error(msg, "error", err, "entity_id", c.entityID)
	}
}

func (c *core) sendCommand(state bool, brightness uint8) error {
	payload := EncodeCommand(c.switchNr, state, brightness)
	if err := c.sender.SendCommand(c.deviceID, payload); err != nil {
		if c.logger != nil {
			c.logger.Warn("CAN send failed", "error", err, "entity_id", c.entityID)
		}
		return err
	}
	return nil
}
