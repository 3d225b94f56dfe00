package bloc9

import (
	"context"
	"sync"
	"testing"
)

// fakeSender records every command frame sent through it, keyed by device.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentCommand
}

type sentCommand struct {
	deviceID uint8
	payload  []byte
}

func (f *fakeSender) SendCommand(deviceID uint8, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.sent = append(f.sent, sentCommand{deviceID: deviceID, payload: cp})
	return nil
}

func (f *fakeSender) last() (sentCommand, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentCommand{}, false
	}
	return f.sent[len(f.sent)-1], true
}

func buildBloc9(t *testing.T, deviceID uint8, sender CanSender) (*Device, *Switch) {
	t.Helper()
	s3, err := NewSwitch(deviceID, 2, "s3_entity", "S3", sender)
	if err != nil {
		t.Fatalf("NewSwitch() error = %v", err)
	}
	dev, err := NewBloc9(deviceID, []Output{s3})
	if err != nil {
		t.Fatalf("NewBloc9() error = %v", err)
	}
	return dev, s3
}

// TestCrossDeviceIsolation is scenario 1 from spec.md §8.
func TestCrossDeviceIsolation(t *testing.T) {
	sender := &fakeSender{}
	dev1, s3dev1 := buildBloc9(t, 1, sender)
	dev10, s3dev10 := buildBloc9(t, 10, sender)

	var dev1Fired, dev10Fired bool
	s3dev1.Subscribe(func(Snapshot) { dev1Fired = true })
	s3dev10.Subscribe(func(Snapshot) { dev10Fired = true })

	frame := []byte{0x0E, 0x00, 0x11, 0x01, 0x00, 0x00, 0x00, 0x00}
	arbID := uint32(0x021806D0) // device 10, S3/S4

	res10 := dev10.Route(arbID, frame)
	res1 := dev1.Route(arbID, frame)

	if res10 != RouteMatched {
		t.Fatalf("dev10.Route() = %v, want RouteMatched", res10)
	}
	if res1 != RouteUnmatched {
		t.Fatalf("dev1.Route() = %v, want RouteUnmatched (cross-device aliasing)", res1)
	}
	if !dev10Fired {
		t.Error("device-10 S3 observer did not fire")
	}
	if dev1Fired {
		t.Error("device-1 S3 observer fired for a device-10 frame")
	}

	snap := s3dev10.Snapshot()
	if !snap.State {
		t.Errorf("device-10 S3 state = %v, want true", snap.State)
	}
}

func TestHeartbeatNeverMutatesOutput(t *testing.T) {
	sender := &fakeSender{}
	dev, s3 := buildBloc9(t, 1, sender)

	fired := false
	s3.Subscribe(func(Snapshot) { fired = true })

	before := s3.Snapshot()
	res := dev.Route(HeartbeatPattern(1), nil)
	if res != RouteHeartbeat {
		t.Fatalf("Route(heartbeat) = %v, want RouteHeartbeat", res)
	}
	if fired {
		t.Error("heartbeat frame fired an Output observer")
	}
	if s3.Snapshot() != before {
		t.Error("heartbeat frame mutated Output state")
	}
	if !dev.Online() {
		t.Error("device not marked online after heartbeat")
	}
}

func TestCommandEchoDropped(t *testing.T) {
	sender := &fakeSender{}
	dev, s3 := buildBloc9(t, 1, sender)

	fired := false
	s3.Subscribe(func(Snapshot) { fired = true })

	res := dev.Route(CommandEchoPattern(1), []byte{2, 0x11, 0, 150})
	if res != RouteEcho {
		t.Fatalf("Route(echo) = %v, want RouteEcho", res)
	}
	if fired {
		t.Error("command echo frame fired an Output observer")
	}
}

func TestUnknownArbitrationID(t *testing.T) {
	sender := &fakeSender{}
	dev, _ := buildBloc9(t, 1, sender)
	res := dev.Route(0xDEADBEEF, nil)
	if res != RouteUnmatched {
		t.Fatalf("Route(unknown) = %v, want RouteUnmatched", res)
	}
}

func TestSwitchObserverFiresOnlyOnConfirmedChange(t *testing.T) {
	sender := &fakeSender{}
	dev, s3 := buildBloc9(t, 7, sender)

	fireCount := 0
	s3.Subscribe(func(Snapshot) { fireCount++ })

	// Set() must not fire the observer optimistically.
	if err := s3.Set(context.Background(), true); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if fireCount != 0 {
		t.Fatalf("fireCount after Set() = %d, want 0 (no optimistic update)", fireCount)
	}
	if _, ok := sender.last(); !ok {
		t.Fatal("Set() did not send a command frame")
	}

	// Only a matched frame confirming the change fires the observer.
	onFrame := []byte{0x00, 0, 0x11, 0x01, 0, 0, 0, 0} // S3 low half, state on
	pattern, _ := PairPattern(7, 2)
	dev.Route(pattern, onFrame)
	if fireCount != 1 {
		t.Fatalf("fireCount after matched frame = %d, want 1", fireCount)
	}

	// Re-delivering the same state must not re-fire.
	dev.Route(pattern, onFrame)
	if fireCount != 1 {
		t.Fatalf("fireCount after duplicate frame = %d, want 1 (no redundant notify)", fireCount)
	}
}

func TestStateSnapshotRoundTrip(t *testing.T) {
	sender := &fakeSender{}
	dev, s3 := buildBloc9(t, 2, sender)

	pattern, _ := PairPattern(2, 2)
	dev.Route(pattern, []byte{0x00, 0, 0x11, 0x01, 0, 0, 0, 0})

	snap := dev.StateSnapshot()
	ps, ok := snap["s3_entity"]
	if !ok {
		t.Fatal("StateSnapshot() missing entity s3_entity")
	}
	if !ps.State {
		t.Error("StateSnapshot() state = false, want true")
	}
	if ps.Brightness != nil {
		t.Error("Switch's PersistedOutputState should omit Brightness")
	}

	dev2, _ := buildBloc9(t, 2, sender)
	dev2.RestoreState(snap)
	if got := dev2.Outputs()[2].Snapshot(); !got.State {
		t.Errorf("RestoreState() state = %v, want true", got.State)
	}
}
