package bloc9

import (
	"context"
	"testing"
	"time"
)

func TestEasingBoundaryConditions(t *testing.T) {
	for kind, fn := range easingFuncs {
		if got := fn(0); got < -1e-9 || got > 1e-9 {
			t.Errorf("%s(0) = %v, want 0", kind, got)
		}
		if got := fn(1); got < 1-1e-9 || got > 1+1e-9 {
			t.Errorf("%s(1) = %v, want 1", kind, got)
		}
	}
	if len(AllEasings()) != 13 {
		t.Fatalf("AllEasings() has %d entries, want 13", len(AllEasings()))
	}
}

func TestAutoEasingPolicy(t *testing.T) {
	if got := AutoEasing(0, 200); got != EasingOutCubic {
		t.Errorf("AutoEasing(0, 200) = %v, want ease_out_cubic", got)
	}
	if got := AutoEasing(200, 0); got != EasingInCubic {
		t.Errorf("AutoEasing(200, 0) = %v, want ease_in_cubic", got)
	}
	if got := AutoEasing(100, 150); got != EasingInOutSine {
		t.Errorf("AutoEasing(100, 150) = %v, want ease_in_out_sine", got)
	}
}

func TestFadeToCompletesAtTarget(t *testing.T) {
	sender := &fakeSender{}
	light, err := NewDimmableLight(8, 4, "s5_entity", "S5", sender)
	if err != nil {
		t.Fatalf("NewDimmableLight() error = %v", err)
	}

	var lastSnap Snapshot
	notifyCount := 0
	light.Subscribe(func(s Snapshot) {
		notifyCount++
		lastSnap = s
	})

	duration := 300 * time.Millisecond
	start := time.Now()
	if err := light.FadeTo(context.Background(), 255, duration, EasingLinear); err != nil {
		t.Fatalf("FadeTo() error = %v", err)
	}

	deadline := time.After(duration + 500*time.Millisecond)
	for notifyCount == 0 {
		select {
		case <-deadline:
			t.Fatal("fade did not complete in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
	elapsed := time.Since(start)

	if lastSnap.Brightness != 255 {
		t.Errorf("final brightness = %d, want 255", lastSnap.Brightness)
	}
	if elapsed < duration-150*time.Millisecond || elapsed > duration+300*time.Millisecond {
		t.Errorf("fade took %v, want ~%v (-150ms/+300ms)", elapsed, duration)
	}
	if notifyCount != 1 {
		t.Errorf("notifyCount = %d, want exactly 1 (no notifications during ramp)", notifyCount)
	}
}

func TestFadeToNoOpWhenAlreadyAtTarget(t *testing.T) {
	sender := &fakeSender{}
	light, _ := NewDimmableLight(8, 4, "s5_entity", "S5", sender)

	if err := light.FadeTo(context.Background(), 0, time.Second, EasingLinear); err != nil {
		t.Fatalf("FadeTo() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := sender.last(); ok {
		t.Error("FadeTo() to the current brightness sent a command frame")
	}
}

// TestTransitionCancellation is scenario 5 from spec.md §8: an OFF command
// mid-fade must stop climbing almost immediately and must not emit any
// further dimming frames afterward.
func TestTransitionCancellation(t *testing.T) {
	sender := &fakeSender{}
	light, _ := NewDimmableLight(8, 4, "s5_entity", "S5", sender)

	if err := light.FadeTo(context.Background(), 255, 5*time.Second, EasingLinear); err != nil {
		t.Fatalf("FadeTo() error = %v", err)
	}
	time.Sleep(500 * time.Millisecond)

	cancelStart := time.Now()
	if err := light.SetBrightness(context.Background(), 0, nil); err != nil {
		t.Fatalf("SetBrightness() error = %v", err)
	}
	cancelElapsed := time.Since(cancelStart)
	if cancelElapsed > 100*time.Millisecond {
		t.Errorf("SetBrightness(0) took %v to return, want <=100ms", cancelElapsed)
	}

	last, ok := sender.last()
	if !ok || last.payload[1] != 0x00 {
		t.Fatalf("last command after cancel = %+v, want an OFF frame", last)
	}

	countAfterCancel := len(sender.sent)
	time.Sleep(300 * time.Millisecond) // longer than one tick cadence
	if len(sender.sent) != countAfterCancel {
		t.Errorf("frames sent after cancel = %d, want %d (no further fade frames)",
			len(sender.sent), countAfterCancel)
	}
}

func TestFlashRestoresSnapshot(t *testing.T) {
	sender := &fakeSender{}
	light, _ := NewDimmableLight(8, 4, "s5_entity", "S5", sender)
	light.writeState(true, 120, false)

	notifications := []Snapshot{}
	light.Subscribe(func(s Snapshot) { notifications = append(notifications, s) })

	if err := light.Flash(context.Background(), 100*time.Millisecond); err != nil {
		t.Fatalf("Flash() error = %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	final := light.Snapshot()
	if final.Brightness != 120 || !final.State {
		t.Errorf("post-flash snapshot = %+v, want {true 120}", final)
	}
	if len(notifications) != 1 {
		t.Fatalf("notifications = %d, want 1 (flash ramp itself is silent)", len(notifications))
	}
}

func TestSetCommandPrecedence(t *testing.T) {
	sender := &fakeSender{}
	light, _ := NewDimmableLight(8, 4, "s5_entity", "S5", sender)

	transition := 50 * time.Millisecond
	bright := uint8(200)
	if err := light.Set(context.Background(), SetCommand{Brightness: &bright, Transition: &transition}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := light.Snapshot().Brightness; got != 200 {
		t.Errorf("brightness after transitioned Set() = %d, want 200", got)
	}

	effect := EasingLinear
	if err := light.Set(context.Background(), SetCommand{Effect: &effect}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got := light.currentDefaultEasing(); got != EasingLinear {
		t.Errorf("default easing after effect-only Set() = %v, want linear", got)
	}
	if got := len(sender.sent); got == 0 {
		t.Fatal("expected at least one prior command")
	}
}
