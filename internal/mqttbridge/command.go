package mqttbridge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eburi/ha-addon-scheiber/internal/bloc9"
)

// flashShort and flashLong are Home Assistant's conventional durations for
// the "short"/"long" flash keywords in the light command grammar.
const (
	flashShort = 2 * time.Second
	flashLong  = 10 * time.Second
)

// lightCommand is the wire shape of the JSON light command grammar from
// spec.md §6. Timestamp is additive: HA itself never sends it, but a
// retained command replayed from a bridge-side cache or a scripted
// publisher can carry one so the staleness gate in IsStaleRetained has something
// to compare against; its absence is not an error.
type lightCommand struct {
	State      string          `json:"state"`
	Brightness *int            `json:"brightness"`
	Transition *float64        `json:"transition"`
	Effect     string          `json:"effect"`
	Flash      json.RawMessage `json:"flash"`
	Timestamp  string          `json:"timestamp"`
}

// ParseLightCommand parses a command-topic payload into a bloc9.SetCommand.
// Accepts a plain "ON"/"OFF" string or the JSON object grammar; anything
// else is ErrInvalidPayload.
func ParseLightCommand(payload []byte) (bloc9.SetCommand, error) {
	trimmed := strings.TrimSpace(string(payload))

	if state, ok := parsePlainState(trimmed); ok {
		return bloc9.SetCommand{State: &state}, nil
	}

	var raw lightCommand
	if err := json.Unmarshal(payload, &raw); err != nil {
		return bloc9.SetCommand{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var cmd bloc9.SetCommand

	if raw.State != "" {
		state, ok := parsePlainState(raw.State)
		if !ok {
			return bloc9.SetCommand{}, fmt.Errorf("%w: state %q must be ON or OFF", ErrInvalidPayload, raw.State)
		}
		cmd.State = &state
	}

	if raw.Brightness != nil {
		if *raw.Brightness < 0 || *raw.Brightness > 255 {
			return bloc9.SetCommand{}, fmt.Errorf("%w: %d", ErrInvalidBrightness, *raw.Brightness)
		}
		b := uint8(*raw.Brightness)
		cmd.Brightness = &b
	}

	if raw.Transition != nil {
		d := time.Duration(*raw.Transition * float64(time.Second))
		cmd.Transition = &d
	}

	if raw.Effect != "" {
		easing := bloc9.EasingKind(raw.Effect)
		if !isKnownEasing(easing) {
			return bloc9.SetCommand{}, fmt.Errorf("%w: %q", ErrUnknownEasing, raw.Effect)
		}
		cmd.Effect = &easing
	}

	if len(raw.Flash) > 0 {
		d, err := parseFlash(raw.Flash)
		if err != nil {
			return bloc9.SetCommand{}, err
		}
		cmd.Flash = &d
	}

	return cmd, nil
}

func parsePlainState(s string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON":
		return true, true
	case "OFF":
		return false, true
	default:
		return false, false
	}
}

func isKnownEasing(kind bloc9.EasingKind) bool {
	for _, k := range bloc9.AllEasings() {
		if k == kind {
			return true
		}
	}
	return false
}

// parseFlash decodes the "flash" field, which is either the string
// "short"/"long" or a bare number of seconds.
func parseFlash(raw json.RawMessage) (time.Duration, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch strings.ToLower(asString) {
		case "short":
			return flashShort, nil
		case "long":
			return flashLong, nil
		default:
			if seconds, err := strconv.ParseFloat(asString, 64); err == nil {
				return time.Duration(seconds * float64(time.Second)), nil
			}
			return 0, fmt.Errorf("%w: %q", ErrInvalidFlash, asString)
		}
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return time.Duration(asNumber * float64(time.Second)), nil
	}

	return 0, fmt.Errorf("%w: %s", ErrInvalidFlash, string(raw))
}

// commandTimestamp extracts the optional timestamp from a JSON command
// payload, for use by the retained-message staleness gate. Returns the
// zero Time and false if the payload is not JSON or carries no timestamp.
func commandTimestamp(payload []byte) (time.Time, bool) {
	var raw lightCommand
	if err := json.Unmarshal(payload, &raw); err != nil || raw.Timestamp == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsStaleRetained reports whether a retained command message should be
// discarded under spec.md §8 invariant 6: a retained message carrying a
// timestamp older than maxAge at receipt time is stale. A retained message
// with no timestamp (the common case — most MQTT clients including Home
// Assistant itself never set one) cannot be judged and is never considered
// stale by this check alone.
func IsStaleRetained(payload []byte, maxAge time.Duration, now time.Time) bool {
	ts, ok := commandTimestamp(payload)
	if !ok {
		return false
	}
	return now.Sub(ts) > maxAge
}
