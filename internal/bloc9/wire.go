package bloc9

import "fmt"

// Wire protocol constants for Scheiber Bloc9 controllers. All values are
// taken from the observed bus behaviour of the device family. Byte 2 of a
// pair half is PWM-mode telemetry and is never written or required by this
// package.
const (
	// MinDeviceID and MaxDeviceID bound the 4-bit DIP-switch device address.
	MinDeviceID uint8 = 1
	MaxDeviceID uint8 = 10

	// NumOutputs is the fixed number of logical outputs (S1..S6) per Bloc9.
	NumOutputs = 6

	// DimmingThreshold is the brightness value at or below which a frame
	// reporting state_bit=0 is not treated as "on"; a set state bit always
	// means "on" — see effectiveState.
	DimmingThreshold uint8 = 2

	// FullBrightness is the brightness value surfaced to callers when the
	// wire reports an on state with a zero brightness byte (the
	// "full-brightness quirk").
	FullBrightness uint8 = 255

	// offBrightnessCeiling and fullOnBrightnessFloor bound the three
	// command-synthesis bands described in spec.md §4.1.
	offBrightnessCeiling  uint8 = 2
	fullOnBrightnessFloor uint8 = 253

	modeOff     byte = 0x00
	modeDimming byte = 0x11
	modeFullOn  byte = 0x01

	heartbeatBase    uint32 = 0x00000600
	pairS1S2Base     uint32 = 0x02160600
	pairS3S4Base     uint32 = 0x02180600
	pairS5S6Base     uint32 = 0x021A0600
	commandEchoBase  uint32 = 0x02360600
)

// deviceByte computes B(d) = (d << 3) | 0x80, the low byte shared by every
// arbitration ID that belongs to device d.
func deviceByte(deviceID uint8) uint32 {
	return (uint32(deviceID) << 3) | 0x80
}

// ValidateDeviceID reports whether id is a legal Bloc9 DIP-switch address.
func ValidateDeviceID(id uint8) error {
	if id < MinDeviceID || id > MaxDeviceID {
		return fmt.Errorf("%w: %d (must be %d..%d)", ErrInvalidDeviceID, id, MinDeviceID, MaxDeviceID)
	}
	return nil
}

// HeartbeatPattern returns the arbitration ID of device d's low-priority
// status frame. Its payload carries no per-output state.
func HeartbeatPattern(deviceID uint8) uint32 {
	return heartbeatBase | deviceByte(deviceID)
}

// CommandEchoPattern returns the arbitration ID device d echoes back for
// every command frame it accepts. The router recognises and discards it.
func CommandEchoPattern(deviceID uint8) uint32 {
	return commandEchoBase | deviceByte(deviceID)
}

// PairPattern returns the arbitration ID carrying the combined state of the
// two outputs at switchNr and switchNr^1 (S1/S2, S3/S4 or S5/S6).
func PairPattern(deviceID, switchNr uint8) (uint32, error) {
	if switchNr >= NumOutputs {
		return 0, fmt.Errorf("%w: %d (must be 0..%d)", ErrInvalidSwitchNr, switchNr, NumOutputs-1)
	}
	b := deviceByte(deviceID)
	switch switchNr / 2 {
	case 0:
		return pairS1S2Base | b, nil
	case 1:
		return pairS3S4Base | b, nil
	default:
		return pairS5S6Base | b, nil
	}
}

// isHighHalf reports whether switchNr occupies the high half (bytes 4..7)
// of its pair frame. S1, S3, S5 occupy the low half; S2, S4, S6 the high.
func isHighHalf(switchNr uint8) bool {
	return switchNr%2 == 1
}

// DecodePairHalf extracts the reported (state, brightness) pair for one
// half of an 8-byte pair-state frame payload and applies the
// full-brightness quirk, yielding the values exposed to callers.
func DecodePairHalf(data []byte, switchNr uint8) (state bool, brightness uint8, err error) {
	if len(data) < 8 {
		return false, 0, fmt.Errorf("%w: pair-state payload has %d bytes, want 8", ErrFrameMalformed, len(data))
	}
	var brightByte, stateByte byte
	if isHighHalf(switchNr) {
		brightByte, stateByte = data[4], data[7]
	} else {
		brightByte, stateByte = data[0], data[3]
	}
	reportedState := stateByte&0x01 == 1
	reportedBright := brightByte
	return effectiveState(reportedState, reportedBright), effectiveBrightness(reportedState, reportedBright), nil
}

func effectiveState(reportedState bool, reportedBright uint8) bool {
	return reportedState || reportedBright > DimmingThreshold
}

func effectiveBrightness(reportedState bool, reportedBright uint8) uint8 {
	if effectiveState(reportedState, reportedBright) && reportedBright == 0 {
		return FullBrightness
	}
	return reportedBright
}

// SynthesizeCommand computes the (mode, brightness) byte pair a command
// frame must carry to drive an output to the given target state.
func SynthesizeCommand(state bool, brightness uint8) (mode byte, sentBrightness byte) {
	switch {
	case !state || brightness <= offBrightnessCeiling:
		return modeOff, 0
	case brightness >= fullOnBrightnessFloor:
		return modeFullOn, 0
	default:
		return modeDimming, brightness
	}
}

// EncodeCommand builds the 4-byte payload of a command frame targeting
// switchNr with the given target state.
func EncodeCommand(switchNr uint8, state bool, brightness uint8) []byte {
	mode, sent := SynthesizeCommand(state, brightness)
	return []byte{switchNr, mode, 0x00, sent}
}
