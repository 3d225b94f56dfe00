package canbus

import "fmt"

// MaxDataLength is the largest payload a classic CAN frame can carry.
const MaxDataLength = 8

// Frame is an extended-ID (29-bit) CAN frame. All frames this bridge sends
// and expects to receive use the extended identifier format; a frame sent
// with a standard 11-bit ID is silently truncated by Scheiber hardware and
// never answered.
type Frame struct {
	ArbID    uint32
	Data     []byte
	Extended bool
}

// Validate reports whether f is well-formed: ArbID fits in 29 bits when
// Extended is set (11 bits otherwise) and Data does not exceed MaxDataLength.
func (f Frame) Validate() error {
	if len(f.Data) > MaxDataLength {
		return fmt.Errorf("%w: payload length %d exceeds %d bytes", ErrInvalidFrame, len(f.Data), MaxDataLength)
	}
	if f.Extended {
		if f.ArbID > 0x1FFFFFFF {
			return fmt.Errorf("%w: extended arbitration id %#x exceeds 29 bits", ErrInvalidFrame, f.ArbID)
		}
		return nil
	}
	if f.ArbID > 0x7FF {
		return fmt.Errorf("%w: standard arbitration id %#x exceeds 11 bits", ErrInvalidFrame, f.ArbID)
	}
	return nil
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame{arb_id=%#x extended=%v data=% x}", f.ArbID, f.Extended, f.Data)
}
