package mqtt

import "fmt"

// Topics builds the small set of topics the transport layer itself needs
// (connection status / LWT). Entity-facing discovery, state, command and
// availability topics live in the mqttbridge package, which knows the
// Home Assistant topic scheme; this package only moves bytes.
type Topics struct {
	// Prefix is the configured MQTT topic prefix, e.g. "homeassistant".
	Prefix string
}

// Status returns the topic this client publishes its own online/offline
// status to, used for both the graceful Close() publish and the broker-side
// Last Will and Testament.
func (t Topics) Status() string {
	prefix := t.Prefix
	if prefix == "" {
		prefix = "homeassistant"
	}
	return fmt.Sprintf("%s/scheiber/bridge/status", prefix)
}
