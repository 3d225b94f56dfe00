package mqttbridge

import "fmt"

// EntityKind identifies the entity family of one output, both for topic building
// and for the HA platform a discovery document targets.
type EntityKind string

const (
	KindLight  EntityKind = "light"
	KindSwitch EntityKind = "switch"
)

// Topics builds every MQTT topic the bridge publishes to or subscribes on
// for one output, following the scheme in spec.md §6. A Topics value is
// cheap to build and holds no state beyond its fields.
type Topics struct {
	Prefix     string
	Kind       EntityKind
	DeviceType string
	DeviceID   uint8
	SwitchNr   uint8 // zero-based; topic segments use SwitchNr+1
	EntityID   string
}

func (t Topics) slotNum() uint8 { return t.SwitchNr + 1 }

// Discovery returns the retained discovery-document topic, e.g.
// "homeassistant/light/porch_light/config".
func (t Topics) Discovery() string {
	return fmt.Sprintf("%s/%s/%s/config", t.Prefix, t.Kind, t.EntityID)
}

// State returns the retained state topic, e.g.
// "homeassistant/scheiber/bloc9/1/s3/state".
func (t Topics) State() string {
	return fmt.Sprintf("%s/scheiber/%s/%d/s%d/state", t.Prefix, t.DeviceType, t.DeviceID, t.slotNum())
}

// Set returns the command topic this entity subscribes to.
func (t Topics) Set() string {
	return fmt.Sprintf("%s/scheiber/%s/%d/s%d/set", t.Prefix, t.DeviceType, t.DeviceID, t.slotNum())
}

// Availability returns the per-entity availability topic.
func (t Topics) Availability() string {
	return fmt.Sprintf("%s/scheiber/%s/%d/s%d/availability", t.Prefix, t.DeviceType, t.DeviceID, t.slotNum())
}

// UniqueID returns the HA unique_id for this entity's discovery document,
// e.g. "scheiber_bloc9_1_s3".
func (t Topics) UniqueID() string {
	return fmt.Sprintf("scheiber_%s_%d_s%d", t.DeviceType, t.DeviceID, t.slotNum())
}

// SetWildcard returns the subscription pattern matching every entity's
// command topic, used once at startup instead of one Subscribe call per
// entity.
func SetWildcard(prefix string) string {
	return fmt.Sprintf("%s/scheiber/+/+/+/set", prefix)
}
