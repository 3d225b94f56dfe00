package mqttbridge

import (
	"github.com/eburi/ha-addon-scheiber/internal/bloc9"
)

// deviceIdentifier is the fixed HA device identifier every entity's
// discovery document is grouped under — this bridge represents a single
// logical device regardless of how many Bloc9 controllers it drives.
const deviceIdentifier = "scheiber_system"

// DiscoveryDevice is the "device" block every discovery document carries,
// grouping all entities under one Home Assistant device.
type DiscoveryDevice struct {
	Identifiers []string `json:"identifiers"`
	Name        string   `json:"name"`
	Model       string   `json:"model"`
}

// DiscoveryOrigin identifies the software publishing discovery documents,
// per Home Assistant's MQTT discovery "origin" extension.
type DiscoveryOrigin struct {
	Name      string `json:"name"`
	SWVersion string `json:"sw_version,omitempty"`
}

func buildDevice() DiscoveryDevice {
	return DiscoveryDevice{
		Identifiers: []string{deviceIdentifier},
		Name:        "Scheiber",
		Model:       "Marine Lighting Control System",
	}
}

func buildOrigin(version string) DiscoveryOrigin {
	return DiscoveryOrigin{Name: "scheiber-bridge", SWVersion: version}
}

// LightDiscovery is the discovery document for a dimmable light entity.
type LightDiscovery struct {
	Name                string          `json:"name"`
	UniqueID            string          `json:"unique_id"`
	Schema              string          `json:"schema"`
	StateTopic          string          `json:"state_topic"`
	CommandTopic        string          `json:"command_topic"`
	AvailabilityTopic   string          `json:"availability_topic"`
	AvailabilityMode    string          `json:"availability_mode"`
	Brightness          bool            `json:"brightness"`
	BrightnessScale     int             `json:"brightness_scale"`
	SupportedColorModes []string        `json:"supported_color_modes"`
	EffectList          []string        `json:"effect_list"`
	Effect              bool            `json:"effect"`
	Flash               bool            `json:"flash"`
	Device              DiscoveryDevice `json:"device"`
	Origin              DiscoveryOrigin `json:"origin"`
}

// SwitchDiscovery is the discovery document for a non-dimmable switch
// entity, using HA's plain ON/OFF payload form rather than the light
// JSON schema.
type SwitchDiscovery struct {
	Name              string          `json:"name"`
	UniqueID          string          `json:"unique_id"`
	StateTopic        string          `json:"state_topic"`
	CommandTopic      string          `json:"command_topic"`
	AvailabilityTopic string          `json:"availability_topic"`
	AvailabilityMode  string          `json:"availability_mode"`
	PayloadOn         string          `json:"payload_on"`
	PayloadOff        string          `json:"payload_off"`
	StateOn           string          `json:"state_on"`
	StateOff          string          `json:"state_off"`
	Device            DiscoveryDevice `json:"device"`
	Origin            DiscoveryOrigin `json:"origin"`
}

// allEasingNames renders bloc9's easing kinds as plain strings for the
// discovery document's effect_list.
func allEasingNames() []string {
	easings := bloc9.AllEasings()
	names := make([]string, len(easings))
	for i, e := range easings {
		names[i] = string(e)
	}
	return names
}

// BuildLightDiscovery builds the discovery document for a light entity at
// t, using version in the origin block.
func BuildLightDiscovery(t Topics, displayName, version string) LightDiscovery {
	return LightDiscovery{
		Name:                displayName,
		UniqueID:            t.UniqueID(),
		Schema:              "json",
		StateTopic:          t.State(),
		CommandTopic:        t.Set(),
		AvailabilityTopic:   t.Availability(),
		AvailabilityMode:    "latest",
		Brightness:          true,
		BrightnessScale:     255,
		SupportedColorModes: []string{"brightness"},
		EffectList:          allEasingNames(),
		Effect:              true,
		Flash:               true,
		Device:              buildDevice(),
		Origin:              buildOrigin(version),
	}
}

// BuildSwitchDiscovery builds the discovery document for a switch entity
// at t, using version in the origin block.
func BuildSwitchDiscovery(t Topics, displayName, version string) SwitchDiscovery {
	return SwitchDiscovery{
		Name:              displayName,
		UniqueID:          t.UniqueID(),
		StateTopic:        t.State(),
		CommandTopic:      t.Set(),
		AvailabilityTopic: t.Availability(),
		AvailabilityMode:  "latest",
		PayloadOn:         "ON",
		PayloadOff:        "OFF",
		StateOn:           "ON",
		StateOff:          "OFF",
		Device:            buildDevice(),
		Origin:            buildOrigin(version),
	}
}
