package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMQTTBroker is used when no broker URL is configured.
const DefaultMQTTBroker = "tcp://localhost:1883"

// DefaultTopicPrefix is the Home Assistant discovery prefix.
const DefaultTopicPrefix = "homeassistant"

// DefaultHTTPAddress is where /healthz and /metrics are served.
const DefaultHTTPAddress = "127.0.0.1:9191"

// DefaultStatePath is where device state is persisted between restarts.
const DefaultStatePath = "/var/lib/scheiber-bridge/state.json"

// DefaultPersistIntervalSeconds matches bloc9.DefaultPersistInterval.
const DefaultPersistIntervalSeconds = 30

// StaleCommandMaxAgeSeconds is the retained-command age gate.
const StaleCommandMaxAgeSeconds = 300

// Config is the root configuration for the Scheiber bridge.
type Config struct {
	Bridge  BridgeConfig   `yaml:"bridge"`
	CAN     CANConfig      `yaml:"can"`
	MQTT    MQTTConfig     `yaml:"mqtt"`
	State   StateConfig    `yaml:"state"`
	Devices []DeviceConfig `yaml:"devices"`
	Logging LoggingConfig  `yaml:"logging"`
}

// BridgeConfig contains process-wide identity and HTTP serving settings.
type BridgeConfig struct {
	// ID identifies this bridge instance, used as part of the MQTT client ID.
	ID string `yaml:"id"`

	// HTTPAddress is the bind address for /healthz and /metrics.
	HTTPAddress string `yaml:"http_address"`
}

// CANConfig contains SocketCAN interface settings.
type CANConfig struct {
	// Interface is the SocketCAN network interface name, e.g. "can0".
	Interface string `yaml:"interface"`

	// ReadOnly opens the interface without the ability to send frames,
	// for passive monitoring deployments.
	ReadOnly bool `yaml:"read_only"`
}

// MQTTConfig contains MQTT broker connection and topic settings.
type MQTTConfig struct {
	// Broker is the MQTT broker URL, e.g. "tcp://localhost:1883".
	Broker string `yaml:"broker"`

	// ClientID is the MQTT client identifier. Default: bridge.id + "-mqtt".
	ClientID string `yaml:"client_id"`

	// Username for MQTT authentication (optional).
	Username string `yaml:"username"`

	// Password for MQTT authentication (optional). Never logged; use
	// String() for safe logging.
	Password string `yaml:"password"`

	// QoS is the MQTT quality of service level (0, 1, or 2).
	QoS int `yaml:"qos"`

	// KeepAlive is the MQTT keep-alive interval in seconds.
	KeepAlive int `yaml:"keep_alive"`

	// TopicPrefix is the Home Assistant discovery prefix.
	TopicPrefix string `yaml:"topic_prefix"`
}

// String redacts the password for safe logging.
func (m MQTTConfig) String() string {
	password := ""
	if m.Password != "" {
		password = "[REDACTED]"
	}
	return fmt.Sprintf("MQTTConfig{Broker:%q, ClientID:%q, Username:%q, Password:%s, QoS:%d, TopicPrefix:%q}",
		m.Broker, m.ClientID, m.Username, password, m.QoS, m.TopicPrefix)
}

// MarshalJSON redacts the password in JSON output.
func (m MQTTConfig) MarshalJSON() ([]byte, error) {
	type redacted MQTTConfig
	safe := redacted(m)
	if safe.Password != "" {
		safe.Password = "[REDACTED]"
	}
	return json.Marshal(safe)
}

// StateConfig controls persisted device-state file behaviour.
type StateConfig struct {
	// Path is the JSON state file location.
	Path string `yaml:"path"`

	// PersistIntervalSeconds is how often state is rewritten while running.
	PersistIntervalSeconds int `yaml:"persist_interval_seconds"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is the log output format: json or text.
	Format string `yaml:"format"`
}

// DeviceConfig defines one physical device and its slot-to-entity mapping.
type DeviceConfig struct {
	// DeviceType names the device family. Only "bloc9" is recognised.
	DeviceType string `yaml:"device_type"`

	// DeviceID is the device's DIP-configured bus address (1..10).
	DeviceID uint8 `yaml:"device_id"`

	// Slots maps "s1".."s6" to the output it should drive.
	Slots map[string]SlotConfig `yaml:"slots"`
}

// SlotConfig describes one output within a device.
type SlotConfig struct {
	// Kind is "light" or "switch".
	Kind string `yaml:"kind"`

	// EntityID is the Home-Assistant-visible unique entity identifier.
	EntityID string `yaml:"entity_id"`

	// DisplayName is the human-readable name shown in discovery.
	DisplayName string `yaml:"display_name"`
}

// slotOrder fixes s1..s6 to switch_nr 0..5: zero-indexed in command bytes,
// one-indexed in UI labels.
var slotOrder = []string{"s1", "s2", "s3", "s4", "s5", "s6"}

// SwitchNr returns the zero-based switch_nr for a slot key like "s3", or
// false if the key is not one of s1..s6.
func SwitchNr(slot string) (uint8, bool) {
	for i, s := range slotOrder {
		if s == slot {
			return uint8(i), true
		}
	}
	return 0, false
}

// Load reads configuration from a YAML file, applies SCHEIBER_* environment
// overrides, validates, and returns the result.
//
// Environment variables follow the pattern: SCHEIBER_SECTION_KEY, for
// example SCHEIBER_CAN_INTERFACE, SCHEIBER_MQTT_BROKER.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = cfg.Bridge.ID + "-mqtt"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:          "scheiber-bridge-01",
			HTTPAddress: DefaultHTTPAddress,
		},
		CAN: CANConfig{
			Interface: "can0",
		},
		MQTT: MQTTConfig{
			Broker:      DefaultMQTTBroker,
			QoS:         1,
			KeepAlive:   60,
			TopicPrefix: DefaultTopicPrefix,
		},
		State: StateConfig{
			Path:                   DefaultStatePath,
			PersistIntervalSeconds: DefaultPersistIntervalSeconds,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Devices: []DeviceConfig{},
	}
}

// applyEnvOverrides applies SCHEIBER_*-prefixed environment overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCHEIBER_CAN_INTERFACE"); v != "" {
		cfg.CAN.Interface = v
	}
	if v := os.Getenv("SCHEIBER_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("SCHEIBER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("SCHEIBER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("SCHEIBER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors, joining every problem found
// rather than stopping at the first, so a misconfigured deployment can fix
// everything in one pass.
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}
	if c.CAN.Interface == "" {
		errs = append(errs, "can.interface is required")
	}
	if c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	errs = append(errs, c.validateDevices()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateDevices() []string {
	var errs []string
	seenDeviceID := make(map[uint8]bool)
	seenEntityID := make(map[string]bool)

	for i, dev := range c.Devices {
		if dev.DeviceType != "bloc9" {
			errs = append(errs, fmt.Sprintf("devices[%d].device_type %q is not a recognised family", i, dev.DeviceType))
		}
		if dev.DeviceID < 1 || dev.DeviceID > 10 {
			errs = append(errs, fmt.Sprintf("devices[%d].device_id %d is out of range 1..10", i, dev.DeviceID))
		}
		if seenDeviceID[dev.DeviceID] {
			errs = append(errs, fmt.Sprintf("devices[%d].device_id %d is duplicate", i, dev.DeviceID))
		}
		seenDeviceID[dev.DeviceID] = true

		for slot, sc := range dev.Slots {
			if _, ok := SwitchNr(slot); !ok {
				errs = append(errs, fmt.Sprintf("devices[%d].slots[%s] is not a valid slot (want s1..s6)", i, slot))
			}
			if sc.Kind != "light" && sc.Kind != "switch" {
				errs = append(errs, fmt.Sprintf("devices[%d].slots[%s].kind %q must be light or switch", i, slot, sc.Kind))
			}
			if sc.EntityID == "" {
				errs = append(errs, fmt.Sprintf("devices[%d].slots[%s].entity_id is required", i, slot))
				continue
			}
			if seenEntityID[sc.EntityID] {
				errs = append(errs, fmt.Sprintf("devices[%d].slots[%s].entity_id %q is duplicate", i, slot, sc.EntityID))
			}
			seenEntityID[sc.EntityID] = true
		}
	}
	return errs
}
