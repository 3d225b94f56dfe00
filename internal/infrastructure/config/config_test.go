package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
bridge:
  id: "test-bridge"
can:
  interface: "can1"
mqtt:
  broker: "tcp://broker:1883"
  qos: 1
devices:
  - device_type: bloc9
    device_id: 7
    slots:
      s1:
        kind: switch
        entity_id: "cabin_light"
        display_name: "Cabin Light"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.ID != "test-bridge" {
		t.Errorf("Bridge.ID = %q, want %q", cfg.Bridge.ID, "test-bridge")
	}
	if cfg.CAN.Interface != "can1" {
		t.Errorf("CAN.Interface = %q, want %q", cfg.CAN.Interface, "can1")
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("MQTT.Broker = %q, want %q", cfg.MQTT.Broker, "tcp://broker:1883")
	}
	if len(cfg.Devices) != 1 || cfg.Devices[0].DeviceID != 7 {
		t.Fatalf("Devices = %+v, want one device with id 7", cfg.Devices)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
bridge:
  id: "test-bridge"
can:
  interface: "can0"
mqtt:
  broker: "tcp://localhost:1883"
`
	t.Setenv("SCHEIBER_CAN_INTERFACE", "vcan0")
	t.Setenv("SCHEIBER_MQTT_BROKER", "tcp://override:1883")
	t.Setenv("SCHEIBER_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CAN.Interface != "vcan0" {
		t.Errorf("CAN.Interface = %q, want vcan0 (env override)", cfg.CAN.Interface)
	}
	if cfg.MQTT.Broker != "tcp://override:1883" {
		t.Errorf("MQTT.Broker = %q, want override", cfg.MQTT.Broker)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestValidate_DuplicateEntityID(t *testing.T) {
	cfg := defaultConfig()
	cfg.Bridge.ID = "b"
	cfg.Devices = []DeviceConfig{
		{
			DeviceType: "bloc9",
			DeviceID:   1,
			Slots: map[string]SlotConfig{
				"s1": {Kind: "switch", EntityID: "dup"},
				"s2": {Kind: "switch", EntityID: "dup"},
			},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with duplicate entity_id: want error, got nil")
	}
}

func TestValidate_InvalidSlot(t *testing.T) {
	cfg := defaultConfig()
	cfg.Bridge.ID = "b"
	cfg.Devices = []DeviceConfig{
		{
			DeviceType: "bloc9",
			DeviceID:   1,
			Slots: map[string]SlotConfig{
				"s9": {Kind: "switch", EntityID: "x"},
			},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with invalid slot key: want error, got nil")
	}
}

func TestValidate_UnknownDeviceFamily(t *testing.T) {
	cfg := defaultConfig()
	cfg.Bridge.ID = "b"
	cfg.Devices = []DeviceConfig{{DeviceType: "unknown", DeviceID: 1}}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() with unknown device_type: want error, got nil")
	}
}

func TestSwitchNr(t *testing.T) {
	if n, ok := SwitchNr("s3"); !ok || n != 2 {
		t.Errorf("SwitchNr(s3) = (%d, %v), want (2, true)", n, ok)
	}
	if _, ok := SwitchNr("s7"); ok {
		t.Error("SwitchNr(s7): want false, got true")
	}
}

func TestMQTTConfig_StringRedactsPassword(t *testing.T) {
	m := MQTTConfig{Broker: "tcp://x", Password: "secret"}
	if got := m.String(); got == "" {
		t.Fatal("String() returned empty")
	} else if containsSecret(got) {
		t.Errorf("String() leaked password: %s", got)
	}
}

func containsSecret(s string) bool {
	for i := 0; i+6 <= len(s); i++ {
		if s[i:i+6] == "secret" {
			return true
		}
	}
	return false
}
