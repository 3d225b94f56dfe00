package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eburi/ha-addon-scheiber/internal/bloc9"
)

// Publisher is the narrow MQTT surface entities need: publish retained or
// live messages and subscribe to a topic. Satisfied by
// *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte, retained bool) error) error
}

// lightStatePayload is the JSON shape published on a light's state topic.
type lightStatePayload struct {
	State      string `json:"state"`
	Brightness uint8  `json:"brightness"`
}

// Entity is the common surface Bridge drives: publish discovery and
// availability once at startup, and handle inbound command payloads.
type Entity interface {
	EntityID() string
	Kind() EntityKind
	PublishDiscovery(pub Publisher) error
	PublishAvailability(pub Publisher) error
	HandleCommand(ctx context.Context, payload []byte) error
}

// MQTTLight wraps a bloc9.DimmableLight, publishing its state to MQTT on
// every observer callback and translating inbound JSON light commands
// back into calls on the underlying light.
type MQTTLight struct {
	light   *bloc9.DimmableLight
	topics  Topics
	version string
}

// NewMQTTLight constructs an MQTTLight and subscribes it to light's
// observer stream; every subsequent state change is published to topics.
func NewMQTTLight(light *bloc9.DimmableLight, topics Topics, pub Publisher, version string) *MQTTLight {
	m := &MQTTLight{light: light, topics: topics, version: version}
	light.Subscribe(func(snap bloc9.Snapshot) {
		m.publishState(pub, snap)
	})
	return m
}

func (m *MQTTLight) EntityID() string  { return m.topics.EntityID }
func (m *MQTTLight) Kind() EntityKind  { return KindLight }

func (m *MQTTLight) publishState(pub Publisher, snap bloc9.Snapshot) {
	state := "OFF"
	if snap.State {
		state = "ON"
	}
	payload, err := json.Marshal(lightStatePayload{State: state, Brightness: snap.Brightness})
	if err != nil {
		return
	}
	_ = pub.Publish(m.topics.State(), payload, 1, true)
}

// PublishDiscovery publishes this light's retained HA discovery document.
func (m *MQTTLight) PublishDiscovery(pub Publisher) error {
	name := m.light.DisplayName()
	if name == "" {
		name = m.topics.EntityID
	}
	doc := BuildLightDiscovery(m.topics, name, m.version)
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal light discovery for %s: %w", m.topics.EntityID, err)
	}
	return pub.Publish(m.topics.Discovery(), payload, 1, true)
}

// PublishAvailability publishes "online" once at startup, per spec.md §4.5.
func (m *MQTTLight) PublishAvailability(pub Publisher) error {
	return pub.Publish(m.topics.Availability(), []byte("online"), 1, true)
}

// HandleCommand parses payload as a light command and applies it.
func (m *MQTTLight) HandleCommand(ctx context.Context, payload []byte) error {
	cmd, err := ParseLightCommand(payload)
	if err != nil {
		return newKindError(KindMqttParseFailed, err)
	}
	return m.light.Set(ctx, cmd)
}

// MQTTSwitch wraps a bloc9.Switch, publishing plain ON/OFF state and
// accepting plain ON/OFF commands.
type MQTTSwitch struct {
	sw      *bloc9.Switch
	topics  Topics
	version string
}

// NewMQTTSwitch constructs an MQTTSwitch and subscribes it to sw's
// observer stream.
func NewMQTTSwitch(sw *bloc9.Switch, topics Topics, pub Publisher, version string) *MQTTSwitch {
	m := &MQTTSwitch{sw: sw, topics: topics, version: version}
	sw.Subscribe(func(snap bloc9.Snapshot) {
		m.publishState(pub, snap)
	})
	return m
}

func (m *MQTTSwitch) EntityID() string { return m.topics.EntityID }
func (m *MQTTSwitch) Kind() EntityKind { return KindSwitch }

func (m *MQTTSwitch) publishState(pub Publisher, snap bloc9.Snapshot) {
	payload := "OFF"
	if snap.State {
		payload = "ON"
	}
	_ = pub.Publish(m.topics.State(), []byte(payload), 1, true)
}

// PublishDiscovery publishes this switch's retained HA discovery document.
func (m *MQTTSwitch) PublishDiscovery(pub Publisher) error {
	name := m.sw.DisplayName()
	if name == "" {
		name = m.topics.EntityID
	}
	doc := BuildSwitchDiscovery(m.topics, name, m.version)
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal switch discovery for %s: %w", m.topics.EntityID, err)
	}
	return pub.Publish(m.topics.Discovery(), payload, 1, true)
}

// PublishAvailability publishes "online" once at startup, per spec.md §4.5.
func (m *MQTTSwitch) PublishAvailability(pub Publisher) error {
	return pub.Publish(m.topics.Availability(), []byte("online"), 1, true)
}

// HandleCommand parses payload as a plain ON/OFF command and applies it.
func (m *MQTTSwitch) HandleCommand(ctx context.Context, payload []byte) error {
	state, ok := parsePlainState(string(payload))
	if !ok {
		return newKindError(KindMqttParseFailed, fmt.Errorf("%w: %q", ErrInvalidPayload, payload))
	}
	return m.sw.Set(ctx, state)
}
