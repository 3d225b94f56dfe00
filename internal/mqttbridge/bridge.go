package mqttbridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eburi/ha-addon-scheiber/internal/bloc9"
)

// Logger is the narrow logging surface Bridge needs, satisfied by
// logging.Logger. It is wider than mqtt.Logger, which has no Info method.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// Recorder is the narrow metrics surface Bridge needs, satisfied by
// metrics.Registry without this package importing Prometheus directly.
type Recorder interface {
	CommandReceived(entityKind string)
	CommandError(kind string)
}

// Bridge owns the set of MQTT-facing entities and drives their lifecycle:
// publishing discovery documents and availability at startup, routing
// inbound command-topic messages to the right entity, and enforcing the
// retained-command staleness gate before any mutation reaches bloc9.
type Bridge struct {
	pub      Publisher
	prefix   string
	maxAge   time.Duration
	version  string
	logger   Logger
	recorder Recorder

	mu       sync.RWMutex
	entities map[string]Entity // keyed by Topics.Set()
}

// Options configures a Bridge.
type Options struct {
	Prefix             string
	StaleCommandMaxAge time.Duration
	Version            string
	Logger             Logger
	Recorder           Recorder
}

// New constructs a Bridge with no entities registered yet; call
// RegisterLight or RegisterSwitch for each output before Start.
func New(pub Publisher, opts Options) *Bridge {
	if opts.StaleCommandMaxAge <= 0 {
		opts.StaleCommandMaxAge = 300 * time.Second
	}
	return &Bridge{
		pub:      pub,
		prefix:   opts.Prefix,
		maxAge:   opts.StaleCommandMaxAge,
		version:  opts.Version,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		entities: make(map[string]Entity),
	}
}

// RegisterLight wraps light as an MQTTLight and registers it for dispatch.
func (b *Bridge) RegisterLight(light *bloc9.DimmableLight, deviceType string, deviceID uint8, switchNr uint8, entityID string) *MQTTLight {
	topics := Topics{Prefix: b.prefix, Kind: KindLight, DeviceType: deviceType, DeviceID: deviceID, SwitchNr: switchNr, EntityID: entityID}
	entity := NewMQTTLight(light, topics, b.pub, b.version)
	b.register(topics.Set(), entity)
	return entity
}

// RegisterSwitch wraps sw as an MQTTSwitch and registers it for dispatch.
func (b *Bridge) RegisterSwitch(sw *bloc9.Switch, deviceType string, deviceID uint8, switchNr uint8, entityID string) *MQTTSwitch {
	topics := Topics{Prefix: b.prefix, Kind: KindSwitch, DeviceType: deviceType, DeviceID: deviceID, SwitchNr: switchNr, EntityID: entityID}
	entity := NewMQTTSwitch(sw, topics, b.pub, b.version)
	b.register(topics.Set(), entity)
	return entity
}

func (b *Bridge) register(setTopic string, entity Entity) {
	b.mu.Lock()
	b.entities[setTopic] = entity
	b.mu.Unlock()
}

// Start publishes every registered entity's discovery document and
// availability, then subscribes once to the command-topic wildcard.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.RLock()
	entities := make([]Entity, 0, len(b.entities))
	for _, e := range b.entities {
		entities = append(entities, e)
	}
	b.mu.RUnlock()

	for _, e := range entities {
		if err := e.PublishDiscovery(b.pub); err != nil {
			b.logError("discovery publish failed", err)
			return err
		}
		if err := e.PublishAvailability(b.pub); err != nil {
			b.logError("availability publish failed", err)
			return err
		}
	}

	return b.pub.Subscribe(SetWildcard(b.prefix), 1, b.handleMessage)
}

// handleMessage routes an inbound command-topic publish to its entity,
// applying the retained-command staleness gate from spec.md §8 invariant 6
// before any mutation reaches bloc9. A stale retained command produces no
// mutation and clears the retained message with a zero-length publish.
func (b *Bridge) handleMessage(topic string, payload []byte, retained bool) error {
	if retained && IsStaleRetained(payload, b.maxAge, time.Now()) {
		if b.logger != nil {
			b.logger.Warn("discarding stale retained command", "topic", topic)
		}
		if b.recorder != nil {
			b.recorder.CommandError(KindStaleRetainedCommand.String())
		}
		return b.pub.Publish(topic, nil, 1, true)
	}

	b.mu.RLock()
	entity, ok := b.entities[topic]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	if b.recorder != nil {
		b.recorder.CommandReceived(string(entity.Kind()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := entity.HandleCommand(ctx, payload)
	if err != nil && b.recorder != nil {
		kind := "unknown"
		var ke *KindError
		if errors.As(err, &ke) {
			kind = ke.Kind.String()
		}
		b.recorder.CommandError(kind)
	}
	return err
}

func (b *Bridge) logError(msg string, err error) {
	if b.logger == nil {
		return
	}
	b.logger.Error(msg, "error", err)
}
