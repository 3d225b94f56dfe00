// Command scheiberbridge connects a Scheiber Bloc9 marine lighting system
// to Home Assistant over MQTT, translating Bloc9's SocketCAN wire protocol
// into HA-discoverable light and switch entities and back.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eburi/ha-addon-scheiber/internal/bloc9"
	"github.com/eburi/ha-addon-scheiber/internal/canbus"
	"github.com/eburi/ha-addon-scheiber/internal/infrastructure/config"
	"github.com/eburi/ha-addon-scheiber/internal/infrastructure/httpserver"
	"github.com/eburi/ha-addon-scheiber/internal/infrastructure/logging"
	"github.com/eburi/ha-addon-scheiber/internal/infrastructure/metrics"
	"github.com/eburi/ha-addon-scheiber/internal/infrastructure/mqtt"
	"github.com/eburi/ha-addon-scheiber/internal/mqttbridge"
	"github.com/prometheus/client_golang/prometheus"
)

// Version information, set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	fmt.Printf("scheiberbridge %s (%s) built %s\n", version, commit, date)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configPathEnv names the environment variable holding the config file
// path, defaulting to /etc/scheiberbridge/config.yaml.
const configPathEnv = "SCHEIBER_CONFIG"

func configPath() string {
	if p := os.Getenv(configPathEnv); p != "" {
		return p
	}
	return "/etc/scheiberbridge/config.yaml"
}

// canAdapter translates between canbus.Conn's Frame-based surface and the
// (arbID, data, extended) tuple bloc9.BusConn expects, so bloc9 never
// needs to import canbus types directly.
type canAdapter struct {
	conn *canbus.SocketCANConn
}

func (a canAdapter) Send(arbID uint32, data []byte, extended bool) error {
	return a.conn.Send(canbus.Frame{ArbID: arbID, Data: data, Extended: extended})
}

func (a canAdapter) SetOnFrame(cb func(arbID uint32, data []byte, extended bool)) {
	a.conn.SetOnFrame(func(f canbus.Frame) {
		cb(f.ArbID, f.Data, f.Extended)
	})
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Logging, version)
	logger.Info("starting scheiberbridge", "version", version, "commit", commit)

	conn, err := canbus.Open(cfg.CAN.Interface, cfg.CAN.ReadOnly)
	if err != nil {
		return fmt.Errorf("opening CAN interface %s: %w", cfg.CAN.Interface, err)
	}
	defer conn.Close()
	conn.SetLogger(logger)

	bus := canAdapter{conn: conn}
	sender := bloc9.NewCanSender(bus)

	devices, lights, switches, err := buildDevices(cfg.Devices, sender)
	if err != nil {
		return fmt.Errorf("building devices: %w", err)
	}

	persister := bloc9.NewFilePersister(cfg.State.Path)
	system := bloc9.NewSystem(devices, bus, bloc9.SystemOptions{
		PersistInterval: time.Duration(cfg.State.PersistIntervalSeconds) * time.Second,
		Persister:       persister,
		Logger:          logger,
	})
	if err := system.Start(ctx); err != nil {
		return fmt.Errorf("starting bloc9 system: %w", err)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return describeMQTTConnectError(err)
	}
	defer mqttClient.Close()
	mqttClient.SetLogger(logger)

	metricsRegistry := metrics.New(prometheus.DefaultRegisterer)
	metricsRegistry.BusConnected.Set(boolToFloat(conn.IsConnected()))

	bridge := mqttbridge.New(mqttClient, mqttbridge.Options{
		Prefix:   cfg.MQTT.TopicPrefix,
		Version:  version,
		Logger:   logger,
		Recorder: metricsRegistry,
	})
	for _, l := range lights {
		bridge.RegisterLight(l.light, l.deviceType, l.deviceID, l.switchNr, l.entityID)
	}
	for _, s := range switches {
		bridge.RegisterSwitch(s.sw, s.deviceType, s.deviceID, s.switchNr, s.entityID)
	}
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting mqtt bridge: %w", err)
	}

	httpSrv, err := httpserver.New(cfg.Bridge.HTTPAddress, logger, map[string]httpserver.HealthChecker{
		"can":  conn,
		"mqtt": mqttClient,
	})
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}
	if err := httpSrv.Start(ctx); err != nil {
		return fmt.Errorf("starting http server: %w", err)
	}
	defer httpSrv.Close()

	logger.Info("scheiberbridge running", "devices", len(devices), "http_address", cfg.Bridge.HTTPAddress)

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping")
	system.Stop()

	return nil
}

// describeMQTTConnectError distinguishes a fatal authentication rejection
// from any other connect failure, per spec.md §7's propagation policy:
// KindMqttAuthFailed is fatal at startup, everything else is a generic
// connection error an operator would diagnose by checking the broker.
func describeMQTTConnectError(err error) error {
	var ke *mqttbridge.KindError
	if errors.As(err, &ke) && ke.Kind == mqttbridge.KindMqttAuthFailed {
		return fmt.Errorf("mqtt authentication failed, check mqtt.username/mqtt.password: %w", err)
	}
	return fmt.Errorf("connecting to MQTT broker: %w", err)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

type registeredLight struct {
	light      *bloc9.DimmableLight
	deviceType string
	deviceID   uint8
	switchNr   uint8
	entityID   string
}

type registeredSwitch struct {
	sw         *bloc9.Switch
	deviceType string
	deviceID   uint8
	switchNr   uint8
	entityID   string
}

// buildDevices constructs one bloc9.Device per config.DeviceConfig entry,
// along with the flat lists of lights and switches the bridge needs to
// register.
func buildDevices(deviceCfgs []config.DeviceConfig, sender bloc9.CanSender) ([]*bloc9.Device, []registeredLight, []registeredSwitch, error) {
	var devices []*bloc9.Device
	var lights []registeredLight
	var switches []registeredSwitch

	for _, dc := range deviceCfgs {
		var outputs []bloc9.Output

		for slot, sc := range dc.Slots {
			switchNr, ok := config.SwitchNr(slot)
			if !ok {
				return nil, nil, nil, fmt.Errorf("device %d: invalid slot %q", dc.DeviceID, slot)
			}

			switch sc.Kind {
			case "light":
				light, err := bloc9.NewDimmableLight(dc.DeviceID, switchNr, sc.EntityID, sc.DisplayName, sender)
				if err != nil {
					return nil, nil, nil, fmt.Errorf("device %d slot %s: %w", dc.DeviceID, slot, err)
				}
				outputs = append(outputs, light)
				lights = append(lights, registeredLight{
					light: light, deviceType: dc.DeviceType, deviceID: dc.DeviceID,
					switchNr: switchNr, entityID: sc.EntityID,
				})
			case "switch":
				sw, err := bloc9.NewSwitch(dc.DeviceID, switchNr, sc.EntityID, sc.DisplayName, sender)
				if err != nil {
					return nil, nil, nil, fmt.Errorf("device %d slot %s: %w", dc.DeviceID, slot, err)
				}
				outputs = append(outputs, sw)
				switches = append(switches, registeredSwitch{
					sw: sw, deviceType: dc.DeviceType, deviceID: dc.DeviceID,
					switchNr: switchNr, entityID: sc.EntityID,
				})
			default:
				return nil, nil, nil, fmt.Errorf("device %d slot %s: unknown kind %q", dc.DeviceID, slot, sc.Kind)
			}
		}

		device, err := bloc9.NewBloc9(dc.DeviceID, outputs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("device %d: %w", dc.DeviceID, err)
		}
		devices = append(devices, device)
	}

	return devices, lights, switches, nil
}
