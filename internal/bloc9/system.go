package bloc9

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultPersistInterval is how often System rewrites the state file while
// running, absent an explicit SystemOptions.PersistInterval.
const DefaultPersistInterval = 30 * time.Second

// BusConn is the subset of canbus.Conn that System and its Outputs need:
// send a frame and register the inbound callback. Kept narrow so bloc9
// does not import canbus types directly.
type BusConn interface {
	Send(arbID uint32, data []byte, extended bool) error
	SetOnFrame(func(arbID uint32, data []byte, extended bool))
}

// busSender adapts a BusConn to the CanSender interface Outputs use,
// fixing Extended=true since every Scheiber frame this core sends is
// extended (spec.md §4.1: sending standard-ID silently fails).
type busSender struct {
	bus BusConn
}

func (b busSender) SendCommand(deviceID uint8, payload []byte) error {
	return b.bus.Send(commandArbID(deviceID), payload, true)
}

// commandArbID is the arbitration ID a command frame for deviceID is sent
// on — identical in shape to the echo pattern the device answers with.
func commandArbID(deviceID uint8) uint32 {
	return commandEchoBase | deviceByte(deviceID)
}

// NewCanSender wraps bus as a CanSender for use building Outputs.
func NewCanSender(bus BusConn) CanSender {
	return busSender{bus: bus}
}

// StatePersister abstracts the on-disk representation of device state so
// System does not hard-code a file path format; see persistence.go for the
// concrete JSON-file implementation used in production.
type StatePersister interface {
	Load() (map[string]map[string]PersistedOutputState, error)
	Save(map[string]map[string]PersistedOutputState) error
}

// SystemOptions configures a System.
type SystemOptions struct {
	PersistInterval time.Duration
	Persister       StatePersister
	Logger          Logger
}

// System owns the full set of Devices plus the shared CAN connection. It
// runs the dispatch loop (via BusConn.SetOnFrame) and a periodic
// persistence loop.
type System struct {
	devices   []*Device
	bus       BusConn
	persister StatePersister
	interval  time.Duration
	logger    Logger

	unknownMu   sync.Mutex
	unknownSeen map[uint32]bool

	stopOnce sync.Once
	done     chan struct{}
	group    *errgroup.Group
}

// NewSystem constructs a System over devices and bus. Call Start to begin
// dispatch and persistence.
func NewSystem(devices []*Device, bus BusConn, opts SystemOptions) *System {
	interval := opts.PersistInterval
	if interval <= 0 {
		interval = DefaultPersistInterval
	}
	return &System{
		devices:     devices,
		bus:         bus,
		persister:   opts.Persister,
		interval:    interval,
		logger:      opts.Logger,
		unknownSeen: make(map[uint32]bool),
		done:        make(chan struct{}),
	}
}

// Start loads persisted state (if a persister is configured), installs the
// dispatch callback, and starts the periodic persistence loop.
func (s *System) Start(ctx context.Context) error {
	if s.persister != nil {
		states, err := s.persister.Load()
		if err != nil {
			s.logWarn("failed to load persisted state", err)
		} else {
			for _, d := range s.devices {
				key := stateKey(d)
				if saved, ok := states[key]; ok {
					d.RestoreState(saved)
				}
			}
		}
	}

	s.bus.SetOnFrame(func(arbID uint32, data []byte, extended bool) {
		s.dispatch(arbID, data)
	})

	g, _ := errgroup.WithContext(ctx)
	s.group = g
	g.Go(func() error {
		s.persistLoop(ctx)
		return nil
	})

	return nil
}

func stateKey(d *Device) string {
	return d.Type() + "_" + strconv.Itoa(int(d.ID()))
}

// dispatch routes one inbound frame to the owning device. A frame not
// claimed by any device is logged once per distinct arbitration ID.
func (s *System) dispatch(arbID uint32, data []byte) {
	for _, d := range s.devices {
		if d.Route(arbID, data) != RouteUnmatched {
			return
		}
	}
	s.logUnknown(arbID)
}

func (s *System) logUnknown(arbID uint32) {
	s.unknownMu.Lock()
	seen := s.unknownSeen[arbID]
	s.unknownSeen[arbID] = true
	s.unknownMu.Unlock()

	if seen {
		return
	}
	if s.logger != nil {
		s.logger.Info("unknown arbitration id", "arb_id", arbID)
	}
}

func (s *System) persistLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.saveState()
			return
		case <-s.done:
			s.saveState()
			return
		case <-ticker.C:
			s.saveState()
		}
	}
}

func (s *System) saveState() {
	if s.persister == nil {
		return
	}
	out := make(map[string]map[string]PersistedOutputState, len(s.devices))
	for _, d := range s.devices {
		out[stateKey(d)] = d.StateSnapshot()
	}
	if err := s.persister.Save(out); err != nil {
		s.logWarn("failed to persist state", err)
	}
}

func (s *System) logWarn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, "error", err)
	}
}

// Stop halts the persistence loop, performs one final save, and waits for
// it to finish. Idempotent.
func (s *System) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.group != nil {
			_ = s.group.Wait()
		}
	})
}
