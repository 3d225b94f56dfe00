package canbus

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// SocketCAN constants. golang.org/x/sys/unix exposes AF_CAN/SOCK_RAW/
// CAN_RAW on linux; the frame layout below is the kernel's struct can_frame
// (16 bytes: 4-byte id, 1-byte dlc, 3 bytes padding, 8 bytes data).
const (
	canFrameSize  = 16
	canEffFlag    = 0x80000000 // extended frame format
	canRtrFlag    = 0x40000000 // remote transmission request
	canErrFlag    = 0x20000000 // error frame
	canEffMask    = 0x1FFFFFFF
	canSffMask    = 0x000007FF
	socketReadBuf = canFrameSize
)

const (
	callbackQueueSize   = 128
	callbackWorkerCount = 4
	defaultWriteTimeout = 2 * time.Second
)

// SocketCANConn is a Conn backed by a raw AF_CAN/SOCK_RAW socket bound to a
// named Linux network interface (e.g. "can0"). Reads run on a dedicated
// goroutine and are handed off to a bounded pool of callback workers so
// that a slow or panicking OnFrame callback cannot stall reception.
type SocketCANConn struct {
	iface    string
	readOnly bool
	fd       int

	connMu    sync.RWMutex
	connected bool

	onFrame   OnFrame
	callbackMu sync.RWMutex

	callbackQueue chan Frame
	done          chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once

	stats  Stats
	logger Logger
	loggerMu sync.RWMutex
}

var _ Conn = (*SocketCANConn)(nil)

// Open creates and binds a raw CAN socket on iface. When readOnly is true,
// Send always returns ErrReadOnly without touching the socket — used for
// diagnostic tooling that must never write to the bus.
func Open(iface string, readOnly bool) (*SocketCANConn, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("%w: socket: %v", ErrConnectionFailed, err)
	}

	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: interface %q: %v", ErrConnectionFailed, iface, err)
	}

	addr := &unix.SockaddrCAN{Ifindex: ifi.Index}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: bind %q: %v", ErrConnectionFailed, iface, err)
	}

	c := &SocketCANConn{
		iface:         iface,
		readOnly:      readOnly,
		fd:            fd,
		callbackQueue: make(chan Frame, callbackQueueSize),
		done:          make(chan struct{}),
	}
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()
	c.stats.Connected.Store(true)

	for i := 0; i < callbackWorkerCount; i++ {
		c.wg.Add(1)
		go c.callbackWorker()
	}
	c.wg.Add(1)
	go c.receiveLoop()

	return c, nil
}

// SetLogger installs an optional logger used for warnings about malformed
// frames, dropped callbacks and I/O errors.
func (c *SocketCANConn) SetLogger(l Logger) {
	c.loggerMu.Lock()
	c.logger = l
	c.loggerMu.Unlock()
}

func (c *SocketCANConn) SetOnFrame(cb OnFrame) {
	c.callbackMu.Lock()
	c.onFrame = cb
	c.callbackMu.Unlock()
}

func (c *SocketCANConn) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

func (c *SocketCANConn) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

func (c *SocketCANConn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Send transmits f as a single SocketCAN frame. Extended frames (the only
// kind Scheiber devices answer to) set CAN_EFF_FLAG in the wire identifier.
func (c *SocketCANConn) Send(f Frame) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := f.Validate(); err != nil {
		return err
	}

	buf := make([]byte, canFrameSize)
	id := f.ArbID
	if f.Extended {
		id |= canEffFlag
	}
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = byte(len(f.Data))
	copy(buf[8:], f.Data)

	if _, err := unix.Write(c.fd, buf); err != nil {
		c.stats.ErrorsTotal.Add(1)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	c.stats.FramesTx.Add(1)
	c.stats.touch()
	return nil
}

func (c *SocketCANConn) receiveLoop() {
	defer c.wg.Done()
	buf := make([]byte, socketReadBuf)
	for {
		if c.isClosed() {
			return
		}
		n, err := unix.Read(c.fd, buf)
		if err != nil {
			if c.isClosed() {
				return
			}
			c.handleReadError(err)
			continue
		}
		if n < canFrameSize {
			c.stats.ErrorsTotal.Add(1)
			c.logWarn("short read from CAN socket", "interface", c.iface, "bytes", n)
			continue
		}
		c.handleRawFrame(buf[:n])
	}
}

func (c *SocketCANConn) handleReadError(err error) {
	c.stats.ErrorsTotal.Add(1)
	c.logError("CAN socket read failed", err)
	time.Sleep(50 * time.Millisecond)
}

func (c *SocketCANConn) handleRawFrame(buf []byte) {
	frame, ok := decodeRawFrame(buf)
	if !ok {
		c.stats.ErrorsTotal.Add(1)
		c.logWarn("dropping error/remote CAN frame", "raw_id", binary.LittleEndian.Uint32(buf[0:4]))
		return
	}

	c.stats.FramesRx.Add(1)
	c.stats.touch()

	select {
	case c.callbackQueue <- frame:
	default:
		c.stats.Dropped.Add(1)
		c.logWarn("callback queue full, dropping frame", "arb_id", fmt.Sprintf("%#x", frame.ArbID))
	}
}

// decodeRawFrame parses a 16-byte struct can_frame buffer into a Frame. The
// second return value is false for error frames and remote-transmission
// requests, neither of which carries state this bridge acts on.
func decodeRawFrame(buf []byte) (Frame, bool) {
	id := binary.LittleEndian.Uint32(buf[0:4])
	if id&canErrFlag != 0 || id&canRtrFlag != 0 {
		return Frame{}, false
	}
	extended := id&canEffFlag != 0
	arbID := id & canSffMask
	if extended {
		arbID = id & canEffMask
	}
	dlc := int(buf[4])
	if dlc > MaxDataLength {
		dlc = MaxDataLength
	}
	data := make([]byte, dlc)
	copy(data, buf[8:8+dlc])
	return Frame{ArbID: arbID, Data: data, Extended: extended}, true
}

func (c *SocketCANConn) callbackWorker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case f := <-c.callbackQueue:
			c.invokeCallback(f)
		}
	}
}

func (c *SocketCANConn) invokeCallback(f Frame) {
	c.callbackMu.RLock()
	cb := c.onFrame
	c.callbackMu.RUnlock()
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logError("panic in CAN frame callback", fmt.Errorf("%v", r))
		}
	}()
	cb(f)
}

func (c *SocketCANConn) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		close(c.done)
		c.connMu.Lock()
		c.connected = false
		c.connMu.Unlock()
		c.stats.Connected.Store(false)
		closeErr = unix.Close(c.fd)
		c.wg.Wait()
	})
	return closeErr
}

func (c *SocketCANConn) logWarn(msg string, args ...any) {
	c.loggerMu.RLock()
	l := c.logger
	c.loggerMu.RUnlock()
	if l != nil {
		l.Warn(msg, args...)
	}
}

func (c *SocketCANConn) logError(msg string, err error) {
	c.loggerMu.RLock()
	l := c.logger
	c.loggerMu.RUnlock()
	if l != nil {
		l.Error(msg, "error", err)
	}
}
