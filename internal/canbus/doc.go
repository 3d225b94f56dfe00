// Package canbus provides a SocketCAN transport for extended-ID CAN frames.
//
// It exposes a small Conn interface so the rest of the bridge never depends
// on raw sockets directly: Send a frame, register a callback for inbound
// frames, read connection statistics. The concrete implementation,
// SocketCANConn, opens a raw AF_CAN/SOCK_RAW socket bound to a named
// interface (e.g. "can0") and drains it on a background goroutine, handing
// decoded frames to a bounded pool of callback workers so a slow or
// panicking subscriber cannot stall frame reception.
package canbus
