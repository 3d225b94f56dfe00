// Package bloc9 implements the device-and-transition engine for Scheiber
// Bloc9 six-output lighting controllers: wire protocol encode/decode, the
// Switch and DimmableLight output models, cancellable brightness
// transitions, frame routing, and periodic state persistence.
//
// The package never touches MQTT or CAN sockets directly; it reaches the
// bus through its own narrow BusConn and CanSender interfaces (adapted from
// canbus.Conn by the caller, without importing canbus) and exposes an
// observer interface so higher
// layers (internal/mqttbridge) can subscribe to state changes without the
// reverse dependency ever existing.
package bloc9
