// Package mqttbridge connects bloc9 outputs to Home Assistant over MQTT:
// it builds discovery documents, derives per-entity topics, parses the HA
// JSON light command grammar, and enforces the retained-command staleness
// gate before a mutation reaches the CAN bus.
package mqttbridge
