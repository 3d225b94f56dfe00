// Package mqtt provides MQTT client connectivity for the Scheiber bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// It is deliberately unaware of Home Assistant discovery or the Scheiber
// entity topic scheme — that logic lives in internal/mqttbridge, which is
// built on top of this transport layer.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe("homeassistant/scheiber/+/+/+/set", 1,
//	    func(topic string, payload []byte, retained bool) error {
//	        log.Printf("received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
