// Package mqtt provides MQTT client connectivity for PawVision.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// PawVision uses MQTT to accept remote trigger events (button presses,
// motion sensors on other devices) and to broadcast playback state to
// home-automation systems. The broker decouples the daemon from whatever
// produces the events.
//
//	Remote sensors ↔ MQTT Broker ↔ PawVision daemon
//
// # Security Considerations
//
//   - TLS is required for deployments outside the home LAN (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (far beyond what a pet TV needs)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all trigger events
//	err = client.Subscribe(mqtt.Topics{}.AllEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish player state (retained so new subscribers see current state)
//	client.Publish(mqtt.Topics{}.PlayerState(), payload, 1, true)
package mqtt
