// Package mqtt provides the broker session for netfield-connect.
//
// A Session owns exactly one TLS-secured MQTT connection for one run:
//   - Connect with short-lived credentials over raw TLS or WebSocket over TLS
//   - Publish one retained downlink message
//   - Subscribe to one uplink filter, delivering messages to a Handler
//   - Listen until a duration elapses or the caller's context is cancelled
//   - Disconnect gracefully (idempotent)
//
// There is no automatic reconnect. A failed connect leaves the session in
// StateFailed and it cannot be reused; create a new Session instead.
//
// # State Machine
//
//	Idle -> Connecting -> Connected -> Publishing  -> Connected
//	                                -> Subscribing -> Connected
//	                                -> Listening   -> Disconnecting -> Closed
//	Idle/Connecting -> Failed          (connect error)
//	Connected/...   -> Failed          (connection lost)
//
// # Topics
//
// Devices live under a base topic assigned by the directory service.
// Downlink messages go to "todevice/" + base + suffix; uplink messages are
// subscribed with base + filter, where "#" means every subtopic.
//
// # Usage
//
//	session, err := mqtt.NewSession(cfg.MQTT, logger)
//	if err != nil {
//	    return err
//	}
//	defer session.Disconnect()
//
//	err = session.Connect(ctx, mqtt.Endpoint{Host: host, Port: port, Transport: mqtt.TransportWebSocket},
//	    mqtt.Credentials{Username: user, Password: pass})
//
//	topics := mqtt.Topics{}
//	_ = session.Publish(topics.Downlink(base, "test"), []byte("Hello World!"))
//	_, err = session.Subscribe(topics.UplinkFilter(base, "#"), mqtt.HandlerFunc(
//	    func(msg mqtt.Message) error {
//	        log.Printf("%s: %s", msg.Topic, msg.Payload)
//	        return nil
//	    }))
//	err = session.Listen(ctx, time.Hour)
package mqtt
