package mqtt

import "strings"

// DownlinkPrefix is the reserved prefix for messages sent to a device.
const DownlinkPrefix = "todevice/"

// WildcardAll is the multi-level filter matching every subtopic.
const WildcardAll = "#"

// Topics provides builders for device topic namespaces.
// Using these helpers keeps the downlink convention in one place.
//
//	topics := mqtt.Topics{}
//	topics.Downlink("sensors/room1/", "test")   // "todevice/sensors/room1/test"
//	topics.UplinkFilter("sensors/room1/", "#")  // "sensors/room1/#"
type Topics struct{}

// Downlink returns the publish topic for a message to the device.
// An empty base topic is legal and yields "todevice/" + suffix.
func (Topics) Downlink(baseTopic, suffix string) string {
	return DownlinkPrefix + baseTopic + suffix
}

// UplinkFilter returns the subscribe filter for messages from the device.
func (Topics) UplinkFilter(baseTopic, filter string) string {
	return baseTopic + filter
}

// AllUplink returns the filter matching every subtopic of the device.
func (t Topics) AllUplink(baseTopic string) string {
	return t.UplinkFilter(baseTopic, WildcardAll)
}

// validatePublishTopic rejects empty topics and topics with wildcards,
// which MQTT does not allow on publish.
func validatePublishTopic(topic string) error {
	if topic == "" || strings.ContainsAny(topic, "+#") {
		return ErrInvalidTopic
	}
	return nil
}

// validateFilter rejects empty filters and misplaced multi-level wildcards.
func validateFilter(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	if i := strings.Index(filter, WildcardAll); i >= 0 {
		if i != len(filter)-1 || (i > 0 && filter[i-1] != '/') {
			return ErrInvalidTopic
		}
	}
	return nil
}
