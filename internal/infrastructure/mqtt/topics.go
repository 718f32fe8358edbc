package mqtt

import "fmt"

// Topic prefixes for the PawVision MQTT surface.
//
// All topics use the flat scheme: pawvision/{category}/{name}. Inbound
// event topics let companion devices (a Zigbee button, an external PIR)
// drive playback; state topics mirror the daemon's state for dashboards.
const (
	// TopicPrefix is the base for all PawVision topics.
	TopicPrefix = "pawvision"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "pawvision/system"
)

// Topics provides builders for PawVision MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// EventButton returns the topic remote button presses arrive on.
// Any payload counts as one press.
//
// Example: pawvision/event/button
func (Topics) EventButton() string {
	return fmt.Sprintf("%s/event/button", TopicPrefix)
}

// EventMotion returns the topic motion transitions arrive on.
// Payloads are "detected" or "lost".
//
// Example: pawvision/event/motion
func (Topics) EventMotion() string {
	return fmt.Sprintf("%s/event/motion", TopicPrefix)
}

// PlayerState returns the topic the player state is published on.
// Published retained so late subscribers see the current state.
//
// Example: pawvision/state/player
func (Topics) PlayerState() string {
	return fmt.Sprintf("%s/state/player", TopicPrefix)
}

// SystemStatus returns the daemon online/offline status topic.
// Also used for the Last Will message on ungraceful disconnect.
//
// Example: pawvision/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllEvents returns a pattern matching all inbound event topics.
//
// Pattern: pawvision/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefix)
}
