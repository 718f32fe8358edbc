package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pawvision/core/internal/infrastructure/mqtt"
	"github.com/pawvision/core/internal/player"
)

// Broker is the subset of the MQTT client the bridge uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// MQTTBridge connects remote inputs and the player state to the broker.
//
// Inbound, it feeds pawvision/event/button and pawvision/event/motion
// into the same button and motion adapters the GPIO pins use, so remote
// presses obey the same policy as physical ones. Outbound, it mirrors
// every playback transition to the retained player state topic.
type MQTTBridge struct {
	broker Broker
	button *Button
	motion *Motion
	logger Logger
	qos    byte
}

// NewMQTTBridge creates the bridge. Call Start to subscribe.
func NewMQTTBridge(broker Broker, button *Button, motion *Motion, qos byte, logger Logger) *MQTTBridge {
	return &MQTTBridge{
		broker: broker,
		button: button,
		motion: motion,
		logger: logger,
		qos:    qos,
	}
}

// Start subscribes to the inbound event topics.
func (b *MQTTBridge) Start() error {
	topics := mqtt.Topics{}
	if err := b.broker.Subscribe(topics.EventButton(), b.qos, b.handleButton); err != nil {
		return fmt.Errorf("subscribing to button events: %w", err)
	}
	if err := b.broker.Subscribe(topics.EventMotion(), b.qos, b.handleMotion); err != nil {
		return fmt.Errorf("subscribing to motion events: %w", err)
	}
	b.logger.Info("mqtt event bridge started")
	return nil
}

// handleButton treats any payload as one press.
func (b *MQTTBridge) handleButton(_ string, _ []byte) error {
	b.logger.Debug("remote button press received")
	b.button.HandlePress(context.Background())
	return nil
}

// handleMotion routes a motion transition payload ("detected" or "lost").
func (b *MQTTBridge) handleMotion(_ string, payload []byte) error {
	switch state := strings.ToLower(strings.TrimSpace(string(payload))); state {
	case "detected":
		b.motion.HandleMotion(context.Background())
	case "lost":
		b.motion.HandleMotionLost(context.Background())
	default:
		return fmt.Errorf("unknown motion state %q", state)
	}
	return nil
}

// PublishState mirrors a playback transition to the retained state topic.
// Wire this as (part of) the orchestrator's state listener.
func (b *MQTTBridge) PublishState(ev player.StateEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("encoding player state", "error", err)
		return
	}
	if err := b.broker.Publish(mqtt.Topics{}.PlayerState(), payload, b.qos, true); err != nil {
		b.logger.Warn("publishing player state", "error", err)
	}
}
