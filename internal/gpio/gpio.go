// Package gpio reads the physical inputs: the play button and the PIR
// motion sensor. Both run a goroutine edge loop over periph.io pins and
// report through callbacks; when no pins are configured (dev mode) the
// package is not used at all.
package gpio

import (
	"fmt"
	"sync/atomic"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePoll bounds one WaitForEdge call so Close can stop an edge loop.
const edgePoll = 500 * time.Millisecond

// Logger defines the logging interface used by input watchers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Init loads the host's GPIO drivers. Call once before opening pins.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initializing gpio host: %w", err)
	}
	return nil
}

// openPin looks up and configures an input pin.
func openPin(name string, pull pgpio.Pull, edge pgpio.Edge) (pgpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	if err := pin.In(pull, edge); err != nil {
		return nil, fmt.Errorf("configuring pin %q: %w", name, err)
	}
	return pin, nil
}

// Button watches a pull-up input for falling edges and reports debounced
// presses.
type Button struct {
	pin      pgpio.PinIO
	debounce time.Duration
	onPress  func()
	logger   Logger
	closed   atomic.Bool
	done     chan struct{}
}

// NewButton opens the button pin and starts its edge loop. The pin is
// configured pull-up; a press pulls it to ground. Edges closer together
// than debounce are treated as switch bounce and dropped.
func NewButton(pinName string, debounce time.Duration, onPress func(), logger Logger) (*Button, error) {
	pin, err := openPin(pinName, pgpio.PullUp, pgpio.FallingEdge)
	if err != nil {
		return nil, err
	}

	b := &Button{
		pin:      pin,
		debounce: debounce,
		onPress:  onPress,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go b.watch()

	logger.Info("button watcher started", "pin", pinName, "debounce", debounce)
	return b, nil
}

func (b *Button) watch() {
	defer close(b.done)

	var lastPress time.Time
	for !b.closed.Load() {
		if !b.pin.WaitForEdge(edgePoll) {
			continue
		}
		now := time.Now()
		if now.Sub(lastPress) < b.debounce {
			continue
		}
		lastPress = now
		b.logger.Debug("button press", "pin", b.pin.Name())
		b.onPress()
	}
}

// Close stops the edge loop and releases the pin.
func (b *Button) Close() error {
	b.closed.Store(true)
	<-b.done
	return b.pin.Halt()
}

// MotionSensor watches a PIR input. The PIR output holds high while
// motion is present; a falling edge means the room went quiet.
type MotionSensor struct {
	pin          pgpio.PinIO
	onMotion     func()
	onMotionLost func()
	logger       Logger
	closed       atomic.Bool
	done         chan struct{}
}

// NewMotionSensor opens the PIR pin and starts its edge loop. Either
// callback may be nil.
func NewMotionSensor(pinName string, onMotion, onMotionLost func(), logger Logger) (*MotionSensor, error) {
	pin, err := openPin(pinName, pgpio.PullDown, pgpio.BothEdges)
	if err != nil {
		return nil, err
	}

	m := &MotionSensor{
		pin:          pin,
		onMotion:     onMotion,
		onMotionLost: onMotionLost,
		logger:       logger,
		done:         make(chan struct{}),
	}
	go m.watch()

	logger.Info("motion sensor watcher started", "pin", pinName)
	return m, nil
}

func (m *MotionSensor) watch() {
	defer close(m.done)

	for !m.closed.Load() {
		if !m.pin.WaitForEdge(edgePoll) {
			continue
		}
		if m.pin.Read() == pgpio.High {
			m.logger.Debug("motion detected", "pin", m.pin.Name())
			if m.onMotion != nil {
				m.onMotion()
			}
			continue
		}
		m.logger.Debug("motion lost", "pin", m.pin.Name())
		if m.onMotionLost != nil {
			m.onMotionLost()
		}
	}
}

// Close stops the edge loop and releases the pin.
func (m *MotionSensor) Close() error {
	m.closed.Store(true)
	<-m.done
	return m.pin.Halt()
}
