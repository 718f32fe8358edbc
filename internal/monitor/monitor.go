// Package monitor controls the TV's display power.
//
// Two backends exist: a GPIO relay driven through periph.io, and the
// Raspberry Pi's vcgencmd tool. In dev mode switching is logged only.
// Monitor control is best-effort: failures are logged and never surfaced
// to playback, and a failed switch leaves the session untouched.
package monitor

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// switchTimeout bounds one display power command.
const switchTimeout = 3 * time.Second

// Logger defines the logging interface used by monitor backends.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config selects and parameterizes the display backend.
type Config struct {
	// Mode is "relay", "vcgencmd" or "dev".
	Mode string

	// RelayPin is the GPIO pin name driving the relay (relay mode).
	RelayPin string

	// RelayActiveLow inverts the relay drive level.
	RelayActiveLow bool
}

// Control switches the display on and off. All methods are safe for
// concurrent use and never return errors; faults are logged.
type Control struct {
	logger Logger
	apply  func(ctx context.Context, on bool) error

	mu sync.Mutex
	on bool
}

// New builds a Control for the configured backend.
//
// Relay mode fails fast when the pin cannot be found; vcgencmd and dev
// modes never fail to construct.
func New(cfg Config, logger Logger) (*Control, error) {
	c := &Control{logger: logger}

	switch cfg.Mode {
	case "relay":
		pin := gpioreg.ByName(cfg.RelayPin)
		if pin == nil {
			return nil, fmt.Errorf("monitor: relay pin %q not found", cfg.RelayPin)
		}
		c.apply = relaySwitch(pin, cfg.RelayActiveLow)
	case "vcgencmd":
		c.apply = vcgencmdSwitch(runCommand)
	case "dev":
		c.apply = func(context.Context, bool) error { return nil }
	default:
		return nil, fmt.Errorf("monitor: unknown mode %q", cfg.Mode)
	}

	return c, nil
}

// On switches the display on.
func (c *Control) On(ctx context.Context) { c.set(ctx, true) }

// Off switches the display off.
func (c *Control) Off(ctx context.Context) { c.set(ctx, false) }

// IsOn reports the last commanded state.
func (c *Control) IsOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}

func (c *Control) set(ctx context.Context, on bool) {
	ctx, cancel := context.WithTimeout(ctx, switchTimeout)
	defer cancel()

	if err := c.apply(ctx, on); err != nil {
		c.logger.Warn("display power switch failed", "on", on, "error", err)
		return
	}

	c.mu.Lock()
	c.on = on
	c.mu.Unlock()
	c.logger.Debug("display power switched", "on", on)
}

// relaySwitch drives a GPIO relay. activeLow relays energize on a low
// level.
func relaySwitch(pin gpio.PinIO, activeLow bool) func(context.Context, bool) error {
	return func(_ context.Context, on bool) error {
		level := gpio.Level(on)
		if activeLow {
			level = !level
		}
		return pin.Out(level)
	}
}

// vcgencmdSwitch shells out to the Raspberry Pi firmware tool.
func vcgencmdSwitch(run func(ctx context.Context, name string, args ...string) error) func(context.Context, bool) error {
	return func(ctx context.Context, on bool) error {
		arg := "0"
		if on {
			arg = "1"
		}
		return run(ctx, "vcgencmd", "display_power", arg)
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
