package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// outputBufferSize is the buffer size for capturing subprocess stdout/stderr.
const outputBufferSize = 4096

// defaultGracefulTimeout is how long Stop waits for the process to exit
// after SIGTERM before escalating to SIGKILL.
const defaultGracefulTimeout = 5 * time.Second

// Logger defines the logging interface used by process handles.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds the launch parameters for a subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// GracefulTimeout is how long Stop waits for graceful shutdown
	// before SIGKILL. Zero means the 5s default.
	GracefulTimeout time.Duration

	// Logger receives process lifecycle and output logging. Optional.
	Logger Logger
}

// Handle owns one spawned subprocess for its whole lifetime.
//
// Unlike a supervising manager, a Handle never restarts the process: the
// media player either runs until stopped or exits on its own, and the
// caller detects the latter by polling Alive. Exactly one live Handle may
// exist per playback session.
type Handle struct {
	name     string
	grace    time.Duration
	logger   Logger
	cmd      *exec.Cmd
	done     chan struct{}
	exitOnce sync.Once

	mu      sync.Mutex
	exited  bool
	exitErr error
}

// Start spawns the subprocess described by cfg and returns a Handle owning
// it. The process is placed in its own process group so Stop can signal
// the player together with any children it forks.
//
// Start is non-blocking: it returns as soon as the process is launched.
// ctx gates the launch only: once running, the process outlives any
// caller context (play requests arrive on short-lived HTTP request
// contexts) and is terminated solely through Stop.
func Start(ctx context.Context, cfg Config) (*Handle, error) {
	if cfg.Binary == "" {
		return nil, errors.New("process: binary is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cfg.Name, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	grace := cfg.GracefulTimeout
	if grace == 0 {
		grace = defaultGracefulTimeout
	}

	logger.Info("starting process",
		"name", cfg.Name,
		"binary", cfg.Binary,
		"args", cfg.Args,
	)

	cmd := exec.Command(cfg.Binary, cfg.Args...) //nolint:gosec // Binary path comes from validated configuration
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if cfg.Env != nil {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cfg.Name, err)
	}

	h := &Handle{
		name:   cfg.Name,
		grace:  grace,
		logger: logger,
		cmd:    cmd,
		done:   make(chan struct{}),
	}

	go h.captureOutput("stdout", stdout)
	go h.captureOutput("stderr", stderr)
	go h.reap()

	logger.Info("process started", "name", cfg.Name, "pid", cmd.Process.Pid)

	return h, nil
}

// reap waits for the process to exit and records the result.
func (h *Handle) reap() {
	err := h.cmd.Wait()

	h.mu.Lock()
	h.exited = true
	h.exitErr = err
	h.mu.Unlock()

	h.exitOnce.Do(func() { close(h.done) })

	if err != nil {
		h.logger.Debug("process exited", "name", h.name, "error", err)
	} else {
		h.logger.Debug("process exited", "name", h.name)
	}
}

// captureOutput reads from the given reader and logs each chunk.
func (h *Handle) captureOutput(stream string, r io.Reader) {
	buf := make([]byte, outputBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.logger.Debug("process output",
				"name", h.name,
				"stream", stream,
				"output", string(buf[:n]),
			)
		}
		if err != nil {
			return
		}
	}
}

// Alive reports whether the process is still running. It never blocks.
func (h *Handle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.exited
}

// ExitErr returns the error the process exited with, or nil if it exited
// cleanly or is still running.
func (h *Handle) ExitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// PID returns the process ID, or 0 if the process never started.
func (h *Handle) PID() int {
	if h.cmd != nil && h.cmd.Process != nil {
		return h.cmd.Process.Pid
	}
	return 0
}

// Done returns a channel closed when the process has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Stop terminates the subprocess.
//
// It sends SIGTERM to the process group, waits up to the configured grace
// period for a clean exit, then escalates to SIGKILL. Stop returns once
// the process has been reaped; it is safe to call on an already-exited
// process (a no-op).
func (h *Handle) Stop() error {
	if !h.Alive() {
		return nil
	}

	pid := h.PID()
	if pid == 0 {
		return nil
	}

	h.logger.Info("stopping process", "name", h.name, "pid", pid)

	// Negative PID signals the whole process group (created via Setpgid).
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			h.logger.Warn("failed to send SIGTERM to process group",
				"name", h.name, "error", err)
		}
	}

	select {
	case <-h.done:
		h.logger.Info("process stopped gracefully", "name", h.name)
		return nil
	case <-time.After(h.grace):
		h.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", h.name, "timeout", h.grace)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		if !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("killing process group %s: %w", h.name, err)
		}
	}

	<-h.done
	h.logger.Info("process killed", "name", h.name)

	return nil
}
