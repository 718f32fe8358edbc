// Package api provides the HTTP REST API and WebSocket server for PawVision.
//
// It exposes playback control, video library management, playback settings,
// and viewing statistics to user interfaces (the web dashboard, mobile apps,
// home-automation integrations).
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pawvision/core/internal/infrastructure/config"
	"github.com/pawvision/core/internal/infrastructure/logging"
	"github.com/pawvision/core/internal/library"
	"github.com/pawvision/core/internal/player"
	"github.com/pawvision/core/internal/settings"
	"github.com/pawvision/core/internal/stats"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Playback is the orchestrator surface the API needs.
type Playback interface {
	RequestPlay(ctx context.Context, trigger player.Trigger) error
	RequestStop(ctx context.Context, reason player.EndReason) bool
	Status() player.Status
	Gate() *player.Gate
}

// VideoLibrary is the library surface the API needs.
type VideoLibrary interface {
	List(ctx context.Context) ([]library.Video, error)
	UpdateMetadata(ctx context.Context, path string, update library.MetadataUpdate) (*library.Video, error)
	Delete(ctx context.Context, path string) error
	AddYouTube(ctx context.Context, req library.AddYouTubeRequest) (*library.Video, error)
	RefreshStreams(ctx context.Context) (int, error)
}

// Statistics is the stats recorder surface the API needs.
type Statistics interface {
	Summary(ctx context.Context) (*stats.Summary, error)
	Hourly(ctx context.Context) ([24]int, error)
	Clear(ctx context.Context) error
	RecordAPICall(ctx context.Context, action string)
}

// SettingsStore is the mutable playback settings surface the API needs.
type SettingsStore interface {
	Snapshot() config.PlaybackConfig
	Update(patch settings.Patch) (config.PlaybackConfig, error)
}

// SchedulePreview reports the next scheduled play, if any.
type SchedulePreview interface {
	NextPlay() (time.Time, bool)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Playback Playback
	Library  VideoLibrary
	Stats    Statistics // optional; statistics endpoints 404 without it
	Settings SettingsStore
	Schedule SchedulePreview // optional; status omits next_scheduled_play without it
	Version  string
}

// Server is the HTTP API server for PawVision.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	playback Playback
	library  VideoLibrary
	stats    Statistics
	settings SettingsStore
	schedule SchedulePreview
	version  string
	server   *http.Server
	hub      *Hub
	tickets  *ticketStore
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Playback == nil {
		return nil, fmt.Errorf("playback orchestrator is required")
	}
	if deps.Library == nil {
		return nil, fmt.Errorf("video library is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings store is required")
	}

	return &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		logger:   deps.Logger,
		playback: deps.Playback,
		library:  deps.Library,
		stats:    deps.Stats,
		settings: deps.Settings,
		schedule: deps.Schedule,
		version:  deps.Version,
		tickets:  newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Start periodic ticket cleanup to prevent memory leaks
	go s.cleanTicketsLoop(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// BroadcastState pushes a playback state transition to all WebSocket
// clients subscribed to the player.state_changed channel. Safe to call
// before Start(); events are dropped until the hub exists.
func (s *Server) BroadcastState(ev player.StateEvent) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(channelPlayerState, ev)
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub, ticket cleanup)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
