// PawVision Core - playback orchestrator for an unattended pet TV.
//
// This is the main entry point that wires together all components:
// configuration, logging, database, video library, playback orchestrator,
// hardware inputs, MQTT, InfluxDB export, and the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pawvision/core/internal/api"
	"github.com/pawvision/core/internal/gpio"
	"github.com/pawvision/core/internal/infrastructure/config"
	"github.com/pawvision/core/internal/infrastructure/database"
	"github.com/pawvision/core/internal/infrastructure/influxdb"
	"github.com/pawvision/core/internal/infrastructure/logging"
	"github.com/pawvision/core/internal/infrastructure/mqtt"
	"github.com/pawvision/core/internal/library"
	"github.com/pawvision/core/internal/monitor"
	"github.com/pawvision/core/internal/player"
	"github.com/pawvision/core/internal/process"
	"github.com/pawvision/core/internal/settings"
	"github.com/pawvision/core/internal/stats"
	"github.com/pawvision/core/internal/trigger"

	// Register embedded schema migrations.
	_ "github.com/pawvision/core/migrations"
)

// Build information set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

// buttonDebounce is the minimum spacing between accepted GPIO edges.
// Paw presses are slow; anything faster is switch bounce.
const buttonDebounce = 500 * time.Millisecond

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pawvision: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("PawVision Core starting",
		"version", version,
		"commit", commit,
		"built", date,
		"config", configPath,
	)

	// Open database and apply migrations
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Initialise GPIO drivers once, before anything opens a pin
	if needsGPIO(cfg.Hardware) {
		if err := gpio.Init(); err != nil {
			return fmt.Errorf("initialising gpio: %w", err)
		}
	}

	// Video library: catalogue repository, duration prober, YouTube resolver
	repo := library.NewSQLiteRepository(db.DB)
	prober := library.NewProber(log)
	youtube := library.NewYouTube(cfg.Library.YouTube.DownloadDir, cfg.Library.YouTube.PreferredQuality, log)
	lib := library.NewManager(library.ManagerConfig{
		Directories:      cfg.Library.Directories,
		Extensions:       cfg.Library.Extensions,
		PreferredQuality: cfg.Library.YouTube.PreferredQuality,
	}, repo, prober, youtube, log)

	// Startup scan is best effort: a missing media directory should not
	// keep the daemon from serving what is already catalogued.
	if res, syncErr := lib.Sync(ctx); syncErr != nil {
		log.Warn("library scan failed", "error", syncErr)
	} else {
		log.Info("library scanned",
			"added", res.Added,
			"updated", res.Updated,
			"removed", res.Removed,
		)
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Statistics recorder writes to SQLite and mirrors finished sessions
	// to InfluxDB when export is enabled.
	var exporter stats.SessionExporter
	if influxClient != nil {
		exporter = influxClient
	}
	recorder := stats.NewRecorder(db.DB, exporter, log)

	// Display power control
	display, err := monitor.New(monitor.Config{
		Mode:           cfg.Hardware.Monitor.Mode,
		RelayPin:       cfg.Hardware.Monitor.RelayPin,
		RelayActiveLow: cfg.Hardware.Monitor.RelayActiveLow,
	}, log)
	if err != nil {
		return fmt.Errorf("initialising display control: %w", err)
	}

	// Runtime-adjustable settings, persisted back to the config file
	store := settings.NewStore(cfg, configPath, log)

	// Playback orchestrator
	orchestrator := player.New(player.Config{
		Library:  &libraryAdapter{lib: lib},
		Stats:    recorder,
		Monitor:  display,
		Settings: store,
		Spawn:    mpvSpawner(cfg.Player, log),
		Logger:   log,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		orchestrator.Shutdown(shutdownCtx)
	}()

	// Trigger adapters shared by GPIO and MQTT inputs
	button := trigger.NewButton(orchestrator, store, recorder, log)
	motion := trigger.NewMotion(orchestrator, log)
	scheduler := trigger.NewScheduler(orchestrator, store, log)
	go scheduler.Run(ctx)

	// Connect to MQTT (optional)
	var mqttClient *mqtt.Client
	var bridge *trigger.MQTTBridge
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("closing MQTT connection")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT connected", "broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port))
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT connection lost", "error", err)
		})

		bridge = trigger.NewMQTTBridge(mqttClient, button, motion, byte(cfg.MQTT.QoS), log)
		if err := bridge.Start(); err != nil {
			return fmt.Errorf("starting MQTT event bridge: %w", err)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// HTTP API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Playback: orchestrator,
		Library:  lib,
		Stats:    recorder,
		Settings: store,
		Schedule: scheduler,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Every playback transition fans out to WebSocket clients, the
	// retained MQTT state topic, and the InfluxDB state measurement.
	orchestrator.SetStateListener(func(ev player.StateEvent) {
		apiServer.BroadcastState(ev)
		if bridge != nil {
			bridge.PublishState(ev)
		}
		if influxClient != nil {
			influxClient.WritePlayerState(ev)
		}
	})

	// Physical inputs
	if cfg.Hardware.ButtonPin != "" {
		btn, btnErr := gpio.NewButton(cfg.Hardware.ButtonPin, buttonDebounce, func() {
			button.HandlePress(context.Background())
		}, log)
		if btnErr != nil {
			return fmt.Errorf("opening button pin: %w", btnErr)
		}
		defer func() {
			if closeErr := btn.Close(); closeErr != nil {
				log.Error("error closing button pin", "error", closeErr)
			}
		}()
	} else {
		log.Info("physical button disabled")
	}

	if cfg.Hardware.MotionEnabled && cfg.Hardware.MotionPin != "" {
		pir, pirErr := gpio.NewMotionSensor(cfg.Hardware.MotionPin,
			func() { motion.HandleMotion(context.Background()) },
			func() { motion.HandleMotionLost(context.Background()) },
			log)
		if pirErr != nil {
			return fmt.Errorf("opening motion sensor pin: %w", pirErr)
		}
		defer func() {
			if closeErr := pir.Close(); closeErr != nil {
				log.Error("error closing motion sensor pin", "error", closeErr)
			}
		}()
	} else {
		log.Info("motion sensor disabled")
	}

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Motion sensor / button pins
	// 2. API server
	// 3. MQTT (if enabled)
	// 4. Orchestrator (stops any running playback)
	// 5. InfluxDB (if enabled)
	// 6. Database

	log.Info("PawVision Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PAWVISION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PAWVISION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// needsGPIO reports whether any configured hardware requires pin access.
func needsGPIO(cfg config.HardwareConfig) bool {
	if cfg.ButtonPin != "" {
		return true
	}
	if cfg.MotionEnabled && cfg.MotionPin != "" {
		return true
	}
	return cfg.Monitor.Mode == "relay"
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mpvSpawner builds the orchestrator's spawn function from player config.
//
// Each playback session launches one mpv process. The orchestrator owns
// the returned handle and stops or reaps it; mpv never restarts itself.
func mpvSpawner(cfg config.PlayerConfig, log *logging.Logger) player.SpawnFunc {
	return func(ctx context.Context, spec player.SpawnSpec) (player.Handle, error) {
		args := []string{
			"--fullscreen",
			"--no-terminal",
			"--really-quiet",
			fmt.Sprintf("--start=%.3f", spec.StartOffset),
			fmt.Sprintf("--volume=%d", spec.Volume),
		}
		args = append(args, cfg.ExtraArgs...)
		args = append(args, spec.Path)

		h, err := process.Start(ctx, process.Config{
			Name:            "mpv",
			Binary:          cfg.Binary,
			Args:            args,
			GracefulTimeout: time.Duration(cfg.GracefulTimeout) * time.Second,
			Logger:          log,
		})
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}

// libraryAdapter narrows the library manager to the orchestrator's view.
// Catalogue entries are keyed by path; the orchestrator treats the path
// as an opaque ID and hands it back for playback resolution.
type libraryAdapter struct {
	lib *library.Manager
}

func (a *libraryAdapter) Playable(ctx context.Context) ([]player.Item, error) {
	videos, err := a.lib.Playable(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]player.Item, 0, len(videos))
	for i := range videos {
		v := &videos[i]
		items = append(items, player.Item{
			ID:           v.Path,
			Title:        v.DisplayTitle(),
			StartSeconds: v.CustomStart,
			Seconds:      v.EffectiveDuration(),
		})
	}
	return items, nil
}

func (a *libraryAdapter) ResolvePlaybackPath(ctx context.Context, id string) (string, error) {
	return a.lib.ResolvePlaybackPath(ctx, id)
}
