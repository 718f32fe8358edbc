package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pawvision/core/internal/timeutil"
)

// Config is the root configuration structure for PawVision.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Library   LibraryConfig   `yaml:"library"`
	Player    PlayerConfig    `yaml:"player"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Playback  PlaybackConfig  `yaml:"playback"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for the viewing
// session time series. Optional; statistics stay in SQLite regardless.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
	AdminPassword  string `yaml:"admin_password"`
}

// RateLimitConfig contains rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// LibraryConfig contains video library settings.
type LibraryConfig struct {
	Directories []string      `yaml:"directories"`
	Extensions  []string      `yaml:"extensions"`
	YouTube     YouTubeConfig `yaml:"youtube"`
}

// YouTubeConfig contains YouTube source settings.
type YouTubeConfig struct {
	PreferredQuality string `yaml:"preferred_quality"`
	DownloadDir      string `yaml:"download_dir"`
}

// PlayerConfig contains media player subprocess settings.
type PlayerConfig struct {
	Binary          string   `yaml:"binary"`
	ExtraArgs       []string `yaml:"extra_args"`
	GracefulTimeout int      `yaml:"graceful_timeout"` // seconds
}

// HardwareConfig contains GPIO and display hardware settings.
// Pin names follow periph.io conventions (e.g. "GPIO17").
type HardwareConfig struct {
	ButtonPin     string        `yaml:"button_pin"`
	MotionPin     string        `yaml:"motion_pin"` // empty disables the sensor
	MotionEnabled bool          `yaml:"motion_enabled"`
	Monitor       MonitorConfig `yaml:"monitor"`
}

// MonitorConfig contains display power control settings.
type MonitorConfig struct {
	// Mode selects the switching mechanism: "relay", "vcgencmd", or "dev".
	Mode           string `yaml:"mode"`
	RelayPin       string `yaml:"relay_pin"`
	RelayActiveLow bool   `yaml:"relay_active_low"`
}

// PlaybackConfig is the runtime-adjustable behaviour section. Unlike the
// sections above it can be updated through the API; Save persists the
// whole file so changes survive restarts.
type PlaybackConfig struct {
	MaxDurationMinutes int `yaml:"max_duration_minutes" json:"max_duration_minutes"`
	CooldownMinutes    int `yaml:"cooldown_minutes" json:"cooldown_minutes"`
	Volume             int `yaml:"volume" json:"volume"`

	NightModeEnabled bool   `yaml:"night_mode_enabled" json:"night_mode_enabled"`
	NightModeStart   string `yaml:"night_mode_start" json:"night_mode_start"`
	NightModeEnd     string `yaml:"night_mode_end" json:"night_mode_end"`

	ButtonEnabled         bool   `yaml:"button_enabled" json:"button_enabled"`
	ButtonDisableStart    string `yaml:"button_disable_start" json:"button_disable_start"` // empty = no disable window
	ButtonDisableEnd      string `yaml:"button_disable_end" json:"button_disable_end"`
	SecondPressStops      bool   `yaml:"second_press_stops" json:"second_press_stops"`
	ButtonCooldownSeconds int    `yaml:"button_cooldown_seconds" json:"button_cooldown_seconds"`

	PlaySchedule []string `yaml:"play_schedule" json:"play_schedule"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PAWVISION_SECTION_KEY
// For example: PAWVISION_DATABASE_PATH, PAWVISION_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration back to a YAML file. Used to persist
// playback settings changed through the API.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// Write-then-rename so a crash mid-write cannot truncate the config.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing config file: %w", err)
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/pawvision.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "pawvision",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 5000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 100,
			},
		},
		Library: LibraryConfig{
			Directories: []string{"/home/pi/videos", "/media/usb"},
			YouTube: YouTubeConfig{
				PreferredQuality: "720p",
				DownloadDir:      "./data/youtube",
			},
		},
		Player: PlayerConfig{
			Binary:          "/usr/bin/mpv",
			GracefulTimeout: 5,
		},
		Hardware: HardwareConfig{
			ButtonPin: "GPIO17",
			Monitor: MonitorConfig{
				Mode: "vcgencmd",
			},
		},
		Playback: PlaybackConfig{
			MaxDurationMinutes:    30,
			CooldownMinutes:       5,
			Volume:                50,
			NightModeEnabled:      true,
			NightModeStart:        "22:00",
			NightModeEnd:          "06:00",
			ButtonEnabled:         true,
			SecondPressStops:      true,
			ButtonCooldownSeconds: 60,
			PlaySchedule:          []string{},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PAWVISION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("PAWVISION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("PAWVISION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PAWVISION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PAWVISION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("PAWVISION_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("PAWVISION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security (always override in production)
	if v := os.Getenv("PAWVISION_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("PAWVISION_ADMIN_PASSWORD"); v != "" {
		cfg.Security.JWT.AdminPassword = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// The daemon controls a device in someone's home; a forged token
	// means remote control of their display, so the secret is mandatory.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set PAWVISION_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(c.Library.Directories) == 0 {
		errs = append(errs, "library.directories must list at least one directory")
	}

	if c.Player.Binary == "" {
		errs = append(errs, "player.binary is required")
	}

	switch c.Hardware.Monitor.Mode {
	case "relay":
		if c.Hardware.Monitor.RelayPin == "" {
			errs = append(errs, "hardware.monitor.relay_pin is required in relay mode")
		}
	case "vcgencmd", "dev":
	default:
		errs = append(errs, "hardware.monitor.mode must be relay, vcgencmd, or dev")
	}
	if c.Hardware.MotionEnabled && c.Hardware.MotionPin == "" {
		errs = append(errs, "hardware.motion_pin is required when the motion sensor is enabled")
	}
	if c.Hardware.MotionPin != "" && c.Hardware.MotionPin == c.Hardware.ButtonPin {
		errs = append(errs, "hardware.motion_pin cannot be the same as hardware.button_pin")
	}

	errs = append(errs, c.Playback.validate()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validate checks the playback section. Shared by full-config validation
// and by API settings updates, which patch only this section.
func (p *PlaybackConfig) validate() []string {
	var errs []string

	if p.Volume < 0 || p.Volume > 100 {
		errs = append(errs, "playback.volume must be between 0 and 100")
	}
	if p.MaxDurationMinutes <= 0 {
		errs = append(errs, "playback.max_duration_minutes must be positive")
	}
	if p.CooldownMinutes < 0 {
		errs = append(errs, "playback.cooldown_minutes must be non-negative")
	}
	if p.ButtonCooldownSeconds < 0 {
		errs = append(errs, "playback.button_cooldown_seconds must be non-negative")
	}

	for field, value := range map[string]string{
		"playback.night_mode_start": p.NightModeStart,
		"playback.night_mode_end":   p.NightModeEnd,
	} {
		if _, err := timeutil.ParseClock(value); err != nil {
			errs = append(errs, fmt.Sprintf("%s must be in HH:MM format", field))
		}
	}

	// The disable window is optional but must be complete and parseable.
	if (p.ButtonDisableStart == "") != (p.ButtonDisableEnd == "") {
		errs = append(errs, "playback.button_disable_start and button_disable_end must be set together")
	}
	if p.ButtonDisableStart != "" {
		for field, value := range map[string]string{
			"playback.button_disable_start": p.ButtonDisableStart,
			"playback.button_disable_end":   p.ButtonDisableEnd,
		} {
			if _, err := timeutil.ParseClock(value); err != nil {
				errs = append(errs, fmt.Sprintf("%s must be in HH:MM format", field))
			}
		}
	}

	for _, entry := range p.PlaySchedule {
		if _, err := timeutil.ParseClock(entry); err != nil {
			errs = append(errs, fmt.Sprintf("playback.play_schedule entry %q must be in HH:MM format", entry))
		}
	}

	return errs
}

// ValidatePlayback checks only the runtime-adjustable section.
func (c *Config) ValidatePlayback() error {
	if errs := c.Playback.validate(); len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
