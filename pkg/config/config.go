package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Guidance GuidanceConfig `mapstructure:"guidance"`
	API      APIConfig      `mapstructure:"api"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Events   EventsConfig   `mapstructure:"events"`
	Log      LogConfig      `mapstructure:"log"`
}

// TrackerConfig holds accumulator and ingest settings
type TrackerConfig struct {
	TimerInterval    time.Duration `mapstructure:"timer_interval"`
	CaloriesPerKm    float64       `mapstructure:"calories_per_km"`
	SampleInterval   time.Duration `mapstructure:"sample_interval"`
	MinDisplacementM float64       `mapstructure:"min_displacement_m"`
	HighAccuracy     bool          `mapstructure:"high_accuracy"`
}

// GuidanceConfig holds voice guidance settings
type GuidanceConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	Locale           string  `mapstructure:"locale"`
	WaypointRadiusKm float64 `mapstructure:"waypoint_radius_km"`
	TurnAngleDeg     float64 `mapstructure:"turn_angle_deg"`
}

// APIConfig holds the remote API client settings
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Token   string        `mapstructure:"token"`
}

// QueueConfig selects where runs that failed to submit are spooled
type QueueConfig struct {
	Backend  string `mapstructure:"backend"` // redis or file
	RedisURL string `mapstructure:"redis_url"`
	Key      string `mapstructure:"key"`
	FilePath string `mapstructure:"file_path"`
}

// EventsConfig selects the session event transport
type EventsConfig struct {
	Backend       string `mapstructure:"backend"` // gochannel or redisstream
	RedisURL      string `mapstructure:"redis_url"`
	TopicPrefix   string `mapstructure:"topic_prefix"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
	Encoding    string `mapstructure:"encoding"`
}

// Load loads configuration from the default search paths and environment
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from an explicit file. An empty path falls
// back to config.yaml in the usual search paths.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/twieo")
	}

	v.SetEnvPrefix("TWIEO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file: env vars and defaults only
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tracker.timer_interval", "1s")
	v.SetDefault("tracker.calories_per_km", 65.0)
	v.SetDefault("tracker.sample_interval", "1s")
	v.SetDefault("tracker.min_displacement_m", 5.0)
	v.SetDefault("tracker.high_accuracy", true)

	v.SetDefault("guidance.enabled", true)
	v.SetDefault("guidance.locale", "ko-KR")
	v.SetDefault("guidance.waypoint_radius_km", 0.03)
	v.SetDefault("guidance.turn_angle_deg", 45.0)

	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.token", "")

	v.SetDefault("queue.backend", "file")
	v.SetDefault("queue.redis_url", "redis://localhost:6379/0")
	v.SetDefault("queue.key", "pendingRuns")
	v.SetDefault("queue.file_path", "pending_runs.json")

	v.SetDefault("events.backend", "gochannel")
	v.SetDefault("events.redis_url", "redis://localhost:6379/0")
	v.SetDefault("events.topic_prefix", "run-events")
	v.SetDefault("events.consumer_group", "twieo-runsim")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "development")
	v.SetDefault("log.encoding", "console")
}

func validateConfig(cfg *Config) error {
	if cfg.Tracker.TimerInterval <= 0 {
		return fmt.Errorf("tracker timer interval must be positive")
	}

	if cfg.Tracker.CaloriesPerKm < 0 {
		return fmt.Errorf("calories per km cannot be negative")
	}

	if cfg.Tracker.SampleInterval < 0 || cfg.Tracker.MinDisplacementM < 0 {
		return fmt.Errorf("sample interval and displacement cannot be negative")
	}

	if cfg.Guidance.WaypointRadiusKm <= 0 {
		return fmt.Errorf("waypoint radius must be positive")
	}

	if cfg.Guidance.TurnAngleDeg <= 0 || cfg.Guidance.TurnAngleDeg >= 180 {
		return fmt.Errorf("turn angle must be between 0 and 180 degrees")
	}

	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api base url cannot be empty")
	}

	if !contains([]string{"redis", "file"}, cfg.Queue.Backend) {
		return fmt.Errorf("invalid queue backend: %s", cfg.Queue.Backend)
	}

	if cfg.Queue.Key == "" {
		return fmt.Errorf("queue key cannot be empty")
	}

	if !contains([]string{"gochannel", "redisstream"}, cfg.Events.Backend) {
		return fmt.Errorf("invalid events backend: %s", cfg.Events.Backend)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, cfg.Log.Level) {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}

	validEncodings := []string{"json", "console"}
	if !contains(validEncodings, cfg.Log.Encoding) {
		return fmt.Errorf("invalid log encoding: %s", cfg.Log.Encoding)
	}

	return nil
}

// contains checks if a slice contains a string, case-insensitively
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
