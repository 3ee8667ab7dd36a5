package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Deviation profiles.
const (
	ProfileOffice  = "office"
	ProfileComfort = "comfort"
)

// Ingest sources.
const (
	SourceNone   = "none"
	SourceStream = "stream"
	SourceKafka  = "kafka"
)

// Config is the typed view of configs/config.yml plus TELEMETRY_* environment overrides.
type Config struct {
	Debug     bool            `mapstructure:"debug"`
	Port      string          `mapstructure:"port"`
	Store     StoreConfig     `mapstructure:"store"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Deviation DeviationConfig `mapstructure:"deviation"`
	Backfill  BackfillConfig  `mapstructure:"backfill"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type StoreConfig struct {
	Driver  string        `mapstructure:"driver"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	CalibrationFactor float64       `mapstructure:"calibration_factor"`
	PulseLookback     time.Duration `mapstructure:"pulse_lookback"`
	MinHourlySamples  int           `mapstructure:"min_hourly_samples"`
}

// Bound is one optional end of a healthy range.
type Bound struct {
	Value     *float64 `mapstructure:"value"`
	Inclusive bool     `mapstructure:"inclusive"`
}

// RangeConfig overrides a profile range. Nil bounds keep the profile value.
type RangeConfig struct {
	Min *Bound `mapstructure:"min"`
	Max *Bound `mapstructure:"max"`
}

type DeviationConfig struct {
	Profile     string      `mapstructure:"profile"`
	StopAtFirst bool        `mapstructure:"stop_at_first"`
	CO2         RangeConfig `mapstructure:"co2"`
	Moisture    RangeConfig `mapstructure:"moisture"`
	Temperature RangeConfig `mapstructure:"temperature"`
}

type BackfillConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Group   string   `mapstructure:"group"`
}

type IngestConfig struct {
	Source    string      `mapstructure:"source"`
	StreamURL string      `mapstructure:"stream_url"`
	Network   string      `mapstructure:"network"`
	Username  string      `mapstructure:"username"`
	Password  string      `mapstructure:"password"`
	Kafka     KafkaConfig `mapstructure:"kafka"`
}

type RegistryConfig struct {
	APIURL   string `mapstructure:"api_url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type AuthConfig struct {
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"password_hash"`
	SigningKey   string        `mapstructure:"signing_key"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

const envPrefix = "TELEMETRY"

// setDefaults registers the fallback for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("port", "8080")

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.path", "telemetry.db")
	v.SetDefault("store.timeout", 5*time.Second)

	v.SetDefault("pipeline.calibration_factor", 10000.0)
	v.SetDefault("pipeline.pulse_lookback", 24*time.Hour)
	v.SetDefault("pipeline.min_hourly_samples", 30)

	v.SetDefault("deviation.profile", ProfileOffice)
	v.SetDefault("deviation.stop_at_first", true)

	v.SetDefault("backfill.schedule", "@every 15m")

	v.SetDefault("ingest.source", SourceNone)
	v.SetDefault("ingest.stream_url", "")
	v.SetDefault("ingest.network", "")
	v.SetDefault("ingest.username", "")
	v.SetDefault("ingest.password", "")
	v.SetDefault("ingest.kafka.brokers", []string{})
	v.SetDefault("ingest.kafka.topic", "")
	v.SetDefault("ingest.kafka.group", "building-telemetry")

	v.SetDefault("registry.api_url", "")
	v.SetDefault("registry.username", "")
	v.SetDefault("registry.password", "")

	// Registered so that TELEMETRY_AUTH_* variables are seen by Unmarshal.
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
}

// Load reads <dir>/config.yml (if present) and applies environment overrides.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks that all configuration parameters are usable.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive, got %s", c.Store.Timeout)
	}

	if c.Pipeline.CalibrationFactor <= 0 {
		return fmt.Errorf("pipeline.calibration_factor must be positive, got %f", c.Pipeline.CalibrationFactor)
	}
	if c.Pipeline.PulseLookback <= 0 {
		return fmt.Errorf("pipeline.pulse_lookback must be positive, got %s", c.Pipeline.PulseLookback)
	}
	if c.Pipeline.MinHourlySamples <= 0 {
		return fmt.Errorf("pipeline.min_hourly_samples must be positive, got %d", c.Pipeline.MinHourlySamples)
	}

	if p := c.Deviation.Profile; p != ProfileOffice && p != ProfileComfort {
		return fmt.Errorf("unknown deviation.profile %q", c.Deviation.Profile)
	}

	switch c.Ingest.Source {
	case SourceNone:
	case SourceStream:
		if c.Ingest.StreamURL == "" {
			return fmt.Errorf("ingest.stream_url is required for the stream source")
		}
	case SourceKafka:
		if len(c.Ingest.Kafka.Brokers) == 0 || c.Ingest.Kafka.Topic == "" {
			return fmt.Errorf("ingest.kafka.brokers and ingest.kafka.topic are required for the kafka source")
		}
	default:
		return fmt.Errorf("unknown ingest.source %q", c.Ingest.Source)
	}

	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	return nil
}
