// Package config loads runtime settings from an optional YAML file and
// AWAKEN_* environment variables, in that order. Flags are applied by the
// command layer afterwards.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/identity"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverFile   = "file"
)

// Config is the full set of runtime settings.
type Config struct {
	LogLevel string `yaml:"log_level" env:"AWAKEN_LOG_LEVEL"`

	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	Identity   identity.Config  `yaml:"identity" envPrefix:"AWAKEN_IDENTITY_"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Profiles   ProfilesConfig   `yaml:"profiles"`
	Clock      ClockConfig      `yaml:"clock"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" env:"AWAKEN_HTTP_ADDR"`
}

type StoreConfig struct {
	Driver string      `yaml:"driver" env:"AWAKEN_STORE_DRIVER"`
	Redis  RedisConfig `yaml:"redis"`
	// Dir holds one JSON file per flow for the file driver.
	Dir string `yaml:"dir" env:"AWAKEN_STORE_DIR"`

	// EncryptionKey seals records at rest when set: base64 of 32 bytes.
	EncryptionKey string `yaml:"encryption_key" env:"AWAKEN_STORE_ENCRYPTION_KEY"`
	// FallbackKeys still decrypt records sealed before a key rotation.
	FallbackKeys []string `yaml:"fallback_keys" env:"AWAKEN_STORE_FALLBACK_KEYS" envSeparator:","`
}

// Keys decodes the encryption keys. active is nil when sealing is off.
func (s StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, nil, errors.New("store.fallback_keys: set without store.encryption_key")
		}
		return nil, nil, nil
	}
	decode := func(field, v string) ([]byte, error) {
		k, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		if len(k) != 32 {
			return nil, fmt.Errorf("%s: want 32 bytes, got %d", field, len(k))
		}
		return k, nil
	}
	if active, err = decode("store.encryption_key", s.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for i, v := range s.FallbackKeys {
		k, err := decode(fmt.Sprintf("store.fallback_keys[%d]", i), v)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, k)
	}
	return active, fallback, nil
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"AWAKEN_REDIS_ADDR"`
	Password string        `yaml:"password" env:"AWAKEN_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"AWAKEN_REDIS_DB"`
	Prefix   string        `yaml:"prefix" env:"AWAKEN_REDIS_PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"AWAKEN_REDIS_TTL"`
	// Lock fences record writes so replicas can share one Redis.
	Lock bool `yaml:"lock" env:"AWAKEN_REDIS_LOCK"`
}

type ClassifierConfig struct {
	CacheSize int `yaml:"cache_size" env:"AWAKEN_CLASSIFIER_CACHE_SIZE"`
}

type ProfilesConfig struct {
	// Dir overlays profile documents on the built-in table when set.
	Dir string `yaml:"dir" env:"AWAKEN_PROFILES_DIR"`
}

type ClockConfig struct {
	// Speed scales wall time fed to the virtual clock.
	Speed float64 `yaml:"speed" env:"AWAKEN_CLOCK_SPEED"`
	// Interval is the wall-clock pump period.
	Interval time.Duration `yaml:"interval" env:"AWAKEN_CLOCK_INTERVAL"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		LogLevel: "info",
		HTTP:     HTTPConfig{Addr: ":8080"},
		Store: StoreConfig{
			Driver: DriverMemory,
			Redis:  RedisConfig{Addr: "localhost:6379", Prefix: "awaken:flow:", TTL: 24 * time.Hour},
			Dir:    filepath.Join(".awaken", "flows"),
		},
		Identity:   identity.Config{Strategy: identity.StrategyAnonymous},
		Classifier: ClassifierConfig{CacheSize: 64},
		Clock:      ClockConfig{Speed: 1, Interval: 50 * time.Millisecond},
	}
}

// Load reads path (if non-empty) over the defaults, then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Store.Driver) {
	case DriverMemory, DriverRedis, DriverFile:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if _, _, err := c.Store.Keys(); err != nil {
		errs = append(errs, err)
	}
	if _, err := identity.Select(c.Identity); err != nil {
		errs = append(errs, err)
	}
	if c.Classifier.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("classifier.cache_size: must not be negative"))
	}
	if c.Clock.Speed <= 0 {
		errs = append(errs, fmt.Errorf("clock.speed: must be positive"))
	}
	if c.Clock.Interval <= 0 {
		errs = append(errs, fmt.Errorf("clock.interval: must be positive"))
	}
	return errors.Join(errs...)
}
