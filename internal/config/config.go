// Package config loads the popup's runtime configuration from config.yaml,
// TRUSTGUARD_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jwulff/trustguard/internal/host"
	"github.com/jwulff/trustguard/internal/storage"
)

// EnvPrefix prefixes every environment override: TRUSTGUARD_HOST_SOCKET
// overrides host.socket.
const EnvPrefix = "TRUSTGUARD"

// Config is the root configuration.
type Config struct {
	Host    HostConfig    `mapstructure:"host"`
	Storage StorageConfig `mapstructure:"storage"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Logger  LoggerConfig  `mapstructure:"logger"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

// HostConfig locates the host bridge.
type HostConfig struct {
	Socket  string        `mapstructure:"socket"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig locates the durable store.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig tunes the poll loop.
type SyncConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	File   string `mapstructure:"file"`
}

// DebugConfig enables the local debug HTTP server when Addr is set.
type DebugConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads config.yaml from the working directory or ./configs. A missing
// file is fine; env and defaults fill in.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	return load(v)
}

// LoadFile reads the configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host.socket", host.SocketPath())
	v.SetDefault("host.timeout", 5*time.Second)
	v.SetDefault("storage.path", storage.DefaultPath())
	v.SetDefault("sync.poll_interval", 2*time.Second)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file", "")
	v.SetDefault("debug.addr", "")
}

// Validate rejects values the popup cannot run with.
func (c *Config) Validate() error {
	if c.Host.Socket == "" {
		return errors.New("host.socket is required")
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.poll_interval must be positive, got %s", c.Sync.PollInterval)
	}
	if c.Host.Timeout < 0 {
		return fmt.Errorf("host.timeout must not be negative, got %s", c.Host.Timeout)
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}
	return nil
}
