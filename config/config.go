// Package config loads the flasher settings from flags, QDL_* environment
// variables and an optional qdl.yaml file, in that order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/moffa90/go-qdl/firehose"
)

// Config holds all application configuration.
type Config struct {
	// Logging
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"log-format"`

	// Descriptor resolution
	Include              string `mapstructure:"include"`
	FinalizeProvisioning bool   `mapstructure:"finalize-provisioning"`

	// Loader session
	Storage         string        `mapstructure:"storage"`
	SkipStorageInit bool          `mapstructure:"skip-storage-init"`
	MaxPayloadSize  int           `mapstructure:"max-payload-size"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	BootDelay       time.Duration `mapstructure:"boot-delay"`
	Power           string        `mapstructure:"power"`

	// Output
	Progress bool `mapstructure:"progress"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log-format", "text")
	v.SetDefault("include", "")
	v.SetDefault("finalize-provisioning", false)
	v.SetDefault("storage", "ufs")
	v.SetDefault("skip-storage-init", false)
	v.SetDefault("max-payload-size", firehose.DefaultMaxPayloadSize)
	v.SetDefault("read-timeout", time.Second)
	v.SetDefault("boot-delay", firehose.DefaultBootDelay)
	v.SetDefault("power", firehose.PowerReset)
	v.SetDefault("progress", true)
}

// Load reads configuration from v, the environment and an optional config
// file. Flags must already be bound to v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	// Environment variables (QDL_MAX_PAYLOAD_SIZE, etc.)
	v.SetEnvPrefix("QDL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	v.SetConfigName("qdl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/qdl")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if !contains(firehose.StorageKinds, c.Storage) {
		return errors.Errorf("storage must be one of %s, got %q", strings.Join(firehose.StorageKinds, ", "), c.Storage)
	}
	switch c.Power {
	case firehose.PowerReset, firehose.PowerOff, firehose.PowerNone:
	default:
		return errors.Errorf("power must be reset, off or none, got %q", c.Power)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.Errorf("log-format must be text or json, got %q", c.LogFormat)
	}
	if c.MaxPayloadSize <= 0 {
		return errors.New("max-payload-size must be positive")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read-timeout must be positive")
	}
	if c.BootDelay < 0 {
		return errors.New("boot-delay must be non-negative")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
