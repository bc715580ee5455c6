package firehose

import (
	"time"

	"github.com/sirupsen/logrus"

	qdl "github.com/moffa90/go-qdl"
)

// LogHandler receives the text of each diagnostic record from the device.
type LogHandler func(msg string)

// Config holds the engine configuration.
type Config struct {
	// Storage is the MemoryName sent in configure, e.g. "ufs" or "emmc"
	Storage string

	// MaxPayloadSize is the raw payload size requested in configure
	MaxPayloadSize int

	// SkipStorageInit asks the loader not to initialize storage
	SkipStorageInit bool

	// BootDelay is waited before talking to a freshly uploaded loader
	BootDelay time.Duration

	// CommandTimeout bounds each read while waiting for a response
	CommandTimeout time.Duration

	// RawTimeout bounds the wait for the response after a raw payload
	RawTimeout time.Duration

	// PowerAction is sent at the end of the run: PowerReset, PowerOff or
	// PowerNone
	PowerAction string

	// Logger is used for logging operations (optional)
	Logger logrus.FieldLogger

	// LogHandler receives device log records (optional). Without one,
	// records are logged at info level.
	LogHandler LogHandler

	// ProgressCallback is called as actions and payloads advance (optional)
	ProgressCallback qdl.ProgressCallback
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Storage:        "ufs",
		MaxPayloadSize: DefaultMaxPayloadSize,
		BootDelay:      DefaultBootDelay,
		CommandTimeout: DefaultCommandTimeout,
		RawTimeout:     DefaultRawTimeout,
		PowerAction:    PowerReset,
	}
}

// Option is a functional option for configuring the Engine.
type Option func(*Config)

// WithStorage sets the storage kind sent in configure.
func WithStorage(storage string) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithMaxPayloadSize sets the raw payload size requested from the device.
// The device may negotiate a different value.
func WithMaxPayloadSize(size int) Option {
	return func(c *Config) {
		c.MaxPayloadSize = size
	}
}

// WithSkipStorageInit asks the loader to skip storage initialization.
func WithSkipStorageInit(skip bool) Option {
	return func(c *Config) {
		c.SkipStorageInit = skip
	}
}

// WithBootDelay sets the wait before the first command.
//
// Example:
//
//	firehose.New(dev, firehose.WithBootDelay(0)) // loader already running
func WithBootDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.BootDelay = delay
	}
}

// WithCommandTimeout sets the per-read response timeout.
func WithCommandTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.CommandTimeout = timeout
	}
}

// WithRawTimeout sets the timeout for the response after a raw payload.
func WithRawTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.RawTimeout = timeout
	}
}

// WithPowerAction sets the final power command.
func WithPowerAction(action string) Option {
	return func(c *Config) {
		c.PowerAction = action
	}
}

// WithLogger sets a logger for the engine.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithLogHandler sets a handler for device log records.
func WithLogHandler(handler LogHandler) Option {
	return func(c *Config) {
		c.LogHandler = handler
	}
}

// WithProgressCallback sets a progress callback.
func WithProgressCallback(callback qdl.ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}
