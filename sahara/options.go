package sahara

import (
	"time"

	"github.com/sirupsen/logrus"

	qdl "github.com/moffa90/go-qdl"
)

// Config holds the engine configuration.
type Config struct {
	// ReadTimeout bounds every wait for a device record, including the
	// initial hello
	ReadTimeout time.Duration

	// ReadBufferSize is the size of the receive buffer
	ReadBufferSize int

	// Logger is used for logging operations (optional)
	Logger logrus.FieldLogger

	// ProgressCallback is called after each served read request (optional)
	ProgressCallback qdl.ProgressCallback
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ReadTimeout:    time.Second,
		ReadBufferSize: DefaultReadBufferSize,
	}
}

// Option is a functional option for configuring the Engine.
type Option func(*Config)

// WithReadTimeout sets the per-record read timeout.
//
// Example:
//
//	eng := sahara.New(dev, sahara.WithReadTimeout(5*time.Second))
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReadTimeout = timeout
		}
	}
}

// WithLogger sets a logger for the engine. Records are logged at debug level.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProgressCallback sets a callback to track image upload progress.
func WithProgressCallback(callback qdl.ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}
