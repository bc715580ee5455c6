package flash

import (
	"github.com/sirupsen/logrus"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/firehose"
	"github.com/moffa90/go-qdl/logging"
	"github.com/moffa90/go-qdl/sahara"
)

// Config holds the flasher configuration.
type Config struct {
	// ProgressCallback is called as the job advances (optional)
	ProgressCallback qdl.ProgressCallback

	// Logger receives the log of every phase
	Logger logrus.FieldLogger

	// IncludeDir is searched first for program source files
	IncludeDir string

	// Storage is the storage kind the loader is configured for
	Storage string

	// FinalizeProvisioning allows UFS descriptors that commit their layout
	FinalizeProvisioning bool

	// SaharaOptions are passed to the bootstrap engine after the defaults
	SaharaOptions []sahara.Option

	// FirehoseOptions are passed to the command engine after the defaults
	FirehoseOptions []firehose.Option
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Logger:  logging.Discard(),
		Storage: "ufs",
	}
}

// Option is a functional option for configuring the Flasher.
type Option func(*Config)

// WithProgressCallback sets a callback function to track progress.
//
// Example:
//
//	f := flash.New(open,
//	    flash.WithProgressCallback(func(p qdl.Progress) {
//	        fmt.Printf("%s %.1f%%\n", p.Phase, p.Percentage())
//	    }),
//	)
func WithProgressCallback(callback qdl.ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets the logger. Each engine logs under its own component.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithIncludeDir sets the directory searched first for program sources.
func WithIncludeDir(dir string) Option {
	return func(c *Config) {
		c.IncludeDir = dir
	}
}

// WithStorage sets the storage kind, e.g. "ufs" or "emmc".
func WithStorage(storage string) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithFinalizeProvisioning allows UFS layouts to be committed.
func WithFinalizeProvisioning(finalize bool) Option {
	return func(c *Config) {
		c.FinalizeProvisioning = finalize
	}
}

// WithSaharaOptions appends options for the bootstrap engine.
//
// Example:
//
//	flash.WithSaharaOptions(sahara.WithReadTimeout(5 * time.Second))
func WithSaharaOptions(opts ...sahara.Option) Option {
	return func(c *Config) {
		c.SaharaOptions = append(c.SaharaOptions, opts...)
	}
}

// WithFirehoseOptions appends options for the command engine.
func WithFirehoseOptions(opts ...firehose.Option) Option {
	return func(c *Config) {
		c.FirehoseOptions = append(c.FirehoseOptions, opts...)
	}
}
