package usb

import (
	"github.com/google/gousb"
	"github.com/sirupsen/logrus"
)

// Config holds the discovery configuration.
type Config struct {
	// VendorID and ProductID select the candidate devices
	VendorID  gousb.ID
	ProductID gousb.ID

	// Logger receives discovery and transfer diagnostics (optional)
	Logger logrus.FieldLogger
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		VendorID:  VendorID,
		ProductID: ProductID,
	}
}

// Option is a functional option for configuring discovery.
type Option func(*Config)

// WithIDs overrides the vendor/product pair used to find candidates.
func WithIDs(vendor, product gousb.ID) Option {
	return func(c *Config) {
		c.VendorID = vendor
		c.ProductID = product
	}
}

// WithLogger sets a logger for discovery and transfers.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
