package flash

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/descriptor"
	"github.com/moffa90/go-qdl/firehose"
	"github.com/moffa90/go-qdl/logging"
	"github.com/moffa90/go-qdl/sahara"
)

// Flasher runs flashing jobs. Each job opens its own device handle and
// releases it before returning.
type Flasher struct {
	open   qdl.Opener
	config Config
}

// New creates a Flasher that obtains devices from open.
//
// Example:
//
//	f := flash.New(usb.Opener(usb.WithLogger(logger)), flash.WithLogger(logger))
func New(open qdl.Opener, opts ...Option) *Flasher {
	if open == nil {
		panic("opener cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Flasher{
		open:   open,
		config: cfg,
	}
}

// Flash performs the complete job:
//  1. Load all descriptors into a frozen action store
//  2. Read the loader image
//  3. Open the device
//  4. Upload the loader over Sahara
//  5. Execute the actions over Firehose
//
// Input errors are returned as *qdl.ConfigError before the device is
// opened. The context is honored between protocol steps; a transfer that
// has started always runs to completion.
func (f *Flasher) Flash(ctx context.Context, loaderPath string, descriptors []string) error {
	session, err := uuid.NewV7()
	if err != nil {
		return errors.Wrap(err, "create session id")
	}
	logger := f.config.Logger.WithField("session", session.String())
	start := time.Now()

	// Phase 1: Load descriptors
	f.reportProgress(qdl.Progress{Phase: qdl.PhaseLoading, Step: "load descriptors"})
	if len(descriptors) == 0 {
		return &qdl.ConfigError{Err: errors.New("no descriptor files given")}
	}
	store, err := descriptor.Load(descriptors,
		descriptor.WithIncludeDir(f.config.IncludeDir),
		descriptor.WithFinalizeProvisioning(f.config.FinalizeProvisioning),
		descriptor.WithLogger(logging.Component(logger, "descriptor")),
	)
	if err != nil {
		return err
	}
	logger.WithFields(logging.Fields("files", len(descriptors), "actions", store.Len())).Info("descriptors loaded")

	// Phase 2: Read loader
	image, err := os.ReadFile(loaderPath)
	if err != nil {
		return &qdl.ConfigError{File: loaderPath, Err: errors.Wrap(err, "read loader")}
	}
	if len(image) == 0 {
		return &qdl.ConfigError{File: loaderPath, Err: errors.New("loader image is empty")}
	}

	// Phase 3: Open device
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "cancelled")
	}
	f.reportProgress(qdl.Progress{Phase: qdl.PhaseConnecting, Step: "open device"})
	dev, err := f.open()
	if err != nil {
		return errors.Wrap(err, "open device")
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logger.WithError(err).Warn("close device")
		}
	}()

	// Phase 4: Bootstrap
	saharaOpts := append([]sahara.Option{
		sahara.WithLogger(logging.Component(logger, "sahara")),
		sahara.WithProgressCallback(f.config.ProgressCallback),
	}, f.config.SaharaOptions...)
	if err := sahara.New(dev, saharaOpts...).Run(ctx, image); err != nil {
		return errors.Wrap(err, "upload loader")
	}

	// Phase 5: Execute actions
	firehoseOpts := append([]firehose.Option{
		firehose.WithStorage(f.config.Storage),
		firehose.WithLogger(logging.Component(logger, "firehose")),
		firehose.WithProgressCallback(f.config.ProgressCallback),
	}, f.config.FirehoseOptions...)
	if err := firehose.New(dev, firehoseOpts...).Run(ctx, store); err != nil {
		return errors.Wrap(err, "execute actions")
	}

	logger.WithField("elapsed", time.Since(start).String()).Info("flashing completed")
	return nil
}

// reportProgress calls the progress callback if configured.
func (f *Flasher) reportProgress(p qdl.Progress) {
	if f.config.ProgressCallback != nil {
		f.config.ProgressCallback(p)
	}
}
