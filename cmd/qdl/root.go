package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/config"
	"github.com/moffa90/go-qdl/firehose"
	"github.com/moffa90/go-qdl/flash"
	"github.com/moffa90/go-qdl/logging"
	"github.com/moffa90/go-qdl/sahara"
	"github.com/moffa90/go-qdl/usb"
)

// runFunc performs a flashing job. Tests replace it to avoid USB.
type runFunc func(ctx context.Context, cfg *config.Config, loader string, descriptors []string) error

// NewRootCommand creates the qdl command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(viper.New(), runFlash)
}

func newRootCommand(v *viper.Viper, run runFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qdl [flags] <loader> <descriptor>...",
		Short: "Flash Qualcomm devices in emergency download mode",
		Long: `Uploads a programmer loader over Sahara, then programs, patches and
provisions device storage over Firehose as described by program, patch and
UFS descriptor files.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return errors.Wrap(err, "config load failed")
			}
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "config invalid")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, args[0], args[1:])
		},
	}

	flags := cmd.Flags()
	flags.Bool("debug", false, "log every protocol record")
	flags.String("log-format", "text", "log format (text|json)")
	flags.StringP("include", "i", "", "directory searched first for program files")
	flags.Bool("finalize-provisioning", false, "allow UFS descriptors to commit their layout")
	flags.String("storage", "ufs", "storage kind (emmc|ufs|nand|nvme|spinor)")
	flags.Bool("skip-storage-init", false, "ask the loader not to initialize storage")
	flags.Int("max-payload-size", firehose.DefaultMaxPayloadSize, "raw payload size requested from the loader")
	flags.Duration("read-timeout", time.Second, "Sahara read timeout")
	flags.Duration("boot-delay", firehose.DefaultBootDelay, "time for the loader to start after upload")
	flags.String("power", firehose.PowerReset, "power action when done (reset|off|none)")
	flags.Bool("progress", true, "show a progress bar")

	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})

	return cmd
}

func runFlash(ctx context.Context, cfg *config.Config, loader string, descriptors []string) error {
	logger, err := logging.New(logging.Options{Debug: cfg.Debug, Format: cfg.LogFormat})
	if err != nil {
		return err
	}

	opts := []flash.Option{
		flash.WithLogger(logger),
		flash.WithIncludeDir(cfg.Include),
		flash.WithStorage(cfg.Storage),
		flash.WithFinalizeProvisioning(cfg.FinalizeProvisioning),
		flash.WithSaharaOptions(sahara.WithReadTimeout(cfg.ReadTimeout)),
		flash.WithFirehoseOptions(
			firehose.WithMaxPayloadSize(cfg.MaxPayloadSize),
			firehose.WithSkipStorageInit(cfg.SkipStorageInit),
			firehose.WithBootDelay(cfg.BootDelay),
			firehose.WithPowerAction(cfg.Power),
		),
	}

	if cfg.Progress {
		bar := newConsoleProgress(os.Stdout)
		defer bar.Finish()
		opts = append(opts, flash.WithProgressCallback(bar.Update))
	}

	open := usb.Opener(usb.WithLogger(logging.Component(logger, "usb")))
	err = flash.New(open, opts...).Flash(ctx, loader, descriptors)

	var failed *qdl.ActionFailedError
	if errors.As(err, &failed) {
		logger.WithError(failed.Err).WithField("action", failed.Action).Error("device rejected action")
	}
	return err
}
