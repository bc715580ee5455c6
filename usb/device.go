package usb

import (
	"context"
	"time"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/logging"
)

type inEndpoint interface {
	ReadContext(ctx context.Context, p []byte) (int, error)
}

type outEndpoint interface {
	Write(p []byte) (int, error)
}

// Device is an open EDL device with its bulk interface claimed.
//
// Device is not safe for concurrent use; the protocol allows a single
// outstanding transfer.
type Device struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	in  inEndpoint
	out outEndpoint

	sel    Selection
	logger logrus.FieldLogger
}

// Discover finds the first attached device in EDL mode, opens it and claims
// its bulk interface. It returns an error matching qdl.ErrNotFound when no
// acceptable device is attached.
func Discover(opts ...Option) (*Device, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	ctx := gousb.NewContext()

	var (
		sel      Selection
		accepted bool
	)
	// Only the first acceptable device is opened; the rest are skipped.
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if accepted || desc.Vendor != cfg.VendorID || desc.Product != cfg.ProductID {
			return false
		}
		s, err := SelectInterface(desc)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"bus":     desc.Bus,
				"address": desc.Address,
			}).WithError(err).Debug("rejecting candidate")
			return false
		}
		sel, accepted = s, true
		return true
	})
	// A malformed descriptor on an unrelated device surfaces here; it only
	// matters if nothing was opened.
	if len(devs) == 0 {
		_ = ctx.Close()
		if err != nil {
			return nil, errors.Wrap(qdl.ErrNotFound, err.Error())
		}
		return nil, qdl.ErrNotFound
	}
	for _, extra := range devs[1:] {
		_ = extra.Close()
	}

	d := &Device{ctx: ctx, dev: devs[0], sel: sel, logger: logger}
	if err := d.claim(); err != nil {
		_ = d.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"interface":  sel.Interface,
		"in":         sel.InEndpoint,
		"in_maxpkt":  sel.InMaxPacket,
		"out":        sel.OutEndpoint,
		"out_maxpkt": sel.OutMaxPacket,
		"proto":      int(sel.InterfaceProto),
	}).Debug("device opened")

	return d, nil
}

// Opener returns a qdl.Opener that runs Discover with opts.
func Opener(opts ...Option) qdl.Opener {
	return func() (qdl.Device, error) {
		return Discover(opts...)
	}
}

func (d *Device) claim() error {
	d.dev.SetAutoDetach(true)

	cfg, err := d.dev.Config(d.sel.Config)
	if err != nil {
		return &qdl.TransportError{Op: "set configuration", Err: err}
	}
	d.cfg = cfg

	intf, err := cfg.Interface(d.sel.Interface, d.sel.Alternate)
	if err != nil {
		return &qdl.TransportError{Op: "claim interface", Err: err}
	}
	d.intf = intf

	in, err := intf.InEndpoint(d.sel.InEndpoint)
	if err != nil {
		return &qdl.TransportError{Op: "open IN endpoint", Err: err}
	}
	out, err := intf.OutEndpoint(d.sel.OutEndpoint)
	if err != nil {
		return &qdl.TransportError{Op: "open OUT endpoint", Err: err}
	}
	d.in, d.out = in, out
	return nil
}

// Selection returns the negotiated interface and endpoints.
func (d *Device) Selection() Selection {
	return d.sel
}

// Read performs one bulk IN transfer into p, bounded by timeout.
func (d *Device) Read(p []byte, timeout time.Duration) (int, error) {
	return read(d.in, p, timeout)
}

// Write sends p in chunks of at most the OUT max packet size. See package
// documentation for the zero-length packet rule.
func (d *Device) Write(p []byte, eot bool) (int, error) {
	return write(d.out, d.sel.OutMaxPacket, p, eot)
}

// Close releases the interface, configuration, device and libusb context.
func (d *Device) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if d.intf != nil {
		d.intf.Close()
		d.intf = nil
	}
	if d.cfg != nil {
		keep(d.cfg.Close())
		d.cfg = nil
	}
	if d.dev != nil {
		keep(d.dev.Close())
		d.dev = nil
	}
	if d.ctx != nil {
		keep(d.ctx.Close())
		d.ctx = nil
	}
	return first
}

func read(in inEndpoint, p []byte, timeout time.Duration) (int, error) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	n, err := in.ReadContext(ctx, p)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, gousb.TransferTimedOut) {
			return n, &qdl.TransportError{Op: "bulk read", Err: qdl.ErrTimeout}
		}
		return n, &qdl.TransportError{Op: "bulk read", Err: err}
	}
	return n, nil
}

func write(out outEndpoint, maxPacket int, p []byte, eot bool) (int, error) {
	if maxPacket <= 0 {
		return 0, &qdl.TransportError{Op: "bulk write", Err: errors.Errorf("invalid max packet size %d", maxPacket)}
	}

	written := 0
	for rest := p; len(rest) > 0; {
		chunk := rest
		if len(chunk) > maxPacket {
			chunk = chunk[:maxPacket]
		}
		n, err := out.Write(chunk)
		if err != nil {
			return written + n, &qdl.TransportError{
				Op:  "bulk write",
				Err: errors.Wrapf(err, "chunk at offset %d", written),
			}
		}
		if n != len(chunk) {
			return written + n, &qdl.TransportError{
				Op:  "bulk write",
				Err: errors.Errorf("short write at offset %d: %d of %d bytes", written, n, len(chunk)),
			}
		}
		written += n
		rest = rest[n:]
	}

	if eot && len(p)%maxPacket == 0 {
		if _, err := out.Write(nil); err != nil {
			return written, &qdl.TransportError{Op: "zero-length packet", Err: err}
		}
	}
	return written, nil
}
