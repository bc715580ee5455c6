package sahara

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/logging"
)

// State is a step of the Sahara session.
type State int

const (
	StateAwaitHello State = iota
	StateHelloAcked
	StateServingReads
	StateEndOfImage
	StateAwaitDone
	StateComplete
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaitHello:
		return "await hello"
	case StateHelloAcked:
		return "hello acked"
	case StateServingReads:
		return "serving reads"
	case StateEndOfImage:
		return "end of image"
	case StateAwaitDone:
		return "await done response"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Engine uploads a loader image to a device in Sahara mode.
//
// The engine never pushes data: every byte it sends answers a device
// request, and the device picks offsets and chunk sizes.
type Engine struct {
	dev    qdl.Transport
	config Config
	logger logrus.FieldLogger

	state  State
	buf    []byte
	served int64
	start  time.Time
}

// New creates an Engine on the given transport.
func New(dev qdl.Transport, opts ...Option) *Engine {
	if dev == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Engine{
		dev:    dev,
		config: cfg,
		logger: cfg.Logger,
		state:  StateAwaitHello,
		buf:    make([]byte, cfg.ReadBufferSize),
	}
}

// State returns the current session state.
func (e *Engine) State() State {
	return e.state
}

// Run drives the session until the device acknowledges that it received
// image and starts executing it:
//  1. Wait for the device hello and answer it
//  2. Serve read-data requests until end-of-image
//  3. Send done and check the device's final status
//
// The context is only checked before the hello arrives. Once the session is
// under way it must finish or fail on its own.
func (e *Engine) Run(ctx context.Context, image []byte) error {
	if len(image) == 0 {
		return &qdl.ConfigError{Err: errors.New("loader image is empty")}
	}
	if e.state != StateAwaitHello {
		return errors.Errorf("sahara session already %s", e.state)
	}

	e.start = time.Now()
	e.served = 0

	for e.state != StateComplete {
		if e.state == StateAwaitHello {
			if err := ctx.Err(); err != nil {
				return e.abort(errors.Wrap(err, "cancelled"))
			}
		}

		rec, err := e.readRecord()
		if err != nil {
			return e.abort(err)
		}
		if err := e.step(rec, image); err != nil {
			return e.abort(err)
		}
	}

	e.logInfo("loader uploaded",
		"bytes", len(image),
		"served", e.served,
		"elapsed", time.Since(e.start).String(),
	)
	return nil
}

func (e *Engine) step(rec []byte, image []byte) error {
	switch e.state {
	case StateAwaitHello:
		return e.handleHello(rec)

	case StateServingReads:
		h, err := ParseHeader(rec)
		if err != nil {
			return err
		}
		switch h.Command {
		case CmdReadData:
			req, err := ParseReadData(rec)
			if err != nil {
				return err
			}
			return e.serve(req, image)
		case CmdReadData64:
			req, err := ParseReadData64(rec)
			if err != nil {
				return err
			}
			return e.serve(req, image)
		case CmdEndOfImage:
			return e.handleEndOfImage(rec)
		default:
			return unexpected("serve reads", h.Command)
		}

	case StateAwaitDone:
		resp, err := ParseDoneResp(rec)
		if err != nil {
			return err
		}
		e.logDebug("done response", "status", resp.Status)
		if resp.Status != ImageTxComplete {
			return qdl.Protocolf("done", "device reported image transfer status %d", resp.Status)
		}
		e.state = StateComplete
		return nil

	default:
		return errors.Errorf("no transition from state %s", e.state)
	}
}

func (e *Engine) handleHello(rec []byte) error {
	hello, err := ParseHello(rec)
	if err != nil {
		return err
	}

	e.logDebug("hello",
		"version", hello.Version,
		"compatible", hello.Compatible,
		"max_len", hello.MaxLength,
		"mode", hello.Mode,
	)

	if hello.Mode != ModeImageTxPending {
		return qdl.Protocolf("hello", "unsupported mode %d", hello.Mode)
	}
	if hello.Version < ProtocolCompatible {
		return qdl.Protocolf("hello", "device protocol version %d is older than %d", hello.Version, ProtocolCompatible)
	}

	e.state = StateHelloAcked
	if err := e.send(BuildHelloResp(hello.Mode)); err != nil {
		return err
	}
	e.state = StateServingReads
	return nil
}

func (e *Engine) serve(req *ReadRequest, image []byte) error {
	e.logDebug("read data",
		"image", req.Image,
		"offset", req.Offset,
		"length", req.Length,
	)

	end, ok := req.End()
	if !ok || end > uint64(len(image)) {
		return qdl.Protocolf("read data", "request offset %d length %d exceeds image size %d",
			req.Offset, req.Length, len(image))
	}
	if req.Length == 0 {
		return qdl.Protocolf("read data", "empty request at offset %d", req.Offset)
	}

	if err := e.send(image[req.Offset:end]); err != nil {
		return err
	}

	e.served += int64(req.Length)
	e.reportProgress(qdl.Progress{
		Phase:        qdl.PhaseBootstrap,
		Step:         "upload loader",
		BytesWritten: e.served,
		BytesTotal:   int64(len(image)),
		ElapsedTime:  time.Since(e.start),
	})
	return nil
}

func (e *Engine) handleEndOfImage(rec []byte) error {
	eoi, err := ParseEndOfImage(rec)
	if err != nil {
		return err
	}
	e.state = StateEndOfImage

	e.logDebug("end of image", "image", eoi.Image, "status", eoi.Status)
	if eoi.Status != StatusSuccess {
		return qdl.Protocolf("end of image", "device reported status %d", eoi.Status)
	}

	if err := e.send(BuildDone()); err != nil {
		return err
	}
	e.state = StateAwaitDone
	return nil
}

func (e *Engine) readRecord() ([]byte, error) {
	n, err := e.dev.Read(e.buf, e.config.ReadTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "read record")
	}
	rec := e.buf[:n]
	if n >= HeaderSize {
		e.logDebug("received", "cmd", getCommandName(binary.LittleEndian.Uint32(rec)), "len", n)
	}
	return rec, nil
}

func (e *Engine) send(p []byte) error {
	n, err := e.dev.Write(p, true)
	if err != nil {
		return errors.Wrap(err, "write record")
	}
	if n != len(p) {
		return &qdl.TransportError{Op: "write record", Err: errors.Errorf("wrote %d of %d bytes", n, len(p))}
	}
	return nil
}

func (e *Engine) abort(err error) error {
	prev := e.state
	e.state = StateAborted
	e.logError("session aborted", "state", prev.String(), "error", err.Error())
	return &StateError{State: prev, Err: err}
}

// reportProgress calls the progress callback if configured.
func (e *Engine) reportProgress(p qdl.Progress) {
	if e.config.ProgressCallback != nil {
		e.config.ProgressCallback(p)
	}
}

// logDebug logs a debug message if a logger is configured.
func (e *Engine) logDebug(msg string, keysAndValues ...interface{}) {
	if e.logger != nil {
		e.logger.WithFields(logging.Fields(keysAndValues...)).Debug(msg)
	}
}

// logInfo logs an info message if a logger is configured.
func (e *Engine) logInfo(msg string, keysAndValues ...interface{}) {
	if e.logger != nil {
		e.logger.WithFields(logging.Fields(keysAndValues...)).Info(msg)
	}
}

// logError logs an error message if a logger is configured.
func (e *Engine) logError(msg string, keysAndValues ...interface{}) {
	if e.logger != nil {
		e.logger.WithFields(logging.Fields(keysAndValues...)).Error(msg)
	}
}
