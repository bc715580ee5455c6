package firehose

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/action"
	"github.com/moffa90/go-qdl/logging"
)

// Engine runs an action store against a device whose loader speaks the
// XML command protocol.
type Engine struct {
	dev    qdl.Transport
	config Config
	logger logrus.FieldLogger

	pending    []byte
	readBuf    []byte
	maxPayload int

	start   time.Time
	current int
	total   int
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
		dev:        dev,
		config:     cfg,
		logger:     cfg.Logger,
		readBuf:    make([]byte, DefaultReadSize),
		maxPayload: cfg.MaxPayloadSize,
	}
}

// MaxPayloadSize returns the raw payload size in effect. After Run has
// configured the device it is the negotiated value.
func (e *Engine) MaxPayloadSize() int {
	return e.maxPayload
}

// Run executes the store:
//  1. Wait for the loader to boot and collect its start-up log
//  2. Negotiate the session with configure
//  3. Execute every action in order, stopping at the first failure
//  4. Send the closing sequence: bootable drive, UFS epilogue, power
//
// A failing action is reported as *qdl.ActionFailedError holding its index.
// The context is checked between commands, never during one.
func (e *Engine) Run(ctx context.Context, store *action.Store) error {
	if store == nil {
		return &qdl.ConfigError{Err: errors.New("action store is nil")}
	}
	if err := e.validate(); err != nil {
		return err
	}

	e.start = time.Now()
	e.total = store.Len()

	if err := e.wait(ctx, e.config.BootDelay); err != nil {
		return err
	}
	if err := e.drain(); err != nil {
		return errors.Wrap(err, "collect loader log")
	}

	e.reportProgress(qdl.Progress{Phase: qdl.PhaseConfiguring, Step: CmdConfigure, Total: e.total})
	if err := e.configure(); err != nil {
		return errors.Wrap(err, "configure")
	}

	for i := 0; i < e.total; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "cancelled before action %d", i)
		}

		a := store.At(i)
		e.current = i + 1
		e.logInfo("executing action", "index", i, "action", a.String())
		e.reportProgress(qdl.Progress{
			Phase:   qdl.PhaseFlashing,
			Step:    a.String(),
			Current: e.current,
			Total:   e.total,
		})

		if err := e.execute(a); err != nil {
			return &qdl.ActionFailedError{Index: i, Action: a.String(), Err: err}
		}
	}

	if err := e.finish(store); err != nil {
		return errors.Wrap(err, "finalize")
	}

	e.logInfo("all actions completed", "actions", e.total, "elapsed", time.Since(e.start).String())
	e.reportProgress(qdl.Progress{Phase: qdl.PhaseComplete, Current: e.total, Total: e.total})
	return nil
}

func (e *Engine) validate() error {
	known := false
	for _, s := range StorageKinds {
		if e.config.Storage == s {
			known = true
		}
	}
	switch {
	case !known:
		return &qdl.ConfigError{Err: errors.Errorf("unknown storage %q", e.config.Storage)}
	case e.config.MaxPayloadSize <= 0:
		return &qdl.ConfigError{Err: errors.Errorf("invalid max payload size %d", e.config.MaxPayloadSize)}
	}

	switch e.config.PowerAction {
	case PowerReset, PowerOff, PowerNone:
		return nil
	default:
		return &qdl.ConfigError{Err: errors.Errorf("unknown power action %q", e.config.PowerAction)}
	}
}

func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for loader")
	case <-t.C:
		return nil
	}
}

// drain reports the log records a freshly started loader sends on its own,
// until the device stays silent for DrainTimeout.
func (e *Engine) drain() error {
	for {
		err := e.fill(DrainTimeout)
		if errors.Is(err, qdl.ErrTimeout) {
			break
		}
		if err != nil {
			return err
		}

		for {
			doc, rest, ok := splitDocument(e.pending)
			if !ok {
				break
			}
			records, err := ParseRecords(doc)
			if err != nil {
				return err
			}
			e.pending = append(e.pending[:0], rest...)
			for _, r := range records {
				if r.Kind == RecordLog {
					e.deviceLog(r.Value)
					continue
				}
				e.logDebug("ignoring unsolicited response", "value", r.Value)
			}
		}
	}

	if len(e.pending) > 0 {
		e.logDebug("discarding partial document", "bytes", len(e.pending))
		e.pending = e.pending[:0]
	}
	return nil
}

func (e *Engine) configure() error {
	requested := e.config.MaxPayloadSize

	size, acked, err := e.sendConfigure(requested)
	if err != nil {
		return err
	}

	if !acked || size != requested {
		e.logDebug("device proposed payload size", "requested", requested, "proposed", size)
		size, acked, err = e.sendConfigure(size)
		if err != nil {
			return err
		}
		if !acked {
			return &NakError{Command: CmdConfigure}
		}
	}

	e.maxPayload = size
	e.logInfo("session configured", "storage", e.config.Storage, "max_payload", size)
	return nil
}

// sendConfigure sends one configure command and returns the payload size
// the device answered with. A NAK proposing a different size is not an
// error; a NAK repeating the requested size is.
func (e *Engine) sendConfigure(size int) (int, bool, error) {
	cmd := BuildConfigure(e.config.Storage, size, e.config.SkipStorageInit)
	resp, err := e.exchange(cmd, e.config.CommandTimeout)
	if err != nil && !IsNakError(err) {
		return 0, false, err
	}

	if !resp.ACK() {
		proposed, perr := payloadSize(resp, "MaxPayloadSizeToTargetInBytes")
		if perr != nil || proposed == size {
			return 0, false, err
		}
		return proposed, false, nil
	}

	proposed, perr := payloadSize(resp, "MaxPayloadSizeToTargetInBytes")
	if perr != nil {
		return 0, false, perr
	}

	if _, ok := resp.Attrs["MaxPayloadSizeToTargetInBytesSupported"]; ok {
		supported, perr := payloadSize(resp, "MaxPayloadSizeToTargetInBytesSupported")
		if perr != nil {
			return 0, false, perr
		}
		proposed = supported
	}
	return proposed, true, nil
}

func payloadSize(resp Record, key string) (int, error) {
	v, ok := resp.Attrs[key]
	if !ok {
		return 0, qdl.Protocolf(CmdConfigure, "response without %s", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, qdl.Protocolf(CmdConfigure, "invalid %s %q", key, v)
	}
	return n, nil
}

func (e *Engine) execute(a action.Action) error {
	switch a := a.(type) {
	case *action.Program:
		return e.program(a)
	case *action.Patch:
		_, err := e.exchange(BuildPatch(a), e.config.CommandTimeout)
		return err
	case *action.ProvisionUFS:
		return e.provision(a)
	default:
		return errors.Errorf("unsupported action %T", a)
	}
}

func (e *Engine) program(p *action.Program) error {
	if p.SectorSize <= 0 {
		return errors.Errorf("invalid sector size %d", p.SectorSize)
	}
	perChunk := int64(e.maxPayload / p.SectorSize)
	if perChunk == 0 {
		return errors.Errorf("sector size %d exceeds max payload size %d", p.SectorSize, e.maxPayload)
	}

	src, size, err := p.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	sectors := p.Sectors(size)
	if p.NumSectors > 0 && size > p.NumSectors*int64(p.SectorSize) {
		e.logInfo("partition too small, truncating",
			"label", p.Label,
			"source_bytes", size,
			"sectors", sectors,
		)
	}

	resp, err := e.exchange(BuildProgram(p, sectors), e.config.CommandTimeout)
	if err != nil {
		return err
	}
	if !resp.RawMode {
		return qdl.Protocolf(CmdProgram, "acknowledged without raw mode")
	}
	if err := checkRawSize(resp, sectors*int64(p.SectorSize)); err != nil {
		return err
	}

	if err := e.sendPayload(p, src, sectors, perChunk); err != nil {
		return err
	}

	_, err = e.awaitResponse(CmdProgram, e.config.RawTimeout)
	return err
}

// checkRawSize compares the byte count a raw-mode ACK declares, if any,
// with the payload about to be streamed.
func checkRawSize(resp Record, want int64) error {
	v, ok := resp.Attrs[AttrRawSize]
	if !ok {
		return nil
	}
	declared, err := strconv.ParseInt(v, 10, 64)
	if err != nil || declared < 0 {
		return qdl.Protocolf(CmdProgram, "invalid %s %q", AttrRawSize, v)
	}
	if declared != want {
		return qdl.Protocolf(CmdProgram, "device expects %d raw bytes, %d prepared", declared, want)
	}
	return nil
}

// sendPayload writes sectors sectors from src in chunks of at most
// perChunk sectors. Bytes past the end of the source are sent as zeros.
func (e *Engine) sendPayload(p *action.Program, src io.Reader, sectors, perChunk int64) error {
	ss := int64(p.SectorSize)
	buf := make([]byte, min(perChunk, sectors)*ss)
	total := sectors * ss
	started := time.Now()

	var sent int64
	for left := sectors; left > 0; {
		n := min(perChunk, left)
		chunk := buf[:n*ss]

		read, err := io.ReadFull(src, chunk)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return errors.Wrapf(err, "read %s", p.Filename)
		}
		clear(chunk[read:])

		w, err := e.dev.Write(chunk, true)
		if err != nil {
			return errors.Wrap(err, "write payload")
		}
		if w != len(chunk) {
			return &qdl.TransportError{Op: "write payload", Err: errors.Errorf("wrote %d of %d bytes", w, len(chunk))}
		}

		left -= n
		sent += int64(len(chunk))
		e.reportProgress(qdl.Progress{
			Phase:        qdl.PhaseFlashing,
			Step:         p.String(),
			Current:      e.current,
			Total:        e.total,
			BytesWritten: sent,
			BytesTotal:   total,
			ElapsedTime:  time.Since(started),
		})
	}

	e.logDebug("payload sent", "label", p.Label, "bytes", sent)
	return nil
}

func (e *Engine) provision(u *action.ProvisionUFS) error {
	if _, err := e.exchange(BuildUFSCommon(u.Common), e.config.CommandTimeout); err != nil {
		return errors.Wrap(err, "ufs common")
	}
	for _, lu := range u.LUs {
		if _, err := e.exchange(BuildUFSBody(lu), e.config.CommandTimeout); err != nil {
			return errors.Wrapf(err, "ufs lun %d", lu.LUNum)
		}
	}
	return nil
}

func (e *Engine) finish(store *action.Store) error {
	e.reportProgress(qdl.Progress{Phase: qdl.PhaseFinalizing, Current: e.total, Total: e.total})

	partition, err := store.BootablePartition()
	if err == nil {
		if _, err := e.exchange(BuildSetBootable(partition), e.config.CommandTimeout); err != nil {
			return err
		}
		e.logInfo("bootable storage drive set", "partition", partition)
	} else {
		e.logInfo("bootable storage drive not set", "reason", err.Error())
	}

	if u := store.Provisioning(); u != nil {
		if _, err := e.exchange(BuildUFSEpilogue(u.Epilogue), e.config.CommandTimeout); err != nil {
			return errors.Wrap(err, "ufs epilogue")
		}
	}

	if e.config.PowerAction == PowerNone {
		return nil
	}
	_, err = e.exchange(BuildPower(e.config.PowerAction), e.config.CommandTimeout)
	return err
}

// exchange sends cmd and waits for its terminal response. On NAK the
// response is returned together with a *NakError.
func (e *Engine) exchange(cmd *Command, timeout time.Duration) (Record, error) {
	doc, err := cmd.Encode()
	if err != nil {
		return Record{}, err
	}

	e.logDebug("send", "xml", string(doc))
	n, err := e.dev.Write(doc, true)
	if err != nil {
		return Record{}, errors.Wrapf(err, "send %s", cmd.Name)
	}
	if n != len(doc) {
		return Record{}, &qdl.TransportError{Op: "send " + cmd.Name, Err: errors.Errorf("wrote %d of %d bytes", n, len(doc))}
	}

	return e.awaitResponse(cmd.Name, timeout)
}

// awaitResponse consumes device documents until one holds a response. Log
// records before it are reported; documents after it stay buffered.
func (e *Engine) awaitResponse(op string, timeout time.Duration) (Record, error) {
	var logs []string
	for {
		doc, rest, ok := splitDocument(e.pending)
		if !ok {
			if err := e.fill(timeout); err != nil {
				return Record{}, errors.Wrapf(err, "await %s response", op)
			}
			continue
		}
		// doc aliases pending, so parse before shifting the buffer
		records, err := ParseRecords(doc)
		if err != nil {
			return Record{}, err
		}
		e.pending = append(e.pending[:0], rest...)

		var resp *Record
		for i := range records {
			r := records[i]
			if r.Kind == RecordLog {
				e.deviceLog(r.Value)
				logs = append(logs, r.Value)
				continue
			}
			if resp != nil {
				return Record{}, qdl.Protocolf(op, "more than one response in a document")
			}
			resp = &r
		}
		if resp == nil {
			continue
		}

		e.logDebug("response", "command", op, "value", resp.Value, "rawmode", resp.RawMode)
		if !resp.ACK() {
			return *resp, &NakError{Command: op, Logs: logs}
		}
		return *resp, nil
	}
}

// fill appends one transfer to the pending buffer.
func (e *Engine) fill(timeout time.Duration) error {
	n, err := e.dev.Read(e.readBuf, timeout)
	if err != nil {
		return err
	}
	e.logDebug("received", "xml", string(e.readBuf[:n]))

	e.pending = append(e.pending, e.readBuf[:n]...)
	if len(e.pending) > MaxResponseSize {
		return qdl.Protocolf("read response", "no complete document in %d bytes", len(e.pending))
	}
	return nil
}

func (e *Engine) deviceLog(msg string) {
	if e.config.LogHandler != nil {
		e.config.LogHandler(msg)
		return
	}
	e.logInfo("device log", "message", msg)
}

// reportProgress calls the progress callback if configured.
func (e *Engine) reportProgress(p qdl.Progress) {
	if e.config.ProgressCallback != nil {
		if p.ElapsedTime == 0 {
			p.ElapsedTime = time.Since(e.start)
		}
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
