package qdltest

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	qdl "github.com/moffa90/go-qdl"
	"github.com/moffa90/go-qdl/firehose"
	"github.com/moffa90/go-qdl/sahara"
)

type phase int

const (
	phaseHello phase = iota
	phaseServing
	phaseDone
	phaseFirehose
)

// Payload is the raw data received after one program command.
type Payload struct {
	Command *firehose.Command
	Data    []byte
}

// Device is a simulated device. It is safe for concurrent use, although the
// protocol engines use it from one goroutine.
type Device struct {
	mu  sync.Mutex
	cfg Config

	phase  phase
	queue  [][]byte
	closed bool

	loader  []byte
	offset  int
	pending int

	commands   []*firehose.Command
	payloads   []*Payload
	rawLeft    int
	configured int
	failures   []error
}

// New creates a simulated device.
func New(opts ...Option) *Device {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Device{cfg: cfg}
	switch {
	case cfg.FirehoseOnly:
		d.startLoader()
	case !cfg.Silent:
		d.send(sahara.BuildHello(sahara.Hello{
			Version:    sahara.ProtocolVersion,
			Compatible: sahara.ProtocolCompatible,
			MaxLength:  uint32(cfg.ChunkSize),
			Mode:       cfg.HelloMode,
		}))
	}
	return d
}

// Read returns the next queued transfer, or a timeout when the device has
// nothing to say.
func (d *Device) Read(p []byte, timeout time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, &qdl.TransportError{Op: "bulk read", Err: errors.New("device closed")}
	}
	if len(d.queue) == 0 {
		return 0, &qdl.TransportError{Op: "bulk read", Err: qdl.ErrTimeout}
	}

	next := d.queue[0]
	n := copy(p, next)
	if n < len(next) {
		d.queue[0] = next[n:]
	} else {
		d.queue = d.queue[1:]
	}
	return n, nil
}

// Write accepts one host transfer.
func (d *Device) Write(p []byte, eot bool) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, &qdl.TransportError{Op: "bulk write", Err: errors.New("device closed")}
	}

	var err error
	switch d.phase {
	case phaseHello:
		err = d.handleHelloResp(p)
	case phaseServing:
		err = d.handleLoaderData(p)
	case phaseDone:
		err = d.handleDone(p)
	case phaseFirehose:
		err = d.handleFirehose(p)
	}
	if err != nil {
		d.failures = append(d.failures, err)
	}
	return len(p), nil
}

// Close marks the device as closed.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Loader returns the loader bytes received during the Sahara phase.
func (d *Device) Loader() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.loader...)
}

// Commands returns every XML command received, configure included.
func (d *Device) Commands() []*firehose.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*firehose.Command(nil), d.commands...)
}

// CommandNames returns the element names of the received commands.
func (d *Device) CommandNames() []string {
	var names []string
	for _, c := range d.Commands() {
		names = append(names, c.Name)
	}
	return names
}

// Payloads returns the raw payloads received after program commands.
func (d *Device) Payloads() []*Payload {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Payload(nil), d.payloads...)
}

// Failures returns host writes the device could not make sense of.
func (d *Device) Failures() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]error(nil), d.failures...)
}

func (d *Device) send(p []byte) {
	d.queue = append(d.queue, p)
}

func (d *Device) handleHelloResp(p []byte) error {
	if _, _, err := sahara.ParseHelloResp(p); err != nil {
		return err
	}
	d.phase = phaseServing
	d.requestNext()
	return nil
}

// requestNext asks for the next loader chunk, or ends the image.
func (d *Device) requestNext() {
	if d.offset >= d.cfg.LoaderSize {
		d.phase = phaseDone
		d.send(sahara.BuildEndOfImage(0, d.cfg.EndOfImageStatus))
		return
	}

	d.pending = d.cfg.ChunkSize
	if left := d.cfg.LoaderSize - d.offset; left < d.pending {
		d.pending = left
	}
	if d.cfg.ReadData64 {
		d.send(sahara.BuildReadData64(0, uint64(d.offset), uint64(d.pending)))
	} else {
		d.send(sahara.BuildReadData(0, uint32(d.offset), uint32(d.pending)))
	}
}

func (d *Device) handleLoaderData(p []byte) error {
	if len(p) != d.pending {
		return errors.Errorf("loader chunk at %d: got %d bytes, requested %d", d.offset, len(p), d.pending)
	}
	d.loader = append(d.loader, p...)
	d.offset += len(p)
	d.requestNext()
	return nil
}

func (d *Device) handleDone(p []byte) error {
	if err := sahara.ParseDone(p); err != nil {
		return err
	}
	d.send(sahara.BuildDoneResp(sahara.ImageTxComplete))
	d.startLoader()
	return nil
}

func (d *Device) startLoader() {
	d.phase = phaseFirehose
	for _, msg := range d.cfg.BootLog {
		d.send(logDocument(msg))
	}
}

func (d *Device) handleFirehose(p []byte) error {
	if d.rawLeft > 0 {
		return d.handleRaw(p)
	}

	cmd, err := firehose.ParseCommand(p)
	if err != nil {
		return err
	}
	d.commands = append(d.commands, cmd)

	if cmd.Name == firehose.CmdConfigure {
		return d.handleConfigure(cmd)
	}

	index := len(d.commands) - 1 - d.configured
	if index == d.cfg.NakAt {
		d.respond(firehose.ValueNAK, nil)
		return nil
	}

	switch cmd.Name {
	case firehose.CmdProgram:
		return d.handleProgram(cmd)
	default:
		d.respond(firehose.ValueACK, nil)
		return nil
	}
}

func (d *Device) handleConfigure(cmd *firehose.Command) error {
	d.configured++

	requested, err := intAttr(cmd, "MaxPayloadSizeToTargetInBytes")
	if err != nil {
		return err
	}

	if d.cfg.ProposePayload > 0 && d.configured == 1 && requested != d.cfg.ProposePayload {
		d.respond(firehose.ValueNAK, []xml.Attr{
			attr("MaxPayloadSizeToTargetInBytes", strconv.Itoa(d.cfg.ProposePayload)),
		})
		return nil
	}

	attrs := []xml.Attr{attr("MaxPayloadSizeToTargetInBytes", strconv.Itoa(requested))}
	if d.cfg.SupportedPayload > 0 {
		attrs = append(attrs, attr("MaxPayloadSizeToTargetInBytesSupported", strconv.Itoa(d.cfg.SupportedPayload)))
	}
	d.respond(firehose.ValueACK, attrs)
	return nil
}

func (d *Device) handleProgram(cmd *firehose.Command) error {
	sectorSize, err := intAttr(cmd, "SECTOR_SIZE_IN_BYTES")
	if err != nil {
		return err
	}
	sectors, err := intAttr(cmd, "num_partition_sectors")
	if err != nil {
		return err
	}

	if d.cfg.RawModeOff {
		d.respond(firehose.ValueACK, []xml.Attr{attr("rawmode", "false")})
		return nil
	}

	d.rawLeft = sectorSize * sectors
	d.payloads = append(d.payloads, &Payload{Command: cmd})
	ack := []xml.Attr{attr("rawmode", "true")}
	if d.cfg.DeclareRawSize {
		ack = append(ack, attr(firehose.AttrRawSize, strconv.Itoa(d.rawLeft+d.cfg.RawSizeSkew)))
	}
	d.respond(firehose.ValueACK, ack)
	if d.rawLeft == 0 {
		d.respond(firehose.ValueACK, []xml.Attr{attr("rawmode", "false")})
	}
	return nil
}

func (d *Device) handleRaw(p []byte) error {
	if len(p) > d.rawLeft {
		return errors.Errorf("raw payload overrun: got %d bytes, %d expected", len(p), d.rawLeft)
	}

	cur := d.payloads[len(d.payloads)-1]
	cur.Data = append(cur.Data, p...)
	d.rawLeft -= len(p)
	if d.rawLeft == 0 {
		d.respond(firehose.ValueACK, []xml.Attr{attr("rawmode", "false")})
	}
	return nil
}

// respond queues the configured log documents and a response document,
// split into transfers of ResponseChunk bytes.
func (d *Device) respond(value string, attrs []xml.Attr) {
	var b strings.Builder
	for i := 0; i < d.cfg.LogsPerResponse; i++ {
		b.Write(logDocument(fmt.Sprintf("log %d for command %d", i, len(d.commands))))
	}
	b.Write(document("response", append([]xml.Attr{attr("value", value)}, attrs...)))

	out := []byte(b.String())
	chunk := d.cfg.ResponseChunk
	if chunk <= 0 {
		d.send(out)
		return
	}
	for len(out) > 0 {
		n := chunk
		if n > len(out) {
			n = len(out)
		}
		d.send(out[:n])
		out = out[n:]
	}
}

func logDocument(msg string) []byte {
	return document("log", []xml.Attr{attr("value", msg)})
}

func document(name string, attrs []xml.Attr) []byte {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<data>\n<")
	b.WriteString(name)
	for _, a := range attrs {
		b.WriteString(" ")
		b.WriteString(a.Name.Local)
		b.WriteString(`="`)
		_ = xml.EscapeText(&b, []byte(a.Value))
		b.WriteString(`"`)
	}
	b.WriteString(" />\n</data>")
	return []byte(b.String())
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func intAttr(cmd *firehose.Command, name string) (int, error) {
	v, ok := cmd.Get(name)
	if !ok {
		return 0, errors.Errorf("%s without %s", cmd.Name, name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s %s", cmd.Name, name)
	}
	return n, nil
}
