package qdl

import (
	"io"
	"time"
)

// Transport is a blocking, packet-oriented byte channel to a device in EDL
// mode. At most one Read or Write may be in flight at a time.
type Transport interface {
	// Read performs a single IN transfer of up to len(p) bytes and returns
	// the number of bytes transferred. A transfer that does not complete
	// within timeout fails with an error matching ErrTimeout.
	Read(p []byte, timeout time.Duration) (int, error)

	// Write sends p as one logical message. When eot is set and len(p) is a
	// multiple of the endpoint packet size, the message is terminated with a
	// zero-length packet so the device can see its end.
	Write(p []byte, eot bool) (int, error)
}

// Device is a Transport whose underlying resources must be released.
type Device interface {
	Transport
	io.Closer
}

// Opener opens the device a flashing run talks to.
type Opener func() (Device, error)
