package qdl

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error classes. Typed errors below match exactly one of these with errors.Is;
// timeouts match both ErrTimeout and ErrTransport.
var (
	ErrNotFound  = errors.New("no device in emergency download mode found")
	ErrTransport = errors.New("usb transfer failed")
	ErrTimeout   = errors.New("usb transfer timed out")
	ErrProtocol  = errors.New("protocol violation")
	ErrConfig    = errors.New("invalid configuration")
)

// TransportError reports a failed USB transfer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ProtocolError reports a record that is malformed, unexpected or out of
// bounds for the current protocol step.
type ProtocolError struct {
	Op     string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

// Protocolf builds a ProtocolError with a formatted reason.
func Protocolf(op, format string, args ...interface{}) error {
	return &ProtocolError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ActionFailedError reports that the device rejected the action at Index in
// the action store. No later action was sent.
type ActionFailedError struct {
	Index  int
	Action string
	Err    error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("action %d (%s) failed: %v", e.Index, e.Action, e.Err)
}

func (e *ActionFailedError) Unwrap() error { return e.Err }

// ConfigError reports an unusable input file. It is always raised before any
// USB traffic.
type ConfigError struct {
	File string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.File == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }
