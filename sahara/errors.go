package sahara

import (
	"fmt"

	qdl "github.com/moffa90/go-qdl"
)

// StateError reports the state the engine was in when the session aborted.
// The wrapped error matches qdl.ErrProtocol or qdl.ErrTransport.
type StateError struct {
	State State
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("sahara %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

// IsStateError returns true if the error is a StateError.
func IsStateError(err error) bool {
	_, ok := err.(*StateError)
	return ok
}

// getCommandName returns a human-readable name for a command identifier.
func getCommandName(cmd uint32) string {
	switch cmd {
	case CmdHello:
		return "hello"
	case CmdHelloResp:
		return "hello response"
	case CmdReadData:
		return "read data"
	case CmdEndOfImage:
		return "end of image"
	case CmdDone:
		return "done"
	case CmdDoneResp:
		return "done response"
	case CmdReset:
		return "reset"
	case CmdResetResp:
		return "reset response"
	case CmdReadData64:
		return "read data 64"
	default:
		return fmt.Sprintf("unknown command 0x%02X", cmd)
	}
}

func unexpected(op string, cmd uint32) error {
	return &qdl.ProtocolError{Op: op, Reason: "unexpected " + getCommandName(cmd) + " record"}
}
