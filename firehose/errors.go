package firehose

import "fmt"

// NakError reports that the device answered a command with NAK.
type NakError struct {
	// Command is the rejected command element
	Command string

	// Logs are the diagnostic records received with the NAK
	Logs []string
}

func (e *NakError) Error() string {
	if len(e.Logs) == 0 {
		return fmt.Sprintf("device rejected %s", e.Command)
	}
	return fmt.Sprintf("device rejected %s: %s", e.Command, e.Logs[len(e.Logs)-1])
}

// IsNakError returns true if the error is a NakError.
func IsNakError(err error) bool {
	_, ok := err.(*NakError)
	return ok
}
