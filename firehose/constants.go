package firehose

import "time"

// Response values.
const (
	ValueACK = "ACK"
	ValueNAK = "NAK"
)

// Command element names.
const (
	CmdConfigure   = "configure"
	CmdProgram     = "program"
	CmdPatch       = "patch"
	CmdUFS         = "ufs"
	CmdSetBootable = "setbootablestoragedrive"
	CmdPower       = "power"
)

// AttrRawSize optionally accompanies a raw-mode ACK with the number of
// payload bytes the device will accept.
const AttrRawSize = "size_in_bytes"

// Power actions for the closing sequence.
const (
	PowerReset = "reset"
	PowerOff   = "off"
	PowerNone  = "none"
)

// Storage kinds accepted by the configure command.
var StorageKinds = []string{"emmc", "ufs", "nand", "nvme", "spinor"}

const (
	// DefaultMaxPayloadSize is the raw payload size requested in configure
	DefaultMaxPayloadSize = 1024 * 1024

	// MaxResponseSize bounds the bytes buffered while waiting for a
	// complete response document
	MaxResponseSize = 64 * 1024

	// DefaultReadSize is the size of a single response read
	DefaultReadSize = 4096

	// DefaultBootDelay is how long the loader needs to start after upload
	DefaultBootDelay = 3 * time.Second

	// DefaultCommandTimeout bounds each read while waiting for a response
	DefaultCommandTimeout = 5 * time.Second

	// DefaultRawTimeout bounds the wait for the response that follows a
	// raw payload, which includes the device's storage write
	DefaultRawTimeout = 30 * time.Second

	// DrainTimeout ends the collection of unsolicited log records after boot
	DrainTimeout = time.Second
)
