package sahara

// ProtocolVersion is the Sahara version announced in the hello response.
const ProtocolVersion = 2

// ProtocolCompatible is the minimum Sahara version the host accepts.
const ProtocolCompatible = 1

// Command identifiers. Every record starts with the command and the total
// record length as little-endian uint32 values.
const (
	// CmdHello is sent by the device to open a session
	CmdHello = 0x01

	// CmdHelloResp is the host's answer to CmdHello
	CmdHelloResp = 0x02

	// CmdReadData asks the host for a slice of the image (32-bit fields)
	CmdReadData = 0x03

	// CmdEndOfImage tells the host the device has the whole image
	CmdEndOfImage = 0x04

	// CmdDone is the host's completion acknowledgement
	CmdDone = 0x05

	// CmdDoneResp carries the device's final transfer status
	CmdDoneResp = 0x06

	// CmdReset asks the device to reset
	CmdReset = 0x07

	// CmdResetResp acknowledges CmdReset
	CmdResetResp = 0x08

	// CmdReadData64 asks the host for a slice of the image (64-bit fields)
	CmdReadData64 = 0x12
)

// Fixed record lengths in bytes, header included.
const (
	HeaderSize = 8

	HelloSize      = 0x30
	HelloRespSize  = 0x30
	ReadDataSize   = 0x14
	EndOfImageSize = 0x10
	DoneSize       = 0x08
	DoneRespSize   = 0x0c
	ReadData64Size = 0x20
)

// Device modes announced in the hello record.
const (
	// ModeImageTxPending means the device waits for an image upload
	ModeImageTxPending = 0x00

	// ModeImageTxComplete means an image has already been received
	ModeImageTxComplete = 0x01

	// ModeMemoryDebug exposes device memory for crash dumps
	ModeMemoryDebug = 0x02

	// ModeCommand accepts Sahara client commands
	ModeCommand = 0x03
)

// Status codes.
const (
	// StatusSuccess is the successful hello-response and end-of-image status
	StatusSuccess = 0x00

	// ImageTxPending in a done response means the device expects more images
	ImageTxPending = 0x00

	// ImageTxComplete in a done response means the device starts the loader
	ImageTxComplete = 0x01
)

// DefaultReadBufferSize is large enough for any device-to-host record.
const DefaultReadBufferSize = 4096
