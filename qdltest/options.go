package qdltest

// Config holds the simulated device behavior.
type Config struct {
	// LoaderSize is the number of loader bytes the boot ROM requests
	LoaderSize int

	// ChunkSize is the length of each loader read request
	ChunkSize int

	// ReadData64 makes the boot ROM use 64-bit read requests
	ReadData64 bool

	// HelloMode is announced in the hello record
	HelloMode uint32

	// Silent makes the boot ROM never send a hello
	Silent bool

	// EndOfImageStatus is reported in the end-of-image record
	EndOfImageStatus uint32

	// FirehoseOnly starts the device with the loader already running
	FirehoseOnly bool

	// BootLog is sent unsolicited when the loader starts
	BootLog []string

	// NakAt is the index of the command to reject, counting from the first
	// command after configure. Negative disables rejection.
	NakAt int

	// LogsPerResponse is the number of log documents sent before each
	// response
	LogsPerResponse int

	// ResponseChunk splits device documents into transfers of at most this
	// many bytes; 0 sends each response in one transfer
	ResponseChunk int

	// RawModeOff acknowledges program commands without rawmode
	RawModeOff bool

	// ProposePayload makes the first configure NAK with this payload size
	ProposePayload int

	// SupportedPayload is announced as MaxPayloadSizeToTargetInBytesSupported
	SupportedPayload int

	// DeclareRawSize adds the expected payload byte count to raw-mode ACKs
	DeclareRawSize bool

	// RawSizeSkew is added to the declared byte count
	RawSizeSkew int
}

func defaultConfig() Config {
	return Config{
		ChunkSize: 4096,
		NakAt:     -1,
	}
}

// Option configures a simulated device.
type Option func(*Config)

// WithLoaderSize sets the loader size the boot ROM requests.
func WithLoaderSize(n int) Option {
	return func(c *Config) {
		c.LoaderSize = n
	}
}

// WithChunkSize sets the length of each loader read request.
func WithChunkSize(n int) Option {
	return func(c *Config) {
		c.ChunkSize = n
	}
}

// WithReadData64 switches the boot ROM to 64-bit read requests.
func WithReadData64() Option {
	return func(c *Config) {
		c.ReadData64 = true
	}
}

// WithHelloMode sets the mode announced in the hello.
func WithHelloMode(mode uint32) Option {
	return func(c *Config) {
		c.HelloMode = mode
	}
}

// WithSilence makes the boot ROM never say hello.
func WithSilence() Option {
	return func(c *Config) {
		c.Silent = true
	}
}

// WithEndOfImageStatus sets the end-of-image status.
func WithEndOfImageStatus(status uint32) Option {
	return func(c *Config) {
		c.EndOfImageStatus = status
	}
}

// WithFirehoseOnly starts the device with its loader running.
func WithFirehoseOnly() Option {
	return func(c *Config) {
		c.FirehoseOnly = true
	}
}

// WithBootLog sets the log records sent when the loader starts.
func WithBootLog(msgs ...string) Option {
	return func(c *Config) {
		c.BootLog = msgs
	}
}

// WithNakAt rejects the command at index i after configure.
func WithNakAt(i int) Option {
	return func(c *Config) {
		c.NakAt = i
	}
}

// WithLogsPerResponse sends n log documents before every response.
func WithLogsPerResponse(n int) Option {
	return func(c *Config) {
		c.LogsPerResponse = n
	}
}

// WithResponseChunk splits device documents into transfers of n bytes.
func WithResponseChunk(n int) Option {
	return func(c *Config) {
		c.ResponseChunk = n
	}
}

// WithRawModeOff acknowledges program commands without raw mode.
func WithRawModeOff() Option {
	return func(c *Config) {
		c.RawModeOff = true
	}
}

// WithProposedPayload makes the first configure fail with a proposal.
func WithProposedPayload(size int) Option {
	return func(c *Config) {
		c.ProposePayload = size
	}
}

// WithSupportedPayload announces a larger supported payload on ACK.
func WithSupportedPayload(size int) Option {
	return func(c *Config) {
		c.SupportedPayload = size
	}
}

// WithDeclaredRawSize announces the payload byte count on raw-mode ACKs.
func WithDeclaredRawSize() Option {
	return func(c *Config) {
		c.DeclareRawSize = true
	}
}

// WithRawSizeSkew announces a payload byte count off by delta.
func WithRawSizeSkew(delta int) Option {
	return func(c *Config) {
		c.DeclareRawSize = true
		c.RawSizeSkew = delta
	}
}
