package sahara

// Hello is the device's session-opening record.
type Hello struct {
	// Version is the device's Sahara protocol version
	Version uint32

	// Compatible is the oldest version the device can talk to
	Compatible uint32

	// MaxLength is the largest command packet the device accepts
	MaxLength uint32

	// Mode is the requested session mode, see Mode* constants
	Mode uint32
}

// ReadRequest asks the host for Length bytes of image Image at Offset.
// Both 32-bit and 64-bit requests decode to this type.
type ReadRequest struct {
	Image  uint64
	Offset uint64
	Length uint64
}

// End returns the offset one past the requested range. ok is false when the
// range overflows.
func (r ReadRequest) End() (end uint64, ok bool) {
	end = r.Offset + r.Length
	return end, end >= r.Offset
}

// EndOfImage reports that the device has finished pulling an image.
type EndOfImage struct {
	Image  uint32
	Status uint32
}

// DoneResponse carries the device's final image transfer status.
type DoneResponse struct {
	Status uint32
}

// Header is the common prefix of every record.
type Header struct {
	Command uint32
	Length  uint32
}
