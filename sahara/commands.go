package sahara

import "encoding/binary"

// BuildHelloResp constructs the host's hello response. The mode is echoed
// back from the device's hello.
//
// Record structure:
//
//	[CMD][LEN][VERSION][COMPATIBLE][STATUS][MODE][RESERVED(24)]
func BuildHelloResp(mode uint32) []byte {
	rec := make([]byte, HelloRespSize)
	le := binary.LittleEndian

	le.PutUint32(rec[0:], CmdHelloResp)
	le.PutUint32(rec[4:], HelloRespSize)
	le.PutUint32(rec[8:], ProtocolVersion)
	le.PutUint32(rec[12:], ProtocolCompatible)
	le.PutUint32(rec[16:], StatusSuccess)
	le.PutUint32(rec[20:], mode)

	return rec
}

// BuildDone constructs the host's completion acknowledgement.
//
// Record structure:
//
//	[CMD][LEN]
func BuildDone() []byte {
	rec := make([]byte, DoneSize)
	binary.LittleEndian.PutUint32(rec[0:], CmdDone)
	binary.LittleEndian.PutUint32(rec[4:], DoneSize)
	return rec
}

// BuildHello constructs a device hello. The host never sends it; simulators
// and tests do.
//
// Record structure:
//
//	[CMD][LEN][VERSION][COMPATIBLE][MAX_LEN][MODE][RESERVED(24)]
func BuildHello(h Hello) []byte {
	rec := make([]byte, HelloSize)
	le := binary.LittleEndian

	le.PutUint32(rec[0:], CmdHello)
	le.PutUint32(rec[4:], HelloSize)
	le.PutUint32(rec[8:], h.Version)
	le.PutUint32(rec[12:], h.Compatible)
	le.PutUint32(rec[16:], h.MaxLength)
	le.PutUint32(rec[20:], h.Mode)

	return rec
}

// BuildReadData constructs a 32-bit read-data request.
//
// Record structure:
//
//	[CMD][LEN][IMAGE][OFFSET][LENGTH]
func BuildReadData(image, offset, length uint32) []byte {
	rec := make([]byte, ReadDataSize)
	le := binary.LittleEndian

	le.PutUint32(rec[0:], CmdReadData)
	le.PutUint32(rec[4:], ReadDataSize)
	le.PutUint32(rec[8:], image)
	le.PutUint32(rec[12:], offset)
	le.PutUint32(rec[16:], length)

	return rec
}

// BuildReadData64 constructs a 64-bit read-data request.
//
// Record structure:
//
//	[CMD][LEN][IMAGE(8)][OFFSET(8)][LENGTH(8)]
func BuildReadData64(image, offset, length uint64) []byte {
	rec := make([]byte, ReadData64Size)
	le := binary.LittleEndian

	le.PutUint32(rec[0:], CmdReadData64)
	le.PutUint32(rec[4:], ReadData64Size)
	le.PutUint64(rec[8:], image)
	le.PutUint64(rec[16:], offset)
	le.PutUint64(rec[24:], length)

	return rec
}

// BuildEndOfImage constructs an end-of-image record.
//
// Record structure:
//
//	[CMD][LEN][IMAGE][STATUS]
func BuildEndOfImage(image, status uint32) []byte {
	rec := make([]byte, EndOfImageSize)
	le := binary.LittleEndian

	le.PutUint32(rec[0:], CmdEndOfImage)
	le.PutUint32(rec[4:], EndOfImageSize)
	le.PutUint32(rec[8:], image)
	le.PutUint32(rec[12:], status)

	return rec
}

// BuildDoneResp constructs a done-response record.
//
// Record structure:
//
//	[CMD][LEN][STATUS]
func BuildDoneResp(status uint32) []byte {
	rec := make([]byte, DoneRespSize)
	le := binary.LittleEndian

	le.PutUint32(rec[0:], CmdDoneResp)
	le.PutUint32(rec[4:], DoneRespSize)
	le.PutUint32(rec[8:], status)

	return rec
}
