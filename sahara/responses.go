package sahara

import (
	"encoding/binary"

	qdl "github.com/moffa90/go-qdl"
)

// ParseHeader validates the record header against the number of bytes
// actually received and returns it.
//
// A record's length field must equal the transfer length; Sahara never
// splits or batches records.
func ParseHeader(rec []byte) (Header, error) {
	if len(rec) < HeaderSize {
		return Header{}, qdl.Protocolf("parse header", "record too short: got %d bytes, minimum is %d", len(rec), HeaderSize)
	}

	h := Header{
		Command: binary.LittleEndian.Uint32(rec[0:4]),
		Length:  binary.LittleEndian.Uint32(rec[4:8]),
	}
	if int(h.Length) != len(rec) {
		return Header{}, qdl.Protocolf("parse header", "length mismatch: header says %d bytes, received %d", h.Length, len(rec))
	}
	return h, nil
}

// expect checks that rec is a complete record of the given command and size.
func expect(op string, rec []byte, cmd uint32, size int) error {
	h, err := ParseHeader(rec)
	if err != nil {
		return err
	}
	if h.Command != cmd {
		return qdl.Protocolf(op, "unexpected command 0x%02X, expected 0x%02X", h.Command, cmd)
	}
	if len(rec) != size {
		return qdl.Protocolf(op, "invalid record length: got %d bytes, expected %d", len(rec), size)
	}
	return nil
}

// ParseHello parses a device hello.
//
// Data format (HelloSize bytes):
//
//	[CMD][LEN][VERSION][COMPATIBLE][MAX_LEN][MODE][RESERVED(24)]
func ParseHello(rec []byte) (*Hello, error) {
	if err := expect("parse hello", rec, CmdHello, HelloSize); err != nil {
		return nil, err
	}

	le := binary.LittleEndian
	return &Hello{
		Version:    le.Uint32(rec[8:12]),
		Compatible: le.Uint32(rec[12:16]),
		MaxLength:  le.Uint32(rec[16:20]),
		Mode:       le.Uint32(rec[20:24]),
	}, nil
}

// ParseReadData parses a 32-bit read-data request.
//
// Data format (ReadDataSize bytes):
//
//	[CMD][LEN][IMAGE][OFFSET][LENGTH]
func ParseReadData(rec []byte) (*ReadRequest, error) {
	if err := expect("parse read data", rec, CmdReadData, ReadDataSize); err != nil {
		return nil, err
	}

	le := binary.LittleEndian
	return &ReadRequest{
		Image:  uint64(le.Uint32(rec[8:12])),
		Offset: uint64(le.Uint32(rec[12:16])),
		Length: uint64(le.Uint32(rec[16:20])),
	}, nil
}

// ParseReadData64 parses a 64-bit read-data request.
//
// Data format (ReadData64Size bytes):
//
//	[CMD][LEN][IMAGE(8)][OFFSET(8)][LENGTH(8)]
func ParseReadData64(rec []byte) (*ReadRequest, error) {
	if err := expect("parse read data 64", rec, CmdReadData64, ReadData64Size); err != nil {
		return nil, err
	}

	le := binary.LittleEndian
	return &ReadRequest{
		Image:  le.Uint64(rec[8:16]),
		Offset: le.Uint64(rec[16:24]),
		Length: le.Uint64(rec[24:32]),
	}, nil
}

// ParseEndOfImage parses an end-of-image record.
//
// Data format (EndOfImageSize bytes):
//
//	[CMD][LEN][IMAGE][STATUS]
func ParseEndOfImage(rec []byte) (*EndOfImage, error) {
	if err := expect("parse end of image", rec, CmdEndOfImage, EndOfImageSize); err != nil {
		return nil, err
	}

	le := binary.LittleEndian
	return &EndOfImage{
		Image:  le.Uint32(rec[8:12]),
		Status: le.Uint32(rec[12:16]),
	}, nil
}

// ParseDoneResp parses the device's done response.
//
// Data format (DoneRespSize bytes):
//
//	[CMD][LEN][STATUS]
func ParseDoneResp(rec []byte) (*DoneResponse, error) {
	if err := expect("parse done response", rec, CmdDoneResp, DoneRespSize); err != nil {
		return nil, err
	}

	return &DoneResponse{
		Status: binary.LittleEndian.Uint32(rec[8:12]),
	}, nil
}

// ParseHelloResp parses a host hello response and returns the echoed mode
// and the status. Used by device simulators.
func ParseHelloResp(rec []byte) (mode, status uint32, err error) {
	if err := expect("parse hello response", rec, CmdHelloResp, HelloRespSize); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(rec[20:24]), binary.LittleEndian.Uint32(rec[16:20]), nil
}

// ParseDone validates a host done record. Used by device simulators.
func ParseDone(rec []byte) error {
	return expect("parse done", rec, CmdDone, DoneSize)
}
