package action

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Program writes the contents of a source file to a range of sectors.
type Program struct {
	// Label is the partition label, e.g. "xbl_a"
	Label string

	// Filename is the source name as written in the descriptor
	Filename string

	// Path is the resolved source location on the host
	Path string

	// Data, when non-nil, is used as the source instead of Path
	Data []byte

	// SectorSize is the device sector size in bytes
	SectorSize int

	// FileSectorOffset is the first source sector to send
	FileSectorOffset int64

	// NumSectors is the size of the target range; 0 means unbounded
	NumSectors int64

	// Partition is the physical partition number
	Partition int

	// StartSector is the first target sector. The device evaluates it, so it
	// may be an expression such as "NUM_DISK_SECTORS-5."
	StartSector string
}

func (*Program) action() {}

// Kind returns KindProgram.
func (*Program) Kind() Kind { return KindProgram }

func (p *Program) String() string {
	label := p.Label
	if label == "" {
		label = p.Filename
	}
	return fmt.Sprintf("program %s (partition %d, sector %s)", label, p.Partition, p.StartSector)
}

// Sectors returns the number of sectors needed to send a source of the given
// size, truncated to NumSectors when that is set and smaller.
func (p *Program) Sectors(size int64) int64 {
	if p.SectorSize <= 0 {
		return 0
	}
	ss := int64(p.SectorSize)
	n := (size + ss - 1) / ss
	if p.NumSectors > 0 && p.NumSectors < n {
		n = p.NumSectors
	}
	return n
}

// Open returns a reader positioned FileSectorOffset sectors into the
// source, together with the number of bytes left from that position. The
// caller closes the reader.
func (p *Program) Open() (io.ReadCloser, int64, error) {
	offset := p.FileSectorOffset * int64(p.SectorSize)

	if p.Data != nil {
		r := bytes.NewReader(p.Data)
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return nil, 0, errors.Wrapf(err, "seek %s", p.Filename)
		}
		return io.NopCloser(r), remaining(int64(len(p.Data)), offset), nil
	}

	f, err := os.Open(p.Path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "open program source")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, errors.Wrapf(err, "stat %s", p.Path)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, 0, errors.Wrapf(err, "seek %s", p.Path)
	}
	return f, remaining(info.Size(), offset), nil
}

func remaining(size, offset int64) int64 {
	if offset >= size {
		return 0
	}
	return size - offset
}
