package action

import "fmt"

// Patch asks the device to write Value into SizeInBytes bytes at ByteOffset
// of the given sector range. Offsets and values are passed through unchanged
// since the device evaluates expressions like "NUM_DISK_SECTORS-1.".
type Patch struct {
	SectorSize  int
	ByteOffset  string
	Filename    string
	Partition   int
	SizeInBytes int
	StartSector string
	Value       string

	// What is the human-readable purpose from the descriptor
	What string
}

func (*Patch) action() {}

// Kind returns KindPatch.
func (*Patch) Kind() Kind { return KindPatch }

func (p *Patch) String() string {
	if p.What != "" {
		return fmt.Sprintf("patch %q (partition %d)", p.What, p.Partition)
	}
	return fmt.Sprintf("patch partition %d sector %s offset %s", p.Partition, p.StartSector, p.ByteOffset)
}
