package descriptor

import (
	"io"

	"github.com/moffa90/go-qdl/action"
)

// diskTarget is the patch filename addressing the device storage. Other
// patch targets refer to host-side images and are ignored.
const diskTarget = "DISK"

// LoadPatches reads a patch descriptor. Only patches that target the device
// storage are returned.
func LoadPatches(r io.Reader) ([]action.Action, error) {
	els, err := elements(r, "patch")
	if err != nil {
		return nil, err
	}

	var out []action.Action
	for _, el := range els {
		ar := attrReader{el: el}
		p := &action.Patch{
			SectorSize:  int(ar.number("SECTOR_SIZE_IN_BYTES")),
			ByteOffset:  ar.str("byte_offset"),
			Filename:    ar.str("filename"),
			Partition:   int(ar.number("physical_partition_number")),
			SizeInBytes: int(ar.number("size_in_bytes")),
			StartSector: ar.str("start_sector"),
			Value:       ar.str("value"),
			What:        ar.optional("what"),
		}
		if ar.err != nil {
			return nil, ar.err
		}
		if p.Filename != diskTarget {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
