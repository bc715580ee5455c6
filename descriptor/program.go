package descriptor

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/moffa90/go-qdl/action"
)

// LoadPrograms reads a program descriptor. Entries without a filename are
// placeholders and are skipped. Source files are looked up in includeDir
// first, then as given; a source found in neither place is an error.
func LoadPrograms(r io.Reader, includeDir string) ([]action.Action, error) {
	els, err := elements(r, "program")
	if err != nil {
		return nil, err
	}

	var out []action.Action
	for _, el := range els {
		ar := attrReader{el: el}
		p := &action.Program{
			SectorSize:       int(ar.number("SECTOR_SIZE_IN_BYTES")),
			FileSectorOffset: int64(ar.number("file_sector_offset")),
			Filename:         ar.str("filename"),
			Label:            ar.str("label"),
			NumSectors:       int64(ar.number("num_partition_sectors")),
			Partition:        int(ar.number("physical_partition_number")),
			StartSector:      ar.str("start_sector"),
		}
		if ar.err != nil {
			return nil, ar.err
		}
		if p.Filename == "" {
			continue
		}
		if p.SectorSize == 0 {
			return nil, errors.Errorf("line %d: %s has zero sector size", el.line, p.Filename)
		}

		path, err := resolve(p.Filename, includeDir)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", el.line)
		}
		p.Path = path
		out = append(out, p)
	}
	return out, nil
}

func resolve(name, includeDir string) (string, error) {
	if includeDir != "" {
		candidate := filepath.Join(includeDir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if _, err := os.Stat(name); err != nil {
		return "", errors.Errorf("program source %s not found", name)
	}
	return name, nil
}
