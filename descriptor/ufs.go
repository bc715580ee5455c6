package descriptor

import (
	"io"

	"github.com/pkg/errors"

	"github.com/moffa90/go-qdl/action"
)

// LoadUFS reads a UFS provisioning descriptor. It needs exactly one common
// entry (bNumberLU), at least one logical unit entry (LUNum) and exactly one
// epilogue (commit). The epilogue's commit flag must equal finalize, so a
// permanent layout is never written by accident.
func LoadUFS(r io.Reader, finalize bool) (*action.ProvisionUFS, error) {
	els, err := elements(r, "ufs")
	if err != nil {
		return nil, err
	}

	var (
		u           action.ProvisionUFS
		hasCommon   bool
		hasEpilogue bool
	)
	for _, el := range els {
		ar := attrReader{el: el}
		switch {
		case el.has("bNumberLU"):
			if hasCommon {
				return nil, errors.Errorf("line %d: duplicate common entry", el.line)
			}
			hasCommon = true
			u.Common = action.UFSCommon{
				NumberLU:           uint(ar.number("bNumberLU")),
				BootEnable:         ar.flag("bBootEnable"),
				DescrAccessEn:      ar.flag("bDescrAccessEn"),
				InitPowerMode:      uint(ar.number("bInitPowerMode")),
				HighPriorityLUN:    uint(ar.number("bHighPriorityLUN")),
				SecureRemovalType:  uint(ar.number("bSecureRemovalType")),
				InitActiveICCLevel: uint(ar.number("bInitActiveICCLevel")),
				PeriodicRTCUpdate:  uint(ar.number("wPeriodicRTCUpdate")),
				ConfigDescrLock:    ar.flag("bConfigDescrLock"),
			}

		case el.has("LUNum"):
			u.LUs = append(u.LUs, action.UFSLogicalUnit{
				LUNum:               uint(ar.number("LUNum")),
				Enable:              ar.flag("bLUEnable"),
				BootLunID:           uint(ar.number("bBootLunID")),
				SizeInKB:            uint(ar.number("size_in_kb")),
				DataReliability:     uint(ar.number("bDataReliability")),
				WriteProtect:        uint(ar.number("bLUWriteProtect")),
				MemoryType:          uint(ar.number("bMemoryType")),
				LogicalBlockSize:    uint(ar.number("bLogicalBlockSize")),
				ProvisioningType:    uint(ar.number("bProvisioningType")),
				ContextCapabilities: uint(ar.number("wContextCapabilities")),
				Description:         ar.optional("desc"),
			})

		case el.has("commit"):
			if hasEpilogue {
				return nil, errors.Errorf("line %d: duplicate epilogue", el.line)
			}
			hasEpilogue = true
			u.Epilogue = action.UFSEpilogue{
				LUNToGrow: uint(ar.number("LUNtoGrow")),
				Commit:    ar.flag("commit"),
			}

		default:
			return nil, errors.Errorf("line %d: unrecognized ufs entry", el.line)
		}
		if ar.err != nil {
			return nil, ar.err
		}
	}

	switch {
	case !hasCommon:
		return nil, errors.New("missing common entry")
	case len(u.LUs) == 0:
		return nil, errors.New("no logical units")
	case !hasEpilogue:
		return nil, errors.New("missing epilogue")
	}

	if u.Epilogue.Commit != finalize {
		return nil, errors.Errorf("commit=%t does not match finalize provisioning=%t", u.Epilogue.Commit, finalize)
	}
	return &u, nil
}
