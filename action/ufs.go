package action

import "fmt"

// UFSCommon holds the device-wide provisioning parameters.
type UFSCommon struct {
	NumberLU           uint
	BootEnable         bool
	DescrAccessEn      bool
	InitPowerMode      uint
	HighPriorityLUN    uint
	SecureRemovalType  uint
	InitActiveICCLevel uint
	PeriodicRTCUpdate  uint
	ConfigDescrLock    bool
}

// UFSLogicalUnit describes one logical unit.
type UFSLogicalUnit struct {
	LUNum               uint
	Enable              bool
	BootLunID           uint
	SizeInKB            uint
	DataReliability     uint
	WriteProtect        uint
	MemoryType          uint
	LogicalBlockSize    uint
	ProvisioningType    uint
	ContextCapabilities uint
	Description         string
}

// UFSEpilogue closes a provisioning session. Commit makes the layout
// permanent and cannot be undone on the device.
type UFSEpilogue struct {
	LUNToGrow uint
	Commit    bool
}

// ProvisionUFS configures the logical unit layout of UFS storage.
type ProvisionUFS struct {
	Common   UFSCommon
	LUs      []UFSLogicalUnit
	Epilogue UFSEpilogue
}

func (*ProvisionUFS) action() {}

// Kind returns KindProvisionUFS.
func (*ProvisionUFS) Kind() Kind { return KindProvisionUFS }

func (u *ProvisionUFS) String() string {
	return fmt.Sprintf("provision ufs (%d logical units, commit %t)", len(u.LUs), u.Epilogue.Commit)
}
