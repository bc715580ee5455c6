package action

// Kind identifies the variant of an Action.
type Kind int

const (
	KindProgram Kind = iota
	KindPatch
	KindProvisionUFS
)

func (k Kind) String() string {
	switch k {
	case KindProgram:
		return "program"
	case KindPatch:
		return "patch"
	case KindProvisionUFS:
		return "ufs"
	default:
		return "unknown"
	}
}

// Action is one operation to run on the device. The set of implementations
// is closed: *Program, *Patch and *ProvisionUFS.
type Action interface {
	// Kind reports the variant
	Kind() Kind

	// String describes the action for logs and error messages
	String() string

	action()
}
