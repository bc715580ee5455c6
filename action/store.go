package action

import "github.com/pkg/errors"

var (
	// ErrNoBootable means no program targets a boot loader partition
	ErrNoBootable = errors.New("no bootable partition")

	// ErrAmbiguousBootable means more than one program targets a boot
	// loader partition
	ErrAmbiguousBootable = errors.New("multiple bootable partitions")
)

// bootLabels are the program labels that identify the boot loader.
var bootLabels = map[string]bool{
	"xbl":   true,
	"xbl_a": true,
	"sbl1":  true,
}

// Store is an ordered sequence of actions.
//
// A Store is filled by one goroutine and then frozen before it is handed to
// the command engine. A frozen store is safe for concurrent reads.
type Store struct {
	actions []Action
	frozen  bool
}

// NewStore creates a store holding the given actions.
func NewStore(actions ...Action) *Store {
	s := &Store{}
	s.Add(actions...)
	return s
}

// Add appends actions in order. It panics if the store is frozen or an
// action is nil.
func (s *Store) Add(actions ...Action) {
	if s.frozen {
		panic("action store is frozen")
	}
	for _, a := range actions {
		if a == nil {
			panic("action cannot be nil")
		}
		s.actions = append(s.actions, a)
	}
}

// Freeze makes the store read-only.
func (s *Store) Freeze() { s.frozen = true }

// Frozen reports whether Freeze was called.
func (s *Store) Frozen() bool { return s.frozen }

// Len returns the number of actions.
func (s *Store) Len() int { return len(s.actions) }

// At returns the action at index i.
func (s *Store) At(i int) Action { return s.actions[i] }

// Actions returns a copy of the actions in order.
func (s *Store) Actions() []Action {
	out := make([]Action, len(s.actions))
	copy(out, s.actions)
	return out
}

// Provisioning returns the first UFS provisioning action, or nil.
func (s *Store) Provisioning() *ProvisionUFS {
	for _, a := range s.actions {
		if u, ok := a.(*ProvisionUFS); ok {
			return u
		}
	}
	return nil
}

// BootablePartition returns the physical partition of the single program
// labelled as a boot loader.
func (s *Store) BootablePartition() (int, error) {
	partition := -1
	for _, a := range s.actions {
		p, ok := a.(*Program)
		if !ok || !bootLabels[p.Label] {
			continue
		}
		if partition >= 0 {
			return 0, ErrAmbiguousBootable
		}
		partition = p.Partition
	}
	if partition < 0 {
		return 0, ErrNoBootable
	}
	return partition, nil
}
