// Package action defines the flashing operations a device is asked to
// perform and the ordered store that carries them from the descriptor
// loaders to the command engine.
//
// There are three kinds of action:
//   - Program writes a source file to a sector range
//   - Patch rewrites a value at a byte offset of a sector range
//   - ProvisionUFS configures the logical units of UFS storage
//
// A Store keeps actions in the order they were added. The command engine
// executes them in that order and stops at the first failure. Once a store
// is frozen it is read-only:
//
//	store := action.NewStore()
//	store.Add(patches...)
//	store.Freeze()
package action
