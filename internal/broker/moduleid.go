package broker

import "github.com/pitt-rnel/rtma/internal/rtmaerr"

// moduleIDAllocator hands out dynamic module ids in [DynModIDStart,
// MaxModules) and tracks which ids (dynamic or explicitly requested) are
// currently in use.
type moduleIDAllocator struct {
	start, limit int
	inUse        map[int16]bool
}

func newModuleIDAllocator(start, limit int) *moduleIDAllocator {
	return &moduleIDAllocator{start: start, limit: limit, inUse: make(map[int16]bool)}
}

// Reserve claims modID explicitly. Returns ErrModuleIDInUse if already
// held by another client: a CONNECT requesting an id that is taken is
// refused, not silently reassigned.
func (a *moduleIDAllocator) Reserve(modID int16) error {
	if a.inUse[modID] {
		return rtmaerr.ErrModuleIDInUse
	}
	a.inUse[modID] = true
	return nil
}

// Allocate picks the lowest free id in [start, limit).
func (a *moduleIDAllocator) Allocate() (int16, error) {
	for id := a.start; id < a.limit; id++ {
		if !a.inUse[int16(id)] {
			a.inUse[int16(id)] = true
			return int16(id), nil
		}
	}
	return 0, rtmaerr.ErrNoFreeModuleID
}

// Release frees modID for reuse, called on disconnect.
func (a *moduleIDAllocator) Release(modID int16) {
	delete(a.inUse, modID)
}
