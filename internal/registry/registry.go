// Package registry holds the process-local mapping from message type_id
// to its descriptor (name and fixed payload size). It is append-only
// after construction; concurrent reads need no synchronization beyond the
// mutex guarding registration itself.
package registry

import (
	"sync"

	"github.com/pitt-rnel/rtma/internal/rtmaerr"
	"github.com/pitt-rnel/rtma/internal/wire"
)

// Descriptor describes a registered message type.
type Descriptor struct {
	TypeID    int32
	Name      string
	FixedSize int // 0 for signals
}

// Registry maps type_id and name to Descriptor. The zero value is not
// usable; construct with New or NewCoreRegistry.
type Registry struct {
	mu        sync.RWMutex
	byID      map[int32]Descriptor
	byName    map[string]Descriptor
	threshold int32
}

// New returns an empty registry with the default core/user threshold.
func New() *Registry {
	return &Registry{
		byID:      make(map[int32]Descriptor),
		byName:    make(map[string]Descriptor),
		threshold: wire.DefaultCoreTypeThreshold,
	}
}

// NewCoreRegistry returns a registry pre-loaded with every core message
// type from internal/wire, sized for the standard header variant.
func NewCoreRegistry() *Registry {
	return NewCoreRegistryFor(wire.StandardHeader)
}

// NewCoreRegistryFor is NewCoreRegistry with payload sizes computed for
// the given header variant (FAILED_MESSAGE embeds a header, so its fixed
// size depends on the deployment's variant).
func NewCoreRegistryFor(variant wire.HeaderVariant) *Registry {
	r := New()
	for id, name := range wire.CoreTypeNames {
		_ = r.Register(Descriptor{
			TypeID:    int32(id),
			Name:      name,
			FixedSize: wire.CoreTypeSize(id, variant),
		})
	}
	return r
}

// SetThreshold changes the core/user type_id boundary. Intended to be
// called once, before any user type registration.
func (r *Registry) SetThreshold(threshold int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threshold = threshold
}

// Threshold returns the current core/user boundary.
func (r *Registry) Threshold() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threshold
}

// Register adds a descriptor. Returns rtmaerr.ErrDuplicateType if TypeID is
// already present.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.TypeID]; exists {
		return rtmaerr.ErrDuplicateType
	}

	r.byID[d.TypeID] = d
	r.byName[d.Name] = d
	return nil
}

// Lookup returns the descriptor for a type_id.
func (r *Registry) Lookup(typeID int32) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[typeID]
	return d, ok
}

// LookupByName returns the descriptor for a type name.
func (r *Registry) LookupByName(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// IsCore reports whether type_id falls in the core range (< threshold).
func (r *Registry) IsCore(typeID int32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return typeID < r.threshold
}

// Count returns the number of registered types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
