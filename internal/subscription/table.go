// Package subscription implements the type_id -> subscriber set mapping
// that drives message forwarding. Subscriptions are exact matches on a
// numeric type_id; there are no wildcard filters.
package subscription

import "sync"

// Subscriber is anything identifiable that can be registered against a
// type_id. The broker package's ClientRecord satisfies this.
type Subscriber interface {
	ClientID() string
}

// Table is the type_id -> set<Subscriber> mapping plus the reverse index
// needed for RemoveAll on disconnect.
type Table struct {
	mu       sync.RWMutex
	subs     map[int32]map[string]Subscriber
	byClient map[string]map[int32]struct{}
}

// New returns an empty subscription table.
func New() *Table {
	return &Table{
		subs:     make(map[int32]map[string]Subscriber),
		byClient: make(map[string]map[int32]struct{}),
	}
}

// Add registers sub as a subscriber of typeID. Idempotent.
func (t *Table) Add(typeID int32, sub Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.subs[typeID]
	if !ok {
		set = make(map[string]Subscriber)
		t.subs[typeID] = set
	}
	set[sub.ClientID()] = sub

	types, ok := t.byClient[sub.ClientID()]
	if !ok {
		types = make(map[int32]struct{})
		t.byClient[sub.ClientID()] = types
	}
	types[typeID] = struct{}{}
}

// Remove unregisters sub from typeID. A no-op if not subscribed.
func (t *Table) Remove(typeID int32, sub Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(typeID, sub.ClientID())
}

func (t *Table) removeLocked(typeID int32, clientID string) {
	if set, ok := t.subs[typeID]; ok {
		delete(set, clientID)
		if len(set) == 0 {
			delete(t.subs, typeID)
		}
	}
	if types, ok := t.byClient[clientID]; ok {
		delete(types, typeID)
		if len(types) == 0 {
			delete(t.byClient, clientID)
		}
	}
}

// RemoveAll purges every subscription held by clientID, used on
// disconnect.
func (t *Table) RemoveAll(clientID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	types, ok := t.byClient[clientID]
	if !ok {
		return
	}
	for typeID := range types {
		if set, ok := t.subs[typeID]; ok {
			delete(set, clientID)
			if len(set) == 0 {
				delete(t.subs, typeID)
			}
		}
	}
	delete(t.byClient, clientID)
}

// Subscribers returns a snapshot slice of current subscribers to typeID.
// No ordering guarantee.
func (t *Table) Subscribers(typeID int32) []Subscriber {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set := t.subs[typeID]
	out := make([]Subscriber, 0, len(set))
	for _, sub := range set {
		out = append(out, sub)
	}
	return out
}

// IsSubscribed reports whether clientID currently subscribes to typeID.
func (t *Table) IsSubscribed(typeID int32, clientID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set, ok := t.subs[typeID]
	if !ok {
		return false
	}
	_, ok = set[clientID]
	return ok
}

// Count returns the total number of (client, type) subscription pairs.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, set := range t.subs {
		n += len(set)
	}
	return n
}
