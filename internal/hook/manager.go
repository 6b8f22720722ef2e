package hook

import (
	"sync"
	"sync/atomic"

	"github.com/pitt-rnel/rtma/internal/wire"
)

// Manager holds the registered hooks and fans lifecycle events out to all
// of them. Registration uses copy-on-write so fan-out never blocks on the
// registration mutex.
type Manager struct {
	mu       sync.Mutex
	hooksPtr atomic.Pointer[[]Hook]
	index    map[string]int
}

var ErrEmptyHookID = errHookID{}

type errHookID struct{}

func (errHookID) Error() string { return "rtma: hook id cannot be empty" }

var ErrHookAlreadyExists = errHookExists{}

type errHookExists struct{}

func (errHookExists) Error() string { return "rtma: hook already registered" }

// NewManager returns an empty hook manager.
func NewManager() *Manager {
	m := &Manager{index: make(map[string]int)}
	hooks := make([]Hook, 0)
	m.hooksPtr.Store(&hooks)
	return m
}

// Add registers h. Returns an error if h.ID() is empty or already taken.
func (m *Manager) Add(h Hook) error {
	if h == nil || h.ID() == "" {
		return ErrEmptyHookID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index[h.ID()]; exists {
		return ErrHookAlreadyExists
	}

	old := *m.hooksPtr.Load()
	next := make([]Hook, len(old)+1)
	copy(next, old)
	next[len(old)] = h
	m.index[h.ID()] = len(old)
	m.hooksPtr.Store(&next)
	return nil
}

func (m *Manager) hooks() []Hook { return *m.hooksPtr.Load() }

// FireConnect consults every hook's OnConnect in order and stops at the
// first refusal, since OnConnect doubles as an admission gate (e.g.
// ConnectRateLimitHook).
func (m *Manager) FireConnect(c ClientInfo) error {
	for _, h := range m.hooks() {
		if err := h.OnConnect(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) FireDisconnect(c ClientInfo) {
	for _, h := range m.hooks() {
		h.OnDisconnect(c)
	}
}

func (m *Manager) FireSubscribe(c ClientInfo, typeID int32) {
	for _, h := range m.hooks() {
		h.OnSubscribe(c, typeID)
	}
}

func (m *Manager) FireUnsubscribe(c ClientInfo, typeID int32) {
	for _, h := range m.hooks() {
		h.OnUnsubscribe(c, typeID)
	}
}

func (m *Manager) FireForward(from ClientInfo, typeID int32, hdr *wire.Header) {
	for _, h := range m.hooks() {
		h.OnForward(from, typeID, hdr)
	}
}

func (m *Manager) FireFailedMessage(to ClientInfo, typeID int32) {
	for _, h := range m.hooks() {
		h.OnFailedMessage(to, typeID)
	}
}

func (m *Manager) FireTimingTick(counters map[int32]uint16) {
	for _, h := range m.hooks() {
		h.OnTimingTick(counters)
	}
}
