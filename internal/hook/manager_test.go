package hook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHook struct {
	*Base
	connects    []ClientInfo
	subscribes  []int32
	refuse      error
}

func (h *recordingHook) OnConnect(c ClientInfo) error {
	h.connects = append(h.connects, c)
	return h.refuse
}

func (h *recordingHook) OnSubscribe(_ ClientInfo, typeID int32) {
	h.subscribes = append(h.subscribes, typeID)
}

func TestAddValidation(t *testing.T) {
	m := NewManager()

	assert.ErrorIs(t, m.Add(NewBase("")), ErrEmptyHookID)
	require.NoError(t, m.Add(NewBase("h1")))
	assert.ErrorIs(t, m.Add(NewBase("h1")), ErrHookAlreadyExists)
}

func TestFireFansOutInOrder(t *testing.T) {
	m := NewManager()
	h1 := &recordingHook{Base: NewBase("h1")}
	h2 := &recordingHook{Base: NewBase("h2")}
	require.NoError(t, m.Add(h1))
	require.NoError(t, m.Add(h2))

	info := ClientInfo{ClientID: "c1", ModuleID: 101}
	require.NoError(t, m.FireConnect(info))
	m.FireSubscribe(info, 1234)

	assert.Equal(t, []ClientInfo{info}, h1.connects)
	assert.Equal(t, []ClientInfo{info}, h2.connects)
	assert.Equal(t, []int32{1234}, h1.subscribes)
	assert.Equal(t, []int32{1234}, h2.subscribes)
}

func TestFireConnectStopsAtFirstRefusal(t *testing.T) {
	refusal := errors.New("no room")
	m := NewManager()
	h1 := &recordingHook{Base: NewBase("h1"), refuse: refusal}
	h2 := &recordingHook{Base: NewBase("h2")}
	require.NoError(t, m.Add(h1))
	require.NoError(t, m.Add(h2))

	err := m.FireConnect(ClientInfo{ClientID: "c1"})
	assert.ErrorIs(t, err, refusal)
	assert.Empty(t, h2.connects, "later hooks must not run after a refusal")
}

func TestFireOnEmptyManager(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.FireConnect(ClientInfo{}))
	m.FireDisconnect(ClientInfo{})
	m.FireTimingTick(nil)
}
