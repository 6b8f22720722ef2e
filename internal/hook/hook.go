// Package hook provides broker lifecycle extension points. There are no
// ACL/auth hooks: the protocol carries no authentication.
package hook

import "github.com/pitt-rnel/rtma/internal/wire"

// ClientInfo is the read-only client view passed to hooks.
type ClientInfo struct {
	ClientID string
	ModuleID int16
	HostID   int16
	IsLogger bool
}

// Hook is the interface every broker extension implements. Embed Base to
// get no-op defaults and override only what you need.
type Hook interface {
	ID() string
	OnConnect(client ClientInfo) error
	OnDisconnect(client ClientInfo)
	OnSubscribe(client ClientInfo, typeID int32)
	OnUnsubscribe(client ClientInfo, typeID int32)
	OnForward(from ClientInfo, typeID int32, header *wire.Header)
	OnFailedMessage(to ClientInfo, typeID int32)
	OnTimingTick(counters map[int32]uint16)
}

// Base is a no-op Hook implementation to embed.
type Base struct {
	id string
}

// NewBase returns a Base hook with the given id.
func NewBase(id string) *Base { return &Base{id: id} }

func (b *Base) ID() string                                                     { return b.id }
func (b *Base) OnConnect(ClientInfo) error                                     { return nil }
func (b *Base) OnDisconnect(ClientInfo)                                        {}
func (b *Base) OnSubscribe(ClientInfo, int32)                                  {}
func (b *Base) OnUnsubscribe(ClientInfo, int32)                                {}
func (b *Base) OnForward(ClientInfo, int32, *wire.Header)                      {}
func (b *Base) OnFailedMessage(ClientInfo, int32)                              {}
func (b *Base) OnTimingTick(map[int32]uint16)                                  {}
