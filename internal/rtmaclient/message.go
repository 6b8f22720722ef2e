package rtmaclient

import "github.com/pitt-rnel/rtma/internal/wire"

// Message is one received frame: the decoded header, the raw payload
// bytes, and the registered type name when the registry knows the type.
// Payload interpretation is left to the caller; Unmarshal helpers for the
// core control payloads live in internal/wire.
type Message struct {
	Header  wire.Header
	Payload []byte
	Name    string
}

// Type returns the message's type id.
func (m *Message) Type() wire.MessageType {
	return wire.MessageType(m.Header.MsgType)
}

// IsSignal reports whether the message carries no payload.
func (m *Message) IsSignal() bool {
	return m.Header.NumDataBytes == 0
}
