package wire

import "encoding/binary"

// HeaderVariant selects which fixed header layout a session/broker pair
// agrees to use for the lifetime of a connection. Every client and the
// broker in a deployment MUST use the same variant.
type HeaderVariant byte

const (
	StandardHeader HeaderVariant = iota
	TimecodedHeader
)

// Size returns the on-wire byte length of the header variant.
func (v HeaderVariant) Size() int {
	switch v {
	case TimecodedHeader:
		return 56
	default:
		return 48
	}
}

// Header is the fixed-size record prepended to every on-wire message.
// UTCSeconds/UTCFraction are only meaningful (and only encoded/decoded)
// under TimecodedHeader.
type Header struct {
	MsgType         int32
	MsgCount        uint32
	SendTime        float64
	RecvTime        float64
	SrcHostID       int16
	SrcModID        int16
	DestHostID      int16
	DestModID       int16
	NumDataBytes    int32
	RemainingBytes  int32
	IsDynamic       int32
	Reserved        int32
	UTCSeconds      uint32
	UTCFraction     uint32
}

// Encode writes the header into buf using the given variant's layout.
// buf must be at least variant.Size() bytes.
func (h *Header) Encode(variant HeaderVariant, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.MsgType))
	binary.LittleEndian.PutUint32(buf[4:8], h.MsgCount)
	binary.LittleEndian.PutUint64(buf[8:16], float64bits(h.SendTime))
	binary.LittleEndian.PutUint64(buf[16:24], float64bits(h.RecvTime))
	binary.LittleEndian.PutUint16(buf[24:26], uint16(h.SrcHostID))
	binary.LittleEndian.PutUint16(buf[26:28], uint16(h.SrcModID))
	binary.LittleEndian.PutUint16(buf[28:30], uint16(h.DestHostID))
	binary.LittleEndian.PutUint16(buf[30:32], uint16(h.DestModID))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(h.NumDataBytes))
	binary.LittleEndian.PutUint32(buf[36:40], uint32(h.RemainingBytes))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(h.IsDynamic))
	binary.LittleEndian.PutUint32(buf[44:48], uint32(h.Reserved))
	if variant == TimecodedHeader {
		binary.LittleEndian.PutUint32(buf[48:52], h.UTCSeconds)
		binary.LittleEndian.PutUint32(buf[52:56], h.UTCFraction)
	}
}

// Decode populates h from buf, which must be at least variant.Size() bytes.
func (h *Header) Decode(variant HeaderVariant, buf []byte) {
	h.MsgType = int32(binary.LittleEndian.Uint32(buf[0:4]))
	h.MsgCount = binary.LittleEndian.Uint32(buf[4:8])
	h.SendTime = float64frombits(binary.LittleEndian.Uint64(buf[8:16]))
	h.RecvTime = float64frombits(binary.LittleEndian.Uint64(buf[16:24]))
	h.SrcHostID = int16(binary.LittleEndian.Uint16(buf[24:26]))
	h.SrcModID = int16(binary.LittleEndian.Uint16(buf[26:28]))
	h.DestHostID = int16(binary.LittleEndian.Uint16(buf[28:30]))
	h.DestModID = int16(binary.LittleEndian.Uint16(buf[30:32]))
	h.NumDataBytes = int32(binary.LittleEndian.Uint32(buf[32:36]))
	h.RemainingBytes = int32(binary.LittleEndian.Uint32(buf[36:40]))
	h.IsDynamic = int32(binary.LittleEndian.Uint32(buf[40:44]))
	h.Reserved = int32(binary.LittleEndian.Uint32(buf[44:48]))
	if variant == TimecodedHeader && len(buf) >= 56 {
		h.UTCSeconds = binary.LittleEndian.Uint32(buf[48:52])
		h.UTCFraction = binary.LittleEndian.Uint32(buf[52:56])
	}
}
