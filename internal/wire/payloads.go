package wire

import "encoding/binary"

// ConnectPayload is the CONNECT (13) payload.
type ConnectPayload struct {
	LoggerStatus int16
	DaemonStatus int16
}

func (p ConnectPayload) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(p.LoggerStatus))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(p.DaemonStatus))
	return buf
}

func UnmarshalConnectPayload(buf []byte) ConnectPayload {
	return ConnectPayload{
		LoggerStatus: int16(binary.LittleEndian.Uint16(buf[0:2])),
		DaemonStatus: int16(binary.LittleEndian.Uint16(buf[2:4])),
	}
}

// SubscriptionPayload carries the msg_type operated on by SUBSCRIBE,
// UNSUBSCRIBE, PAUSE_SUBSCRIPTION and RESUME_SUBSCRIPTION.
type SubscriptionPayload struct {
	MsgType int32
}

func (p SubscriptionPayload) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(p.MsgType))
	return buf
}

func UnmarshalSubscriptionPayload(buf []byte) SubscriptionPayload {
	return SubscriptionPayload{MsgType: int32(binary.LittleEndian.Uint32(buf[0:4]))}
}

// FailSubscribePayload is the FAIL_SUBSCRIBE (6) payload.
type FailSubscribePayload struct {
	ModID   int16
	MsgType int32
}

func (p FailSubscribePayload) Marshal() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(p.ModID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.MsgType))
	return buf
}

func UnmarshalFailSubscribePayload(buf []byte) FailSubscribePayload {
	return FailSubscribePayload{
		ModID:   int16(binary.LittleEndian.Uint16(buf[0:2])),
		MsgType: int32(binary.LittleEndian.Uint32(buf[4:8])),
	}
}

// FailedMessagePayload is the FAILED_MESSAGE (8) payload: a description of
// a delivery that could not be completed, carrying the original header.
type FailedMessagePayload struct {
	DestModID      int16
	TimeOfFailure  float64
	OriginalHeader Header
}

func (p FailedMessagePayload) Marshal(variant HeaderVariant) []byte {
	buf := make([]byte, 16+variant.Size())
	binary.LittleEndian.PutUint16(buf[0:2], uint16(p.DestModID))
	binary.LittleEndian.PutUint64(buf[8:16], float64bits(p.TimeOfFailure))
	p.OriginalHeader.Encode(variant, buf[16:])
	return buf
}

func UnmarshalFailedMessagePayload(buf []byte, variant HeaderVariant) FailedMessagePayload {
	p := FailedMessagePayload{
		DestModID:     int16(binary.LittleEndian.Uint16(buf[0:2])),
		TimeOfFailure: float64frombits(binary.LittleEndian.Uint64(buf[8:16])),
	}
	p.OriginalHeader.Decode(variant, buf[16:])
	return p
}

// ModuleReadyPayload is the MODULE_READY (26) payload.
type ModuleReadyPayload struct {
	PID int32
}

func (p ModuleReadyPayload) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(p.PID))
	return buf
}

func UnmarshalModuleReadyPayload(buf []byte) ModuleReadyPayload {
	return ModuleReadyPayload{PID: int32(binary.LittleEndian.Uint32(buf[0:4]))}
}

// ForceDisconnectPayload is the FORCE_DISCONNECT (82) payload.
type ForceDisconnectPayload struct {
	ModID int32
}

func (p ForceDisconnectPayload) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(p.ModID))
	return buf
}

func UnmarshalForceDisconnectPayload(buf []byte) ForceDisconnectPayload {
	return ForceDisconnectPayload{ModID: int32(binary.LittleEndian.Uint32(buf[0:4]))}
}

// SaveMessageLogPayload is the SAVE_MESSAGE_LOG (56) / MESSAGE_LOG_SAVED
// (57) payload: a fixed-width ASCII pathname plus its string length.
type SaveMessageLogPayload struct {
	Pathname string
	Length   int32
}

func (p SaveMessageLogPayload) Marshal() []byte {
	buf := make([]byte, MaxLoggerFilenameLength+4)
	n := copy(buf[:MaxLoggerFilenameLength], p.Pathname)
	binary.LittleEndian.PutUint32(buf[MaxLoggerFilenameLength:], uint32(n))
	return buf
}

func UnmarshalSaveMessageLogPayload(buf []byte) SaveMessageLogPayload {
	length := int32(binary.LittleEndian.Uint32(buf[MaxLoggerFilenameLength:]))
	name := buf[:MaxLoggerFilenameLength]
	for i, b := range name {
		if b == 0 {
			name = name[:i]
			break
		}
	}
	return SaveMessageLogPayload{Pathname: string(name), Length: length}
}

// TextPayloadSize is the fixed width of the MM_ERROR / MM_INFO payload.
const TextPayloadSize = 256

// TextPayload is the MM_ERROR (83) / MM_INFO (84) payload: a fixed-width
// zero-padded ASCII string. Text longer than the buffer is truncated.
type TextPayload struct {
	Text string
}

func (p TextPayload) Marshal() []byte {
	buf := make([]byte, TextPayloadSize)
	copy(buf, p.Text)
	return buf
}

func UnmarshalTextPayload(buf []byte) TextPayload {
	for i, b := range buf {
		if b == 0 {
			return TextPayload{Text: string(buf[:i])}
		}
	}
	return TextPayload{Text: string(buf)}
}

// TimingMessagePayload is the TIMING_MESSAGE (80) payload: a per-type
// send-count snapshot and a per-module pid table.
type TimingMessagePayload struct {
	Timing   [MaxMessageTypes]uint16
	PIDs     [MaxModules]int32
	SendTime float64
}

func (p *TimingMessagePayload) Marshal() []byte {
	buf := make([]byte, CoreTypeSizes[TIMING_MESSAGE])
	off := 0
	for i := 0; i < MaxMessageTypes; i++ {
		binary.LittleEndian.PutUint16(buf[off:off+2], p.Timing[i])
		off += 2
	}
	for i := 0; i < MaxModules; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(p.PIDs[i]))
		off += 4
	}
	binary.LittleEndian.PutUint64(buf[off:off+8], float64bits(p.SendTime))
	return buf
}

func UnmarshalTimingMessagePayload(buf []byte) *TimingMessagePayload {
	p := &TimingMessagePayload{}
	off := 0
	for i := 0; i < MaxMessageTypes; i++ {
		p.Timing[i] = binary.LittleEndian.Uint16(buf[off : off+2])
		off += 2
	}
	for i := 0; i < MaxModules; i++ {
		p.PIDs[i] = int32(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	p.SendTime = float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))
	return p
}
