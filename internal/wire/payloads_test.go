package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectPayload(t *testing.T) {
	buf := ConnectPayload{LoggerStatus: 1, DaemonStatus: 0}.Marshal()
	require.Len(t, buf, CoreTypeSizes[CONNECT])

	out := UnmarshalConnectPayload(buf)
	assert.Equal(t, int16(1), out.LoggerStatus)
	assert.Equal(t, int16(0), out.DaemonStatus)
}

func TestFailSubscribePayloadLayout(t *testing.T) {
	buf := FailSubscribePayload{ModID: 11, MsgType: 1234}.Marshal()
	require.Len(t, buf, CoreTypeSizes[FAIL_SUBSCRIBE])

	// msg_type sits after 2 bytes of mod_id and 2 bytes of padding.
	out := UnmarshalFailSubscribePayload(buf)
	assert.Equal(t, int16(11), out.ModID)
	assert.Equal(t, int32(1234), out.MsgType)
}

func TestFailedMessagePayloadCarriesOriginalHeader(t *testing.T) {
	orig := Header{
		MsgType:      1234,
		MsgCount:     9,
		SrcModID:     11,
		DestModID:    12,
		NumDataBytes: 80,
	}
	for _, variant := range []HeaderVariant{StandardHeader, TimecodedHeader} {
		buf := FailedMessagePayload{
			DestModID:      12,
			TimeOfFailure:  1712345678.25,
			OriginalHeader: orig,
		}.Marshal(variant)
		require.Len(t, buf, CoreTypeSize(FAILED_MESSAGE, variant))

		out := UnmarshalFailedMessagePayload(buf, variant)
		assert.Equal(t, int16(12), out.DestModID)
		assert.Equal(t, 1712345678.25, out.TimeOfFailure)
		assert.Equal(t, orig.MsgType, out.OriginalHeader.MsgType)
		assert.Equal(t, orig.MsgCount, out.OriginalHeader.MsgCount)
		assert.Equal(t, orig.DestModID, out.OriginalHeader.DestModID)
	}
}

func TestSaveMessageLogPayloadTruncatesLongPaths(t *testing.T) {
	long := make([]byte, MaxLoggerFilenameLength+50)
	for i := range long {
		long[i] = 'a'
	}

	buf := SaveMessageLogPayload{Pathname: string(long)}.Marshal()
	require.Len(t, buf, CoreTypeSizes[SAVE_MESSAGE_LOG])

	out := UnmarshalSaveMessageLogPayload(buf)
	assert.Len(t, out.Pathname, MaxLoggerFilenameLength)
	assert.Equal(t, int32(MaxLoggerFilenameLength), out.Length)
}

func TestSaveMessageLogPayloadRoundTrip(t *testing.T) {
	buf := SaveMessageLogPayload{Pathname: "/tmp/rtma/msglog"}.Marshal()
	out := UnmarshalSaveMessageLogPayload(buf)
	assert.Equal(t, "/tmp/rtma/msglog", out.Pathname)
	assert.Equal(t, int32(len("/tmp/rtma/msglog")), out.Length)
}

func TestTextPayload(t *testing.T) {
	buf := TextPayload{Text: "module 101 connected"}.Marshal()
	require.Len(t, buf, TextPayloadSize)
	assert.Equal(t, "module 101 connected", UnmarshalTextPayload(buf).Text)
}

func TestTimingMessagePayload(t *testing.T) {
	p := &TimingMessagePayload{SendTime: 1712345678.0}
	p.Timing[1234] = 17
	p.Timing[MaxMessageTypes-1] = 3
	p.PIDs[101] = 4242

	buf := p.Marshal()
	require.Len(t, buf, CoreTypeSizes[TIMING_MESSAGE])

	out := UnmarshalTimingMessagePayload(buf)
	assert.Equal(t, uint16(17), out.Timing[1234])
	assert.Equal(t, uint16(3), out.Timing[MaxMessageTypes-1])
	assert.Equal(t, int32(4242), out.PIDs[101])
	assert.Equal(t, 1712345678.0, out.SendTime)
}

func TestCoreTypeSizeTracksVariant(t *testing.T) {
	assert.Equal(t, 64, CoreTypeSize(FAILED_MESSAGE, StandardHeader))
	assert.Equal(t, 72, CoreTypeSize(FAILED_MESSAGE, TimecodedHeader))
	assert.Equal(t, CoreTypeSizes[CONNECT], CoreTypeSize(CONNECT, TimecodedHeader))
	assert.Zero(t, CoreTypeSize(EXIT, StandardHeader))
}
