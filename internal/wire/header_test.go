package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderVariantSize(t *testing.T) {
	assert.Equal(t, 48, StandardHeader.Size())
	assert.Equal(t, 56, TimecodedHeader.Size())
}

func TestHeaderRoundTrip(t *testing.T) {
	in := Header{
		MsgType:        1234,
		MsgCount:       42,
		SendTime:       1712345678.125,
		RecvTime:       1712345678.5,
		SrcHostID:      1,
		SrcModID:       11,
		DestHostID:     2,
		DestModID:      12,
		NumDataBytes:   80,
		RemainingBytes: 0,
		IsDynamic:      0,
		Reserved:       7,
	}

	for _, variant := range []HeaderVariant{StandardHeader, TimecodedHeader} {
		buf := make([]byte, variant.Size())
		if variant == TimecodedHeader {
			in.UTCSeconds = 1712345678
			in.UTCFraction = 999999
		}
		in.Encode(variant, buf)

		var out Header
		out.Decode(variant, buf)

		if variant == StandardHeader {
			// The timecode fields never travel under the standard variant.
			expected := in
			expected.UTCSeconds = 0
			expected.UTCFraction = 0
			assert.Equal(t, expected, out)
		} else {
			assert.Equal(t, in, out)
		}
	}
}

func TestHeaderWireLayout(t *testing.T) {
	h := Header{
		MsgType:      int32(SUBSCRIBE),
		MsgCount:     3,
		SrcModID:     101,
		NumDataBytes: 4,
	}
	buf := make([]byte, StandardHeader.Size())
	h.Encode(StandardHeader, buf)

	// Fixed offsets from the wire layout: msg_type at 0, msg_count at 4,
	// src_mod_id at 26, num_data_bytes at 32, all little-endian.
	assert.Equal(t, uint32(15), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf[4:8]))
	assert.Equal(t, uint16(101), binary.LittleEndian.Uint16(buf[26:28]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(buf[32:36]))
}

func TestNegativeModuleIDsSurviveEncoding(t *testing.T) {
	h := Header{SrcModID: -1, DestModID: -7}
	buf := make([]byte, StandardHeader.Size())
	h.Encode(StandardHeader, buf)

	var out Header
	out.Decode(StandardHeader, buf)
	require.Equal(t, int16(-1), out.SrcModID)
	require.Equal(t, int16(-7), out.DestModID)
}
