// Package codec implements the wire framing: writing a header+payload as
// one logical unit, and reading a header then its declared payload, each
// as a blocking "wait-all" operation.
package codec

import (
	"io"

	"github.com/pitt-rnel/rtma/internal/rtmaerr"
	"github.com/pitt-rnel/rtma/internal/wire"
)

// MaxPayload bounds how large a declared payload read will be attempted
// before it is treated as a framing error.
var MaxPayload = wire.MaxContiguousMessageData

// WriteMessage emits header then payload as a single logical send. It
// retries partial writes until the full frame has been written or the
// underlying writer fails.
func WriteMessage(w io.Writer, variant wire.HeaderVariant, header *wire.Header, payload []byte) error {
	frame := make([]byte, variant.Size()+len(payload))
	header.Encode(variant, frame)
	copy(frame[variant.Size():], payload)

	written := 0
	for written < len(frame) {
		n, err := w.Write(frame[written:])
		if n > 0 {
			written += n
		}
		if err != nil {
			return rtmaerr.ErrConnectionLost
		}
	}
	return nil
}

// ReadHeader blocks until a full header has been read from r.
func ReadHeader(r io.Reader, variant wire.HeaderVariant) (*wire.Header, error) {
	buf := make([]byte, variant.Size())
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, rtmaerr.ErrConnectionLost
	}
	h := &wire.Header{}
	h.Decode(variant, buf)
	return h, nil
}

// ReadPayload blocks until header.NumDataBytes bytes have been read from r.
// It returns a framing error without reading anything if the declared size
// exceeds MaxPayload.
func ReadPayload(r io.Reader, header *wire.Header) ([]byte, error) {
	if header.NumDataBytes == 0 {
		return nil, nil
	}
	if header.NumDataBytes < 0 {
		return nil, rtmaerr.ErrFramingError
	}
	// TIMING_MESSAGE is the one core type whose fixed snapshot tables
	// exceed the contiguous-data limit; it is broker-originated and
	// size-checked against its registered layout instead.
	if int(header.NumDataBytes) > MaxPayload {
		if wire.MessageType(header.MsgType) != wire.TIMING_MESSAGE ||
			int(header.NumDataBytes) > wire.CoreTypeSizes[wire.TIMING_MESSAGE] {
			return nil, rtmaerr.ErrFramingError
		}
	}

	buf := make([]byte, header.NumDataBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, rtmaerr.ErrConnectionLost
	}
	return buf, nil
}
