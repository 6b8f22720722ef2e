// Package msglog implements the SAVE_MESSAGE_LOG control-message family:
// a diagnostic recorder of dispatched traffic, not a durability guarantee
// for delivery itself.
package msglog

import (
	"time"

	"github.com/pitt-rnel/rtma/internal/wire"
)

// Record is one logged frame: enough of the header to reconstruct
// send/receive ordering plus the raw payload, keyed by an opaque id when
// persisted to a Store.
type Record struct {
	Seq        uint64
	LoggedAt   time.Time
	MsgType    int32
	SrcModID   int16
	SrcHostID  int16
	DestModID  int16
	DestHostID int16
	Header     wire.Header
	Payload    []byte
}
