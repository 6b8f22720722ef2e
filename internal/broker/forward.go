package broker

import (
	"github.com/pitt-rnel/rtma/internal/hook"
	"github.com/pitt-rnel/rtma/internal/wire"
)

// forward implements the delivery rules for non-logger subscribers.
// Loggers are handled separately: handleFrame has already
// mirrored the raw frame to every logger regardless of subscription, so
// the loops here skip them to avoid delivering twice.
//
// A positive DestModID narrows delivery to the single client holding that
// module id, and only if it is subscribed (a paused subscription counts
// as not subscribed on the wire). A narrowed message that cannot reach
// its one destination — missing module, not subscribed, paused, or outbox
// full — produces a FAILED_MESSAGE. A broadcast (DestModID == 0) goes to
// every subscribed, unpaused, currently-writable non-logger; each one
// whose outbox is full gets its own FAILED_MESSAGE instead of stalling
// the loop.
func (b *Broker) forward(from *ClientRecord, hdr *wire.Header, payload []byte) {
	frame := make([]byte, b.cfg.HeaderVariant.Size()+len(payload))
	hdr.Encode(b.cfg.HeaderVariant, frame)
	copy(frame[b.cfg.HeaderVariant.Size():], payload)

	if hdr.DestModID > 0 {
		target, ok := b.byModuleID[hdr.DestModID]
		if !ok || target.IsLogger ||
			!b.subs.IsSubscribed(hdr.MsgType, target.id) || target.isPaused(hdr.MsgType) {
			b.failDelivery(hdr.DestModID, hdr)
			return
		}
		b.deliverOne(target, hdr, frame)
		b.hooks.FireForward(b.clientInfo(from), hdr.MsgType, hdr)
		return
	}

	delivered := false
	for _, s := range b.subs.Subscribers(hdr.MsgType) {
		cr, ok := s.(*ClientRecord)
		if !ok || cr.state != stateRegistered || cr.IsLogger {
			continue
		}
		if cr.isPaused(hdr.MsgType) {
			continue
		}
		b.deliverOne(cr, hdr, frame)
		delivered = true
	}

	if delivered {
		b.hooks.FireForward(b.clientInfo(from), hdr.MsgType, hdr)
		if b.metrics != nil {
			b.metrics.MessageForwarded()
		}
	}
}

// deliverOne enqueues frame on to's outbox; a full outbox is the
// "destination not writable" case and becomes a FAILED_MESSAGE for that
// recipient.
func (b *Broker) deliverOne(to *ClientRecord, hdr *wire.Header, frame []byte) {
	if to.tryWrite(frame) {
		return
	}
	if b.metrics != nil {
		b.metrics.MessageDropped("destination_not_writable")
	}
	b.failDelivery(to.ModuleID, hdr)
}

// failDelivery synthesizes a FAILED_MESSAGE describing the delivery that
// could not be completed to destMod, and routes it like any other message:
// to every logger and to every subscriber of FAILED_MESSAGE. A failed
// forward of a FAILED_MESSAGE itself is dropped, never re-reported, which
// is also why delivery to the FAILED_MESSAGE subscribers below drops
// silently on a full outbox.
func (b *Broker) failDelivery(destMod int16, orig *wire.Header) {
	if wire.MessageType(orig.MsgType) == wire.FAILED_MESSAGE {
		return
	}

	b.hooks.FireFailedMessage(hook.ClientInfo{ModuleID: destMod}, orig.MsgType)
	if b.metrics != nil {
		b.metrics.FailedMessageSent()
	}

	payload := wire.FailedMessagePayload{
		DestModID:      destMod,
		TimeOfFailure:  nowUnix(),
		OriginalHeader: *orig,
	}.Marshal(b.cfg.HeaderVariant)

	hdr := &wire.Header{
		MsgType:      int32(wire.FAILED_MESSAGE),
		MsgCount:     b.nextMsgCount(),
		SendTime:     nowUnix(),
		SrcHostID:    wire.HIDLocalHost,
		SrcModID:     wire.MIDMessageManager,
		NumDataBytes: int32(len(payload)),
	}
	frame := make([]byte, b.cfg.HeaderVariant.Size()+len(payload))
	hdr.Encode(b.cfg.HeaderVariant, frame)
	copy(frame[b.cfg.HeaderVariant.Size():], payload)

	b.deliverToLoggers(frame, nil)
	for _, s := range b.subs.Subscribers(int32(wire.FAILED_MESSAGE)) {
		cr, ok := s.(*ClientRecord)
		if !ok || cr.state != stateRegistered || cr.IsLogger {
			continue
		}
		_ = cr.tryWrite(frame)
	}
}
