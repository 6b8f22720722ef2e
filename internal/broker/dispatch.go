package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/pitt-rnel/rtma/internal/wire"
)

// handleFrame is the dispatcher's classify-and-act step: control messages
// are handled here directly, anything else is forwarded to subscribers.
// It runs exclusively on the dispatcher goroutine, so every field it
// touches on Broker and on the client records needs no additional
// locking.
func (b *Broker) handleFrame(cr *ClientRecord, hdr *wire.Header, payload []byte) {
	b.timingCounts[hdr.MsgType]++

	if b.msglog != nil {
		_ = b.msglog.Save(context.Background(), *hdr, payload)
	}

	// Loggers observe every message the broker receives, control traffic
	// included, regardless of subscription.
	if len(b.loggers) > 0 {
		frame := make([]byte, b.cfg.HeaderVariant.Size()+len(payload))
		hdr.Encode(b.cfg.HeaderVariant, frame)
		copy(frame[b.cfg.HeaderVariant.Size():], payload)
		b.deliverToLoggers(frame, cr)
	}

	switch wire.MessageType(hdr.MsgType) {
	case wire.CONNECT:
		b.handleConnect(cr, hdr, payload)
	case wire.DISCONNECT:
		b.ackAlways(cr)
		b.handleDisconnect(cr)
	case wire.SUBSCRIBE:
		b.handleSubscribe(cr, payload)
	case wire.UNSUBSCRIBE:
		b.handleUnsubscribe(cr, payload)
	case wire.PAUSE_SUBSCRIPTION:
		b.handlePauseSubscription(cr, payload)
	case wire.RESUME_SUBSCRIPTION:
		b.handleResumeSubscription(cr, payload)
	case wire.MODULE_READY:
		b.handleModuleReady(cr, payload)
	case wire.FAILED_MESSAGE:
		b.handleFailedMessage(cr, hdr, payload)
	case wire.SAVE_MESSAGE_LOG:
		b.handleSaveMessageLog(cr, payload)
	case wire.PAUSE_MESSAGE_LOGGING:
		b.msglog.Pause()
		b.ack(cr)
	case wire.RESUME_MESSAGE_LOGGING:
		b.msglog.Resume()
		b.ack(cr)
	case wire.RESET_MESSAGE_LOG:
		_ = b.msglog.Reset(context.Background())
		b.ack(cr)
	case wire.DUMP_MESSAGE_LOG:
		b.handleDumpMessageLog(cr)
	case wire.FORCE_DISCONNECT:
		b.handleForceDisconnect(cr, payload)
	case wire.MM_READY:
		// Readiness probe: answered directly to the sender, so a module
		// can block on the reply instead of sleeping after connect.
		b.sendTo(cr, wire.MM_READY, cr.ModuleID, cr.HostID, nil)
	case wire.KILL:
		b.forward(cr, hdr, payload)
		b.logger.Info("KILL received, shutting down", "module_id", cr.ModuleID)
		b.Close()
	default:
		b.forward(cr, hdr, payload)
	}
}

func (b *Broker) handleConnect(cr *ClientRecord, hdr *wire.Header, payload []byte) {
	if cr.Registered {
		b.errorTo(cr, "already connected")
		return
	}

	cp := wire.UnmarshalConnectPayload(payload)

	info := b.clientInfo(cr)
	info.ModuleID = hdr.SrcModID
	info.HostID = hdr.SrcHostID
	info.IsLogger = cp.LoggerStatus != 0
	if err := b.hooks.FireConnect(info); err != nil {
		b.metricsConnectRejected()
		b.errorTo(cr, err.Error())
		cr.drainAndClose()
		return
	}

	var modID int16
	var err error
	if hdr.SrcModID > 0 {
		modID = hdr.SrcModID
		err = b.modIDs.Reserve(modID)
	} else {
		modID, err = b.modIDs.Allocate()
	}
	if err != nil {
		b.metricsConnectRejected()
		b.errorTo(cr, err.Error())
		cr.drainAndClose()
		return
	}

	cr.ModuleID = modID
	cr.HostID = hdr.SrcHostID
	cr.IsLogger = cp.LoggerStatus != 0
	cr.Registered = true
	cr.state = stateRegistered

	b.clients[cr.id] = cr
	b.byModuleID[modID] = cr
	if cr.IsLogger {
		b.loggers[cr.id] = cr
	}

	if b.metrics != nil {
		b.metrics.ClientConnected()
	}
	b.ackAlways(cr)
	b.announce(fmt.Sprintf("module %d connected from %s", modID, cr.remoteAddr))
}

func (b *Broker) metricsConnectRejected() {
	if b.metrics != nil {
		b.metrics.ConnectRejected()
	}
}

func (b *Broker) handleDisconnect(cr *ClientRecord) {
	if cr.state == stateRemoved {
		return
	}
	cr.state = stateRemoved

	if cr.Registered {
		b.subs.RemoveAll(cr.id)
		delete(b.byModuleID, cr.ModuleID)
		delete(b.loggers, cr.id)
		b.modIDs.Release(cr.ModuleID)
		if b.metrics != nil {
			b.metrics.ClientDisconnected()
			b.metrics.SubscriptionsGauge(b.subs.Count())
		}
		b.hooks.FireDisconnect(b.clientInfo(cr))
	}
	delete(b.clients, cr.id)
	cr.drainAndClose()
}

func (b *Broker) handleSubscribe(cr *ClientRecord, payload []byte) {
	sp := wire.UnmarshalSubscriptionPayload(payload)
	if _, ok := b.registry.Lookup(sp.MsgType); !ok {
		b.sendTo(cr, wire.FAIL_SUBSCRIBE, cr.ModuleID, cr.HostID,
			wire.FailSubscribePayload{ModID: cr.ModuleID, MsgType: sp.MsgType}.Marshal())
		return
	}
	b.subs.Add(sp.MsgType, cr)
	if b.metrics != nil {
		b.metrics.SubscriptionsGauge(b.subs.Count())
	}
	b.hooks.FireSubscribe(b.clientInfo(cr), sp.MsgType)
	b.ack(cr)
}

func (b *Broker) handleUnsubscribe(cr *ClientRecord, payload []byte) {
	sp := wire.UnmarshalSubscriptionPayload(payload)
	b.subs.Remove(sp.MsgType, cr)
	if b.metrics != nil {
		b.metrics.SubscriptionsGauge(b.subs.Count())
	}
	b.hooks.FireUnsubscribe(b.clientInfo(cr), sp.MsgType)
	b.ack(cr)
}

// handlePauseSubscription/handleResumeSubscription toggle a per-client
// flag on the subscription itself; RTMA pauses delivery without dropping
// the registration, unlike UNSUBSCRIBE which removes it.
func (b *Broker) handlePauseSubscription(cr *ClientRecord, payload []byte) {
	sp := wire.UnmarshalSubscriptionPayload(payload)
	cr.pauseType(sp.MsgType, true)
	b.ack(cr)
}

func (b *Broker) handleResumeSubscription(cr *ClientRecord, payload []byte) {
	sp := wire.UnmarshalSubscriptionPayload(payload)
	cr.pauseType(sp.MsgType, false)
	b.ack(cr)
}

func (b *Broker) handleModuleReady(cr *ClientRecord, payload []byte) {
	mp := wire.UnmarshalModuleReadyPayload(payload)
	cr.PID = mp.PID
	hdr := &wire.Header{
		MsgType:      int32(wire.MODULE_READY),
		SrcModID:     cr.ModuleID,
		SrcHostID:    cr.HostID,
		NumDataBytes: int32(len(payload)),
	}
	b.forward(cr, hdr, payload)
	b.ack(cr)
}

func (b *Broker) handleFailedMessage(cr *ClientRecord, hdr *wire.Header, payload []byte) {
	// FAILED_MESSAGE is itself forwardable (e.g. to a logger) but must
	// never recurse into another synthesized FAILED_MESSAGE; failDelivery
	// enforces that.
	b.forward(cr, hdr, payload)
}

// handleForceDisconnect removes the client currently holding the named
// module id, as if it had sent DISCONNECT itself. Unknown ids are
// reported back to the requester rather than ignored.
func (b *Broker) handleForceDisconnect(cr *ClientRecord, payload []byte) {
	fp := wire.UnmarshalForceDisconnectPayload(payload)
	target, ok := b.byModuleID[int16(fp.ModID)]
	if !ok {
		b.errorTo(cr, fmt.Sprintf("force disconnect: no module with id %d", fp.ModID))
		return
	}
	b.logger.Info("force disconnect", "module_id", fp.ModID, "requested_by", cr.ModuleID)
	b.handleDisconnect(target)
	b.ack(cr)
}

func (b *Broker) handleSaveMessageLog(cr *ClientRecord, payload []byte) {
	sp := wire.UnmarshalSaveMessageLogPayload(payload)
	if err := b.msglog.OpenLog(sp.Pathname); err != nil {
		b.errorTo(cr, err.Error())
		return
	}
	b.sendTo(cr, wire.MESSAGE_LOG_SAVED, cr.ModuleID, cr.HostID, sp.Marshal())
}

func (b *Broker) handleDumpMessageLog(cr *ClientRecord) {
	recs, err := b.msglog.Dump(context.Background())
	if err != nil {
		b.errorTo(cr, err.Error())
		return
	}
	for _, rec := range recs {
		b.sendTo(cr, wire.MessageType(rec.MsgType), rec.DestModID, rec.DestHostID, rec.Payload)
	}
	b.ack(cr)
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
