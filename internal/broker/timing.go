package broker

import (
	"time"

	"github.com/pitt-rnel/rtma/internal/wire"
)

// timingLoop periodically asks the dispatcher to snapshot and broadcast
// per-type send counters. It never touches broker state itself, only the
// dispatcher goroutine does; it just requests a tick.
func (b *Broker) timingLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.MinTimingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !b.safeSend(dispatchEvent{timingTick: true}) {
				return
			}
		case <-b.stopCh:
			return
		}
	}
}

// emitTimingMessage runs on the dispatcher goroutine: it snapshots the
// per-type counters accumulated since the last tick, broadcasts a
// TIMING_MESSAGE to every subscriber, fires OnTimingTick, and resets the
// counters for the next window.
func (b *Broker) emitTimingMessage() {
	snapshot := make(map[int32]uint16, len(b.timingCounts))
	for k, v := range b.timingCounts {
		snapshot[k] = v
	}

	payload := &wire.TimingMessagePayload{SendTime: nowUnix()}
	for typeID, count := range b.timingCounts {
		if int(typeID) >= 0 && int(typeID) < len(payload.Timing) {
			payload.Timing[typeID] = count
		}
	}
	for modID, cr := range b.byModuleID {
		if int(modID) >= 0 && int(modID) < len(payload.PIDs) {
			payload.PIDs[modID] = cr.PID
		}
	}

	tmPayload := payload.Marshal()
	hdr := &wire.Header{
		MsgType:      int32(wire.TIMING_MESSAGE),
		MsgCount:     b.nextMsgCount(),
		SendTime:     payload.SendTime,
		SrcModID:     wire.MIDMessageManager,
		NumDataBytes: int32(len(tmPayload)),
	}
	frame := make([]byte, b.cfg.HeaderVariant.Size()+len(tmPayload))
	hdr.Encode(b.cfg.HeaderVariant, frame)
	copy(frame[b.cfg.HeaderVariant.Size():], tmPayload)

	for _, s := range b.subs.Subscribers(int32(wire.TIMING_MESSAGE)) {
		cr, ok := s.(*ClientRecord)
		if !ok || cr.state != stateRegistered || cr.IsLogger {
			continue
		}
		if !cr.tryWrite(frame) && b.metrics != nil {
			b.metrics.MessageDropped("timing_not_writable")
		}
	}
	b.deliverToLoggers(frame, nil)

	b.hooks.FireTimingTick(snapshot)
	if b.metrics != nil {
		b.metrics.TimingTick()
	}

	for k := range b.timingCounts {
		delete(b.timingCounts, k)
	}
}
