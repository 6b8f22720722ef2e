// Package broker implements the message manager: accepting client
// connections, tracking identity and subscriptions, and forwarding
// messages between modules. One reader goroutine per connection feeds a
// single dispatcher goroutine, which owns every piece of mutable broker
// state and therefore needs no locking of its own. See DESIGN.md for the
// concurrency model.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pitt-rnel/rtma/internal/codec"
	"github.com/pitt-rnel/rtma/internal/hook"
	"github.com/pitt-rnel/rtma/internal/metrics"
	"github.com/pitt-rnel/rtma/internal/msglog"
	"github.com/pitt-rnel/rtma/internal/registry"
	"github.com/pitt-rnel/rtma/internal/subscription"
	"github.com/pitt-rnel/rtma/internal/wire"
)

// dispatchEvent is everything the dispatcher loop needs to react to one
// occurrence: an inbound frame from a client, that client's read
// goroutine observing the connection end, or a timing tick from
// timingLoop.
type dispatchEvent struct {
	client     *ClientRecord
	header     *wire.Header
	payload    []byte
	disconnect bool
	timingTick bool
}

// Broker is a running message manager instance.
type Broker struct {
	cfg Config

	registry *registry.Registry
	subs     *subscription.Table
	hooks    *hook.Manager
	msglog   *msglog.Controller
	metrics  *metrics.Metrics
	logger   *slog.Logger

	listener net.Listener
	connSeq  atomic.Uint64
	conns    sync.Map // connection id -> *ClientRecord, every accepted socket

	events chan dispatchEvent

	modIDs       *moduleIDAllocator
	clients      map[string]*ClientRecord // by connection id
	byModuleID   map[int16]*ClientRecord
	loggers      map[string]*ClientRecord // logger clients, fed every message regardless of subscription
	msgCounter   uint32
	timingCounts map[int32]uint16
	startTime    time.Time

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
	stopCh    chan struct{}
	started   chan struct{}
}

// New constructs a Broker from cfg without starting it.
func New(cfg Config) *Broker {
	cfg.fillDefaults()
	if cfg.MsgLog == nil {
		cfg.MsgLog = msglog.NewController()
	}
	codec.MaxPayload = cfg.MaxContiguousMessageData
	return &Broker{
		cfg:          cfg,
		registry:     cfg.Registry,
		subs:         subscription.New(),
		hooks:        cfg.Hooks,
		msglog:       cfg.MsgLog,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		events:       make(chan dispatchEvent, 1024),
		modIDs:       newModuleIDAllocator(cfg.DynModIDStart, cfg.MaxModules),
		clients:      make(map[string]*ClientRecord),
		byModuleID:   make(map[int16]*ClientRecord),
		loggers:      make(map[string]*ClientRecord),
		timingCounts: make(map[int32]uint16),
		startTime:    time.Now(),
		stopCh:       make(chan struct{}),
		started:      make(chan struct{}),
	}
}

// Run starts listening on cfg.Addr and blocks, serving connections until
// ctx is canceled or Close is called.
func (b *Broker) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	if b.cfg.ReuseAddr {
		lc.Control = reuseAddrControl
	}
	ln, err := lc.Listen(ctx, "tcp", b.cfg.Addr)
	if err != nil {
		return fmt.Errorf("rtma: listen: %w", err)
	}
	b.listener = ln
	close(b.started)
	b.logger.Info("message manager listening", "addr", ln.Addr().String())

	b.wg.Add(2)
	go b.acceptLoop()
	go b.dispatchLoop()

	if !b.cfg.DisableTimingMsg {
		b.wg.Add(1)
		go b.timingLoop()
	}

	// Close may also be triggered internally by a KILL message, so wait
	// on either signal.
	select {
	case <-ctx.Done():
	case <-b.stopCh:
	}
	b.Close()
	b.wg.Wait()
	return nil
}

// Close stops accepting new connections, closes every client socket, and
// shuts down the dispatcher. Safe to call more than once.
func (b *Broker) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		close(b.stopCh)
		if b.listener != nil {
			err = b.listener.Close()
		}
		// Closing every accepted socket unblocks the per-connection read
		// loops, registered or not, so wg.Wait cannot hang on a client
		// that never sent CONNECT.
		b.conns.Range(func(_, v any) bool {
			v.(*ClientRecord).Close()
			return true
		})
		close(b.events)
	})
	return err
}

// Addr blocks until Run has bound the listen socket and returns its
// address, which is how callers using port 0 learn the assigned port.
func (b *Broker) Addr() net.Addr {
	<-b.started
	return b.listener.Addr()
}

func (b *Broker) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			if b.closed.Load() {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			b.logger.Warn("accept failed", "error", err)
			continue
		}
		b.wg.Add(1)
		go b.clientReadLoop(conn)
	}
}

// clientReadLoop owns the socket's read side: decode frames with codec
// and hand them to the dispatcher, one goroutine per connection, so a
// stalled client never blocks reads from any other.
func (b *Broker) clientReadLoop(conn net.Conn) {
	defer b.wg.Done()

	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	id := fmt.Sprintf("conn-%d-%d", time.Now().UnixNano(), b.connSeq.Add(1))
	cr := newClientRecord(id, conn, b.cfg.OutboxSize)
	b.conns.Store(id, cr)

	defer func() {
		b.conns.Delete(id)
		cr.Close()
		if !b.closed.Load() {
			b.safeSend(dispatchEvent{client: cr, disconnect: true})
		}
	}()

	for {
		hdr, err := codec.ReadHeader(conn, b.cfg.HeaderVariant)
		if err != nil {
			return
		}
		payload, err := codec.ReadPayload(conn, hdr)
		if err != nil {
			return
		}
		// A registered type whose declared size disagrees with the
		// registry is a framing error; the sender is disconnected rather
		// than trusted to stay frame-aligned. Unknown types stay opaque
		// and are forwarded unchecked.
		if desc, ok := b.registry.Lookup(hdr.MsgType); ok && desc.FixedSize != len(payload) {
			b.logger.Warn("framing error, disconnecting client",
				"msg_type", hdr.MsgType, "declared", len(payload), "registered", desc.FixedSize)
			return
		}
		if !b.safeSend(dispatchEvent{client: cr, header: hdr, payload: payload}) {
			return
		}
	}
}

// safeSend delivers ev to the dispatcher, recovering from a send on a
// closed events channel during shutdown races.
func (b *Broker) safeSend(ev dispatchEvent) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if b.closed.Load() {
		return false
	}
	b.events <- ev
	return true
}

func (b *Broker) dispatchLoop() {
	defer b.wg.Done()
	for ev := range b.events {
		switch {
		case ev.timingTick:
			b.emitTimingMessage()
		case ev.disconnect:
			b.handleDisconnect(ev.client)
		default:
			b.handleFrame(ev.client, ev.header, ev.payload)
		}
	}
	b.drainClients()
}

func (b *Broker) drainClients() {
	for _, cr := range b.clients {
		cr.Close()
	}
}

// nextMsgCount is the broker's own outgoing sequence number, used for
// MM-originated control traffic (ACKNOWLEDGE, FAILED_MESSAGE, MM_ERROR,
// TIMING_MESSAGE, ...).
func (b *Broker) nextMsgCount() uint32 {
	b.msgCounter++
	return b.msgCounter
}

func (b *Broker) clientInfo(cr *ClientRecord) hook.ClientInfo {
	return hook.ClientInfo{
		ClientID: cr.id,
		ModuleID: cr.ModuleID,
		HostID:   cr.HostID,
		IsLogger: cr.IsLogger,
	}
}

// sendTo encodes and enqueues a broker-originated message on cr's outbox,
// bypassing subscription-based forwarding (used for ACKNOWLEDGE,
// FAIL_SUBSCRIBE, MM_ERROR, MESSAGE_LOG_SAVED). Every such reply is also
// mirrored to every logger, the same way a regular forward is — loggers
// see the whole control-plane conversation, not only data traffic.
func (b *Broker) sendTo(cr *ClientRecord, msgType wire.MessageType, destModID, destHostID int16, payload []byte) {
	hdr := &wire.Header{
		MsgType:      int32(msgType),
		MsgCount:     b.nextMsgCount(),
		SendTime:     float64(time.Now().UnixNano()) / 1e9,
		SrcHostID:    wire.HIDLocalHost,
		SrcModID:     wire.MIDMessageManager,
		DestHostID:   destHostID,
		DestModID:    destModID,
		NumDataBytes: int32(len(payload)),
	}
	frame := make([]byte, b.cfg.HeaderVariant.Size()+len(payload))
	hdr.Encode(b.cfg.HeaderVariant, frame)
	copy(frame[b.cfg.HeaderVariant.Size():], payload)
	if !cr.tryWrite(frame) {
		b.logger.Warn("dropped broker-originated message, client not writable", "client", cr.id, "msg_type", msgType)
		if b.metrics != nil {
			b.metrics.MessageDropped("mm_control_not_writable")
		}
	}
	b.deliverToLoggers(frame, cr)
}

// deliverToLoggers mirrors frame to every connected logger except
// exclude, blocking with no timeout per client: loggers are expected to
// absorb the whole stream, and this wait is the back-pressure path from
// the broker toward publishers.
func (b *Broker) deliverToLoggers(frame []byte, exclude *ClientRecord) {
	for _, lg := range b.loggers {
		if lg == exclude {
			continue
		}
		start := time.Now()
		lg.blockingWrite(frame)
		if b.metrics != nil {
			b.metrics.ObserveLoggerBlocked(time.Since(start))
		}
	}
}

// ack acknowledges a non-CONNECT control message, honoring the
// deployment's ack-all setting. CONNECT and DISCONNECT use ackAlways:
// their acknowledgements are part of the protocol, not optional.
func (b *Broker) ack(cr *ClientRecord) {
	if !b.cfg.ConnectAckAll {
		return
	}
	b.ackAlways(cr)
}

func (b *Broker) ackAlways(cr *ClientRecord) {
	b.sendTo(cr, wire.ACKNOWLEDGE, cr.ModuleID, cr.HostID, nil)
}

// announce emits an MM_INFO text record to logger clients only; regular
// modules are never burdened with broker chatter they did not subscribe
// to.
func (b *Broker) announce(msg string) {
	if len(b.loggers) == 0 {
		return
	}
	hdr := &wire.Header{
		MsgType:      int32(wire.MM_INFO),
		MsgCount:     b.nextMsgCount(),
		SendTime:     float64(time.Now().UnixNano()) / 1e9,
		SrcHostID:    wire.HIDLocalHost,
		SrcModID:     wire.MIDMessageManager,
		NumDataBytes: int32(wire.TextPayloadSize),
	}
	frame := make([]byte, b.cfg.HeaderVariant.Size()+wire.TextPayloadSize)
	hdr.Encode(b.cfg.HeaderVariant, frame)
	copy(frame[b.cfg.HeaderVariant.Size():], wire.TextPayload{Text: msg}.Marshal())
	b.deliverToLoggers(frame, nil)
}

func (b *Broker) errorTo(cr *ClientRecord, msg string) {
	b.sendTo(cr, wire.MM_ERROR, cr.ModuleID, cr.HostID, wire.TextPayload{Text: msg}.Marshal())
}
