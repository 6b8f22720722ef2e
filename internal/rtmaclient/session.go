// Package rtmaclient implements the client side of the message manager
// protocol: connection lifecycle, subscription control, typed send/receive
// and acknowledgement waits. A Session is not safe for concurrent use;
// applications driving one session from several goroutines must serialize
// their calls, matching the single-threaded client model the protocol
// assumes.
package rtmaclient

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/pitt-rnel/rtma/internal/codec"
	"github.com/pitt-rnel/rtma/internal/rtmaerr"
	"github.com/pitt-rnel/rtma/internal/wire"
)

// SessionState tracks the connection lifecycle: Disconnected ->
// Connecting -> Connected -> (Disconnecting | Faulted) -> Disconnected.
type SessionState int32

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateFaulted
)

// Session is one client endpoint of the message manager protocol.
type Session struct {
	opts  Options
	state atomic.Int32

	conn     net.Conn
	moduleID int16
	pid      int32

	// msgCount is this session's monotonic send counter. It wraps at
	// 2^32 and is only advanced for messages actually written; dropped
	// sends never consume a count.
	msgCount uint32

	// pending holds messages the ack wait pulled off the socket ahead of
	// the acknowledgement; ReadMessage drains it before touching the
	// socket again.
	pending []*Message

	// diag receives the one-character drop markers; stderr unless a test
	// swaps it out.
	diag io.Writer
}

// NewSession returns an unconnected Session.
func NewSession(opts Options) *Session {
	opts.fillDefaults()
	return &Session{
		opts: opts,
		pid:  int32(os.Getpid()),
		diag: os.Stderr,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// ModuleID returns the module id assigned by the message manager, valid
// once Connect has returned.
func (s *Session) ModuleID() int16 { return s.moduleID }

// Connect dials the message manager at addr, sends CONNECT, and waits for
// the acknowledgement carrying the assigned module id. The whole exchange
// is bounded by opts.ConnectTimeout.
func (s *Session) Connect(addr string) error {
	if s.State() == StateConnected {
		return nil
	}
	s.state.Store(int32(StateConnecting))
	deadline := time.Now().Add(s.opts.ConnectTimeout)

	conn, err := net.DialTimeout("tcp", addr, s.opts.ConnectTimeout)
	if err != nil {
		s.state.Store(int32(StateDisconnected))
		return fmt.Errorf("%w: %s", rtmaerr.ErrBrokerUnreachable, addr)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	s.conn = conn
	s.pending = nil

	payload := wire.ConnectPayload{
		LoggerStatus: boolToStatus(s.opts.LoggerStatus),
		DaemonStatus: boolToStatus(s.opts.DaemonStatus),
	}.Marshal()
	hdr := s.newHeader(int32(wire.CONNECT), len(payload))
	hdr.SrcModID = s.opts.ModuleID
	if err := s.writeFrame(hdr, payload); err != nil {
		s.fault()
		return err
	}
	s.msgCount = hdr.MsgCount

	ack, err := s.waitForAcknowledgement(deadline)
	if err != nil {
		s.fault()
		return err
	}

	// The manager addresses the acknowledgement to the id it assigned.
	s.moduleID = ack.Header.DestModID
	s.state.Store(int32(StateConnected))
	s.opts.Logger.Debug("connected to message manager", "addr", addr, "module_id", s.moduleID)
	return nil
}

// Disconnect sends DISCONNECT, waits briefly for the acknowledgement, and
// closes the socket. Idempotent; errors after the close are swallowed.
func (s *Session) Disconnect() error {
	if s.State() == StateDisconnected {
		return nil
	}
	s.state.Store(int32(StateDisconnecting))

	if s.conn != nil {
		hdr := s.newHeader(int32(wire.DISCONNECT), 0)
		if err := s.writeFrame(hdr, nil); err == nil {
			s.msgCount = hdr.MsgCount
			_, _ = s.waitForAcknowledgement(time.Now().Add(500 * time.Millisecond))
		}
		_ = s.conn.Close()
		s.conn = nil
	}
	s.pending = nil
	s.state.Store(int32(StateDisconnected))
	return nil
}

// Subscribe registers interest in each given message type.
func (s *Session) Subscribe(types ...int32) error {
	return s.sendSubscriptionControl(wire.SUBSCRIBE, types)
}

// Unsubscribe drops interest in each given message type. Unsubscribing a
// type that was never subscribed is a no-op on the manager side.
func (s *Session) Unsubscribe(types ...int32) error {
	return s.sendSubscriptionControl(wire.UNSUBSCRIBE, types)
}

// PauseSubscription suspends delivery for the given types without
// dropping the registration, so a later resume needs no re-subscribe and
// loggers can observe the intent.
func (s *Session) PauseSubscription(types ...int32) error {
	return s.sendSubscriptionControl(wire.PAUSE_SUBSCRIPTION, types)
}

// ResumeSubscription re-enables delivery for paused types.
func (s *Session) ResumeSubscription(types ...int32) error {
	return s.sendSubscriptionControl(wire.RESUME_SUBSCRIPTION, types)
}

func (s *Session) sendSubscriptionControl(mt wire.MessageType, types []int32) error {
	if s.State() != StateConnected {
		return rtmaerr.ErrNotConnected
	}
	for _, t := range types {
		payload := wire.SubscriptionPayload{MsgType: t}.Marshal()
		hdr := s.newHeader(int32(mt), len(payload))
		if err := s.writeFrame(hdr, payload); err != nil {
			s.fault()
			return err
		}
		s.msgCount = hdr.MsgCount

		if s.opts.AckControlMessages {
			if _, err := s.waitForAcknowledgement(time.Now().Add(s.opts.AckTimeout)); err != nil {
				return err
			}
		}
	}
	return nil
}

// SendMessage publishes payload as msgType with no destination narrowing
// and no send timeout.
func (s *Session) SendMessage(msgType int32, payload []byte) error {
	return s.SendMessageTo(msgType, payload, 0, 0, 0)
}

// SendMessageTo publishes payload as msgType, optionally narrowed to a
// destination module/host. A positive timeout bounds the wait for socket
// writability; if it elapses before any byte is written the message is
// dropped silently, the send counter is not advanced, and a one-character
// diagnostic is emitted.
func (s *Session) SendMessageTo(msgType int32, payload []byte, destMod, destHost int16, timeout time.Duration) error {
	if s.State() != StateConnected {
		return rtmaerr.ErrNotConnected
	}
	if destMod < 0 || int(destMod) > wire.MaxModules {
		return rtmaerr.ErrInvalidDestinationModule
	}
	if destHost < 0 || int(destHost) > wire.MaxHosts {
		return rtmaerr.ErrInvalidDestinationHost
	}
	if d, ok := s.opts.Registry.Lookup(msgType); ok {
		if d.FixedSize != len(payload) {
			return rtmaerr.ErrFramingError
		}
	} else {
		return rtmaerr.ErrUnknownType
	}

	hdr := s.newHeader(msgType, len(payload))
	hdr.DestModID = destMod
	hdr.DestHostID = destHost

	if timeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
		defer s.conn.SetWriteDeadline(time.Time{})
	}
	if err := s.writeFrameDroppable(hdr, payload, timeout > 0); err != nil {
		return err
	}
	return nil
}

// SendSignal publishes an empty-payload message of msgType.
func (s *Session) SendSignal(msgType int32) error {
	return s.SendSignalTo(msgType, 0, 0, 0)
}

// SendSignalTo publishes an empty-payload message with optional
// destination narrowing and send timeout.
func (s *Session) SendSignalTo(msgType int32, destMod, destHost int16, timeout time.Duration) error {
	return s.SendMessageTo(msgType, nil, destMod, destHost, timeout)
}

// SendModuleReady announces this process's pid to the message manager for
// inclusion in the periodic timing snapshot.
func (s *Session) SendModuleReady() error {
	if s.State() != StateConnected {
		return rtmaerr.ErrNotConnected
	}
	payload := wire.ModuleReadyPayload{PID: s.pid}.Marshal()
	hdr := s.newHeader(int32(wire.MODULE_READY), len(payload))
	if err := s.writeFrame(hdr, payload); err != nil {
		s.fault()
		return err
	}
	s.msgCount = hdr.MsgCount
	if s.opts.AckControlMessages {
		if _, err := s.waitForAcknowledgement(time.Now().Add(s.opts.AckTimeout)); err != nil {
			return err
		}
	}
	return nil
}

// ReadMessage waits up to timeout for one message. It returns (nil, nil)
// when the timeout elapses with nothing to read; a zero or negative
// timeout blocks indefinitely.
func (s *Session) ReadMessage(timeout time.Duration) (*Message, error) {
	if s.State() != StateConnected && s.State() != StateDisconnecting {
		return nil, rtmaerr.ErrNotConnected
	}
	if len(s.pending) > 0 {
		msg := s.pending[0]
		s.pending = s.pending[1:]
		return msg, nil
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	return s.readOne(deadline)
}

// DiscardMessages drains and discards everything readable within timeout,
// returning the number of messages thrown away.
func (s *Session) DiscardMessages(timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	n := len(s.pending)
	s.pending = nil
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return n, nil
		}
		msg, err := s.readOne(deadline)
		if err != nil {
			return n, err
		}
		if msg == nil {
			return n, nil
		}
		n++
	}
}

// readOne reads a single header+payload frame, honoring deadline (zero
// means block). Returns (nil, nil) on a clean timeout.
func (s *Session) readOne(deadline time.Time) (*Message, error) {
	_ = s.conn.SetReadDeadline(deadline)

	// The header is read directly rather than via codec.ReadHeader so a
	// deadline expiring before the first byte can be told apart from a
	// mid-frame stall: the former is a clean timeout, the latter leaves
	// the stream unaligned and faults the session.
	buf := make([]byte, s.opts.HeaderVariant.Size())
	n, err := io.ReadFull(s.conn, buf)
	if err != nil {
		if isTimeout(err) && n == 0 {
			return nil, nil
		}
		s.fault()
		return nil, rtmaerr.ErrConnectionLost
	}
	hdr := &wire.Header{}
	hdr.Decode(s.opts.HeaderVariant, buf)

	payload, err := codec.ReadPayload(s.conn, hdr)
	if err != nil {
		s.fault()
		return nil, err
	}

	hdr.RecvTime = nowUnix()
	msg := &Message{Header: *hdr, Payload: payload}
	if d, ok := s.opts.Registry.Lookup(hdr.MsgType); ok {
		msg.Name = d.Name
		if d.FixedSize != len(payload) {
			return nil, rtmaerr.ErrFramingError
		}
	} else if !s.opts.Registry.IsCore(hdr.MsgType) {
		return msg, rtmaerr.ErrUnknownType
	}
	return msg, nil
}

// waitForAcknowledgement reads until an ACKNOWLEDGE arrives or deadline
// elapses. Every other message read along the way is queued for
// ReadMessage so the wait never discards data, and the deadline-based
// loop keeps cumulative reads within the caller's budget.
func (s *Session) waitForAcknowledgement(deadline time.Time) (*Message, error) {
	for {
		if !time.Now().Before(deadline) {
			return nil, rtmaerr.ErrAcknowledgementTimeout
		}
		msg, err := s.readOne(deadline)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			return nil, rtmaerr.ErrAcknowledgementTimeout
		}
		if msg.Type() == wire.ACKNOWLEDGE {
			return msg, nil
		}
		s.pending = append(s.pending, msg)
	}
}

// newHeader fills a header for an outgoing message using the next send
// count; the caller commits s.msgCount only after a successful write so
// dropped sends never consume a count.
func (s *Session) newHeader(msgType int32, payloadLen int) *wire.Header {
	hdr := &wire.Header{
		MsgType:      msgType,
		MsgCount:     s.msgCount + 1,
		SendTime:     nowUnix(),
		SrcHostID:    s.opts.HostID,
		SrcModID:     s.moduleID,
		NumDataBytes: int32(payloadLen),
	}
	if s.opts.HeaderVariant == wire.TimecodedHeader {
		now := time.Now()
		hdr.UTCSeconds = uint32(now.Unix())
		hdr.UTCFraction = uint32(now.Nanosecond())
	}
	return hdr
}

func (s *Session) writeFrame(hdr *wire.Header, payload []byte) error {
	if s.conn == nil {
		return rtmaerr.ErrNotConnected
	}
	return codec.WriteMessage(s.conn, s.opts.HeaderVariant, hdr, payload)
}

// writeFrameDroppable writes hdr+payload; when droppable, a write
// deadline expiring before any byte went out is the drop-on-busy path:
// the frame is abandoned, a diagnostic marker is emitted, and no error is
// surfaced. A deadline expiring mid-frame has desynchronized the stream
// and faults the session instead.
func (s *Session) writeFrameDroppable(hdr *wire.Header, payload []byte, droppable bool) error {
	frame := make([]byte, s.opts.HeaderVariant.Size()+len(payload))
	hdr.Encode(s.opts.HeaderVariant, frame)
	copy(frame[s.opts.HeaderVariant.Size():], payload)

	written := 0
	for written < len(frame) {
		n, err := s.conn.Write(frame[written:])
		written += n
		if err != nil {
			if droppable && isTimeout(err) && written == 0 {
				fmt.Fprint(s.diag, "x")
				return nil
			}
			s.fault()
			return rtmaerr.ErrConnectionLost
		}
	}
	s.msgCount = hdr.MsgCount
	return nil
}

func (s *Session) fault() {
	s.state.Store(int32(StateFaulted))
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func boolToStatus(b bool) int16 {
	if b {
		return 1
	}
	return 0
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
