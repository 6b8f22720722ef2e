package broker

import (
	"net"
	"sync/atomic"
)

// clientState is the broker-side client record lifecycle:
// Accepted -> Registered -> Removed.
type clientState int32

const (
	stateAccepted clientState = iota
	stateRegistered
	stateRemoved
)

// ClientRecord is the broker's bookkeeping for one connected socket. Fields
// other than conn/id/outbox/closeCh are mutated exclusively by the
// dispatcher goroutine (the design's single writer), so they need no lock.
type ClientRecord struct {
	id         string
	conn       net.Conn
	remoteAddr string

	outbox   chan []byte
	closeCh  chan struct{}
	drainCh  chan struct{}
	draining atomic.Bool
	closed   atomic.Bool

	state      clientState
	ModuleID   int16
	HostID     int16
	PID        int32
	IsLogger   bool
	Registered bool

	pausedTypes map[int32]bool
}

// newClientRecord wraps an accepted connection. outboxSize bounds how many
// pending frames may queue before the non-blocking writability probe in
// forward.go reports "not writable".
func newClientRecord(id string, conn net.Conn, outboxSize int) *ClientRecord {
	cr := &ClientRecord{
		id:          id,
		conn:        conn,
		remoteAddr:  conn.RemoteAddr().String(),
		outbox:      make(chan []byte, outboxSize),
		closeCh:     make(chan struct{}),
		drainCh:     make(chan struct{}),
		state:       stateAccepted,
		pausedTypes: make(map[int32]bool),
	}
	go cr.writeLoop()
	return cr
}

// ClientID satisfies subscription.Subscriber.
func (c *ClientRecord) ClientID() string { return c.id }

// pauseType and isPaused are only ever touched from the dispatcher
// goroutine, so they need no lock of their own (see Broker's doc comment).
func (c *ClientRecord) pauseType(typeID int32, paused bool) {
	if paused {
		c.pausedTypes[typeID] = true
	} else {
		delete(c.pausedTypes, typeID)
	}
}

func (c *ClientRecord) isPaused(typeID int32) bool {
	return c.pausedTypes[typeID]
}

func (c *ClientRecord) writeLoop() {
	for {
		select {
		case frame, ok := <-c.outbox:
			if !ok {
				return
			}
			if _, err := c.conn.Write(frame); err != nil {
				c.Close()
				return
			}
		case <-c.drainCh:
			// Graceful close: flush whatever is already queued, then
			// close the socket.
			for {
				select {
				case frame := <-c.outbox:
					if _, err := c.conn.Write(frame); err != nil {
						c.Close()
						return
					}
				default:
					c.Close()
					return
				}
			}
		case <-c.closeCh:
			return
		}
	}
}

// drainAndClose asks the writer goroutine to flush every frame already
// queued and then close the socket, so a final ACKNOWLEDGE or MM_ERROR is
// not lost in a close race. New frames are refused from this point on.
func (c *ClientRecord) drainAndClose() {
	if !c.draining.CompareAndSwap(false, true) {
		return
	}
	close(c.drainCh)
}

// tryWrite attempts a non-blocking enqueue: the Go equivalent of a
// zero-timeout writability probe.
func (c *ClientRecord) tryWrite(frame []byte) bool {
	if c.closed.Load() || c.draining.Load() {
		return false
	}
	select {
	case c.outbox <- frame:
		return true
	default:
		return false
	}
}

// blockingWrite enqueues with no timeout, used only for delivery to
// logger clients.
func (c *ClientRecord) blockingWrite(frame []byte) bool {
	if c.closed.Load() || c.draining.Load() {
		return false
	}
	select {
	case c.outbox <- frame:
		return true
	case <-c.closeCh:
		return false
	}
}

// Close closes the underlying connection and stops the writer goroutine.
// Safe to call multiple times.
func (c *ClientRecord) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.closeCh)
	return c.conn.Close()
}
