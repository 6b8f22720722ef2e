package rtmaclient

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitt-rnel/rtma/internal/codec"
	"github.com/pitt-rnel/rtma/internal/registry"
	"github.com/pitt-rnel/rtma/internal/rtmaerr"
	"github.com/pitt-rnel/rtma/internal/wire"
)

const testUserType = 1234

// fakeMM is a scripted message manager endpoint: each test tells it what
// to read and what to answer, so session behavior is pinned down without
// a real broker.
type fakeMM struct {
	t    *testing.T
	ln   net.Listener
	conn net.Conn
}

func newFakeMM(t *testing.T) *fakeMM {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeMM{t: t, ln: ln}
	t.Cleanup(func() {
		ln.Close()
		if f.conn != nil {
			f.conn.Close()
		}
	})
	return f
}

func (f *fakeMM) addr() string { return f.ln.Addr().String() }

func (f *fakeMM) accept() {
	conn, err := f.ln.Accept()
	require.NoError(f.t, err)
	f.conn = conn
}

func (f *fakeMM) readFrame() (*wire.Header, []byte) {
	_ = f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	hdr, err := codec.ReadHeader(f.conn, wire.StandardHeader)
	require.NoError(f.t, err)
	payload, err := codec.ReadPayload(f.conn, hdr)
	require.NoError(f.t, err)
	return hdr, payload
}

func (f *fakeMM) send(msgType wire.MessageType, destMod int16, payload []byte) {
	hdr := &wire.Header{
		MsgType:      int32(msgType),
		SrcModID:     wire.MIDMessageManager,
		DestModID:    destMod,
		NumDataBytes: int32(len(payload)),
	}
	require.NoError(f.t, codec.WriteMessage(f.conn, wire.StandardHeader, hdr, payload))
}

// script runs fn on the fake's own goroutine and returns a channel that
// closes when it finishes.
func (f *fakeMM) script(fn func()) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	return done
}

func testOptions(t *testing.T) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.Registry = registry.NewCoreRegistry()
	require.NoError(t, opts.Registry.Register(registry.Descriptor{
		TypeID: testUserType, Name: "TEST_DATA", FixedSize: 8,
	}))
	opts.ConnectTimeout = time.Second
	opts.AckTimeout = time.Second
	return opts
}

// connectedSession dials the fake and completes the CONNECT handshake
// with the given assigned module id.
func connectedSession(t *testing.T, f *fakeMM, modID int16) *Session {
	t.Helper()
	s := NewSession(testOptions(t))

	done := f.script(func() {
		f.accept()
		hdr, payload := f.readFrame()
		require.Equal(f.t, int32(wire.CONNECT), hdr.MsgType)
		require.Len(f.t, payload, 4)
		f.send(wire.ACKNOWLEDGE, modID, nil)
	})
	require.NoError(t, s.Connect(f.addr()))
	<-done

	require.Equal(t, StateConnected, s.State())
	require.Equal(t, modID, s.ModuleID())
	return s
}

func TestConnectHandshake(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	// The CONNECT consumed send count 1.
	done := f.script(func() {
		hdr, _ := f.readFrame()
		assert.Equal(f.t, uint32(2), hdr.MsgCount)
		assert.Equal(f.t, int16(105), hdr.SrcModID)
	})
	require.NoError(t, s.SendMessage(testUserType, make([]byte, 8)))
	<-done
}

func TestConnectRefused(t *testing.T) {
	opts := testOptions(t)
	s := NewSession(opts)

	// Nothing listens on this address: the listener is closed first.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	err = s.Connect(addr)
	assert.ErrorIs(t, err, rtmaerr.ErrBrokerUnreachable)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestConnectAckTimeout(t *testing.T) {
	f := newFakeMM(t)
	opts := testOptions(t)
	opts.ConnectTimeout = 200 * time.Millisecond
	s := NewSession(opts)

	done := f.script(func() {
		f.accept()
		f.readFrame() // swallow CONNECT, never acknowledge
	})

	err := s.Connect(f.addr())
	assert.ErrorIs(t, err, rtmaerr.ErrAcknowledgementTimeout)
	<-done
}

func TestConnectCarriesLoggerStatus(t *testing.T) {
	f := newFakeMM(t)
	opts := testOptions(t)
	opts.LoggerStatus = true
	s := NewSession(opts)

	done := f.script(func() {
		f.accept()
		_, payload := f.readFrame()
		cp := wire.UnmarshalConnectPayload(payload)
		assert.Equal(f.t, int16(1), cp.LoggerStatus)
		f.send(wire.ACKNOWLEDGE, 101, nil)
	})
	require.NoError(t, s.Connect(f.addr()))
	<-done
}

func TestSubscribeSendsControlAndAwaitsAck(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	done := f.script(func() {
		hdr, payload := f.readFrame()
		assert.Equal(f.t, int32(wire.SUBSCRIBE), hdr.MsgType)
		assert.Equal(f.t, int32(testUserType), wire.UnmarshalSubscriptionPayload(payload).MsgType)
		f.send(wire.ACKNOWLEDGE, 105, nil)

		hdr, payload = f.readFrame()
		assert.Equal(f.t, int32(wire.UNSUBSCRIBE), hdr.MsgType)
		assert.Equal(f.t, int32(testUserType), wire.UnmarshalSubscriptionPayload(payload).MsgType)
		f.send(wire.ACKNOWLEDGE, 105, nil)
	})

	require.NoError(t, s.Subscribe(testUserType))
	require.NoError(t, s.Unsubscribe(testUserType))
	<-done
}

func TestSubscribeAckTimeout(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)
	s.opts.AckTimeout = 150 * time.Millisecond

	done := f.script(func() {
		f.readFrame() // never ack
	})

	err := s.Subscribe(testUserType)
	assert.ErrorIs(t, err, rtmaerr.ErrAcknowledgementTimeout)
	<-done
}

func TestAckWaitQueuesInterleavedMessages(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	done := f.script(func() {
		f.readFrame()
		// A data message lands before the acknowledgement; the ack wait
		// must not discard it.
		f.send(wire.MessageType(testUserType), 105, data)
		f.send(wire.ACKNOWLEDGE, 105, nil)
	})

	require.NoError(t, s.Subscribe(testUserType))
	<-done

	msg, err := s.ReadMessage(time.Second)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, data, msg.Payload)
	assert.Equal(t, "TEST_DATA", msg.Name)
}

func TestReadMessageTimeout(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	start := time.Now()
	msg, err := s.ReadMessage(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, StateConnected, s.State(), "a clean timeout must not fault the session")
}

func TestReadMessageConnectionLost(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	f.conn.Close()

	_, err := s.ReadMessage(time.Second)
	assert.ErrorIs(t, err, rtmaerr.ErrConnectionLost)
	assert.Equal(t, StateFaulted, s.State())
}

func TestSendMessageValidation(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	err := s.SendMessageTo(testUserType, make([]byte, 8), int16(wire.MaxModules)+1, 0, 0)
	assert.ErrorIs(t, err, rtmaerr.ErrInvalidDestinationModule)

	err = s.SendMessageTo(testUserType, make([]byte, 8), 0, int16(wire.MaxHosts)+1, 0)
	assert.ErrorIs(t, err, rtmaerr.ErrInvalidDestinationHost)

	err = s.SendMessage(9876, make([]byte, 8))
	assert.ErrorIs(t, err, rtmaerr.ErrUnknownType)

	err = s.SendMessage(testUserType, make([]byte, 5))
	assert.ErrorIs(t, err, rtmaerr.ErrFramingError)

	// None of the rejected sends may consume a message count: the next
	// accepted send is count 2 (CONNECT was 1).
	done := f.script(func() {
		hdr, _ := f.readFrame()
		assert.Equal(f.t, uint32(2), hdr.MsgCount)
	})
	require.NoError(t, s.SendMessage(testUserType, make([]byte, 8)))
	<-done
}

func TestSendSignal(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	done := f.script(func() {
		hdr, payload := f.readFrame()
		assert.Equal(f.t, int32(wire.EXIT), hdr.MsgType)
		assert.Zero(f.t, hdr.NumDataBytes)
		assert.Nil(f.t, payload)
	})
	require.NoError(t, s.SendSignal(int32(wire.EXIT)))
	<-done
}

func TestSendModuleReady(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	done := f.script(func() {
		hdr, payload := f.readFrame()
		assert.Equal(f.t, int32(wire.MODULE_READY), hdr.MsgType)
		assert.NotZero(f.t, wire.UnmarshalModuleReadyPayload(payload).PID)
		f.send(wire.ACKNOWLEDGE, 105, nil)
	})
	require.NoError(t, s.SendModuleReady())
	<-done
}

func TestNotConnectedErrors(t *testing.T) {
	s := NewSession(testOptions(t))

	assert.ErrorIs(t, s.Subscribe(testUserType), rtmaerr.ErrNotConnected)
	assert.ErrorIs(t, s.SendMessage(testUserType, make([]byte, 8)), rtmaerr.ErrNotConnected)
	_, err := s.ReadMessage(time.Millisecond)
	assert.ErrorIs(t, err, rtmaerr.ErrNotConnected)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	done := f.script(func() {
		hdr, _ := f.readFrame()
		assert.Equal(f.t, int32(wire.DISCONNECT), hdr.MsgType)
		f.send(wire.ACKNOWLEDGE, 105, nil)
	})

	require.NoError(t, s.Disconnect())
	<-done
	assert.Equal(t, StateDisconnected, s.State())

	// A second disconnect is a no-op.
	require.NoError(t, s.Disconnect())
}

func TestDiscardMessages(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	done := f.script(func() {
		for i := 0; i < 3; i++ {
			f.send(wire.MessageType(testUserType), 105, data)
		}
	})
	<-done

	n, err := s.DiscardMessages(300 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	msg, err := s.ReadMessage(100 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg, "everything must have been discarded")
}

func TestDropOnBusyEmitsDiagnostic(t *testing.T) {
	f := newFakeMM(t)
	s := connectedSession(t, f, 105)

	var diag bytes.Buffer
	s.diag = &diag

	// A deadline already in the past forces the first Write to time out
	// before any byte leaves, which is the silent-drop path.
	require.NoError(t, s.conn.SetWriteDeadline(time.Now().Add(-time.Second)))
	hdr := s.newHeader(testUserType, 8)
	require.NoError(t, s.writeFrameDroppable(hdr, make([]byte, 8), true))

	assert.Equal(t, "x", diag.String())
	assert.Equal(t, uint32(1), s.msgCount, "a dropped message must not consume a count")
	assert.Equal(t, StateConnected, s.State())
}
