package peerservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcmesh/fabric/pkg/wire"
)

func newTestService(t *testing.T, selfID string, handler MessageHandler) *Service {
	t.Helper()
	s, err := New(selfID, "127.0.0.1:0", wire.DefaultMaxFrameSize, time.Hour, handler, nil)
	require.NoError(t, err)
	s.Start()
	t.Cleanup(func() { s.Stop() })
	return s
}

func noopHandler(peerID string, msg *wire.Message) ([]byte, bool) { return nil, false }

func TestConnectEstablishesSessionBothSides(t *testing.T) {
	b := newTestService(t, "gw-b", noopHandler)
	a := newTestService(t, "gw-a", noopHandler)

	require.NoError(t, a.Connect(b.Addr()))
	waitFor(t, func() bool { return a.HasSession("gw-b") })
	waitFor(t, func() bool { return b.HasSession("gw-a") })
}

func TestConnectToSelfIsRejected(t *testing.T) {
	a := newTestService(t, "gw-a", noopHandler)
	assert.ErrorIs(t, a.Connect(a.Addr()), ErrSelfLoop)
}

func TestSendMessageRoundTripsAck(t *testing.T) {
	received := make(chan *wire.Message, 1)
	b := newTestService(t, "gw-b", func(peerID string, msg *wire.Message) ([]byte, bool) {
		received <- msg
		return []byte{0}, true
	})
	a := newTestService(t, "gw-a", noopHandler)

	require.NoError(t, a.Connect(b.Addr()))
	waitFor(t, func() bool { return a.HasSession("gw-b") })

	msg := &wire.Message{
		Header: wire.MessageHeader{
			Version:    1,
			PacketType: wire.PacketP2PMessage,
			TraceID:    "trace-1",
			RouteInfo:  &wire.RouteInfo{DstNode: []byte("node-1")},
		},
		Payload: []byte("hello"),
	}
	msg.Header.SetRouteType(wire.RouteByNodeID, false)

	ack, err := a.SendMessage("gw-b", msg, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, ack)

	select {
	case got := <-received:
		assert.Equal(t, "trace-1", got.Header.TraceID)
		assert.Equal(t, "hello", string(got.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestSendMessageNoSessionReturnsErrNoSession(t *testing.T) {
	a := newTestService(t, "gw-a", noopHandler)
	_, err := a.SendMessage("gw-ghost", &wire.Message{}, false)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSendToAllPeersFansOutToEveryConnectedSession(t *testing.T) {
	var gotB, gotC []byte
	recvB := make(chan struct{}, 1)
	recvC := make(chan struct{}, 1)
	b := newTestService(t, "gw-b", func(peerID string, msg *wire.Message) ([]byte, bool) {
		gotB = msg.Payload
		recvB <- struct{}{}
		return nil, false
	})
	c := newTestService(t, "gw-c", func(peerID string, msg *wire.Message) ([]byte, bool) {
		gotC = msg.Payload
		recvC <- struct{}{}
		return nil, false
	})
	a := newTestService(t, "gw-a", noopHandler)

	require.NoError(t, a.Connect(b.Addr()))
	require.NoError(t, a.Connect(c.Addr()))
	waitFor(t, func() bool { return a.HasSession("gw-b") && a.HasSession("gw-c") })

	a.SendToAllPeers(uint16(wire.PacketSyncNodeSeq), []byte("gossip"))

	for range []int{0, 1} {
		select {
		case <-recvB:
		case <-recvC:
		case <-time.After(2 * time.Second):
			t.Fatal("not every peer received the broadcast")
		}
	}
	assert.Equal(t, "gossip", string(gotB))
	assert.Equal(t, "gossip", string(gotC))
}

func TestReachablePeers(t *testing.T) {
	b := newTestService(t, "gw-b", noopHandler)
	a := newTestService(t, "gw-a", noopHandler)
	require.NoError(t, a.Connect(b.Addr()))
	waitFor(t, func() bool { return a.HasSession("gw-b") })

	assert.Equal(t, []string{"gw-b"}, a.ReachablePeers())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
