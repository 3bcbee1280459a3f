package front

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcmesh/fabric/internal/front/dispatch"
	"github.com/ppcmesh/fabric/internal/nodeinfo"
	"github.com/ppcmesh/fabric/pkg/wire"
)

type fakeGateway struct {
	sendErr    error
	lastTrace  string
	lastPacket []byte
	sent       chan struct{}
}

func newFakeGateway() *fakeGateway { return &fakeGateway{sent: make(chan struct{}, 8)} }

func (g *fakeGateway) AsyncSendMessage(ctx context.Context, rt wire.RouteType, ri *wire.RouteInfo, traceID string, payload []byte, timeout time.Duration, broadcast bool) error {
	g.lastTrace = traceID
	g.lastPacket = payload
	g.sent <- struct{}{}
	return g.sendErr
}

func (g *fakeGateway) RegisterNodeInfo(ctx context.Context, node nodeinfo.Node) error  { return nil }
func (g *fakeGateway) UnRegisterNodeInfo(ctx context.Context, nodeID string) error     { return nil }
func (g *fakeGateway) RegisterTopic(ctx context.Context, nodeID, topic string) error   { return nil }
func (g *fakeGateway) UnRegisterTopic(ctx context.Context, nodeID, topic string) error { return nil }
func (g *fakeGateway) AsyncGetPeers(ctx context.Context) ([]byte, error)               { return nil, nil }
func (g *fakeGateway) AsyncGetAgencies(ctx context.Context) ([]string, error)          { return nil, nil }

func TestAsyncSendMessageInvokesErrCbOnSuccess(t *testing.T) {
	gw := newFakeGateway()
	f := New("node-a", "agency-a", gw, nil, nil)

	done := make(chan error, 1)
	f.AsyncSendMessage(wire.RouteByNodeID, &wire.RouteInfo{DstNode: []byte("node-b")}, []byte("hi"), time.Second, func(err error) { done <- err }, nil)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("errCb never fired")
	}
	<-gw.sent
	assert.NotEmpty(t, gw.lastTrace)
}

func TestAsyncSendMessagePropagatesSendError(t *testing.T) {
	gw := newFakeGateway()
	boom := errors.New("boom")
	gw.sendErr = boom
	f := New("node-a", "agency-a", gw, nil, nil)

	done := make(chan error, 1)
	f.AsyncSendMessage(wire.RouteByNodeID, &wire.RouteInfo{DstNode: []byte("node-b")}, []byte("hi"), time.Second, func(err error) { done <- err }, nil)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("errCb never fired")
	}
}

func TestPushBlocksUntilCompletion(t *testing.T) {
	gw := newFakeGateway()
	f := New("node-a", "agency-a", gw, nil, nil)

	err := f.Push(wire.RouteByNodeID, &wire.RouteInfo{DstNode: []byte("node-b")}, []byte("hi"), time.Second)
	assert.NoError(t, err)
}

func TestDeliverDispatchesToRegisteredTopicHandler(t *testing.T) {
	gw := newFakeGateway()
	f := New("node-a", "agency-a", gw, nil, nil)

	got := make(chan dispatch.Received, 1)
	f.RegisterTopic("t", func(msg dispatch.Received, respond func([]byte) error) { got <- msg })

	mp := &wire.MessagePayload{Version: 1, TraceID: "trace-1", Data: []byte("payload")}
	require.NoError(t, f.Deliver(&wire.RouteInfo{Topic: "t"}, wire.EncodePayload(mp)))

	select {
	case msg := <-got:
		assert.Equal(t, "t", msg.RouteInfo.Topic)
		assert.Equal(t, []byte("payload"), msg.Payload.Data)
	case <-time.After(time.Second):
		t.Fatal("topic handler never invoked")
	}
}

func TestDeliverOfResponseCompletesPendingCallback(t *testing.T) {
	gw := newFakeGateway()
	f := New("node-a", "agency-a", gw, nil, nil)

	respCh := make(chan *wire.MessagePayload, 1)
	f.AsyncSendMessage(wire.RouteByNodeID, &wire.RouteInfo{DstNode: []byte("node-b")}, []byte("req"), time.Second,
		nil, func(p *wire.MessagePayload, respond func([]byte) error, err error) { respCh <- p })
	<-gw.sent

	resp := &wire.MessagePayload{Version: 1, TraceID: gw.lastTrace, Data: []byte("ack")}
	resp.SetResponse(true)
	require.NoError(t, f.Deliver(&wire.RouteInfo{}, wire.EncodePayload(resp)))

	select {
	case p := <-respCh:
		require.NotNil(t, p)
		assert.Equal(t, []byte("ack"), p.Data)
	case <-time.After(time.Second):
		t.Fatal("respCb never invoked for response message")
	}
}
