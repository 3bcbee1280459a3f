package localrouter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcmesh/fabric/internal/nodeinfo"
	"github.com/ppcmesh/fabric/pkg/wire"
)

type fakeClient struct {
	delivered [][]byte
	err       error
}

func (c *fakeClient) Deliver(ri *wire.RouteInfo, payload []byte) error {
	c.delivered = append(c.delivered, payload)
	return c.err
}
func (c *fakeClient) Healthy() bool { return true }

func TestDispatchByNodeID(t *testing.T) {
	reg := NewRegistry("gw-a", "agency-a")
	client := &fakeClient{}
	reg.Register(nodeinfo.Node{NodeID: "node-a"}, client, nil)
	d := NewDispatcher(reg, nil)

	found, err := d.Dispatch(wire.RouteByNodeID, &wire.RouteInfo{DstNode: []byte("node-a")}, false, false, []byte("hi"), nil)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, client.delivered, 1)
}

func TestDispatchByNodeIDMissTriggersNoReceiver(t *testing.T) {
	reg := NewRegistry("gw-a", "agency-a")
	d := NewDispatcher(reg, nil)
	found, err := d.Dispatch(wire.RouteByNodeID, &wire.RouteInfo{DstNode: []byte("ghost")}, false, false, nil, nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDispatchByTopicHoldsOnMiss(t *testing.T) {
	reg := NewRegistry("gw-a", "agency-a")
	holding := NewHoldingCache(50 * time.Millisecond)
	d := NewDispatcher(reg, holding)

	var ackErr error
	ackCalled := make(chan struct{})
	found, err := d.Dispatch(wire.RouteByTopic, &wire.RouteInfo{Topic: "t"}, false, true, []byte("payload"), func(e error) {
		ackErr = e
		close(ackCalled)
	})
	require.NoError(t, err)
	assert.True(t, found, "held message should report found=true")

	select {
	case <-ackCalled:
	case <-time.After(time.Second):
		t.Fatal("holding queue never expired")
	}
	assert.ErrorIs(t, ackErr, errHoldingTimeout)
}

func TestDispatchByTopicExcludesSource(t *testing.T) {
	reg := NewRegistry("gw-a", "agency-a")
	client := &fakeClient{}
	reg.Register(nodeinfo.Node{NodeID: "node-a"}, client, nil)
	reg.RegisterTopic("node-a", "t")
	d := NewDispatcher(reg, nil)

	found, _ := d.Dispatch(wire.RouteByTopic, &wire.RouteInfo{Topic: "t", SrcNode: []byte("node-a")}, false, false, nil, nil)
	assert.False(t, found, "Dispatch should not deliver a topic message back to its own source")
}

func TestDispatchUnknownPolicyFails(t *testing.T) {
	reg := NewRegistry("gw-a", "agency-a")
	d := NewDispatcher(reg, nil)
	_, err := d.Dispatch(wire.RouteType(99), &wire.RouteInfo{}, false, false, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestRedeliverHeldAfterTopicRegistration(t *testing.T) {
	reg := NewRegistry("gw-a", "agency-a")
	holding := NewHoldingCache(time.Hour)
	d := NewDispatcher(reg, holding)

	d.Dispatch(wire.RouteByTopic, &wire.RouteInfo{Topic: "t"}, false, true, []byte("queued"), nil)

	client := &fakeClient{}
	reg.Register(nodeinfo.Node{NodeID: "node-a"}, client, nil)
	reg.RegisterTopic("node-a", "t")
	d.RedeliverHeld("t")

	require.Len(t, client.delivered, 1)
	assert.Equal(t, "queued", string(client.delivered[0]))
}
