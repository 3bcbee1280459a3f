package peerrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcmesh/fabric/internal/nodeinfo"
	"github.com/ppcmesh/fabric/pkg/wire"
)

func seedStore(store *nodeinfo.Store, gatewayID string, nodes map[string]nodeinfo.Node) {
	store.Put(gatewayID, &nodeinfo.GatewayNodeInfo{GatewayID: gatewayID, Nodes: nodes})
}

func TestSelectRouterByNodeID(t *testing.T) {
	store := nodeinfo.NewStore()
	seedStore(store, "gw-a", map[string]nodeinfo.Node{"node-1": {NodeID: "node-1", Agency: "agency-a"}})
	seedStore(store, "gw-b", map[string]nodeinfo.Node{"node-2": {NodeID: "node-2", Agency: "agency-b"}})

	tbl := New(store)
	gws, err := tbl.SelectRouter(wire.RouteByNodeID, &wire.RouteInfo{DstNode: []byte("node-1")})
	require.NoError(t, err)
	require.Len(t, gws, 1)
	assert.Equal(t, "gw-a", gws[0].GatewayID)
}

func TestSelectRouterByAgency(t *testing.T) {
	store := nodeinfo.NewStore()
	seedStore(store, "gw-a", map[string]nodeinfo.Node{"node-1": {NodeID: "node-1", Agency: "agency-x"}})
	seedStore(store, "gw-b", map[string]nodeinfo.Node{"node-2": {NodeID: "node-2", Agency: "agency-y"}})

	tbl := New(store)
	gws, err := tbl.SelectRouter(wire.RouteByAgency, &wire.RouteInfo{DstInst: "agency-x"})
	require.NoError(t, err)
	require.Len(t, gws, 1)
	assert.Equal(t, "gw-a", gws[0].GatewayID)
}

func TestSelectRouterByComponentFiltersWithinAgency(t *testing.T) {
	store := nodeinfo.NewStore()
	seedStore(store, "gw-a", map[string]nodeinfo.Node{
		"node-1": {NodeID: "node-1", Agency: "agency-x", Components: []string{"psi"}},
	})
	seedStore(store, "gw-b", map[string]nodeinfo.Node{
		"node-2": {NodeID: "node-2", Agency: "agency-x", Components: []string{"echo"}},
	})

	tbl := New(store)
	gws, err := tbl.SelectRouter(wire.RouteByComponent, &wire.RouteInfo{DstInst: "agency-x", ComponentType: "psi"})
	require.NoError(t, err)
	require.Len(t, gws, 1)
	assert.Equal(t, "gw-a", gws[0].GatewayID)
}

type fakeSender struct {
	sent map[string]*wire.Message
}

func (s *fakeSender) SendToPeer(peerGatewayID string, msg *wire.Message) error {
	if s.sent == nil {
		s.sent = make(map[string]*wire.Message)
	}
	s.sent[peerGatewayID] = msg
	return nil
}

func TestAsyncBroadcastMessagePicksOnePerAgency(t *testing.T) {
	store := nodeinfo.NewStore()
	seedStore(store, "gw-a", map[string]nodeinfo.Node{"node-1": {NodeID: "node-1", Agency: "agency-x"}})
	seedStore(store, "gw-b", map[string]nodeinfo.Node{"node-2": {NodeID: "node-2", Agency: "agency-x"}})
	seedStore(store, "gw-self", map[string]nodeinfo.Node{"node-3": {NodeID: "node-3", Agency: "agency-x"}})

	tbl := New(store)
	sender := &fakeSender{}
	tbl.AsyncBroadcastMessage("gw-self", sender, &wire.Message{Payload: []byte("payload")})

	require.Len(t, sender.sent, 1, "want exactly 1 send for the single agency")
	for gw := range sender.sent {
		assert.NotEqual(t, "gw-self", gw, "broadcast should never select self")
	}
}
