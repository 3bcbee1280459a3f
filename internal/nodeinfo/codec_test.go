package nodeinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayNodeInfoRoundTrip(t *testing.T) {
	g := &GatewayNodeInfo{
		GatewayID: "gw-a",
		StatusSeq: 9,
		Nodes: map[string]Node{
			"node-a": {NodeID: "node-a", Agency: "agency-a", Components: []string{"psi", "echo"}},
		},
		Topics: map[string][]string{
			"topic-x": {"node-a"},
		},
	}
	buf := g.Encode()
	got, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, "gw-a", got.GatewayID)
	assert.EqualValues(t, 9, got.StatusSeq)

	n, ok := got.Nodes["node-a"]
	require.True(t, ok)
	assert.Equal(t, "agency-a", n.Agency)
	assert.True(t, n.HasComponent("psi"))

	assert.Equal(t, []string{"node-a"}, got.Topics["topic-x"])
}

func TestCloneIsIndependent(t *testing.T) {
	g := &GatewayNodeInfo{
		GatewayID: "gw-a",
		Nodes:     map[string]Node{"n": {NodeID: "n", Components: []string{"a"}}},
		Topics:    map[string][]string{"t": {"n"}},
	}
	clone := g.Clone()
	clone.Nodes["n"] = Node{NodeID: "n", Components: []string{"b"}}
	assert.Equal(t, "a", g.Nodes["n"].Components[0], "mutating clone affected original")
}
