package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppcmesh/fabric/internal/gatewaycore"
	"github.com/ppcmesh/fabric/internal/localrouter"
	"github.com/ppcmesh/fabric/internal/nodeinfo"
	"github.com/ppcmesh/fabric/pkg/wire"
)

// GatewayClient is the interface the front package dials against,
// regardless of mode: AirGatewayClient in AIR mode, ProGatewayClient in
// PRO mode.
type GatewayClient interface {
	AsyncSendMessage(ctx context.Context, rt wire.RouteType, ri *wire.RouteInfo, traceID string, payload []byte, timeout time.Duration, broadcast bool) error
	RegisterNodeInfo(ctx context.Context, node nodeinfo.Node) error
	UnRegisterNodeInfo(ctx context.Context, nodeID string) error
	RegisterTopic(ctx context.Context, nodeID, topic string) error
	UnRegisterTopic(ctx context.Context, nodeID, topic string) error
	AsyncGetPeers(ctx context.Context) ([]byte, error)
	AsyncGetAgencies(ctx context.Context) ([]string, error)
}

// AirGatewayClient is the AIR-mode GatewayClient: direct in-process calls
// against the co-located gateway's core and registry, skipping gRPC
// serialization entirely per §6 ("in AIR mode these are local method
// calls"). cmd/gatewayd builds both the Gateway and the Registry before
// gatewaycore.New, so it holds both references directly rather than the
// Gateway exposing a Registry() accessor.
type AirGatewayClient struct {
	gw       *gatewaycore.Gateway
	registry *localrouter.Registry
	agency   string
}

// NewAirGatewayClient builds the AIR-mode client a front in the same
// process as gw uses to reach it.
func NewAirGatewayClient(gw *gatewaycore.Gateway, registry *localrouter.Registry, selfAgency string) *AirGatewayClient {
	return &AirGatewayClient{gw: gw, registry: registry, agency: selfAgency}
}

func (c *AirGatewayClient) AsyncSendMessage(ctx context.Context, rt wire.RouteType, ri *wire.RouteInfo, traceID string, payload []byte, timeout time.Duration, broadcast bool) error {
	if broadcast {
		c.gw.AsyncSendBroadcast(c.agency, ri, traceID, payload)
		return nil
	}
	done := make(chan error, 1)
	c.gw.AsyncSendMessage(c.agency, rt, ri, traceID, payload, timeout, func(err error) { done <- err })
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *AirGatewayClient) RegisterNodeInfo(ctx context.Context, node nodeinfo.Node) error {
	c.registry.Register(node, nil, nil)
	return nil
}

func (c *AirGatewayClient) UnRegisterNodeInfo(ctx context.Context, nodeID string) error {
	c.registry.Unregister(nodeID)
	return nil
}

func (c *AirGatewayClient) RegisterTopic(ctx context.Context, nodeID, topic string) error {
	c.registry.RegisterTopic(nodeID, topic)
	return nil
}

func (c *AirGatewayClient) UnRegisterTopic(ctx context.Context, nodeID, topic string) error {
	c.registry.UnregisterTopic(nodeID, topic)
	return nil
}

func (c *AirGatewayClient) AsyncGetPeers(ctx context.Context) ([]byte, error) {
	return json.Marshal(c.gw.Table().ReachableNodes())
}

func (c *AirGatewayClient) AsyncGetAgencies(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, gwInfo := range c.gw.NodeStore().All() {
		for _, node := range gwInfo.Nodes {
			if node.Agency != "" && !seen[node.Agency] {
				seen[node.Agency] = true
				out = append(out, node.Agency)
			}
		}
	}
	return out, nil
}
