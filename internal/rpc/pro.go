package rpc

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"

	"github.com/ppcmesh/fabric/internal/front/health"
	"github.com/ppcmesh/fabric/internal/localrouter"
	"github.com/ppcmesh/fabric/internal/nodeinfo"
	"github.com/ppcmesh/fabric/pkg/wire"
)

var callContentSubtype = grpc.CallContentSubtype(codecName)

// ProGatewayClient is the PRO-mode GatewayClient: gRPC unary calls against
// a front's configured gatewayGrpcTarget, carried with wireCodec instead
// of protobuf-generated marshaling.
type ProGatewayClient struct {
	conn         *grpc.ClientConn
	selfEndpoint string
}

// NewProGatewayClient wraps an already-dialed connection to a gateway's
// gRPC endpoint. Dialing (including TLS and the gRPC health-check
// service) is cmd/frontd's responsibility. selfEndpoint is this front's own
// "host:port", advertised on every RegisterNodeInfo call so the gateway
// knows where to dial back to push messages (see ProFrontClient).
func NewProGatewayClient(conn *grpc.ClientConn, selfEndpoint string) *ProGatewayClient {
	return &ProGatewayClient{conn: conn, selfEndpoint: selfEndpoint}
}

func (c *ProGatewayClient) invoke(ctx context.Context, method string, req, resp wireMessage) error {
	return c.conn.Invoke(ctx, fullMethod(gatewayServiceName, method), req, resp, callContentSubtype)
}

func (c *ProGatewayClient) AsyncSendMessage(ctx context.Context, rt wire.RouteType, ri *wire.RouteInfo, traceID string, payload []byte, timeout time.Duration, broadcast bool) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req := &AsyncSendMessageRequest{
		RouteType:  uint32(rt),
		RouteInfo:  routeInfoDTOFromWire(ri),
		TraceID:    traceID,
		Payload:    payload,
		TimeoutMs:  uint32(timeout / time.Millisecond),
		Broadcast:  broadcast,
		SelfAgency: ri.SrcInst,
	}
	resp := &StatusResponse{}
	if err := c.invoke(ctx, "AsyncSendMessage", req, resp); err != nil {
		return err
	}
	return resp.err()
}

func (c *ProGatewayClient) RegisterNodeInfo(ctx context.Context, node nodeinfo.Node) error {
	req := &RegisterNodeInfoRequest{NodeID: node.NodeID, Agency: node.Agency, Components: node.Components, SelfEndpoint: c.selfEndpoint}
	resp := &StatusResponse{}
	if err := c.invoke(ctx, "RegisterNodeInfo", req, resp); err != nil {
		return err
	}
	return resp.err()
}

func (c *ProGatewayClient) UnRegisterNodeInfo(ctx context.Context, nodeID string) error {
	req := &NodeIDRequest{NodeID: nodeID}
	resp := &StatusResponse{}
	if err := c.invoke(ctx, "UnRegisterNodeInfo", req, resp); err != nil {
		return err
	}
	return resp.err()
}

func (c *ProGatewayClient) RegisterTopic(ctx context.Context, nodeID, topic string) error {
	req := &TopicRequest{NodeID: nodeID, Topic: topic}
	resp := &StatusResponse{}
	if err := c.invoke(ctx, "RegisterTopic", req, resp); err != nil {
		return err
	}
	return resp.err()
}

func (c *ProGatewayClient) UnRegisterTopic(ctx context.Context, nodeID, topic string) error {
	req := &TopicRequest{NodeID: nodeID, Topic: topic}
	resp := &StatusResponse{}
	if err := c.invoke(ctx, "UnRegisterTopic", req, resp); err != nil {
		return err
	}
	return resp.err()
}

func (c *ProGatewayClient) AsyncGetPeers(ctx context.Context) ([]byte, error) {
	resp := &AsyncGetPeersResponse{}
	if err := c.invoke(ctx, "AsyncGetPeers", &emptyRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.JSON, nil
}

func (c *ProGatewayClient) AsyncGetAgencies(ctx context.Context) ([]string, error) {
	resp := &AsyncGetAgenciesResponse{}
	if err := c.invoke(ctx, "AsyncGetAgencies", &emptyRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Agencies, nil
}

// ProFrontClient adapts a gRPC connection to a remote front onto
// localrouter.Client, the handle the gateway's Registry pushes messages
// through. It is the PRO-mode counterpart of a front implementing
// localrouter.Client directly in-process (AIR mode).
type ProFrontClient struct {
	conn    *grpc.ClientConn
	healthy func() bool
}

// NewProFrontClient wraps conn, the gateway's dial to one attached front's
// selfEndPoint. healthy reports the result of the most recent health
// probe (internal/front/health owns the polling; this client only reads
// the outcome). A nil healthy defaults to the dialed connection's own
// connectivity state.
func NewProFrontClient(conn *grpc.ClientConn, healthy func() bool) *ProFrontClient {
	if healthy == nil {
		healthy = func() bool {
			switch conn.GetState() {
			case connectivity.Ready, connectivity.Idle, connectivity.Connecting:
				return true
			default:
				return false
			}
		}
	}
	return &ProFrontClient{conn: conn, healthy: healthy}
}

func (c *ProFrontClient) Deliver(ri *wire.RouteInfo, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req := &OnReceiveMessageRequest{RouteInfo: routeInfoDTOFromWire(ri), Payload: payload}
	resp := &OnReceiveMessageResponse{}
	return c.conn.Invoke(ctx, fullMethod(frontServiceName, "OnReceiveMessage"), req, resp, callContentSubtype)
}

func (c *ProFrontClient) Healthy() bool {
	if c.healthy == nil {
		return true
	}
	return c.healthy()
}

var _ localrouter.Client = (*ProFrontClient)(nil)

// grpcGatewayServer exposes an AirGatewayClient as the PRO-mode gRPC
// service a front's gatewayGrpcTarget dials into.
type grpcGatewayServer struct {
	client   *AirGatewayClient
	dialOpts []grpc.DialOption
	checker  *health.Checker

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn // nodeID -> dialed front connection
}

// NewGatewayServer adapts client for RegisterGatewayServer. dialOpts are
// used to dial a registering front's SelfEndpoint in PRO mode (e.g.
// transport credentials); pass grpc.WithTransportCredentials(insecure.NewCredentials())
// for a plaintext deployment. checker may be nil, in which case attached
// PRO-mode fronts are never health-probed (their Registry entry still
// works, it just never gets removed on its own).
func NewGatewayServer(client *AirGatewayClient, checker *health.Checker, dialOpts ...grpc.DialOption) GatewayServer {
	return &grpcGatewayServer{client: client, dialOpts: dialOpts, checker: checker, conns: make(map[string]*grpc.ClientConn)}
}

func (s *grpcGatewayServer) AsyncSendMessage(ctx context.Context, req *AsyncSendMessageRequest) (*StatusResponse, error) {
	err := s.client.AsyncSendMessage(ctx, wire.RouteType(req.RouteType), req.RouteInfo.toWire(), req.TraceID, req.Payload, time.Duration(req.TimeoutMs)*time.Millisecond, req.Broadcast)
	return statusOf(err), nil
}

// RegisterNodeInfo registers req's node/agency/components with the local
// registry. In PRO mode (SelfEndpoint set) it also dials, or reuses an
// already-dialed connection to, the front's gRPC endpoint so the registry
// has a Deliver-capable Client for this node; per
// localrouter.Registry.Register, a nil Client on an already-registered node
// (subsequent keep-alive beats) leaves the existing dialed client in place.
func (s *grpcGatewayServer) RegisterNodeInfo(ctx context.Context, req *RegisterNodeInfoRequest) (*StatusResponse, error) {
	node := nodeinfo.Node{NodeID: req.NodeID, Agency: req.Agency, Components: req.Components}
	if req.SelfEndpoint == "" {
		err := s.client.RegisterNodeInfo(ctx, node)
		return statusOf(err), nil
	}
	s.mu.Lock()
	_, already := s.conns[req.NodeID]
	s.mu.Unlock()
	isNew := !already
	client, err := s.frontClientFor(req.NodeID, req.SelfEndpoint)
	if err != nil {
		return statusOf(err), nil
	}
	onUnhealthy := func() { s.dropFront(req.NodeID) }
	s.client.registry.Register(node, client, onUnhealthy)
	if isNew && s.checker != nil {
		s.checker.Register(req.NodeID, client, onUnhealthy, false)
	}
	return statusOf(nil), nil
}

func (s *grpcGatewayServer) frontClientFor(nodeID, endpoint string) (*ProFrontClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn, ok := s.conns[nodeID]; ok {
		return NewProFrontClient(conn, nil), nil
	}
	conn, err := grpc.Dial(endpoint, s.dialOpts...)
	if err != nil {
		return nil, err
	}
	s.conns[nodeID] = conn
	return NewProFrontClient(conn, nil), nil
}

// dropFront tears down a front's dialed connection and registry entry,
// the onUnhealthy path run both by health.Checker on probe failure and
// by an explicit UnRegisterNodeInfo call.
func (s *grpcGatewayServer) dropFront(nodeID string) {
	s.client.registry.Unregister(nodeID)
	s.mu.Lock()
	if conn, ok := s.conns[nodeID]; ok {
		conn.Close()
		delete(s.conns, nodeID)
	}
	s.mu.Unlock()
	if s.checker != nil {
		s.checker.Unregister(nodeID)
	}
}

func (s *grpcGatewayServer) UnRegisterNodeInfo(ctx context.Context, req *NodeIDRequest) (*StatusResponse, error) {
	err := s.client.UnRegisterNodeInfo(ctx, req.NodeID)
	s.dropFront(req.NodeID)
	return statusOf(err), nil
}

func (s *grpcGatewayServer) RegisterTopic(ctx context.Context, req *TopicRequest) (*StatusResponse, error) {
	return statusOf(s.client.RegisterTopic(ctx, req.NodeID, req.Topic)), nil
}

func (s *grpcGatewayServer) UnRegisterTopic(ctx context.Context, req *TopicRequest) (*StatusResponse, error) {
	return statusOf(s.client.UnRegisterTopic(ctx, req.NodeID, req.Topic)), nil
}

func (s *grpcGatewayServer) AsyncGetPeers(ctx context.Context, _ *emptyRequest) (*AsyncGetPeersResponse, error) {
	j, err := s.client.AsyncGetPeers(ctx)
	if err != nil {
		return nil, err
	}
	return &AsyncGetPeersResponse{JSON: j}, nil
}

func (s *grpcGatewayServer) AsyncGetAgencies(ctx context.Context, _ *emptyRequest) (*AsyncGetAgenciesResponse, error) {
	agencies, err := s.client.AsyncGetAgencies(ctx)
	if err != nil {
		return nil, err
	}
	return &AsyncGetAgenciesResponse{Agencies: agencies}, nil
}

func statusOf(err error) *StatusResponse {
	if err == nil {
		return &StatusResponse{}
	}
	return &StatusResponse{ErrorMessage: err.Error()}
}

// frontServer exposes a localrouter.Client (typically the Front facade
// itself in AIR mode) as the PRO-mode gRPC service a gateway dials to
// push a delivered message.
type frontServer struct {
	client localrouter.Client
}

// NewFrontServer adapts client for RegisterFrontServer.
func NewFrontServer(client localrouter.Client) FrontServer {
	return &frontServer{client: client}
}

func (s *frontServer) OnReceiveMessage(ctx context.Context, req *OnReceiveMessageRequest) (*OnReceiveMessageResponse, error) {
	if err := s.client.Deliver(req.RouteInfo.toWire(), req.Payload); err != nil {
		return &OnReceiveMessageResponse{Ack: []byte(err.Error())}, nil
	}
	return &OnReceiveMessageResponse{Ack: []byte{0}}, nil
}
