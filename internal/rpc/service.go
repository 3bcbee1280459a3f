package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// GatewayServer is the front-facing side of §6's RPC surface: every call a
// front makes against its co-located gateway, in request/response form. In
// PRO mode grpcGatewayServer implements it by wrapping an AirGatewayClient,
// and gatewayServiceDesc puts it on the wire.
type GatewayServer interface {
	AsyncSendMessage(ctx context.Context, req *AsyncSendMessageRequest) (*StatusResponse, error)
	RegisterNodeInfo(ctx context.Context, req *RegisterNodeInfoRequest) (*StatusResponse, error)
	UnRegisterNodeInfo(ctx context.Context, req *NodeIDRequest) (*StatusResponse, error)
	RegisterTopic(ctx context.Context, req *TopicRequest) (*StatusResponse, error)
	UnRegisterTopic(ctx context.Context, req *TopicRequest) (*StatusResponse, error)
	AsyncGetPeers(ctx context.Context, req *emptyRequest) (*AsyncGetPeersResponse, error)
	AsyncGetAgencies(ctx context.Context, req *emptyRequest) (*AsyncGetAgenciesResponse, error)
}

// FrontServer is the gateway-facing side: the single call a gateway makes
// against an attached front to push a delivered message (§4.7's
// dispatchLocally, PRO-mode leg).
type FrontServer interface {
	OnReceiveMessage(ctx context.Context, req *OnReceiveMessageRequest) (*OnReceiveMessageResponse, error)
}

const (
	gatewayServiceName = "fabric.rpc.Gateway"
	frontServiceName   = "fabric.rpc.Front"
)

func unaryHandler[Req wireMessage, Resp any](newReq func() Req, call func(any, context.Context, Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := newReq()
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv, ctx, req.(Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

var gatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: gatewayServiceName,
	HandlerType: (*GatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "AsyncSendMessage",
			Handler: unaryHandler(func() *AsyncSendMessageRequest { return &AsyncSendMessageRequest{} },
				func(s any, ctx context.Context, req *AsyncSendMessageRequest) (*StatusResponse, error) {
					return s.(GatewayServer).AsyncSendMessage(ctx, req)
				}),
		},
		{
			MethodName: "RegisterNodeInfo",
			Handler: unaryHandler(func() *RegisterNodeInfoRequest { return &RegisterNodeInfoRequest{} },
				func(s any, ctx context.Context, req *RegisterNodeInfoRequest) (*StatusResponse, error) {
					return s.(GatewayServer).RegisterNodeInfo(ctx, req)
				}),
		},
		{
			MethodName: "UnRegisterNodeInfo",
			Handler: unaryHandler(func() *NodeIDRequest { return &NodeIDRequest{} },
				func(s any, ctx context.Context, req *NodeIDRequest) (*StatusResponse, error) {
					return s.(GatewayServer).UnRegisterNodeInfo(ctx, req)
				}),
		},
		{
			MethodName: "RegisterTopic",
			Handler: unaryHandler(func() *TopicRequest { return &TopicRequest{} },
				func(s any, ctx context.Context, req *TopicRequest) (*StatusResponse, error) {
					return s.(GatewayServer).RegisterTopic(ctx, req)
				}),
		},
		{
			MethodName: "UnRegisterTopic",
			Handler: unaryHandler(func() *TopicRequest { return &TopicRequest{} },
				func(s any, ctx context.Context, req *TopicRequest) (*StatusResponse, error) {
					return s.(GatewayServer).UnRegisterTopic(ctx, req)
				}),
		},
		{
			MethodName: "AsyncGetPeers",
			Handler: unaryHandler(func() *emptyRequest { return &emptyRequest{} },
				func(s any, ctx context.Context, req *emptyRequest) (*AsyncGetPeersResponse, error) {
					return s.(GatewayServer).AsyncGetPeers(ctx, req)
				}),
		},
		{
			MethodName: "AsyncGetAgencies",
			Handler: unaryHandler(func() *emptyRequest { return &emptyRequest{} },
				func(s any, ctx context.Context, req *emptyRequest) (*AsyncGetAgenciesResponse, error) {
					return s.(GatewayServer).AsyncGetAgencies(ctx, req)
				}),
		},
	},
	Metadata: "fabric/rpc/gateway.proto",
}

var frontServiceDesc = grpc.ServiceDesc{
	ServiceName: frontServiceName,
	HandlerType: (*FrontServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "OnReceiveMessage",
			Handler: unaryHandler(func() *OnReceiveMessageRequest { return &OnReceiveMessageRequest{} },
				func(s any, ctx context.Context, req *OnReceiveMessageRequest) (*OnReceiveMessageResponse, error) {
					return s.(FrontServer).OnReceiveMessage(ctx, req)
				}),
		},
	},
	Metadata: "fabric/rpc/front.proto",
}

// RegisterGatewayServer attaches srv to s, the PRO-mode leg of the front's
// gatewayGrpcTarget dial.
func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&gatewayServiceDesc, srv)
}

// RegisterFrontServer attaches srv to s, the PRO-mode leg of the gateway
// pushing messages to a remote front.
func RegisterFrontServer(s grpc.ServiceRegistrar, srv FrontServer) {
	s.RegisterService(&frontServiceDesc, srv)
}

func fullMethod(service, method string) string { return "/" + service + "/" + method }
