package rpc

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ppcmesh/fabric/pkg/wire"
)

// RouteInfoDTO mirrors wire.RouteInfo for the RPC boundary; the gateway
// and front packages never share wire.RouteInfo directly across the wire
// so that this package's encoding stays independent of pkg/wire's frame
// format.
type RouteInfoDTO struct {
	ComponentType string
	SrcNode       []byte
	SrcInst       string
	DstNode       []byte
	DstInst       string
	Topic         string
}

func (r *RouteInfoDTO) toWire() *wire.RouteInfo {
	if r == nil {
		return &wire.RouteInfo{}
	}
	return &wire.RouteInfo{
		ComponentType: r.ComponentType,
		SrcNode:       r.SrcNode,
		SrcInst:       r.SrcInst,
		DstNode:       r.DstNode,
		DstInst:       r.DstInst,
		Topic:         r.Topic,
	}
}

func routeInfoDTOFromWire(ri *wire.RouteInfo) *RouteInfoDTO {
	if ri == nil {
		return &RouteInfoDTO{}
	}
	return &RouteInfoDTO{
		ComponentType: ri.ComponentType,
		SrcNode:       ri.SrcNode,
		SrcInst:       ri.SrcInst,
		DstNode:       ri.DstNode,
		DstInst:       ri.DstInst,
		Topic:         ri.Topic,
	}
}

func (r *RouteInfoDTO) marshalAppend(b []byte) []byte {
	b = appendStringField(b, 1, r.ComponentType)
	b = appendBytesField(b, 2, r.SrcNode)
	b = appendStringField(b, 3, r.SrcInst)
	b = appendBytesField(b, 4, r.DstNode)
	b = appendStringField(b, 5, r.DstInst)
	b = appendStringField(b, 6, r.Topic)
	return b
}

func unmarshalRouteInfoDTO(b []byte) (*RouteInfoDTO, error) {
	r := &RouteInfoDTO{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(num, typ, b)
			r.ComponentType = v
			return n, err
		case 2:
			v, n, err := consumeBytes(num, typ, b)
			r.SrcNode = v
			return n, err
		case 3:
			v, n, err := consumeString(num, typ, b)
			r.SrcInst = v
			return n, err
		case 4:
			v, n, err := consumeBytes(num, typ, b)
			r.DstNode = v
			return n, err
		case 5:
			v, n, err := consumeString(num, typ, b)
			r.DstInst = v
			return n, err
		case 6:
			v, n, err := consumeString(num, typ, b)
			r.Topic = v
			return n, err
		default:
			return skipField(num, typ, b)
		}
	})
	return r, err
}

// AsyncSendMessageRequest is the front->gateway asyncSendMessage call.
type AsyncSendMessageRequest struct {
	RouteType  uint32
	RouteInfo  *RouteInfoDTO
	TraceID    string
	Payload    []byte
	TimeoutMs  uint32
	Broadcast  bool
	SelfAgency string
}

func (r *AsyncSendMessageRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarintField(b, 1, uint64(r.RouteType))
	if r.RouteInfo != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, r.RouteInfo.marshalAppend(nil))
	}
	b = appendStringField(b, 3, r.TraceID)
	b = appendBytesField(b, 4, r.Payload)
	b = appendVarintField(b, 5, uint64(r.TimeoutMs))
	if r.Broadcast {
		b = appendVarintField(b, 6, 1)
	}
	b = appendStringField(b, 7, r.SelfAgency)
	return b, nil
}

func (r *AsyncSendMessageRequest) Unmarshal(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(num, typ, b)
			r.RouteType = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return n, err
			}
			ri, err := unmarshalRouteInfoDTO(v)
			r.RouteInfo = ri
			return n, err
		case 3:
			v, n, err := consumeString(num, typ, b)
			r.TraceID = v
			return n, err
		case 4:
			v, n, err := consumeBytes(num, typ, b)
			r.Payload = v
			return n, err
		case 5:
			v, n, err := consumeVarint(num, typ, b)
			r.TimeoutMs = uint32(v)
			return n, err
		case 6:
			v, n, err := consumeVarint(num, typ, b)
			r.Broadcast = v != 0
			return n, err
		case 7:
			v, n, err := consumeString(num, typ, b)
			r.SelfAgency = v
			return n, err
		default:
			return skipField(num, typ, b)
		}
	})
}

// StatusResponse is the shared reply shape for every RPC whose only
// interesting outcome is success/failure: ErrorMessage empty means ok.
type StatusResponse struct {
	ErrorMessage string
}

func (r *StatusResponse) Marshal() ([]byte, error) {
	return appendStringField(nil, 1, r.ErrorMessage), nil
}

func (r *StatusResponse) Unmarshal(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeString(num, typ, b)
			r.ErrorMessage = v
			return n, err
		}
		return skipField(num, typ, b)
	})
}

func (r *StatusResponse) err() error {
	if r == nil || r.ErrorMessage == "" {
		return nil
	}
	return statusError(r.ErrorMessage)
}

type statusError string

func (e statusError) Error() string { return string(e) }

// OnReceiveMessageRequest is the gateway->front push of a delivered
// message; ack mirrors the short ASCII error-code convention the gateway
// overlay itself uses. RouteInfo travels alongside Payload since it
// carries the topic/componentType a front's handler table dispatches on,
// which the inner MessagePayload bytes never encode.
type OnReceiveMessageRequest struct {
	RouteInfo *RouteInfoDTO
	Payload   []byte
}

func (r *OnReceiveMessageRequest) Marshal() ([]byte, error) {
	var b []byte
	if r.RouteInfo != nil {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, r.RouteInfo.marshalAppend(nil))
	}
	b = appendBytesField(b, 2, r.Payload)
	return b, nil
}

func (r *OnReceiveMessageRequest) Unmarshal(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeBytes(num, typ, b)
			if err != nil {
				return n, err
			}
			ri, err := unmarshalRouteInfoDTO(v)
			r.RouteInfo = ri
			return n, err
		case 2:
			v, n, err := consumeBytes(num, typ, b)
			r.Payload = v
			return n, err
		default:
			return skipField(num, typ, b)
		}
	})
}

type OnReceiveMessageResponse struct {
	Ack []byte
}

func (r *OnReceiveMessageResponse) Marshal() ([]byte, error) {
	return appendBytesField(nil, 1, r.Ack), nil
}

func (r *OnReceiveMessageResponse) Unmarshal(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeBytes(num, typ, b)
			r.Ack = v
			return n, err
		}
		return skipField(num, typ, b)
	})
}

// RegisterNodeInfoRequest is the front->gateway registerNodeInfo call.
// SelfEndpoint is set only in PRO mode: it is the "host:port" the gateway
// dials to push messages back to this front (see ProFrontClient); AIR-mode
// fronts register their Client handle directly with the registry and leave
// this empty.
type RegisterNodeInfoRequest struct {
	NodeID       string
	Agency       string
	Components   []string
	SelfEndpoint string
}

func (r *RegisterNodeInfoRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 1, r.NodeID)
	b = appendStringField(b, 2, r.Agency)
	b = appendStringsField(b, 3, r.Components)
	b = appendStringField(b, 4, r.SelfEndpoint)
	return b, nil
}

func (r *RegisterNodeInfoRequest) Unmarshal(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(num, typ, b)
			r.NodeID = v
			return n, err
		case 2:
			v, n, err := consumeString(num, typ, b)
			r.Agency = v
			return n, err
		case 3:
			v, n, err := consumeString(num, typ, b)
			r.Components = append(r.Components, v)
			return n, err
		case 4:
			v, n, err := consumeString(num, typ, b)
			r.SelfEndpoint = v
			return n, err
		default:
			return skipField(num, typ, b)
		}
	})
}

// NodeIDRequest covers unRegisterNodeInfo(nodeID).
type NodeIDRequest struct {
	NodeID string
}

func (r *NodeIDRequest) Marshal() ([]byte, error) {
	return appendStringField(nil, 1, r.NodeID), nil
}

func (r *NodeIDRequest) Unmarshal(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeString(num, typ, b)
			r.NodeID = v
			return n, err
		}
		return skipField(num, typ, b)
	})
}

// TopicRequest covers registerTopic/unRegisterTopic(nodeID, topic).
type TopicRequest struct {
	NodeID string
	Topic  string
}

func (r *TopicRequest) Marshal() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 1, r.NodeID)
	b = appendStringField(b, 2, r.Topic)
	return b, nil
}

func (r *TopicRequest) Unmarshal(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeString(num, typ, b)
			r.NodeID = v
			return n, err
		case 2:
			v, n, err := consumeString(num, typ, b)
			r.Topic = v
			return n, err
		default:
			return skipField(num, typ, b)
		}
	})
}

type emptyRequest struct{}

func (*emptyRequest) Marshal() ([]byte, error) { return nil, nil }
func (*emptyRequest) Unmarshal([]byte) error   { return nil }

// AsyncGetPeersResponse carries the gateway's routing/peer view as JSON,
// per spec §6's "asyncGetPeers() -> json".
type AsyncGetPeersResponse struct {
	JSON []byte
}

func (r *AsyncGetPeersResponse) Marshal() ([]byte, error) {
	return appendBytesField(nil, 1, r.JSON), nil
}

func (r *AsyncGetPeersResponse) Unmarshal(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeBytes(num, typ, b)
			r.JSON = v
			return n, err
		}
		return skipField(num, typ, b)
	})
}

type AsyncGetAgenciesResponse struct {
	Agencies []string
}

func (r *AsyncGetAgenciesResponse) Marshal() ([]byte, error) {
	return appendStringsField(nil, 1, r.Agencies), nil
}

func (r *AsyncGetAgenciesResponse) Unmarshal(b []byte) error {
	return eachField(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeString(num, typ, b)
			r.Agencies = append(r.Agencies, v)
			return n, err
		}
		return skipField(num, typ, b)
	})
}
