package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcmesh/fabric/pkg/wire"
)

func TestAsyncSendMessageRequestRoundTrip(t *testing.T) {
	req := &AsyncSendMessageRequest{
		RouteType: uint32(wire.RouteByTopic),
		RouteInfo: &RouteInfoDTO{
			ComponentType: "psi",
			SrcNode:       []byte("node-a"),
			SrcInst:       "agency-a",
			DstNode:       []byte("node-b"),
			DstInst:       "agency-b",
			Topic:         "t",
		},
		TraceID:    "trace-1",
		Payload:    []byte("hello"),
		TimeoutMs:  1500,
		Broadcast:  true,
		SelfAgency: "agency-a",
	}

	b, err := req.Marshal()
	require.NoError(t, err)

	got := &AsyncSendMessageRequest{}
	require.NoError(t, got.Unmarshal(b))

	assert.Equal(t, req.RouteType, got.RouteType)
	assert.Equal(t, req.TraceID, got.TraceID)
	assert.Equal(t, req.Payload, got.Payload)
	assert.Equal(t, req.TimeoutMs, got.TimeoutMs)
	assert.Equal(t, req.Broadcast, got.Broadcast)
	assert.Equal(t, req.SelfAgency, got.SelfAgency)
	require.NotNil(t, got.RouteInfo)
	assert.Equal(t, req.RouteInfo.ComponentType, got.RouteInfo.ComponentType)
	assert.Equal(t, req.RouteInfo.SrcNode, got.RouteInfo.SrcNode)
	assert.Equal(t, req.RouteInfo.Topic, got.RouteInfo.Topic)
}

func TestAsyncSendMessageRequestZeroValueOmitsOptionalFields(t *testing.T) {
	req := &AsyncSendMessageRequest{}
	b, err := req.Marshal()
	require.NoError(t, err)
	assert.Empty(t, b)

	got := &AsyncSendMessageRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.False(t, got.Broadcast)
	assert.Nil(t, got.RouteInfo)
}

func TestRegisterNodeInfoRequestRoundTrip(t *testing.T) {
	req := &RegisterNodeInfoRequest{NodeID: "node-a", Agency: "agency-a", Components: []string{"psi", "echo"}}
	b, err := req.Marshal()
	require.NoError(t, err)

	got := &RegisterNodeInfoRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, req.NodeID, got.NodeID)
	assert.Equal(t, req.Agency, got.Agency)
	assert.Equal(t, req.Components, got.Components)
}

func TestTopicRequestRoundTrip(t *testing.T) {
	req := &TopicRequest{NodeID: "node-a", Topic: "t"}
	b, err := req.Marshal()
	require.NoError(t, err)

	got := &TopicRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, req, got)
}

func TestStatusResponseErrConvention(t *testing.T) {
	ok := &StatusResponse{}
	assert.NoError(t, ok.err())

	bad := &StatusResponse{ErrorMessage: "boom"}
	err := bad.err()
	require.Error(t, err)
	assert.EqualError(t, err, "boom")
}

func TestOnReceiveMessageRoundTrip(t *testing.T) {
	req := &OnReceiveMessageRequest{Payload: []byte("payload")}
	b, err := req.Marshal()
	require.NoError(t, err)

	got := &OnReceiveMessageRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, req.Payload, got.Payload)

	resp := &OnReceiveMessageResponse{Ack: []byte{0}}
	rb, err := resp.Marshal()
	require.NoError(t, err)
	gotResp := &OnReceiveMessageResponse{}
	require.NoError(t, gotResp.Unmarshal(rb))
	assert.Equal(t, resp.Ack, gotResp.Ack)
}

func TestAsyncGetAgenciesResponseRoundTrip(t *testing.T) {
	resp := &AsyncGetAgenciesResponse{Agencies: []string{"a", "b", "c"}}
	b, err := resp.Marshal()
	require.NoError(t, err)

	got := &AsyncGetAgenciesResponse{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, resp.Agencies, got.Agencies)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	// a tag for field 99 (varint type) followed by a known field 1 must not
	// derail parsing of the rest of the message.
	b := appendVarintField(nil, 99, 42)
	b = appendStringField(b, 1, "node-a")

	got := &NodeIDRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, "node-a", got.NodeID)
}
