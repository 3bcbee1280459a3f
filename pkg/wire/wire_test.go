package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTripP2P(t *testing.T) {
	ri := &RouteInfo{
		ComponentType: "svc",
		SrcNode:       []byte("node-a"),
		SrcInst:       "agency-a",
		DstNode:       []byte("node-b"),
		DstInst:       "agency-b",
		Topic:         "",
	}
	payload := (&MessagePayload{
		Version: 1,
		Seq:     7,
		TraceID: "trace-1",
		Data:    []byte("hello"),
	}).encode()

	h := MessageHeader{
		Version:    headerVersion,
		PacketType: PacketP2PMessage,
		TTL:        0,
		TraceID:    "trace-1",
		SrcGwNode:  []byte("gw-a"),
		DstGwNode:  []byte("gw-b"),
		RouteInfo:  ri,
	}
	h.SetRouteType(RouteByNodeID, false)

	msg := &Message{Header: h, Payload: payload}
	buf, err := msg.Encode()
	require.NoError(t, err)

	got, err := DecodeMessage(buf)
	require.NoError(t, err)
	assert.Equal(t, PacketP2PMessage, got.Header.PacketType)

	rt, err := got.Header.RouteType()
	require.NoError(t, err)
	assert.Equal(t, RouteByNodeID, rt)
	assert.Equal(t, "trace-1", got.Header.TraceID)
	require.NotNil(t, got.Header.RouteInfo)
	assert.Equal(t, []byte("node-b"), got.Header.RouteInfo.DstNode)

	gotPayload, err := DecodePayload(got.Payload)
	require.NoError(t, err)
	assert.Equal(t, "trace-1", gotPayload.TraceID)
	assert.Equal(t, []byte("hello"), gotPayload.Data)
}

func TestRouterTablePacketHasNoRouteInfo(t *testing.T) {
	h := MessageHeader{
		Version:    headerVersion,
		PacketType: PacketRouterTableSyncSeq,
		SrcGwNode:  []byte("gw-a"),
		DstGwNode:  []byte("gw-b"),
	}
	msg := &Message{Header: h, Payload: []byte{0, 0, 0, 42}}
	buf, err := msg.Encode()
	require.NoError(t, err)

	got, err := DecodeMessage(buf)
	require.NoError(t, err)
	assert.Nil(t, got.Header.RouteInfo)
	assert.Equal(t, []byte{0, 0, 0, 42}, got.Payload)
}

func TestMultiplePolicyBitsRejected(t *testing.T) {
	h := MessageHeader{Ext: extRouteByNodeID | extRouteByTopic}
	_, err := h.RouteType()
	assert.ErrorIs(t, err, ErrMultiplePolicyBits)
}

func TestZeroExtDefaultsToByNode(t *testing.T) {
	h := MessageHeader{Ext: extResponse}
	rt, err := h.RouteType()
	require.NoError(t, err)
	assert.Equal(t, RouteByNodeID, rt)
	assert.True(t, h.IsResponse())
}

func TestDecodeMessageTruncatedFails(t *testing.T) {
	_, err := DecodeMessage([]byte{0, 1, 0, 0})
	assert.Error(t, err)
}

func TestDecodeMessagePayloadTooShort(t *testing.T) {
	_, err := decodeMessagePayload([]byte{1, 0, 0})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("frame contents")
	require.NoError(t, writeFrame(&buf, payload))

	got, err := readFrame(&buf, DefaultMaxFrameSize)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReadFrameRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, make([]byte, 100)))

	_, err := readFrame(&buf, 10)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestRouteInfoValidateForRoute(t *testing.T) {
	cases := []struct {
		name      string
		ri        RouteInfo
		rt        RouteType
		broadcast bool
		wantErr   bool
	}{
		{"byNode ok", RouteInfo{DstNode: []byte("n")}, RouteByNodeID, false, false},
		{"byNode missing dst", RouteInfo{}, RouteByNodeID, false, true},
		{"byAgency ok", RouteInfo{DstInst: "a"}, RouteByAgency, false, false},
		{"byComponent missing component", RouteInfo{DstInst: "a"}, RouteByComponent, false, true},
		{"byComponent ok", RouteInfo{DstInst: "a", ComponentType: "c"}, RouteByComponent, false, false},
		{"byTopic ok", RouteInfo{Topic: "t"}, RouteByTopic, false, false},
		{"broadcast clears dstNode", RouteInfo{}, RouteByNodeID, true, false},
		{"broadcast with dstNode fails", RouteInfo{DstNode: []byte("n")}, RouteByNodeID, true, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.ri.validateForRoute(c.rt, c.broadcast)
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
