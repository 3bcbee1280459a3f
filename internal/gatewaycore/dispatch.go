package gatewaycore

import (
	"time"

	"github.com/ppcmesh/fabric/pkg/wire"
)

// asyncSendMessageByNodeID implements §4.2's sending half: stamp msg's src
// and dst gateway fields, consult the routing table, and either forward to
// a next hop or send directly to dst's session. Success/failure is
// reported via ack, which receives the peer's ack payload decoded to an
// error (nil on the single-byte success code).
func (g *Gateway) asyncSendMessageByNodeID(dst string, msg *wire.Message, timeout time.Duration, ack func(error)) {
	msg.Header.SrcGwNode = []byte(g.cfg.SelfGatewayID)
	msg.Header.DstGwNode = []byte(dst)

	nextHop, distance, ok := g.table.NextHop(dst)
	target := dst
	if ok && distance > 1 {
		target = nextHop
	}

	if !g.peerSvc.HasSession(target) {
		ack(errNoNetworkEstablished)
		return
	}

	go func() {
		payload, err := g.peerSvc.SendMessage(target, msg, true)
		if err != nil {
			ack(err)
			return
		}
		if !ackSucceeded(payload) {
			ack(errFromAck(payload))
			return
		}
		ack(nil)
	}()
}

func errFromAck(payload []byte) error {
	if len(payload) == 0 {
		return errNotFoundFrontService
	}
	return &ackError{msg: string(payload)}
}

type ackError struct{ msg string }

func (e *ackError) Error() string { return e.msg }

// AsyncSendMessage implements §4.7's gateway dispatch entry point:
// 1. Stamp routeInfo.srcInst with selfAgency and build a P2PMessage.
// 2. Try the local router first; same-agency traffic never touches the
//    overlay.
// 3. Else consult the peer router; no candidates reports ErrNoGatewayFound.
// 4. Else retry across candidate peers via sendWithRetry.
func (g *Gateway) AsyncSendMessage(selfAgency string, rt wire.RouteType, ri *wire.RouteInfo, traceID string, payload []byte, timeout time.Duration, ack func(error)) {
	ri.SrcInst = selfAgency
	msg := &wire.Message{
		Header: wire.MessageHeader{
			Version:    1,
			PacketType: wire.PacketP2PMessage,
			TraceID:    traceID,
			RouteInfo:  ri,
		},
		Payload: payload,
	}
	msg.Header.SetRouteType(rt, false)

	if found, err := g.dispatcher.Dispatch(rt, ri, false, false, payload, func(err error) { ack(err) }); err == nil && found {
		return
	}

	gws, err := g.peerTable.SelectRouter(rt, ri)
	if err != nil || len(gws) == 0 {
		ack(ErrNoGatewayFound)
		return
	}
	candidates := make([]string, len(gws))
	for i, gw := range gws {
		candidates[i] = gw.GatewayID
	}
	sendWithRetry(g.peerSvc, candidates, msg, timeout, ack)
}

// AsyncSendBroadcast clears dstNode, sets srcInst, dispatches locally, then
// fans the message out to one peer gateway per agency via the peer
// router.
func (g *Gateway) AsyncSendBroadcast(selfAgency string, ri *wire.RouteInfo, traceID string, payload []byte) {
	ri.SrcInst = selfAgency
	ri.DstNode = nil
	msg := &wire.Message{
		Header: wire.MessageHeader{
			Version:    1,
			PacketType: wire.PacketBroadcastMessage,
			TraceID:    traceID,
			RouteInfo:  ri,
		},
		Payload: payload,
	}

	g.dispatcher.Dispatch(wire.RouteByTopic, ri, true, false, payload, nil)

	g.peerTable.AsyncBroadcastMessage(g.cfg.SelfGatewayID, broadcastSender{g}, msg)
}

// broadcastSender adapts Gateway to peerrouter.Sender.
type broadcastSender struct{ g *Gateway }

func (b broadcastSender) SendToPeer(peerGatewayID string, msg *wire.Message) error {
	_, err := b.g.peerSvc.SendMessage(peerGatewayID, msg, false)
	return err
}
