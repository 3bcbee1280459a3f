// Package front implements the front-side facade of §4.8: outbound
// send/request-response correlation, inbound dispatch, and the glue that
// lets a computation node act as either a direct localrouter.Client (AIR
// mode) or a gRPC-reachable endpoint the gateway pushes to (PRO mode).
package front

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/NebulousLabs/fastrand"

	"github.com/ppcmesh/fabric/internal/front/callback"
	"github.com/ppcmesh/fabric/internal/front/dispatch"
	"github.com/ppcmesh/fabric/internal/localrouter"
	"github.com/ppcmesh/fabric/internal/rpc"
	"github.com/ppcmesh/fabric/pkg/metrics"
	"github.com/ppcmesh/fabric/pkg/persist"
	"github.com/ppcmesh/fabric/pkg/wire"
)

var _ localrouter.Client = (*Front)(nil)

// ErrCb is invoked exactly once per asyncSendMessage call, with the final
// outcome of the send attempt (nil on success).
type ErrCb func(error)

// RespCb is invoked when a response to a previously sent message arrives,
// or the request times out (payload nil, err set).
type RespCb func(payload *wire.MessagePayload, respond func(data []byte) error, err error)

// DefaultTimeout is used by Push/AsyncSendMessage callers that don't name
// one explicitly.
const DefaultTimeout = 30 * time.Second

// Front is one computation node's handle onto the fabric: it sends
// through a gateway client, receives pushed messages through Deliver, and
// answers request/response traffic through its Callback Manager.
type Front struct {
	nodeID string
	agency string

	gateway  rpc.GatewayClient
	callback *callback.Manager
	handlers *dispatch.Table
	log      *persist.Logger
	met      *metrics.Front

	seq uint16
}

// New builds a Front identified by nodeID/agency, sending through
// gateway. gateway is an rpc.AirGatewayClient in AIR mode or an
// rpc.ProGatewayClient in PRO mode; Front's own logic is identical either
// way. met may be nil, in which case send/receive/timeout activity is
// simply not counted.
func New(nodeID, agency string, gateway rpc.GatewayClient, log *persist.Logger, met *metrics.Front) *Front {
	return &Front{
		nodeID:   nodeID,
		agency:   agency,
		gateway:  gateway,
		callback: callback.NewManager(),
		handlers: dispatch.NewTable(),
		log:      log,
		met:      met,
	}
}

// NodeID returns this front's stable identifier.
func (f *Front) NodeID() string { return f.nodeID }

// RegisterTopic binds handler under topic for locally-arriving messages.
// Per §4.9 this registers only locally; callers that also want peer
// gateways to learn of the capability should pair it with a
// gateway.RegisterTopic call (RegisterComponent does this automatically).
func (f *Front) RegisterTopic(topic string, handler dispatch.Handler) {
	f.handlers.RegisterTopic(topic, handler)
}

// RegisterComponent binds handler under componentType and advertises the
// capability to the gateway's local router so peer routing tables learn
// of it, per §4.9.
func (f *Front) RegisterComponent(ctx context.Context, componentType string, handler dispatch.Handler) error {
	f.handlers.RegisterComponent(componentType, handler)
	return f.gateway.RegisterTopic(ctx, f.nodeID, componentType)
}

// nextTraceID mints a fresh hex-encoded trace identifier for a new
// outbound request.
func nextTraceID() string {
	var id [16]byte
	fastrand.Read(id[:])
	return hex.EncodeToString(id[:])
}

// AsyncSendMessage implements §4.8's send path: wrap payload, register
// respCb under a fresh traceID with timeout, stamp srcNode, and hand off
// to the gateway. errCb fires exactly once with the outcome of the send
// itself; respCb (if non-nil) fires once with either the eventual
// response or a timeout/send error.
func (f *Front) AsyncSendMessage(rt wire.RouteType, ri *wire.RouteInfo, payload []byte, timeout time.Duration, errCb ErrCb, respCb RespCb) {
	traceID := nextTraceID()
	mp := &wire.MessagePayload{Version: 1, Seq: f.nextSeq(), TraceID: traceID, Data: payload}

	if respCb != nil {
		f.callback.Register(traceID, timeout, func(p *wire.MessagePayload, err error) {
			if err != nil {
				if f.met != nil && errors.Is(err, callback.ErrTimeout) {
					f.met.CallbackTimeoutsTotal.Inc()
				}
				respCb(nil, nil, err)
				return
			}
			respCb(p, f.responseSenderFor(ri, p), nil)
		})
	}
	if f.met != nil {
		f.met.CallbacksPending.Set(float64(f.callback.Pending()))
	}

	ri.SrcNode = []byte(f.nodeID)
	encoded := wire.EncodePayload(mp)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	go func() {
		defer cancel()
		err := f.gateway.AsyncSendMessage(ctx, rt, ri, traceID, encoded, timeout, false)
		if f.met != nil {
			result := "ok"
			if err != nil {
				result = "error"
			}
			f.met.MessagesSentTotal.WithLabelValues(result).Inc()
		}
		if err != nil && respCb != nil {
			f.callback.Fail(traceID, err)
		}
		if errCb != nil {
			errCb(err)
		}
	}()
}

func (f *Front) nextSeq() uint16 {
	f.seq++
	return f.seq
}

// responseSenderFor builds the closure §4.8 step 3 hands to respCb: it
// re-encodes a MessagePayload with the response bit set and src/dst node
// fields swapped, then sends it back by byNode routing.
func (f *Front) responseSenderFor(ri *wire.RouteInfo, req *wire.MessagePayload) func(data []byte) error {
	reply := &wire.RouteInfo{DstNode: ri.SrcNode, SrcNode: []byte(f.nodeID), SrcInst: f.agency, DstInst: ri.SrcInst}
	return func(data []byte) error {
		resp := &wire.MessagePayload{Version: 1, Seq: req.Seq, TraceID: req.TraceID, Data: data}
		resp.SetResponse(true)
		ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()
		return f.gateway.AsyncSendMessage(ctx, wire.RouteByNodeID, reply, req.TraceID, wire.EncodePayload(resp), DefaultTimeout, false)
	}
}

// Push is the synchronous helper of §4.8: it blocks on the same
// completion errCb would have received asynchronously.
func (f *Front) Push(rt wire.RouteType, ri *wire.RouteInfo, payload []byte, timeout time.Duration) error {
	done := make(chan error, 1)
	f.AsyncSendMessage(rt, ri, payload, timeout, func(err error) { done <- err }, nil)
	return <-done
}

// Pop retrieves and removes the oldest queued message for topic,
// blocking up to timeoutMs.
func (f *Front) Pop(ctx context.Context, topic string, timeoutMs int) (dispatch.Received, error) {
	return f.handlers.Pop(ctx, topic, time.Duration(timeoutMs)*time.Millisecond)
}

// Peek returns the oldest queued message for topic without removing it.
func (f *Front) Peek(topic string) (dispatch.Received, bool) {
	return f.handlers.Peek(topic)
}

// Deliver implements localrouter.Client for AIR mode, and is also what
// rpc.frontServer calls in PRO mode: the gateway pushing one delivered
// message. Per §4.8 step 1, the ack back to the gateway is immediate: the
// payload is decoded before returning (a decode error is the ack), and
// dispatch happens in the background so the gateway is never blocked on
// front-side handler latency.
func (f *Front) Deliver(ri *wire.RouteInfo, payload []byte) error {
	mp, err := wire.DecodePayload(payload)
	if err != nil {
		return err
	}
	go f.onReceiveMessage(ri, mp)
	return nil
}

// Healthy implements localrouter.Client; a Front co-located in-process
// with its gateway (AIR mode) is healthy for as long as it is running.
func (f *Front) Healthy() bool { return true }

var errUnmatchedResponse = errors.New("front: response for unknown or expired traceID")

func (f *Front) onReceiveMessage(ri *wire.RouteInfo, mp *wire.MessagePayload) {
	if mp.IsResponse() {
		if f.met != nil {
			f.met.MessagesReceivedTotal.WithLabelValues("response").Inc()
		}
		if !f.callback.Complete(mp.TraceID, mp) {
			if f.log != nil {
				f.log.Printf("WARN: %v: %s", errUnmatchedResponse, mp.TraceID)
			}
		}
		return
	}

	if f.met != nil {
		f.met.MessagesReceivedTotal.WithLabelValues("request").Inc()
	}
	if ri == nil {
		ri = &wire.RouteInfo{}
	}
	msg := dispatch.Received{RouteInfo: ri, Payload: mp}
	f.handlers.Dispatch(msg, f.responseSenderFor(ri, mp))
}
