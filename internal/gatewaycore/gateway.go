// Package gatewaycore implements the gateway-side dispatch logic of §4.7:
// local-first delivery, peer-router fallback with retry, and the inbound
// handlers for P2P, broadcast, and gossip packets arriving over the peer
// overlay.
package gatewaycore

import (
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ppcmesh/fabric/internal/localrouter"
	"github.com/ppcmesh/fabric/internal/nodeinfo"
	"github.com/ppcmesh/fabric/internal/peerrouter"
	"github.com/ppcmesh/fabric/internal/peerservice"
	"github.com/ppcmesh/fabric/internal/routetable"
	"github.com/ppcmesh/fabric/pkg/metrics"
	"github.com/ppcmesh/fabric/pkg/persist"
	"github.com/ppcmesh/fabric/pkg/wire"
)

// Config bundles the values New needs beyond the components it wires
// together.
type Config struct {
	SelfGatewayID       string
	UnreachableDistance int
	RouterSyncPeriod    time.Duration
	NodeInfoSyncPeriod  time.Duration
	ForwardTimeout      time.Duration
}

// Gateway is the assembled gateway: routing table, node-info store, local
// dispatcher, peer-router index, and the peer-service transport, wired
// together per §4.7.
type Gateway struct {
	cfg Config
	log *persist.Logger
	met *metrics.Gateway

	table      *routetable.Table
	routeMgr   *routetable.Manager
	nodeStore  *nodeinfo.Store
	nodeMgr    *nodeinfo.Manager
	dispatcher *localrouter.Dispatcher
	peerTable  *peerrouter.Table
	peerSvc    *peerservice.Service
}

// New wires a Gateway together. dispatcher and peerSvc are constructed by
// the caller (cmd/gatewayd) since peerSvc.New needs the Gateway's own
// inbound-message handler, which closes over the Gateway itself. met may be
// nil, in which case dispatch/gossip activity is simply not counted.
func New(cfg Config, log *persist.Logger, met *metrics.Gateway, dispatcher *localrouter.Dispatcher) *Gateway {
	table := routetable.New(cfg.SelfGatewayID, cfg.UnreachableDistance)
	nodeStore := nodeinfo.NewStore()
	g := &Gateway{
		cfg:        cfg,
		log:        log,
		met:        met,
		table:      table,
		nodeStore:  nodeStore,
		dispatcher: dispatcher,
		peerTable:  peerrouter.New(nodeStore),
	}
	return g
}

// AttachPeerService installs the peer-service transport and the gossip
// managers that depend on it. Called once the peer service has been built
// with Gateway.HandleInbound as its MessageHandler.
func (g *Gateway) AttachPeerService(svc *peerservice.Service) {
	g.peerSvc = svc
	g.routeMgr = routetable.NewManager(g.table, svc, g.log, g.cfg.RouterSyncPeriod)
	g.nodeMgr = nodeinfo.NewManager(g.dispatcher.Registry(), g.nodeStore, svc, g.log, g.cfg.NodeInfoSyncPeriod)
	g.routeMgr.OnUnreachable(func(nodeID string) {
		if g.log != nil {
			g.log.Printf("INFO: node %s marked unreachable", nodeID)
		}
	})
}

// Start spawns the routing-table and node-info gossip loops. The peer
// service itself is started separately by the caller.
func (g *Gateway) Start() {
	g.routeMgr.Start()
	g.nodeMgr.Start()
}

// Stop drains the gossip loops, collecting failures from both instead of
// stopping short at the first one so callers see every subsystem that
// failed to shut down cleanly.
func (g *Gateway) Stop() error {
	var result *multierror.Error
	if err := g.routeMgr.Stop(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := g.nodeMgr.Stop(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Table exposes the routing table, e.g. for diagnostics endpoints.
func (g *Gateway) Table() *routetable.Table { return g.table }

// NodeStore exposes the peer node-info store.
func (g *Gateway) NodeStore() *nodeinfo.Store { return g.nodeStore }

// HandleInbound is the peerservice.MessageHandler for this Gateway.
func (g *Gateway) HandleInbound(peerID string, msg *wire.Message) (ack []byte, ok bool) {
	g.updateGauges()
	switch msg.Header.PacketType {
	case wire.PacketP2PMessage:
		return g.onReceiveP2PMessage(peerID, msg), true
	case wire.PacketBroadcastMessage:
		g.onReceiveBroadcastMessage(msg)
		return nil, false
	case wire.PacketRouterTableSyncSeq:
		g.routeMgr.HandleSyncSeq(peerID, msg.Payload)
		g.countGossipRound("route")
	case wire.PacketRouterTableReq:
		g.routeMgr.HandleRequest(peerID)
	case wire.PacketRouterTableResp:
		g.routeMgr.HandleResponse(peerID, msg.Payload)
		g.countGossipRound("route")
	case wire.PacketSyncNodeSeq:
		g.nodeMgr.HandleSyncSeq(peerID, msg.Payload)
		g.countGossipRound("nodeinfo")
	case wire.PacketRequestNodeStatus:
		g.nodeMgr.HandleRequest(peerID)
	case wire.PacketResponseNodeStatus:
		g.nodeMgr.HandleResponse(peerID, msg.Payload)
		g.countGossipRound("nodeinfo")
	}
	return nil, false
}

func (g *Gateway) updateGauges() {
	if g.met == nil {
		return
	}
	g.met.RoutingTableEntries.Set(float64(len(g.table.ReachableNodes())))
	if g.peerSvc != nil {
		g.met.PeerSessionsActive.Set(float64(len(g.peerSvc.ReachablePeers())))
	}
}

func (g *Gateway) countGossipRound(kind string) {
	if g.met != nil {
		g.met.GossipRoundsTotal.WithLabelValues(kind).Inc()
	}
}

func (g *Gateway) countDispatch(outcome string) {
	if g.met != nil {
		g.met.DispatchOutcomes.WithLabelValues(outcome).Inc()
	}
}

// onReceiveP2PMessage implements the receiving half of §4.2: deliver
// locally if we are the destination (or none was named), otherwise
// increment ttl and either drop (ttl-expired) or re-forward by nodeID.
func (g *Gateway) onReceiveP2PMessage(fromPeer string, msg *wire.Message) []byte {
	if len(msg.Header.DstGwNode) == 0 || string(msg.Header.DstGwNode) == g.cfg.SelfGatewayID {
		return ackCode(g.dispatchLocally(msg))
	}

	msg.Header.TTL++
	if int(msg.Header.TTL) >= g.cfg.UnreachableDistance {
		return ackCode(errTTLExpired)
	}

	done := make(chan error, 1)
	g.asyncSendMessageByNodeID(string(msg.Header.DstGwNode), msg, g.cfg.ForwardTimeout, func(err error) {
		done <- err
	})
	return ackCode(<-done)
}

// onReceiveBroadcastMessage dispatches locally only; broadcasts carry no
// ack back to the sending peer.
func (g *Gateway) onReceiveBroadcastMessage(msg *wire.Message) {
	if err := g.dispatchLocally(msg); err != nil && g.log != nil {
		g.log.Printf("WARN: local dispatch of broadcast %s failed: %v", msg.Header.TraceID, err)
	}
}

// dispatchLocally decodes msg's RouteInfo/policy and hands its payload to
// the local dispatcher, per §4.7 step 2 ("same-agency traffic never
// touches the overlay") applied to an already-arrived message.
func (g *Gateway) dispatchLocally(msg *wire.Message) error {
	rt, err := msg.Header.RouteType()
	if err != nil {
		return err
	}
	broadcast := msg.Header.PacketType == wire.PacketBroadcastMessage
	found, err := g.dispatcher.Dispatch(rt, msg.Header.RouteInfo, broadcast, true, msg.Payload, nil)
	if err != nil {
		g.countDispatch("error")
		return err
	}
	if !found {
		g.countDispatch("dropped")
		return errNotFoundFrontService
	}
	if found && err == nil {
		g.countDispatch("delivered")
	}
	return nil
}
