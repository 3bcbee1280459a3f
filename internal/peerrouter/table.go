// Package peerrouter builds the secondary index over peer-gateway
// node-info snapshots (§4.6): which peer gateways host a given front, and
// which speak for a given agency, plus the policy-specific selection and
// random-peer broadcast fan-out built on top of it.
package peerrouter

import (
	"errors"

	"github.com/NebulousLabs/fastrand"

	"github.com/ppcmesh/fabric/internal/nodeinfo"
	"github.com/ppcmesh/fabric/pkg/wire"
)

// ErrUnknownPolicy mirrors localrouter.ErrUnknownPolicy for the peer-side
// selection path.
var ErrUnknownPolicy = errors.New("peerrouter: unknown route policy")

// Table answers nodeID and agency lookups over nodeinfo.Store's peer
// snapshots. It keeps no index of its own: every lookup scans the stored
// snapshots, which is cheap enough for small gateway counts.
type Table struct {
	store *nodeinfo.Store
}

// New builds a Table over store.
func New(store *nodeinfo.Store) *Table {
	return &Table{store: store}
}

func (t *Table) byNode(nodeID string) []*nodeinfo.GatewayNodeInfo {
	var out []*nodeinfo.GatewayNodeInfo
	for _, g := range t.store.All() {
		if _, ok := g.Nodes[nodeID]; ok {
			out = append(out, g)
		}
	}
	return out
}

func (t *Table) byAgency(agency string) []*nodeinfo.GatewayNodeInfo {
	var out []*nodeinfo.GatewayNodeInfo
	for _, g := range t.store.All() {
		for _, n := range g.Nodes {
			if n.Agency == agency {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

// SelectRouter resolves the set of peer gateways a message with the given
// policy should be sent to, per §4.6.
func (t *Table) SelectRouter(rt wire.RouteType, ri *wire.RouteInfo) ([]*nodeinfo.GatewayNodeInfo, error) {
	switch rt {
	case wire.RouteByNodeID:
		return t.byNode(string(ri.DstNode)), nil
	case wire.RouteByAgency, wire.RouteByTopic:
		return t.byAgency(ri.DstInst), nil
	case wire.RouteByComponent:
		candidates := t.byAgency(ri.DstInst)
		var out []*nodeinfo.GatewayNodeInfo
		for _, g := range candidates {
			for _, n := range g.Nodes {
				if n.HasComponent(ri.ComponentType) {
					out = append(out, g)
					break
				}
			}
		}
		return out, nil
	default:
		return nil, ErrUnknownPolicy
	}
}

// Sender abstracts the single send primitive AsyncBroadcastMessage needs:
// hand msg to one peer gateway, who becomes responsible for local fan-out
// on its end.
type Sender interface {
	SendToPeer(peerGatewayID string, msg *wire.Message) error
}

// AsyncBroadcastMessage implements §4.6's broadcast fan-out: group peer
// gateways by agency and pick one uniformly at random per agency
// (excluding self), sending msg to each chosen peer.
func (t *Table) AsyncBroadcastMessage(selfGatewayID string, send Sender, msg *wire.Message) {
	byAgency := make(map[string][]string)
	for _, g := range t.store.All() {
		if g.GatewayID == selfGatewayID {
			continue
		}
		agencies := make(map[string]bool)
		for _, n := range g.Nodes {
			agencies[n.Agency] = true
		}
		for agency := range agencies {
			byAgency[agency] = append(byAgency[agency], g.GatewayID)
		}
	}
	for _, candidates := range byAgency {
		if len(candidates) == 0 {
			continue
		}
		chosen := candidates[fastrand.Intn(len(candidates))]
		_ = send.SendToPeer(chosen, msg)
	}
}
