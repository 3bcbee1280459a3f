// Package localrouter indexes the fronts attached to this gateway and
// resolves policy-specific dispatch among them (§4.5).
package localrouter

import (
	"sync"

	"github.com/ppcmesh/fabric/internal/nodeinfo"
	"github.com/ppcmesh/fabric/pkg/wire"
)

// Client is the handle a gateway uses to push a delivered message to one
// attached front. front.Front (AIR mode) and rpc.ProFrontClient (PRO
// mode) both implement it.
type Client interface {
	Deliver(ri *wire.RouteInfo, payload []byte) error
	Healthy() bool
}

// registration bundles a front's advertised info with the client handle
// used to reach it and the unhealthy callback to run if health-checking
// ever observes it as down.
type registration struct {
	info        nodeinfo.Node
	client      Client
	onUnhealthy func()
}

// Registry indexes locally-attached fronts by nodeID and by the topics
// they have registered, and tracks the statusSeq bump the node-info gossip
// manager advertises on every change.
type Registry struct {
	selfGatewayID string
	selfAgency    string

	mu        sync.RWMutex
	byNode    map[string]*registration
	topics    map[string]map[string]bool // topic -> set of nodeIDs
	statusSeq uint32
}

// NewRegistry builds an empty Registry for the gateway identified by
// selfGatewayID, belonging to selfAgency.
func NewRegistry(selfGatewayID, selfAgency string) *Registry {
	return &Registry{
		selfGatewayID: selfGatewayID,
		selfAgency:    selfAgency,
		byNode:        make(map[string]*registration),
		topics:        make(map[string]map[string]bool),
	}
}

// Agency returns the agency this gateway's local fronts belong to.
func (r *Registry) Agency() string { return r.selfAgency }

// Register binds client as the handle for info.NodeID, inserting or
// replacing its entry. If the node is new or its advertised info changed,
// statusSeq is bumped so gossip picks it up. onUnhealthy is invoked by the
// health checker on probe failure; Register itself does not start any
// probing, that is the health package's job.
//
// A nil client or onUnhealthy on an existing node preserves the current
// value rather than clearing it, so a periodic re-registration (the keep-
// alive loop calling gateway.RegisterNodeInfo with no client handle of its
// own) refreshes info without severing delivery to the already-registered
// front.
func (r *Registry) Register(info nodeinfo.Node, client Client, onUnhealthy func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, exists := r.byNode[info.NodeID]
	changed := !exists || !sameNode(cur.info, info)
	reg := &registration{info: info, client: client, onUnhealthy: onUnhealthy}
	if exists {
		if client == nil {
			reg.client = cur.client
		}
		if onUnhealthy == nil {
			reg.onUnhealthy = cur.onUnhealthy
		}
	}
	r.byNode[info.NodeID] = reg
	if changed {
		r.statusSeq++
	}
}

func sameNode(a, b nodeinfo.Node) bool {
	if a.NodeID != b.NodeID || a.Agency != b.Agency || len(a.Components) != len(b.Components) {
		return false
	}
	for i := range a.Components {
		if a.Components[i] != b.Components[i] {
			return false
		}
	}
	return true
}

// Unregister removes nodeID and every topic binding it held.
func (r *Registry) Unregister(nodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byNode[nodeID]; !exists {
		return
	}
	delete(r.byNode, nodeID)
	for topic, ids := range r.topics {
		if ids[nodeID] {
			delete(ids, nodeID)
			if len(ids) == 0 {
				delete(r.topics, topic)
			}
		}
	}
	r.statusSeq++
}

// RegisterTopic adds nodeID to topic's subscriber set. Returns true if the
// binding is new. Redelivery of any held messages for the topic is the
// caller's responsibility (the dispatcher owns the holding queue).
func (r *Registry) RegisterTopic(nodeID, topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byNode[nodeID]; !exists {
		return false
	}
	ids, ok := r.topics[topic]
	if !ok {
		ids = make(map[string]bool)
		r.topics[topic] = ids
	}
	if ids[nodeID] {
		return false
	}
	ids[nodeID] = true
	r.statusSeq++
	return true
}

// UnregisterTopic removes nodeID from topic's subscriber set.
func (r *Registry) UnregisterTopic(nodeID, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, ok := r.topics[topic]
	if !ok || !ids[nodeID] {
		return
	}
	delete(ids, nodeID)
	if len(ids) == 0 {
		delete(r.topics, topic)
	}
	r.statusSeq++
}

// StatusSeq returns the registry's current version counter, satisfying
// nodeinfo.Local.
func (r *Registry) StatusSeq() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statusSeq
}

// Snapshot builds the GatewayNodeInfo this gateway advertises, satisfying
// nodeinfo.Local.
func (r *Registry) Snapshot() *nodeinfo.GatewayNodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g := &nodeinfo.GatewayNodeInfo{
		GatewayID: r.selfGatewayID,
		StatusSeq: r.statusSeq,
		Nodes:     make(map[string]nodeinfo.Node, len(r.byNode)),
		Topics:    make(map[string][]string, len(r.topics)),
	}
	for id, reg := range r.byNode {
		g.Nodes[id] = reg.info
	}
	for topic, ids := range r.topics {
		list := make([]string, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		g.Topics[topic] = list
	}
	return g
}

// byComponent returns every registration whose components contain
// componentType.
func (r *Registry) byComponent(componentType string) []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*registration
	for _, reg := range r.byNode {
		if reg.info.HasComponent(componentType) {
			out = append(out, reg)
		}
	}
	return out
}

// byTopic returns every registration subscribed to topic, excluding
// excludeNode. An empty topic means "every front".
func (r *Registry) byTopic(topic, excludeNode string) []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if topic == "" {
		out := make([]*registration, 0, len(r.byNode))
		for id, reg := range r.byNode {
			if id != excludeNode {
				out = append(out, reg)
			}
		}
		return out
	}
	ids, ok := r.topics[topic]
	if !ok {
		return nil
	}
	out := make([]*registration, 0, len(ids))
	for id := range ids {
		if id == excludeNode {
			continue
		}
		if reg, exists := r.byNode[id]; exists {
			out = append(out, reg)
		}
	}
	return out
}

// all returns every registered front.
func (r *Registry) all() []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*registration, 0, len(r.byNode))
	for _, reg := range r.byNode {
		out = append(out, reg)
	}
	return out
}

func (r *Registry) byNodeID(nodeID string) (*registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byNode[nodeID]
	return reg, ok
}
