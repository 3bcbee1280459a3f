package nodeinfo

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/ppcmesh/fabric/pkg/lifecycle"
	"github.com/ppcmesh/fabric/pkg/persist"
)

// Broadcaster abstracts the peer service's ability to push packets, the
// same role routetable.Broadcaster plays for routing-table gossip.
type Broadcaster interface {
	SendToPeer(peer string, packetType uint16, payload []byte) error
	SendToAllPeers(packetType uint16, payload []byte)
}

const (
	packetSyncNodeSeq       uint16 = 0x20
	packetRequestNodeStatus uint16 = 0x21
	packetResponseNodeStatus uint16 = 0x22
)

// Local supplies this gateway's own advertised snapshot and its current
// statusSeq; localrouter.Registry implements it.
type Local interface {
	Snapshot() *GatewayNodeInfo
	StatusSeq() uint32
}

// Store holds the most recently received GatewayNodeInfo snapshot for each
// peer gateway, replacing atomically on each newer response.
type Store struct {
	mu   sync.RWMutex
	byID map[string]*GatewayNodeInfo
}

// NewStore builds an empty peer-snapshot store.
func NewStore() *Store {
	return &Store{byID: make(map[string]*GatewayNodeInfo)}
}

// Get returns the stored snapshot for peer, if any.
func (s *Store) Get(peer string) (*GatewayNodeInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.byID[peer]
	return g, ok
}

// All returns every stored peer snapshot.
func (s *Store) All() []*GatewayNodeInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*GatewayNodeInfo, 0, len(s.byID))
	for _, g := range s.byID {
		out = append(out, g)
	}
	return out
}

func (s *Store) replace(peer string, g *GatewayNodeInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[peer] = g
}

// Put unconditionally stores g for peer, bypassing the staleness check
// HandleResponse applies. Used for initial seeding and in tests.
func (s *Store) Put(peer string, g *GatewayNodeInfo) {
	s.replace(peer, g)
}

// Manager drives the node-info gossip protocol (§4.4): structurally
// identical to the routing-table gossip in routetable.Manager, but
// advertising GatewayNodeInfo snapshots instead of distance-vector routes.
type Manager struct {
	local  Local
	store  *Store
	send   Broadcaster
	log    *persist.Logger
	period time.Duration
	tg     lifecycle.ThreadGroup

	mu         sync.Mutex
	peerStatus map[string]uint32
}

// NewManager builds a Manager advertising local's snapshot every period.
func NewManager(local Local, store *Store, send Broadcaster, log *persist.Logger, period time.Duration) *Manager {
	return &Manager{
		local:      local,
		store:      store,
		send:       send,
		log:        log,
		period:     period,
		peerStatus: make(map[string]uint32),
	}
}

// Start spawns the periodic seq-broadcast loop.
func (m *Manager) Start() {
	if err := m.tg.Add(); err != nil {
		return
	}
	go m.broadcastLoop()
}

// Stop drains the broadcast loop.
func (m *Manager) Stop() error {
	return m.tg.Stop()
}

// Broadcast immediately advertises the local statusSeq, for callers (the
// local registry) that want gossip to react to a registration change
// without waiting for the next tick.
func (m *Manager) Broadcast() {
	m.broadcastSeq()
}

func (m *Manager) broadcastLoop() {
	defer m.tg.Done()
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()
	for {
		select {
		case <-m.tg.StopChan():
			return
		case <-ticker.C:
			m.broadcastSeq()
		}
	}
}

func (m *Manager) broadcastSeq() {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], m.local.StatusSeq())
	m.send.SendToAllPeers(packetSyncNodeSeq, buf[:])
}

// HandleSyncSeq requests peer's full snapshot if its advertised seq
// differs from what we last stored for it (newer, or lower because the
// peer restarted).
func (m *Manager) HandleSyncSeq(peer string, payload []byte) {
	if len(payload) < 4 {
		return
	}
	seq := binary.BigEndian.Uint32(payload)
	m.mu.Lock()
	stale := seq != m.peerStatus[peer]
	if stale {
		m.peerStatus[peer] = seq
	}
	m.mu.Unlock()
	if stale {
		if err := m.send.SendToPeer(peer, packetRequestNodeStatus, nil); err != nil && m.log != nil {
			m.log.Printf("WARN: node-info request to %s failed: %v", peer, err)
		}
	}
}

// HandleRequest replies to peer with this gateway's encoded snapshot.
func (m *Manager) HandleRequest(peer string) {
	payload := m.local.Snapshot().Encode()
	if err := m.send.SendToPeer(peer, packetResponseNodeStatus, payload); err != nil && m.log != nil {
		m.log.Printf("WARN: node-info response to %s failed: %v", peer, err)
	}
}

// HandleResponse decodes peer's snapshot and, if its statusSeq differs
// from the stored one (newer, or lower because the peer restarted),
// replaces the stored snapshot atomically.
func (m *Manager) HandleResponse(peer string, payload []byte) {
	snap, err := Decode(payload)
	if err != nil {
		if m.log != nil {
			m.log.Printf("WARN: malformed node-info response from %s: %v", peer, err)
		}
		return
	}
	if cur, ok := m.store.Get(peer); ok && cur.StatusSeq == snap.StatusSeq {
		return
	}
	m.store.replace(peer, snap)
}
