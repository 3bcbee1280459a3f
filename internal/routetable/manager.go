package routetable

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/ppcmesh/fabric/pkg/lifecycle"
	"github.com/ppcmesh/fabric/pkg/persist"
)

// Broadcaster abstracts the peer service's ability to send a raw payload of
// a given packet type to one peer or to every connected peer, so this
// package never imports the peer-service package directly.
type Broadcaster interface {
	SendToPeer(peer string, packetType uint16, payload []byte) error
	SendToAllPeers(packetType uint16, payload []byte)
}

const (
	packetRouterTableSyncSeq uint16 = 0x10
	packetRouterTableResp    uint16 = 0x11
	packetRouterTableReq     uint16 = 0x12
)

// UnreachableHandler is invoked once per node that a merge reported
// unreachable (every advertised destination at or beyond the table's
// unreachableDistance, on every merge that carries it).
type UnreachableHandler func(nodeID string)

// Manager drives the routing-table seq-gossip protocol described in §4.3:
// periodic seq broadcasts, request/response exchange on stale peers, and
// merge-triggered re-broadcast.
type Manager struct {
	table  *Table
	send   Broadcaster
	log    *persist.Logger
	period time.Duration
	tg     lifecycle.ThreadGroup

	mu           sync.Mutex
	peerStatus   map[string]uint32
	handlersMu   sync.RWMutex
	unreachables []UnreachableHandler
}

// NewManager builds a Manager for table, gossiping over send every period.
func NewManager(table *Table, send Broadcaster, log *persist.Logger, period time.Duration) *Manager {
	return &Manager{
		table:      table,
		send:       send,
		log:        log,
		period:     period,
		peerStatus: make(map[string]uint32),
	}
}

// OnUnreachable registers a handler invoked (from the merge goroutine) for
// each node a merge reports unreachable.
func (m *Manager) OnUnreachable(h UnreachableHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.unreachables = append(m.unreachables, h)
}

// Start spawns the periodic seq-broadcast loop. Callers must call Stop to
// drain it.
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
	seq := m.table.StatusSeq()
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], seq)
	m.send.SendToAllPeers(packetRouterTableSyncSeq, buf[:])
}

// HandleSyncSeq processes an inbound RouterTableSyncSeq from peer: if the
// advertised seq differs from what we last stored for that peer (newer, or
// lower because the peer restarted), store it and request its full table.
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
		if err := m.send.SendToPeer(peer, packetRouterTableReq, nil); err != nil && m.log != nil {
			m.log.Printf("WARN: routing-table request to %s failed: %v", peer, err)
		}
	}
}

// HandleRequest replies to peer with this gateway's full table.
func (m *Manager) HandleRequest(peer string) {
	snap := m.table.Export(peer)
	payload := encodeSnapshot(snap)
	if err := m.send.SendToPeer(peer, packetRouterTableResp, payload); err != nil && m.log != nil {
		m.log.Printf("WARN: routing-table response to %s failed: %v", peer, err)
	}
}

// HandleResponse merges peer's advertised table and, if the merge changed
// anything, bumps and rebroadcasts our own seq, and fires unreachable
// handlers for every destination the merge reported unreachable.
func (m *Manager) HandleResponse(peer string, payload []byte) {
	snap, err := decodeSnapshot(payload)
	if err != nil {
		if m.log != nil {
			m.log.Printf("WARN: malformed routing-table response from %s: %v", peer, err)
		}
		return
	}
	unreachable, changed := m.table.Merge(peer, snap)
	if changed {
		m.broadcastSeq()
	}
	if len(unreachable) > 0 {
		m.handlersMu.RLock()
		handlers := append([]UnreachableHandler(nil), m.unreachables...)
		m.handlersMu.RUnlock()
		for _, node := range unreachable {
			for _, h := range handlers {
				h(node)
			}
		}
	}
}
