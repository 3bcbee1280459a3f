// Package routetable implements the distance-vector routing table each
// gateway keeps over its peer-gateway overlay, plus the seq-gossip protocol
// that keeps neighboring tables converged.
package routetable

import (
	"sync"
)

// entry is one destination's current route: who to forward to, and how far
// away the destination is.
type entry struct {
	nextHop  string
	distance int
}

// Table is a gateway's distance-vector routing table: destination gateway
// ID to (next hop, distance). It is safe for concurrent use; every mutating
// method takes the table's write lock and bumps the local statusSeq under
// that same lock so statusSeq and the entries it describes never drift
// apart under concurrent writers.
type Table struct {
	mu                  sync.RWMutex
	self                string
	unreachableDistance int
	entries             map[string]entry
	statusSeq           uint32
}

// New builds an empty Table for gateway self, with no known peers.
func New(self string, unreachableDistance int) *Table {
	return &Table{
		self:                self,
		unreachableDistance: unreachableDistance,
		entries:             make(map[string]entry),
	}
}

// StatusSeq returns the table's current version counter.
func (t *Table) StatusSeq() uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statusSeq
}

// NextHop returns the next hop and distance known for dst, and whether any
// route exists at all.
func (t *Table) NextHop(dst string) (nextHop string, distance int, ok bool) {
	if dst == t.self {
		return t.self, 0, true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[dst]
	return e.nextHop, e.distance, ok
}

// ReachableNodes returns every destination currently reachable, excluding
// self, for broadcast fan-out.
func (t *Table) ReachableNodes() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.entries))
	for dst, e := range t.entries {
		if e.distance >= t.unreachableDistance {
			continue
		}
		out = append(out, dst)
	}
	return out
}

// Snapshot is the wire-serializable form of a Table's entries, used to fill
// a RouterTableResponse packet.
type Snapshot struct {
	Entries []SnapshotEntry
}

// SnapshotEntry is one advertised (destination, distance) pair; the
// receiver always treats the sender as the next hop, so NextHop is not
// carried on the wire.
type SnapshotEntry struct {
	Dst      string
	Distance int
}

// Export produces a Snapshot of every entry whose next hop is NOT origin,
// preventing a split-horizon loop where a peer is advertised its own route
// back to itself.
func (t *Table) Export(origin string) Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := Snapshot{Entries: make([]SnapshotEntry, 0, len(t.entries)+1)}
	for dst, e := range t.entries {
		if e.nextHop == origin {
			continue
		}
		snap.Entries = append(snap.Entries, SnapshotEntry{Dst: dst, Distance: e.distance})
	}
	snap.Entries = append(snap.Entries, SnapshotEntry{Dst: t.self, Distance: 0})
	return snap
}

// Merge applies a peer's advertised Snapshot, per §4.3: for each advertised
// (dst, distance), update(dst, nextHop=origin, distance=advertised+1) adds
// the entry if none exists, replaces an entry whose current next hop is
// already origin (refresh), or replaces it when the new distance is
// strictly smaller. Distances at or above unreachableDistance mark dst
// unreachable and add it to the returned set. A direct entry
// (dst=origin, nextHop=self, distance=1) is always inserted afterward.
// changed reports whether the merge produced any observable change, which
// callers use to decide whether to bump statusSeq and re-broadcast.
func (t *Table) Merge(origin string, snap Snapshot) (unreachable []string, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, se := range snap.Entries {
		if se.Dst == t.self {
			continue
		}
		newDistance := se.Distance + 1
		cur, exists := t.entries[se.Dst]

		unreach := se.Distance >= t.unreachableDistance
		switch {
		case !exists:
			t.entries[se.Dst] = entry{nextHop: origin, distance: newDistance}
			changed = true
		case cur.nextHop == origin:
			if cur.distance != newDistance {
				t.entries[se.Dst] = entry{nextHop: origin, distance: newDistance}
				changed = true
			}
		case newDistance < cur.distance:
			t.entries[se.Dst] = entry{nextHop: origin, distance: newDistance}
			changed = true
		}
		if unreach {
			unreachable = append(unreachable, se.Dst)
		}
	}

	direct := entry{nextHop: t.self, distance: 1}
	if cur, exists := t.entries[origin]; !exists || cur != direct {
		t.entries[origin] = direct
		changed = true
	}

	if changed {
		t.statusSeq++
	}
	return unreachable, changed
}

// RemovePeer drops every entry whose next hop is peer, for when a peer
// session is lost and its advertised routes can no longer be trusted.
func (t *Table) RemovePeer(peer string) (changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for dst, e := range t.entries {
		if e.nextHop == peer || dst == peer {
			delete(t.entries, dst)
			changed = true
		}
	}
	if changed {
		t.statusSeq++
	}
	return changed
}
