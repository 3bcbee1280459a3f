package peerservice

import (
	"sync"
)

// peerSession is a live connection to one peer gateway.
type peerSession struct {
	gatewayID string
	endpoint  string
	mux       muxSession
	outbound  bool
}

// sessionTable indexes live sessions by gatewayID and by endpoint, and
// guards the mapping with its own lock per the §5 "each protected by its
// own reader-writer lock" discipline.
type sessionTable struct {
	mu             sync.RWMutex
	byGatewayID    map[string]*peerSession
	endpointToID   map[string]string
	idToEndpoint   map[string]string
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		byGatewayID:  make(map[string]*peerSession),
		endpointToID: make(map[string]string),
		idToEndpoint: make(map[string]string),
	}
}

// register installs sess as the live session for its gatewayID and binds
// its endpoint mapping. Per §4.2: if a live session already exists for
// this peer-ID, the caller must drop the new connection and keep the old
// one, so register reports false without installing sess in that case.
// Self-loops (remote ID equals our own) are the caller's responsibility to
// reject before calling register.
func (t *sessionTable) register(sess *peerSession) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byGatewayID[sess.gatewayID]; exists {
		return false
	}
	t.byGatewayID[sess.gatewayID] = sess
	if sess.endpoint != "" {
		t.endpointToID[sess.endpoint] = sess.gatewayID
		t.idToEndpoint[sess.gatewayID] = sess.endpoint
	}
	return true
}

// remove drops the session for gatewayID only if the stored session is
// exactly sess, guarding against a stale close racing a newer connection
// from the same peer replacing it first.
func (t *sessionTable) remove(sess *peerSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.byGatewayID[sess.gatewayID]; !ok || cur != sess {
		return
	}
	delete(t.byGatewayID, sess.gatewayID)
	if ep, ok := t.idToEndpoint[sess.gatewayID]; ok {
		delete(t.idToEndpoint, sess.gatewayID)
		delete(t.endpointToID, ep)
	}
}

func (t *sessionTable) get(gatewayID string) (*peerSession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byGatewayID[gatewayID]
	return s, ok
}

func (t *sessionTable) idForEndpoint(endpoint string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.endpointToID[endpoint]
	return id, ok
}

func (t *sessionTable) all() []*peerSession {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*peerSession, 0, len(t.byGatewayID))
	for _, s := range t.byGatewayID {
		out = append(out, s)
	}
	return out
}
