package peerservice

import (
	"errors"

	"github.com/ppcmesh/fabric/pkg/wire"
)

// ErrNoSession is returned by SendMessage when no live session exists for
// the requested peer gateway ("no network established" in §4.2's terms).
var ErrNoSession = errors.New("peerservice: no session for peer")

// SendToPeer implements routetable.Broadcaster and nodeinfo.Broadcaster:
// it wraps payload in a minimal header of the given packet type and fires
// it at peer without waiting for a reply. Gossip packets are one-way; the
// response (if any) arrives later as its own inbound frame.
func (s *Service) SendToPeer(peer string, packetType uint16, payload []byte) error {
	msg := &wire.Message{
		Header: wire.MessageHeader{
			Version:    1,
			PacketType: wire.PacketType(packetType),
			SrcGwNode:  []byte(s.selfID),
			DstGwNode:  []byte(peer),
		},
		Payload: payload,
	}
	_, err := s.SendMessage(peer, msg, false)
	return err
}

// SendToAllPeers fires payload at every currently connected peer, logging
// (but not surfacing) per-peer failures.
func (s *Service) SendToAllPeers(packetType uint16, payload []byte) {
	for _, sess := range s.sessions.all() {
		if err := s.SendToPeer(sess.gatewayID, packetType, payload); err != nil && s.log != nil {
			s.log.Printf("WARN: broadcast of packet %d to %s failed: %v", packetType, sess.gatewayID, err)
		}
	}
}

// SendMessage opens a new stream on peer's session, writes msg, and, if
// expectAck is true, reads back the peer's ack payload (a short ASCII
// error-code string per §4.2/§4.7). It returns ErrNoSession if peer has no
// live session.
func (s *Service) SendMessage(peer string, msg *wire.Message, expectAck bool) ([]byte, error) {
	sess, ok := s.sessions.get(peer)
	if !ok {
		return nil, ErrNoSession
	}
	stream, err := sess.mux.OpenStream()
	if err != nil {
		s.sessions.remove(sess)
		return nil, err
	}
	defer stream.Close()

	if err := wire.WriteMessage(stream, msg); err != nil {
		return nil, err
	}
	if !expectAck {
		return nil, nil
	}
	ack := make([]byte, 256)
	n, err := stream.Read(ack)
	if err != nil {
		return nil, err
	}
	return ack[:n], nil
}

// HasSession reports whether a live session exists for peer.
func (s *Service) HasSession(peer string) bool {
	_, ok := s.sessions.get(peer)
	return ok
}

// ReachablePeers returns every peer gateway with a live session.
func (s *Service) ReachablePeers() []string {
	sessions := s.sessions.all()
	out := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.gatewayID)
	}
	return out
}
