package peerservice

import (
	"net"
)

// Connect dials endpoint, performs the gatewayID handshake, and registers
// the resulting session, per §4.2. A self-loop drops the connection and
// returns ErrSelfLoop. A duplicate live session drops the new connection
// and keeps the old one; that case returns nil. Dial and handshake
// failures return their error.
func (s *Service) Connect(endpoint string) error {
	conn, err := net.Dial("tcp", endpoint)
	if err != nil {
		return err
	}
	peerID, err := exchangeGatewayID(conn, s.selfID)
	if err != nil {
		conn.Close()
		return err
	}
	if peerID == s.selfID {
		conn.Close()
		return ErrSelfLoop
	}
	mux := newClientMuxSession(conn)
	sess := &peerSession{gatewayID: peerID, endpoint: endpoint, mux: mux, outbound: true}
	if !s.sessions.register(sess) {
		mux.Close()
		return nil
	}
	go s.serveSession(sess)
	return nil
}
