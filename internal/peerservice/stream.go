// Package peerservice maintains one duplex, multiplexed connection per
// configured or discovered peer gateway, handles the connect/accept/
// reconnect lifecycle (§4.2), and exposes the SendToPeer/SendToAllPeers
// primitives the routing-table and node-info gossip managers drive.
package peerservice

import (
	"net"

	"github.com/xtaci/smux"

	"github.com/ppcmesh/fabric/pkg/build"
)

// muxSession is the stream-multiplexed transport running over one peer's
// TCP connection: every gateway-to-gateway frame travels on its own
// stream, so a slow reply on one in-flight message never head-of-line
// blocks another.
type muxSession struct {
	sess *smux.Session
}

func newServerMuxSession(conn net.Conn) muxSession {
	sess, err := smux.Server(conn, nil)
	if err != nil {
		build.Critical("smux should not fail with default config:", err)
	}
	return muxSession{sess}
}

func newClientMuxSession(conn net.Conn) muxSession {
	sess, err := smux.Client(conn, nil)
	if err != nil {
		build.Critical("smux should not fail with default config:", err)
	}
	return muxSession{sess}
}

func (m muxSession) OpenStream() (net.Conn, error)   { return m.sess.OpenStream() }
func (m muxSession) AcceptStream() (net.Conn, error) { return m.sess.AcceptStream() }
func (m muxSession) Close() error                    { return m.sess.Close() }
func (m muxSession) IsClosed() bool                  { return m.sess.IsClosed() }
