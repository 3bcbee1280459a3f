package peerservice

import (
	"net"
	"sync"
	"time"

	"github.com/ppcmesh/fabric/pkg/lifecycle"
	"github.com/ppcmesh/fabric/pkg/persist"
	"github.com/ppcmesh/fabric/pkg/wire"
)

// MessageHandler processes one inbound frame from peerID. When ok is true,
// ack is written back on the same stream (used for P2PMessage, whose
// caller expects a short ASCII error-code reply); BroadcastMessage and the
// gossip packet types return ok=false.
type MessageHandler func(peerID string, msg *wire.Message) (ack []byte, ok bool)

// Service owns the peer overlay: one multiplexed session per peer
// gateway, a reconnect loop over configured endpoints, and the
// send/broadcast primitives the dispatch and gossip layers use.
type Service struct {
	selfID          string
	maxFrameSize    uint32
	reconnectPeriod time.Duration
	handler         MessageHandler
	log             *persist.Logger

	listener net.Listener
	sessions *sessionTable

	mu        sync.RWMutex
	endpoints []string

	tg lifecycle.ThreadGroup
}

// New builds a Service listening on listenAddr. Call Start to spawn its
// accept and reconnect loops.
func New(selfID, listenAddr string, maxFrameSize uint32, reconnectPeriod time.Duration, handler MessageHandler, log *persist.Logger) (*Service, error) {
	l, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}
	return &Service{
		selfID:          selfID,
		maxFrameSize:    maxFrameSize,
		reconnectPeriod: reconnectPeriod,
		handler:         handler,
		log:             log,
		listener:        l,
		sessions:        newSessionTable(),
	}, nil
}

// Addr returns the address the Service is listening on, useful when
// listenAddr was given with a zero port.
func (s *Service) Addr() string { return s.listener.Addr().String() }

// SetEndpoints installs the configured peer endpoint list the reconnect
// loop dials against. Self-endpoints are not removed from the list: the
// reconnect loop dials them like any other and the handshake rejects them
// with ErrSelfLoop, so no session to self is ever registered.
func (s *Service) SetEndpoints(endpoints []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints = append([]string(nil), endpoints...)
}

// Start spawns the accept loop and the reconnect loop.
func (s *Service) Start() {
	if err := s.tg.Add(); err == nil {
		go func() {
			defer s.tg.Done()
			s.acceptLoop()
		}()
	}
	if err := s.tg.Add(); err == nil {
		go func() {
			defer s.tg.Done()
			s.reconnectLoop()
		}()
	}
}

// Stop closes the listener, drains every live session, and waits for the
// accept/reconnect loops to exit.
func (s *Service) Stop() error {
	s.tg.OnStop(func() {
		s.listener.Close()
		for _, sess := range s.sessions.all() {
			sess.mux.Close()
		}
	})
	return s.tg.Stop()
}

func (s *Service) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleIncoming(conn)
	}
}

func (s *Service) handleIncoming(conn net.Conn) {
	peerID, err := exchangeGatewayID(conn, s.selfID)
	if err != nil {
		conn.Close()
		if s.log != nil {
			s.log.Printf("WARN: handshake from %s failed: %v", conn.RemoteAddr(), err)
		}
		return
	}
	mux := newServerMuxSession(conn)
	sess := &peerSession{gatewayID: peerID, mux: mux, outbound: false}
	if !s.sessions.register(sess) {
		// A live session for this peer already exists; keep it, drop this one.
		mux.Close()
		return
	}
	s.serveSession(sess)
}

// serveSession accepts streams on sess until it closes, dispatching each
// complete frame to handler and removing the session from the table on
// exit (guarded by the stored-session-equality check in sessionTable.remove).
func (s *Service) serveSession(sess *peerSession) {
	defer s.sessions.remove(sess)
	for {
		stream, err := sess.mux.AcceptStream()
		if err != nil {
			return
		}
		go s.serveStream(sess, stream)
	}
}

func (s *Service) serveStream(sess *peerSession, stream net.Conn) {
	defer stream.Close()
	msg, err := wire.ReadMessage(stream, s.maxFrameSize)
	if err != nil {
		if s.log != nil {
			s.log.Printf("WARN: malformed frame from %s: %v", sess.gatewayID, err)
		}
		return
	}
	ack, ok := s.handler(sess.gatewayID, msg)
	if ok {
		stream.Write(ack)
	}
}
