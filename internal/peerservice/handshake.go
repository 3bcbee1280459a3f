package peerservice

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"time"
)

// ErrSelfLoop is returned when a handshake reveals the remote gateway ID
// equals our own.
var ErrSelfLoop = errors.New("peerservice: refusing to connect to self")

const handshakeTimeout = 10 * time.Second

// exchangeGatewayID writes our own gatewayID and reads the peer's, using a
// single 2-byte length prefix in each direction. It runs before any mux
// session is established, over the raw connection.
func exchangeGatewayID(conn net.Conn, selfID string) (peerID string, err error) {
	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(selfID)))
	if _, err := conn.Write(lenBuf[:]); err != nil {
		return "", err
	}
	if _, err := conn.Write([]byte(selfID)); err != nil {
		return "", err
	}

	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return "", err
	}
	peerID = string(buf)
	if peerID == selfID {
		return "", ErrSelfLoop
	}
	return peerID, nil
}
