package wire

import "io"

// DefaultMaxFrameSize is the frame-size ceiling applied when a caller does
// not configure one explicitly.
const DefaultMaxFrameSize = 100 << 20 // 100 MiB

// Message is a complete gateway-to-gateway frame: a header plus whatever
// bytes follow it, interpreted according to Header.PacketType. For
// P2PMessage and BroadcastMessage, Payload is typically an encoded
// MessagePayload; for the router-table and node-info packet types it is the
// packet-specific body described in §6.
type Message struct {
	Header  MessageHeader
	Payload []byte
}

// Encode serializes the message to a single contiguous byte slice: header
// fields, optional RouteInfo, then Payload verbatim.
func (m *Message) Encode() ([]byte, error) {
	e := newEncoder()
	m.Header.encode(e)
	if e.Err() != nil {
		return nil, e.Err()
	}
	e.writeRaw(m.Payload)
	return e.bytes(), e.Err()
}

// DecodeMessage parses a frame previously produced by Encode.
func DecodeMessage(buf []byte) (*Message, error) {
	d := newDecoder(buf)
	h, err := decodeHeader(d)
	if err != nil {
		return nil, err
	}
	return &Message{Header: *h, Payload: cloneBytes(d.buf[d.pos:])}, nil
}

// ReadMessage reads one length-prefixed frame from r and decodes it as a
// Message, rejecting frames over maxFrameSize before allocating.
func ReadMessage(r io.Reader, maxFrameSize uint32) (*Message, error) {
	buf, err := readFrame(r, maxFrameSize)
	if err != nil {
		return nil, err
	}
	return DecodeMessage(buf)
}

// WriteMessage encodes m and writes it to w as one length-prefixed frame.
func WriteMessage(w io.Writer, m *Message) error {
	buf, err := m.Encode()
	if err != nil {
		return err
	}
	return writeFrame(w, buf)
}

// EncodePayload is a convenience wrapper around MessagePayload.encode for
// callers building a Message's Payload field.
func EncodePayload(p *MessagePayload) []byte {
	return p.encode()
}

// DecodePayload is a convenience wrapper around decodeMessagePayload for
// callers reading a Message's Payload field as a MessagePayload.
func DecodePayload(buf []byte) (*MessagePayload, error) {
	return decodeMessagePayload(buf)
}
