package wire

// minPayloadSize is the smallest legal encoded MessagePayload: 1 byte
// version + 2 byte seq + 2 byte (empty) traceID prefix + ... a decode below
// this size cannot contain even the fixed fields and fails immediately.
const minPayloadSize = 6

// MessagePayload is the inner envelope carried inside a Message's payload
// bytes: the front-facing request/response unit that Message merely
// transports between gateways.
type MessagePayload struct {
	Version uint8
	Seq     uint16
	TraceID string
	Ext     uint16
	Data    []byte
}

// IsResponse reports whether the response bit is set in Ext.
func (p *MessagePayload) IsResponse() bool { return isResponse(p.Ext) }

// SetResponse sets or clears the response bit in Ext, leaving any other
// bits untouched.
func (p *MessagePayload) SetResponse(response bool) {
	if response {
		p.Ext |= extResponse
	} else {
		p.Ext &^= extResponse
	}
}

func (p *MessagePayload) encode() []byte {
	e := newEncoder()
	e.buf = append(e.buf, byte(p.Version))
	e.writeUint16(p.Seq)
	e.writePrefixed([]byte(p.TraceID))
	e.writeUint16(p.Ext)
	e.writePrefixed(p.Data)
	return e.buf
}

// decodeMessagePayload decodes a MessagePayload from buf.
func decodeMessagePayload(buf []byte) (*MessagePayload, error) {
	if len(buf) < minPayloadSize {
		return nil, ErrMalformedPayload
	}
	d := newDecoder(buf)
	p := &MessagePayload{}
	p.Version = d.readByte()
	p.Seq = d.readUint16()
	p.TraceID = string(d.readPrefixed())
	p.Ext = d.readUint16()
	p.Data = cloneBytes(d.readPrefixed())
	if d.err != nil {
		return nil, ErrMalformedPayload
	}
	return p, nil
}
