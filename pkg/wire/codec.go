// Package wire implements the gateway-to-gateway frame codec: a fixed-layout,
// big-endian, length-prefixed binary format for MessageHeader, RouteInfo, and
// the front-facing MessagePayload envelope. Every integer on the wire is
// big-endian: header integers are 2 bytes, every variable-length field is
// preceded by its own 2-byte length prefix, and each frame is preceded by a
// 4-byte length.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// maxPrefixLen is the longest field a 2-byte length prefix can describe;
// writePrefixed rejects a longer field with errPrefixTooLarge instead of
// writing a truncated prefix. The frame as a whole is bounded separately by
// the maxFrameSize passed to ReadMessage.
const maxPrefixLen = 1<<16 - 1

var errPrefixTooLarge = errors.New("wire: length prefix exceeds maximum field size")

// encoder writes fixed-layout fields to an in-memory buffer. All of its
// methods become no-ops once a write fails, mirroring the sticky-error
// Encoder/Decoder pattern the teacher uses in its own binary codec
// (encoding/marshal.go): callers write a whole object and check Err() once
// at the end instead of after every field.
type encoder struct {
	buf []byte
	err error
}

func newEncoder() *encoder {
	return &encoder{}
}

func (e *encoder) bytes() []byte { return e.buf }

func (e *encoder) Err() error { return e.err }

func (e *encoder) writeUint16(v uint16) {
	if e.err != nil {
		return
	}
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) writeUint32(v uint32) {
	if e.err != nil {
		return
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *encoder) writePrefixed(p []byte) {
	if e.err != nil {
		return
	}
	if len(p) > maxPrefixLen {
		e.err = errPrefixTooLarge
		return
	}
	e.writeUint16(uint16(len(p)))
	e.buf = append(e.buf, p...)
}

func (e *encoder) writeRaw(p []byte) {
	if e.err != nil {
		return
	}
	e.buf = append(e.buf, p...)
}

// decoder reads fixed-layout fields out of a byte slice, checking every
// length prefix against the remaining buffer before advancing, per spec
// §4.1 ("Decode must check every length prefix against remaining buffer
// length before advancing").
type decoder struct {
	buf []byte
	pos int
	err error
}

func newDecoder(buf []byte) *decoder {
	return &decoder{buf: buf}
}

func (d *decoder) Err() error { return d.err }

func (d *decoder) remaining() int { return len(d.buf) - d.pos }

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) readByte() byte {
	if d.err != nil {
		return 0
	}
	if d.remaining() < 1 {
		d.fail(ErrMalformedMessage)
		return 0
	}
	v := d.buf[d.pos]
	d.pos++
	return v
}

func (d *decoder) readUint16() uint16 {
	if d.err != nil {
		return 0
	}
	if d.remaining() < 2 {
		d.fail(ErrMalformedMessage)
		return 0
	}
	v := binary.BigEndian.Uint16(d.buf[d.pos : d.pos+2])
	d.pos += 2
	return v
}

func (d *decoder) readUint32() uint32 {
	if d.err != nil {
		return 0
	}
	if d.remaining() < 4 {
		d.fail(ErrMalformedMessage)
		return 0
	}
	v := binary.BigEndian.Uint32(d.buf[d.pos : d.pos+4])
	d.pos += 4
	return v
}

func (d *decoder) readPrefixed() []byte {
	if d.err != nil {
		return nil
	}
	n := d.readUint16()
	if d.err != nil {
		return nil
	}
	if int(n) > d.remaining() {
		d.fail(ErrMalformedMessage)
		return nil
	}
	p := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return p
}

func (d *decoder) readN(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n > d.remaining() {
		d.fail(ErrMalformedMessage)
		return nil
	}
	p := d.buf[d.pos : d.pos+n]
	d.pos += n
	return p
}

// readFrame reads exactly one length-prefixed frame (a 4-byte big-endian
// length followed by that many bytes) from r, rejecting any frame larger
// than maxFrameSize with ErrFrameTooLarge before allocating its buffer.
func readFrame(r io.Reader, maxFrameSize uint32) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxFrameSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeFrame writes payload prefixed by its 4-byte big-endian length.
func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
