package routetable

import (
	"encoding/binary"
	"errors"
)

// errMalformedSnapshot is returned by decodeSnapshot when payload is
// truncated or its entry count does not match its declared length.
var errMalformedSnapshot = errors.New("routetable: malformed snapshot")

// encodeSnapshot serializes a Snapshot as: 4-byte entry count, then for
// each entry a 2-byte length-prefixed dst ID followed by a 4-byte distance.
func encodeSnapshot(snap Snapshot) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(snap.Entries)))
	for _, e := range snap.Entries {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(e.Dst)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, e.Dst...)
		var distBuf [4]byte
		binary.BigEndian.PutUint32(distBuf[:], uint32(e.Distance))
		buf = append(buf, distBuf[:]...)
	}
	return buf
}

func decodeSnapshot(buf []byte) (Snapshot, error) {
	if len(buf) < 4 {
		return Snapshot{}, errMalformedSnapshot
	}
	count := binary.BigEndian.Uint32(buf)
	pos := 4
	snap := Snapshot{Entries: make([]SnapshotEntry, 0, count)}
	for i := uint32(0); i < count; i++ {
		if len(buf)-pos < 2 {
			return Snapshot{}, errMalformedSnapshot
		}
		dstLen := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
		pos += 2
		if len(buf)-pos < dstLen+4 {
			return Snapshot{}, errMalformedSnapshot
		}
		dst := string(buf[pos : pos+dstLen])
		pos += dstLen
		distance := int(binary.BigEndian.Uint32(buf[pos : pos+4]))
		pos += 4
		snap.Entries = append(snap.Entries, SnapshotEntry{Dst: dst, Distance: distance})
	}
	return snap, nil
}
