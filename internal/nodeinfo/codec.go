package nodeinfo

import (
	"encoding/binary"
	"errors"
)

var errMalformed = errors.New("nodeinfo: malformed GatewayNodeInfo")

func putString(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

// Encode serializes g as: gatewayID, statusSeq (4B), node count (4B), then
// per node (nodeID, agency, component count + components), then topic
// count (4B) and per topic (name, nodeID-count + nodeIDs).
func (g *GatewayNodeInfo) Encode() []byte {
	buf := putString(nil, g.GatewayID)
	var seqBuf [4]byte
	binary.BigEndian.PutUint32(seqBuf[:], g.StatusSeq)
	buf = append(buf, seqBuf[:]...)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(g.Nodes)))
	buf = append(buf, countBuf[:]...)
	for _, n := range g.Nodes {
		buf = putString(buf, n.NodeID)
		buf = putString(buf, n.Agency)
		var compCount [4]byte
		binary.BigEndian.PutUint32(compCount[:], uint32(len(n.Components)))
		buf = append(buf, compCount[:]...)
		for _, c := range n.Components {
			buf = putString(buf, c)
		}
	}

	binary.BigEndian.PutUint32(countBuf[:], uint32(len(g.Topics)))
	buf = append(buf, countBuf[:]...)
	for topic, ids := range g.Topics {
		buf = putString(buf, topic)
		var idCount [4]byte
		binary.BigEndian.PutUint32(idCount[:], uint32(len(ids)))
		buf = append(buf, idCount[:]...)
		for _, id := range ids {
			buf = putString(buf, id)
		}
	}
	return buf
}

type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) readString() (string, error) {
	if len(c.buf)-c.pos < 2 {
		return "", errMalformed
	}
	n := int(binary.BigEndian.Uint16(c.buf[c.pos : c.pos+2]))
	c.pos += 2
	if len(c.buf)-c.pos < n {
		return "", errMalformed
	}
	s := string(c.buf[c.pos : c.pos+n])
	c.pos += n
	return s, nil
}

func (c *cursor) readUint32() (uint32, error) {
	if len(c.buf)-c.pos < 4 {
		return 0, errMalformed
	}
	v := binary.BigEndian.Uint32(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return v, nil
}

// Decode parses a GatewayNodeInfo previously produced by Encode.
func Decode(buf []byte) (*GatewayNodeInfo, error) {
	c := &cursor{buf: buf}
	g := &GatewayNodeInfo{Nodes: map[string]Node{}, Topics: map[string][]string{}}

	gatewayID, err := c.readString()
	if err != nil {
		return nil, err
	}
	g.GatewayID = gatewayID

	seq, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	g.StatusSeq = seq

	nodeCount, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nodeCount; i++ {
		nodeID, err := c.readString()
		if err != nil {
			return nil, err
		}
		agency, err := c.readString()
		if err != nil {
			return nil, err
		}
		compCount, err := c.readUint32()
		if err != nil {
			return nil, err
		}
		components := make([]string, 0, compCount)
		for j := uint32(0); j < compCount; j++ {
			comp, err := c.readString()
			if err != nil {
				return nil, err
			}
			components = append(components, comp)
		}
		g.Nodes[nodeID] = Node{NodeID: nodeID, Agency: agency, Components: components}
	}

	topicCount, err := c.readUint32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < topicCount; i++ {
		topic, err := c.readString()
		if err != nil {
			return nil, err
		}
		idCount, err := c.readUint32()
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, idCount)
		for j := uint32(0); j < idCount; j++ {
			id, err := c.readString()
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		g.Topics[topic] = ids
	}
	return g, nil
}
