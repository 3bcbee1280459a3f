package wire

// headerVersion is the version every sender in this module writes into
// MessageHeader.Version. decodeHeader reads the field but does not check it.
const headerVersion uint16 = 1

// unreachableDistance is the default hop limit, equal to the default
// unreachable_distance in pkg/config. Nothing in this package uses it: the
// routing table and gatewaycore's ttl check (which drops a frame whose ttl
// reaches the limit) both use the configured value.
const unreachableDistance = 16

// MessageHeader is the fixed envelope every gateway-to-gateway frame opens
// with. RouteInfo is only present when PacketType.hasRouteInfo() is true.
type MessageHeader struct {
	Version    uint16
	PacketType PacketType
	TTL        uint16
	Ext        uint16
	TraceID    string
	SrcGwNode  []byte
	DstGwNode  []byte
	RouteInfo  *RouteInfo
}

// RouteType resolves the routing policy carried in Ext.
func (h *MessageHeader) RouteType() (RouteType, error) {
	return routeTypeFromExt(h.Ext)
}

// IsResponse reports whether the response bit is set.
func (h *MessageHeader) IsResponse() bool { return isResponse(h.Ext) }

// SetRouteType encodes t (and the response flag) into Ext.
func (h *MessageHeader) SetRouteType(t RouteType, response bool) {
	h.Ext = extForRouteType(t, response)
}

func (h *MessageHeader) encode(e *encoder) {
	e.writeUint16(h.Version)
	e.writeUint16(uint16(h.PacketType))
	e.writeUint16(h.TTL)
	e.writeUint16(h.Ext)
	e.writePrefixed([]byte(h.TraceID))
	e.writePrefixed(h.SrcGwNode)
	e.writePrefixed(h.DstGwNode)
	if h.PacketType.hasRouteInfo() {
		ri := h.RouteInfo
		if ri == nil {
			ri = &RouteInfo{}
		}
		ri.encode(e)
	}
}

func decodeHeader(d *decoder) (*MessageHeader, error) {
	h := &MessageHeader{}
	h.Version = d.readUint16()
	h.PacketType = PacketType(d.readUint16())
	h.TTL = d.readUint16()
	h.Ext = d.readUint16()
	h.TraceID = string(d.readPrefixed())
	h.SrcGwNode = cloneBytes(d.readPrefixed())
	h.DstGwNode = cloneBytes(d.readPrefixed())
	if d.err != nil {
		return nil, d.err
	}
	switch h.PacketType {
	case PacketP2PMessage, PacketBroadcastMessage, PacketRouterTableSyncSeq, PacketRouterTableResp,
		PacketRouterTableReq, PacketSyncNodeSeq, PacketRequestNodeStatus, PacketResponseNodeStatus:
	default:
		return nil, ErrUnknownPacketType
	}
	if h.PacketType.hasRouteInfo() {
		ri := &RouteInfo{}
		ri.decode(d)
		if d.err != nil {
			return nil, d.err
		}
		h.RouteInfo = ri
	}
	return h, nil
}
