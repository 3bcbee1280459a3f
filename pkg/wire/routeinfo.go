package wire

// RouteInfo carries the addressing fields a gateway needs to resolve a
// message's policy-specific destination: a topic, a component type, and the
// (node, agency) pair on each side of the hop. Which fields are meaningful
// depends on the RouteType the header's ext bits select:
//
//   - byNode: DstNode required.
//   - byAgency: DstInst required.
//   - byComponent: DstInst and ComponentType required.
//   - byTopic: Topic required.
//   - broadcast: DstNode cleared.
type RouteInfo struct {
	ComponentType string
	SrcNode       []byte
	SrcInst       string
	DstNode       []byte
	DstInst       string
	Topic         string
}

func (r *RouteInfo) encode(e *encoder) {
	e.writePrefixed([]byte(r.ComponentType))
	e.writePrefixed(r.SrcNode)
	e.writePrefixed([]byte(r.SrcInst))
	e.writePrefixed(r.DstNode)
	e.writePrefixed([]byte(r.DstInst))
	e.writePrefixed([]byte(r.Topic))
}

func (r *RouteInfo) decode(d *decoder) {
	r.ComponentType = string(d.readPrefixed())
	r.SrcNode = cloneBytes(d.readPrefixed())
	r.SrcInst = string(d.readPrefixed())
	r.DstNode = cloneBytes(d.readPrefixed())
	r.DstInst = string(d.readPrefixed())
	r.Topic = string(d.readPrefixed())
}

// validateForRoute checks that RouteInfo carries the fields its RouteType
// requires, per the invariant table in §4.2.
func (r *RouteInfo) validateForRoute(t RouteType, broadcast bool) error {
	switch {
	case broadcast:
		if len(r.DstNode) != 0 {
			return ErrMalformedMessage
		}
		return nil
	case t == RouteByNodeID:
		if len(r.DstNode) == 0 {
			return ErrMalformedMessage
		}
	case t == RouteByAgency:
		if r.DstInst == "" {
			return ErrMalformedMessage
		}
	case t == RouteByComponent:
		if r.DstInst == "" || r.ComponentType == "" {
			return ErrMalformedMessage
		}
	case t == RouteByTopic:
		if r.Topic == "" {
			return ErrMalformedMessage
		}
	}
	return nil
}

func cloneBytes(p []byte) []byte {
	if p == nil {
		return nil
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out
}
