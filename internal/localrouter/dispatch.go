package localrouter

import (
	"errors"

	"github.com/ppcmesh/fabric/pkg/wire"
)

// ErrNoReceiver is returned by Dispatch when chooseReceiver finds nothing
// local and the message was not eligible for holding.
var ErrNoReceiver = errors.New("localrouter: no local receiver")

// ErrUnknownPolicy is returned when a message carries a route policy this
// dispatcher does not recognize, indicating codec corruption rather than a
// legitimate routing miss.
var ErrUnknownPolicy = errors.New("localrouter: unknown route policy")

// Ack is invoked exactly once per front a message was delivered to (or
// attempted against), carrying nil on success or the delivery error.
type Ack func(err error)

// chooseReceiver resolves the set of local registrations a message should
// be delivered to, per the per-policy rules in §4.5. A non-empty DstInst
// that does not match this gateway's own agency short-circuits to no
// receivers regardless of policy, so remote-agency traffic falls through
// to the peer router instead of matching a same-named local front.
func (d *Dispatcher) chooseReceiver(rt wire.RouteType, ri *wire.RouteInfo, broadcast bool) ([]*registration, error) {
	if ri.DstInst != "" && ri.DstInst != d.registry.Agency() {
		return nil, nil
	}
	switch rt {
	case wire.RouteByNodeID:
		reg, ok := d.registry.byNodeID(string(ri.DstNode))
		if !ok {
			return nil, nil
		}
		return []*registration{reg}, nil

	case wire.RouteByComponent:
		matches := d.registry.byComponent(ri.ComponentType)
		if len(matches) == 0 {
			return nil, nil
		}
		if broadcast {
			return matches, nil
		}
		return matches[:1], nil

	case wire.RouteByAgency:
		all := d.registry.all()
		if len(all) == 0 {
			return nil, nil
		}
		if broadcast {
			return all, nil
		}
		return all[:1], nil

	case wire.RouteByTopic:
		return d.registry.byTopic(ri.Topic, string(ri.SrcNode)), nil

	default:
		return nil, ErrUnknownPolicy
	}
}

// Dispatch delivers payload to the local fronts chooseReceiver selects for
// the message described by rt/ri, invoking ack once per delivery attempt.
// When holding is true, the policy is byTopic, and a holding cache is
// configured, a miss is queued instead of failing outright. Dispatch
// reports whether at least one receiver was found (delivered or queued);
// false means the caller should treat this as "no gateway found".
func (d *Dispatcher) Dispatch(rt wire.RouteType, ri *wire.RouteInfo, broadcast bool, holding bool, payload []byte, ack Ack) (bool, error) {
	recipients, err := d.chooseReceiver(rt, ri, broadcast)
	if err != nil {
		return false, err
	}
	if len(recipients) > 0 {
		for _, reg := range recipients {
			err := reg.client.Deliver(ri, payload)
			if ack != nil {
				ack(err)
			}
		}
		return true, nil
	}

	if holding && rt == wire.RouteByTopic && d.holding != nil {
		d.holding.enqueue(ri.Topic, ri, payload, ack)
		return true, nil
	}

	return false, nil
}
