package localrouter

import (
	"sync"
	"time"

	"github.com/ppcmesh/fabric/pkg/wire"
)

// errHoldingTimeout is the error passed to every queued message's Ack when
// its topic's holding queue's TTL expires unclaimed.
var errHoldingTimeout = timeoutError{}

type timeoutError struct{}

func (timeoutError) Error() string { return "localrouter: holding queue timed out" }

// held is one message waiting for a topic subscriber to appear.
type held struct {
	routeInfo *wire.RouteInfo
	payload   []byte
	ack       Ack
}

// HoldingCache holds messages addressed to topics with no current local
// subscriber, releasing them either when a subscriber registers or when
// the topic's TTL timer expires. It is the topic-keyed queue referenced in
// §4.5 and §4.9.
type HoldingCache struct {
	ttl time.Duration

	mu     sync.Mutex
	queues map[string]*topicQueue
}

type topicQueue struct {
	messages []held
	timer    *time.Timer
}

// NewHoldingCache builds a cache whose per-topic queues expire after ttl.
func NewHoldingCache(ttl time.Duration) *HoldingCache {
	return &HoldingCache{ttl: ttl, queues: make(map[string]*topicQueue)}
}

// enqueue appends (routeInfo, payload, ack) to topic's queue, starting its
// TTL timer on first insertion.
func (c *HoldingCache) enqueue(topic string, ri *wire.RouteInfo, payload []byte, ack Ack) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, exists := c.queues[topic]
	if !exists {
		q = &topicQueue{}
		c.queues[topic] = q
		q.timer = time.AfterFunc(c.ttl, func() { c.expire(topic) })
	}
	q.messages = append(q.messages, held{routeInfo: ri, payload: payload, ack: ack})
}

// expire fires every queued ack for topic with errHoldingTimeout and drops
// the queue.
func (c *HoldingCache) expire(topic string) {
	c.mu.Lock()
	q, exists := c.queues[topic]
	if !exists {
		c.mu.Unlock()
		return
	}
	delete(c.queues, topic)
	c.mu.Unlock()

	for _, m := range q.messages {
		if m.ack != nil {
			m.ack(errHoldingTimeout)
		}
	}
}

// Drain cancels topic's TTL timer (if any) and returns its queued
// messages, removing the queue. Callers use this when a subscriber
// registers for the topic and the held messages should be redelivered
// instead of timing out.
func (c *HoldingCache) Drain(topic string) []held {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, exists := c.queues[topic]
	if !exists {
		return nil
	}
	q.timer.Stop()
	delete(c.queues, topic)
	return q.messages
}

// Dispatcher combines a Registry with an optional HoldingCache to answer
// the §4.5 dispatch policy end to end.
type Dispatcher struct {
	registry *Registry
	holding  *HoldingCache
}

// NewDispatcher builds a Dispatcher over registry. holding may be nil, in
// which case messages with no local receiver are never queued.
func NewDispatcher(registry *Registry, holding *HoldingCache) *Dispatcher {
	return &Dispatcher{registry: registry, holding: holding}
}

// Registry exposes the dispatcher's underlying registry, e.g. so callers
// can Register/Unregister fronts.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// RedeliverHeld drains topic's holding queue and re-dispatches each held
// message with holding=false, per §4.5's registerTopic behavior.
func (d *Dispatcher) RedeliverHeld(topic string) {
	if d.holding == nil {
		return
	}
	recipients := d.registry.byTopic(topic, "")
	if len(recipients) == 0 {
		return
	}
	for _, m := range d.holding.Drain(topic) {
		for _, reg := range recipients {
			deliverErr := reg.client.Deliver(m.routeInfo, m.payload)
			if m.ack != nil {
				m.ack(deliverErr)
			}
		}
	}
}
