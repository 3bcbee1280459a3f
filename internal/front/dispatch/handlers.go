// Package dispatch implements the front-side topic/component handler
// maps and pop/peek holding queues of §4.9.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/ppcmesh/fabric/pkg/wire"
)

// Received bundles a delivered message with the RouteInfo it arrived
// with, the shape every Handler and queued entry carries.
type Received struct {
	RouteInfo *wire.RouteInfo
	Payload   *wire.MessagePayload
}

// Handler processes one delivered message. respond, when non-nil, sends a
// response back to the message's source node by byNode routing. The Front
// supplies it for every request it dispatches; responses are matched to
// pending callbacks and never reach a Handler.
type Handler func(msg Received, respond func(data []byte) error)

// Table indexes topic and component handlers and the per-topic queue used
// when neither exists (§4.9 step 3).
type Table struct {
	mu      sync.Mutex
	byTopic map[string]Handler
	byComp  map[string]Handler
	queues  map[string]*topicQueue
}

type topicQueue struct {
	items []Received
	cond  *sync.Cond
}

// NewTable builds an empty handler table.
func NewTable() *Table {
	return &Table{
		byTopic: make(map[string]Handler),
		byComp:  make(map[string]Handler),
		queues:  make(map[string]*topicQueue),
	}
}

// RegisterTopic binds handler under topic, replacing any existing one.
func (t *Table) RegisterTopic(topic string, handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byTopic[topic] = handler
}

// RegisterComponent binds handler under componentType, replacing any
// existing one.
func (t *Table) RegisterComponent(componentType string, handler Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byComp[componentType] = handler
}

// Dispatch implements §4.9's three-step lookup: topic handler, then
// component handler, then fall back to the topic's holding queue.
// Returns true if a handler ran synchronously (the message was not
// queued).
func (t *Table) Dispatch(msg Received, respond func(data []byte) error) bool {
	t.mu.Lock()
	h, ok := t.byTopic[msg.RouteInfo.Topic]
	if !ok {
		h, ok = t.byComp[msg.RouteInfo.ComponentType]
	}
	t.mu.Unlock()

	if ok {
		h(msg, respond)
		return true
	}
	t.enqueue(msg.RouteInfo.Topic, msg)
	return false
}

func (t *Table) queueFor(topic string) *topicQueue {
	t.mu.Lock()
	defer t.mu.Unlock()
	q, ok := t.queues[topic]
	if !ok {
		q = &topicQueue{cond: sync.NewCond(&sync.Mutex{})}
		t.queues[topic] = q
	}
	return q
}

func (t *Table) enqueue(topic string, msg Received) {
	q := t.queueFor(topic)
	q.cond.L.Lock()
	q.items = append(q.items, msg)
	q.cond.L.Unlock()
	q.cond.Broadcast()
}

// Peek returns the oldest queued message for topic without removing it,
// or false if the queue is empty.
func (t *Table) Peek(topic string) (Received, bool) {
	q := t.queueFor(topic)
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	if len(q.items) == 0 {
		return Received{}, false
	}
	return q.items[0], true
}

// Pop removes and returns the oldest queued message for topic, blocking
// up to timeout if the queue is currently empty. ctx cancellation ends
// the wait early.
func (t *Table) Pop(ctx context.Context, topic string, timeout time.Duration) (Received, error) {
	q := t.queueFor(topic)

	deadline := time.Now().Add(timeout)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-time.After(time.Until(deadline)):
		case <-ctx.Done():
		case <-done:
			return
		}
		q.cond.Broadcast()
	}()

	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	for len(q.items) == 0 {
		if ctx.Err() != nil {
			return Received{}, ctx.Err()
		}
		if !time.Now().Before(deadline) {
			return Received{}, ErrPopTimeout
		}
		q.cond.Wait()
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, nil
}

// ErrPopTimeout is returned by Pop when no message arrives before
// timeout elapses.
var ErrPopTimeout = popTimeoutError{}

type popTimeoutError struct{}

func (popTimeoutError) Error() string { return "dispatch: pop timed out" }
