// Package callback implements the front's per-traceID response
// correlation (§4.8): asyncSendMessage registers a callback under a fresh
// traceID with a timeout; onReceiveMessage's response leg, or the
// timeout, pops it and invokes it exactly once.
package callback

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppcmesh/fabric/pkg/wire"
)

// ErrTimeout is delivered to a callback whose timer fired before a
// response arrived.
var ErrTimeout = errors.New("callback: timeout")

// Func is invoked exactly once per registered traceID, either with the
// decoded response payload (err == nil) or with an error (timeout,
// send failure, or system shutdown).
type Func func(payload *wire.MessagePayload, err error)

// entry bundles a pending callback with the timer that will time it out,
// so pop-then-invoke can cancel that timer atomically with ownership
// transfer.
type entry struct {
	fn    Func
	timer *time.Timer
}

// Manager indexes pending callbacks by traceID under a single lock, per
// §5's "any Callback has at most one owner at any time" invariant: pop
// removes an entry from the map before the caller ever touches it, so two
// goroutines racing to complete the same traceID never both succeed.
type Manager struct {
	mu      sync.Mutex
	pending map[string]*entry
	log     zerolog.Logger
}

// NewManager builds an empty callback table. Trace-level lifecycle events
// (register, complete, timeout, drain) are logged as structured events
// alongside whatever the owning Front writes to its persist.Logger; this
// does not replace that file log, it supplements it for traceID-keyed
// correlation.
func NewManager() *Manager {
	return &Manager{
		pending: make(map[string]*entry),
		log:     zerolog.New(os.Stdout).With().Timestamp().Str("component", "callback").Logger(),
	}
}

// Register binds fn to traceID for at most timeout before it is invoked
// with ErrTimeout. Callers must not reuse a traceID still pending.
func (m *Manager) Register(traceID string, timeout time.Duration, fn Func) {
	e := &entry{fn: fn}
	e.timer = time.AfterFunc(timeout, func() { m.fireTimeout(traceID) })

	m.mu.Lock()
	m.pending[traceID] = e
	m.mu.Unlock()
	m.log.Debug().Str("trace_id", traceID).Dur("timeout", timeout).Msg("callback registered")
}

func (m *Manager) fireTimeout(traceID string) {
	e := m.pop(traceID)
	if e == nil {
		return
	}
	m.log.Warn().Str("trace_id", traceID).Msg("callback timed out")
	e.fn(nil, ErrTimeout)
}

// pop removes and returns traceID's entry, stopping its timer, or nil if
// none is pending (already completed or never registered).
func (m *Manager) pop(traceID string) *entry {
	m.mu.Lock()
	e, ok := m.pending[traceID]
	if ok {
		delete(m.pending, traceID)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	e.timer.Stop()
	return e
}

// Complete pops traceID's callback, if still pending, and invokes it with
// payload. Returns false if no callback was pending (late or duplicate
// response, or one that already timed out).
func (m *Manager) Complete(traceID string, payload *wire.MessagePayload) bool {
	e := m.pop(traceID)
	if e == nil {
		m.log.Warn().Str("trace_id", traceID).Msg("response for unknown or expired callback")
		return false
	}
	m.log.Debug().Str("trace_id", traceID).Msg("callback completed")
	e.fn(payload, nil)
	return true
}

// Fail pops traceID's callback, if still pending, and invokes it with err.
func (m *Manager) Fail(traceID string, err error) bool {
	e := m.pop(traceID)
	if e == nil {
		return false
	}
	m.log.Debug().Str("trace_id", traceID).Err(err).Msg("callback failed")
	e.fn(nil, err)
	return true
}

// DrainWithError completes every still-pending callback with err, for
// process shutdown (§5: "in-flight callbacks are allowed to complete with
// a system-shutdown error only if the higher-level lifecycle requests
// it").
func (m *Manager) DrainWithError(err error) {
	m.mu.Lock()
	pending := m.pending
	m.pending = make(map[string]*entry)
	m.mu.Unlock()

	m.log.Info().Int("count", len(pending)).Err(err).Msg("draining pending callbacks")
	for _, e := range pending {
		e.timer.Stop()
		e.fn(nil, err)
	}
}

// Pending reports how many callbacks currently await a response, useful
// for diagnostics.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
