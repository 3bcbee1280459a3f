// Package health implements the periodic liveness probe of §4.10: the
// gateway runs one prober per attached front (its dialed gRPC channel in
// PRO mode, via rpc.ProFrontClient), failure of which invokes an
// onUnhealthy hook — normally the front's Registry.Unregister — and
// optionally retires the probe so it never fires twice.
package health

import (
	"sync"
	"time"

	"github.com/ppcmesh/fabric/pkg/lifecycle"
	"github.com/ppcmesh/fabric/pkg/persist"
)

// Prober reports whether the handle it wraps is still reachable.
// localrouter.Client and rpc.ProFrontClient both satisfy it via their
// Healthy method.
type Prober interface {
	Healthy() bool
}

type watched struct {
	prober      Prober
	onUnhealthy func()
	removeAfter bool
}

// Checker runs one probe per registered node on a fixed interval and
// fires onUnhealthy for any that report unhealthy.
type Checker struct {
	period time.Duration
	log    *persist.Logger
	tg     lifecycle.ThreadGroup

	mu    sync.Mutex
	nodes map[string]*watched
}

// NewChecker builds a Checker that probes every registered node every
// period.
func NewChecker(period time.Duration, log *persist.Logger) *Checker {
	return &Checker{period: period, log: log, nodes: make(map[string]*watched)}
}

// Register adds nodeID to the probe set. removeAfterFire mirrors §4.10's
// "removeHandlerOnUnhealthy": if set, the probe is dropped from the set
// right after onUnhealthy runs once, so a front that never recovers is
// not probed or reported on forever.
func (c *Checker) Register(nodeID string, prober Prober, onUnhealthy func(), removeAfterFire bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[nodeID] = &watched{prober: prober, onUnhealthy: onUnhealthy, removeAfter: removeAfterFire}
}

// Unregister drops nodeID from the probe set, e.g. once its front has
// already been unregistered through some other path.
func (c *Checker) Unregister(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.nodes, nodeID)
}

// Start spawns the periodic probe loop.
func (c *Checker) Start() {
	if err := c.tg.Add(); err != nil {
		return
	}
	go c.loop()
}

// Stop drains the probe loop.
func (c *Checker) Stop() error {
	return c.tg.Stop()
}

func (c *Checker) loop() {
	defer c.tg.Done()
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-c.tg.StopChan():
			return
		case <-ticker.C:
			c.probeAll()
		}
	}
}

func (c *Checker) probeAll() {
	c.mu.Lock()
	snapshot := make(map[string]*watched, len(c.nodes))
	for id, w := range c.nodes {
		snapshot[id] = w
	}
	c.mu.Unlock()

	for id, w := range snapshot {
		if w.prober.Healthy() {
			continue
		}
		if c.log != nil {
			c.log.Printf("WARN: health probe failed for %s", id)
		}
		if w.removeAfter {
			c.Unregister(id)
		}
		w.onUnhealthy()
	}
}
