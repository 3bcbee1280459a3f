// Package keepalive implements §4.10's pro-mode keep-alive: periodic
// re-registration of a front's node-info with its gateway so the gateway
// notices process restarts without waiting for a TCP-level disconnect.
package keepalive

import (
	"context"
	"time"

	"github.com/ppcmesh/fabric/internal/nodeinfo"
	"github.com/ppcmesh/fabric/pkg/lifecycle"
	"github.com/ppcmesh/fabric/pkg/persist"
)

// Registerer is the subset of rpc.GatewayClient keep-alive needs.
type Registerer interface {
	RegisterNodeInfo(ctx context.Context, node nodeinfo.Node) error
}

// Loop periodically re-advertises self to gateway every period.
type Loop struct {
	gateway Registerer
	self    nodeinfo.Node
	period  time.Duration
	log     *persist.Logger
	tg      lifecycle.ThreadGroup
}

// New builds a keep-alive loop for self, re-registering against gateway
// every period. Per §4.10 this only runs in PRO mode; AIR-mode callers
// simply never Start one.
func New(gateway Registerer, self nodeinfo.Node, period time.Duration, log *persist.Logger) *Loop {
	return &Loop{gateway: gateway, self: self, period: period, log: log}
}

// Start spawns the periodic re-registration loop.
func (l *Loop) Start() {
	if err := l.tg.Add(); err != nil {
		return
	}
	go l.run()
}

// Stop drains the loop.
func (l *Loop) Stop() error {
	return l.tg.Stop()
}

func (l *Loop) run() {
	defer l.tg.Done()
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()
	for {
		select {
		case <-l.tg.StopChan():
			return
		case <-ticker.C:
			l.beat()
		}
	}
}

func (l *Loop) beat() {
	ctx, cancel := context.WithTimeout(context.Background(), l.period)
	defer cancel()
	if err := l.gateway.RegisterNodeInfo(ctx, l.self); err != nil && l.log != nil {
		l.log.Printf("WARN: keep-alive re-registration failed: %v", err)
	}
}
