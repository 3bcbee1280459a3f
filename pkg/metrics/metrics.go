// Package metrics exposes the Prometheus collectors the gateway and front
// planes update as they run, and a small HTTP server to publish them,
// grounded on the observability server pattern used elsewhere in the
// domain stack (one Registry per process, one /metrics listener).
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gateway holds the collectors a gatewaycore.Gateway updates: peer-session
// count, routing-table size, gossip rounds, and dispatch outcomes.
type Gateway struct {
	PeerSessionsActive  prometheus.Gauge
	RoutingTableEntries prometheus.Gauge
	GossipRoundsTotal   *prometheus.CounterVec // label "kind": route|nodeinfo
	DispatchOutcomes    *prometheus.CounterVec // label "outcome": delivered|held|dropped|error
}

// NewGateway builds and registers a Gateway's collectors against reg.
func NewGateway(reg prometheus.Registerer) *Gateway {
	g := &Gateway{
		PeerSessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fabric_gateway",
			Name:      "peer_sessions_active",
			Help:      "Number of currently connected peer gateway sessions.",
		}),
		RoutingTableEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fabric_gateway",
			Name:      "routing_table_entries",
			Help:      "Number of nodes currently known to the routing table.",
		}),
		GossipRoundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fabric_gateway",
			Name:      "gossip_rounds_total",
			Help:      "Total number of gossip sync rounds completed, by kind.",
		}, []string{"kind"}),
		DispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fabric_gateway",
			Name:      "dispatch_outcomes_total",
			Help:      "Total number of local dispatch attempts, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(g.PeerSessionsActive, g.RoutingTableEntries, g.GossipRoundsTotal, g.DispatchOutcomes)
	return g
}

// Front holds the collectors internal/front updates: pending callbacks,
// callback timeouts, and message send/receive counts.
type Front struct {
	CallbacksPending      prometheus.Gauge
	CallbackTimeoutsTotal prometheus.Counter
	MessagesSentTotal     *prometheus.CounterVec // label "result": ok|error
	MessagesReceivedTotal *prometheus.CounterVec // label "kind": request|response
}

// NewFront builds and registers a Front's collectors against reg.
func NewFront(reg prometheus.Registerer) *Front {
	f := &Front{
		CallbacksPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fabric_front",
			Name:      "callbacks_pending",
			Help:      "Number of asyncSendMessage calls awaiting a response.",
		}),
		CallbackTimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fabric_front",
			Name:      "callback_timeouts_total",
			Help:      "Total number of pending callbacks that timed out.",
		}),
		MessagesSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fabric_front",
			Name:      "messages_sent_total",
			Help:      "Total number of asyncSendMessage attempts, by result.",
		}, []string{"result"}),
		MessagesReceivedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fabric_front",
			Name:      "messages_received_total",
			Help:      "Total number of messages delivered from the gateway, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(f.CallbacksPending, f.CallbackTimeoutsTotal, f.MessagesSentTotal, f.MessagesReceivedTotal)
	return f
}

// Serve starts an HTTP server exposing reg's collectors at /metrics on
// addr. It returns immediately; the caller stops the server with the
// returned handle's Shutdown.
func Serve(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go srv.ListenAndServe()
	return srv
}

// Shutdown gracefully stops a server started with Serve.
func Shutdown(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
