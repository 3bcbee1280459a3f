// Package config defines the gateway and front configuration structures and
// their YAML loading/validation, mirroring how the rest of the domain stack
// configures long-lived services.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"
)

// GatewayConfig is the root configuration for a gatewayd process.
type GatewayConfig struct {
	Version              int           `yaml:"version" validate:"required,eq=1"`
	GatewayID            string        `yaml:"gateway_id" validate:"required"`
	Agency               string        `yaml:"agency" validate:"required"`
	ListenIP             string        `yaml:"listen_ip" validate:"required,ip"`
	ListenPort           int           `yaml:"listen_port" validate:"required,min=1,max=65535"`
	RPCListen            string        `yaml:"rpc_listen" validate:"required,hostname_port"`
	ThreadPoolSize       int           `yaml:"thread_pool_size" validate:"omitempty,min=1"`
	MaxAllowedMsgSize    int           `yaml:"max_allowed_msg_size" validate:"omitempty,min=1"`
	ReconnectPeriodMs    int           `yaml:"reconnect_period_ms" validate:"omitempty,min=1"`
	RouterSyncPeriodMs   int           `yaml:"router_sync_period_ms" validate:"omitempty,min=1"`
	NodeInfoSyncPeriodMs int           `yaml:"node_info_sync_period_ms" validate:"omitempty,min=1"`
	ForwardTimeoutMs     int           `yaml:"forward_timeout_ms" validate:"omitempty,min=1"`
	UnreachableDistance  int           `yaml:"unreachable_distance" validate:"omitempty,min=1"`
	HoldingQueueTTLMs    int           `yaml:"holding_queue_ttl_ms" validate:"omitempty,min=1"`
	HealthCheckPeriodMs  int           `yaml:"health_check_period_ms" validate:"omitempty,min=1"`
	PeerFile             string        `yaml:"peer_file" validate:"required"`
	TLS                  TLSConfig     `yaml:"tls"`
	Metrics              MetricsConfig `yaml:"metrics"`
	Logging              LoggingConfig `yaml:"logging"`
}

// FrontConfig is the root configuration for a frontd process.
type FrontConfig struct {
	Version           int           `yaml:"version" validate:"required,eq=1"`
	NodeID            string        `yaml:"node_id" validate:"required"`
	Agency            string        `yaml:"agency" validate:"required"`
	ThreadPoolSize    int           `yaml:"thread_pool_size" validate:"omitempty,min=1"`
	SelfEndpoint      string        `yaml:"self_endpoint" validate:"required"`
	Mode              string        `yaml:"mode" validate:"required,oneof=air pro"`
	GatewayGrpcTarget string        `yaml:"gateway_grpc_target" validate:"required_if=Mode pro"`
	KeepAlivePeriodMs int           `yaml:"keep_alive_period_ms" validate:"omitempty,min=1"`
	HoldingQueueTTLMs int           `yaml:"holding_queue_ttl_ms" validate:"omitempty,min=1"`
	Components        []string      `yaml:"components"`
	TLS               TLSConfig     `yaml:"tls"`
	Metrics           MetricsConfig `yaml:"metrics"`
	Logging           LoggingConfig `yaml:"logging"`
}

// TLSConfig names the optional TLS material a peer-service or gRPC listener
// uses. Left zero-valued, the listener runs in plaintext.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// Load builds a *tls.Config from c's file paths, or returns (nil, nil) if
// TLS is disabled. CAFile is optional; when set, it pins the peer
// certificate pool instead of trusting the system roots.
func (c TLSConfig) Load() (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load tls keypair: %w", err)
	}
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read tls ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("parse tls ca file %s: no certificates found", c.CAFile)
		}
		cfg.RootCAs = pool
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// LoggingConfig configures the process's file-backed logger.
type LoggingConfig struct {
	File  string `yaml:"file" validate:"required"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// PeerList is the JSON document a gateway's peer file holds: a flat list of
// "host:port" endpoints.
type PeerList struct {
	Nodes []string `json:"nodes"`
}

// DefaultGatewayConfig returns a GatewayConfig with the defaults named
// throughout the component design: a 3s router-sync period, an
// unreachableDistance of 16, and a 5s reconnect loop.
func DefaultGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		Version:              1,
		ListenIP:             "0.0.0.0",
		ListenPort:           30300,
		RPCListen:            "127.0.0.1:30301",
		ThreadPoolSize:       8,
		MaxAllowedMsgSize:    100 << 20,
		ReconnectPeriodMs:    int(5 * time.Second / time.Millisecond),
		RouterSyncPeriodMs:   int(3 * time.Second / time.Millisecond),
		NodeInfoSyncPeriodMs: int(3 * time.Second / time.Millisecond),
		ForwardTimeoutMs:     int(5 * time.Second / time.Millisecond),
		UnreachableDistance:  16,
		HoldingQueueTTLMs:    int(30 * time.Minute / time.Millisecond),
		HealthCheckPeriodMs:  int(10 * time.Second / time.Millisecond),
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9901",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultFrontConfig returns a FrontConfig with the defaults named
// throughout the component design: a 30 minute holding-queue TTL and AIR
// mode (in-process) transport.
func DefaultFrontConfig() *FrontConfig {
	return &FrontConfig{
		Version:           1,
		ThreadPoolSize:    4,
		Mode:              "air",
		KeepAlivePeriodMs: int(10 * time.Second / time.Millisecond),
		HoldingQueueTTLMs: int(30 * time.Minute / time.Millisecond),
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9902",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ReconnectPeriod returns ReconnectPeriodMs as a time.Duration.
func (c *GatewayConfig) ReconnectPeriod() time.Duration {
	return time.Duration(c.ReconnectPeriodMs) * time.Millisecond
}

// RouterSyncPeriod returns RouterSyncPeriodMs as a time.Duration.
func (c *GatewayConfig) RouterSyncPeriod() time.Duration {
	return time.Duration(c.RouterSyncPeriodMs) * time.Millisecond
}

// NodeInfoSyncPeriod returns NodeInfoSyncPeriodMs as a time.Duration.
func (c *GatewayConfig) NodeInfoSyncPeriod() time.Duration {
	return time.Duration(c.NodeInfoSyncPeriodMs) * time.Millisecond
}

// ForwardTimeout returns ForwardTimeoutMs as a time.Duration.
func (c *GatewayConfig) ForwardTimeout() time.Duration {
	return time.Duration(c.ForwardTimeoutMs) * time.Millisecond
}

// HoldingQueueTTL returns HoldingQueueTTLMs as a time.Duration.
func (c *GatewayConfig) HoldingQueueTTL() time.Duration {
	return time.Duration(c.HoldingQueueTTLMs) * time.Millisecond
}

// HealthCheckPeriod returns HealthCheckPeriodMs as a time.Duration.
func (c *GatewayConfig) HealthCheckPeriod() time.Duration {
	return time.Duration(c.HealthCheckPeriodMs) * time.Millisecond
}

// KeepAlivePeriod returns KeepAlivePeriodMs as a time.Duration.
func (c *FrontConfig) KeepAlivePeriod() time.Duration {
	return time.Duration(c.KeepAlivePeriodMs) * time.Millisecond
}

// HoldingQueueTTL returns HoldingQueueTTLMs as a time.Duration.
func (c *FrontConfig) HoldingQueueTTL() time.Duration {
	return time.Duration(c.HoldingQueueTTLMs) * time.Millisecond
}
