package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadGatewayFileValid(t *testing.T) {
	path := writeTemp(t, "gateway.yaml", `
version: 1
gateway_id: "gw-a"
agency: "agency-a"
listen_ip: "0.0.0.0"
listen_port: 30300
peer_file: "peers.json"
logging:
  file: "gateway.log"
`)
	cfg, err := NewLoader().LoadGatewayFile(path)
	require.NoError(t, err)
	assert.Equal(t, 30300, cfg.ListenPort)
	assert.Equal(t, 16, cfg.UnreachableDistance)
}

func TestLoadGatewayFileMissingRequired(t *testing.T) {
	path := writeTemp(t, "gateway.yaml", `
version: 1
gateway_id: "gw-a"
agency: "agency-a"
listen_ip: "0.0.0.0"
listen_port: 30300
logging:
  file: "gateway.log"
`)
	_, err := NewLoader().LoadGatewayFile(path)
	assert.Error(t, err, "expected validation error for missing peer_file")
}

func TestLoadFrontFileRequiresGrpcTargetInProMode(t *testing.T) {
	path := writeTemp(t, "front.yaml", `
version: 1
node_id: "node-a"
agency: "agency-a"
self_endpoint: "127.0.0.1:30400"
mode: "pro"
logging:
  file: "front.log"
`)
	_, err := NewLoader().LoadFrontFile(path)
	assert.Error(t, err, "expected validation error for missing gateway_grpc_target in pro mode")
}

func TestLoadFrontFileAirModeDefaults(t *testing.T) {
	path := writeTemp(t, "front.yaml", `
version: 1
node_id: "node-a"
agency: "agency-a"
self_endpoint: "127.0.0.1:30400"
mode: "air"
logging:
  file: "front.log"
`)
	cfg, err := NewLoader().LoadFrontFile(path)
	require.NoError(t, err)
	assert.Greater(t, cfg.HoldingQueueTTLMs, 0)
}
