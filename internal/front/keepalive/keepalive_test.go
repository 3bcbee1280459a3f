package keepalive

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ppcmesh/fabric/internal/nodeinfo"
)

type countingRegisterer struct {
	calls atomic.Int32
}

func (r *countingRegisterer) RegisterNodeInfo(ctx context.Context, node nodeinfo.Node) error {
	r.calls.Add(1)
	return nil
}

func TestLoopReRegistersPeriodically(t *testing.T) {
	reg := &countingRegisterer{}
	l := New(reg, nodeinfo.Node{NodeID: "node-a"}, 10*time.Millisecond, nil)
	l.Start()
	defer l.Stop()

	time.Sleep(55 * time.Millisecond)
	assert.GreaterOrEqual(t, reg.calls.Load(), int32(3))
}

func TestStopDrainsLoop(t *testing.T) {
	reg := &countingRegisterer{}
	l := New(reg, nodeinfo.Node{NodeID: "node-a"}, 5*time.Millisecond, nil)
	l.Start()
	time.Sleep(15 * time.Millisecond)
	assert.NoError(t, l.Stop())

	seen := reg.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, seen, reg.calls.Load(), "no more registrations after Stop")
}
