package health

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	healthy atomic.Bool
}

func (p *fakeProber) Healthy() bool { return p.healthy.Load() }

func TestCheckerFiresOnUnhealthyProbe(t *testing.T) {
	c := NewChecker(10*time.Millisecond, nil)
	prober := &fakeProber{}
	prober.healthy.Store(true)
	fired := make(chan struct{}, 1)
	c.Register("node-a", prober, func() { fired <- struct{}{} }, false)
	c.Start()
	defer c.Stop()

	select {
	case <-fired:
		t.Fatal("onUnhealthy fired while prober reports healthy")
	case <-time.After(30 * time.Millisecond):
	}

	prober.healthy.Store(false)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("onUnhealthy never fired")
	}
}

func TestCheckerRemovesAfterFireWhenConfigured(t *testing.T) {
	c := NewChecker(10*time.Millisecond, nil)
	prober := &fakeProber{}
	var fires int32
	c.Register("node-a", prober, func() { atomic.AddInt32(&fires, 1) }, true)
	c.Start()
	defer c.Stop()

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&fires))

	c.mu.Lock()
	_, stillRegistered := c.nodes["node-a"]
	c.mu.Unlock()
	assert.False(t, stillRegistered)
}
