package callback

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcmesh/fabric/pkg/wire"
)

func TestCompleteInvokesRegisteredCallback(t *testing.T) {
	m := NewManager()
	got := make(chan *wire.MessagePayload, 1)
	m.Register("trace-1", time.Second, func(p *wire.MessagePayload, err error) {
		assert.NoError(t, err)
		got <- p
	})

	payload := &wire.MessagePayload{TraceID: "trace-1", Data: []byte("resp")}
	require.True(t, m.Complete("trace-1", payload))

	select {
	case p := <-got:
		assert.Equal(t, payload, p)
	case <-time.After(time.Second):
		t.Fatal("callback never invoked")
	}
	assert.Equal(t, 0, m.Pending())
}

func TestCompleteIsOneShot(t *testing.T) {
	m := NewManager()
	calls := 0
	m.Register("trace-1", time.Second, func(p *wire.MessagePayload, err error) { calls++ })

	assert.True(t, m.Complete("trace-1", &wire.MessagePayload{}))
	assert.False(t, m.Complete("trace-1", &wire.MessagePayload{}))
	assert.Equal(t, 1, calls)
}

func TestTimeoutFiresWhenNoResponseArrives(t *testing.T) {
	m := NewManager()
	done := make(chan error, 1)
	m.Register("trace-1", 20*time.Millisecond, func(p *wire.MessagePayload, err error) { done <- err })

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrTimeout)
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func TestCompleteAfterTimeoutIsNoop(t *testing.T) {
	m := NewManager()
	done := make(chan error, 1)
	m.Register("trace-1", 10*time.Millisecond, func(p *wire.MessagePayload, err error) { done <- err })

	<-done
	assert.False(t, m.Complete("trace-1", &wire.MessagePayload{}))
}

func TestFailInvokesWithGivenError(t *testing.T) {
	m := NewManager()
	boom := errors.New("boom")
	got := make(chan error, 1)
	m.Register("trace-1", time.Second, func(p *wire.MessagePayload, err error) { got <- err })

	require.True(t, m.Fail("trace-1", boom))
	assert.ErrorIs(t, <-got, boom)
}

func TestDrainWithErrorCompletesEveryPending(t *testing.T) {
	m := NewManager()
	n := 5
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		m.Register(string(rune('a'+i)), time.Minute, func(p *wire.MessagePayload, err error) { results <- err })
	}
	require.Equal(t, n, m.Pending())

	shutdown := errors.New("shutting down")
	m.DrainWithError(shutdown)

	for i := 0; i < n; i++ {
		assert.ErrorIs(t, <-results, shutdown)
	}
	assert.Equal(t, 0, m.Pending())
}
