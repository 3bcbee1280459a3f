package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcmesh/fabric/pkg/wire"
)

func TestDispatchPrefersTopicHandler(t *testing.T) {
	tbl := NewTable()
	var got Received
	tbl.RegisterTopic("t", func(msg Received, respond func([]byte) error) { got = msg })

	msg := Received{RouteInfo: &wire.RouteInfo{Topic: "t", ComponentType: "psi"}, Payload: &wire.MessagePayload{Data: []byte("x")}}
	handled := tbl.Dispatch(msg, nil)
	assert.True(t, handled)
	assert.Equal(t, msg, got)
}

func TestDispatchFallsBackToComponentHandler(t *testing.T) {
	tbl := NewTable()
	called := false
	tbl.RegisterComponent("psi", func(msg Received, respond func([]byte) error) { called = true })

	handled := tbl.Dispatch(Received{RouteInfo: &wire.RouteInfo{ComponentType: "psi"}}, nil)
	assert.True(t, handled)
	assert.True(t, called)
}

func TestDispatchQueuesOnMiss(t *testing.T) {
	tbl := NewTable()
	msg := Received{RouteInfo: &wire.RouteInfo{Topic: "t"}, Payload: &wire.MessagePayload{Data: []byte("queued")}}
	handled := tbl.Dispatch(msg, nil)
	assert.False(t, handled)

	got, ok := tbl.Peek("t")
	require.True(t, ok)
	assert.Equal(t, msg, got)
}

func TestPopReturnsQueuedMessage(t *testing.T) {
	tbl := NewTable()
	msg := Received{RouteInfo: &wire.RouteInfo{Topic: "t"}, Payload: &wire.MessagePayload{Data: []byte("queued")}}
	tbl.Dispatch(msg, nil)

	got, err := tbl.Pop(context.Background(), "t", time.Second)
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	_, ok := tbl.Peek("t")
	assert.False(t, ok, "Pop must remove the message, unlike Peek")
}

func TestPopBlocksUntilMessageArrives(t *testing.T) {
	tbl := NewTable()
	done := make(chan Received, 1)
	go func() {
		got, err := tbl.Pop(context.Background(), "t", time.Second)
		if err == nil {
			done <- got
		}
	}()

	time.Sleep(20 * time.Millisecond)
	msg := Received{RouteInfo: &wire.RouteInfo{Topic: "t"}, Payload: &wire.MessagePayload{Data: []byte("late")}}
	tbl.Dispatch(msg, nil)

	select {
	case got := <-done:
		assert.Equal(t, msg, got)
	case <-time.After(time.Second):
		t.Fatal("Pop never unblocked")
	}
}

func TestPopTimesOutWhenQueueStaysEmpty(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Pop(context.Background(), "never", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrPopTimeout)
}
