package gatewaycore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppcmesh/fabric/pkg/wire"
)

type fakeSender struct {
	attempts []string
	results  map[string]fakeResult
}

type fakeResult struct {
	payload []byte
	err     error
}

func (f *fakeSender) SendMessage(peer string, msg *wire.Message, expectAck bool) ([]byte, error) {
	f.attempts = append(f.attempts, peer)
	r, ok := f.results[peer]
	if !ok {
		return nil, errors.New("fakeSender: no result configured for " + peer)
	}
	return r.payload, r.err
}

func runSendWithRetry(t *testing.T, s sender, candidates []string) error {
	t.Helper()
	var gotErr error
	done := make(chan struct{})
	sendWithRetry(s, candidates, &wire.Message{}, time.Second, func(err error) {
		gotErr = err
		close(done)
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sendWithRetry never invoked ack")
	}
	return gotErr
}

func TestSendWithRetrySucceedsOnFirstCandidate(t *testing.T) {
	s := &fakeSender{results: map[string]fakeResult{
		"gw-a": {payload: ackOK},
	}}
	err := runSendWithRetry(t, s, []string{"gw-a", "gw-b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gw-a"}, s.attempts)
}

func TestSendWithRetryFallsThroughOnTransportError(t *testing.T) {
	s := &fakeSender{results: map[string]fakeResult{
		"gw-a": {err: errors.New("connection reset")},
		"gw-b": {payload: ackOK},
	}}
	err := runSendWithRetry(t, s, []string{"gw-a", "gw-b"})
	require.NoError(t, err)
	assert.Len(t, s.attempts, 2)
}

func TestSendWithRetryFallsThroughOnNonZeroAckCode(t *testing.T) {
	s := &fakeSender{results: map[string]fakeResult{
		"gw-a": {payload: []byte("not found")},
		"gw-b": {payload: ackOK},
	}}
	err := runSendWithRetry(t, s, []string{"gw-a", "gw-b"})
	require.NoError(t, err)
}

func TestSendWithRetryExhaustionReportsCantFindGateway(t *testing.T) {
	s := &fakeSender{results: map[string]fakeResult{
		"gw-a": {err: errors.New("unreachable")},
		"gw-b": {err: errors.New("unreachable")},
	}}
	err := runSendWithRetry(t, s, []string{"gw-a", "gw-b"})
	assert.ErrorIs(t, err, errCantFindGateway)
}

func TestSendWithRetryNoCandidatesReportsCantFindGateway(t *testing.T) {
	s := &fakeSender{results: map[string]fakeResult{}}
	err := runSendWithRetry(t, s, nil)
	assert.ErrorIs(t, err, errCantFindGateway)
	assert.Empty(t, s.attempts)
}
