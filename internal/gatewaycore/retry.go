package gatewaycore

import (
	"errors"
	"time"

	"github.com/ppcmesh/fabric/pkg/wire"
)

// ErrNoGatewayFound is returned when peerRouter.SelectRouter has no
// candidates at all.
var ErrNoGatewayFound = errors.New("gatewaycore: no gateway found")

// errCantFindGateway is the error SendWithRetry reports once every
// candidate peer has been tried and failed.
var errCantFindGateway = errors.New("gatewaycore: can't find the gateway")

// sender is the subset of peerservice.Service SendWithRetry needs.
type sender interface {
	SendMessage(peer string, msg *wire.Message, expectAck bool) ([]byte, error)
}

// sendWithRetry implements §4.7's retry loop: on each attempt, remove one
// peer from the candidate set, send to it, and wait for either an ack
// payload or a transport error. Any transport error, or a non-zero
// error-code byte in the ack payload, triggers another attempt with a
// remaining peer. Exhaustion reports errCantFindGateway; success invokes
// ack(nil).
func sendWithRetry(s sender, candidates []string, msg *wire.Message, timeout time.Duration, ack func(error)) {
	var lastErr error
	for len(candidates) > 0 {
		peer := candidates[0]
		candidates = candidates[1:]

		result := make(chan struct {
			payload []byte
			err     error
		}, 1)
		go func() {
			payload, err := s.SendMessage(peer, msg, true)
			result <- struct {
				payload []byte
				err     error
			}{payload, err}
		}()

		select {
		case r := <-result:
			if r.err != nil {
				lastErr = r.err
				continue
			}
			if len(r.payload) > 0 && r.payload[0] != 0 {
				lastErr = errors.New(string(r.payload))
				continue
			}
			ack(nil)
			return
		case <-time.After(timeout):
			lastErr = errTimeout
			continue
		}
	}
	_ = lastErr
	if ack != nil {
		ack(errCantFindGateway)
	}
}

var errTimeout = errors.New("gatewaycore: send attempt timed out")
