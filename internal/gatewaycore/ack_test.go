package gatewaycore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckCodeSuccess(t *testing.T) {
	assert.Equal(t, ackOK, ackCode(nil))
}

func TestAckCodeError(t *testing.T) {
	assert.Equal(t, []byte("boom"), ackCode(errors.New("boom")))
}

func TestAckSucceeded(t *testing.T) {
	assert.True(t, ackSucceeded(ackOK))
	assert.False(t, ackSucceeded([]byte("no")))
	assert.False(t, ackSucceeded(nil))
}

func TestErrFromAck(t *testing.T) {
	require.Equal(t, errNotFoundFrontService, errFromAck(nil))

	err := errFromAck([]byte("custom failure"))
	require.Error(t, err)
	assert.Equal(t, "custom failure", err.Error())
}
