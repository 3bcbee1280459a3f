package gatewaycore

// ackOK and ackCode encode the short ASCII error-code acks exchanged over
// the peer-to-peer wire for P2PMessage, per §4.7: 0 means success, a
// non-zero/non-empty string names the failure.
var ackOK = []byte{0}

func ackCode(err error) []byte {
	if err == nil {
		return ackOK
	}
	return []byte(err.Error())
}

func ackSucceeded(payload []byte) bool {
	return len(payload) == 1 && payload[0] == 0
}
