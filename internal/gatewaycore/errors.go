package gatewaycore

import "errors"

var (
	errTTLExpired            = errors.New("gatewaycore: ttl expired")
	errNotFoundFrontService  = errors.New("gatewaycore: not found front service")
	errNoNetworkEstablished  = errors.New("gatewaycore: no network established")
)
