package wire

import "errors"

var (
	// ErrMalformedMessage is returned when a header, RouteInfo, or frame
	// fails a length-prefix or minimum-size check during decode.
	ErrMalformedMessage = errors.New("wire: malformed message")

	// ErrMalformedPayload is returned when a MessagePayload is shorter than
	// its 6-byte minimum or has an inconsistent length prefix.
	ErrMalformedPayload = errors.New("wire: malformed payload")

	// ErrFrameTooLarge is returned when a frame's declared length exceeds
	// the configured MaxFrameSize.
	ErrFrameTooLarge = errors.New("wire: frame exceeds maximum allowed size")

	// ErrMultiplePolicyBits is returned when more than one route-policy bit
	// is set in a header's ext field. Spec §9 requires that a conforming
	// decoder treat this as a decode error rather than picking a bit by
	// priority.
	ErrMultiplePolicyBits = errors.New("wire: more than one route-policy bit set")

	// ErrUnknownPacketType is returned when a header's packetType does not
	// match any of the values defined in §6.
	ErrUnknownPacketType = errors.New("wire: unknown packet type")
)
