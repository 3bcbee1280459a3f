package rpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// wireMessage is implemented by every request/response struct in this
// package. grpc's default codec expects proto.Message; codecName below
// replaces it with one that shells out to these methods instead, so PRO
// mode needs no generated descriptors.
type wireMessage interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

const codecName = "fabricwire"

type wireCodec struct{}

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("rpc: %T does not implement wireMessage", v)
	}
	return m.Marshal()
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("rpc: %T does not implement wireMessage", v)
	}
	return m.Unmarshal(data)
}

func (wireCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(wireCodec{})
}
