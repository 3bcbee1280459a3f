// Package rpc implements the Front<->Gateway RPC surface of §6: in AIR mode
// as direct in-process method calls, in PRO mode as gRPC unary calls. PRO
// mode messages are encoded with the protobuf wire format via
// google.golang.org/protobuf/encoding/protowire directly (field tag/varint/
// length-delimited primitives) rather than through protoc-generated
// descriptors, since no codegen tooling runs as part of this build.
package rpc

import (
	"google.golang.org/protobuf/encoding/protowire"
)

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendStringsField(b []byte, num protowire.Number, vs []string) []byte {
	for _, v := range vs {
		b = appendStringField(b, num, v)
	}
	return b
}

// eachField walks b's top-level fields, invoking fn(num, typ, rest) for
// each one found. rest is the remainder of b starting at the field's value;
// fn decodes the value from it and returns how many bytes it consumed.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		consumed, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		b = b[consumed:]
	}
	return nil
}

// skipField consumes a field whose wire type did not match what the field
// number expected, the forward-compatible behavior real protobuf decoders
// give unexpected/unknown fields rather than failing the whole message.
func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

func consumeString(num protowire.Number, typ protowire.Type, b []byte) (string, int, error) {
	if typ != protowire.BytesType {
		n, err := skipField(num, typ, b)
		return "", n, err
	}
	s, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", 0, protowire.ParseError(n)
	}
	return s, n, nil
}

func consumeBytes(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		n, err := skipField(num, typ, b)
		return nil, n, err
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}

func consumeVarint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		n, err := skipField(num, typ, b)
		return 0, n, err
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}
