// Package stormcbor provides a CBOR codec for storm suited to schemaless documents.
package stormcbor

import (
	"bytes"
	"reflect"

	"github.com/ugorji/go/codec"
)

const name = "cbor"

// Codec that encodes to and decodes from CBOR (Concise Binary Object Representation).
// Nested maps are decoded as map[string]any so documents survive a round trip unchanged.
// http://cbor.io/
var Codec = new(cborCodec)

var handle = newHandle()

func newHandle() *codec.CborHandle {
	h := &codec.CborHandle{}
	h.MapType = reflect.TypeOf(map[string]any(nil))
	h.SliceType = reflect.TypeOf([]any(nil))
	h.SignedInteger = true
	h.Canonical = true
	return h
}

type cborCodec int

func (c cborCodec) Marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	if err := codec.NewEncoder(&b, handle).Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (c cborCodec) Unmarshal(b []byte, v any) error {
	return codec.NewDecoderBytes(b, handle).Decode(v)
}

func (c cborCodec) Name() string {
	return name
}
