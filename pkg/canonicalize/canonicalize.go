// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme)
// compliant encoding for recovery payloads.
//
// Payload bytes are an input to the token signature, so the same value must
// encode to the same bytes in every process that shares the secret material.
// Standard json.Marshal gives no such guarantee across struct/map shapes;
// the JCS transform does.
package canonicalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// EncoderFunc converts a value that is not natively JSON-encodable into one
// that is. It is the default-encoder escape hatch on the recovery manager.
type EncoderFunc func(v any) (any, error)

// Encode returns the canonical JSON bytes for v.
//
// When v fails to marshal and fallback is non-nil, the fallback's result is
// encoded instead. A nil fallback propagates the marshal error.
func Encode(v any, fallback EncoderFunc) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		if fallback == nil {
			return nil, fmt.Errorf("canonicalize: encode: %w", err)
		}
		sub, ferr := fallback(v)
		if ferr != nil {
			return nil, fmt.Errorf("canonicalize: default encoder: %w", ferr)
		}
		if raw, err = json.Marshal(sub); err != nil {
			return nil, fmt.Errorf("canonicalize: encode fallback value: %w", err)
		}
	}

	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: jcs transform: %w", err)
	}
	return out, nil
}

// Decode parses canonical JSON into the generic shape consumed by the
// reconstruction path: nil, bool, string, json.Number, []any or
// map[string]any. Numbers stay as json.Number so integer precision is not
// lost to float64.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canonicalize: decode: %w", err)
	}

	// Reject trailing garbage after the first JSON value.
	if dec.More() {
		return nil, fmt.Errorf("canonicalize: decode: trailing data after JSON value")
	}
	return v, nil
}
