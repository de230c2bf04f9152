package recovery

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"reflect"

	"github.com/Mindburn-Labs/liveview/pkg/canonicalize"
	"github.com/Mindburn-Labs/liveview/pkg/typereg"
)

// Serializer is the request-scoped half of the protocol: one instance per
// recovery or serialization round, bound at construction to one rotating
// code and one salt. Instances are cheap and hold no mutable state, but
// must not be reused across requests or sessions: the frozen code is what
// ties every signature to its validity window.
type Serializer struct {
	manager *Manager
	code    []byte
	salt    []byte
}

// SerializeState turns a mapping of state key to value into a mapping of
// state key to signed token. Any single failure aborts the whole call.
func (s *Serializer) SerializeState(state map[string]any) (map[string]Token, error) {
	if len(state) > s.manager.maxValues {
		err := fmt.Errorf("%w: %d values (max %d)", ErrTooManyValues, len(state), s.manager.maxValues)
		s.fail(err, "")
		return nil, err
	}

	out := make(map[string]Token, len(state))
	for name, value := range state {
		tok, err := s.serialize(name, value)
		if err != nil {
			s.fail(err, name)
			return nil, err
		}
		out[name] = tok
	}

	s.manager.metrics.Serialized(context.Background(), len(out))
	return out, nil
}

func (s *Serializer) serialize(name string, value any) (Token, error) {
	if value == nil {
		// Nothing to sign: the sentinel is self-describing and a forged
		// non-sentinel id fails lookup or verification on the way back.
		return Token{TypeID: typereg.NoneID}, nil
	}

	typeID, ok := s.manager.registry.Resolve(reflect.TypeOf(value))
	if !ok {
		return Token{}, fmt.Errorf("%w: %T", ErrWhitelistViolation, value)
	}

	raw, err := canonicalize.Encode(value, s.manager.defaultEncoder)
	if err != nil {
		return Token{}, fmt.Errorf("recovery: encode %q: %w", name, err)
	}
	if len(raw) > s.manager.maxPayloadLength {
		return Token{}, fmt.Errorf("%w: %q is %d bytes (max %d)",
			ErrPayloadTooLarge, name, len(raw), s.manager.maxPayloadLength)
	}

	return Token{
		TypeID:    string(typeID),
		Payload:   base64.URLEncoding.EncodeToString(raw),
		Signature: hex.EncodeToString(s.sign(name, typeID, raw)),
	}, nil
}

// DeserializeState converts returned tokens back into values. Semantics
// are all-or-nothing: the first failing token aborts the batch and the
// caller receives no partially recovered state, because a state set with
// unrecoverable members is not safely usable. Callers should fall back to
// fresh/default state on error, never merge.
func (s *Serializer) DeserializeState(tokens map[string]Token) (map[string]any, error) {
	// The batch bound guards the deserialize path too: this is the
	// attacker-controlled input.
	if len(tokens) > s.manager.maxValues {
		err := fmt.Errorf("%w: %d tokens (max %d)", ErrTooManyValues, len(tokens), s.manager.maxValues)
		s.fail(err, "")
		return nil, err
	}

	out := make(map[string]any, len(tokens))
	for name, tok := range tokens {
		value, err := s.deserialize(name, tok)
		if err != nil {
			s.fail(err, name)
			return nil, err
		}
		out[name] = value
	}

	s.manager.metrics.Recovered(context.Background(), len(out))
	return out, nil
}

func (s *Serializer) deserialize(name string, tok Token) (any, error) {
	if tok.IsNone() {
		return nil, nil
	}

	typeID := []byte(tok.TypeID)
	typ, ok := s.manager.registry.TypeFor(typeID)
	if !ok || typ == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tok.TypeID)
	}

	raw, err := base64.URLEncoding.DecodeString(tok.Payload)
	if err != nil {
		// A payload that is not even valid transport encoding is treated
		// as tampering, same as a flipped byte that still decodes.
		return nil, fmt.Errorf("%w: %q: malformed payload encoding", ErrSignatureMismatch, name)
	}

	// Recompute from this serializer's own secret material; no secret is
	// ever taken from the token itself. An expired code, a foreign salt, a
	// relabeled name, or any altered byte all land here.
	expected := s.sign(name, typeID, raw)
	supplied, err := hex.DecodeString(tok.Signature)
	if err != nil || len(supplied) != len(expected) ||
		subtle.ConstantTimeCompare(expected, supplied) != 1 {
		return nil, fmt.Errorf("%w: %q (type id %s)", ErrSignatureMismatch, name, tok.TypeID)
	}

	return s.reconstruct(typ, raw)
}

// sign computes the keyed digest over the exact ordered concatenation of
// type id, payload bytes, pepper, rotating code, salt, and state key. The
// order is part of the protocol: binding the key prevents relabeling a
// valid token from one field into another, and pepper+code+salt make the
// digest useless without all three secrets plus current-interval freshness.
func (s *Serializer) sign(name string, typeID, data []byte) []byte {
	h := sha256.New()
	h.Write(typeID)
	h.Write(data)
	h.Write(s.manager.pepper)
	h.Write(s.code)
	h.Write(s.salt)
	h.Write([]byte(name))
	return h.Sum(nil)
}

func (s *Serializer) fail(err error, name string) {
	s.manager.logger.Debug("recovery batch aborted", "key", name, "error", err)
	s.manager.metrics.Failure(context.Background(), failureClass(err), name)
}
