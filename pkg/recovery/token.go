package recovery

import "github.com/Mindburn-Labs/liveview/pkg/typereg"

// Token is the wire unit for one recovered value: three printable strings
// safe to hand to an untrusted client. A token is meaningful only under the
// exact (pepper, code, salt, name) it was produced with; it is otherwise
// opaque.
type Token struct {
	// TypeID is the decimal ordinal identifying the value's registered
	// type, or "0" for the none sentinel.
	TypeID string `json:"type_id"`

	// Payload is the URL-safe base64 encoding of the canonical JSON bytes.
	// Empty for the none sentinel.
	Payload string `json:"payload"`

	// Signature is the hex SHA-256 digest binding the token and its state
	// key to the secret material. Empty for the none sentinel.
	Signature string `json:"signature"`
}

// IsNone reports whether the token is the absent/null sentinel. The
// sentinel carries no payload and no signature: there is nothing to tamper
// with, and any forged non-sentinel id simply fails type lookup or
// signature verification instead.
func (t Token) IsNone() bool {
	return t.TypeID == typereg.NoneID
}
