package recovery

import "errors"

// Failure taxonomy. All of these propagate to the caller; none are retried
// internally, since retry cannot fix a whitelist, signature, or size
// violation. Match with errors.Is.
var (
	// ErrConfiguration reports an invalid manager setup (identifier
	// collisions, empty pepper, unusable key material). Fatal at startup.
	ErrConfiguration = errors.New("recovery: invalid manager configuration")

	// ErrWhitelistViolation reports a serialize-side value whose type (and
	// none of its ancestors) is registered.
	ErrWhitelistViolation = errors.New("recovery: type not white-listed for serialization")

	// ErrPayloadTooLarge reports a single value whose encoding exceeds the
	// manager's max payload length.
	ErrPayloadTooLarge = errors.New("recovery: serialized value too long")

	// ErrTooManyValues reports a batch exceeding the manager's max value
	// count.
	ErrTooManyValues = errors.New("recovery: too many state values")

	// ErrUnknownType reports a token naming an identifier outside the
	// registry, either genuinely unknown or stale from a changed whitelist.
	ErrUnknownType = errors.New("recovery: unknown type id")

	// ErrSignatureMismatch reports a recomputed signature disagreeing with
	// the supplied one. Covers tampering, relabeled tokens, wrong salt, and
	// expired-interval replay alike.
	ErrSignatureMismatch = errors.New("recovery: signature mismatch")

	// ErrReconstruction reports a decodable but semantically invalid value:
	// the signature checked out, yet the parsed structure could not be
	// turned into an instance of its declared type.
	ErrReconstruction = errors.New("recovery: value reconstruction failed")
)

// failureClass maps a taxonomy error to its metric/log label.
func failureClass(err error) string {
	switch {
	case errors.Is(err, ErrWhitelistViolation):
		return "whitelist_violation"
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ErrTooManyValues):
		return "too_many_values"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, ErrReconstruction):
		return "reconstruction"
	default:
		return "internal"
	}
}
