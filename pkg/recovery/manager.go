// Package recovery implements the signed, type-checked state recovery
// protocol: a bag of named values is serialized into opaque signed tokens
// for an untrusted client, and on a later request only values returned
// unmodified and of a whitelisted type are re-admitted.
//
// The Manager is built once at startup and shared read-only; every request
// that needs recovery spawns a short-lived Serializer bound to the current
// rotating code and a caller-supplied salt. Deserialization is the one
// place attacker-controlled input becomes a live server-side value, so the
// whole path is fail-closed: unknown type, bad signature, oversized
// payload, or unreconstructable value each abort the entire batch.
package recovery

import (
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/Mindburn-Labs/liveview/pkg/canonicalize"
	"github.com/Mindburn-Labs/liveview/pkg/observability"
	"github.com/Mindburn-Labs/liveview/pkg/otp"
	"github.com/Mindburn-Labs/liveview/pkg/typereg"
)

// Defaults for the resource guards.
const (
	DefaultMaxValues        = 256
	DefaultMaxPayloadLength = 40000
)

// DecodeFunc turns the parsed canonical structure (nil, bool, string,
// json.Number, []any, map[string]any) into a live instance of its
// registered type. Registering one per whitelist entry removes any
// ambiguity about which constructor shape applies.
type DecodeFunc func(parsed any) (any, error)

// TypeEntry declares one whitelisted domain type, optionally with an
// explicit reconstruction function. Entries without a Decode fall back to
// the default reconstruction rules (see Serializer.DeserializeState).
type TypeEntry struct {
	Type   reflect.Type
	Decode DecodeFunc
}

// Config is the manager's construction input.
type Config struct {
	// Types is the ordered whitelist of domain types. Order is part of the
	// protocol: identifiers are assigned by position and reordering
	// invalidates all outstanding tokens.
	Types []TypeEntry

	// Pepper is the static server secret mixed into every signature. Never
	// transmitted. Required.
	Pepper string

	// Key provides the master key for the rotating-code schedule. Nil
	// falls back to otp.DerivedKey(""), the weak single-host default.
	Key otp.KeyProvider

	// Interval is the code rotation period. Zero means otp.DefaultInterval.
	Interval time.Duration

	// MaxValues bounds the number of entries in one recovery batch.
	// Zero means DefaultMaxValues.
	MaxValues int

	// MaxPayloadLength bounds the encoded size of a single value in bytes.
	// Zero means DefaultMaxPayloadLength.
	MaxPayloadLength int

	// DefaultEncoder is applied to values that are not natively
	// JSON-encodable.
	DefaultEncoder canonicalize.EncoderFunc

	// Decoders maps additional types to reconstruction functions. A
	// TypeEntry.Decode takes precedence over an entry here for the same
	// type.
	Decoders map[reflect.Type]DecodeFunc

	// Logger receives failure diagnostics. Nil means slog.Default.
	Logger *slog.Logger

	// Metrics receives serialize/recover counters. Optional.
	Metrics *observability.Recorder
}

// Manager holds the process-wide recovery configuration: pepper, type
// registry, secret schedule, and resource limits. Immutable after
// NewManager and safe for concurrent use without locking.
type Manager struct {
	pepper           []byte
	schedule         *otp.Schedule
	registry         *typereg.Registry
	maxValues        int
	maxPayloadLength int
	defaultEncoder   canonicalize.EncoderFunc
	decoders         map[reflect.Type]DecodeFunc
	logger           *slog.Logger
	metrics          *observability.Recorder
}

// NewManager validates the configuration and builds the closed type
// registry. Whitelist collisions with reserved builtin identifiers or
// duplicate entries fail here, fatally, rather than at request time.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Pepper == "" {
		return nil, fmt.Errorf("%w: pepper must not be empty", ErrConfiguration)
	}

	domain := make([]reflect.Type, 0, len(cfg.Types))
	decoders := make(map[reflect.Type]DecodeFunc, len(cfg.Types)+len(cfg.Decoders))
	for t, fn := range cfg.Decoders {
		decoders[t] = fn
	}
	for _, e := range cfg.Types {
		domain = append(domain, e.Type)
		if e.Decode != nil {
			decoders[e.Type] = e.Decode
		}
	}

	registry, err := typereg.New(domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	schedule, err := otp.NewSchedule(cfg.Key, cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	maxValues := cfg.MaxValues
	if maxValues <= 0 {
		maxValues = DefaultMaxValues
	}
	maxPayload := cfg.MaxPayloadLength
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayloadLength
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		pepper:           []byte(cfg.Pepper),
		schedule:         schedule,
		registry:         registry,
		maxValues:        maxValues,
		maxPayloadLength: maxPayload,
		defaultEncoder:   cfg.DefaultEncoder,
		decoders:         decoders,
		logger:           logger,
		metrics:          cfg.Metrics,
	}, nil
}

// Serializer mints a request-scoped serializer bound to the rotating code
// at the given time and the caller's salt. A zero time means now. The code
// is captured once: the serializer's validity window is frozen to this
// moment and never re-derived.
//
// The salt must uniquely and stably identify the logical session or
// connection, so tokens from one context cannot be replayed into another.
func (m *Manager) Serializer(salt string, at time.Time) (*Serializer, error) {
	if at.IsZero() {
		at = time.Now()
	}
	code, err := m.schedule.CodeAt(at)
	if err != nil {
		return nil, err
	}
	return &Serializer{
		manager: m,
		code:    []byte(code),
		salt:    []byte(salt),
	}, nil
}

// Registry exposes the closed type registry, read-only.
func (m *Manager) Registry() *typereg.Registry {
	return m.registry
}

// Interval returns the schedule's rotation period.
func (m *Manager) Interval() time.Duration {
	return m.schedule.Interval()
}
