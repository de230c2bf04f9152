// Package typereg implements the closed type whitelist for state recovery.
//
// Identifiers are decimal ordinals assigned from list position, once, at
// construction: the built-in primitives first, then the server-declared
// domain types in declaration order, then a small fixed calendar/decimal
// tail. Identifiers are the only thing transmitted to name a type, so the
// assignment order must never change for a given whitelist across a
// deployment's lifetime: reordering silently invalidates every outstanding
// token. There is no version tag to detect that; see the package-level gap
// note on Registry.
package typereg

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tuple is a fixed-shape sequence, distinct from the ordinary []any
// sequence builtin. It exists so callers can round-trip "this is a pair"
// semantics without inventing a struct.
type Tuple []any

// NoneID is the reserved identifier for the absent/null sentinel token.
const NoneID = "0"

// Built-in primitive types, in their fixed identifier order. The none
// sentinel occupies slot 0 and has no reflect.Type.
var builtins = []reflect.Type{
	reflect.TypeOf(""),                  // 1
	reflect.TypeOf(int(0)),              // 2
	reflect.TypeOf(float64(0)),          // 3
	reflect.TypeOf(false),               // 4
	reflect.TypeOf([]any(nil)),          // 5
	reflect.TypeOf(Tuple(nil)),          // 6
	reflect.TypeOf(uuid.UUID{}),         // 7
	reflect.TypeOf(map[string]any(nil)), // 8
}

// Calendar/decimal tail, appended after the domain types.
var tail = []reflect.Type{
	reflect.TypeOf(decimal.Decimal{}),
	reflect.TypeOf(time.Time{}),
	reflect.TypeOf(civil.Date{}),
	reflect.TypeOf(civil.Time{}),
}

// Registry is the bidirectional type/identifier mapping. It is immutable
// after New and safe for concurrent use without locking.
//
// Known gap, kept intentionally: there is no mechanism to rotate the
// identifier assignment (or the pepper) without invalidating all
// outstanding tokens.
type Registry struct {
	typeToID map[reflect.Type][]byte
	idToType map[string]reflect.Type

	// Registered interface types in ascending identifier order, scanned
	// during ancestor resolution.
	ifaces []ifaceEntry
}

type ifaceEntry struct {
	typ reflect.Type
	id  []byte
}

// New builds a registry from the server-declared domain types. Domain types
// must not collide with the builtins, the tail, or each other.
func New(domainTypes []reflect.Type) (*Registry, error) {
	r := &Registry{
		typeToID: make(map[reflect.Type][]byte),
		idToType: make(map[string]reflect.Type),
	}

	r.idToType[NoneID] = nil

	next := 1
	register := func(t reflect.Type) error {
		if t == nil {
			return fmt.Errorf("typereg: nil type in whitelist")
		}
		if _, dup := r.typeToID[t]; dup {
			return fmt.Errorf("typereg: duplicate whitelist entry %s", t)
		}
		id := []byte(strconv.Itoa(next))
		next++
		r.typeToID[t] = id
		r.idToType[string(id)] = t
		if t.Kind() == reflect.Interface {
			r.ifaces = append(r.ifaces, ifaceEntry{typ: t, id: id})
		}
		return nil
	}

	for _, t := range builtins {
		if err := register(t); err != nil {
			return nil, err
		}
	}
	for _, t := range domainTypes {
		if err := register(t); err != nil {
			return nil, err
		}
	}
	for _, t := range tail {
		if err := register(t); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// IDFor returns the identifier for an exactly registered type.
func (r *Registry) IDFor(t reflect.Type) ([]byte, bool) {
	id, ok := r.typeToID[t]
	return id, ok
}

// TypeFor returns the registered type for an identifier. The none sentinel
// resolves to (nil, true); an identifier outside the registry resolves to
// (nil, false), which covers both genuinely unknown ids and stale ids from
// a reordered whitelist.
func (r *Registry) TypeFor(id []byte) (reflect.Type, bool) {
	t, ok := r.idToType[string(id)]
	return t, ok
}

// Resolve walks the type hierarchy of t, most specific to least specific,
// and returns the identifier of the nearest registered ancestor:
//
//  1. exact registered type
//  2. pointer element
//  3. anonymous embedded struct fields, depth first
//  4. registered interface types, in ascending identifier order
//  5. primitive-kind fallback (a defined type over string/int/float/bool
//     or a slice/string-keyed-map shape resolves to the matching builtin)
//
// This is a hard trust boundary: a type with no registered ancestor must
// never be serialized, because only registered types are reconstructed
// from client-supplied data.
func (r *Registry) Resolve(t reflect.Type) ([]byte, bool) {
	if t == nil {
		return nil, false
	}
	if id, ok := r.typeToID[t]; ok {
		return id, true
	}
	if t.Kind() == reflect.Pointer {
		return r.Resolve(t.Elem())
	}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.Anonymous {
				continue
			}
			if id, ok := r.Resolve(f.Type); ok {
				return id, true
			}
		}
	}
	for _, e := range r.ifaces {
		if t.Implements(e.typ) {
			return e.id, true
		}
	}
	return r.kindFallback(t)
}

// kindFallback maps defined types over primitive kinds to the covering
// builtin, the Go analog of "registered base class covers its subclasses".
func (r *Registry) kindFallback(t reflect.Type) ([]byte, bool) {
	var base reflect.Type
	switch t.Kind() {
	case reflect.String:
		base = builtins[0]
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		base = builtins[1]
	case reflect.Float32, reflect.Float64:
		base = builtins[2]
	case reflect.Bool:
		base = builtins[3]
	case reflect.Slice, reflect.Array:
		base = builtins[4]
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, false
		}
		base = builtins[7]
	default:
		return nil, false
	}
	id, ok := r.typeToID[base]
	return id, ok
}

// BuiltinCount is the number of identifier slots occupied before the first
// domain type (the none sentinel plus the primitive builtins). The first
// domain type therefore receives identifier "9".
func BuiltinCount() int {
	return len(builtins) + 1
}
