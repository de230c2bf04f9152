package recovery

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Mindburn-Labs/liveview/pkg/canonicalize"
	"github.com/Mindburn-Labs/liveview/pkg/typereg"
)

var (
	stringType  = reflect.TypeOf("")
	intType     = reflect.TypeOf(int(0))
	floatType   = reflect.TypeOf(float64(0))
	boolType    = reflect.TypeOf(false)
	seqType     = reflect.TypeOf([]any(nil))
	tupleType   = reflect.TypeOf(typereg.Tuple(nil))
	uuidType    = reflect.TypeOf(uuid.UUID{})
	mapType     = reflect.TypeOf(map[string]any(nil))
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
	dateType    = reflect.TypeOf(civil.Date{})
	clockType   = reflect.TypeOf(civil.Time{})
)

// reconstruct turns signature-verified payload bytes into a live value of
// the registered type. Registered decoders win; builtins and the
// calendar/decimal tail reconstruct via their parse functions; domain types
// follow the default rules: a string payload goes through the type's text
// constructor, an object payload populates a fresh instance field by field,
// anything else is returned unconverted. Every failure in here is a
// reconstruction error: the bytes were authentic, the content was not
// usable.
func (s *Serializer) reconstruct(typ reflect.Type, raw []byte) (any, error) {
	parsed, err := canonicalize.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconstruction, err)
	}

	if dec, ok := s.manager.decoders[typ]; ok {
		v, err := dec(parsed)
		if err != nil {
			return nil, fmt.Errorf("%w: custom decoder for %s: %v", ErrReconstruction, typ, err)
		}
		return v, nil
	}

	switch typ {
	case stringType:
		v, ok := parsed.(string)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		return v, nil

	case intType:
		n, ok := parsed.(json.Number)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrReconstruction, n)
		}
		return int(i), nil

	case floatType:
		n, ok := parsed.(json.Number)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrReconstruction, n)
		}
		return f, nil

	case boolType:
		v, ok := parsed.(bool)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		return v, nil

	case seqType:
		v, ok := parsed.([]any)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		return normalize(v).([]any), nil

	case tupleType:
		v, ok := parsed.([]any)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		return typereg.Tuple(normalize(v).([]any)), nil

	case mapType:
		v, ok := parsed.(map[string]any)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		return normalize(v).(map[string]any), nil

	case uuidType:
		str, ok := parsed.(string)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		id, err := uuid.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconstruction, err)
		}
		return id, nil

	case decimalType:
		var str string
		switch v := parsed.(type) {
		case json.Number:
			str = v.String()
		case string:
			str = v
		default:
			return nil, reconstructMismatch(typ, parsed)
		}
		d, err := decimal.NewFromString(str)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconstruction, err)
		}
		return d, nil

	case timeType:
		str, ok := parsed.(string)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconstruction, err)
		}
		return t, nil

	case dateType:
		str, ok := parsed.(string)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		d, err := civil.ParseDate(str)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconstruction, err)
		}
		return d, nil

	case clockType:
		str, ok := parsed.(string)
		if !ok {
			return nil, reconstructMismatch(typ, parsed)
		}
		c, err := civil.ParseTime(str)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconstruction, err)
		}
		return c, nil
	}

	return reconstructDomain(typ, parsed)
}

// reconstructDomain applies the default rules for server-declared types.
func reconstructDomain(typ reflect.Type, parsed any) (any, error) {
	switch v := parsed.(type) {
	case string:
		return domainFromString(typ, v)
	case map[string]any:
		return domainFromObject(typ, v)
	default:
		// Scalars and sequences pass through unconverted.
		return normalize(parsed), nil
	}
}

// domainFromString is the single-string-constructor path: the type's
// TextUnmarshaler if it has one, otherwise a plain conversion for
// string-kinded types.
func domainFromString(typ reflect.Type, s string) (any, error) {
	if reflect.PointerTo(typ).Implements(reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()) {
		inst := reflect.New(typ)
		u := inst.Interface().(encoding.TextUnmarshaler)
		if err := u.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("%w: %s from text: %v", ErrReconstruction, typ, err)
		}
		return inst.Elem().Interface(), nil
	}
	if typ.Kind() == reflect.String {
		return reflect.ValueOf(s).Convert(typ).Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s has no text constructor", ErrReconstruction, typ)
}

// domainFromObject is the named-arguments path: the object's fields
// populate a fresh instance. Unknown fields are rejected, matching a
// constructor that refuses unexpected arguments.
func domainFromObject(typ reflect.Type, obj map[string]any) (any, error) {
	buf, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconstruction, err)
	}

	inst := reflect.New(typ)
	dec := json.NewDecoder(strings.NewReader(string(buf)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(inst.Interface()); err != nil {
		return nil, fmt.Errorf("%w: construct %s: %v", ErrReconstruction, typ, err)
	}
	return inst.Elem().Interface(), nil
}

// normalize rewrites json.Number leaves to int (when integral) or float64,
// recursively through sequences and maps, so recovered primitives compare
// equal to what was serialized.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			if i, err := t.Int64(); err == nil {
				return int(i)
			}
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}

func reconstructMismatch(typ reflect.Type, parsed any) error {
	return fmt.Errorf("%w: payload shape %T does not match %s", ErrReconstruction, parsed, typ)
}
