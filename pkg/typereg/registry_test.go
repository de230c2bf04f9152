package typereg

import (
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type named interface {
	Name() string
}

type user struct{ name string }

func (u user) Name() string { return u.name }

func TestNew_IdentifierOrder(t *testing.T) {
	r, err := New([]reflect.Type{reflect.TypeOf(point{})})
	require.NoError(t, err)

	cases := []struct {
		id  string
		typ reflect.Type
	}{
		{"1", reflect.TypeOf("")},
		{"2", reflect.TypeOf(int(0))},
		{"3", reflect.TypeOf(float64(0))},
		{"4", reflect.TypeOf(false)},
		{"5", reflect.TypeOf([]any(nil))},
		{"6", reflect.TypeOf(Tuple(nil))},
		{"7", reflect.TypeOf(uuid.UUID{})},
		{"8", reflect.TypeOf(map[string]any(nil))},
		{"9", reflect.TypeOf(point{})},
		{"10", reflect.TypeOf(decimal.Decimal{})},
		{"11", reflect.TypeOf(time.Time{})},
		{"12", reflect.TypeOf(civil.Date{})},
		{"13", reflect.TypeOf(civil.Time{})},
	}
	for _, c := range cases {
		id, ok := r.IDFor(c.typ)
		require.True(t, ok, "no id for %s", c.typ)
		assert.Equal(t, c.id, string(id), "id for %s", c.typ)

		typ, ok := r.TypeFor([]byte(c.id))
		require.True(t, ok)
		assert.Equal(t, c.typ, typ)
	}
}

func TestNew_NoneSentinel(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	typ, ok := r.TypeFor([]byte(NoneID))
	assert.True(t, ok)
	assert.Nil(t, typ)
}

func TestNew_DuplicateDomainType(t *testing.T) {
	_, err := New([]reflect.Type{reflect.TypeOf(point{}), reflect.TypeOf(point{})})
	assert.Error(t, err)
}

func TestNew_CollisionWithBuiltin(t *testing.T) {
	_, err := New([]reflect.Type{reflect.TypeOf("")})
	assert.Error(t, err)
}

func TestNew_CollisionWithTail(t *testing.T) {
	_, err := New([]reflect.Type{reflect.TypeOf(time.Time{})})
	assert.Error(t, err)
}

func TestTypeFor_UnknownID(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	_, ok := r.TypeFor([]byte("99"))
	assert.False(t, ok)
}

func TestResolve_ExactAndPointer(t *testing.T) {
	r, err := New([]reflect.Type{reflect.TypeOf(point{})})
	require.NoError(t, err)

	id, ok := r.Resolve(reflect.TypeOf(point{}))
	require.True(t, ok)
	assert.Equal(t, "9", string(id))

	id, ok = r.Resolve(reflect.TypeOf(&point{}))
	require.True(t, ok)
	assert.Equal(t, "9", string(id))
}

func TestResolve_EmbeddedAncestor(t *testing.T) {
	type derived struct {
		point
	}

	r, err := New([]reflect.Type{reflect.TypeOf(point{})})
	require.NoError(t, err)

	id, ok := r.Resolve(reflect.TypeOf(derived{}))
	require.True(t, ok)
	assert.Equal(t, "9", string(id), "embedded base must cover the derived type")
}

func TestResolve_RegisteredInterface(t *testing.T) {
	r, err := New([]reflect.Type{reflect.TypeOf((*named)(nil)).Elem()})
	require.NoError(t, err)

	id, ok := r.Resolve(reflect.TypeOf(user{}))
	require.True(t, ok)
	assert.Equal(t, "9", string(id))
}

func TestResolve_PrimitiveKindFallback(t *testing.T) {
	type userID string
	type count int
	type ratio float32
	type flags map[string]any

	r, err := New(nil)
	require.NoError(t, err)

	cases := []struct {
		typ reflect.Type
		id  string
	}{
		{reflect.TypeOf(userID("")), "1"},
		{reflect.TypeOf(count(0)), "2"},
		{reflect.TypeOf(int64(0)), "2"},
		{reflect.TypeOf(ratio(0)), "3"},
		{reflect.TypeOf([]int(nil)), "5"},
		{reflect.TypeOf(flags(nil)), "8"},
	}
	for _, c := range cases {
		id, ok := r.Resolve(c.typ)
		require.True(t, ok, "no ancestor for %s", c.typ)
		assert.Equal(t, c.id, string(id), "ancestor id for %s", c.typ)
	}
}

func TestResolve_Unregistered(t *testing.T) {
	type orphan struct{ c chan int }

	r, err := New(nil)
	require.NoError(t, err)

	_, ok := r.Resolve(reflect.TypeOf(orphan{}))
	assert.False(t, ok)

	_, ok = r.Resolve(nil)
	assert.False(t, ok)
}

func TestBuiltinCount(t *testing.T) {
	// First domain type always lands one past the builtin block.
	assert.Equal(t, 9, BuiltinCount())
}
