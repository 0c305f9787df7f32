package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisplang/wisp/lang/value"
)

func TestEqualScalars(t *testing.T) {
	assert.True(t, value.Equal(value.Int(1), value.Int(1)))
	assert.False(t, value.Equal(value.Int(1), value.Int(2)))
	assert.False(t, value.Equal(value.Int(1), value.Real(1)))
	assert.True(t, value.Equal(value.NilValue, value.NilValue))
	assert.True(t, value.Equal(value.String_("a"), value.String_("a")))
	assert.False(t, value.Equal(value.String_("a"), value.Symbol("a")))
}

func TestEqualCompound(t *testing.T) {
	a := value.Tuple{value.Int(1), value.NewArray(value.Int(2), value.Int(3))}
	b := value.Tuple{value.Int(1), value.NewArray(value.Int(2), value.Int(3))}
	c := value.Tuple{value.Int(1), value.NewArray(value.Int(2), value.Int(4))}
	assert.True(t, value.Equal(a, b))
	assert.False(t, value.Equal(a, c))
}

func TestEqualTables(t *testing.T) {
	t1 := value.NewTable(4)
	require.NoError(t, t1.Set(value.Symbol("x"), value.Int(1)))
	t2 := value.NewTable(4)
	require.NoError(t, t2.Set(value.Symbol("x"), value.Int(1)))
	assert.True(t, value.Equal(t1, t2))

	require.NoError(t, t2.Set(value.Symbol("y"), value.Int(2)))
	assert.False(t, value.Equal(t1, t2))
}

func TestHashKeyDistinguishesTags(t *testing.T) {
	ik, err := value.HashKey(value.Int(1))
	require.NoError(t, err)
	sk, err := value.HashKey(value.String_("1"))
	require.NoError(t, err)
	assert.NotEqual(t, ik, sk)
}

func TestHashKeyStableForEqualValues(t *testing.T) {
	a := value.Tuple{value.Symbol("x"), value.Int(1)}
	b := value.Tuple{value.Symbol("x"), value.Int(1)}
	ka, err := value.HashKey(a)
	require.NoError(t, err)
	kb, err := value.HashKey(b)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)
}

func TestHashKeyRejectsFuncDef(t *testing.T) {
	_, err := value.HashKey(&value.FuncDef{Name: "f"})
	require.Error(t, err)
}

func TestTruthy(t *testing.T) {
	assert.False(t, value.Truthy(value.NilValue))
	assert.False(t, value.Truthy(value.Bool(false)))
	assert.False(t, value.Truthy(nil))
	assert.True(t, value.Truthy(value.Bool(true)))
	assert.True(t, value.Truthy(value.Int(0)))
	assert.True(t, value.Truthy(value.String_("")))
}
