package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisplang/wisp/lang/value"
)

func TestTableSetGet(t *testing.T) {
	tbl := value.NewTable(4)
	require.NoError(t, tbl.Set(value.Symbol("x"), value.Int(1)))
	v, ok := tbl.Get(value.Symbol("x"))
	require.True(t, ok)
	assert.Equal(t, value.Int(1), v)

	_, ok = tbl.Get(value.Symbol("y"))
	assert.False(t, ok)
}

func TestTableOverwriteKeepsInsertionOrder(t *testing.T) {
	tbl := value.NewTable(4)
	require.NoError(t, tbl.Set(value.Symbol("a"), value.Int(1)))
	require.NoError(t, tbl.Set(value.Symbol("b"), value.Int(2)))
	require.NoError(t, tbl.Set(value.Symbol("a"), value.Int(99)))

	var order []string
	tbl.Range(func(k, v value.Value) bool {
		order = append(order, k.String())
		return true
	})
	assert.Equal(t, []string{"a", "b"}, order)

	v, _ := tbl.Get(value.Symbol("a"))
	assert.Equal(t, value.Int(99), v)
	assert.Equal(t, 2, tbl.Len())
}

func TestTableGetString(t *testing.T) {
	tbl := value.NewTable(4)
	require.NoError(t, tbl.Set(value.String_("name"), value.String_("wisp")))
	v, ok := tbl.GetString("name")
	require.True(t, ok)
	assert.Equal(t, value.String_("wisp"), v)
}

func TestTableRangeStopsEarly(t *testing.T) {
	tbl := value.NewTable(4)
	require.NoError(t, tbl.Set(value.Int(1), value.Int(1)))
	require.NoError(t, tbl.Set(value.Int(2), value.Int(2)))
	require.NoError(t, tbl.Set(value.Int(3), value.Int(3)))

	var seen int
	tbl.Range(func(k, v value.Value) bool {
		seen++
		return seen < 2
	})
	assert.Equal(t, 2, seen)
}

func TestNilTableIsEmpty(t *testing.T) {
	var tbl *value.Table
	assert.Equal(t, 0, tbl.Len())
	tbl.Range(func(k, v value.Value) bool {
		t.Fatal("unexpected entry in nil table")
		return false
	})
}
