package value

import (
	"github.com/dolthub/swiss"
)

// Table is a mutable Value→Value mapping, backed by a swiss-table hash map
// keyed on the canonical HashKey encoding (compound Values are not
// comparable in the Go sense, so the raw Value can't be used as a map key
// directly). Insertion order is tracked separately so that Range — used by
// the table-literal compiler, Equal and HashKey — iterates
// deterministically for a given history of insertions, matching the
// "host table's bucket order" determinism the compiler's ordering guarantee
// depends on.
type Table struct {
	index *swiss.Map[string, int]
	keys  []Value
	vals  []Value
}

// NewTable creates an empty Table with room for sz entries before the first
// resize.
func NewTable(sz uint32) *Table {
	return &Table{index: swiss.NewMap[string, int](sz)}
}

// Set inserts or overwrites the value bound to k. It returns an error only
// if k is not a hashable literal (a compound Value containing something
// other than hashable tags).
func (t *Table) Set(k, v Value) error {
	hk, err := HashKey(k)
	if err != nil {
		return err
	}
	if i, ok := t.index.Get(hk); ok {
		t.vals[i] = v
		return nil
	}
	i := len(t.keys)
	t.keys = append(t.keys, k)
	t.vals = append(t.vals, v)
	t.index.Put(hk, i)
	return nil
}

// Get looks up the value bound to k.
func (t *Table) Get(k Value) (Value, bool) {
	hk, err := HashKey(k)
	if err != nil {
		return nil, false
	}
	i, ok := t.index.Get(hk)
	if !ok {
		return nil, false
	}
	return t.vals[i], true
}

// GetString is a convenience for the common case of string-keyed lookups
// (symbol names, host protocol metadata keys).
func (t *Table) GetString(k string) (Value, bool) {
	return t.Get(String_(k))
}

// Len reports the number of entries currently stored.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Range visits every entry in insertion order, stopping early if fn returns
// false. This is the table's "bucket order" the compiler's table-literal
// emission and the determinism invariant rely on: deterministic for a given
// sequence of Set calls, regardless of the underlying swiss.Map's internal
// bucket layout.
func (t *Table) Range(fn func(k, v Value) bool) {
	if t == nil {
		return
	}
	for i, k := range t.keys {
		if !fn(k, t.vals[i]) {
			return
		}
	}
}

func (t *Table) String() string { return "<table>" }
func (*Table) Type() string     { return "table" }
