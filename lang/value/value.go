// Package value defines the tagged Value sum type the compiler consumes as its
// input AST and produces as literal-pool entries. It plays the role the
// external "parser" and "garbage collector / value representation" layers
// play in a full system: this package only needs enough of a Value
// implementation for the compiler to inspect, hash and compare ASTs, not to
// execute programs.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Value is implemented by every tagged AST node / literal the compiler
// handles. String renders the value close to the textual reader's syntax
// (used by the disassembler's constants section and by error messages);
// tables and funcdefs render as opaque placeholders, and a whole-number Real
// renders without a fractional part. Type names the tag for diagnostics.
type Value interface {
	String() string
	Type() string
}

// Nil is the singleton absence-of-value tag.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// NilValue is the single shared Nil instance.
var NilValue = Nil{}

// Bool is a boolean literal.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

// Int is a 64-bit signed integer literal.
type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (Int) Type() string     { return "integer" }

// Real is a 64-bit floating point literal.
type Real float64

func (r Real) String() string { return strconv.FormatFloat(float64(r), 'g', -1, 64) }
func (Real) Type() string     { return "real" }

// Bits returns the IEEE-754 bit pattern, the payload encoded by F64
// instructions.
func (r Real) Bits() uint64 { return math.Float64bits(float64(r)) }

// String_ is a byte string literal. Named with a trailing underscore to
// avoid colliding with the String() method every Value implements; callers
// outside this package refer to it as value.String_.
type String_ string

func (s String_) String() string { return strconv.Quote(string(s)) }
func (String_) Type() string     { return "string" }

// Symbol is a byte-identified identifier. Symbols and strings share a byte
// representation but are distinct tags; the root-scope def/var rewrite
// (compileDefLike in lang/compiler) passes a symbol's name to
// global-def/global-var as a String of the same bytes.
type Symbol string

func (s Symbol) String() string { return string(s) }
func (Symbol) Type() string     { return "symbol" }

// Tuple is an immutable ordered sequence, used both as literal data and as
// the "form" shape (a call or special form invocation) when its first
// element is a Symbol naming the operator.
type Tuple []Value

func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}
func (Tuple) Type() string { return "tuple" }

// Array is a mutable ordered sequence.
type Array struct {
	Elems []Value
}

func NewArray(elems ...Value) *Array { return &Array{Elems: elems} }

func (a *Array) String() string {
	parts := make([]string, len(a.Elems))
	for i, v := range a.Elems {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
func (*Array) Type() string { return "array" }

// FuncDef is the AST-level placeholder tag for an already-compiled function
// definition embedded as data (e.g. a literal-pool entry holding a nested
// closure). The compiler's own package defines the real compiled shape
// (compiler.FuncDef); this tag lets a FuncDef participate in the Value sum
// when it is quoted/stored as a literal.
type FuncDef struct {
	Name string
	// Def holds the compiler-produced definition. Declared as interface{} to
	// avoid an import cycle between lang/value and lang/compiler (the
	// compiler package imports lang/value, not the reverse).
	Def interface{}
}

func (f *FuncDef) String() string {
	if f.Name != "" {
		return fmt.Sprintf("<funcdef %s>", f.Name)
	}
	return "<funcdef>"
}
func (*FuncDef) Type() string { return "funcdef" }

// Equal reports whether two Values are structurally equal, the same
// equality the literal pool and Table deduplication use.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case Nil:
		return true
	case Bool:
		return av == b.(Bool)
	case Int:
		return av == b.(Int)
	case Real:
		return av == b.(Real)
	case String_:
		return av == b.(String_)
	case Symbol:
		return av == b.(Symbol)
	case Tuple:
		bv := b.(Tuple)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Array:
		bv := b.(*Array)
		if len(av.Elems) != len(bv.Elems) {
			return false
		}
		for i := range av.Elems {
			if !Equal(av.Elems[i], bv.Elems[i]) {
				return false
			}
		}
		return true
	case *Table:
		return tableEqual(av, b.(*Table))
	case *FuncDef:
		return av == b.(*FuncDef)
	default:
		return false
	}
}

func tableEqual(a, b *Table) bool {
	if a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Range(func(k, v Value) bool {
		bv, ok := b.Get(k)
		if !ok || !Equal(v, bv) {
			eq = false
			return false
		}
		return true
	})
	return eq
}

// HashKey produces a canonical string encoding of a Value suitable as a
// comparable map key (for the swiss.Map-backed Table and for literal-pool
// deduplication). Compound values are encoded recursively; the encoding is
// unambiguous across tags because every encoding is prefixed with a
// single-byte tag discriminator.
func HashKey(v Value) (string, error) {
	var b strings.Builder
	if err := writeHashKey(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeHashKey(b *strings.Builder, v Value) error {
	switch tv := v.(type) {
	case Nil:
		b.WriteByte('n')
	case Bool:
		b.WriteByte('b')
		if tv {
			b.WriteByte(1)
		} else {
			b.WriteByte(0)
		}
	case Int:
		b.WriteByte('i')
		fmt.Fprintf(b, "%d", int64(tv))
	case Real:
		b.WriteByte('f')
		fmt.Fprintf(b, "%d", tv.Bits())
	case String_:
		b.WriteByte('s')
		fmt.Fprintf(b, "%d:%s", len(tv), string(tv))
	case Symbol:
		b.WriteByte('y')
		fmt.Fprintf(b, "%d:%s", len(tv), string(tv))
	case Tuple:
		b.WriteByte('t')
		fmt.Fprintf(b, "%d:", len(tv))
		for _, e := range tv {
			if err := writeHashKey(b, e); err != nil {
				return err
			}
		}
	case *Array:
		b.WriteByte('a')
		fmt.Fprintf(b, "%d:", len(tv.Elems))
		for _, e := range tv.Elems {
			if err := writeHashKey(b, e); err != nil {
				return err
			}
		}
	case *Table:
		b.WriteByte('d')
		keys := make([]string, 0, tv.Len())
		encoded := make(map[string]Value, tv.Len())
		var rangeErr error
		tv.Range(func(k, val Value) bool {
			ks, err := HashKey(k)
			if err != nil {
				rangeErr = err
				return false
			}
			keys = append(keys, ks)
			encoded[ks] = val
			return true
		})
		if rangeErr != nil {
			return rangeErr
		}
		sort.Strings(keys)
		fmt.Fprintf(b, "%d:", len(keys))
		for _, k := range keys {
			b.WriteString(k)
			b.WriteByte('=')
			if err := writeHashKey(b, encoded[k]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("value: type %T is not hashable as a literal", v)
	}
	return nil
}

// Truthy reports the value's boolean interpretation: everything is truthy
// except Nil and the boolean false, matching the host language described by
// the compiler's environment contract (mutability metadata truthiness
// checks use this rule).
func Truthy(v Value) bool {
	switch tv := v.(type) {
	case nil:
		return false
	case Nil:
		return false
	case Bool:
		return bool(tv)
	default:
		return true
	}
}
