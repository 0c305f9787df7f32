// Package host implements the minimal contract the compiler needs from its
// surrounding runtime: the environment table a top-level Compile call
// resolves globals against (the closure a compiled function is wrapped in is
// compiler.Closure). It intentionally does not execute anything — the bytecode
// interpreter is an external collaborator — it only models the data the
// compiler reads and produces.
package host

import "github.com/wisplang/wisp/lang/value"

// Environment is the "env" Table described by the compiler's external
// interface contract, together with its associated metadata and nil-value
// side tables.
type Environment struct {
	env  *value.Table
	meta *value.Table
	nils *value.Table
}

// NewEnvironment builds an empty environment with its three tables
// initialized.
func NewEnvironment() *Environment {
	return &Environment{
		env:  value.NewTable(8),
		meta: value.NewTable(8),
		nils: value.NewTable(8),
	}
}

// Env returns the constants/mutable-globals table the resolver consults
// first.
func (e *Environment) Env() *value.Table { return e.env }

// Meta returns the per-symbol metadata table; a symbol name maps to a Table
// whose "mutable" key, if truthy, marks the corresponding env entry as a
// MutableGlobal rather than a Constant.
func (e *Environment) Meta() *value.Table { return e.meta }

// Nils returns the table of symbol names bound to Nil, consulted only after
// a miss against Env.
func (e *Environment) Nils() *value.Table { return e.nils }

// Define binds name to v in the environment as an immutable constant.
func (e *Environment) Define(name string, v value.Value) error {
	return e.env.Set(value.String_(name), v)
}

// DefineMutable binds name to v and marks it mutable in the metadata table,
// so the resolver reports it as a MutableGlobal (reads of it are rewritten to
// a get call, and varset! against it to a set! call).
func (e *Environment) DefineMutable(name string, v value.Value) error {
	if err := e.env.Set(value.String_(name), v); err != nil {
		return err
	}
	meta := value.NewTable(1)
	if err := meta.Set(value.String_("mutable"), value.Bool(true)); err != nil {
		return err
	}
	return e.meta.Set(value.String_(name), meta)
}

// DefineNil records name as bound to Nil, resolved only when Env has no
// entry for it.
func (e *Environment) DefineNil(name string) error {
	return e.nils.Set(value.String_(name), value.NilValue)
}

// IsMutable reports whether name's metadata table marks it mutable.
func (e *Environment) IsMutable(name string) bool {
	meta, ok := e.meta.GetString(name)
	if !ok {
		return false
	}
	mt, ok := meta.(*value.Table)
	if !ok {
		return false
	}
	flag, ok := mt.GetString("mutable")
	if !ok {
		return false
	}
	return value.Truthy(flag)
}

// StandardProtocolNames are the four host functions the compiler's
// global-access rewriting assumes exist in Env; they are never resolved by
// the compiler itself, only referenced symbolically in synthesized tuples.
var StandardProtocolNames = [4]string{"get", "set!", "global-def", "global-var"}

// NewStandardEnvironment builds an Environment with the four standard
// protocol names bound to opaque native-function placeholders. The actual
// bodies of get/set!/global-def/global-var are the bytecode interpreter's
// concern, an external collaborator this repository never executes; it only
// needs each name to resolve to some Value so that compiling a reference to
// it (e.g. the rewritten form `(global-def "x" 5)`) embeds a literal-pool
// entry rather than failing with UnboundSymbol.
func NewStandardEnvironment() *Environment {
	e := NewEnvironment()
	for _, name := range StandardProtocolNames {
		_ = e.Define(name, &value.FuncDef{Name: name})
	}
	return e
}
