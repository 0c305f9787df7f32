package compiler

import (
	"github.com/wisplang/wisp/lang/host"
	"github.com/wisplang/wisp/lang/value"
)

// ResolutionKind discriminates the four outcomes of symbol resolution.
type ResolutionKind int

const (
	ResUnresolved ResolutionKind = iota
	ResLocal
	ResConstant
	ResMutableGlobal
)

// Resolution is the result of walking the scope chain and, failing that,
// the host environment's tables for a symbol. It never mutates scope state;
// the caller (compileSymbol/compileVarset) is responsible for setting
// touch_parent/touch_env.
type Resolution struct {
	Kind    ResolutionKind
	Level   uint32 // function-nesting levels crossed, for ResLocal
	Index   uint16
	Mutable bool
	Value   value.Value // for ResConstant / ResMutableGlobal
}

// resolve walks scopes innermost-out, then the environment's constants
// table (checking its metadata for mutability), then the nils table.
func resolve(scope *Scope, env *host.Environment, sym value.Symbol) Resolution {
	currentLevel := scope.level
	for s := scope; s != nil; s = s.parent {
		if b, ok := s.lookupLocal(sym); ok {
			return Resolution{Kind: ResLocal, Level: currentLevel - s.level, Index: b.index, Mutable: b.mutable}
		}
	}
	name := string(sym)
	if v, ok := env.Env().GetString(name); ok {
		if env.IsMutable(name) {
			return Resolution{Kind: ResMutableGlobal, Value: v}
		}
		return Resolution{Kind: ResConstant, Value: v}
	}
	if _, ok := env.Nils().GetString(name); ok {
		return Resolution{Kind: ResConstant, Value: value.NilValue}
	}
	return Resolution{Kind: ResUnresolved}
}

// markCaptureChain marks touch_parent on every function frame from the
// referencing scope's own function root up through, and including, the
// defining function's root, when a Local is resolved at level > 0.
//
// This departs from a literal word-for-word port of the upvalue-marking
// algorithm found in comparable tree-walking compilers (which, read
// literally, ends up setting touch_env rather than touch_parent on some of
// these frames). Instead it implements the cross-function-boundary capture
// case directly: both the capturing function and the function that owns the
// captured local end up with NEEDS_PARENT set and neither gets NEEDS_ENV.
// See DESIGN.md for the full derivation.
func markCaptureChain(scope *Scope, level uint32) {
	fr := scope.funcRoot
	if fr == nil {
		fr = scope
	}
	for i := uint32(0); i <= level; i++ {
		fr.touchParent = true
		if i == level {
			break
		}
		if fr.parent == nil {
			break
		}
		next := fr.parent.funcRoot
		if next == nil {
			next = fr.parent
		}
		fr = next
	}
}

// markGlobalTouch marks touch_env on the scope performing a direct global
// resolution.
func markGlobalTouch(scope *Scope) {
	fr := scope.funcRoot
	if fr == nil {
		fr = scope
	}
	fr.touchEnv = true
}
