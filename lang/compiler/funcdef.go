package compiler

import "github.com/wisplang/wisp/lang/value"

// FuncDef is the compiled output for one function body: the top-level
// program, or any nested `fn` literal excised into its own definition.
type FuncDef struct {
	Bytecode []uint16
	Literals []value.Value
	Locals   uint16
	Arity    uint16
	Flags    FuncFlag
	Name     string
}

// Closure wraps a FuncDef with the upvalue-environment it was created in.
// The top-level Compile entry point produces a closure with every field at
// its zero value (no parent, no captured values, zero stack offset, no
// thread); nested `fn` closures (CLN) are built by the executing VM at run
// time, not by the compiler, so this type's only compiler-constructed
// instance is the top-level one.
type Closure struct {
	Def         *FuncDef
	Parent      *Closure
	Values      []interface{}
	StackOffset int
	Thread      interface{}
}

func flagsFor(scope *Scope, vararg bool) FuncFlag {
	var f FuncFlag
	if vararg {
		f |= FlagVararg
	}
	if scope.touchParent {
		f |= FlagNeedsParent
	}
	if scope.touchEnv {
		f |= FlagNeedsEnv
	}
	return f
}
