// Package compiler implements the single-pass compiler: the tree walker
// over value.Value ASTs that produces register-based bytecode FuncDefs.
// This file holds the Slot/FormOptions types, the compileValue dispatch,
// the non-special-form expression compilers, and the Compile entry point.
// specialforms.go holds the nine special-form compilers.
package compiler

import (
	"math"

	"github.com/wisplang/wisp/lang/host"
	"github.com/wisplang/wisp/lang/value"
)

// defaultRecursionGuard bounds compile_value nesting depth, matching the
// original compiler's recursion-guard safety net against pathological AST
// depth.
const defaultRecursionGuard = 2500

// Slot describes where a compiled expression's value landed.
type Slot struct {
	Index       uint16
	IsNil       bool
	IsTemp      bool
	HasReturned bool
}

func nilSlot() Slot { return Slot{IsNil: true} }

// FormOptions carries target-slot, tail-position and result-used hints into
// each recursive compileValue call.
type FormOptions struct {
	Target       uint16
	ResultUnused bool
	CanChoose    bool
	IsTail       bool
}

// defaultOpts is the non-tail, non-target-constrained, result-used default
// used for sub-expressions that simply need "a slot, anywhere".
func defaultOpts() FormOptions { return FormOptions{CanChoose: true} }

type compilerState struct {
	env            *host.Environment
	buf            *Buffer
	tail           *Scope
	recursionGuard int
}

// Options carries compile-time knobs that have no bearing on bytecode
// shape but are otherwise useful to a host driving the compiler (e.g. a CLI
// honoring an environment-variable override).
type Options struct {
	// RecursionGuard overrides defaultRecursionGuard when non-zero.
	RecursionGuard int
}

// Compile translates form into a runnable top-level Closure, resolving
// globals against env. On error, returns a *Error describing the first
// failure encountered; no partial Closure is returned.
func Compile(env *host.Environment, form value.Value) (*Closure, error) {
	return CompileWithOptions(env, form, Options{})
}

// CompileWithOptions is Compile with an explicit Options override.
func CompileWithOptions(env *host.Environment, form value.Value, opts Options) (*Closure, error) {
	guard := opts.RecursionGuard
	if guard == 0 {
		guard = defaultRecursionGuard
	}
	c := &compilerState{
		env:            env,
		buf:            &Buffer{},
		tail:           NewRootScope(),
		recursionGuard: guard,
	}
	rootOpts := FormOptions{CanChoose: true, IsTail: true}
	slot, err := c.compileValue(rootOpts, form)
	if err != nil {
		return nil, err
	}
	c.emitReturn(slot)
	fd := &FuncDef{
		Bytecode: append([]uint16(nil), c.buf.Words()...),
		Literals: c.tail.Literals(),
		Locals:   c.tail.FrameSize(),
		Arity:    0,
		Flags:    flagsFor(c.tail, false),
	}
	return &Closure{Def: fd}, nil
}

func (c *compilerState) compileValue(opts FormOptions, v value.Value) (Slot, error) {
	if c.recursionGuard == 0 {
		return Slot{}, newErr(ErrRecursionTooDeep, nil)
	}
	c.recursionGuard--
	defer func() { c.recursionGuard++ }()

	if v == nil {
		v = value.NilValue
	}
	switch tv := v.(type) {
	case value.Nil, value.Bool, value.Int, value.Real:
		return c.compileNonRef(opts, v)
	case value.Symbol:
		return c.compileSymbol(opts, tv)
	case value.Tuple:
		return c.compileForm(opts, tv)
	case *value.Array:
		return c.compileArray(opts, tv)
	case *value.Table:
		return c.compileTable(opts, tv)
	default:
		return c.compileLiteral(opts, v)
	}
}

// getTarget implements the "reserve a destination register" policy: a
// fresh temp slot when the caller doesn't care where the value lands, or
// the caller's fixed target otherwise.
func (c *compilerState) getTarget(opts FormOptions) (Slot, error) {
	if opts.CanChoose {
		idx, err := c.tail.GetLocal()
		if err != nil {
			return Slot{}, err
		}
		return Slot{Index: idx, IsTemp: true}, nil
	}
	return Slot{Index: opts.Target}, nil
}

// realize ensures a Slot has an actual stack location, materializing a Nil
// write for slots that so far only represent "no value was computed".
func (c *compilerState) realize(s Slot) (Slot, error) {
	if !s.IsNil {
		return s, nil
	}
	idx, err := c.tail.GetLocal()
	if err != nil {
		return Slot{}, err
	}
	c.buf.PushOp(OpNil)
	c.buf.PushU16(idx)
	return Slot{Index: idx, IsTemp: true}, nil
}

// dropSlot returns a temp, non-nil slot's register to the freelist.
func (c *compilerState) dropSlot(s Slot) {
	if !s.IsNil && s.IsTemp {
		c.tail.FreeLocal(s.Index)
	}
}

// coerce adapts a compiled Slot to the caller's FormOptions: dropping it if
// the result is unused, realizing it, and emitting a MOV if the caller
// demanded a fixed target the slot didn't already land in.
func (c *compilerState) coerce(opts FormOptions, s Slot) (Slot, error) {
	if opts.ResultUnused {
		c.dropSlot(s)
		return nilSlot(), nil
	}
	s, err := c.realize(s)
	if err != nil {
		return Slot{}, err
	}
	if !opts.CanChoose && s.Index != opts.Target {
		c.buf.PushOp(OpMove)
		c.buf.PushU16(opts.Target)
		c.buf.PushU16(s.Index)
		s = Slot{Index: opts.Target}
	}
	return s, nil
}

// emitReturn emits the instruction returning s from the current function.
func (c *compilerState) emitReturn(s Slot) Slot {
	if s.HasReturned {
		return s
	}
	if s.IsNil {
		c.buf.PushOp(OpReturnNil)
	} else {
		c.buf.PushOp(OpReturn)
		c.buf.PushU16(s.Index)
	}
	return Slot{IsNil: true, HasReturned: true}
}

// compileNonRef implements the "Non-reference literals" expression
// compiler: nil, bool, int, real emitted as direct immediate opcodes.
func (c *compilerState) compileNonRef(opts FormOptions, v value.Value) (Slot, error) {
	if opts.ResultUnused {
		return nilSlot(), nil
	}
	slot, err := c.getTarget(opts)
	if err != nil {
		return Slot{}, err
	}
	switch tv := v.(type) {
	case value.Nil:
		c.buf.PushOp(OpNil)
		c.buf.PushU16(slot.Index)
	case value.Bool:
		if tv {
			c.buf.PushOp(OpTrue)
		} else {
			c.buf.PushOp(OpFalse)
		}
		c.buf.PushU16(slot.Index)
	case value.Int:
		n := int64(tv)
		switch {
		case n >= math.MinInt16 && n <= math.MaxInt16:
			c.buf.PushOp(OpI16)
			c.buf.PushU16(slot.Index)
			c.buf.PushI16(int16(n))
		case n >= math.MinInt32 && n <= math.MaxInt32:
			c.buf.PushOp(OpI32)
			c.buf.PushU16(slot.Index)
			c.buf.PushI32(int32(n))
		default:
			c.buf.PushOp(OpI64)
			c.buf.PushU16(slot.Index)
			c.buf.PushI64(n)
		}
	case value.Real:
		c.buf.PushOp(OpF64)
		c.buf.PushU16(slot.Index)
		c.buf.PushBits64(tv.Bits())
	default:
		return Slot{}, newErr(ErrInternal, v)
	}
	return slot, nil
}

// compileLiteral implements the "Reference literals" expression compiler:
// CST via the per-function literal pool, for everything that isn't a
// non-reference primitive.
func (c *compilerState) compileLiteral(opts FormOptions, v value.Value) (Slot, error) {
	switch v.(type) {
	case value.Nil, value.Bool, value.Int, value.Real:
		return c.compileNonRef(opts, v)
	}
	if opts.ResultUnused {
		return nilSlot(), nil
	}
	slot, err := c.getTarget(opts)
	if err != nil {
		return Slot{}, err
	}
	idx, err := c.tail.AddLiteral(v)
	if err != nil {
		return Slot{}, err
	}
	c.buf.PushOp(OpConst)
	c.buf.PushU16(slot.Index)
	c.buf.PushU16(idx)
	return slot, nil
}

// compileSymbol implements the Symbol expression compiler.
func (c *compilerState) compileSymbol(opts FormOptions, sym value.Symbol) (Slot, error) {
	res := resolve(c.tail, c.env, sym)
	switch res.Kind {
	case ResUnresolved:
		return Slot{}, newErr(ErrUnboundSymbol, sym)
	case ResConstant:
		markGlobalTouch(c.tail)
		if opts.ResultUnused {
			return nilSlot(), nil
		}
		return c.compileLiteral(opts, res.Value)
	case ResMutableGlobal:
		markGlobalTouch(c.tail)
		if opts.ResultUnused {
			return nilSlot(), nil
		}
		form := value.Tuple{value.Symbol("get"), quoteTuple(res.Value), value.Int(0)}
		return c.compileValue(opts, form)
	case ResLocal:
		if res.Level > 0 {
			markCaptureChain(c.tail, res.Level)
			slot, err := c.getTarget(opts)
			if err != nil {
				return Slot{}, err
			}
			c.buf.PushOp(OpUpval)
			c.buf.PushU16(slot.Index)
			c.buf.PushU16(uint16(res.Level))
			c.buf.PushU16(res.Index)
			return slot, nil
		}
		if opts.CanChoose {
			return Slot{Index: res.Index}, nil
		}
		c.buf.PushOp(OpMove)
		c.buf.PushU16(opts.Target)
		c.buf.PushU16(res.Index)
		return Slot{Index: opts.Target}, nil
	default:
		return Slot{}, newErr(ErrInternal, sym)
	}
}

func quoteTuple(v value.Value) value.Tuple { return value.Tuple{value.Symbol("quote"), v} }

// compileForm dispatches a Tuple either to a special form or to a general
// call.
func (c *compilerState) compileForm(opts FormOptions, form value.Tuple) (Slot, error) {
	if len(form) == 0 {
		return c.compileNonRef(opts, value.NilValue)
	}
	if sym, ok := form[0].(value.Symbol); ok {
		if fn, ok := specialForms[sym]; ok {
			return fn(c, opts, form)
		}
	}
	return c.compileGeneralCall(opts, form)
}

// compileGeneralCall implements the "General call" expression compiler.
func (c *compilerState) compileGeneralCall(opts FormOptions, form value.Tuple) (Slot, error) {
	callee, err := c.compileValue(defaultOpts(), form[0])
	if err != nil {
		return Slot{}, err
	}
	callee, err = c.realize(callee)
	if err != nil {
		return Slot{}, err
	}
	args := form[1:]
	argSlots := make([]Slot, 0, len(args))
	for _, a := range args {
		s, err := c.compileValue(defaultOpts(), a)
		if err != nil {
			return Slot{}, err
		}
		if s.IsNil {
			return Slot{}, newErr(ErrInternal, a)
		}
		argSlots = append(argSlots, s)
	}
	c.dropSlot(callee)
	for _, s := range argSlots {
		c.dropSlot(s)
	}
	c.emitPushArgs(argSlots)
	if opts.IsTail {
		c.buf.PushOp(OpTailCall)
		c.buf.PushU16(callee.Index)
		return Slot{IsNil: true, HasReturned: true}, nil
	}
	dst, err := c.getTarget(opts)
	if err != nil {
		return Slot{}, err
	}
	c.buf.PushOp(OpCall)
	c.buf.PushU16(callee.Index)
	c.buf.PushU16(dst.Index)
	return dst, nil
}

func (c *compilerState) emitPushArgs(slots []Slot) {
	c.buf.PushOp(OpPushArgs)
	c.buf.PushU16(uint16(len(slots)))
	for _, s := range slots {
		c.buf.PushU16(s.Index)
	}
}

// compileArray implements the Array literal expression compiler.
func (c *compilerState) compileArray(opts FormOptions, arr *value.Array) (Slot, error) {
	dst, err := c.getTarget(opts)
	if err != nil {
		return Slot{}, err
	}
	tracked := make([]Slot, 0, len(arr.Elems))
	for _, e := range arr.Elems {
		s, err := c.compileValue(defaultOpts(), e)
		if err != nil {
			return Slot{}, err
		}
		s, err = c.realize(s)
		if err != nil {
			return Slot{}, err
		}
		tracked = append(tracked, s)
	}
	for _, s := range tracked {
		c.dropSlot(s)
	}
	c.buf.PushOp(OpArray)
	c.buf.PushU16(dst.Index)
	c.buf.PushU16(uint16(len(tracked)))
	for _, s := range tracked {
		c.buf.PushU16(s.Index)
	}
	return dst, nil
}

// compileTable implements the Table literal expression compiler, iterating
// in the table's own deterministic insertion ("bucket") order.
func (c *compilerState) compileTable(opts FormOptions, tbl *value.Table) (Slot, error) {
	dst, err := c.getTarget(opts)
	if err != nil {
		return Slot{}, err
	}
	var tracked []Slot
	var rangeErr error
	tbl.Range(func(k, v value.Value) bool {
		ks, err := c.compileValue(defaultOpts(), k)
		if err != nil {
			rangeErr = err
			return false
		}
		if ks, err = c.realize(ks); err != nil {
			rangeErr = err
			return false
		}
		vs, err := c.compileValue(defaultOpts(), v)
		if err != nil {
			rangeErr = err
			return false
		}
		if vs, err = c.realize(vs); err != nil {
			rangeErr = err
			return false
		}
		tracked = append(tracked, ks, vs)
		return true
	})
	if rangeErr != nil {
		return Slot{}, rangeErr
	}
	for _, s := range tracked {
		c.dropSlot(s)
	}
	c.buf.PushOp(OpTable)
	c.buf.PushU16(dst.Index)
	c.buf.PushU16(uint16(len(tracked)))
	for _, s := range tracked {
		c.buf.PushU16(s.Index)
	}
	return dst, nil
}
