package compiler

import (
	"github.com/wisplang/wisp/lang/value"
	"golang.org/x/exp/slices"
)

type specialFormFunc func(*compilerState, FormOptions, value.Tuple) (Slot, error)

// specialForms dispatches a form's head symbol to its dedicated compiler.
// A plain map lookup replaces a character-by-character switch; nothing
// about the dispatched behavior changes.
var specialForms = map[value.Symbol]specialFormFunc{
	"do":      compileDo,
	"def":     compileDef,
	"var":     compileVar,
	"varset!": compileVarset,
	"if":      compileIf,
	"while":   compileWhile,
	"fn":      compileFn,
	"quote":   compileQuote,
	"apply":   compileApply,
	"tran":    compileTran,
}

func checkArity(form value.Tuple, valid ...int) error {
	n := len(form)
	for _, want := range valid {
		if n == want {
			return nil
		}
	}
	return newErrf(ErrExpectedFormArity, form[0], "got %d arguments", n-1)
}

func checkSymbol(v value.Value) (value.Symbol, error) {
	sym, ok := v.(value.Symbol)
	if !ok {
		return "", newErr(ErrExpectedSymbol, v)
	}
	return sym, nil
}

func splitI32(v int32) (uint16, uint16) {
	u := uint32(v)
	return uint16(u), uint16(u >> 16)
}

// compileBody compiles form[start:] as an implicit `do`: every element but
// the last is compiled with its result dropped, the last with the caller's
// own FormOptions. An empty range yields the nil Slot.
func compileBody(c *compilerState, form value.Tuple, start int, opts FormOptions) (Slot, error) {
	n := len(form)
	if n <= start {
		return nilSlot(), nil
	}
	for i := start; i < n-1; i++ {
		s, err := c.compileValue(FormOptions{ResultUnused: true, CanChoose: true}, form[i])
		if err != nil {
			return Slot{}, err
		}
		c.dropSlot(s)
	}
	return c.compileValue(opts, form[n-1])
}

// compileDo implements `(do e1 … eN)`.
func compileDo(c *compilerState, opts FormOptions, form value.Tuple) (Slot, error) {
	sub := c.tail.Push(true)
	save := c.tail
	c.tail = sub
	slot, err := compileBody(c, form, 1, opts)
	sub.Pop()
	c.tail = save
	return slot, err
}

// compileDefLike implements both `def` and `var`: at non-root scope declare
// a fresh local (mutable for var); at root scope rewrite to the
// corresponding global-def/global-var call and recompile. "Root scope"
// means the current scope's function-nesting level is 0 — the top-level
// program's own frame, including any same-function do/if/while sub-scopes
// nested within it — not merely "this exact Scope has no parent", since a
// `do` at the top level pushes a same-function sub-scope whose immediate
// parent is non-nil but whose level is still 0.
func compileDefLike(c *compilerState, opts FormOptions, form value.Tuple, mutable bool, globalName value.Symbol) (Slot, error) {
	if err := checkArity(form, 3); err != nil {
		return Slot{}, err
	}
	sym, err := checkSymbol(form[1])
	if err != nil {
		return Slot{}, err
	}
	if c.tail.level != 0 {
		idx, err := c.tail.Declare(sym, mutable)
		if err != nil {
			return Slot{}, err
		}
		valOpts := FormOptions{CanChoose: false, Target: idx, IsTail: opts.IsTail}
		slot, err := c.compileValue(valOpts, form[2])
		if err != nil {
			return Slot{}, err
		}
		return c.coerce(opts, slot)
	}
	rewritten := value.Tuple{globalName, value.String_(sym), form[2]}
	return c.compileValue(opts, rewritten)
}

func compileDef(c *compilerState, opts FormOptions, form value.Tuple) (Slot, error) {
	return compileDefLike(c, opts, form, false, "global-def")
}

func compileVar(c *compilerState, opts FormOptions, form value.Tuple) (Slot, error) {
	return compileDefLike(c, opts, form, true, "global-var")
}

// compileVarset implements `(varset! sym value)`.
func compileVarset(c *compilerState, opts FormOptions, form value.Tuple) (Slot, error) {
	if err := checkArity(form, 3); err != nil {
		return Slot{}, err
	}
	sym, err := checkSymbol(form[1])
	if err != nil {
		return Slot{}, err
	}
	res := resolve(c.tail, c.env, sym)
	switch res.Kind {
	case ResLocal:
		if !res.Mutable {
			return Slot{}, newErr(ErrImmutableAssignment, sym)
		}
		if res.Level > 0 {
			markCaptureChain(c.tail, res.Level)
			valSlot, err := c.compileValue(defaultOpts(), form[2])
			if err != nil {
				return Slot{}, err
			}
			if valSlot, err = c.realize(valSlot); err != nil {
				return Slot{}, err
			}
			c.buf.PushOp(OpSetUpval)
			c.buf.PushU16(valSlot.Index)
			c.buf.PushU16(uint16(res.Level))
			c.buf.PushU16(res.Index)
			return c.coerce(opts, valSlot)
		}
		valSlot, err := c.compileValue(FormOptions{CanChoose: false, Target: res.Index}, form[2])
		if err != nil {
			return Slot{}, err
		}
		return c.coerce(opts, valSlot)
	case ResMutableGlobal:
		markGlobalTouch(c.tail)
		setForm := value.Tuple{value.Symbol("set!"), quoteTuple(res.Value), value.Int(0), form[2]}
		if _, err := c.compileValue(FormOptions{ResultUnused: true}, setForm); err != nil {
			return Slot{}, err
		}
		return c.compileValue(opts, sym)
	default:
		// ResConstant and ResUnresolved both report the same generic error
		// here: neither an immutable constant nor an unbound name is a valid
		// varset! target, so there is nothing more specific to say.
		return Slot{}, newErr(ErrImmutableAssignment, sym)
	}
}

// compileIf implements `(if cond then [else])`.
func compileIf(c *compilerState, opts FormOptions, form value.Tuple) (Slot, error) {
	if err := checkArity(form, 3, 4); err != nil {
		return Slot{}, err
	}
	condOpts := opts
	condOpts.ResultUnused = false
	condOpts.IsTail = false
	cond, err := c.compileValue(condOpts, form[1])
	if err != nil {
		return Slot{}, err
	}
	if cond.IsNil {
		if len(form) == 4 {
			return c.compileValue(opts, form[3])
		}
		return nilSlot(), nil
	}

	jifPos := c.buf.Len()
	c.buf.PushOp(OpJumpIfFalse)
	c.buf.PushU16(cond.Index)
	c.buf.PushI32(0)

	branchOpts := FormOptions{CanChoose: false, Target: cond.Index, IsTail: opts.IsTail}
	thenSlot, err := c.compileValue(branchOpts, form[2])
	if err != nil {
		return Slot{}, err
	}
	if opts.IsTail {
		thenSlot = c.emitReturn(thenSlot)
	}
	c.dropSlot(thenSlot)

	hasElse := len(form) == 4
	reserveJump := hasElse && !opts.IsTail
	var jmpPos int
	if reserveJump {
		jmpPos = c.buf.Len()
		c.buf.PushOp(OpJump)
		c.buf.PushI32(0)
	}

	jifTarget := c.buf.Len()
	lo, hi := splitI32(int32(jifTarget - jifPos))
	c.buf.OverwriteAt(jifPos+2, lo, hi)

	if !hasElse {
		if opts.IsTail {
			return c.emitReturn(cond), nil
		}
		return thenSlot, nil
	}

	elseSlot, err := c.compileValue(branchOpts, form[3])
	if err != nil {
		return Slot{}, err
	}
	if opts.IsTail {
		elseSlot = c.emitReturn(elseSlot)
	}
	c.dropSlot(elseSlot)

	if reserveJump {
		jmpTarget := c.buf.Len()
		lo, hi := splitI32(int32(jmpTarget - jmpPos))
		c.buf.OverwriteAt(jmpPos+1, lo, hi)
	}
	return elseSlot, nil
}

// compileWhile implements `(while cond body…)`.
func compileWhile(c *compilerState, opts FormOptions, form value.Tuple) (Slot, error) {
	if len(form) < 2 {
		return Slot{}, newErrf(ErrExpectedFormArity, form[0], "got %d arguments", len(form)-1)
	}
	sub := c.tail.Push(true)
	save := c.tail
	c.tail = sub

	start := c.buf.Len()
	cond, err := c.compileValue(defaultOpts(), form[1])
	if err != nil {
		c.tail = save
		return Slot{}, err
	}
	if cond.IsNil {
		sub.Pop()
		c.tail = save
		return nilSlot(), nil
	}

	jifPos := c.buf.Len()
	c.buf.PushOp(OpJumpIfFalse)
	c.buf.PushU16(cond.Index)
	c.buf.PushI32(0)

	bodySlot, err := compileBody(c, form, 2, FormOptions{ResultUnused: true, CanChoose: true})
	if err != nil {
		c.tail = save
		return Slot{}, err
	}
	c.dropSlot(bodySlot)

	jmpPos := c.buf.Len()
	c.buf.PushOp(OpJump)
	lo, hi := splitI32(int32(start - jmpPos))
	c.buf.PushU16(lo)
	c.buf.PushU16(hi)

	jifTarget := c.buf.Len()
	lo, hi = splitI32(int32(jifTarget - jifPos))
	c.buf.OverwriteAt(jifPos+2, lo, hi)

	sub.Pop()
	c.tail = save

	if opts.ResultUnused {
		return nilSlot(), nil
	}
	// Returns the condition slot, which by now holds whatever final (falsy)
	// value ended the loop, rather than Nil. See DESIGN.md.
	return cond, nil
}

// compileFn implements `(fn [args…] body…)`.
func compileFn(c *compilerState, opts FormOptions, form value.Tuple) (Slot, error) {
	if len(form) < 2 {
		return Slot{}, newErrf(ErrExpectedFormArity, form[0], "got %d arguments", len(form)-1)
	}
	if opts.ResultUnused {
		return nilSlot(), nil
	}
	dst, err := c.getTarget(opts)
	if err != nil {
		return Slot{}, err
	}

	params, ok := form[1].(*value.Array)
	if !ok {
		return Slot{}, newErr(ErrExpectedArgumentsArray, form[1])
	}

	syms := make([]value.Symbol, len(params.Elems))
	for i, p := range params.Elems {
		sym, err := checkSymbol(p)
		if err != nil {
			return Slot{}, err
		}
		syms[i] = sym
	}
	if ampIdx := slices.Index(syms, value.Symbol("&")); ampIdx >= 0 && ampIdx != len(syms)-2 {
		return Slot{}, newErr(ErrVarargMisplaced, value.Symbol("&"))
	}

	sub := c.tail.Push(false)
	save := c.tail
	c.tail = sub

	vararg := false
	for _, sym := range syms {
		if sym == "&" {
			vararg = true
		}
		if _, err := sub.Declare(sym, false); err != nil {
			c.tail = save
			return Slot{}, err
		}
	}
	arity := len(params.Elems)
	if vararg {
		arity -= 2
	}

	sizeBefore := c.buf.Len()
	bodySlot, err := compileBody(c, form, 2, FormOptions{IsTail: true, CanChoose: true})
	if err != nil {
		c.tail = save
		return Slot{}, err
	}
	c.emitReturn(bodySlot)

	bytecode := c.buf.Tail(c.buf.Len() - sizeBefore)
	c.buf.Truncate(sizeBefore)

	fd := &FuncDef{
		Bytecode: bytecode,
		Literals: sub.Literals(),
		Locals:   sub.FrameSize(),
		Arity:    uint16(arity),
		Flags:    flagsFor(sub, vararg),
	}
	sub.Pop()
	c.tail = save

	litIdx, err := c.tail.AddLiteral(&value.FuncDef{Def: fd})
	if err != nil {
		return Slot{}, err
	}
	c.buf.PushOp(OpClosure)
	c.buf.PushU16(dst.Index)
	c.buf.PushU16(litIdx)
	return dst, nil
}

// compileQuote implements `(quote x)`.
func compileQuote(c *compilerState, opts FormOptions, form value.Tuple) (Slot, error) {
	if err := checkArity(form, 2); err != nil {
		return Slot{}, err
	}
	return c.compileLiteral(opts, form[1])
}

// compileApply implements `(apply fn arg0 … argK restSeq)`.
func compileApply(c *compilerState, opts FormOptions, form value.Tuple) (Slot, error) {
	if len(form) < 3 {
		return Slot{}, newErrf(ErrExpectedFormArity, form[0], "apply expects at least 2 arguments")
	}
	fnSlot, err := c.compileValue(defaultOpts(), form[1])
	if err != nil {
		return Slot{}, err
	}
	if fnSlot, err = c.realize(fnSlot); err != nil {
		return Slot{}, err
	}

	mid := form[2 : len(form)-1]
	tracked := make([]Slot, 0, len(mid))
	for _, a := range mid {
		s, err := c.compileValue(defaultOpts(), a)
		if err != nil {
			return Slot{}, err
		}
		if s.IsNil {
			return Slot{}, newErr(ErrInternal, a)
		}
		tracked = append(tracked, s)
	}

	restSlot, err := c.compileValue(defaultOpts(), form[len(form)-1])
	if err != nil {
		return Slot{}, err
	}
	if restSlot, err = c.realize(restSlot); err != nil {
		return Slot{}, err
	}

	c.dropSlot(fnSlot)
	for _, s := range tracked {
		c.dropSlot(s)
	}
	c.dropSlot(restSlot)

	c.emitPushArgs(tracked)
	c.buf.PushOp(OpPushRest)
	c.buf.PushU16(restSlot.Index)

	if opts.IsTail {
		c.buf.PushOp(OpTailCall)
		c.buf.PushU16(fnSlot.Index)
		return Slot{IsNil: true, HasReturned: true}, nil
	}
	dst, err := c.getTarget(opts)
	if err != nil {
		return Slot{}, err
	}
	c.buf.PushOp(OpCall)
	c.buf.PushU16(fnSlot.Index)
	c.buf.PushU16(dst.Index)
	return dst, nil
}

// compileTran implements `(tran target [value])`.
func compileTran(c *compilerState, opts FormOptions, form value.Tuple) (Slot, error) {
	if err := checkArity(form, 2, 3); err != nil {
		return Slot{}, err
	}
	tSlot, err := c.compileValue(defaultOpts(), form[1])
	if err != nil {
		return Slot{}, err
	}
	if tSlot, err = c.realize(tSlot); err != nil {
		return Slot{}, err
	}
	var vArg value.Value = value.NilValue
	if len(form) == 3 {
		vArg = form[2]
	}
	vSlot, err := c.compileValue(defaultOpts(), vArg)
	if err != nil {
		return Slot{}, err
	}
	if vSlot, err = c.realize(vSlot); err != nil {
		return Slot{}, err
	}
	c.dropSlot(tSlot)
	c.dropSlot(vSlot)
	dst, err := c.getTarget(opts)
	if err != nil {
		return Slot{}, err
	}
	c.buf.PushOp(OpTransfer)
	c.buf.PushU16(dst.Index)
	c.buf.PushU16(tSlot.Index)
	c.buf.PushU16(vSlot.Index)
	return dst, nil
}
