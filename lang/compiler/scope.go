package compiler

import (
	"fmt"

	"github.com/wisplang/wisp/lang/value"
)

// localBinding is the payload of Scope.locals: a slot index plus a
// mutability flag, kept as a small struct rather than bit-packed into a
// single integer since Go has no motivation to do the latter.
type localBinding struct {
	index   uint16
	mutable bool
}

// Scope is one lexical frame in the scope chain: either a "same function"
// sub-scope (sharing its parent's literal pool and local-slot counter) or a
// "new function" scope (a fresh frame). See DESIGN.md for the rationale
// behind representing the shared same-function state as a pointer to a
// separate frame struct rather than aliasing individual fields directly onto
// Scope.
type Scope struct {
	level uint32

	frame *frameData // shared by this scope and every same-function descendant

	locals   map[value.Symbol]localBinding
	parent   *Scope
	funcRoot *Scope // nearest ancestor (or self) that is a new-function scope

	touchParent bool
	touchEnv    bool
}

// frameData holds the per-function state a same-function sub-scope shares
// with its defining new-function scope: the slot allocator and literal
// pool. It is allocated once per function and referenced (never copied) by
// every scope belonging to that function.
type frameData struct {
	nextLocal uint16
	frameSize uint16
	freeHeap  []uint16

	literalIndex map[string]uint16
	literals     []value.Value
}

// NewRootScope creates the top-level scope (level 0, new function).
func NewRootScope() *Scope {
	return &Scope{
		frame:   &frameData{literalIndex: map[string]uint16{}},
		locals:  map[value.Symbol]localBinding{},
	}
}

// Push creates a child scope. sameFunction=true creates a lexical sub-scope
// sharing this scope's frame; sameFunction=false opens a fresh function
// frame at level+1.
func (s *Scope) Push(sameFunction bool) *Scope {
	child := &Scope{
		parent: s,
		locals: map[value.Symbol]localBinding{},
	}
	if sameFunction {
		child.level = s.level
		child.frame = s.frame
		child.funcRoot = s.funcRoot
		if child.funcRoot == nil {
			child.funcRoot = s
		}
	} else {
		child.level = s.level + 1
		child.frame = &frameData{literalIndex: map[string]uint16{}}
		child.funcRoot = child
	}
	return child
}

// Pop detaches the scope from the chain. A same-function scope shares its
// parent's frameData by pointer, so the high-water mark is already visible
// to the parent with no copying required; a new-function scope's frameData
// belongs only to the function being finished and is read directly via
// FrameSize when building its FuncDef. Pop exists, distinct from simply
// discarding the *Scope, to keep an explicit push/pop scope lifecycle and
// to give future bookkeeping (e.g. debug scope naming) a single seam.
func (s *Scope) Pop() {}

// GetLocal allocates a fresh slot index, reusing the freelist (LIFO) before
// growing next_local.
func (s *Scope) GetLocal() (uint16, error) {
	f := s.frame
	if n := len(f.freeHeap); n > 0 {
		idx := f.freeHeap[n-1]
		f.freeHeap = f.freeHeap[:n-1]
		return idx, nil
	}
	if f.nextLocal == 0xFFFF {
		return 0, newErr(ErrTooManyLocals, nil)
	}
	idx := f.nextLocal
	f.nextLocal++
	if f.nextLocal > f.frameSize {
		f.frameSize = f.nextLocal
	}
	return idx, nil
}

// FreeLocal returns idx to the freelist for reuse.
func (s *Scope) FreeLocal(idx uint16) {
	s.frame.freeHeap = append(s.frame.freeHeap, idx)
}

// FrameSize reports the high-water mark of locals ever allocated in this
// function frame.
func (s *Scope) FrameSize() uint16 { return s.frame.frameSize }

// AddLiteral deduplicates v against this function frame's literal pool,
// returning its index.
func (s *Scope) AddLiteral(v value.Value) (uint16, error) {
	var hk string
	if fd, ok := v.(*value.FuncDef); ok {
		// FuncDefs are equal only by identity (value.Equal) and HashKey
		// rejects them, so they are keyed by pointer.
		hk = fmt.Sprintf("F%p", fd)
	} else {
		var err error
		if hk, err = value.HashKey(v); err != nil {
			return 0, newErr(ErrInternal, nil)
		}
	}
	if idx, ok := s.frame.literalIndex[hk]; ok {
		return idx, nil
	}
	idx := uint16(len(s.frame.literals))
	s.frame.literals = append(s.frame.literals, v)
	s.frame.literalIndex[hk] = idx
	return idx, nil
}

// Literals returns the ordered literal-pool snapshot for this function
// frame.
func (s *Scope) Literals() []value.Value { return s.frame.literals }

// Declare binds sym to a freshly allocated local in this scope, returning
// its index. Redeclaring a symbol already bound in this exact scope simply
// overwrites the mapping (shadowing within the same scope); the previously
// allocated slot is not freed (it may still be referenced by already-emitted
// code through a captured closure).
func (s *Scope) Declare(sym value.Symbol, mutable bool) (uint16, error) {
	idx, err := s.GetLocal()
	if err != nil {
		return 0, err
	}
	s.locals[sym] = localBinding{index: idx, mutable: mutable}
	return idx, nil
}

// lookupLocal searches only this scope's own locals map (not its parents).
func (s *Scope) lookupLocal(sym value.Symbol) (localBinding, bool) {
	b, ok := s.locals[sym]
	return b, ok
}
