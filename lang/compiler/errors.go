package compiler

import (
	"fmt"

	"github.com/wisplang/wisp/lang/value"
)

// ErrorKind enumerates the compiler's fatal error conditions. Messages are
// human readable; callers that need to branch on kind should switch on Kind,
// not on the formatted string.
type ErrorKind int

const (
	ErrExpectedSymbol ErrorKind = iota
	ErrExpectedArgumentsArray
	ErrExpectedFormArity
	ErrUnboundSymbol
	ErrImmutableAssignment
	ErrTooManyLocals
	ErrRecursionTooDeep
	ErrVarargMisplaced
	ErrInternal
)

var errKindText = map[ErrorKind]string{
	ErrExpectedSymbol:         "expected a symbol",
	ErrExpectedArgumentsArray: "expected an array of parameter symbols",
	ErrExpectedFormArity:      "wrong number of arguments to special form",
	ErrUnboundSymbol:          "unbound symbol",
	ErrImmutableAssignment:    "cannot varset! an immutable binding",
	ErrTooManyLocals:          "too many local variables",
	ErrRecursionTooDeep:       "recursed too deeply while compiling",
	ErrVarargMisplaced:        "& is reserved for vararg argument in function",
	ErrInternal:               "internal compiler error",
}

// Error is the single error type the compiler returns. It carries the Kind
// for programmatic branching and, where relevant, the offending Value (e.g.
// the unbound Symbol).
type Error struct {
	Kind    ErrorKind
	Value   value.Value
	Context string
}

func (e *Error) Error() string {
	msg := errKindText[e.Kind]
	if e.Context != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Context)
	}
	if e.Value != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Value.String())
	}
	return msg
}

func newErr(kind ErrorKind, v value.Value) *Error {
	return &Error{Kind: kind, Value: v}
}

func newErrf(kind ErrorKind, v value.Value, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Value: v, Context: fmt.Sprintf(format, args...)}
}
