// Package sexpr implements a minimal textual s-expression reader: a
// convenience front-end that parses a human-writable surface syntax into
// the tagged value.Value AST the compiler consumes. It is not a full
// language parser — it performs no macro expansion, scope resolution, or
// type checking, only the literal-reading slice this repository needs to
// drive the compiler from plain text fixtures and CLI input.
package sexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wisplang/wisp/lang/value"
)

// Error reports a reading failure together with the byte offset it
// occurred at.
type Error struct {
	Offset int
	Msg    string
}

func (e *Error) Error() string { return fmt.Sprintf("sexpr: offset %d: %s", e.Offset, e.Msg) }

// Read parses the first complete form in src and returns it. Trailing
// input after the form (other than whitespace and comments) is an error;
// use ReadAll to parse a whole file of top-level forms.
func Read(src []byte) (value.Value, error) {
	r := &reader{src: string(src)}
	r.skipSpace()
	v, err := r.readForm()
	if err != nil {
		return nil, err
	}
	r.skipSpace()
	if r.pos != len(r.src) {
		return nil, r.errorf("unexpected trailing input")
	}
	return v, nil
}

// ReadAll parses every top-level form in src and returns them in order.
// Used by the CLI to load a source file containing multiple top-level
// definitions; the compiler itself only ever consumes one root, so callers
// typically wrap the result in a `(do ...)` Tuple before compiling.
func ReadAll(src []byte) ([]value.Value, error) {
	r := &reader{src: string(src)}
	var forms []value.Value
	for {
		r.skipSpace()
		if r.pos == len(r.src) {
			return forms, nil
		}
		v, err := r.readForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, v)
	}
}

type reader struct {
	src string
	pos int
}

func (r *reader) errorf(format string, args ...interface{}) error {
	return &Error{Offset: r.pos, Msg: fmt.Sprintf(format, args...)}
}

func (r *reader) peek() (byte, bool) {
	if r.pos >= len(r.src) {
		return 0, false
	}
	return r.src[r.pos], true
}

func (r *reader) skipSpace() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',':
			r.pos++
		case c == ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		default:
			return
		}
	}
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '[', ']', '{', '}', ' ', '\t', '\n', '\r', ',', ';', '"', '\'':
		return true
	}
	return false
}

func (r *reader) readForm() (value.Value, error) {
	c, ok := r.peek()
	if !ok {
		return nil, r.errorf("unexpected end of input")
	}
	switch c {
	case '(':
		return r.readSeq('(', ')', true)
	case '[':
		return r.readSeq('[', ']', false)
	case '{':
		return r.readTable()
	case ')', ']', '}':
		return nil, r.errorf("unexpected %q", c)
	case '"':
		return r.readString()
	case '\'':
		r.pos++
		r.skipSpace()
		inner, err := r.readForm()
		if err != nil {
			return nil, err
		}
		return value.Tuple{value.Symbol("quote"), inner}, nil
	default:
		return r.readAtom()
	}
}

func (r *reader) readSeq(open, close byte, asTuple bool) (value.Value, error) {
	r.pos++ // consume open
	var elems []value.Value
	for {
		r.skipSpace()
		c, ok := r.peek()
		if !ok {
			return nil, r.errorf("unterminated %q", open)
		}
		if c == close {
			r.pos++
			break
		}
		v, err := r.readForm()
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	if asTuple {
		return value.Tuple(elems), nil
	}
	return value.NewArray(elems...), nil
}

func (r *reader) readTable() (value.Value, error) {
	r.pos++ // consume '{'
	tbl := value.NewTable(8)
	for {
		r.skipSpace()
		c, ok := r.peek()
		if !ok {
			return nil, r.errorf("unterminated '{'")
		}
		if c == '}' {
			r.pos++
			break
		}
		k, err := r.readForm()
		if err != nil {
			return nil, err
		}
		r.skipSpace()
		if c, ok := r.peek(); !ok || c == '}' {
			return nil, r.errorf("table literal missing value for key %s", k.String())
		}
		v, err := r.readForm()
		if err != nil {
			return nil, err
		}
		if err := tbl.Set(k, v); err != nil {
			return nil, r.errorf("table literal: %s", err)
		}
	}
	return tbl, nil
}

func (r *reader) readString() (value.Value, error) {
	start := r.pos
	r.pos++ // consume opening quote
	var b strings.Builder
	for {
		if r.pos >= len(r.src) {
			return nil, &Error{Offset: start, Msg: "unterminated string literal"}
		}
		c := r.src[r.pos]
		if c == '"' {
			r.pos++
			return value.String_(b.String()), nil
		}
		if c == '\\' {
			r.pos++
			if r.pos >= len(r.src) {
				return nil, &Error{Offset: start, Msg: "unterminated escape in string literal"}
			}
			switch esc := r.src[r.pos]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '"':
				b.WriteByte(esc)
			default:
				return nil, r.errorf("invalid escape \\%c", esc)
			}
			r.pos++
			continue
		}
		b.WriteByte(c)
		r.pos++
	}
}

func (r *reader) readAtom() (value.Value, error) {
	start := r.pos
	for r.pos < len(r.src) && !isDelim(r.src[r.pos]) {
		r.pos++
	}
	tok := r.src[start:r.pos]
	if tok == "" {
		return nil, r.errorf("unexpected %q", r.src[start])
	}
	switch tok {
	case "nil":
		return value.NilValue, nil
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return value.Int(n), nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil && looksNumeric(tok) {
		return value.Real(f), nil
	}
	return value.Symbol(tok), nil
}

// looksNumeric rejects bare symbols like "+" or "-" or "..." that
// strconv.ParseFloat would otherwise happily reject anyway, but guards
// against accepting exotic float spellings (e.g. "inf", "nan") as numbers
// when they're meant to be ordinary symbols in this language.
func looksNumeric(tok string) bool {
	i := 0
	if i < len(tok) && (tok[i] == '+' || tok[i] == '-') {
		i++
	}
	if i >= len(tok) {
		return false
	}
	sawDigit := false
	for ; i < len(tok); i++ {
		switch {
		case tok[i] >= '0' && tok[i] <= '9':
			sawDigit = true
		case tok[i] == '.' || tok[i] == 'e' || tok[i] == 'E' || tok[i] == '+' || tok[i] == '-':
		default:
			return false
		}
	}
	return sawDigit
}
