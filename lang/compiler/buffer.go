package compiler

// Buffer is an append-only word stream with typed writers: every
// instruction field is a fixed 16-bit word, so the buffer is simply a
// growable []uint16 rather than a byte-oriented varint encoding. Truncate
// and OverwriteAt implement backpatching (jump offsets) and excision
// (splicing a nested function's body out into its own FuncDef).
type Buffer struct {
	words []uint16
}

// Len reports the current length in words.
func (b *Buffer) Len() int { return len(b.words) }

// Words returns the accumulated word stream. The caller must not retain a
// reference across further mutation of b.
func (b *Buffer) Words() []uint16 { return b.words }

// PushOp appends an opcode.
func (b *Buffer) PushOp(op Opcode) { b.words = append(b.words, uint16(op)) }

// PushU16 appends a raw 16-bit word (register index, literal index, count).
func (b *Buffer) PushU16(v uint16) { b.words = append(b.words, v) }

// PushI16 appends a sign-extended 16-bit immediate.
func (b *Buffer) PushI16(v int16) { b.words = append(b.words, uint16(v)) }

// PushI32 appends a 32-bit immediate as two words, low word first.
func (b *Buffer) PushI32(v int32) {
	u := uint32(v)
	b.words = append(b.words, uint16(u), uint16(u>>16))
}

// PushI64 appends a 64-bit immediate as four words, low word first.
func (b *Buffer) PushI64(v int64) {
	u := uint64(v)
	b.words = append(b.words, uint16(u), uint16(u>>16), uint16(u>>32), uint16(u>>48))
}

// PushBits64 appends a raw 64-bit pattern (used for F64 payloads) as four
// words, low word first.
func (b *Buffer) PushBits64(bits uint64) {
	b.words = append(b.words, uint16(bits), uint16(bits>>16), uint16(bits>>32), uint16(bits>>48))
}

// Truncate shrinks the buffer to n words.
func (b *Buffer) Truncate(n int) { b.words = b.words[:n] }

// OverwriteAt rewrites the n words starting at offset with vals, used to
// backpatch a jump operand once its target address is known.
func (b *Buffer) OverwriteAt(offset int, vals ...uint16) {
	copy(b.words[offset:offset+len(vals)], vals)
}

// Tail returns a copy of the last n words, used to excise a nested
// function's body out of the outer buffer (compile_function splicing).
func (b *Buffer) Tail(n int) []uint16 {
	out := make([]uint16, n)
	copy(out, b.words[len(b.words)-n:])
	return out
}
