package compiler

import (
	"fmt"
	"strings"

	"github.com/wisplang/wisp/lang/value"
)

// Disassemble renders fd, and every FuncDef reachable through its literal
// pool, as an indented textual listing, for inspection and golden-file
// tests. This repository never needs to round-trip text back into bytecode
// for execution, so there is no matching assembler.
func Disassemble(fd *FuncDef) string {
	var b strings.Builder
	d := &disassembler{b: &b}
	d.writeFunc(fd, "")
	return b.String()
}

type disassembler struct {
	b      *strings.Builder
	nested []*FuncDef
}

func (d *disassembler) writeFunc(fd *FuncDef, label string) {
	name := fd.Name
	if label != "" {
		name = label
	} else if name == "" {
		name = "<anonymous>"
	}
	fmt.Fprintf(d.b, "function: %s arity=%d locals=%d flags=%s\n", name, fd.Arity, fd.Locals, flagString(fd.Flags))

	if len(fd.Literals) > 0 {
		fmt.Fprintf(d.b, "  constants:\n")
		for i, lit := range fd.Literals {
			if inner, ok := lit.(*value.FuncDef); ok {
				innerFd, _ := inner.Def.(*FuncDef)
				fmt.Fprintf(d.b, "    #%03d funcdef\n", i)
				if innerFd != nil {
					d.nested = append(d.nested, innerFd)
				}
				continue
			}
			fmt.Fprintf(d.b, "    #%03d %s %s\n", i, lit.Type(), lit.String())
		}
	}

	fmt.Fprintf(d.b, "  code:\n")
	d.writeCode(fd.Bytecode)

	nested := d.nested
	d.nested = nil
	for i, inner := range nested {
		fmt.Fprintf(d.b, "\n")
		d.writeFunc(inner, fmt.Sprintf("#%03d", i))
	}
}

// writeCode decodes code word-by-word, one instruction per line, each
// prefixed with its word offset so JIF/JMP targets are directly checkable.
func (d *disassembler) writeCode(code []uint16) {
	pc := 0
	for pc < len(code) {
		start := pc
		op := Opcode(code[pc])
		fmt.Fprintf(d.b, "    %04d %s", start, op)

		switch op {
		case OpNil, OpTrue, OpFalse:
			d.operands(code, pc+1, 1)
			pc += 2
		case OpReturn, OpTailCall, OpPushRest:
			d.operands(code, pc+1, 1)
			pc += 2
		case OpReturnNil:
			pc++
		case OpI16:
			d.operands(code, pc+1, 1)
			fmt.Fprintf(d.b, " %d", int16(at(code, pc+2)))
			pc += 3
		case OpConst, OpClosure, OpMove:
			d.operands(code, pc+1, 2)
			pc += 3
		case OpCall:
			d.operands(code, pc+1, 2)
			pc += 3
		case OpI32:
			d.operands(code, pc+1, 1)
			fmt.Fprintf(d.b, " %d", decodeI32(code, pc+2))
			pc += 4
		case OpUpval, OpSetUpval:
			d.operands(code, pc+1, 3)
			pc += 4
		case OpTransfer:
			d.operands(code, pc+1, 3)
			pc += 4
		case OpJump:
			off := decodeI32(code, pc+1)
			fmt.Fprintf(d.b, " %d -> %04d", off, start+int(off))
			pc += 3
		case OpJumpIfFalse:
			d.operands(code, pc+1, 1)
			off := decodeI32(code, pc+2)
			fmt.Fprintf(d.b, " %d -> %04d", off, start+int(off))
			pc += 4
		case OpI64, OpF64:
			d.operands(code, pc+1, 1)
			fmt.Fprintf(d.b, " 0x%016x", decodeU64(code, pc+2))
			pc += 6
		case OpPushArgs:
			n := int(at(code, pc+1))
			fmt.Fprintf(d.b, " %d", n)
			d.operands(code, pc+2, n)
			pc += 2 + n
		case OpArray:
			d.operands(code, pc+1, 1)
			n := int(at(code, pc+2))
			fmt.Fprintf(d.b, " %d", n)
			d.operands(code, pc+3, n)
			pc += 3 + n
		case OpTable:
			d.operands(code, pc+1, 1)
			n := int(at(code, pc+2))
			fmt.Fprintf(d.b, " %d", n)
			d.operands(code, pc+3, n)
			pc += 3 + n
		default:
			fmt.Fprintf(d.b, " <unknown opcode %d>\n", uint16(op))
			return
		}
		d.b.WriteString("\n")
	}
}

func (d *disassembler) operands(code []uint16, from, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprintf(d.b, " %d", at(code, from+i))
	}
}

func at(code []uint16, i int) uint16 {
	if i < 0 || i >= len(code) {
		return 0
	}
	return code[i]
}

func decodeI32(code []uint16, from int) int32 {
	return int32(decodeU32(code, from))
}

func decodeU32(code []uint16, from int) uint32 {
	return uint32(at(code, from)) | uint32(at(code, from+1))<<16
}

func decodeU64(code []uint16, from int) uint64 {
	return uint64(at(code, from)) | uint64(at(code, from+1))<<16 |
		uint64(at(code, from+2))<<32 | uint64(at(code, from+3))<<48
}

func flagString(f FuncFlag) string {
	if f == 0 {
		return "-"
	}
	var parts []string
	if f&FlagVararg != 0 {
		parts = append(parts, "VARARG")
	}
	if f&FlagNeedsParent != 0 {
		parts = append(parts, "NEEDS_PARENT")
	}
	if f&FlagNeedsEnv != 0 {
		parts = append(parts, "NEEDS_ENV")
	}
	return strings.Join(parts, "|")
}
