package compiler

// Opcode identifies a single bytecode instruction. Operand layout is fixed
// per opcode and documented word-by-word below; every word is a uint16,
// little-endian when serialized, matching the external bytecode format.
type Opcode uint16

const (
	// OpNil: NIL d -- 2 words. Sets register d to Nil.
	OpNil Opcode = iota
	// OpTrue: TRU d -- 2 words. Sets register d to true.
	OpTrue
	// OpFalse: FLS d -- 2 words. Sets register d to false.
	OpFalse
	// OpI16: I16 d v16 -- 3 words. Sets register d to a small int immediate.
	OpI16
	// OpI32: I32 d v32 -- 4 words (v32 spans 2 words).
	OpI32
	// OpI64: I64 d v64 -- 6 words (v64 spans 4 words).
	OpI64
	// OpF64: F64 d v64 -- 6 words. v64 is the IEEE-754 bit pattern.
	OpF64
	// OpConst: CST d lit -- 3 words. Loads literal-pool entry lit into d.
	OpConst
	// OpClosure: CLN d lit -- 3 words. Builds a closure from FuncDef literal
	// lit, capturing the current frame as its parent environment.
	OpClosure
	// OpMove: MOV d s -- 3 words.
	OpMove
	// OpUpval: UPV d level index -- 4 words. Reads an enclosing frame's slot.
	OpUpval
	// OpSetUpval: SUV s level index -- 4 words. Writes an enclosing frame's slot.
	OpSetUpval
	// OpArray: ARR d n e0..e(n-1) -- 3+n words.
	OpArray
	// OpTable: DIC d 2m k0 v0 .. -- 3+2m words.
	OpTable
	// OpPushArgs: PSK n a0..a(n-1) -- 2+n words. Stages the argument list for
	// the next CAL/TCL/PAR.
	OpPushArgs
	// OpPushRest: PAR rest -- 2 words. Appends a spread sequence to the staged
	// argument list (apply).
	OpPushRest
	// OpCall: CAL callee d -- 3 words.
	OpCall
	// OpTailCall: TCL callee -- 2 words.
	OpTailCall
	// OpJumpIfFalse: JIF cond off32 -- 4 words (off32 spans 2 words).
	OpJumpIfFalse
	// OpJump: JMP off32 -- 3 words (off32 spans 2 words).
	OpJump
	// OpReturn: RET s -- 2 words.
	OpReturn
	// OpReturnNil: RTN -- 1 word.
	OpReturnNil
	// OpTransfer: TRN d t v -- 4 words. Coroutine transfer.
	OpTransfer
)

var opcodeNames = [...]string{
	OpNil:         "NIL",
	OpTrue:        "TRU",
	OpFalse:       "FLS",
	OpI16:         "I16",
	OpI32:         "I32",
	OpI64:         "I64",
	OpF64:         "F64",
	OpConst:       "CST",
	OpClosure:     "CLN",
	OpMove:        "MOV",
	OpUpval:       "UPV",
	OpSetUpval:    "SUV",
	OpArray:       "ARR",
	OpTable:       "DIC",
	OpPushArgs:    "PSK",
	OpPushRest:    "PAR",
	OpCall:        "CAL",
	OpTailCall:    "TCL",
	OpJumpIfFalse: "JIF",
	OpJump:        "JMP",
	OpReturn:      "RET",
	OpReturnNil:   "RTN",
	OpTransfer:    "TRN",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "UNKNOWN"
}

// FuncFlag bits, stored in FuncDef.Flags.
type FuncFlag uint16

const (
	// FlagVararg marks a function whose final declared parameter collects
	// extra arguments into a sequence.
	FlagVararg FuncFlag = 1 << iota
	// FlagNeedsParent marks a function that must retain a link to its
	// enclosing closure's environment because it (or a function nested inside
	// it, at this same nesting boundary) reads or writes a binding living in
	// an outer function's frame via UPV/SUV.
	FlagNeedsParent
	// FlagNeedsEnv marks a function whose body directly resolves a symbol
	// against the host environment (a Constant or MutableGlobal hit).
	FlagNeedsEnv
)
