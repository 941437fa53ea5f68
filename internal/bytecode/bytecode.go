// Package bytecode defines the compact instruction set the compiler
// lowers Python syntax into and the VM dispatches, plus the CodeObject
// container (constants, names, exception table, nested function protos)
// that holds a compiled unit.
package bytecode

import "github.com/chonkie-inc/littrs/internal/value"

// Op is a single bytecode opcode. Operands are encoded as plain int
// fields on Instr rather than packed into the opcode itself — simpler to
// read in a disassembly dump, and this VM has no byte-budget constraint.
type Op uint8

const (
	OpLoadConst    Op = iota // A: index into constants
	OpLoadLocal              // A: local slot index
	OpStoreLocal             // A: local slot index
	OpLoadGlobal             // A: index into names
	OpStoreGlobal            // A: index into names
	OpPop                    // -
	OpDup                    // -
	OpRotN                   // A: depth

	OpBinaryOp   // A: BinOp tag
	OpUnaryOp    // A: UnaryOp tag
	OpCompareOp  // A: CmpOp tag

	OpJump            // A: target pc
	OpPopJumpIfFalse  // A: target pc
	OpPopJumpIfTrue   // A: target pc
	OpJumpIfFalseOrPop // A: target pc (keeps TOS on the false path)
	OpJumpIfTrueOrPop  // A: target pc (keeps TOS on the true path)

	OpBuildList  // A: count
	OpBuildTuple // A: count
	OpBuildDict  // A: count (key/value pairs)
	OpBuildSet   // A: count

	OpBinarySubscript  // pop obj, pop index, push obj[index]
	OpStoreSubscript   // pop obj, pop index, pop value; obj[index] = value
	OpBuildSlice       // pop step, stop, start; push a slice descriptor value
	OpLoadAttr         // A: index into names
	OpStoreAttr        // A: index into names (module attrs are immutable; used for error reporting)

	OpUnpackSequence // A: count

	OpGetIter        // pop an iterable, push an iterator state onto the frame's iterator stack
	OpIterNext       // A: loop-end target pc; push the next item, or pop the iterator and jump
	OpPopIter        // discard the frame's top iterator without exhausting it (`break`)

	OpMakeFunction // A: index into Functions; B: default-value count
	OpCall         // A: positional arg count; B: keyword pair count
	OpCallMethod   // A: method-name index; B: positional count; C: keyword pair count

	OpReturn

	OpRaise   // pop message, pop type name; raise a new exception
	OpReraise // re-raise the exception currently being handled

	OpFormatValue // pop TOS, push str(TOS) — used by f-string lowering

	OpImport     // A: module-name index; B: binding-name index
	OpImportFrom // A: module-name index; B: imported-name index; C: binding-name index

	OpNop
)

// BinOp tags the arithmetic/bitwise family dispatched by OpBinaryOp.
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinFloorDiv
	BinMod
	BinPow
	BinBitOr
	BinBitXor
	BinBitAnd
	BinLShift
	BinRShift
)

// UnaryOp tags OpUnaryOp.
type UnaryOp uint8

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
	UnaryPos
	UnaryInvert
)

// CmpOp tags OpCompareOp.
type CmpOp uint8

const (
	CmpEq CmpOp = iota
	CmpNotEq
	CmpLt
	CmpLtE
	CmpGt
	CmpGtE
	CmpIn
	CmpNotIn
	CmpIs
	CmpIsNot
)

// Instr is one bytecode instruction plus up to three operands and the
// source line it was compiled from (for error messages).
type Instr struct {
	Op   Op
	A, B, C int
	Line int
}

// ExceptionEntry is one row of a CodeObject's exception table: an
// instruction-offset range, the handler to jump to, and the operand-stack
// depth (above the frame's stack base) to restore on entry; locals are left
// as they are — CPython 3.11+ style, no runtime block
// push/pop.
type ExceptionEntry struct {
	Start, End int
	Handler    int
	StackDepth int
	TypeFilter string // "" for bare except
	AsSlot     int    // local slot to bind the exception to; -1 if none
}

// CodeObject is an immutable compiled unit: a top-level module body or a
// single function/lambda/comprehension body.
type CodeObject struct {
	Instrs    []Instr
	Consts    []value.Value
	Names     []string // global/attribute/import name pool
	NumLocals int
	Functions []*FuncProto
	ExcTable  []ExceptionEntry
	Source    string
	Name      string // "<module>" or the function's name, for diagnostics
}

// FuncProto describes a compiled function/lambda: its parameter shape
// and the CodeObject for its body. A value.Function wraps a FuncProto
// plus the caller-computed default values.
type FuncProto struct {
	Name     string
	Params   []string
	Defaults []value.Value
	Vararg   string
	Kwarg    string
	Code     *CodeObject
}
