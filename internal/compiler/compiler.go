// Package compiler lowers an internal/pyast tree into an
// internal/bytecode.CodeObject: the scope pass, constant/name pools,
// exception table emission, f-string lowering, and comprehension
// inner-CodeObjects described in spec §4.2.
package compiler

import (
	"fmt"

	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/pyast"
	"github.com/chonkie-inc/littrs/internal/value"
)

// CompileError is a compile-time failure: unsupported syntax or an
// internal inconsistency detected before any execution.
type CompileError struct {
	Msg  string
	Line int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d)", e.Msg, e.Line)
	}
	return e.Msg
}

// unit holds the in-progress state for one CodeObject (module or
// function/lambda/comprehension body).
type unit struct {
	instrs    []bytecode.Instr
	consts    []value.Value
	constIdx  map[string]int
	names     []string
	nameIdx   map[string]int
	functions []*bytecode.FuncProto

	isFunction bool
	locals     map[string]int
	numLocals  int

	excTable []bytecode.ExceptionEntry

	loopBreaks    [][]int // stack of pending jump-patch lists for `break`
	loopContinues [][]int
	loopKinds     []string // "for" or "while", parallel to the stacks above
}

func newUnit(isFunction bool, locals map[string]int) *unit {
	return &unit{
		constIdx:   make(map[string]int),
		nameIdx:    make(map[string]int),
		isFunction: isFunction,
		locals:     locals,
		numLocals:  len(locals),
	}
}

func (u *unit) emit(op bytecode.Op, line int, operands ...int) int {
	in := bytecode.Instr{Op: op, Line: line}
	if len(operands) > 0 {
		in.A = operands[0]
	}
	if len(operands) > 1 {
		in.B = operands[1]
	}
	if len(operands) > 2 {
		in.C = operands[2]
	}
	u.instrs = append(u.instrs, in)
	return len(u.instrs) - 1
}

func (u *unit) here() int { return len(u.instrs) }

func (u *unit) patchJump(idx int, target int) { u.instrs[idx].A = target }

func (u *unit) constIndex(v value.Value) int {
	key := constKey(v)
	if i, ok := u.constIdx[key]; ok {
		return i
	}
	i := len(u.consts)
	u.consts = append(u.consts, v)
	u.constIdx[key] = i
	return i
}

func constKey(v value.Value) string {
	return fmt.Sprintf("%d:%s", v.Kind, value.Repr(v))
}

func (u *unit) nameIndex(name string) int {
	if i, ok := u.nameIdx[name]; ok {
		return i
	}
	i := len(u.names)
	u.names = append(u.names, name)
	u.nameIdx[name] = i
	return i
}

// Compile compiles a full module into a top-level CodeObject. When the
// module's last statement is an expression statement, the module returns
// that expression's value; otherwise it returns None.
func Compile(mod *pyast.Module, source string) (*bytecode.CodeObject, error) {
	u := newUnit(false, nil)
	c := &compilerCtx{}
	body := mod.Body
	var last *pyast.ExprStmt
	if n := len(body); n > 0 {
		if es, ok := body[n-1].(*pyast.ExprStmt); ok {
			last, body = es, body[:n-1]
		}
	}
	if err := c.compileStmts(u, body); err != nil {
		return nil, err
	}
	if last != nil {
		if err := c.compileExpr(u, last.X); err != nil {
			return nil, err
		}
	} else {
		u.emit(bytecode.OpLoadConst, 0, u.constIndex(value.None()))
	}
	u.emit(bytecode.OpReturn, 0)
	return u.toCodeObject(source, "<module>"), nil
}

// compilerCtx carries state that is constant across the whole compile
// (none currently, but keeps the calling convention symmetric with
// functions that do need shared context, like recursion guards).
type compilerCtx struct{}

func (u *unit) toCodeObject(source, name string) *bytecode.CodeObject {
	return &bytecode.CodeObject{
		Instrs:    u.instrs,
		Consts:    u.consts,
		Names:     u.names,
		NumLocals: u.numLocals,
		Functions: u.functions,
		ExcTable:  u.excTable,
		Source:    source,
		Name:      name,
	}
}

func lineOf(n pyast.Node) int { return n.Position().Line }
