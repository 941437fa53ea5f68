package compiler

import (
	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/pyast"
	"github.com/chonkie-inc/littrs/internal/value"
)

func (c *compilerCtx) compileStmts(u *unit, stmts []pyast.Stmt) error {
	for _, s := range stmts {
		if err := c.compileStmt(u, s); err != nil {
			return err
		}
	}
	return nil
}

func (c *compilerCtx) compileStmt(u *unit, s pyast.Stmt) error {
	line := lineOf(s)
	switch st := s.(type) {
	case *pyast.ExprStmt:
		if err := c.compileExpr(u, st.X); err != nil {
			return err
		}
		u.emit(bytecode.OpPop, line)
		return nil

	case *pyast.AssignStmt:
		if err := c.compileExpr(u, st.Value); err != nil {
			return err
		}
		for i, tgt := range st.Targets {
			if i < len(st.Targets)-1 {
				u.emit(bytecode.OpDup, line)
			}
			if err := c.storeTarget(u, tgt, line); err != nil {
				return err
			}
		}
		return nil

	case *pyast.AugAssignStmt:
		return c.compileAugAssign(u, st, line)

	case *pyast.IfStmt:
		return c.compileIf(u, st, line)

	case *pyast.WhileStmt:
		return c.compileWhile(u, st, line)

	case *pyast.ForStmt:
		return c.compileFor(u, st, line)

	case *pyast.BreakStmt:
		if len(u.loopBreaks) == 0 {
			return &CompileError{Msg: "'break' outside loop", Line: line}
		}
		top := len(u.loopBreaks) - 1
		if u.loopKinds[top] == "for" {
			u.emit(bytecode.OpPopIter, line) // loop's iterator lives on the frame's iterator stack, not the operand stack
		}
		idx := u.emit(bytecode.OpJump, line)
		u.loopBreaks[top] = append(u.loopBreaks[top], idx)
		return nil

	case *pyast.ContinueStmt:
		if len(u.loopContinues) == 0 {
			return &CompileError{Msg: "'continue' outside loop", Line: line}
		}
		idx := u.emit(bytecode.OpJump, line)
		top := len(u.loopContinues) - 1
		u.loopContinues[top] = append(u.loopContinues[top], idx)
		return nil

	case *pyast.PassStmt:
		return nil

	case *pyast.ReturnStmt:
		if !u.isFunction {
			return &CompileError{Msg: "'return' outside function", Line: line}
		}
		if st.Value != nil {
			if err := c.compileExpr(u, st.Value); err != nil {
				return err
			}
		} else {
			u.emit(bytecode.OpLoadConst, line, u.constIndex(value.None()))
		}
		u.emit(bytecode.OpReturn, line)
		return nil

	case *pyast.RaiseStmt:
		return c.compileRaise(u, st, line)

	case *pyast.AssertStmt:
		return c.compileAssert(u, st, line)

	case *pyast.FuncDef:
		return c.compileFuncDef(u, st, line)

	case *pyast.TryStmt:
		return c.compileTry(u, st, line)

	case *pyast.ImportStmt:
		return c.compileImport(u, st, line)

	default:
		return &CompileError{Msg: "unsupported statement", Line: line}
	}
}

// storeTarget emits the instructions to pop/store the value currently on
// top of the stack into target, which may be a plain name, a subscript,
// or a tuple/list for unpacking assignment.
func (c *compilerCtx) storeTarget(u *unit, target pyast.Expr, line int) error {
	switch t := target.(type) {
	case *pyast.Name:
		c.storeName(u, t.Ident, line)
		return nil
	case *pyast.IndexExpr:
		if err := c.compileExpr(u, t.Index); err != nil {
			return err
		}
		if err := c.compileExpr(u, t.X); err != nil {
			return err
		}
		u.emit(bytecode.OpStoreSubscript, line)
		return nil
	case *pyast.SliceExpr:
		if err := c.compileOptional(u, t.Start, line); err != nil {
			return err
		}
		if err := c.compileOptional(u, t.Stop, line); err != nil {
			return err
		}
		if err := c.compileOptional(u, t.Step, line); err != nil {
			return err
		}
		u.emit(bytecode.OpBuildSlice, line)
		if err := c.compileExpr(u, t.X); err != nil {
			return err
		}
		u.emit(bytecode.OpStoreSubscript, line)
		return nil
	case *pyast.TupleExpr:
		return c.storeUnpack(u, t.Elts, line)
	case *pyast.ListExpr:
		return c.storeUnpack(u, t.Elts, line)
	case *pyast.AttrExpr:
		return &CompileError{Msg: "cannot assign to attribute", Line: line}
	default:
		return &CompileError{Msg: "invalid assignment target", Line: line}
	}
}

func (c *compilerCtx) storeUnpack(u *unit, elts []pyast.Expr, line int) error {
	u.emit(bytecode.OpUnpackSequence, line, len(elts))
	for _, e := range elts {
		if err := c.storeTarget(u, e, line); err != nil {
			return err
		}
	}
	return nil
}

// resolveName returns (isLocal, slotOrNameIndex) for loading/storing a
// bare identifier, per spec §4.3: locals first by compiled slot index,
// else module globals by name.
func (u *unit) resolveName(name string) (isLocal bool, idx int) {
	if u.isFunction {
		if slot, ok := u.locals[name]; ok {
			return true, slot
		}
	}
	return false, 0 // caller uses nameIndex(name) for the global path
}

func (c *compilerCtx) loadName(u *unit, name string, line int) {
	if slot, ok := u.locals[name]; u.isFunction && ok {
		u.emit(bytecode.OpLoadLocal, line, slot)
		return
	}
	u.emit(bytecode.OpLoadGlobal, line, u.nameIndex(name))
}

func (c *compilerCtx) storeName(u *unit, name string, line int) {
	if slot, ok := u.locals[name]; u.isFunction && ok {
		u.emit(bytecode.OpStoreLocal, line, slot)
		return
	}
	u.emit(bytecode.OpStoreGlobal, line, u.nameIndex(name))
}

func (c *compilerCtx) compileAugAssign(u *unit, st *pyast.AugAssignStmt, line int) error {
	// `x += v` desugars to `x = x + v`. Subscript targets are
	// re-evaluated twice (once to read, once to store) rather than
	// cached on the stack with rotations — simpler, and the accepted
	// subset has no side-effecting subscript expressions to worry about
	// duplicating.
	switch t := st.Target.(type) {
	case *pyast.Name:
		c.loadName(u, t.Ident, line)
	case *pyast.IndexExpr:
		if err := c.compileExpr(u, t.Index); err != nil {
			return err
		}
		if err := c.compileExpr(u, t.X); err != nil {
			return err
		}
		u.emit(bytecode.OpBinarySubscript, line)
	default:
		return &CompileError{Msg: "invalid augmented assignment target", Line: line}
	}
	if err := c.compileExpr(u, st.Value); err != nil {
		return err
	}
	u.emit(bytecode.OpBinaryOp, line, int(augBinOp(st.Op)))
	return c.storeTarget(u, st.Target, line)
}

func augBinOp(op string) bytecode.BinOp {
	switch op {
	case "+":
		return bytecode.BinAdd
	case "-":
		return bytecode.BinSub
	case "*":
		return bytecode.BinMul
	case "/":
		return bytecode.BinDiv
	case "//":
		return bytecode.BinFloorDiv
	case "%":
		return bytecode.BinMod
	case "**":
		return bytecode.BinPow
	case "&":
		return bytecode.BinBitAnd
	case "|":
		return bytecode.BinBitOr
	case "^":
		return bytecode.BinBitXor
	case "<<":
		return bytecode.BinLShift
	case ">>":
		return bytecode.BinRShift
	default:
		return bytecode.BinAdd
	}
}

func (c *compilerCtx) compileIf(u *unit, st *pyast.IfStmt, line int) error {
	if err := c.compileExpr(u, st.Cond); err != nil {
		return err
	}
	jumpElse := u.emit(bytecode.OpPopJumpIfFalse, line)
	if err := c.compileStmts(u, st.Body); err != nil {
		return err
	}
	jumpEnd := u.emit(bytecode.OpJump, line)
	u.patchJump(jumpElse, u.here())
	if err := c.compileStmts(u, st.Else); err != nil {
		return err
	}
	u.patchJump(jumpEnd, u.here())
	return nil
}

func (c *compilerCtx) compileWhile(u *unit, st *pyast.WhileStmt, line int) error {
	start := u.here()
	if err := c.compileExpr(u, st.Cond); err != nil {
		return err
	}
	exitJump := u.emit(bytecode.OpPopJumpIfFalse, line)

	u.loopBreaks = append(u.loopBreaks, nil)
	u.loopContinues = append(u.loopContinues, nil)
	u.loopKinds = append(u.loopKinds, "while")

	if err := c.compileStmts(u, st.Body); err != nil {
		return err
	}
	u.emit(bytecode.OpJump, line, start)
	end := u.here()
	u.patchJump(exitJump, end)

	breaks := u.loopBreaks[len(u.loopBreaks)-1]
	continues := u.loopContinues[len(u.loopContinues)-1]
	u.loopBreaks = u.loopBreaks[:len(u.loopBreaks)-1]
	u.loopContinues = u.loopContinues[:len(u.loopContinues)-1]
	u.loopKinds = u.loopKinds[:len(u.loopKinds)-1]
	for _, idx := range breaks {
		u.patchJump(idx, end)
	}
	for _, idx := range continues {
		u.patchJump(idx, start)
	}
	return nil
}

func (c *compilerCtx) compileFor(u *unit, st *pyast.ForStmt, line int) error {
	if err := c.compileExpr(u, st.Iter); err != nil {
		return err
	}
	u.emit(bytecode.OpGetIter, line)
	loopStart := u.here()
	exitJump := u.emit(bytecode.OpIterNext, line)

	if err := c.storeTarget(u, st.Target, line); err != nil {
		return err
	}

	u.loopBreaks = append(u.loopBreaks, nil)
	u.loopContinues = append(u.loopContinues, nil)
	u.loopKinds = append(u.loopKinds, "for")

	if err := c.compileStmts(u, st.Body); err != nil {
		return err
	}
	u.emit(bytecode.OpJump, line, loopStart)
	end := u.here()
	u.patchJump(exitJump, end)

	breaks := u.loopBreaks[len(u.loopBreaks)-1]
	continues := u.loopContinues[len(u.loopContinues)-1]
	u.loopBreaks = u.loopBreaks[:len(u.loopBreaks)-1]
	u.loopContinues = u.loopContinues[:len(u.loopContinues)-1]
	u.loopKinds = u.loopKinds[:len(u.loopKinds)-1]
	for _, idx := range breaks {
		u.patchJump(idx, end)
	}
	for _, idx := range continues {
		u.patchJump(idx, loopStart)
	}
	return nil
}

// compileRaise handles the three forms the accepted subset allows:
// `raise Type("msg")`, `raise Type`, and bare `raise` (re-raise). There is
// no exception-class hierarchy at runtime — the type name string is all
// except-clause matching ever sees.
func (c *compilerCtx) compileRaise(u *unit, st *pyast.RaiseStmt, line int) error {
	if st.Exc == nil {
		u.emit(bytecode.OpReraise, line)
		return nil
	}
	if call, ok := st.Exc.(*pyast.CallExpr); ok {
		if name, ok := call.Func.(*pyast.Name); ok {
			u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Str(name.Ident)))
			if len(call.Args) > 0 {
				if err := c.compileExpr(u, call.Args[0]); err != nil {
					return err
				}
			} else {
				u.emit(bytecode.OpLoadConst, line, u.constIndex(value.None()))
			}
			u.emit(bytecode.OpRaise, line)
			return nil
		}
	}
	if name, ok := st.Exc.(*pyast.Name); ok {
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Str(name.Ident)))
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.None()))
		u.emit(bytecode.OpRaise, line)
		return nil
	}
	return &CompileError{Msg: "only 'raise ExceptionType(...)' is supported", Line: line}
}

func (c *compilerCtx) compileAssert(u *unit, st *pyast.AssertStmt, line int) error {
	if err := c.compileExpr(u, st.Cond); err != nil {
		return err
	}
	okJump := u.emit(bytecode.OpPopJumpIfTrue, line)
	u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Str("AssertionError")))
	if st.Msg != nil {
		if err := c.compileExpr(u, st.Msg); err != nil {
			return err
		}
	} else {
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Str("")))
	}
	u.emit(bytecode.OpRaise, line)
	u.patchJump(okJump, u.here())
	return nil
}

func (c *compilerCtx) compileFuncDef(u *unit, st *pyast.FuncDef, line int) error {
	proto, err := c.compileFunctionBody(st.Name, st.Params, st.Vararg, st.Kwarg, st.Body, u)
	if err != nil {
		return err
	}
	for _, d := range st.Defaults {
		if err := c.compileExpr(u, d); err != nil {
			return err
		}
	}
	fnIdx := len(u.functions)
	u.functions = append(u.functions, proto)
	u.emit(bytecode.OpMakeFunction, line, fnIdx, len(st.Defaults))
	c.storeName(u, st.Name, line)
	return nil
}

// compileFunctionBody compiles a nested function/lambda body into its own
// CodeObject + FuncProto. Free names inside it are always resolved via
// globals at call time (no closures across scopes, per spec §4.2).
func (c *compilerCtx) compileFunctionBody(name string, params []string, vararg, kwarg string, body []pyast.Stmt, outer *unit) (*bytecode.FuncProto, error) {
	locals, _ := collectLocals(params, vararg, kwarg, body)
	nu := newUnit(true, locals)
	if err := c.compileStmts(nu, body); err != nil {
		return nil, err
	}
	nu.emit(bytecode.OpLoadConst, 0, nu.constIndex(value.None()))
	nu.emit(bytecode.OpReturn, 0)
	code := nu.toCodeObject("", name)
	return &bytecode.FuncProto{Name: name, Params: params, Vararg: vararg, Kwarg: kwarg, Code: code}, nil
}

func (c *compilerCtx) compileTry(u *unit, st *pyast.TryStmt, line int) error {
	start := u.here()
	if err := c.compileStmts(u, st.Body); err != nil {
		return err
	}
	if err := c.compileStmts(u, st.Else); err != nil {
		return err
	}
	afterJump := u.emit(bytecode.OpJump, line)
	bodyEnd := u.here()

	var handlerEnds []int
	for _, h := range st.Handler {
		handlerStart := u.here()
		slot := -1
		if h.As != "" {
			if s, ok := u.locals[h.As]; u.isFunction && ok {
				slot = s
			}
		}
		u.excTable = append(u.excTable, bytecode.ExceptionEntry{
			Start: start, End: bodyEnd, Handler: handlerStart, TypeFilter: h.Type, AsSlot: slot,
		})
		if h.As != "" && slot < 0 {
			// Module-level `as` binding: store via global name after the
			// VM pushes the exception value on entry to the handler.
			u.emit(bytecode.OpStoreGlobal, h.Base.Pos.Line, u.nameIndex(h.As))
		} else if h.As != "" {
			u.emit(bytecode.OpStoreLocal, h.Base.Pos.Line, slot)
		} else {
			u.emit(bytecode.OpPop, h.Base.Pos.Line)
		}
		if err := c.compileStmts(u, h.Body); err != nil {
			return err
		}
		handlerEnds = append(handlerEnds, u.emit(bytecode.OpJump, line))
	}
	end := u.here()
	u.patchJump(afterJump, end)
	for _, idx := range handlerEnds {
		u.patchJump(idx, end)
	}
	return nil
}

func (c *compilerCtx) compileImport(u *unit, st *pyast.ImportStmt, line int) error {
	if len(st.Names) == 0 {
		bindName := st.Module
		if st.Alias != "" {
			bindName = st.Alias
		}
		u.emit(bytecode.OpImport, line, u.nameIndex(st.Module), u.nameIndex(bindName))
		return nil
	}
	modIdx := u.nameIndex(st.Module)
	for _, n := range st.Names {
		bindName := n.Name
		if n.Alias != "" {
			bindName = n.Alias
		}
		u.emit(bytecode.OpImportFrom, line, modIdx, u.nameIndex(n.Name), u.nameIndex(bindName))
	}
	return nil
}
