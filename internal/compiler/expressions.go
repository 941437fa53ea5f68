package compiler

import (
	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/pyast"
	"github.com/chonkie-inc/littrs/internal/value"
)

func (c *compilerCtx) compileExpr(u *unit, e pyast.Expr) error {
	line := lineOf(e)
	switch ex := e.(type) {
	case *pyast.NoneLit:
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.None()))
		return nil
	case *pyast.BoolLit:
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Bool(ex.Value)))
		return nil
	case *pyast.IntLit:
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Int(ex.Value)))
		return nil
	case *pyast.FloatLit:
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Float(ex.Value)))
		return nil
	case *pyast.StrLit:
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Str(ex.Value)))
		return nil
	case *pyast.FStringExpr:
		return c.compileFString(u, ex, line)
	case *pyast.Name:
		c.loadName(u, ex.Ident, line)
		return nil
	case *pyast.ListExpr:
		for _, el := range ex.Elts {
			if err := c.compileExpr(u, el); err != nil {
				return err
			}
		}
		u.emit(bytecode.OpBuildList, line, len(ex.Elts))
		return nil
	case *pyast.TupleExpr:
		for _, el := range ex.Elts {
			if err := c.compileExpr(u, el); err != nil {
				return err
			}
		}
		u.emit(bytecode.OpBuildTuple, line, len(ex.Elts))
		return nil
	case *pyast.SetExpr:
		for _, el := range ex.Elts {
			if err := c.compileExpr(u, el); err != nil {
				return err
			}
		}
		u.emit(bytecode.OpBuildSet, line, len(ex.Elts))
		return nil
	case *pyast.DictExpr:
		for i := range ex.Keys {
			if err := c.compileExpr(u, ex.Keys[i]); err != nil {
				return err
			}
			if err := c.compileExpr(u, ex.Vals[i]); err != nil {
				return err
			}
		}
		u.emit(bytecode.OpBuildDict, line, len(ex.Keys))
		return nil
	case *pyast.UnaryExpr:
		return c.compileUnary(u, ex, line)
	case *pyast.BinExpr:
		return c.compileBin(u, ex, line)
	case *pyast.BoolOpExpr:
		return c.compileBoolOp(u, ex, line)
	case *pyast.CompareExpr:
		return c.compileCompare(u, ex, line)
	case *pyast.CondExpr:
		return c.compileCond(u, ex, line)
	case *pyast.CallExpr:
		return c.compileCall(u, ex, line)
	case *pyast.MethodCallExpr:
		return c.compileMethodCall(u, ex, line)
	case *pyast.AttrExpr:
		if err := c.compileExpr(u, ex.X); err != nil {
			return err
		}
		u.emit(bytecode.OpLoadAttr, line, u.nameIndex(ex.Attr))
		return nil
	case *pyast.IndexExpr:
		if err := c.compileExpr(u, ex.Index); err != nil {
			return err
		}
		if err := c.compileExpr(u, ex.X); err != nil {
			return err
		}
		u.emit(bytecode.OpBinarySubscript, line)
		return nil
	case *pyast.SliceExpr:
		return c.compileSlice(u, ex, line)
	case *pyast.LambdaExpr:
		return c.compileLambda(u, ex, line)
	case *pyast.ListCompExpr:
		return c.compileListComp(u, ex, line)
	case *pyast.SetCompExpr:
		return c.compileSetComp(u, ex, line)
	case *pyast.DictCompExpr:
		return c.compileDictComp(u, ex, line)
	default:
		return &CompileError{Msg: "unsupported expression", Line: line}
	}
}

func (c *compilerCtx) compileUnary(u *unit, ex *pyast.UnaryExpr, line int) error {
	if err := c.compileExpr(u, ex.X); err != nil {
		return err
	}
	var tag bytecode.UnaryOp
	switch ex.Op {
	case "not":
		tag = bytecode.UnaryNot
	case "-":
		tag = bytecode.UnaryNeg
	case "+":
		tag = bytecode.UnaryPos
	case "~":
		tag = bytecode.UnaryInvert
	}
	u.emit(bytecode.OpUnaryOp, line, int(tag))
	return nil
}

func (c *compilerCtx) compileBin(u *unit, ex *pyast.BinExpr, line int) error {
	if err := c.compileExpr(u, ex.Left); err != nil {
		return err
	}
	if err := c.compileExpr(u, ex.Right); err != nil {
		return err
	}
	u.emit(bytecode.OpBinaryOp, line, int(augBinOp(ex.Op)))
	return nil
}

// compileBoolOp lowers short-circuiting `and`/`or` over N operands.
func (c *compilerCtx) compileBoolOp(u *unit, ex *pyast.BoolOpExpr, line int) error {
	var jumps []int
	for i, v := range ex.Values {
		if err := c.compileExpr(u, v); err != nil {
			return err
		}
		if i < len(ex.Values)-1 {
			var idx int
			if ex.Op == "and" {
				idx = u.emit(bytecode.OpJumpIfFalseOrPop, line)
			} else {
				idx = u.emit(bytecode.OpJumpIfTrueOrPop, line)
			}
			jumps = append(jumps, idx)
		}
	}
	end := u.here()
	for _, idx := range jumps {
		u.patchJump(idx, end)
	}
	return nil
}

// compileCompare lowers chained comparisons `a < b < c` to a
// short-circuiting sequence, as littrs's bytecode comments describe
// (spec §4 "chained comparisons").
func (c *compilerCtx) compileCompare(u *unit, ex *pyast.CompareExpr, line int) error {
	if err := c.compileExpr(u, ex.Left); err != nil {
		return err
	}
	n := len(ex.Ops)
	var falseJumps []int
	for i := 0; i < n; i++ {
		if err := c.compileExpr(u, ex.Comps[i]); err != nil {
			return err
		}
		if i < n-1 {
			u.emit(bytecode.OpDup, line)
			u.emit(bytecode.OpRotN, line, 3)
			u.emit(bytecode.OpCompareOp, line, int(cmpTag(ex.Ops[i])))
			idx := u.emit(bytecode.OpJumpIfFalseOrPop, line)
			falseJumps = append(falseJumps, idx)
		} else {
			u.emit(bytecode.OpCompareOp, line, int(cmpTag(ex.Ops[i])))
		}
	}
	if n == 1 {
		return nil
	}
	endJump := u.emit(bytecode.OpJump, line)
	cleanup := u.here()
	u.emit(bytecode.OpRotN, line, 2)
	u.emit(bytecode.OpPop, line)
	for _, idx := range falseJumps {
		u.patchJump(idx, cleanup)
	}
	u.patchJump(endJump, u.here())
	return nil
}

func cmpTag(op string) bytecode.CmpOp {
	switch op {
	case "==":
		return bytecode.CmpEq
	case "!=":
		return bytecode.CmpNotEq
	case "<":
		return bytecode.CmpLt
	case "<=":
		return bytecode.CmpLtE
	case ">":
		return bytecode.CmpGt
	case ">=":
		return bytecode.CmpGtE
	case "in":
		return bytecode.CmpIn
	case "not in":
		return bytecode.CmpNotIn
	case "is":
		return bytecode.CmpIs
	case "is not":
		return bytecode.CmpIsNot
	default:
		return bytecode.CmpEq
	}
}

func (c *compilerCtx) compileCond(u *unit, ex *pyast.CondExpr, line int) error {
	if err := c.compileExpr(u, ex.Cond); err != nil {
		return err
	}
	elseJump := u.emit(bytecode.OpPopJumpIfFalse, line)
	if err := c.compileExpr(u, ex.Then); err != nil {
		return err
	}
	endJump := u.emit(bytecode.OpJump, line)
	u.patchJump(elseJump, u.here())
	if err := c.compileExpr(u, ex.Else); err != nil {
		return err
	}
	u.patchJump(endJump, u.here())
	return nil
}

func (c *compilerCtx) compileCall(u *unit, ex *pyast.CallExpr, line int) error {
	if err := c.compileExpr(u, ex.Func); err != nil {
		return err
	}
	for _, a := range ex.Args {
		if err := c.compileExpr(u, a); err != nil {
			return err
		}
	}
	for i, name := range ex.KwNames {
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Str(name)))
		if err := c.compileExpr(u, ex.KwValues[i]); err != nil {
			return err
		}
	}
	u.emit(bytecode.OpCall, line, len(ex.Args), len(ex.KwNames))
	return nil
}

func (c *compilerCtx) compileMethodCall(u *unit, ex *pyast.MethodCallExpr, line int) error {
	if err := c.compileExpr(u, ex.X); err != nil {
		return err
	}
	for _, a := range ex.Args {
		if err := c.compileExpr(u, a); err != nil {
			return err
		}
	}
	for i, name := range ex.KwNames {
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Str(name)))
		if err := c.compileExpr(u, ex.KwValues[i]); err != nil {
			return err
		}
	}
	u.emit(bytecode.OpCallMethod, line, u.nameIndex(ex.Method), len(ex.Args), len(ex.KwNames))
	return nil
}

// compileSlice computes the full `x[start:stop:step]` subscript: a slice
// descriptor is built from the (possibly omitted) bounds, then used as the
// index into x via the ordinary subscript opcode.
func (c *compilerCtx) compileSlice(u *unit, ex *pyast.SliceExpr, line int) error {
	if err := c.compileOptional(u, ex.Start, line); err != nil {
		return err
	}
	if err := c.compileOptional(u, ex.Stop, line); err != nil {
		return err
	}
	if err := c.compileOptional(u, ex.Step, line); err != nil {
		return err
	}
	u.emit(bytecode.OpBuildSlice, line)
	if err := c.compileExpr(u, ex.X); err != nil {
		return err
	}
	u.emit(bytecode.OpBinarySubscript, line)
	return nil
}

func (c *compilerCtx) compileOptional(u *unit, e pyast.Expr, line int) error {
	if e == nil {
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.None()))
		return nil
	}
	return c.compileExpr(u, e)
}

func (c *compilerCtx) compileLambda(u *unit, ex *pyast.LambdaExpr, line int) error {
	proto, err := c.compileFunctionBody("<lambda>", ex.Params, ex.Vararg, ex.Kwarg, []pyast.Stmt{
		&pyast.ReturnStmt{Base: pyast.Base{Pos: ex.Position()}, Value: ex.Body},
	}, u)
	if err != nil {
		return err
	}
	for _, d := range ex.Defaults {
		if err := c.compileExpr(u, d); err != nil {
			return err
		}
	}
	idx := len(u.functions)
	u.functions = append(u.functions, proto)
	u.emit(bytecode.OpMakeFunction, line, idx, len(ex.Defaults))
	return nil
}

// compileFString lowers an f-string to a chained concatenation of literal
// constants and str() conversions of embedded expressions (spec §4.2).
func (c *compilerCtx) compileFString(u *unit, ex *pyast.FStringExpr, line int) error {
	if len(ex.Parts) == 0 {
		u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Str("")))
		return nil
	}
	first := true
	for _, part := range ex.Parts {
		if part.Expr != nil {
			if err := c.compileExpr(u, part.Expr); err != nil {
				return err
			}
			u.emit(bytecode.OpFormatValue, line)
		} else {
			u.emit(bytecode.OpLoadConst, line, u.constIndex(value.Str(part.Literal)))
		}
		if !first {
			u.emit(bytecode.OpBinaryOp, line, int(bytecode.BinAdd))
		}
		first = false
	}
	return nil
}
