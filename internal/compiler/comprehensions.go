package compiler

import (
	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/pyast"
)

// Comprehensions compile to an inner CodeObject taking one parameter (the
// source iterable) and called immediately at the comprehension's site, per
// spec §4.2. Free names inside the body resolve via globals like any other
// nested function — there is no closure over the enclosing scope.

func compCollectLocals(target pyast.Expr) (slots map[string]int, order []string) {
	slots = make(map[string]int)
	add := func(name string) {
		if _, ok := slots[name]; !ok {
			slots[name] = len(order)
			order = append(order, name)
		}
	}
	add("__iter")
	var walk func(pyast.Expr)
	walk = func(e pyast.Expr) {
		switch t := e.(type) {
		case *pyast.Name:
			add(t.Ident)
		case *pyast.TupleExpr:
			for _, el := range t.Elts {
				walk(el)
			}
		case *pyast.ListExpr:
			for _, el := range t.Elts {
				walk(el)
			}
		}
	}
	walk(target)
	add("__result")
	return slots, order
}

// compileCompSkeleton builds the shared loop shape for list/set/dict
// comprehensions: build an empty container, iterate the parameter, apply
// filters, hand off to body to insert the element, then return the
// container.
func (c *compilerCtx) compileCompSkeleton(name string, comp pyast.Comprehension, initOp bytecode.Op, body func(nu *unit, resultSlot int, line int) error) (*bytecode.FuncProto, error) {
	locals, _ := compCollectLocals(comp.Target)
	nu := newUnit(true, locals)
	line := comp.Iter.Position().Line

	resultSlot := locals["__result"]
	nu.emit(initOp, line, 0)
	nu.emit(bytecode.OpStoreLocal, line, resultSlot)

	nu.emit(bytecode.OpLoadLocal, line, locals["__iter"])
	nu.emit(bytecode.OpGetIter, line)
	loopStart := nu.here()
	exitJump := nu.emit(bytecode.OpIterNext, line)

	if err := c.storeTarget(nu, comp.Target, line); err != nil {
		return nil, err
	}
	for _, f := range comp.Ifs {
		if err := c.compileExpr(nu, f); err != nil {
			return nil, err
		}
		nu.emit(bytecode.OpPopJumpIfFalse, line, loopStart)
	}
	if err := body(nu, resultSlot, line); err != nil {
		return nil, err
	}
	nu.emit(bytecode.OpJump, line, loopStart)
	end := nu.here()
	nu.patchJump(exitJump, end)

	nu.emit(bytecode.OpLoadLocal, line, resultSlot)
	nu.emit(bytecode.OpReturn, line)

	code := nu.toCodeObject("", name)
	return &bytecode.FuncProto{Name: name, Params: []string{"__iter"}, Code: code}, nil
}

// callComprehension emits the MakeFunction + immediate Call sequence shared
// by all three comprehension kinds.
func (c *compilerCtx) callComprehension(u *unit, proto *bytecode.FuncProto, iter pyast.Expr, line int) error {
	idx := len(u.functions)
	u.functions = append(u.functions, proto)
	u.emit(bytecode.OpMakeFunction, line, idx, 0)
	if err := c.compileExpr(u, iter); err != nil {
		return err
	}
	u.emit(bytecode.OpCall, line, 1, 0)
	return nil
}

func (c *compilerCtx) compileListComp(u *unit, ex *pyast.ListCompExpr, line int) error {
	proto, err := c.compileCompSkeleton("<listcomp>", ex.Comp, bytecode.OpBuildList, func(nu *unit, resultSlot, ln int) error {
		nu.emit(bytecode.OpLoadLocal, ln, resultSlot)
		if err := c.compileExpr(nu, ex.Elt); err != nil {
			return err
		}
		nu.emit(bytecode.OpCallMethod, ln, nu.nameIndex("append"), 1, 0)
		nu.emit(bytecode.OpPop, ln)
		return nil
	})
	if err != nil {
		return err
	}
	return c.callComprehension(u, proto, ex.Comp.Iter, line)
}

func (c *compilerCtx) compileSetComp(u *unit, ex *pyast.SetCompExpr, line int) error {
	proto, err := c.compileCompSkeleton("<setcomp>", ex.Comp, bytecode.OpBuildSet, func(nu *unit, resultSlot, ln int) error {
		nu.emit(bytecode.OpLoadLocal, ln, resultSlot)
		if err := c.compileExpr(nu, ex.Elt); err != nil {
			return err
		}
		nu.emit(bytecode.OpCallMethod, ln, nu.nameIndex("add"), 1, 0)
		nu.emit(bytecode.OpPop, ln)
		return nil
	})
	if err != nil {
		return err
	}
	return c.callComprehension(u, proto, ex.Comp.Iter, line)
}

func (c *compilerCtx) compileDictComp(u *unit, ex *pyast.DictCompExpr, line int) error {
	proto, err := c.compileCompSkeleton("<dictcomp>", ex.Comp, bytecode.OpBuildDict, func(nu *unit, resultSlot, ln int) error {
		if err := c.compileExpr(nu, ex.Val); err != nil {
			return err
		}
		if err := c.compileExpr(nu, ex.Key); err != nil {
			return err
		}
		nu.emit(bytecode.OpLoadLocal, ln, resultSlot)
		nu.emit(bytecode.OpStoreSubscript, ln)
		return nil
	})
	if err != nil {
		return err
	}
	return c.callComprehension(u, proto, ex.Comp.Iter, line)
}
