package compiler

import "github.com/chonkie-inc/littrs/internal/pyast"

// collectLocals performs the scope pass described in spec §4.2: every name
// assigned anywhere in a function body (for-loop targets, assignment
// targets, the function's own parameters) becomes a local, with a
// compile-time slot index. Nested def/lambda/comprehension bodies are not
// descended into — they get their own scope. A name that is never
// assigned in this body is free and resolved at runtime via globals, the
// tool registry, then the module registry.
func collectLocals(params []string, vararg, kwarg string, body []pyast.Stmt) (slots map[string]int, order []string) {
	slots = make(map[string]int)
	add := func(name string) {
		if _, ok := slots[name]; !ok {
			slots[name] = len(order)
			order = append(order, name)
		}
	}
	for _, p := range params {
		add(p)
	}
	if vararg != "" {
		add(vararg)
	}
	if kwarg != "" {
		add(kwarg)
	}
	var walkStmts func([]pyast.Stmt)
	var walkTarget func(pyast.Expr)
	walkTarget = func(e pyast.Expr) {
		switch t := e.(type) {
		case *pyast.Name:
			add(t.Ident)
		case *pyast.TupleExpr:
			for _, el := range t.Elts {
				walkTarget(el)
			}
		case *pyast.ListExpr:
			for _, el := range t.Elts {
				walkTarget(el)
			}
		}
	}
	walkStmts = func(stmts []pyast.Stmt) {
		for _, s := range stmts {
			switch st := s.(type) {
			case *pyast.AssignStmt:
				for _, tgt := range st.Targets {
					walkTarget(tgt)
				}
			case *pyast.AugAssignStmt:
				walkTarget(st.Target)
			case *pyast.ForStmt:
				walkTarget(st.Target)
				walkStmts(st.Body)
			case *pyast.IfStmt:
				walkStmts(st.Body)
				walkStmts(st.Else)
			case *pyast.WhileStmt:
				walkStmts(st.Body)
			case *pyast.TryStmt:
				walkStmts(st.Body)
				for _, h := range st.Handler {
					if h.As != "" {
						add(h.As)
					}
					walkStmts(h.Body)
				}
				walkStmts(st.Else)
			case *pyast.FuncDef:
				// The def statement itself binds a local name to the
				// resulting Function value; its body is a separate scope.
				add(st.Name)
			case *pyast.ImportStmt:
				if st.Alias != "" {
					add(st.Alias)
				} else if len(st.Names) == 0 {
					add(st.Module)
				} else {
					for _, n := range st.Names {
						if n.Alias != "" {
							add(n.Alias)
						} else if n.Name != "*" {
							add(n.Name)
						}
					}
				}
			}
		}
	}
	walkStmts(body)
	return slots, order
}
