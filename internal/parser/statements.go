package parser

import (
	"github.com/chonkie-inc/littrs/internal/pyast"
	"github.com/chonkie-inc/littrs/internal/token"
)

func (p *Parser) parseStatement() pyast.Stmt {
	switch p.cur().Kind {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.DEF:
		return p.parseFuncDef()
	case token.TRY:
		return p.parseTry()
	case token.IMPORT:
		return p.parseImport()
	case token.FROM:
		return p.parseFromImport()
	case token.CLASS:
		p.failUnsupported("class")
		return nil
	case token.AT:
		p.failUnsupported("decorators")
		return nil
	case token.ASYNC:
		p.failUnsupported("async/await")
		return nil
	case token.GLOBAL:
		p.failUnsupported("global")
		return nil
	case token.NONLOCAL:
		p.failUnsupported("nonlocal")
		return nil
	case token.DEL:
		p.failUnsupported("del")
		return nil
	case token.WITH:
		p.failUnsupported("with")
		return nil
	case token.MATCH:
		p.failUnsupported("match")
		return nil
	default:
		s := p.parseSimpleStatement()
		if !p.at(token.NEWLINE) && !p.at(token.EOF) && !p.at(token.SEMI) && !p.at(token.DEDENT) {
			p.fail("expected newline after statement")
		}
		return s
	}
}

// parseSimpleStatement handles one statement that fits on a single
// logical line: expr/assign statements, break/continue/pass/return/
// raise/assert.
func (p *Parser) parseSimpleStatement() pyast.Stmt {
	t := p.cur()
	switch t.Kind {
	case token.BREAK:
		p.advance()
		return &pyast.BreakStmt{Base: pyast.Base{Pos: pos(t)}}
	case token.CONTINUE:
		p.advance()
		return &pyast.ContinueStmt{Base: pyast.Base{Pos: pos(t)}}
	case token.PASS:
		p.advance()
		return &pyast.PassStmt{Base: pyast.Base{Pos: pos(t)}}
	case token.RETURN:
		p.advance()
		if p.at(token.NEWLINE) || p.at(token.EOF) || p.at(token.SEMI) {
			return &pyast.ReturnStmt{Base: pyast.Base{Pos: pos(t)}}
		}
		v := p.parseExprList()
		return &pyast.ReturnStmt{Base: pyast.Base{Pos: pos(t)}, Value: v}
	case token.RAISE:
		p.advance()
		if p.at(token.NEWLINE) || p.at(token.EOF) || p.at(token.SEMI) {
			return &pyast.RaiseStmt{Base: pyast.Base{Pos: pos(t)}}
		}
		exc := p.parseExpr()
		if p.at(token.FROM) {
			p.failUnsupported("raise ... from ...")
			return nil
		}
		return &pyast.RaiseStmt{Base: pyast.Base{Pos: pos(t)}, Exc: exc}
	case token.ASSERT:
		p.advance()
		cond := p.parseExpr()
		var msg pyast.Expr
		if p.at(token.COMMA) {
			p.advance()
			msg = p.parseExpr()
		}
		return &pyast.AssertStmt{Base: pyast.Base{Pos: pos(t)}, Cond: cond, Msg: msg}
	default:
		return p.parseExprOrAssign()
	}
}

func (p *Parser) parseExprOrAssign() pyast.Stmt {
	t := p.cur()
	first := p.parseExprList()

	if p.at(token.WALRUS) {
		p.failUnsupported("walrus operator")
		return nil
	}

	if aug, ok := augOp(p.cur().Kind); ok {
		p.advance()
		val := p.parseExprList()
		return &pyast.AugAssignStmt{Base: pyast.Base{Pos: pos(t)}, Target: first, Op: aug, Value: val}
	}

	if p.at(token.ASSIGN) {
		targets := []pyast.Expr{first}
		for p.at(token.ASSIGN) {
			p.advance()
			next := p.parseExprList()
			targets = append(targets, next)
		}
		value := targets[len(targets)-1]
		targets = targets[:len(targets)-1]
		return &pyast.AssignStmt{Base: pyast.Base{Pos: pos(t)}, Targets: targets, Value: value}
	}

	return &pyast.ExprStmt{Base: pyast.Base{Pos: pos(t)}, X: first}
}

func augOp(k token.Kind) (string, bool) {
	switch k {
	case token.PLUSEQ:
		return "+", true
	case token.MINUSEQ:
		return "-", true
	case token.STAREQ:
		return "*", true
	case token.SLASHEQ:
		return "/", true
	case token.DOUBLESLASHEQ:
		return "//", true
	case token.PERCENTEQ:
		return "%", true
	case token.AMPEQ:
		return "&", true
	case token.PIPEEQ:
		return "|", true
	case token.CARETEQ:
		return "^", true
	case token.LSHIFTEQ:
		return "<<", true
	case token.RSHIFTEQ:
		return ">>", true
	case token.DOUBLESTAREQ:
		return "**", true
	default:
		return "", false
	}
}

func (p *Parser) parseIf() pyast.Stmt {
	t := p.advance()
	cond := p.parseExpr()
	body := p.parseBlock()
	var elseBody []pyast.Stmt
	if p.at(token.ELIF) {
		elseBody = []pyast.Stmt{p.parseElif()}
	} else if p.at(token.ELSE) {
		p.advance()
		elseBody = p.parseBlock()
	}
	return &pyast.IfStmt{Base: pyast.Base{Pos: pos(t)}, Cond: cond, Body: body, Else: elseBody}
}

func (p *Parser) parseElif() pyast.Stmt {
	t := p.advance() // consume ELIF
	cond := p.parseExpr()
	body := p.parseBlock()
	var elseBody []pyast.Stmt
	if p.at(token.ELIF) {
		elseBody = []pyast.Stmt{p.parseElif()}
	} else if p.at(token.ELSE) {
		p.advance()
		elseBody = p.parseBlock()
	}
	return &pyast.IfStmt{Base: pyast.Base{Pos: pos(t)}, Cond: cond, Body: body, Else: elseBody}
}

func (p *Parser) parseWhile() pyast.Stmt {
	t := p.advance()
	cond := p.parseExpr()
	body := p.parseBlock()
	return &pyast.WhileStmt{Base: pyast.Base{Pos: pos(t)}, Cond: cond, Body: body}
}

func (p *Parser) parseFor() pyast.Stmt {
	t := p.advance()
	target := p.parseTargetList()
	p.expect(token.IN)
	iter := p.parseExprList()
	body := p.parseBlock()
	return &pyast.ForStmt{Base: pyast.Base{Pos: pos(t)}, Target: target, Iter: iter, Body: body}
}

// parseTargetList parses a for-loop target, supporting tuple unpacking:
// `for k, v in ...`.
func (p *Parser) parseTargetList() pyast.Expr {
	t := p.cur()
	first := p.parsePrimaryTarget()
	if !p.at(token.COMMA) {
		return first
	}
	elts := []pyast.Expr{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.IN) {
			break
		}
		elts = append(elts, p.parsePrimaryTarget())
	}
	return &pyast.TupleExpr{Base: pyast.Base{Pos: pos(t)}, Elts: elts}
}

func (p *Parser) parsePrimaryTarget() pyast.Expr {
	t := p.expect(token.IDENT)
	return &pyast.Name{Base: pyast.Base{Pos: pos(t)}, Ident: t.Literal}
}

func (p *Parser) parseFuncDef() pyast.Stmt {
	t := p.advance()
	name := p.expect(token.IDENT).Literal
	p.expect(token.LPAREN)
	params, defaults, vararg, kwarg := p.parseParamList()
	p.expect(token.RPAREN)
	if p.at(token.ARROW) {
		p.advance()
		p.parseExpr() // return-type annotation, accepted and discarded
	}
	body := p.parseBlock()
	return &pyast.FuncDef{Base: pyast.Base{Pos: pos(t)}, Name: name, Params: params, Defaults: defaults,
		Vararg: vararg, Kwarg: kwarg, Body: body}
}

// parseParamList parses a Python parameter list: positional names
// (optionally with `: type` annotations, discarded), defaults, `*args`,
// `**kwargs`.
func (p *Parser) parseParamList() (params []string, defaults []pyast.Expr, vararg, kwarg string) {
	for !p.at(token.RPAREN) && p.err == nil {
		if p.at(token.STAR) {
			p.advance()
			if p.at(token.STAR) { // shouldn't happen, guard anyway
				p.advance()
			}
			vararg = p.expect(token.IDENT).Literal
		} else if p.at(token.DOUBLESTAR) {
			p.advance()
			kwarg = p.expect(token.IDENT).Literal
		} else {
			name := p.expect(token.IDENT).Literal
			if p.at(token.COLON) {
				p.advance()
				p.parseTypeExprIgnored()
			}
			params = append(params, name)
			if p.at(token.ASSIGN) {
				p.advance()
				defaults = append(defaults, p.parseExpr())
			} else if len(defaults) > 0 {
				// Python requires defaults to trail; tolerate a prior
				// default-less positional by not padding (invalid
				// programs surface as a bind-time TypeError at call).
			}
		}
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	return
}

// parseTypeExprIgnored consumes a type annotation expression without
// retaining it — annotations are accepted syntax but carry no runtime
// meaning in this engine.
func (p *Parser) parseTypeExprIgnored() {
	p.parseExpr()
}

func (p *Parser) parseTry() pyast.Stmt {
	t := p.advance()
	body := p.parseBlock()
	var handlers []pyast.ExceptClause
	for p.at(token.EXCEPT) {
		et := p.advance()
		var typ, as string
		if !p.at(token.COLON) {
			typ = p.expect(token.IDENT).Literal
			if p.at(token.AS) {
				p.advance()
				as = p.expect(token.IDENT).Literal
			}
		}
		hbody := p.parseBlock()
		handlers = append(handlers, pyast.ExceptClause{Base: pyast.Base{Pos: pos(et)}, Type: typ, As: as, Body: hbody})
	}
	var elseBody []pyast.Stmt
	if p.at(token.ELSE) {
		p.advance()
		elseBody = p.parseBlock()
	}
	if p.at(token.FINALLY) {
		p.failUnsupported("finally")
		return nil
	}
	if len(handlers) == 0 && elseBody == nil {
		p.fail("expected except or finally after try")
	}
	return &pyast.TryStmt{Base: pyast.Base{Pos: pos(t)}, Body: body, Handler: handlers, Else: elseBody}
}

func (p *Parser) parseImport() pyast.Stmt {
	t := p.advance()
	name := p.expect(token.IDENT).Literal
	alias := ""
	if p.at(token.AS) {
		p.advance()
		alias = p.expect(token.IDENT).Literal
	}
	return &pyast.ImportStmt{Base: pyast.Base{Pos: pos(t)}, Module: name, Alias: alias}
}

func (p *Parser) parseFromImport() pyast.Stmt {
	t := p.advance()
	mod := p.expect(token.IDENT).Literal
	p.expect(token.IMPORT)
	var names []pyast.ImportName
	if p.at(token.STAR) {
		p.advance()
		names = append(names, pyast.ImportName{Name: "*"})
	} else {
		for {
			n := p.expect(token.IDENT).Literal
			alias := ""
			if p.at(token.AS) {
				p.advance()
				alias = p.expect(token.IDENT).Literal
			}
			names = append(names, pyast.ImportName{Name: n, Alias: alias})
			if p.at(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
	}
	return &pyast.ImportStmt{Base: pyast.Base{Pos: pos(t)}, Module: mod, Names: names}
}
