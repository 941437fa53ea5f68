package parser

import (
	"strconv"
	"strings"

	"github.com/chonkie-inc/littrs/internal/pyast"
	"github.com/chonkie-inc/littrs/internal/token"
)

// parseExprList parses a comma-separated list of expressions as a single
// expression: `a, b` becomes a TupleExpr unless there is only one item
// and no trailing comma.
func (p *Parser) parseExprList() pyast.Expr {
	t := p.cur()
	first := p.parseTernary()
	if !p.at(token.COMMA) {
		return first
	}
	elts := []pyast.Expr{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.atExprListEnd() {
			break
		}
		elts = append(elts, p.parseTernary())
	}
	return &pyast.TupleExpr{Base: pyast.Base{Pos: pos(t)}, Elts: elts}
}

func (p *Parser) atExprListEnd() bool {
	switch p.cur().Kind {
	case token.NEWLINE, token.EOF, token.SEMI, token.RPAREN, token.RBRACKET, token.RBRACE, token.COLON, token.ASSIGN:
		return true
	default:
		return false
	}
}

// parseExpr parses a single expression (no top-level comma).
func (p *Parser) parseExpr() pyast.Expr { return p.parseTernary() }

// parseTernary handles `a if cond else b` and lambda.
func (p *Parser) parseTernary() pyast.Expr {
	if p.at(token.LAMBDA) {
		return p.parseLambda()
	}
	t := p.cur()
	body := p.parseOr()
	if p.at(token.IF) {
		p.advance()
		cond := p.parseOr()
		p.expect(token.ELSE)
		elseVal := p.parseTernary()
		return &pyast.CondExpr{Base: pyast.Base{Pos: pos(t)}, Cond: cond, Then: body, Else: elseVal}
	}
	return body
}

func (p *Parser) parseLambda() pyast.Expr {
	t := p.advance()
	var params []string
	var defaults []pyast.Expr
	var vararg, kwarg string
	for !p.at(token.COLON) && p.err == nil {
		if p.at(token.STAR) {
			p.advance()
			vararg = p.expect(token.IDENT).Literal
		} else if p.at(token.DOUBLESTAR) {
			p.advance()
			kwarg = p.expect(token.IDENT).Literal
		} else {
			name := p.expect(token.IDENT).Literal
			params = append(params, name)
			if p.at(token.ASSIGN) {
				p.advance()
				defaults = append(defaults, p.parseExpr())
			}
		}
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.COLON)
	body := p.parseExpr()
	return &pyast.LambdaExpr{Base: pyast.Base{Pos: pos(t)}, Params: params, Defaults: defaults,
		Vararg: vararg, Kwarg: kwarg, Body: body}
}

func (p *Parser) parseOr() pyast.Expr {
	t := p.cur()
	left := p.parseAnd()
	if !p.at(token.OR) {
		return left
	}
	values := []pyast.Expr{left}
	for p.at(token.OR) {
		p.advance()
		values = append(values, p.parseAnd())
	}
	return &pyast.BoolOpExpr{Base: pyast.Base{Pos: pos(t)}, Op: "or", Values: values}
}

func (p *Parser) parseAnd() pyast.Expr {
	t := p.cur()
	left := p.parseNot()
	if !p.at(token.AND) {
		return left
	}
	values := []pyast.Expr{left}
	for p.at(token.AND) {
		p.advance()
		values = append(values, p.parseNot())
	}
	return &pyast.BoolOpExpr{Base: pyast.Base{Pos: pos(t)}, Op: "and", Values: values}
}

func (p *Parser) parseNot() pyast.Expr {
	if p.at(token.NOT) {
		t := p.advance()
		x := p.parseNot()
		return &pyast.UnaryExpr{Base: pyast.Base{Pos: pos(t)}, Op: "not", X: x}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() pyast.Expr {
	t := p.cur()
	left := p.parseBitOr()
	var ops []string
	var comps []pyast.Expr
	for {
		op, ok := p.tryCompareOp()
		if !ok {
			break
		}
		comps = append(comps, p.parseBitOr())
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return left
	}
	return &pyast.CompareExpr{Base: pyast.Base{Pos: pos(t)}, Left: left, Ops: ops, Comps: comps}
}

func (p *Parser) tryCompareOp() (string, bool) {
	switch p.cur().Kind {
	case token.EQ:
		p.advance()
		return "==", true
	case token.NOTEQ:
		p.advance()
		return "!=", true
	case token.LT:
		p.advance()
		return "<", true
	case token.LTE:
		p.advance()
		return "<=", true
	case token.GT:
		p.advance()
		return ">", true
	case token.GTE:
		p.advance()
		return ">=", true
	case token.IN:
		p.advance()
		return "in", true
	case token.IS:
		p.advance()
		if p.at(token.NOT) {
			p.advance()
			return "is not", true
		}
		return "is", true
	case token.NOT:
		if p.peek().Kind == token.IN {
			p.advance()
			p.advance()
			return "not in", true
		}
		return "", false
	default:
		return "", false
	}
}

func binLevel(parseNext func() pyast.Expr, opOf func(token.Kind) (string, bool)) func(p *Parser) pyast.Expr {
	return func(p *Parser) pyast.Expr {
		t := p.cur()
		left := parseNext()
		for {
			op, ok := opOf(p.cur().Kind)
			if !ok {
				break
			}
			p.advance()
			right := parseNext()
			left = &pyast.BinExpr{Base: pyast.Base{Pos: pos(t)}, Op: op, Left: left, Right: right}
		}
		return left
	}
}

func (p *Parser) parseBitOr() pyast.Expr {
	t := p.cur()
	left := p.parseBitXor()
	for p.at(token.PIPE) {
		p.advance()
		right := p.parseBitXor()
		left = &pyast.BinExpr{Base: pyast.Base{Pos: pos(t)}, Op: "|", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitXor() pyast.Expr {
	t := p.cur()
	left := p.parseBitAnd()
	for p.at(token.CARET) {
		p.advance()
		right := p.parseBitAnd()
		left = &pyast.BinExpr{Base: pyast.Base{Pos: pos(t)}, Op: "^", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitAnd() pyast.Expr {
	t := p.cur()
	left := p.parseShift()
	for p.at(token.AMP) {
		p.advance()
		right := p.parseShift()
		left = &pyast.BinExpr{Base: pyast.Base{Pos: pos(t)}, Op: "&", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseShift() pyast.Expr {
	t := p.cur()
	left := p.parseAdd()
	for p.at(token.LSHIFT) || p.at(token.RSHIFT) {
		op := "<<"
		if p.at(token.RSHIFT) {
			op = ">>"
		}
		p.advance()
		right := p.parseAdd()
		left = &pyast.BinExpr{Base: pyast.Base{Pos: pos(t)}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdd() pyast.Expr {
	t := p.cur()
	left := p.parseMul()
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := "+"
		if p.at(token.MINUS) {
			op = "-"
		}
		p.advance()
		right := p.parseMul()
		left = &pyast.BinExpr{Base: pyast.Base{Pos: pos(t)}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMul() pyast.Expr {
	t := p.cur()
	left := p.parseUnary()
	for {
		var op string
		switch p.cur().Kind {
		case token.STAR:
			op = "*"
		case token.SLASH:
			op = "/"
		case token.DOUBLESLASH:
			op = "//"
		case token.PERCENT:
			op = "%"
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		left = &pyast.BinExpr{Base: pyast.Base{Pos: pos(t)}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() pyast.Expr {
	switch p.cur().Kind {
	case token.MINUS:
		t := p.advance()
		return &pyast.UnaryExpr{Base: pyast.Base{Pos: pos(t)}, Op: "-", X: p.parseUnary()}
	case token.PLUS:
		t := p.advance()
		return &pyast.UnaryExpr{Base: pyast.Base{Pos: pos(t)}, Op: "+", X: p.parseUnary()}
	case token.TILDE:
		t := p.advance()
		return &pyast.UnaryExpr{Base: pyast.Base{Pos: pos(t)}, Op: "~", X: p.parseUnary()}
	default:
		return p.parsePower()
	}
}

// parsePower handles `**`, right-associative and binding tighter than
// unary minus on its left operand (Python: `-2**2 == -4`) but the unary
// itself is parsed by the caller, so here we only need right-recursion.
func (p *Parser) parsePower() pyast.Expr {
	t := p.cur()
	left := p.parsePostfix()
	if p.at(token.DOUBLESTAR) {
		p.advance()
		right := p.parseUnary()
		return &pyast.BinExpr{Base: pyast.Base{Pos: pos(t)}, Op: "**", Left: left, Right: right}
	}
	return left
}

// parsePostfix handles call/attribute/subscript/slice chains.
func (p *Parser) parsePostfix() pyast.Expr {
	x := p.parseAtom()
	for {
		switch p.cur().Kind {
		case token.LPAREN:
			x = p.parseCallTail(x)
		case token.DOT:
			p.advance()
			t := p.cur()
			name := p.expect(token.IDENT).Literal
			if p.at(token.LPAREN) {
				call := p.parseCallTail(&pyast.Name{Base: pyast.Base{Pos: pos(t)}, Ident: name}).(*pyast.CallExpr)
				x = &pyast.MethodCallExpr{Base: pyast.Base{Pos: pos(t)}, X: x, Method: name,
					Args: call.Args, KwNames: call.KwNames, KwValues: call.KwValues}
			} else {
				x = &pyast.AttrExpr{Base: pyast.Base{Pos: pos(t)}, X: x, Attr: name}
			}
		case token.LBRACKET:
			x = p.parseSubscriptTail(x)
		default:
			return x
		}
	}
}

func (p *Parser) parseCallTail(fn pyast.Expr) pyast.Expr {
	t := p.expect(token.LPAREN)
	var args []pyast.Expr
	var kwNames []string
	var kwValues []pyast.Expr
	for !p.at(token.RPAREN) && p.err == nil {
		if p.at(token.IDENT) && p.peek().Kind == token.ASSIGN {
			name := p.advance().Literal
			p.advance() // '='
			kwNames = append(kwNames, name)
			kwValues = append(kwValues, p.parseExpr())
		} else {
			args = append(args, p.parseExpr())
		}
		if p.at(token.COMMA) {
			p.advance()
		} else {
			break
		}
	}
	p.expect(token.RPAREN)
	return &pyast.CallExpr{Base: pyast.Base{Pos: pos(t)}, Func: fn, Args: args, KwNames: kwNames, KwValues: kwValues}
}

func (p *Parser) parseSubscriptTail(x pyast.Expr) pyast.Expr {
	t := p.expect(token.LBRACKET)
	var start, stop, step pyast.Expr
	isSlice := false
	if !p.at(token.COLON) && !p.at(token.RBRACKET) {
		start = p.parseExpr()
	}
	if p.at(token.COLON) {
		isSlice = true
		p.advance()
		if !p.at(token.COLON) && !p.at(token.RBRACKET) {
			stop = p.parseExpr()
		}
		if p.at(token.COLON) {
			p.advance()
			if !p.at(token.RBRACKET) {
				step = p.parseExpr()
			}
		}
	}
	p.expect(token.RBRACKET)
	if isSlice {
		return &pyast.SliceExpr{Base: pyast.Base{Pos: pos(t)}, X: x, Start: start, Stop: stop, Step: step}
	}
	return &pyast.IndexExpr{Base: pyast.Base{Pos: pos(t)}, X: x, Index: start}
}

func (p *Parser) parseAtom() pyast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.INT:
		p.advance()
		n, _ := strconv.ParseInt(t.Literal, 10, 64)
		return &pyast.IntLit{Base: pyast.Base{Pos: pos(t)}, Value: n}
	case token.FLOAT:
		p.advance()
		f, _ := strconv.ParseFloat(t.Literal, 64)
		return &pyast.FloatLit{Base: pyast.Base{Pos: pos(t)}, Value: f}
	case token.STRING:
		p.advance()
		lit := t.Literal
		for p.at(token.STRING) { // adjacent string literal concatenation
			lit += p.advance().Literal
		}
		return &pyast.StrLit{Base: pyast.Base{Pos: pos(t)}, Value: lit}
	case token.FSTRING:
		p.advance()
		return p.parseFString(t)
	case token.TRUE:
		p.advance()
		return &pyast.BoolLit{Base: pyast.Base{Pos: pos(t)}, Value: true}
	case token.FALSE:
		p.advance()
		return &pyast.BoolLit{Base: pyast.Base{Pos: pos(t)}, Value: false}
	case token.NONE:
		p.advance()
		return &pyast.NoneLit{Base: pyast.Base{Pos: pos(t)}}
	case token.IDENT:
		p.advance()
		return &pyast.Name{Base: pyast.Base{Pos: pos(t)}, Ident: t.Literal}
	case token.LPAREN:
		return p.parseParenOrTuple()
	case token.LBRACKET:
		return p.parseListOrComp()
	case token.LBRACE:
		return p.parseDictOrSetOrComp()
	case token.LAMBDA:
		return p.parseLambda()
	default:
		p.fail("unexpected token " + t.Kind.String())
		p.advance()
		return &pyast.NoneLit{Base: pyast.Base{Pos: pos(t)}}
	}
}

func (p *Parser) parseParenOrTuple() pyast.Expr {
	t := p.expect(token.LPAREN)
	if p.at(token.RPAREN) {
		p.advance()
		return &pyast.TupleExpr{Base: pyast.Base{Pos: pos(t)}}
	}
	first := p.parseExpr()
	if genExpr, isGen := p.tryComprehensionTail(first); isGen {
		p.expect(token.RPAREN)
		return genExpr
	}
	if !p.at(token.COMMA) {
		p.expect(token.RPAREN)
		return first
	}
	elts := []pyast.Expr{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.RPAREN) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	p.expect(token.RPAREN)
	return &pyast.TupleExpr{Base: pyast.Base{Pos: pos(t)}, Elts: elts}
}

// tryComprehensionTail checks for `for ... in ...` right after the first
// expression inside `(...)`/`[...]`/`{...}` and, if present, parses the
// comprehension clause. Only used where the caller has already committed
// to treating `first` as the projected element/key expression.
func (p *Parser) tryComprehensionTail(first pyast.Expr) (pyast.Expr, bool) {
	if !p.at(token.FOR) {
		return nil, false
	}
	comp := p.parseComprehensionClause()
	return &pyast.ListCompExpr{Base: pyast.Base{Pos: first.Position()}, Elt: first, Comp: comp}, true
}

func (p *Parser) parseComprehensionClause() pyast.Comprehension {
	p.expect(token.FOR)
	target := p.parseTargetList()
	p.expect(token.IN)
	iter := p.parseOr()
	var ifs []pyast.Expr
	for p.at(token.IF) {
		p.advance()
		ifs = append(ifs, p.parseOr())
	}
	return pyast.Comprehension{Target: target, Iter: iter, Ifs: ifs}
}

func (p *Parser) parseListOrComp() pyast.Expr {
	t := p.expect(token.LBRACKET)
	if p.at(token.RBRACKET) {
		p.advance()
		return &pyast.ListExpr{Base: pyast.Base{Pos: pos(t)}}
	}
	first := p.parseExpr()
	if p.at(token.FOR) {
		comp := p.parseComprehensionClause()
		p.expect(token.RBRACKET)
		return &pyast.ListCompExpr{Base: pyast.Base{Pos: pos(t)}, Elt: first, Comp: comp}
	}
	elts := []pyast.Expr{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.RBRACKET) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	p.expect(token.RBRACKET)
	return &pyast.ListExpr{Base: pyast.Base{Pos: pos(t)}, Elts: elts}
}

func (p *Parser) parseDictOrSetOrComp() pyast.Expr {
	t := p.expect(token.LBRACE)
	if p.at(token.RBRACE) {
		p.advance()
		return &pyast.DictExpr{Base: pyast.Base{Pos: pos(t)}}
	}
	firstKey := p.parseExpr()
	if p.at(token.COLON) {
		p.advance()
		firstVal := p.parseExpr()
		if p.at(token.FOR) {
			comp := p.parseComprehensionClause()
			p.expect(token.RBRACE)
			return &pyast.DictCompExpr{Base: pyast.Base{Pos: pos(t)}, Key: firstKey, Val: firstVal, Comp: comp}
		}
		keys := []pyast.Expr{firstKey}
		vals := []pyast.Expr{firstVal}
		for p.at(token.COMMA) {
			p.advance()
			if p.at(token.RBRACE) {
				break
			}
			k := p.parseExpr()
			p.expect(token.COLON)
			v := p.parseExpr()
			keys = append(keys, k)
			vals = append(vals, v)
		}
		p.expect(token.RBRACE)
		return &pyast.DictExpr{Base: pyast.Base{Pos: pos(t)}, Keys: keys, Vals: vals}
	}
	if p.at(token.FOR) {
		comp := p.parseComprehensionClause()
		p.expect(token.RBRACE)
		return &pyast.SetCompExpr{Base: pyast.Base{Pos: pos(t)}, Elt: firstKey, Comp: comp}
	}
	elts := []pyast.Expr{firstKey}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.RBRACE) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	p.expect(token.RBRACE)
	return &pyast.SetExpr{Base: pyast.Base{Pos: pos(t)}, Elts: elts}
}

// parseFString splits an f-string's raw content into literal/expression
// parts, honoring `{{`/`}}` escapes. Format specs (`{x:.2f}`) are not
// supported (spec: "interpolation only, no format specs").
func (p *Parser) parseFString(t token.Token) pyast.Expr {
	raw := t.Literal
	var parts []pyast.FStringPart
	var lit strings.Builder
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == '{' && i+1 < len(raw) && raw[i+1] == '{':
			lit.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(raw) && raw[i+1] == '}':
			lit.WriteByte('}')
			i += 2
		case c == '{':
			if lit.Len() > 0 {
				parts = append(parts, pyast.FStringPart{Literal: lit.String()})
				lit.Reset()
			}
			depth := 1
			start := i + 1
			j := start
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
					if depth == 0 {
						goto done
					}
				}
				j++
			}
		done:
			exprSrc := raw[start:j]
			sub, err := Parse(exprSrc + "\n")
			if err == nil && len(sub.Body) == 1 {
				if es, ok := sub.Body[0].(*pyast.ExprStmt); ok {
					parts = append(parts, pyast.FStringPart{Expr: es.X})
				}
			}
			i = j + 1
		default:
			lit.WriteByte(c)
			i++
		}
	}
	if lit.Len() > 0 {
		parts = append(parts, pyast.FStringPart{Literal: lit.String()})
	}
	return &pyast.FStringExpr{Base: pyast.Base{Pos: pos(t)}, Parts: parts}
}
