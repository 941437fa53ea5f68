// Package parser implements a recursive-descent / Pratt expression parser
// for the accepted Python subset, turning a internal/lexer token stream
// into an internal/pyast tree. The engine's core treats a Python syntax
// parser as an external collaborator (interface only); this package is
// that collaborator, kept deliberately plain.
package parser

import (
	"fmt"

	"github.com/chonkie-inc/littrs/internal/lexer"
	"github.com/chonkie-inc/littrs/internal/pyast"
	"github.com/chonkie-inc/littrs/internal/token"
)

// UnsupportedError is returned for syntax explicitly out of scope
// (class, finally, match, decorators, async/await, global, nonlocal, del,
// walrus, with, raise-from) rather than treated as a generic parse error.
type UnsupportedError struct {
	Feature string
	Line    int
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("Unsupported: %s is not supported (line %d)", e.Feature, e.Line)
}

// SyntaxError is a generic parse failure.
type SyntaxError struct {
	Msg  string
	Line int
	Col  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %s (line %d)", e.Msg, e.Line)
}

// Parser consumes a pre-lexed token stream and produces an *pyast.Module.
type Parser struct {
	toks []token.Token
	pos  int
	err  error
}

// Parse lexes and parses source, returning the module AST or the first
// error encountered (a *SyntaxError or *UnsupportedError).
func Parse(source string) (*pyast.Module, error) {
	l := lexer.New(source)
	var toks []token.Token
	for {
		t := l.NextToken()
		toks = append(toks, t)
		if t.Kind == token.EOF {
			break
		}
	}
	p := &Parser{toks: toks}
	mod := p.parseModule()
	if p.err != nil {
		return nil, p.err
	}
	return mod, nil
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}
func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) expect(k token.Kind) token.Token {
	if p.err != nil {
		return p.cur()
	}
	if !p.at(k) {
		p.fail(fmt.Sprintf("expected %s, got %s", k, p.cur().Kind))
		return p.cur()
	}
	return p.advance()
}

func (p *Parser) fail(msg string) {
	if p.err == nil {
		t := p.cur()
		p.err = &SyntaxError{Msg: msg, Line: t.Line, Col: t.Col}
	}
}

func (p *Parser) failUnsupported(feature string) {
	if p.err == nil {
		p.err = &UnsupportedError{Feature: feature, Line: p.cur().Line}
	}
}

func pos(t token.Token) pyast.Pos { return pyast.Pos{Line: t.Line, Col: t.Col} }

// skipNewlines consumes NEWLINE and SEMI separators between statements.
func (p *Parser) skipNewlines() {
	for p.at(token.NEWLINE) || p.at(token.SEMI) {
		p.advance()
	}
}

func (p *Parser) parseModule() *pyast.Module {
	mod := &pyast.Module{}
	p.skipNewlines()
	for !p.at(token.EOF) && p.err == nil {
		stmt := p.parseStatement()
		if p.err != nil {
			break
		}
		if stmt != nil {
			mod.Body = append(mod.Body, stmt)
		}
		p.skipNewlines()
	}
	return mod
}

// parseBlock consumes `:` NEWLINE INDENT stmt* DEDENT.
func (p *Parser) parseBlock() []pyast.Stmt {
	p.expect(token.COLON)
	if p.err != nil {
		return nil
	}
	// Single-line suite: `if x: y = 1`
	if !p.at(token.NEWLINE) {
		s := p.parseSimpleStatement()
		return []pyast.Stmt{s}
	}
	p.skipNewlines()
	p.expect(token.INDENT)
	var body []pyast.Stmt
	for !p.at(token.DEDENT) && !p.at(token.EOF) && p.err == nil {
		s := p.parseStatement()
		if s != nil {
			body = append(body, s)
		}
		p.skipNewlines()
	}
	p.expect(token.DEDENT)
	return body
}
