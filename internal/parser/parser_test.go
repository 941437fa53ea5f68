package parser

import (
	"testing"

	"github.com/chonkie-inc/littrs/internal/pyast"
)

func parseOK(t *testing.T, source string) *pyast.Module {
	t.Helper()
	mod, err := Parse(source)
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", source, err)
	}
	return mod
}

func TestParseAssignment(t *testing.T) {
	mod := parseOK(t, "x = 1 + 2 * 3")
	if len(mod.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(mod.Body))
	}
	as, ok := mod.Body[0].(*pyast.AssignStmt)
	if !ok {
		t.Fatalf("expected *pyast.AssignStmt, got %T", mod.Body[0])
	}
	bin, ok := as.Value.(*pyast.BinExpr)
	if !ok {
		t.Fatalf("expected *pyast.BinExpr, got %T", as.Value)
	}
	if bin.Op != "+" {
		t.Errorf("expected top-level op +, got %q (precedence should bind * tighter)", bin.Op)
	}
}

func TestParseFunctionDef(t *testing.T) {
	mod := parseOK(t, `
def add(a, b=1, *rest, **kw):
    return a + b
`)
	fn, ok := mod.Body[0].(*pyast.FuncDef)
	if !ok {
		t.Fatalf("expected *pyast.FuncDef, got %T", mod.Body[0])
	}
	if fn.Name != "add" {
		t.Errorf("got name %q", fn.Name)
	}
	if len(fn.Params) != 2 || fn.Params[0] != "a" || fn.Params[1] != "b" {
		t.Errorf("got params %v", fn.Params)
	}
	if fn.Vararg != "rest" || fn.Kwarg != "kw" {
		t.Errorf("got vararg %q kwarg %q", fn.Vararg, fn.Kwarg)
	}
	if len(fn.Defaults) != 1 {
		t.Errorf("expected 1 default, got %d", len(fn.Defaults))
	}
}

func TestParseTryExceptMultipleHandlers(t *testing.T) {
	mod := parseOK(t, `
try:
    risky()
except ValueError as e:
    pass
except KeyError:
    pass
`)
	ts, ok := mod.Body[0].(*pyast.TryStmt)
	if !ok {
		t.Fatalf("expected *pyast.TryStmt, got %T", mod.Body[0])
	}
	if len(ts.Handler) != 2 {
		t.Fatalf("expected 2 except clauses, got %d", len(ts.Handler))
	}
	if ts.Handler[0].Type != "ValueError" || ts.Handler[0].As != "e" {
		t.Errorf("got handler 0 = %+v", ts.Handler[0])
	}
	if ts.Handler[1].Type != "KeyError" || ts.Handler[1].As != "" {
		t.Errorf("got handler 1 = %+v", ts.Handler[1])
	}
}

func TestParseFString(t *testing.T) {
	mod := parseOK(t, `f"hello {name}!"`)
	es, ok := mod.Body[0].(*pyast.ExprStmt)
	if !ok {
		t.Fatalf("expected *pyast.ExprStmt, got %T", mod.Body[0])
	}
	if _, ok := es.X.(*pyast.FStringExpr); !ok {
		t.Fatalf("expected *pyast.FStringExpr, got %T", es.X)
	}
}

func TestParseListDictSetLiterals(t *testing.T) {
	mod := parseOK(t, "([1, 2], {1: 2}, {1, 2})")
	es := mod.Body[0].(*pyast.ExprStmt)
	tup, ok := es.X.(*pyast.TupleExpr)
	if !ok {
		t.Fatalf("expected *pyast.TupleExpr, got %T", es.X)
	}
	if _, ok := tup.Elts[0].(*pyast.ListExpr); !ok {
		t.Errorf("element 0: expected *pyast.ListExpr, got %T", tup.Elts[0])
	}
	if _, ok := tup.Elts[1].(*pyast.DictExpr); !ok {
		t.Errorf("element 1: expected *pyast.DictExpr, got %T", tup.Elts[1])
	}
	if _, ok := tup.Elts[2].(*pyast.SetExpr); !ok {
		t.Errorf("element 2: expected *pyast.SetExpr, got %T", tup.Elts[2])
	}
}

func TestParseSliceExpression(t *testing.T) {
	mod := parseOK(t, "xs[1:10:2]")
	es := mod.Body[0].(*pyast.ExprStmt)
	if _, ok := es.X.(*pyast.SliceExpr); !ok {
		t.Fatalf("expected *pyast.SliceExpr, got %T", es.X)
	}
}

func TestParseRaiseFromIsUnsupported(t *testing.T) {
	_, err := Parse(`raise ValueError("x") from cause`)
	if err == nil {
		t.Fatal("expected raise-from to be rejected by the accepted subset")
	}
}

func TestParseComprehension(t *testing.T) {
	mod := parseOK(t, "[x * x for x in range(10) if x % 2 == 0]")
	es := mod.Body[0].(*pyast.ExprStmt)
	if _, ok := es.X.(*pyast.ListCompExpr); !ok {
		t.Fatalf("expected *pyast.ListCompExpr, got %T", es.X)
	}
}
