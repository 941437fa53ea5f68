package vm

import (
	"testing"

	"github.com/chonkie-inc/littrs/internal/compiler"
	"github.com/chonkie-inc/littrs/internal/parser"
	"github.com/chonkie-inc/littrs/internal/value"
)

func run(t *testing.T, source string) value.Value {
	t.Helper()
	mod, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	code, err := compiler.Compile(mod, source)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	v, err := New().Execute(code)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return v
}

func runErr(t *testing.T, source string) error {
	t.Helper()
	mod, err := parser.Parse(source)
	if err != nil {
		return err
	}
	code, err := compiler.Compile(mod, source)
	if err != nil {
		return err
	}
	_, err = New().Execute(code)
	return err
}

func testInt(t *testing.T, v value.Value, want int64) {
	t.Helper()
	if v.Kind != value.KindInt {
		t.Fatalf("expected int, got %s (%s)", v.TypeName(), value.Repr(v))
	}
	if v.AsInt() != want {
		t.Errorf("got %d, want %d", v.AsInt(), want)
	}
}

func testStr(t *testing.T, v value.Value, want string) {
	t.Helper()
	if v.Kind != value.KindStr {
		t.Fatalf("expected str, got %s (%s)", v.TypeName(), value.Repr(v))
	}
	if v.AsStr() != want {
		t.Errorf("got %q, want %q", v.AsStr(), want)
	}
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 // 3", 3},
		{"-7 // 2", -4}, // floor division rounds toward -inf
		{"10 % 3", 1},
		{"-7 % 2", 1}, // sign of divisor
		{"2 ** 10", 1024},
	}
	for _, c := range cases {
		testInt(t, run(t, c.src), c.want)
	}
}

func TestStringFormatting(t *testing.T) {
	v := run(t, `name = "world"
f"hello {name}"`)
	testStr(t, v, "hello world")
}

func TestFunctionCallWithDefaultsAndVararg(t *testing.T) {
	v := run(t, `
def greet(name, greeting="hi", *extra):
    return greeting + " " + name + str(len(extra))
greet("Ada", "hey", 1, 2)
`)
	testStr(t, v, "hey Ada2")
}

func TestRecursion(t *testing.T) {
	v := run(t, `
def fact(n):
    if n <= 1:
        return 1
    return n * fact(n - 1)
fact(6)
`)
	testInt(t, v, 720)
}

func TestForLoopOverRange(t *testing.T) {
	v := run(t, `
total = 0
for i in range(5):
    total = total + i
total
`)
	testInt(t, v, 10)
}

func TestWhileBreakContinue(t *testing.T) {
	v := run(t, `
i = 0
total = 0
while i < 10:
    i = i + 1
    if i % 2 == 0:
        continue
    if i > 7:
        break
    total = total + i
total
`)
	testInt(t, v, 16) // 1+3+5+7
}

func TestTryExceptBindsException(t *testing.T) {
	v := run(t, `
try:
    1 / 0
except ZeroDivisionError as e:
    str(e)
`)
	if v.Kind != value.KindStr {
		t.Fatalf("expected str, got %s", v.TypeName())
	}
}

func TestTryExceptTypeFilterMismatchPropagates(t *testing.T) {
	err := runErr(t, `
try:
    1 / 0
except ValueError:
    "unreached"
`)
	if err == nil {
		t.Fatal("expected an unhandled ZeroDivisionError")
	}
	if exceptionType(err) != "ZeroDivisionError" {
		t.Errorf("got exception type %q, want ZeroDivisionError", exceptionType(err))
	}
}

func TestExceptGenericCatchesAnyRealException(t *testing.T) {
	v := run(t, `
try:
    1 / 0
except Exception as e:
    str(e)
`)
	if v.Kind != value.KindStr {
		t.Fatalf("expected str, got %s", v.TypeName())
	}
}

func TestExceptBaseExceptionCatchesAnyRealException(t *testing.T) {
	v := run(t, `
try:
    [][0]
except BaseException:
    "caught"
`)
	testStr(t, v, "caught")
}

func TestNestedTryInnerHandlerWinsFirst(t *testing.T) {
	v := run(t, `
try:
    try:
        raise ValueError("inner")
    except ValueError:
        result = "inner handled"
except ValueError:
    result = "outer handled"
result
`)
	testStr(t, v, "inner handled")
}

func TestListSliceAndSubscript(t *testing.T) {
	v := run(t, `
xs = [0, 1, 2, 3, 4]
xs[1:4]
`)
	if v.Kind != value.KindList || len(v.AsList().Items) != 3 {
		t.Fatalf("expected 3-item list, got %s", value.Repr(v))
	}
	testInt(t, v.AsList().Items[0], 1)
	testInt(t, v.AsList().Items[2], 3)
}

func TestStringSliceReverse(t *testing.T) {
	testStr(t, run(t, `"abc"[::-1]`), "cba")
}

func TestStringSliceOutOfRangeClamps(t *testing.T) {
	testStr(t, run(t, `"abc"[10:20]`), "")
}

func TestDictMissingKeyRaisesKeyError(t *testing.T) {
	err := runErr(t, `{}[1]`)
	if err == nil || exceptionType(err) != "KeyError" {
		t.Fatalf("expected KeyError, got %v", err)
	}
}

func TestListEmptyIndexRaisesIndexError(t *testing.T) {
	err := runErr(t, `[][0]`)
	if err == nil || exceptionType(err) != "IndexError" {
		t.Fatalf("expected IndexError, got %v", err)
	}
}

func TestSubscriptAssignment(t *testing.T) {
	v := run(t, `
xs = [1, 2, 3]
xs[1] = 99
xs
`)
	testInt(t, v.AsList().Items[1], 99)
}

func TestAugAssignSubscript(t *testing.T) {
	v := run(t, `
xs = [1, 2, 3]
xs[0] += 10
xs[0]
`)
	testInt(t, v, 11)
}

func TestListComprehension(t *testing.T) {
	v := run(t, `[x * x for x in range(5) if x % 2 == 0]`)
	if v.Kind != value.KindList {
		t.Fatalf("expected list, got %s", v.TypeName())
	}
	want := []int64{0, 4, 16}
	if len(v.AsList().Items) != len(want) {
		t.Fatalf("got %d items, want %d", len(v.AsList().Items), len(want))
	}
	for i, w := range want {
		testInt(t, v.AsList().Items[i], w)
	}
}

func TestSortedWithKeyAndReverse(t *testing.T) {
	v := run(t, `sorted([3, 1, 2], key=lambda x: -x)`)
	want := []int64{3, 2, 1}
	for i, w := range want {
		testInt(t, v.AsList().Items[i], w)
	}
}

func TestMaxEmptyRaisesValueError(t *testing.T) {
	err := runErr(t, `max([])`)
	if err == nil || exceptionType(err) != "ValueError" {
		t.Fatalf("expected ValueError, got %v", err)
	}
}

func TestRangeBoundaryBehavior(t *testing.T) {
	testListInts(t, run(t, `range(0)`), nil)
	testListInts(t, run(t, `range(3)`), []int64{0, 1, 2})
	testListInts(t, run(t, `range(5, 0, -1)`), []int64{5, 4, 3, 2, 1})
}

func testListInts(t *testing.T, v value.Value, want []int64) {
	t.Helper()
	if v.Kind != value.KindList {
		t.Fatalf("expected list, got %s", v.TypeName())
	}
	items := v.AsList().Items
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, w := range want {
		testInt(t, items[i], w)
	}
}

func TestInstructionLimitIsUncatchable(t *testing.T) {
	mod, err := parser.Parse("while True:\n    pass")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	code, err := compiler.Compile(mod, "while True:\n    pass")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	vm := New()
	vm.SetLimits(1000, 0)
	_, err = vm.Execute(code)
	if err == nil {
		t.Fatal("expected an instruction-limit fault")
	}
	if _, ok := err.(*LimitError); !ok {
		t.Fatalf("expected *LimitError, got %T: %v", err, err)
	}
}

func TestInstructionLimitNotCaughtByExcept(t *testing.T) {
	src := `
try:
    while True:
        pass
except Exception:
    "swallowed"
`
	mod, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	code, err := compiler.Compile(mod, src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	vm := New()
	vm.SetLimits(1000, 0)
	_, err = vm.Execute(code)
	if _, ok := err.(*LimitError); !ok {
		t.Fatalf("limit fault must bypass except Exception, got %T: %v", err, err)
	}
}

func TestGlobalsPersistAcrossExecuteCalls(t *testing.T) {
	mod1, _ := parser.Parse("x = 42")
	code1, err := compiler.Compile(mod1, "x = 42")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	vm := New()
	if _, err := vm.Execute(code1); err != nil {
		t.Fatalf("execute: %v", err)
	}
	mod2, _ := parser.Parse("x")
	code2, err := compiler.Compile(mod2, "x")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vm.Execute(code2)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	testInt(t, v, 42)
}

func TestToolCallAndShadowing(t *testing.T) {
	vm := New()
	vm.RegisterTool("double", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		return value.Int(args[0].AsInt() * 2), nil
	})
	mod, _ := parser.Parse("double(21)")
	code, err := compiler.Compile(mod, "double(21)")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vm.Execute(code)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	testInt(t, v, 42)

	// A local binding of the same name shadows the tool for the rest of
	// the run, per spec §9 "globals win".
	mod2, _ := parser.Parse("double = 1\ndouble")
	code2, err := compiler.Compile(mod2, "double = 1\ndouble")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v2, err := vm.Execute(code2)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	testInt(t, v2, 1)
}
