package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chonkie-inc/littrs/internal/value"
)

func testInt(t *testing.T, v value.Value, want int64) {
	t.Helper()
	if v.Kind != value.KindInt {
		t.Fatalf("expected int, got %s (%s)", v.TypeName(), value.Repr(v))
	}
	if v.AsInt() != want {
		t.Errorf("got %d, want %d", v.AsInt(), want)
	}
}

// Scenario: persistence + injection across two Run calls (spec §8).
func TestPersistenceAndInjection(t *testing.T) {
	sb := New()
	sb.SetGlobal("seed", value.Int(10))

	if _, err := sb.Run("x = seed + 5"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	got, ok := sb.GetGlobal("x")
	if !ok {
		t.Fatal("expected global x to be set")
	}
	testInt(t, got, 15)

	v, err := sb.Run("x")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	testInt(t, v, 15)
}

// Scenario: tool call with a default kwarg.
func TestToolCallWithDefaultKwarg(t *testing.T) {
	sb := New()
	sb.Register("greet", func(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
		punctuation := "."
		if p, ok := kwargs["punctuation"]; ok {
			punctuation = p.AsStr()
		}
		return value.Str("hello " + args[0].AsStr() + punctuation), nil
	})
	v, err := sb.Run(`greet("Ada")`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.AsStr() != "hello Ada." {
		t.Errorf("got %q", v.AsStr())
	}

	v, err = sb.Run(`greet("Ada", punctuation="!")`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.AsStr() != "hello Ada!" {
		t.Errorf("got %q", v.AsStr())
	}
}

// Scenario: instruction-limit fault message wording.
func TestInstructionLimitFaultMessage(t *testing.T) {
	sb := New()
	sb.Limit(Limits{MaxInstructions: 10000})
	_, err := sb.Run("while True:\n    pass")
	if err == nil {
		t.Fatal("expected an instruction-limit fault")
	}
	if !strings.Contains(err.Error(), "Instruction limit exceeded (limit: 10000)") {
		t.Errorf("got %q, want it to contain %q", err.Error(), "Instruction limit exceeded (limit: 10000)")
	}
}

// Scenario: Capture returns print() output alongside the final expression.
func TestCaptureOutputAndValue(t *testing.T) {
	sb := New()
	out, err := sb.Capture(`
print("one")
print("two")
21 * 2
`)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if len(out.Output) != 2 || out.Output[0] != "one" || out.Output[1] != "two" {
		t.Fatalf("got output %v", out.Output)
	}
	testInt(t, out.Value, 42)
}

// Scenario: mount read/write round-trips through Files().
func TestMountReadWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(inPath, []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	outPath := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(outPath, nil, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	sb := New()
	sb.Mount("/in.txt", inPath, false)
	sb.Mount("/out.txt", outPath, true)

	v, err := sb.Run(`
f = open("/in.txt", "r")
content = f.read()
f.close()
g = open("/out.txt", "w")
g.write(content + " world")
g.close()
content
`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.AsStr() != "hello" {
		t.Errorf("got %q", v.AsStr())
	}
	files := sb.Files()
	if files["/out.txt"] != "hello world" {
		t.Errorf("got mounted file content %q", files["/out.txt"])
	}
}

// Reading a write-mode handle raises UnsupportedOperation, which a
// matching except clause must be able to catch (not just RuntimeError).
func TestUnsupportedOperationIsCatchableByName(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(outPath, nil, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	sb := New()
	sb.Mount("/out.txt", outPath, true)

	v, err := sb.Run(`
f = open("/out.txt", "w")
try:
    f.read()
except UnsupportedOperation:
    "caught"
`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.AsStr() != "caught" {
		t.Errorf("got %q, want UnsupportedOperation to be caught", v.AsStr())
	}
}

// Scenario: try/except around 1/0 produces a message containing "division".
func TestDivisionByZeroCaughtWithMessage(t *testing.T) {
	sb := New()
	v, err := sb.Run(`
try:
    1 / 0
except ZeroDivisionError as e:
    str(e)
`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(strings.ToLower(v.AsStr()), "division") {
		t.Errorf("got %q, want it to mention division", v.AsStr())
	}
}

func TestReentrantRunIsRejected(t *testing.T) {
	sb := New()
	sb.running = true
	_, err := sb.Run("1")
	if err == nil {
		t.Fatal("expected Run to reject re-entry")
	}
}

func TestModuleRegistrationAndCall(t *testing.T) {
	sb := New()
	sb.Module("greeter", func(b *ModuleBuilder) {
		b.Set("DEFAULT_NAME", value.Str("world"))
		b.SetFunc("hello", func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
			return value.Str("hello " + args[0].AsStr()), nil
		})
	})
	v, err := sb.Run(`
import greeter
greeter.hello(greeter.DEFAULT_NAME)
`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.AsStr() != "hello world" {
		t.Errorf("got %q", v.AsStr())
	}
}

func TestDescribeListsRegisteredTools(t *testing.T) {
	sb := New()
	info := NewTool("add", "Add two integers.")
	info.Arg("a", "int", "first operand")
	info.Arg("b", "int", "second operand")
	info.SetReturns("int")
	sb.RegisterTool(info, func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		return value.Int(args[0].AsInt() + args[1].AsInt()), nil
	})

	doc := sb.Describe()
	if !strings.Contains(doc, "add") {
		t.Errorf("Describe() missing tool name: %q", doc)
	}

	yamlDoc, err := sb.DescribeYAML()
	if err != nil {
		t.Fatalf("DescribeYAML: %v", err)
	}
	if !strings.Contains(yamlDoc, "name: add") {
		t.Errorf("DescribeYAML() missing tool entry: %q", yamlDoc)
	}
}

func TestWithBuiltinsEnablesJSONModule(t *testing.T) {
	sb := New().WithBuiltins()
	v, err := sb.Run(`
import json
json.loads(json.dumps([1, 2, 3]))
`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v.Kind != value.KindList || len(v.AsList().Items) != 3 {
		t.Fatalf("expected round-tripped 3-item list, got %s", value.Repr(v))
	}
}
