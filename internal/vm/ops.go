package vm

import (
	"math"

	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/value"
)

// applyBinaryOp implements the arithmetic/bitwise family. Grounded on the
// original engine's per-operator type table: Add has no generic numeric
// fallback to string/list concatenation, Mult alone supports sequence
// repetition, Div/FloorDiv/Mod float-coerce with explicit zero checks, Pow
// float-coerces with no zero check, and the bitwise family is strictly
// integer.
func applyBinaryOp(op bytecode.BinOp, a, b value.Value) (value.Value, error) {
	switch op {
	case bytecode.BinAdd:
		return applyAdd(a, b)
	case bytecode.BinMul:
		return applyMul(a, b)
	case bytecode.BinSub:
		if !a.IsNumber() || !b.IsNumber() {
			return value.None(), typeErr("-", a, b)
		}
		return numericResult(a, b, a.Float64()-b.Float64()), nil
	case bytecode.BinDiv:
		if !a.IsNumber() || !b.IsNumber() {
			return value.None(), typeErr("/", a, b)
		}
		if b.Float64() == 0 {
			return value.None(), raisef("ZeroDivisionError", "division by zero")
		}
		return value.Float(a.Float64() / b.Float64()), nil
	case bytecode.BinFloorDiv:
		if !a.IsNumber() || !b.IsNumber() {
			return value.None(), typeErr("//", a, b)
		}
		if b.Float64() == 0 {
			return value.None(), raisef("ZeroDivisionError", "division by zero")
		}
		q := math.Floor(a.Float64() / b.Float64())
		return numericResult(a, b, q), nil
	case bytecode.BinMod:
		if !a.IsNumber() || !b.IsNumber() {
			return value.None(), typeErr("%", a, b)
		}
		if b.Float64() == 0 {
			return value.None(), raisef("ZeroDivisionError", "modulo by zero")
		}
		// Python's % floors toward negative infinity (sign follows the
		// divisor), unlike Go's truncating %.
		m := math.Mod(a.Float64(), b.Float64())
		if m != 0 && (m < 0) != (b.Float64() < 0) {
			m += b.Float64()
		}
		return numericResult(a, b, m), nil
	case bytecode.BinPow:
		if !a.IsNumber() || !b.IsNumber() {
			return value.None(), typeErr("**", a, b)
		}
		r := math.Pow(a.Float64(), b.Float64())
		if isIntKind(a) && isIntKind(b) && b.Float64() >= 0 && r == math.Trunc(r) {
			return value.Int(int64(r)), nil
		}
		return value.Float(r), nil
	case bytecode.BinBitOr, bytecode.BinBitXor, bytecode.BinBitAnd, bytecode.BinLShift, bytecode.BinRShift:
		return intBinOp(op, a, b)
	default:
		return value.None(), raisef("RuntimeError", "unknown binary operator")
	}
}

func applyAdd(a, b value.Value) (value.Value, error) {
	switch {
	case a.IsNumber() && b.IsNumber():
		return numericResult(a, b, a.Float64()+b.Float64()), nil
	case a.Kind == value.KindStr && b.Kind == value.KindStr:
		return value.Str(a.AsStr() + b.AsStr()), nil
	case a.Kind == value.KindList && b.Kind == value.KindList:
		items := append(append([]value.Value{}, a.AsList().Items...), b.AsList().Items...)
		return value.ListVal(value.NewList(items)), nil
	case a.Kind == value.KindTuple && b.Kind == value.KindTuple:
		items := append(append([]value.Value{}, a.AsTuple().Items...), b.AsTuple().Items...)
		return value.TupleVal(value.NewTuple(items)), nil
	default:
		return value.None(), typeErr("+", a, b)
	}
}

func applyMul(a, b value.Value) (value.Value, error) {
	switch {
	case a.IsNumber() && b.IsNumber():
		return numericResult(a, b, a.Float64()*b.Float64()), nil
	case a.Kind == value.KindStr && isIntKind(b):
		return value.Str(repeatStr(a.AsStr(), int(b.AsInt()))), nil
	case isIntKind(a) && b.Kind == value.KindStr:
		return value.Str(repeatStr(b.AsStr(), int(a.AsInt()))), nil
	case a.Kind == value.KindList && isIntKind(b):
		return value.ListVal(value.NewList(repeatItems(a.AsList().Items, int(b.AsInt())))), nil
	case isIntKind(a) && b.Kind == value.KindList:
		return value.ListVal(value.NewList(repeatItems(b.AsList().Items, int(a.AsInt())))), nil
	default:
		return value.None(), typeErr("*", a, b)
	}
}

func repeatStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func repeatItems(items []value.Value, n int) []value.Value {
	if n <= 0 {
		return nil
	}
	out := make([]value.Value, 0, len(items)*n)
	for i := 0; i < n; i++ {
		out = append(out, items...)
	}
	return out
}

func isIntKind(v value.Value) bool { return v.Kind == value.KindInt || v.Kind == value.KindBool }

// numericResult keeps the Int representation when both operands were
// integral and the computed value has no fractional part, otherwise
// promotes to Float — matching the original engine's int-preservation rule.
func numericResult(a, b value.Value, f float64) value.Value {
	if isIntKind(a) && isIntKind(b) && f == math.Trunc(f) {
		return value.Int(int64(f))
	}
	return value.Float(f)
}

func intBinOp(op bytecode.BinOp, a, b value.Value) (value.Value, error) {
	if !isIntKind(a) || !isIntKind(b) {
		return value.None(), raisef("TypeError", "unsupported operand type(s): expected int")
	}
	x, y := a.AsInt(), b.AsInt()
	switch op {
	case bytecode.BinBitOr:
		return value.Int(x | y), nil
	case bytecode.BinBitXor:
		return value.Int(x ^ y), nil
	case bytecode.BinBitAnd:
		return value.Int(x & y), nil
	case bytecode.BinLShift:
		return value.Int(x << uint(y)), nil
	case bytecode.BinRShift:
		return value.Int(x >> uint(y)), nil
	default:
		return value.None(), raisef("RuntimeError", "unknown bitwise operator")
	}
}

func typeErr(op string, a, b value.Value) error {
	return raisef("TypeError", "unsupported operand type(s) for %s: '%s' and '%s'", op, a.TypeName(), b.TypeName())
}

// applyUnaryOp implements not/-/+/~.
func applyUnaryOp(op bytecode.UnaryOp, v value.Value) (value.Value, error) {
	switch op {
	case bytecode.UnaryNot:
		return value.Bool(!value.Truthy(v)), nil
	case bytecode.UnaryNeg:
		switch v.Kind {
		case value.KindInt, value.KindBool:
			return value.Int(-v.AsInt()), nil
		case value.KindFloat:
			return value.Float(-v.AsFloat()), nil
		default:
			return value.None(), raisef("TypeError", "bad operand type for unary -: '%s'", v.TypeName())
		}
	case bytecode.UnaryPos:
		if !v.IsNumber() {
			return value.None(), raisef("TypeError", "bad operand type for unary +: '%s'", v.TypeName())
		}
		return v, nil
	case bytecode.UnaryInvert:
		if !isIntKind(v) {
			return value.None(), raisef("TypeError", "bad operand type for unary ~: '%s'", v.TypeName())
		}
		return value.Int(^v.AsInt()), nil
	default:
		return value.None(), raisef("RuntimeError", "unknown unary operator")
	}
}

// applyCompareOp implements ==, !=, <, <=, >, >=, in, not in, is, is not.
// Grounded on the original engine's rules: Eq/NotEq use structural
// equality across any pair of types; ordered comparison supports numeric
// and string pairs; `in`/`not in` is extended here to Tuple and Set
// membership, which the original left unsupported despite both being
// ordinary iterables — a deliberate completion, not a divergence in
// spirit. `is`/`is not` only ever holds for None.
func applyCompareOp(op bytecode.CmpOp, a, b value.Value) (value.Value, error) {
	switch op {
	case bytecode.CmpEq:
		return value.Bool(value.Equal(a, b)), nil
	case bytecode.CmpNotEq:
		return value.Bool(!value.Equal(a, b)), nil
	case bytecode.CmpLt, bytecode.CmpLtE, bytecode.CmpGt, bytecode.CmpGtE:
		c, ok := value.Compare(a, b)
		if !ok {
			return value.None(), raisef("TypeError", "'%s' not supported between instances of '%s' and '%s'", cmpSymbol(op), a.TypeName(), b.TypeName())
		}
		switch op {
		case bytecode.CmpLt:
			return value.Bool(c < 0), nil
		case bytecode.CmpLtE:
			return value.Bool(c <= 0), nil
		case bytecode.CmpGt:
			return value.Bool(c > 0), nil
		default:
			return value.Bool(c >= 0), nil
		}
	case bytecode.CmpIn, bytecode.CmpNotIn:
		in, err := containsValue(a, b)
		if err != nil {
			return value.None(), err
		}
		if op == bytecode.CmpNotIn {
			in = !in
		}
		return value.Bool(in), nil
	case bytecode.CmpIs:
		return value.Bool(a.Kind == value.KindNone && b.Kind == value.KindNone), nil
	case bytecode.CmpIsNot:
		return value.Bool(!(a.Kind == value.KindNone && b.Kind == value.KindNone)), nil
	default:
		return value.None(), raisef("RuntimeError", "unknown comparison operator")
	}
}

func cmpSymbol(op bytecode.CmpOp) string {
	switch op {
	case bytecode.CmpLt:
		return "<"
	case bytecode.CmpLtE:
		return "<="
	case bytecode.CmpGt:
		return ">"
	default:
		return ">="
	}
}

// containsValue implements `needle in container`.
func containsValue(needle, container value.Value) (bool, error) {
	switch container.Kind {
	case value.KindList:
		for _, it := range container.AsList().Items {
			if value.Equal(needle, it) {
				return true, nil
			}
		}
		return false, nil
	case value.KindTuple:
		for _, it := range container.AsTuple().Items {
			if value.Equal(needle, it) {
				return true, nil
			}
		}
		return false, nil
	case value.KindSet:
		return container.AsSet().Contains(needle), nil
	case value.KindDict:
		_, ok := container.AsDict().Get(needle)
		return ok, nil
	case value.KindStr:
		if needle.Kind != value.KindStr {
			return false, raisef("TypeError", "'in <string>' requires string as left operand, not %s", needle.TypeName())
		}
		return containsSubstr(container.AsStr(), needle.AsStr()), nil
	default:
		return false, raisef("TypeError", "argument of type '%s' is not iterable", container.TypeName())
	}
}

func containsSubstr(s, sub string) bool {
	if sub == "" {
		return true
	}
	n, m := len(s), len(sub)
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return true
		}
	}
	return false
}
