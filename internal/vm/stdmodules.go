package vm

import (
	"encoding/json"
	"math"

	"github.com/chonkie-inc/littrs/internal/value"
)

// RegisterStdlib installs the virtual json/math/typing modules, the set
// pkg/sandbox's WithBuiltins opts a sandbox into — they exist to make
// commonly imported stdlib modules resolve rather than raise
// ModuleNotFoundError, not to be a general-purpose reimplementation of
// each module.
func (vm *VM) RegisterStdlib() {
	vm.RegisterModule("json", jsonModule())
	vm.RegisterModule("math", mathModule())
	vm.RegisterModule("typing", typingModule())
}

func jsonModule() *value.Module {
	m := value.NewModule("json")
	m.Set("loads", value.BuiltinVal(&value.Builtin{Name: "json.loads", Fn: jsonLoads}))
	m.Set("dumps", value.BuiltinVal(&value.Builtin{Name: "json.dumps", Fn: jsonDumps}))
	return m
}

func jsonLoads(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Kind != value.KindStr {
		return value.None(), raisef("TypeError", "loads() requires a str argument")
	}
	var raw any
	if err := json.Unmarshal([]byte(args[0].AsStr()), &raw); err != nil {
		return value.None(), nil
	}
	return fromJSON(raw), nil
}

func fromJSON(raw any) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.None()
	case bool:
		return value.Bool(v)
	case float64:
		if v == math.Trunc(v) {
			return value.Int(int64(v))
		}
		return value.Float(v)
	case string:
		return value.Str(v)
	case []any:
		items := make([]value.Value, len(v))
		for i, it := range v {
			items[i] = fromJSON(it)
		}
		return value.ListVal(value.NewList(items))
	case map[string]any:
		d := value.NewDict()
		for k, it := range v {
			_ = d.Set(value.Str(k), fromJSON(it))
		}
		return value.DictVal(d)
	default:
		return value.None()
	}
}

func jsonDumps(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.None(), raisef("TypeError", "dumps() requires exactly one argument")
	}
	raw, err := toJSON(args[0])
	if err != nil {
		return value.None(), err
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return value.None(), raisef("TypeError", "object is not JSON serializable")
	}
	return value.Str(string(out)), nil
}

func toJSON(v value.Value) (any, error) {
	switch v.Kind {
	case value.KindNone:
		return nil, nil
	case value.KindBool:
		return v.AsBool(), nil
	case value.KindInt:
		return v.AsInt(), nil
	case value.KindFloat:
		return v.AsFloat(), nil
	case value.KindStr:
		return v.AsStr(), nil
	case value.KindList:
		items := v.AsList().Items
		out := make([]any, len(items))
		for i, it := range items {
			jv, err := toJSON(it)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case value.KindTuple:
		items := v.AsTuple().Items
		out := make([]any, len(items))
		for i, it := range items {
			jv, err := toJSON(it)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case value.KindDict:
		d := v.AsDict()
		out := make(map[string]any, d.Len())
		for i, k := range d.Keys() {
			if k.Kind != value.KindStr {
				return nil, raisef("TypeError", "keys must be str")
			}
			jv, err := toJSON(d.Values()[i])
			if err != nil {
				return nil, err
			}
			out[k.AsStr()] = jv
		}
		return out, nil
	default:
		return nil, raisef("TypeError", "object of type '%s' is not JSON serializable", v.TypeName())
	}
}

func mathModule() *value.Module {
	m := value.NewModule("math")
	m.Set("pi", value.Float(math.Pi))
	m.Set("e", value.Float(math.E))
	m.Set("inf", value.Float(math.Inf(1)))
	m.Set("nan", value.Float(math.NaN()))
	m.Set("tau", value.Float(2*math.Pi))

	unary := map[string]func(float64) float64{
		"sqrt":    math.Sqrt,
		"floor":   math.Floor,
		"ceil":    math.Ceil,
		"log2":    math.Log2,
		"log10":   math.Log10,
		"sin":     math.Sin,
		"cos":     math.Cos,
		"tan":     math.Tan,
		"asin":    math.Asin,
		"acos":    math.Acos,
		"atan":    math.Atan,
		"fabs":    math.Abs,
		"exp":     math.Exp,
		"degrees": func(r float64) float64 { return r * 180 / math.Pi },
		"radians": func(d float64) float64 { return d * math.Pi / 180 },
		"trunc":   math.Trunc,
	}
	for name, fn := range unary {
		fn := fn
		m.Set(name, mathFn1(name, fn))
	}
	m.Set("log", value.BuiltinVal(&value.Builtin{Name: "math.log", Fn: func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		x, err := mathArg(args, 0, "log")
		if err != nil {
			return value.None(), err
		}
		if len(args) > 1 {
			base, err := mathArg(args, 1, "log")
			if err != nil {
				return value.None(), err
			}
			return value.Float(math.Log(x) / math.Log(base)), nil
		}
		return value.Float(math.Log(x)), nil
	}}))
	m.Set("atan2", value.BuiltinVal(&value.Builtin{Name: "math.atan2", Fn: func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		y, err := mathArg(args, 0, "atan2")
		if err != nil {
			return value.None(), err
		}
		x, err := mathArg(args, 1, "atan2")
		if err != nil {
			return value.None(), err
		}
		return value.Float(math.Atan2(y, x)), nil
	}}))
	m.Set("pow", value.BuiltinVal(&value.Builtin{Name: "math.pow", Fn: func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		x, err := mathArg(args, 0, "pow")
		if err != nil {
			return value.None(), err
		}
		y, err := mathArg(args, 1, "pow")
		if err != nil {
			return value.None(), err
		}
		return value.Float(math.Pow(x, y)), nil
	}}))
	m.Set("isnan", mathPred("isnan", math.IsNaN))
	m.Set("isinf", value.BuiltinVal(&value.Builtin{Name: "math.isinf", Fn: func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		x, err := mathArg(args, 0, "isinf")
		if err != nil {
			return value.None(), err
		}
		return value.Bool(math.IsInf(x, 0)), nil
	}}))
	m.Set("gcd", value.BuiltinVal(&value.Builtin{Name: "math.gcd", Fn: mathGcd}))
	m.Set("factorial", value.BuiltinVal(&value.Builtin{Name: "math.factorial", Fn: mathFactorial}))
	return m
}

func mathArg(args []value.Value, i int, name string) (float64, error) {
	if i >= len(args) || !args[i].IsNumber() {
		return 0, raisef("TypeError", "%s() requires a number argument", name)
	}
	return args[i].Float64(), nil
}

func mathFn1(name string, f func(float64) float64) value.Value {
	return value.BuiltinVal(&value.Builtin{Name: "math." + name, Fn: func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		x, err := mathArg(args, 0, name)
		if err != nil {
			return value.None(), err
		}
		return value.Float(f(x)), nil
	}})
}

func mathPred(name string, f func(float64) bool) value.Value {
	return value.BuiltinVal(&value.Builtin{Name: "math." + name, Fn: func(args []value.Value, _ map[string]value.Value) (value.Value, error) {
		x, err := mathArg(args, 0, name)
		if err != nil {
			return value.None(), err
		}
		return value.Bool(f(x)), nil
	}})
}

func mathGcd(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) != 2 || !isIntKind(args[0]) || !isIntKind(args[1]) {
		return value.None(), raisef("TypeError", "gcd() requires two int arguments")
	}
	a, b := args[0].AsInt(), args[1].AsInt()
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return value.Int(a), nil
}

// mathFactorial mirrors the original engine's overflow guard: results
// beyond n=20 return None rather than an incorrect wrapped int64.
func mathFactorial(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) != 1 || !isIntKind(args[0]) {
		return value.None(), raisef("TypeError", "factorial() requires an int argument")
	}
	n := args[0].AsInt()
	if n < 0 {
		return value.None(), raisef("ValueError", "factorial() not defined for negative values")
	}
	if n > 20 {
		return value.None(), nil
	}
	r := int64(1)
	for i := int64(2); i <= n; i++ {
		r *= i
	}
	return value.Int(r), nil
}

// typingModule maps every name to None: the sandbox has no type-checker, so
// these exist purely so `from typing import ...` doesn't raise
// ModuleNotFoundError in code ported from a typed codebase.
func typingModule() *value.Module {
	m := value.NewModule("typing")
	names := []string{
		"Any", "Union", "Optional", "List", "Dict", "Tuple", "Set", "FrozenSet",
		"Sequence", "Mapping", "MutableMapping", "Iterable", "Iterator", "Generator",
		"Callable", "Type", "ClassVar", "Final", "Literal", "TypeVar", "Generic",
		"Protocol", "NamedTuple", "TypedDict", "Annotated", "TypeAlias", "ParamSpec",
		"Concatenate", "TypeGuard", "Never", "NoReturn", "Self", "Unpack", "Required",
		"NotRequired",
	}
	for _, n := range names {
		m.Set(n, value.None())
	}
	return m
}
