package vm

import (
	"math"
	"strconv"

	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/value"
)

// seedBuiltins binds every built-in function as an ordinary global, the way
// New's doc comment describes. Higher-order builtins (sorted/map/filter/
// open) close over vm so they can call back into invokeSync or the mount
// table; the rest are pure functions of their arguments.
func (vm *VM) seedBuiltins() {
	plain := map[string]func(args []value.Value, kwargs map[string]value.Value) (value.Value, error){
		"len":        builtinLen,
		"str":        builtinStr,
		"int":        builtinInt,
		"float":      builtinFloat,
		"bool":       builtinBool,
		"list":       builtinList,
		"range":      builtinRange,
		"enumerate":  builtinEnumerate,
		"zip":        builtinZip,
		"reversed":   builtinReversed,
		"any":        builtinAny,
		"all":        builtinAll,
		"abs":        builtinAbs,
		"min":        builtinMin,
		"max":        builtinMax,
		"sum":        builtinSum,
		"isinstance": builtinIsinstance,
		"type":       builtinType,
		"tuple":      builtinTuple,
		"set":        builtinSet,
		"repr":       builtinRepr,
		"bin":        builtinBin,
		"hex":        builtinHex,
		"oct":        builtinOct,
		"divmod":     builtinDivmod,
		"pow":        builtinPow,
		"hash":       builtinHash,
		"dict":       builtinDict,
		"round":      builtinRound,
		"chr":        builtinChr,
		"ord":        builtinOrd,
	}
	for name, fn := range plain {
		vm.globals[name] = value.BuiltinVal(&value.Builtin{Name: name, Fn: fn})
	}
	vm.globals["print"] = value.BuiltinVal(&value.Builtin{Name: "print", Fn: vm.builtinPrint})
	vm.globals["sorted"] = value.BuiltinVal(&value.Builtin{Name: "sorted", Fn: vm.builtinSorted})
	vm.globals["map"] = value.BuiltinVal(&value.Builtin{Name: "map", Fn: vm.builtinMap})
	vm.globals["filter"] = value.BuiltinVal(&value.Builtin{Name: "filter", Fn: vm.builtinFilter})
	vm.globals["open"] = value.BuiltinVal(&value.Builtin{Name: "open", Fn: vm.builtinOpen})
	vm.globals["id"] = value.BuiltinVal(&value.Builtin{Name: "id", Fn: vm.builtinID})
}

// builtinID implements id(): a handle stable only within the current
// Execute call (vm.idTable is reset each run). Reference-kind values
// (list, dict, function, ...) are keyed by their backing pointer;
// value-kind primitives have no pointer identity, so each call in this
// subset is treated as a distinct object, matching the rarity of code
// that depends on small-int/str interning identity.
func (vm *VM) builtinID(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("id", args, 1); err != nil {
		return value.None(), err
	}
	key, ok := args[0].Identity()
	if !ok {
		vm.idNext++
		return value.Int(vm.idNext), nil
	}
	if n, exists := vm.idTable[key]; exists {
		return value.Int(n), nil
	}
	vm.idNext++
	vm.idTable[key] = vm.idNext
	return value.Int(vm.idNext), nil
}

func checkArgs(name string, args []value.Value, n int) error {
	if len(args) != n {
		return raisef("TypeError", "%s() takes exactly %d argument(s)", name, n)
	}
	return nil
}

func builtinLen(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("len", args, 1); err != nil {
		return value.None(), err
	}
	switch args[0].Kind {
	case value.KindStr:
		return value.Int(int64(len([]rune(args[0].AsStr())))), nil
	case value.KindList:
		return value.Int(int64(len(args[0].AsList().Items))), nil
	case value.KindTuple:
		return value.Int(int64(len(args[0].AsTuple().Items))), nil
	case value.KindDict:
		return value.Int(int64(args[0].AsDict().Len())), nil
	case value.KindSet:
		return value.Int(int64(args[0].AsSet().Len())), nil
	default:
		return value.None(), raisef("TypeError", "object of type '%s' has no len()", args[0].TypeName())
	}
}

func builtinStr(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Str(""), nil
	}
	return value.ToStr(args[0]), nil
}

func builtinInt(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Int(0), nil
	}
	return value.ToInt(args[0])
}

func builtinFloat(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Float(0), nil
	}
	return value.ToFloat(args[0])
}

func builtinBool(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Bool(false), nil
	}
	return value.ToBool(args[0]), nil
}

func builtinList(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.ListVal(value.NewList(nil)), nil
	}
	items, err := iterableItems(args[0])
	if err != nil {
		return value.None(), err
	}
	return value.ToList(items), nil
}

func builtinTuple(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.TupleVal(value.NewTuple(nil)), nil
	}
	items, err := iterableItems(args[0])
	if err != nil {
		return value.None(), err
	}
	return value.ToTuple(items), nil
}

func builtinSet(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.SetVal(value.NewSet()), nil
	}
	items, err := iterableItems(args[0])
	if err != nil {
		return value.None(), err
	}
	for _, it := range items {
		if !value.IsHashable(it) {
			return value.None(), raisef("TypeError", "unhashable type: '%s'", it.TypeName())
		}
	}
	return value.ToSet(items)
}

func builtinDict(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	d := value.NewDict()
	if len(args) > 1 {
		return value.None(), raisef("TypeError", "dict() takes at most 1 positional argument")
	}
	if len(args) == 1 {
		switch args[0].Kind {
		case value.KindDict:
			for _, k := range args[0].AsDict().Keys() {
				v, _ := args[0].AsDict().Get(k)
				if err := d.Set(k, v); err != nil {
					return value.None(), raisef("TypeError", "unhashable type: '%s'", k.TypeName())
				}
			}
		default:
			items, err := iterableItems(args[0])
			if err != nil {
				return value.None(), err
			}
			for _, it := range items {
				pair, err := iterableItems(it)
				if err != nil || len(pair) != 2 {
					return value.None(), raisef("ValueError", "dictionary update sequence element has length != 2")
				}
				if err := d.Set(pair[0], pair[1]); err != nil {
					return value.None(), raisef("TypeError", "unhashable type: '%s'", pair[0].TypeName())
				}
			}
		}
	}
	for k, v := range kwargs {
		_ = d.Set(value.Str(k), v)
	}
	return value.DictVal(d), nil
}

func builtinRound(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return value.None(), raisef("TypeError", "round() takes 1 or 2 arguments")
	}
	if !args[0].IsNumber() {
		return value.None(), raisef("TypeError", "type '%s' doesn't define __round__", args[0].TypeName())
	}
	f := args[0].Float64()
	if len(args) == 1 {
		return value.Int(roundHalfEven(f, 0)), nil
	}
	nd := args[1].AsInt()
	rounded := roundHalfEvenFloat(f, nd)
	if nd <= 0 && args[0].Kind != value.KindFloat {
		return value.Int(int64(rounded)), nil
	}
	return value.Float(rounded), nil
}

func roundHalfEven(f float64, ndigits int64) int64 {
	return int64(roundHalfEvenFloat(f, ndigits))
}

func roundHalfEvenFloat(f float64, ndigits int64) float64 {
	scale := math.Pow(10, float64(ndigits))
	scaled := f * scale
	floor := math.Floor(scaled)
	diff := scaled - floor
	var r float64
	switch {
	case diff < 0.5:
		r = floor
	case diff > 0.5:
		r = floor + 1
	default:
		if math.Mod(floor, 2) == 0 {
			r = floor
		} else {
			r = floor + 1
		}
	}
	return r / scale
}

func builtinChr(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	n, err := intArg(args, "chr")
	if err != nil {
		return value.None(), err
	}
	if n < 0 || n > 0x10FFFF {
		return value.None(), raisef("ValueError", "chr() arg not in range(0x110000)")
	}
	return value.Str(string(rune(n))), nil
}

func builtinOrd(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("ord", args, 1); err != nil {
		return value.None(), err
	}
	if args[0].Kind != value.KindStr {
		return value.None(), raisef("TypeError", "ord() expected string")
	}
	runes := []rune(args[0].AsStr())
	if len(runes) != 1 {
		return value.None(), raisef("TypeError", "ord() expected a character")
	}
	return value.Int(int64(runes[0])), nil
}

func builtinRange(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	var start, stop, step int64 = 0, 0, 1
	switch len(args) {
	case 1:
		stop = args[0].AsInt()
	case 2:
		start, stop = args[0].AsInt(), args[1].AsInt()
	case 3:
		start, stop, step = args[0].AsInt(), args[1].AsInt(), args[2].AsInt()
	default:
		return value.None(), raisef("TypeError", "range() takes 1 to 3 arguments")
	}
	if step == 0 {
		return value.None(), raisef("ValueError", "range() arg 3 must not be zero")
	}
	var items []value.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			items = append(items, value.Int(i))
		}
	} else {
		for i := start; i > stop; i += step {
			items = append(items, value.Int(i))
		}
	}
	return value.ListVal(value.NewList(items)), nil
}

func (vm *VM) builtinPrint(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.Stringify(a)
	}
	line := ""
	for i, p := range parts {
		if i > 0 {
			line += " "
		}
		line += p
	}
	vm.printBuffer = append(vm.printBuffer, line)
	return value.None(), nil
}

func builtinAbs(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("abs", args, 1); err != nil {
		return value.None(), err
	}
	switch args[0].Kind {
	case value.KindInt:
		n := args[0].AsInt()
		if n < 0 {
			n = -n
		}
		return value.Int(n), nil
	case value.KindFloat:
		return value.Float(math.Abs(args[0].AsFloat())), nil
	case value.KindBool:
		return value.Int(args[0].AsInt()), nil
	default:
		return value.None(), raisef("TypeError", "bad operand type for abs(): '%s'", args[0].TypeName())
	}
}

func builtinMin(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return minMax(args, "min", true)
}

func builtinMax(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return minMax(args, "max", false)
}

func minMax(args []value.Value, name string, wantMin bool) (value.Value, error) {
	if len(args) == 0 {
		return value.None(), raisef("TypeError", "%s() requires at least 1 argument", name)
	}
	items := args
	if len(args) == 1 {
		it, err := iterableItems(args[0])
		if err != nil {
			return value.None(), err
		}
		if len(it) == 0 {
			return value.None(), raisef("ValueError", "%s() arg is an empty sequence", name)
		}
		items = it
	}
	best := items[0]
	for _, it := range items[1:] {
		c, ok := value.Compare(it, best)
		if !ok {
			return value.None(), raisef("TypeError", "'<' not supported between instances of '%s' and '%s'", it.TypeName(), best.TypeName())
		}
		if (wantMin && c < 0) || (!wantMin && c > 0) {
			best = it
		}
	}
	return best, nil
}

func builtinSum(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.None(), raisef("TypeError", "sum() requires at least 1 argument")
	}
	items, err := iterableItems(args[0])
	if err != nil {
		return value.None(), err
	}
	isFloat := false
	var total, totalF float64
	for _, it := range items {
		if !it.IsNumber() {
			return value.None(), raisef("TypeError", "unsupported operand type(s) for +: 'int' and '%s'", it.TypeName())
		}
		if it.Kind == value.KindFloat {
			isFloat = true
		}
	}
	for _, it := range items {
		if isFloat {
			totalF += it.Float64()
		} else {
			total += it.Float64()
		}
	}
	if isFloat {
		return value.Float(totalF), nil
	}
	return value.Int(int64(total)), nil
}

func builtinEnumerate(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return value.None(), raisef("TypeError", "enumerate() takes 1 or 2 arguments")
	}
	items, err := iterableItems(args[0])
	if err != nil {
		return value.None(), err
	}
	start := int64(0)
	if len(args) > 1 {
		start = args[1].AsInt()
	}
	out := make([]value.Value, len(items))
	for i, it := range items {
		out[i] = value.TupleVal(value.NewTuple([]value.Value{value.Int(start + int64(i)), it}))
	}
	return value.ListVal(value.NewList(out)), nil
}

func builtinZip(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.ListVal(value.NewList(nil)), nil
	}
	lists := make([][]value.Value, len(args))
	minLen := -1
	for i, a := range args {
		items, err := iterableItems(a)
		if err != nil {
			return value.None(), err
		}
		lists[i] = items
		if minLen < 0 || len(items) < minLen {
			minLen = len(items)
		}
	}
	out := make([]value.Value, minLen)
	for i := 0; i < minLen; i++ {
		tup := make([]value.Value, len(lists))
		for j := range lists {
			tup[j] = lists[j][i]
		}
		out[i] = value.TupleVal(value.NewTuple(tup))
	}
	return value.ListVal(value.NewList(out)), nil
}

func builtinReversed(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("reversed", args, 1); err != nil {
		return value.None(), err
	}
	items, err := iterableItems(args[0])
	if err != nil {
		return value.None(), err
	}
	out := make([]value.Value, len(items))
	for i, it := range items {
		out[len(items)-1-i] = it
	}
	return value.ListVal(value.NewList(out)), nil
}

func builtinAny(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("any", args, 1); err != nil {
		return value.None(), err
	}
	items, err := iterableItems(args[0])
	if err != nil {
		return value.None(), err
	}
	for _, it := range items {
		if value.Truthy(it) {
			return value.Bool(true), nil
		}
	}
	return value.Bool(false), nil
}

func builtinAll(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("all", args, 1); err != nil {
		return value.None(), err
	}
	items, err := iterableItems(args[0])
	if err != nil {
		return value.None(), err
	}
	for _, it := range items {
		if !value.Truthy(it) {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

func builtinIsinstance(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("isinstance", args, 2); err != nil {
		return value.None(), err
	}
	if args[1].Kind != value.KindStr {
		return value.None(), raisef("TypeError", "isinstance() arg 2 must be str (type name)")
	}
	typeName := args[1].AsStr()
	v := args[0]
	match := false
	switch typeName {
	case "str":
		match = v.Kind == value.KindStr
	case "int":
		match = v.Kind == value.KindInt
	case "float":
		match = v.Kind == value.KindFloat || v.Kind == value.KindInt
	case "bool":
		match = v.Kind == value.KindBool
	case "list":
		match = v.Kind == value.KindList
	case "tuple":
		match = v.Kind == value.KindTuple
	case "dict":
		match = v.Kind == value.KindDict
	case "set":
		match = v.Kind == value.KindSet
	case "None", "NoneType":
		match = v.Kind == value.KindNone
	}
	return value.Bool(match), nil
}

func builtinType(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("type", args, 1); err != nil {
		return value.None(), err
	}
	return value.Str(args[0].TypeName()), nil
}

func builtinRepr(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("repr", args, 1); err != nil {
		return value.None(), err
	}
	return value.Str(value.Repr(args[0])), nil
}

func builtinBin(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	n, err := intArg(args, "bin")
	if err != nil {
		return value.None(), err
	}
	if n < 0 {
		return value.Str("-0b" + strconv.FormatInt(-n, 2)), nil
	}
	return value.Str("0b" + strconv.FormatInt(n, 2)), nil
}

func builtinHex(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	n, err := intArg(args, "hex")
	if err != nil {
		return value.None(), err
	}
	if n < 0 {
		return value.Str("-0x" + strconv.FormatInt(-n, 16)), nil
	}
	return value.Str("0x" + strconv.FormatInt(n, 16)), nil
}

func builtinOct(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	n, err := intArg(args, "oct")
	if err != nil {
		return value.None(), err
	}
	if n < 0 {
		return value.Str("-0o" + strconv.FormatInt(-n, 8)), nil
	}
	return value.Str("0o" + strconv.FormatInt(n, 8)), nil
}

func intArg(args []value.Value, name string) (int64, error) {
	if err := checkArgs(name, args, 1); err != nil {
		return 0, err
	}
	if !isIntKind(args[0]) {
		return 0, raisef("TypeError", "'%s' object cannot be interpreted as an integer", args[0].TypeName())
	}
	return args[0].AsInt(), nil
}

func builtinDivmod(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("divmod", args, 2); err != nil {
		return value.None(), err
	}
	a, b := args[0], args[1]
	if !a.IsNumber() || !b.IsNumber() {
		return value.None(), raisef("TypeError", "unsupported operand type(s) for divmod()")
	}
	if isIntKind(a) && isIntKind(b) {
		x, y := a.AsInt(), b.AsInt()
		if y == 0 {
			return value.None(), raisef("ZeroDivisionError", "integer division or modulo by zero")
		}
		qi := int64(math.Floor(float64(x) / float64(y)))
		r := x - qi*y
		return value.TupleVal(value.NewTuple([]value.Value{value.Int(qi), value.Int(r)})), nil
	}
	x, y := a.Float64(), b.Float64()
	if y == 0 {
		return value.None(), raisef("ZeroDivisionError", "float divmod()")
	}
	qf := math.Floor(x / y)
	r := x - qf*y
	return value.TupleVal(value.NewTuple([]value.Value{value.Float(qf), value.Float(r)})), nil
}

func builtinPow(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	switch len(args) {
	case 2:
		return applyBinaryOp(bytecode.BinPow, args[0], args[1])
	case 3:
		base, exp, mod := args[0].AsInt(), args[1].AsInt(), args[2].AsInt()
		if mod == 0 {
			return value.None(), raisef("ValueError", "pow() 3rd argument cannot be 0")
		}
		if exp < 0 {
			return value.None(), raisef("ValueError", "pow() 2nd argument cannot be negative when 3rd argument specified")
		}
		result := int64(1)
		base %= mod
		for exp > 0 {
			if exp%2 == 1 {
				result = (result * base) % mod
			}
			exp /= 2
			base = (base * base) % mod
		}
		return value.Int(((result % mod) + mod) % mod), nil
	default:
		return value.None(), raisef("TypeError", "pow() takes 2 or 3 arguments")
	}
}

func builtinHash(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := checkArgs("hash", args, 1); err != nil {
		return value.None(), err
	}
	h, ok := value.Hash(args[0])
	if !ok {
		return value.None(), raisef("TypeError", "unhashable type: '%s'", args[0].TypeName())
	}
	return value.Int(h), nil
}

// builtinSorted, builtinMap, builtinFilter and builtinOpen are the four
// builtins that need to either call back into a function value (invokeSync)
// or reach the mount table, so they're bound as VM methods rather than free
// functions like the rest of the table.

func (vm *VM) builtinSorted(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.None(), raisef("TypeError", "sorted() takes exactly one argument")
	}
	items, err := iterableItems(args[0])
	if err != nil {
		return value.None(), err
	}
	out := append([]value.Value{}, items...)
	if err := vm.sortItems(out, kwargs); err != nil {
		return value.None(), err
	}
	return value.ListVal(value.NewList(out)), nil
}

func (vm *VM) builtinMap(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.None(), raisef("TypeError", "map() takes exactly 2 arguments")
	}
	fn := args[0]
	items, err := iterableItems(args[1])
	if err != nil {
		return value.None(), err
	}
	out := make([]value.Value, len(items))
	for i, it := range items {
		v, err := vm.callValueSync(fn, []value.Value{it})
		if err != nil {
			return value.None(), err
		}
		out[i] = v
	}
	return value.ListVal(value.NewList(out)), nil
}

func (vm *VM) builtinFilter(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.None(), raisef("TypeError", "filter() takes exactly 2 arguments")
	}
	fn := args[0]
	items, err := iterableItems(args[1])
	if err != nil {
		return value.None(), err
	}
	var out []value.Value
	for _, it := range items {
		if fn.Kind == value.KindNone {
			if value.Truthy(it) {
				out = append(out, it)
			}
			continue
		}
		v, err := vm.callValueSync(fn, []value.Value{it})
		if err != nil {
			return value.None(), err
		}
		if value.Truthy(v) {
			out = append(out, it)
		}
	}
	return value.ListVal(value.NewList(out)), nil
}

func (vm *VM) builtinOpen(args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if len(args) < 1 || args[0].Kind != value.KindStr {
		return value.None(), raisef("TypeError", "open() requires a path string")
	}
	mode := "r"
	if len(args) > 1 && args[1].Kind == value.KindStr {
		mode = args[1].AsStr()
	}
	id, err := vm.mounts.Open(args[0].AsStr(), mode)
	if err != nil {
		return value.None(), err
	}
	return value.FileVal(id), nil
}
