package vm

import (
	"sort"
	"strings"

	"github.com/chonkie-inc/littrs/internal/value"
)

// callBuiltinMethod dispatches obj.name(args) for the built-in container and
// string types. File handles and modules are routed elsewhere in the
// dispatch loop before reaching here, since they need mount-table/registry
// access this function doesn't have.
func (vm *VM) callBuiltinMethod(obj value.Value, name string, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	switch obj.Kind {
	case value.KindStr:
		return strMethod(obj.AsStr(), name, args)
	case value.KindList:
		return vm.listMethod(obj.AsList(), name, args, kwargs)
	case value.KindTuple:
		return tupleMethod(obj.AsTuple(), name, args)
	case value.KindDict:
		return dictMethod(obj.AsDict(), name, args)
	case value.KindSet:
		return setMethod(obj.AsSet(), name, args)
	default:
		return value.None(), raisef("AttributeError", "'%s' object has no attribute '%s'", obj.TypeName(), name)
	}
}

func noSuchMethod(typ, name string) error {
	return raisef("AttributeError", "'%s' object has no attribute '%s'", typ, name)
}

func argStr(args []value.Value, i int) (string, error) {
	if i >= len(args) || args[i].Kind != value.KindStr {
		return "", raisef("TypeError", "expected a string argument")
	}
	return args[i].AsStr(), nil
}

func strMethod(s, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "lower":
		return value.Str(strings.ToLower(s)), nil
	case "upper":
		return value.Str(strings.ToUpper(s)), nil
	case "casefold":
		return value.Str(strings.ToLower(s)), nil
	case "swapcase":
		return value.Str(strings.Map(func(r rune) rune {
			switch {
			case 'a' <= r && r <= 'z':
				return r - 32
			case 'A' <= r && r <= 'Z':
				return r + 32
			default:
				return r
			}
		}, s)), nil
	case "title":
		return value.Str(strings.Title(strings.ToLower(s))), nil
	case "capitalize":
		if s == "" {
			return value.Str(s), nil
		}
		r := []rune(strings.ToLower(s))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		return value.Str(string(r)), nil
	case "strip":
		cutset, err := optionalCutset(args)
		if err != nil {
			return value.None(), err
		}
		return value.Str(strings.Trim(s, cutset)), nil
	case "lstrip":
		cutset, err := optionalCutset(args)
		if err != nil {
			return value.None(), err
		}
		return value.Str(strings.TrimLeft(s, cutset)), nil
	case "rstrip":
		cutset, err := optionalCutset(args)
		if err != nil {
			return value.None(), err
		}
		return value.Str(strings.TrimRight(s, cutset)), nil
	case "split":
		var parts []string
		if len(args) == 0 || args[0].Kind == value.KindNone {
			parts = strings.Fields(s)
		} else {
			sep, err := argStr(args, 0)
			if err != nil {
				return value.None(), err
			}
			parts = strings.Split(s, sep)
		}
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			items[i] = value.Str(p)
		}
		return value.ListVal(value.NewList(items)), nil
	case "rsplit":
		var parts []string
		if len(args) == 0 || args[0].Kind == value.KindNone {
			parts = strings.Fields(s)
		} else {
			sep, err := argStr(args, 0)
			if err != nil {
				return value.None(), err
			}
			parts = strings.Split(s, sep)
		}
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			items[i] = value.Str(p)
		}
		return value.ListVal(value.NewList(items)), nil
	case "splitlines":
		if s == "" {
			return value.ListVal(value.NewList(nil)), nil
		}
		parts := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
		if len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			items[i] = value.Str(p)
		}
		return value.ListVal(value.NewList(items)), nil
	case "join":
		if len(args) != 1 {
			return value.None(), raisef("TypeError", "join() takes exactly one argument")
		}
		parts, err := iterableStrItems(args[0])
		if err != nil {
			return value.None(), err
		}
		return value.Str(strings.Join(parts, s)), nil
	case "replace":
		old, err := argStr(args, 0)
		if err != nil {
			return value.None(), err
		}
		rep, err := argStr(args, 1)
		if err != nil {
			return value.None(), err
		}
		count := -1
		if len(args) > 2 {
			count = int(args[2].AsInt())
		}
		return value.Str(strings.Replace(s, old, rep, count)), nil
	case "startswith":
		prefix, err := argStr(args, 0)
		if err != nil {
			return value.None(), err
		}
		return value.Bool(strings.HasPrefix(s, prefix)), nil
	case "endswith":
		suffix, err := argStr(args, 0)
		if err != nil {
			return value.None(), err
		}
		return value.Bool(strings.HasSuffix(s, suffix)), nil
	case "removeprefix":
		prefix, err := argStr(args, 0)
		if err != nil {
			return value.None(), err
		}
		return value.Str(strings.TrimPrefix(s, prefix)), nil
	case "removesuffix":
		suffix, err := argStr(args, 0)
		if err != nil {
			return value.None(), err
		}
		return value.Str(strings.TrimSuffix(s, suffix)), nil
	case "find":
		sub, err := argStr(args, 0)
		if err != nil {
			return value.None(), err
		}
		return value.Int(int64(strings.Index(s, sub))), nil
	case "index":
		sub, err := argStr(args, 0)
		if err != nil {
			return value.None(), err
		}
		i := strings.Index(s, sub)
		if i < 0 {
			return value.None(), raisef("ValueError", "substring not found")
		}
		return value.Int(int64(i)), nil
	case "count":
		sub, err := argStr(args, 0)
		if err != nil {
			return value.None(), err
		}
		return value.Int(int64(strings.Count(s, sub))), nil
	case "isdigit":
		return value.Bool(s != "" && isAllFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })), nil
	case "isalpha":
		return value.Bool(s != "" && isAllFunc(s, func(r rune) bool {
			return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		})), nil
	case "isalnum":
		return value.Bool(s != "" && isAllFunc(s, func(r rune) bool {
			return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		})), nil
	case "format":
		return value.Str(formatStr(s, args)), nil
	case "partition":
		sep, err := argStr(args, 0)
		if err != nil {
			return value.None(), err
		}
		if i := strings.Index(s, sep); i >= 0 {
			return value.TupleVal(value.NewTuple([]value.Value{value.Str(s[:i]), value.Str(sep), value.Str(s[i+len(sep):])})), nil
		}
		return value.TupleVal(value.NewTuple([]value.Value{value.Str(s), value.Str(""), value.Str("")})), nil
	case "rpartition":
		sep, err := argStr(args, 0)
		if err != nil {
			return value.None(), err
		}
		if i := strings.LastIndex(s, sep); i >= 0 {
			return value.TupleVal(value.NewTuple([]value.Value{value.Str(s[:i]), value.Str(sep), value.Str(s[i+len(sep):])})), nil
		}
		return value.TupleVal(value.NewTuple([]value.Value{value.Str(""), value.Str(""), value.Str(s)})), nil
	case "center":
		return padded(s, args, centerPad), nil
	case "ljust":
		return padded(s, args, leftPad), nil
	case "rjust":
		return padded(s, args, rightPad), nil
	case "zfill":
		width := 0
		if len(args) > 0 {
			width = int(args[0].AsInt())
		}
		if len(s) >= width {
			return value.Str(s), nil
		}
		sign := ""
		rest := s
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			sign, rest = s[:1], s[1:]
		}
		return value.Str(sign + strings.Repeat("0", width-len(s)) + rest), nil
	default:
		return value.None(), noSuchMethod("str", name)
	}
}

func optionalCutset(args []value.Value) (string, error) {
	if len(args) == 0 || args[0].Kind == value.KindNone {
		return " \t\n\r\v\f", nil
	}
	return argStr(args, 0)
}

func isAllFunc(s string, f func(rune) bool) bool {
	for _, r := range s {
		if !f(r) {
			return false
		}
	}
	return true
}

func iterableStrItems(v value.Value) ([]string, error) {
	var items []value.Value
	switch v.Kind {
	case value.KindList:
		items = v.AsList().Items
	case value.KindTuple:
		items = v.AsTuple().Items
	default:
		return nil, raisef("TypeError", "can only join an iterable")
	}
	out := make([]string, len(items))
	for i, it := range items {
		if it.Kind != value.KindStr {
			return nil, raisef("TypeError", "sequence item %d: expected str instance, got %s", i, it.TypeName())
		}
		out[i] = it.AsStr()
	}
	return out, nil
}

func padded(s string, args []value.Value, fn func(string, int, byte) string) value.Value {
	width := 0
	if len(args) > 0 {
		width = int(args[0].AsInt())
	}
	fill := byte(' ')
	if len(args) > 1 && args[1].Kind == value.KindStr && len(args[1].AsStr()) > 0 {
		fill = args[1].AsStr()[0]
	}
	return value.Str(fn(s, width, fill))
}

func centerPad(s string, width int, fill byte) string {
	if len(s) >= width {
		return s
	}
	total := width - len(s)
	left := total / 2
	right := total - left
	return strings.Repeat(string(fill), left) + s + strings.Repeat(string(fill), right)
}

func leftPad(s string, width int, fill byte) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(string(fill), width-len(s))
}

func rightPad(s string, width int, fill byte) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(string(fill), width-len(s)) + s
}

// formatStr implements the small subset of str.format used in sandboxed
// code: only bare "{}" placeholders, filled in order; indexed "{0}" and
// named "{name}" fields aren't supported, matching the f-string lowering's own
// capabilities (spec §4.2 treats .format as a convenience alias).
func formatStr(s string, args []value.Value) string {
	var b strings.Builder
	argi := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '{' && i+1 < len(s) && s[i+1] == '}' {
			if argi < len(args) {
				b.WriteString(value.Stringify(args[argi]))
				argi++
			}
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (vm *VM) listMethod(l *value.List, name string, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	switch name {
	case "append":
		l.Items = append(l.Items, args[0])
		return value.None(), nil
	case "extend":
		items, err := iterableItems(args[0])
		if err != nil {
			return value.None(), err
		}
		l.Items = append(l.Items, items...)
		return value.None(), nil
	case "copy":
		return value.ListVal(value.NewList(append([]value.Value{}, l.Items...))), nil
	case "clear":
		l.Items = nil
		return value.None(), nil
	case "insert":
		i := int(args[0].AsInt())
		if i < 0 {
			i = 0
		}
		if i > len(l.Items) {
			i = len(l.Items)
		}
		l.Items = append(l.Items[:i], append([]value.Value{args[1]}, l.Items[i:]...)...)
		return value.None(), nil
	case "pop":
		if len(l.Items) == 0 {
			return value.None(), raisef("IndexError", "pop from empty list")
		}
		i := len(l.Items) - 1
		if len(args) > 0 {
			idx, err := normalizeIndex(args[0].AsInt(), len(l.Items), "list")
			if err != nil {
				return value.None(), err
			}
			i = idx
		}
		v := l.Items[i]
		l.Items = append(l.Items[:i], l.Items[i+1:]...)
		return v, nil
	case "remove":
		for i, it := range l.Items {
			if value.Equal(it, args[0]) {
				l.Items = append(l.Items[:i], l.Items[i+1:]...)
				return value.None(), nil
			}
		}
		return value.None(), raisef("ValueError", "list.remove(x): x not in list")
	case "reverse":
		for i, j := 0, len(l.Items)-1; i < j; i, j = i+1, j-1 {
			l.Items[i], l.Items[j] = l.Items[j], l.Items[i]
		}
		return value.None(), nil
	case "index":
		for i, it := range l.Items {
			if value.Equal(it, args[0]) {
				return value.Int(int64(i)), nil
			}
		}
		return value.None(), raisef("ValueError", "%s is not in list", value.Repr(args[0]))
	case "count":
		n := 0
		for _, it := range l.Items {
			if value.Equal(it, args[0]) {
				n++
			}
		}
		return value.Int(int64(n)), nil
	case "sort":
		return value.None(), vm.sortItems(l.Items, kwargs)
	default:
		return value.None(), noSuchMethod("list", name)
	}
}

// sortItems sorts items in place, consulting an optional key= callable
// (which needs the VM to invoke) and reverse= flag.
func (vm *VM) sortItems(items []value.Value, kwargs map[string]value.Value) error {
	reverse := false
	if r, ok := kwargs["reverse"]; ok {
		reverse = value.Truthy(r)
	}
	var keyFn *value.Function
	if kv, ok := kwargs["key"]; ok && kv.Kind == value.KindFunction {
		keyFn = kv.AsFunction()
	}
	keys := make([]value.Value, len(items))
	for i, it := range items {
		if keyFn == nil {
			keys[i] = it
			continue
		}
		k, err := vm.invokeSync(keyFn, []value.Value{it})
		if err != nil {
			return err
		}
		keys[i] = k
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(a, b int) bool {
		c, ok := value.Compare(keys[idx[a]], keys[idx[b]])
		if !ok {
			sortErr = raisef("TypeError", "'<' not supported between instances of '%s' and '%s'", items[idx[a]].TypeName(), items[idx[b]].TypeName())
			return false
		}
		if reverse {
			return c > 0
		}
		return c < 0
	})
	if sortErr != nil {
		return sortErr
	}
	sorted := make([]value.Value, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
	return nil
}

func iterableItems(v value.Value) ([]value.Value, error) {
	switch v.Kind {
	case value.KindList:
		return v.AsList().Items, nil
	case value.KindTuple:
		return v.AsTuple().Items, nil
	case value.KindSet:
		return v.AsSet().Items(), nil
	case value.KindDict:
		return v.AsDict().Keys(), nil
	case value.KindStr:
		runes := []rune(v.AsStr())
		out := make([]value.Value, len(runes))
		for i, r := range runes {
			out[i] = value.Str(string(r))
		}
		return out, nil
	default:
		return nil, raisef("TypeError", "'%s' object is not iterable", v.TypeName())
	}
}

func tupleMethod(t *value.Tuple, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "index":
		for i, it := range t.Items {
			if value.Equal(it, args[0]) {
				return value.Int(int64(i)), nil
			}
		}
		return value.None(), raisef("ValueError", "%s is not in tuple", value.Repr(args[0]))
	case "count":
		n := 0
		for _, it := range t.Items {
			if value.Equal(it, args[0]) {
				n++
			}
		}
		return value.Int(int64(n)), nil
	default:
		return value.None(), noSuchMethod("tuple", name)
	}
}

func dictMethod(d *value.Dict, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "get":
		if v, ok := d.Get(args[0]); ok {
			return v, nil
		}
		if len(args) > 1 {
			return args[1], nil
		}
		return value.None(), nil
	case "keys":
		return value.ListVal(value.NewList(append([]value.Value{}, d.Keys()...))), nil
	case "values":
		return value.ListVal(value.NewList(append([]value.Value{}, d.Values()...))), nil
	case "items":
		keys, vals := d.Keys(), d.Values()
		items := make([]value.Value, len(keys))
		for i := range keys {
			items[i] = value.TupleVal(value.NewTuple([]value.Value{keys[i], vals[i]}))
		}
		return value.ListVal(value.NewList(items)), nil
	case "copy":
		return value.DictVal(d.Clone()), nil
	case "clear":
		d.Clear()
		return value.None(), nil
	case "setdefault":
		if v, ok := d.Get(args[0]); ok {
			return v, nil
		}
		def := value.None()
		if len(args) > 1 {
			def = args[1]
		}
		if err := d.Set(args[0], def); err != nil {
			return value.None(), err
		}
		return def, nil
	case "pop":
		if v, ok := d.Delete(args[0]); ok {
			return v, nil
		}
		if len(args) > 1 {
			return args[1], nil
		}
		return value.None(), raisef("KeyError", "%s", value.Repr(args[0]))
	case "update":
		other := args[0]
		if other.Kind != value.KindDict {
			return value.None(), raisef("TypeError", "update() argument must be a dict")
		}
		keys, vals := other.AsDict().Keys(), other.AsDict().Values()
		for i, k := range keys {
			if err := d.Set(k, vals[i]); err != nil {
				return value.None(), err
			}
		}
		return value.None(), nil
	default:
		return value.None(), noSuchMethod("dict", name)
	}
}

func setMethod(s *value.Set, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "copy":
		return value.SetVal(s.Clone()), nil
	case "add":
		if err := s.Add(args[0]); err != nil {
			return value.None(), err
		}
		return value.None(), nil
	case "discard":
		s.Remove(args[0])
		return value.None(), nil
	case "remove":
		if !s.Remove(args[0]) {
			return value.None(), raisef("KeyError", "%s", value.Repr(args[0]))
		}
		return value.None(), nil
	case "clear":
		*s = *value.NewSet()
		return value.None(), nil
	case "pop":
		items := s.Items()
		if len(items) == 0 {
			return value.None(), raisef("KeyError", "pop from an empty set")
		}
		v := items[0]
		s.Remove(v)
		return v, nil
	case "update":
		for _, it := range args {
			others, err := iterableItems(it)
			if err != nil {
				return value.None(), err
			}
			for _, o := range others {
				if err := s.Add(o); err != nil {
					return value.None(), err
				}
			}
		}
		return value.None(), nil
	case "union":
		out := s.Clone()
		for _, it := range args {
			others, err := iterableItems(it)
			if err != nil {
				return value.None(), err
			}
			for _, o := range others {
				_ = out.Add(o)
			}
		}
		return value.SetVal(out), nil
	case "intersection":
		if len(args) == 0 {
			return value.SetVal(s.Clone()), nil
		}
		other, err := asSet(args[0])
		if err != nil {
			return value.None(), err
		}
		out := value.NewSet()
		for _, it := range s.Items() {
			if other.Contains(it) {
				_ = out.Add(it)
			}
		}
		return value.SetVal(out), nil
	case "difference":
		if len(args) == 0 {
			return value.SetVal(s.Clone()), nil
		}
		other, err := asSet(args[0])
		if err != nil {
			return value.None(), err
		}
		out := value.NewSet()
		for _, it := range s.Items() {
			if !other.Contains(it) {
				_ = out.Add(it)
			}
		}
		return value.SetVal(out), nil
	case "symmetric_difference":
		other, err := asSet(args[0])
		if err != nil {
			return value.None(), err
		}
		out := value.NewSet()
		for _, it := range s.Items() {
			if !other.Contains(it) {
				_ = out.Add(it)
			}
		}
		for _, it := range other.Items() {
			if !s.Contains(it) {
				_ = out.Add(it)
			}
		}
		return value.SetVal(out), nil
	case "issubset":
		other, err := asSet(args[0])
		if err != nil {
			return value.None(), err
		}
		for _, it := range s.Items() {
			if !other.Contains(it) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	case "issuperset":
		other, err := asSet(args[0])
		if err != nil {
			return value.None(), err
		}
		for _, it := range other.Items() {
			if !s.Contains(it) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	case "isdisjoint":
		other, err := asSet(args[0])
		if err != nil {
			return value.None(), err
		}
		for _, it := range s.Items() {
			if other.Contains(it) {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	default:
		return value.None(), noSuchMethod("set", name)
	}
}

func asSet(v value.Value) (*value.Set, error) {
	if v.Kind == value.KindSet {
		return v.AsSet(), nil
	}
	items, err := iterableItems(v)
	if err != nil {
		return nil, err
	}
	out := value.NewSet()
	for _, it := range items {
		if err := out.Add(it); err != nil {
			return nil, err
		}
	}
	return out, nil
}
