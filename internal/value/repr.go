package value

import (
	"strconv"
	"strings"
)

// Repr renders v the way Python's repr() would: strings quoted, nested
// containers recursively repr'd. Cycles are broken with "[...]"/"{...}".
func Repr(v Value) string {
	var b strings.Builder
	reprInto(&b, v, make(map[any]bool))
	return b.String()
}

// Stringify renders v the way Python's str() would: like Repr except bare
// strings are not quoted. This is also print()'s per-argument format.
func Stringify(v Value) string {
	if v.Kind == KindStr {
		return v.s
	}
	var b strings.Builder
	reprInto(&b, v, make(map[any]bool))
	return b.String()
}

func reprInto(b *strings.Builder, v Value, seen map[any]bool) {
	switch v.Kind {
	case KindNone:
		b.WriteString("None")
	case KindBool:
		if v.i != 0 {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b.WriteString(formatFloat(v.f))
	case KindStr:
		b.WriteString(reprString(v.s))
	case KindList:
		reprSeq(b, "[", "]", v.obj, v.AsList().Items, seen)
	case KindTuple:
		items := v.AsTuple().Items
		if len(items) == 1 {
			if seen[v.obj] {
				b.WriteString("(...)")
				return
			}
			seen[v.obj] = true
			b.WriteByte('(')
			reprInto(b, items[0], seen)
			b.WriteString(",)")
			delete(seen, v.obj)
			return
		}
		reprSeq(b, "(", ")", v.obj, items, seen)
	case KindDict:
		reprDict(b, v.AsDict(), v.obj, seen)
	case KindSet:
		reprSet(b, v.AsSet())
	case KindFunction:
		b.WriteString("<function ")
		b.WriteString(v.AsFunction().Name)
		b.WriteString(">")
	case KindBuiltin:
		b.WriteString("<built-in function ")
		b.WriteString(v.AsBuiltin().Name)
		b.WriteString(">")
	case KindModule:
		b.WriteString("<module '")
		b.WriteString(v.AsModule().Name)
		b.WriteString("'>")
	case KindFile:
		b.WriteString("<file handle ")
		b.WriteString(v.AsFileHandle())
		b.WriteString(">")
	case KindException:
		e := v.AsException()
		b.WriteString(e.Type)
		b.WriteByte('(')
		b.WriteString(reprString(e.Message))
		b.WriteByte(')')
	case KindSlice:
		s := v.AsSlice()
		b.WriteString("slice(")
		reprInto(b, s.Start, seen)
		b.WriteString(", ")
		reprInto(b, s.Stop, seen)
		b.WriteString(", ")
		reprInto(b, s.Step, seen)
		b.WriteByte(')')
	}
}

func reprSeq(b *strings.Builder, open, close string, identity any, items []Value, seen map[any]bool) {
	if seen[identity] {
		b.WriteString(open + "..." + close)
		return
	}
	seen[identity] = true
	b.WriteString(open)
	for i, it := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		reprInto(b, it, seen)
	}
	b.WriteString(close)
	delete(seen, identity)
}

func reprDict(b *strings.Builder, d *Dict, identity any, seen map[any]bool) {
	if seen[identity] {
		b.WriteString("{...}")
		return
	}
	seen[identity] = true
	b.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		reprInto(b, k, seen)
		b.WriteString(": ")
		reprInto(b, d.vals[i], seen)
	}
	b.WriteByte('}')
	delete(seen, identity)
}

func reprSet(b *strings.Builder, s *Set) {
	if s.Len() == 0 {
		b.WriteString("set()")
		return
	}
	b.WriteByte('{')
	seen := make(map[any]bool)
	for i, it := range s.items {
		if i > 0 {
			b.WriteString(", ")
		}
		reprInto(b, it, seen)
	}
	b.WriteByte('}')
}

func reprString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString("\\'")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		case '\r':
			b.WriteString("\\r")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "inf") && !strings.Contains(s, "nan") {
		s += ".0"
	}
	s = strings.Replace(s, "e+0", "e+", 1)
	s = strings.Replace(s, "e-0", "e-", 1)
	return s
}
