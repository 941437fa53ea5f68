package value

// Equal implements Python equality: numeric cross-type comparison
// (True == 1 == 1.0), elementwise sequence/mapping/set comparison, and
// cycle-safe traversal for self-referential lists/dicts/sets.
func Equal(a, b Value) bool {
	return equalSeen(a, b, make(map[[2]any]bool))
}

func equalSeen(a, b Value, seen map[[2]any]bool) bool {
	if a.IsNumber() && b.IsNumber() {
		// Bool/Int compare exactly when both are integral; otherwise fall
		// back to float comparison (matches Python's mixed-type rules).
		if a.Kind != KindFloat && b.Kind != KindFloat {
			return a.i == b.i
		}
		return a.Float64() == b.Float64()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNone:
		return true
	case KindStr:
		return a.s == b.s
	case KindList:
		return equalSeq(a.obj, a.AsList().Items, b.AsList().Items, seen)
	case KindTuple:
		return equalSeq(a.obj, a.AsTuple().Items, b.AsTuple().Items, seen)
	case KindDict:
		return equalDict(a.AsDict(), b.AsDict(), a.obj, seen)
	case KindSet:
		return equalSet(a.AsSet(), b.AsSet())
	case KindFile:
		return a.s == b.s
	case KindFunction:
		return a.obj == b.obj
	case KindBuiltin:
		return a.obj == b.obj
	case KindModule:
		return a.AsModule().Name == b.AsModule().Name
	case KindException:
		ea, eb := a.AsException(), b.AsException()
		return ea.Type == eb.Type && ea.Message == eb.Message
	default:
		return false
	}
}

func equalSeq(identity any, xs, ys []Value, seen map[[2]any]bool) bool {
	if len(xs) != len(ys) {
		return false
	}
	key := [2]any{identity, identity}
	if seen[key] {
		return true
	}
	seen[key] = true
	for i := range xs {
		if !equalSeen(xs[i], ys[i], seen) {
			return false
		}
	}
	return true
}

func equalDict(a, b *Dict, identity any, seen map[[2]any]bool) bool {
	if a.Len() != b.Len() {
		return false
	}
	key := [2]any{identity, identity}
	if seen[key] {
		return true
	}
	seen[key] = true
	for i, k := range a.keys {
		bv, ok := b.Get(k)
		if !ok || !equalSeen(a.vals[i], bv, seen) {
			return false
		}
	}
	return true
}

func equalSet(a, b *Set) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, v := range a.items {
		if !b.Contains(v) {
			return false
		}
	}
	return true
}

// Truthy implements Python truthiness: None/False/0/0.0/""/empty
// container are falsy, everything else is truthy.
func Truthy(v Value) bool {
	switch v.Kind {
	case KindNone:
		return false
	case KindBool:
		return v.i != 0
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindStr:
		return v.s != ""
	case KindList:
		return len(v.AsList().Items) > 0
	case KindTuple:
		return len(v.AsTuple().Items) > 0
	case KindDict:
		return v.AsDict().Len() > 0
	case KindSet:
		return v.AsSet().Len() > 0
	default:
		return true
	}
}

// Compare returns -1, 0, or 1 for a < b, a == b, a > b. ok is false if
// the values are not ordered-comparable (cross-type, except numeric).
func Compare(a, b Value) (int, bool) {
	if a.IsNumber() && b.IsNumber() {
		af, bf := a.Float64(), b.Float64()
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.Kind != b.Kind {
		return 0, false
	}
	switch a.Kind {
	case KindStr:
		return cmpStr(a.s, b.s), true
	case KindList:
		return cmpSeq(a.AsList().Items, b.AsList().Items)
	case KindTuple:
		return cmpSeq(a.AsTuple().Items, b.AsTuple().Items)
	default:
		return 0, false
	}
}

func cmpStr(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpSeq(xs, ys []Value) (int, bool) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	for i := 0; i < n; i++ {
		c, ok := Compare(xs[i], ys[i])
		if !ok {
			return 0, false
		}
		if c != 0 {
			return c, true
		}
	}
	switch {
	case len(xs) < len(ys):
		return -1, true
	case len(xs) > len(ys):
		return 1, true
	default:
		return 0, true
	}
}
