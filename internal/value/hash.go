package value

import (
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// HashKey returns a canonical string key for v suitable for use as a Go
// map key, and whether v is hashable at all. Numeric values that are
// equal under Python semantics (True == 1 == 1.0) collapse to the same
// key, matching Python's hash(True) == hash(1) == hash(1.0).
func HashKey(v Value) (string, bool) {
	switch v.Kind {
	case KindNone:
		return "N", true
	case KindBool:
		return numKey(float64(v.i)), true
	case KindInt:
		return numKey(float64(v.i)), true
	case KindFloat:
		return numKey(v.f), true
	case KindStr:
		return "s:" + v.s, true
	case KindTuple:
		var b strings.Builder
		b.WriteString("t:(")
		for _, item := range v.AsTuple().Items {
			k, ok := HashKey(item)
			if !ok {
				return "", false
			}
			b.WriteString(k)
			b.WriteByte(',')
		}
		b.WriteByte(')')
		return b.String(), true
	default:
		return "", false
	}
}

// numKey produces the same key for any float64 that represents an
// integral value representable exactly, regardless of whether it
// originated as Int, Bool, or Float — this is what makes 1 == 1.0 hash
// identically.
func numKey(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && f >= -1e18 && f <= 1e18 {
		return "i:" + strconv.FormatInt(int64(f), 10)
	}
	return "f:" + strconv.FormatUint(math.Float64bits(f), 16)
}

// IsHashable reports whether v can be used as a dict key or set member.
func IsHashable(v Value) bool {
	_, ok := HashKey(v)
	return ok
}

// Hash implements the hash() builtin: a stable-within-a-run int64 derived
// from the canonical hash key. Returns ok=false for unhashable values.
func Hash(v Value) (int64, bool) {
	key, ok := HashKey(v)
	if !ok {
		return 0, false
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64()), true
}
