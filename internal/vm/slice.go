package vm

import "github.com/chonkie-inc/littrs/internal/value"

// sliceSpec is the descriptor OpBuildSlice produces: the three (possibly
// absent) bounds of a `x[start:stop:step]` subscript.
type sliceSpec struct {
	start, stop, step value.Value
}

func toOptionalInt(v value.Value) (int64, bool) {
	if v.Kind == value.KindNone {
		return 0, false
	}
	return v.AsInt(), true
}

// sliceIndices resolves a sliceSpec against a sequence length into the Go
// slice-of-indices to visit, following Python's slicing rules exactly
// (clamped bounds, negative-step reversal).
func sliceIndices(spec sliceSpec, length int) ([]int, error) {
	step := int64(1)
	if s, ok := toOptionalInt(spec.step); ok {
		step = s
	}
	if step == 0 {
		return nil, raisef("ValueError", "slice step cannot be zero")
	}
	n := int64(length)
	var idxs []int
	if step > 0 {
		start := int64(0)
		if s, ok := toOptionalInt(spec.start); ok {
			if s < 0 {
				start = max64(n+s, 0)
			} else {
				start = min64(s, n)
			}
		}
		stop := n
		if s, ok := toOptionalInt(spec.stop); ok {
			if s < 0 {
				stop = max64(n+s, 0)
			} else {
				stop = min64(s, n)
			}
		}
		for i := start; i < stop; i += step {
			idxs = append(idxs, int(i))
		}
	} else {
		start := n - 1
		if s, ok := toOptionalInt(spec.start); ok {
			if s < 0 {
				start = n + s
			} else {
				start = min64(s, n-1)
			}
		}
		stop := int64(-1)
		if s, ok := toOptionalInt(spec.stop); ok {
			if s < 0 {
				stop = n + s
			} else if s >= n {
				stop = n
			} else {
				stop = s
			}
		}
		for i := start; i > stop && i >= 0 && i < n; i += step {
			idxs = append(idxs, int(i))
		}
	}
	return idxs, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func sliceSequence(items []value.Value, spec sliceSpec) ([]value.Value, error) {
	idxs, err := sliceIndices(spec, len(items))
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(idxs))
	for i, idx := range idxs {
		out[i] = items[idx]
	}
	return out, nil
}

func sliceString(s string, spec sliceSpec) (string, error) {
	runes := []rune(s)
	idxs, err := sliceIndices(spec, len(runes))
	if err != nil {
		return "", err
	}
	out := make([]rune, len(idxs))
	for i, idx := range idxs {
		out[i] = runes[idx]
	}
	return string(out), nil
}

// normalizeIndex resolves a single (possibly negative) subscript index
// against a sequence length, raising IndexError if out of range.
func normalizeIndex(i int64, length int, typeName string) (int, error) {
	n := int64(length)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, raisef("IndexError", "%s index out of range", typeName)
	}
	return int(i), nil
}
