package value

import (
	"fmt"
	"strconv"
	"strings"
)

// ConversionError is raised by the int()/float()/etc. builtins when the
// source value cannot be converted.
type ConversionError struct {
	Target string
	Detail string
}

func (e *ConversionError) Error() string { return e.Detail }

// ToInt implements int(v) conversion semantics.
func ToInt(v Value) (Value, error) {
	switch v.Kind {
	case KindInt:
		return v, nil
	case KindBool:
		return Int(v.i), nil
	case KindFloat:
		return Int(int64(v.f)), nil
	case KindStr:
		s := strings.TrimSpace(v.s)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return None(), &ConversionError{Target: "int",
				Detail: fmt.Sprintf("ValueError: invalid literal for int() with base 10: %s", reprString(v.s))}
		}
		return Int(n), nil
	case KindNone:
		return None(), &ConversionError{Target: "int", Detail: "TypeError: int() argument must be a string or a number, not 'NoneType'"}
	default:
		return None(), &ConversionError{Target: "int", Detail: fmt.Sprintf("TypeError: int() argument must be a string or a number, not '%s'", v.TypeName())}
	}
}

// ToFloat implements float(v) conversion semantics.
func ToFloat(v Value) (Value, error) {
	switch v.Kind {
	case KindFloat:
		return v, nil
	case KindInt, KindBool:
		return Float(v.Float64()), nil
	case KindStr:
		s := strings.TrimSpace(v.s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return None(), &ConversionError{Target: "float",
				Detail: fmt.Sprintf("ValueError: could not convert string to float: %s", reprString(v.s))}
		}
		return Float(f), nil
	default:
		return None(), &ConversionError{Target: "float", Detail: fmt.Sprintf("TypeError: float() argument must be a string or a number, not '%s'", v.TypeName())}
	}
}

// ToBool implements bool(v) conversion semantics (Python truthiness).
func ToBool(v Value) Value { return Bool(Truthy(v)) }

// ToStr implements str(v) conversion semantics.
func ToStr(v Value) Value { return Str(Stringify(v)) }

// ToList implements list(v) conversion semantics: v must be iterable.
func ToList(items []Value) Value { return ListVal(NewList(append([]Value{}, items...))) }

// ToTuple implements tuple(v) conversion semantics.
func ToTuple(items []Value) Value { return TupleVal(NewTuple(append([]Value{}, items...))) }

// ToDict builds a dict from a slice of (key, value) pairs, in order.
func ToDict(pairs [][2]Value) (Value, error) {
	d := NewDict()
	for _, p := range pairs {
		if err := d.Set(p[0], p[1]); err != nil {
			return None(), err
		}
	}
	return DictVal(d), nil
}

// ToSet builds a set from a slice of items.
func ToSet(items []Value) (Value, error) {
	s := NewSet()
	for _, it := range items {
		if err := s.Add(it); err != nil {
			return None(), err
		}
	}
	return SetVal(s), nil
}
