// Package value implements the tagged-union value model the sandbox
// executes against: None, Bool, Int, Float, Str, List, Tuple, Dict, Set,
// Function, Builtin, Module, File and Exception.
package value

import "fmt"

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindTuple
	KindDict
	KindSet
	KindFunction
	KindBuiltin
	KindModule
	KindFile
	KindException
	KindSlice
)

// Value is a stack-allocated tagged union. Primitives (Bool, Int, Float)
// live directly in the struct; everything else is boxed in obj.
type Value struct {
	Kind Kind
	i    int64
	f    float64
	s    string
	obj  any
}

func None() Value              { return Value{Kind: KindNone} }
func Bool(b bool) Value        { return Value{Kind: KindBool, i: boolToInt(b)} }
func Int(i int64) Value        { return Value{Kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{Kind: KindFloat, f: f} }
func Str(s string) Value       { return Value{Kind: KindStr, s: s} }
func ListVal(l *List) Value    { return Value{Kind: KindList, obj: l} }
func TupleVal(t *Tuple) Value  { return Value{Kind: KindTuple, obj: t} }
func DictVal(d *Dict) Value    { return Value{Kind: KindDict, obj: d} }
func SetVal(s *Set) Value      { return Value{Kind: KindSet, obj: s} }
func FuncVal(f *Function) Value { return Value{Kind: KindFunction, obj: f} }
func BuiltinVal(b *Builtin) Value { return Value{Kind: KindBuiltin, obj: b} }
func ModuleVal(m *Module) Value { return Value{Kind: KindModule, obj: m} }
func FileVal(handle string) Value { return Value{Kind: KindFile, s: handle} }
func ExceptionVal(e *Exception) Value { return Value{Kind: KindException, obj: e} }

// SliceVal wraps a slice descriptor (the possibly-absent start/stop/step of
// a `x[a:b:c]` subscript) as an ordinary Value so it can travel through the
// operand stack between OpBuildSlice and the subscript op that consumes it.
func SliceVal(s *Slice) Value { return Value{Kind: KindSlice, obj: s} }

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// AsBool returns the underlying bool; only valid for KindBool.
func (v Value) AsBool() bool { return v.i != 0 }

// AsInt returns the underlying int64; only valid for KindInt or KindBool.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the underlying float64; only valid for KindFloat.
func (v Value) AsFloat() float64 { return v.f }

// AsStr returns the underlying string; only valid for KindStr.
func (v Value) AsStr() string { return v.s }

// AsFileHandle returns the mount file handle (a uuid string); only valid
// for KindFile.
func (v Value) AsFileHandle() string { return v.s }

func (v Value) AsList() *List           { return v.obj.(*List) }
func (v Value) AsTuple() *Tuple         { return v.obj.(*Tuple) }
func (v Value) AsDict() *Dict           { return v.obj.(*Dict) }
func (v Value) AsSet() *Set             { return v.obj.(*Set) }
func (v Value) AsFunction() *Function   { return v.obj.(*Function) }
func (v Value) AsBuiltin() *Builtin     { return v.obj.(*Builtin) }
func (v Value) AsModule() *Module       { return v.obj.(*Module) }
func (v Value) AsException() *Exception { return v.obj.(*Exception) }
func (v Value) AsSlice() *Slice         { return v.obj.(*Slice) }

// Identity returns the pointer backing a reference-kind value (List,
// Tuple, Dict, Set, Function, Builtin, Module, Exception), suitable as a
// map key for id()-style per-object identity. Value kinds with no boxed
// pointer (None, Bool, Int, Float, Str, File) report ok=false.
func (v Value) Identity() (any, bool) {
	switch v.Kind {
	case KindList, KindTuple, KindDict, KindSet, KindFunction, KindBuiltin, KindModule, KindException, KindSlice:
		return v.obj, true
	default:
		return nil, false
	}
}

// IsNumber reports whether v is Int, Float, or Bool (all arithmetic-promotable).
func (v Value) IsNumber() bool {
	return v.Kind == KindInt || v.Kind == KindFloat || v.Kind == KindBool
}

// Float64 coerces any numeric kind to float64.
func (v Value) Float64() float64 {
	switch v.Kind {
	case KindInt, KindBool:
		return float64(v.i)
	case KindFloat:
		return v.f
	default:
		return 0
	}
}

// TypeName returns the Python-visible type name, as used by type(), repr
// error messages, and isinstance().
func (v Value) TypeName() string {
	switch v.Kind {
	case KindNone:
		return "NoneType"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindDict:
		return "dict"
	case KindSet:
		return "set"
	case KindFunction:
		return "function"
	case KindBuiltin:
		return "builtin_function_or_method"
	case KindModule:
		return "module"
	case KindFile:
		return "file"
	case KindException:
		return v.AsException().Type
	case KindSlice:
		return "slice"
	default:
		return "unknown"
	}
}

func (v Value) String() string { return fmt.Sprintf("<Value kind=%d>", v.Kind) }
