package vm

import (
	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/value"
)

// popKwargs pops n (name, value) pairs pushed in left-to-right order by
// compileCall/compileMethodCall and returns them as a map. Push order
// needs no reversal: stack[0] is the first kwname pushed.
func (vm *VM) popKwargs(n int) map[string]value.Value {
	if n == 0 {
		return nil
	}
	pairs := vm.stack[len(vm.stack)-2*n:]
	kwargs := make(map[string]value.Value, n)
	for i := 0; i < n; i++ {
		kwargs[pairs[2*i].AsStr()] = pairs[2*i+1]
	}
	vm.stack = vm.stack[:len(vm.stack)-2*n]
	return kwargs
}

func (vm *VM) popArgs(n int) []value.Value {
	if n == 0 {
		return nil
	}
	args := append([]value.Value{}, vm.stack[len(vm.stack)-n:]...)
	vm.stack = vm.stack[:len(vm.stack)-n]
	return args
}

// dispatchCall implements OpCall: A positional args, B keyword pairs, with
// the callable at the bottom of that group. A builtin call resolves and
// pushes its result immediately; a Function call instead pushes a new
// frame, whose eventual OpReturn/end-of-frame pushes the result.
func (vm *VM) dispatchCall(instr bytecode.Instr, framesPtr *[]*frame) error {
	kwargs := vm.popKwargs(instr.B)
	args := vm.popArgs(instr.A)
	fn := vm.pop()
	switch fn.Kind {
	case value.KindBuiltin:
		r, err := fn.AsBuiltin().Fn(args, kwargs)
		if err != nil {
			return err
		}
		vm.push(r)
		return nil
	case value.KindFunction:
		return vm.invokeFunctionDef(fn.AsFunction(), args, kwargs, framesPtr)
	default:
		return raisef("TypeError", "'%s' object is not callable", fn.TypeName())
	}
}

// dispatchCallMethod implements OpCallMethod. File handles and modules are
// resolved here directly since they need mount/registry state that
// callBuiltinMethod (container/string methods) doesn't carry.
func (vm *VM) dispatchCallMethod(instr bytecode.Instr, f *frame, framesPtr *[]*frame) error {
	name := f.code.Names[instr.A]
	kwargs := vm.popKwargs(instr.C)
	args := vm.popArgs(instr.B)
	recv := vm.pop()

	switch recv.Kind {
	case value.KindFile:
		r, err := vm.callFileMethod(recv.AsFileHandle(), name, args)
		if err != nil {
			return err
		}
		vm.push(r)
		return nil
	case value.KindModule:
		attr, ok := recv.AsModule().Get(name)
		if !ok {
			return raisef("AttributeError", "module '%s' has no attribute '%s'", recv.AsModule().Name, name)
		}
		r, err := vm.callValueSync(attr, args)
		if err != nil {
			return err
		}
		vm.push(r)
		return nil
	case value.KindFunction:
		// Not a real method call target, but `f.some_attr_that_is_callable(...)`
		// never arises in this subset; functions have no methods.
		return raisef("AttributeError", "'function' object has no attribute '%s'", name)
	default:
		r, err := vm.callBuiltinMethod(recv, name, args, kwargs)
		if err != nil {
			return err
		}
		vm.push(r)
		return nil
	}
}

func (vm *VM) callFileMethod(handle, name string, args []value.Value) (value.Value, error) {
	switch name {
	case "read":
		s, err := vm.mounts.Read(handle)
		if err != nil {
			return value.None(), err
		}
		return value.Str(s), nil
	case "readline":
		s, err := vm.mounts.ReadLine(handle)
		if err != nil {
			return value.None(), err
		}
		return value.Str(s), nil
	case "readlines":
		lines, err := vm.mounts.ReadLines(handle)
		if err != nil {
			return value.None(), err
		}
		items := make([]value.Value, len(lines))
		for i, l := range lines {
			items[i] = value.Str(l)
		}
		return value.ListVal(value.NewList(items)), nil
	case "write":
		if len(args) == 0 || args[0].Kind != value.KindStr {
			return value.None(), raisef("TypeError", "write() argument must be str")
		}
		n, err := vm.mounts.Write(handle, args[0].AsStr())
		if err != nil {
			return value.None(), err
		}
		return value.Int(int64(n)), nil
	case "close":
		if err := vm.mounts.Close(handle); err != nil {
			return value.None(), err
		}
		return value.None(), nil
	default:
		return value.None(), noSuchMethod("file", name)
	}
}

// invokeFunctionDef binds args/kwargs/defaults to proto's declared
// parameters and pushes a new frame. collectLocals assigns slot indices
// in the order params..., vararg, kwarg, so param i always lives at slot
// i regardless of what other locals the body later declares.
func (vm *VM) invokeFunctionDef(fn *value.Function, args []value.Value, kwargs map[string]value.Value, framesPtr *[]*frame) error {
	if vm.recursionLimit > 0 && len(*framesPtr) >= vm.recursionLimit {
		return &LimitError{Kind: "recursion", Limit: int64(vm.recursionLimit)}
	}
	proto := fn.Code.(*bytecode.FuncProto)
	nf := newFrame(proto.Code, len(vm.stack))

	nparams := len(proto.Params)
	bound := make([]bool, nparams)
	extra := make(map[string]value.Value, len(kwargs))

	if len(args) > nparams && proto.Vararg == "" {
		return raisef("TypeError", "%s() takes %d positional arguments but %d were given", proto.Name, nparams, len(args))
	}
	for i, a := range args {
		if i < nparams {
			nf.locals[i] = a
			bound[i] = true
		}
	}

	for k, v := range kwargs {
		idx := -1
		for i, p := range proto.Params {
			if p == k {
				idx = i
				break
			}
		}
		if idx < 0 {
			if proto.Kwarg == "" {
				return raisef("TypeError", "%s() got an unexpected keyword argument '%s'", proto.Name, k)
			}
			extra[k] = v
			continue
		}
		if bound[idx] {
			return raisef("TypeError", "%s() got multiple values for argument '%s'", proto.Name, k)
		}
		nf.locals[idx] = v
		bound[idx] = true
	}

	ndefaults := len(fn.Defaults)
	for i := 0; i < nparams; i++ {
		if bound[i] {
			continue
		}
		defIdx := i - (nparams - ndefaults)
		if defIdx < 0 {
			return raisef("TypeError", "%s() missing required argument: '%s'", proto.Name, proto.Params[i])
		}
		nf.locals[i] = fn.Defaults[defIdx]
		bound[i] = true
	}

	slot := nparams
	if proto.Vararg != "" {
		var rest []value.Value
		if len(args) > nparams {
			rest = append(rest, args[nparams:]...)
		}
		nf.locals[slot] = value.TupleVal(value.NewTuple(rest))
		slot++
	}
	if proto.Kwarg != "" {
		d := value.NewDict()
		for k, v := range extra {
			_ = d.Set(value.Str(k), v)
		}
		nf.locals[slot] = value.DictVal(d)
	}

	*framesPtr = append(*framesPtr, nf)
	return nil
}

// invokeSync runs fn to completion on a self-contained one-frame call
// stack and returns its result directly, for callers (sorted's key=, map,
// filter) that need a value back rather than to let the dispatch loop
// keep stepping. It shares vm.run, which already terminates cleanly when
// its frame stack drains.
func (vm *VM) invokeSync(fn *value.Function, args []value.Value) (value.Value, error) {
	var frames []*frame
	if err := vm.invokeFunctionDef(fn, args, nil, &frames); err != nil {
		return value.None(), err
	}
	return vm.run(frames)
}

// callValueSync dispatches a Function or Builtin value synchronously,
// for call sites (module attributes, map/filter) that hold a generic
// value.Value rather than a known *value.Function.
func (vm *VM) callValueSync(fn value.Value, args []value.Value) (value.Value, error) {
	switch fn.Kind {
	case value.KindFunction:
		return vm.invokeSync(fn.AsFunction(), args)
	case value.KindBuiltin:
		return fn.AsBuiltin().Fn(args, nil)
	default:
		return value.None(), raisef("TypeError", "'%s' object is not callable", fn.TypeName())
	}
}

// exceptionMatches reports whether a handler declared for expected should
// catch an actual exception of the given type. Exception/BaseException are
// the subset's catch-all root types, matching any catchable exception.
func exceptionMatches(expected, actual string) bool {
	if expected == "" || expected == actual {
		return true
	}
	return expected == "Exception" || expected == "BaseException"
}

// findHandler scans table in declaration order, which compileTry's
// depth-first emission already makes inner-before-outer: the first
// matching entry is always the innermost applicable handler.
func findHandler(table []bytecode.ExceptionEntry, ip int, excType string) (bytecode.ExceptionEntry, bool) {
	for _, e := range table {
		if ip >= e.Start && ip < e.End && exceptionMatches(e.TypeFilter, excType) {
			return e, true
		}
	}
	return bytecode.ExceptionEntry{}, false
}

// handleException searches the active frame stack, innermost first, for a
// handler whose range covers the faulting instruction. faultIP is the
// instruction that raised in the innermost frame; every frame above it
// faulted at its own call instruction, whose ip was already advanced past
// by run's fetch step, hence f.ip-1.
func (vm *VM) handleException(framesPtr *[]*frame, err error, faultIP int) (bool, error) {
	excType := exceptionType(err)
	excMsg := exceptionMessage(err)
	frames := *framesPtr
	ip := faultIP
	for len(frames) > 0 {
		f := frames[len(frames)-1]
		if entry, ok := findHandler(f.code.ExcTable, ip, excType); ok {
			vm.stack = vm.stack[:f.stackBase+entry.StackDepth]
			vm.push(value.ExceptionVal(value.NewException(excType, excMsg)))
			f.ip = entry.Handler
			vm.currentExc = value.NewException(excType, excMsg)
			*framesPtr = frames
			return true, nil
		}
		vm.stack = vm.stack[:f.stackBase]
		frames = frames[:len(frames)-1]
		if len(frames) > 0 {
			ip = frames[len(frames)-1].ip - 1
		}
	}
	*framesPtr = frames
	return false, nil
}

// subscript implements obj[idx] for the read direction of
// OpBinarySubscript, covering both plain indices and slice descriptors.
func (vm *VM) subscript(obj, idx value.Value) (value.Value, error) {
	if idx.Kind == value.KindSlice {
		spec := sliceSpec{start: idx.AsSlice().Start, stop: idx.AsSlice().Stop, step: idx.AsSlice().Step}
		switch obj.Kind {
		case value.KindList:
			items, err := sliceSequence(obj.AsList().Items, spec)
			if err != nil {
				return value.None(), err
			}
			return value.ListVal(value.NewList(items)), nil
		case value.KindTuple:
			items, err := sliceSequence(obj.AsTuple().Items, spec)
			if err != nil {
				return value.None(), err
			}
			return value.TupleVal(value.NewTuple(items)), nil
		case value.KindStr:
			s, err := sliceString(obj.AsStr(), spec)
			if err != nil {
				return value.None(), err
			}
			return value.Str(s), nil
		default:
			return value.None(), raisef("TypeError", "'%s' object is not subscriptable", obj.TypeName())
		}
	}

	switch obj.Kind {
	case value.KindList:
		i, err := normalizeIndex(idx.AsInt(), len(obj.AsList().Items), "list")
		if err != nil {
			return value.None(), err
		}
		return obj.AsList().Items[i], nil
	case value.KindTuple:
		i, err := normalizeIndex(idx.AsInt(), len(obj.AsTuple().Items), "tuple")
		if err != nil {
			return value.None(), err
		}
		return obj.AsTuple().Items[i], nil
	case value.KindStr:
		runes := []rune(obj.AsStr())
		i, err := normalizeIndex(idx.AsInt(), len(runes), "string")
		if err != nil {
			return value.None(), err
		}
		return value.Str(string(runes[i])), nil
	case value.KindDict:
		v, ok := obj.AsDict().Get(idx)
		if !ok {
			return value.None(), raisef("KeyError", "%s", value.Repr(idx))
		}
		return v, nil
	default:
		return value.None(), raisef("TypeError", "'%s' object is not subscriptable", obj.TypeName())
	}
}

// storeSubscript implements obj[idx] = val for OpStoreSubscript. Only List
// supports slice assignment; Str and Tuple are immutable.
func (vm *VM) storeSubscript(obj, idx, val value.Value) error {
	if idx.Kind == value.KindSlice {
		if obj.Kind != value.KindList {
			return raisef("TypeError", "'%s' object does not support slice assignment", obj.TypeName())
		}
		spec := sliceSpec{start: idx.AsSlice().Start, stop: idx.AsSlice().Stop, step: idx.AsSlice().Step}
		l := obj.AsList()
		idxs, err := sliceIndices(spec, len(l.Items))
		if err != nil {
			return err
		}
		replacement, err := iterableItems(val)
		if err != nil {
			return err
		}
		step := int64(1)
		if s, ok := toOptionalInt(spec.step); ok {
			step = s
		}
		if step != 1 && len(replacement) != len(idxs) {
			return raisef("ValueError", "attempt to assign sequence of size %d to extended slice of size %d", len(replacement), len(idxs))
		}
		if step == 1 {
			start, end := 0, len(l.Items)
			if len(idxs) > 0 {
				start, end = idxs[0], idxs[len(idxs)-1]+1
			} else if s, ok := toOptionalInt(spec.start); ok {
				n := int64(len(l.Items))
				if s < 0 {
					s = max64(n+s, 0)
				}
				start = int(min64(s, n))
				end = start
			}
			rest := append([]value.Value{}, l.Items[end:]...)
			l.Items = append(l.Items[:start], append(append([]value.Value{}, replacement...), rest...)...)
			return nil
		}
		for i, idx := range idxs {
			l.Items[idx] = replacement[i]
		}
		return nil
	}

	switch obj.Kind {
	case value.KindList:
		i, err := normalizeIndex(idx.AsInt(), len(obj.AsList().Items), "list")
		if err != nil {
			return err
		}
		obj.AsList().Items[i] = val
		return nil
	case value.KindDict:
		return obj.AsDict().Set(idx, val)
	default:
		return raisef("TypeError", "'%s' object does not support item assignment", obj.TypeName())
	}
}

// loadAttr implements OpLoadAttr. Modules expose their registered
// attributes; exception values expose a minimal .args tuple for
// try/except compatibility with code that inspects caught errors.
func (vm *VM) loadAttr(obj value.Value, name string) (value.Value, error) {
	switch obj.Kind {
	case value.KindModule:
		v, ok := obj.AsModule().Get(name)
		if !ok {
			return value.None(), raisef("AttributeError", "module '%s' has no attribute '%s'", obj.AsModule().Name, name)
		}
		return v, nil
	case value.KindException:
		e := obj.AsException()
		switch name {
		case "args":
			if e.Message == "" {
				return value.TupleVal(value.NewTuple(nil)), nil
			}
			return value.TupleVal(value.NewTuple([]value.Value{value.Str(e.Message)})), nil
		default:
			return value.None(), raisef("AttributeError", "'%s' object has no attribute '%s'", e.Type, name)
		}
	default:
		return value.None(), raisef("AttributeError", "'%s' object has no attribute '%s'", obj.TypeName(), name)
	}
}
