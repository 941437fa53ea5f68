package vm

import (
	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/value"
)

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) top() value.Value { return vm.stack[len(vm.stack)-1] }

// run is the fetch-decode-execute loop shared by every call depth: a
// function call pushes a new *frame onto the same frames slice rather than
// recursing, so deep Python call chains don't cost deep Go stack frames and
// handleException can walk the slice directly.
func (vm *VM) run(frames []*frame) (value.Value, error) {
	for {
		if len(frames) == 0 {
			// The last frame finished through OpReturn, which left its
			// result on the stack.
			return vm.pop(), nil
		}
		f := frames[len(frames)-1]
		if f.ip >= len(f.code.Instrs) {
			finished := f
			frames = frames[:len(frames)-1]
			if len(frames) == 0 {
				if len(vm.stack) > finished.stackBase {
					return vm.pop(), nil
				}
				return value.None(), nil
			}
			vm.stack = vm.stack[:finished.stackBase]
			vm.push(value.None())
			continue
		}

		ip := f.ip
		instr := f.code.Instrs[ip]
		f.ip++

		vm.instructionCount++
		if vm.instructionLimit > 0 && vm.instructionCount > vm.instructionLimit {
			return value.None(), &LimitError{Kind: "instructions", Limit: vm.instructionLimit}
		}

		err := vm.dispatchOp(instr, f, &frames)
		if err == nil {
			continue
		}
		if isUncatchable(err) {
			return value.None(), err
		}
		handled, herr := vm.handleException(&frames, err, ip)
		if herr != nil {
			return value.None(), herr
		}
		if !handled {
			return value.None(), err
		}
	}
}

// dispatchOp executes one instruction against frame f, which is always
// (*framesPtr)[len-1] at entry — passed separately just to save a
// redundant slice index on every instruction. OpCall/OpCallMethod mutate
// *framesPtr directly to push a callee frame.
func (vm *VM) dispatchOp(instr bytecode.Instr, f *frame, framesPtr *[]*frame) error {
	switch instr.Op {
	case bytecode.OpLoadConst:
		vm.push(f.code.Consts[instr.A])
	case bytecode.OpLoadLocal:
		vm.push(f.locals[instr.A])
	case bytecode.OpStoreLocal:
		f.locals[instr.A] = vm.pop()
	case bytecode.OpLoadGlobal:
		name := f.code.Names[instr.A]
		if v, ok := vm.globals[name]; ok {
			vm.push(v)
		} else if t, ok := vm.tools[name]; ok {
			vm.push(value.BuiltinVal(&value.Builtin{Name: name, Fn: t.fn}))
		} else {
			return raisef("NameError", "name '%s' is not defined", name)
		}
	case bytecode.OpStoreGlobal:
		vm.globals[f.code.Names[instr.A]] = vm.pop()
	case bytecode.OpPop:
		vm.pop()
	case bytecode.OpDup:
		vm.push(vm.top())
	case bytecode.OpRotN:
		n := instr.A
		tos := vm.pop()
		pos := len(vm.stack) - (n - 1)
		vm.stack = append(vm.stack[:pos], append([]value.Value{tos}, vm.stack[pos:]...)...)

	case bytecode.OpBinaryOp:
		b, a := vm.pop(), vm.pop()
		r, err := applyBinaryOp(bytecode.BinOp(instr.A), a, b)
		if err != nil {
			return err
		}
		vm.push(r)
	case bytecode.OpUnaryOp:
		r, err := applyUnaryOp(bytecode.UnaryOp(instr.A), vm.pop())
		if err != nil {
			return err
		}
		vm.push(r)
	case bytecode.OpCompareOp:
		b, a := vm.pop(), vm.pop()
		r, err := applyCompareOp(bytecode.CmpOp(instr.A), a, b)
		if err != nil {
			return err
		}
		vm.push(r)

	case bytecode.OpJump:
		f.ip = instr.A
	case bytecode.OpPopJumpIfFalse:
		if !value.Truthy(vm.pop()) {
			f.ip = instr.A
		}
	case bytecode.OpPopJumpIfTrue:
		if value.Truthy(vm.pop()) {
			f.ip = instr.A
		}
	case bytecode.OpJumpIfFalseOrPop:
		if !value.Truthy(vm.top()) {
			f.ip = instr.A
		} else {
			vm.pop()
		}
	case bytecode.OpJumpIfTrueOrPop:
		if value.Truthy(vm.top()) {
			f.ip = instr.A
		} else {
			vm.pop()
		}

	case bytecode.OpBuildList:
		n := instr.A
		items := append([]value.Value{}, vm.stack[len(vm.stack)-n:]...)
		vm.stack = vm.stack[:len(vm.stack)-n]
		vm.push(value.ListVal(value.NewList(items)))
	case bytecode.OpBuildTuple:
		n := instr.A
		items := append([]value.Value{}, vm.stack[len(vm.stack)-n:]...)
		vm.stack = vm.stack[:len(vm.stack)-n]
		vm.push(value.TupleVal(value.NewTuple(items)))
	case bytecode.OpBuildSet:
		n := instr.A
		items := vm.stack[len(vm.stack)-n:]
		s := value.NewSet()
		for _, it := range items {
			if !value.IsHashable(it) {
				vm.stack = vm.stack[:len(vm.stack)-n]
				return raisef("TypeError", "unhashable type: '%s'", it.TypeName())
			}
			_ = s.Add(it)
		}
		vm.stack = vm.stack[:len(vm.stack)-n]
		vm.push(value.SetVal(s))
	case bytecode.OpBuildDict:
		n := instr.A
		pairs := vm.stack[len(vm.stack)-2*n:]
		d := value.NewDict()
		for i := 0; i < n; i++ {
			k, v := pairs[2*i], pairs[2*i+1]
			if !value.IsHashable(k) {
				vm.stack = vm.stack[:len(vm.stack)-2*n]
				return raisef("TypeError", "unhashable type: '%s'", k.TypeName())
			}
			_ = d.Set(k, v)
		}
		vm.stack = vm.stack[:len(vm.stack)-2*n]
		vm.push(value.DictVal(d))

	case bytecode.OpBinarySubscript:
		obj, idx := vm.pop(), vm.pop()
		r, err := vm.subscript(obj, idx)
		if err != nil {
			return err
		}
		vm.push(r)
	case bytecode.OpStoreSubscript:
		obj, idx, val := vm.pop(), vm.pop(), vm.pop()
		if err := vm.storeSubscript(obj, idx, val); err != nil {
			return err
		}
	case bytecode.OpBuildSlice:
		step, stop, start := vm.pop(), vm.pop(), vm.pop()
		vm.push(value.SliceVal(&value.Slice{Start: start, Stop: stop, Step: step}))
	case bytecode.OpLoadAttr:
		name := f.code.Names[instr.A]
		obj := vm.pop()
		r, err := vm.loadAttr(obj, name)
		if err != nil {
			return err
		}
		vm.push(r)
	case bytecode.OpStoreAttr:
		return raisef("AttributeError", "cannot assign to attribute '%s'", f.code.Names[instr.A])

	case bytecode.OpUnpackSequence:
		n := instr.A
		items, err := iterableItems(vm.pop())
		if err != nil {
			return err
		}
		if len(items) != n {
			return raisef("ValueError", "too many values to unpack (expected %d)", n)
		}
		for i := n - 1; i >= 0; i-- {
			vm.push(items[i])
		}

	case bytecode.OpGetIter:
		items, err := iterableItems(vm.pop())
		if err != nil {
			return err
		}
		f.iterators = append(f.iterators, iterState{items: items})
	case bytecode.OpIterNext:
		it := &f.iterators[len(f.iterators)-1]
		if it.index >= len(it.items) {
			f.iterators = f.iterators[:len(f.iterators)-1]
			f.ip = instr.A
		} else {
			vm.push(it.items[it.index])
			it.index++
		}
	case bytecode.OpPopIter:
		f.iterators = f.iterators[:len(f.iterators)-1]

	case bytecode.OpMakeFunction:
		proto := f.code.Functions[instr.A]
		n := instr.B
		defaults := append([]value.Value{}, vm.stack[len(vm.stack)-n:]...)
		vm.stack = vm.stack[:len(vm.stack)-n]
		vm.push(value.FuncVal(&value.Function{
			Name: proto.Name, Params: proto.Params, Defaults: defaults,
			Vararg: proto.Vararg, Kwarg: proto.Kwarg, Code: proto,
		}))

	case bytecode.OpCall:
		return vm.dispatchCall(instr, framesPtr)
	case bytecode.OpCallMethod:
		return vm.dispatchCallMethod(instr, f, framesPtr)

	case bytecode.OpReturn:
		ret := vm.pop()
		finished := (*framesPtr)[len(*framesPtr)-1]
		*framesPtr = (*framesPtr)[:len(*framesPtr)-1]
		vm.stack = vm.stack[:finished.stackBase]
		vm.push(ret)

	case bytecode.OpRaise:
		msg, typ := vm.pop(), vm.pop()
		msgStr := ""
		if msg.Kind == value.KindStr {
			msgStr = msg.AsStr()
		} else if msg.Kind != value.KindNone {
			msgStr = value.Stringify(msg)
		}
		return raisef(typ.AsStr(), "%s", msgStr)
	case bytecode.OpReraise:
		if vm.currentExc == nil {
			return raisef("RuntimeError", "No active exception to re-raise")
		}
		return &RuntimeError{Type: vm.currentExc.Type, Message: vm.currentExc.Message}

	case bytecode.OpFormatValue:
		vm.push(value.Str(value.Stringify(vm.pop())))

	case bytecode.OpImport:
		modName, bindName := f.code.Names[instr.A], f.code.Names[instr.B]
		mod, ok := vm.modules[modName]
		if !ok {
			return raisef("ModuleNotFoundError", "No module named '%s'", modName)
		}
		vm.globals[bindName] = value.ModuleVal(mod)
	case bytecode.OpImportFrom:
		modName, attrName, bindName := f.code.Names[instr.A], f.code.Names[instr.B], f.code.Names[instr.C]
		mod, ok := vm.modules[modName]
		if !ok {
			return raisef("ModuleNotFoundError", "No module named '%s'", modName)
		}
		v, ok := mod.Get(attrName)
		if !ok {
			return raisef("ImportError", "cannot import name '%s' from '%s'", attrName, modName)
		}
		vm.globals[bindName] = v

	case bytecode.OpNop:
		// no-op

	default:
		return raisef("RuntimeError", "unknown opcode")
	}
	return nil
}

