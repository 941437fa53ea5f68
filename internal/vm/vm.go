// Package vm executes compiled internal/bytecode.CodeObjects: a stack
// machine with an exception table, per-frame iterator state, a tool and
// module registry, and a mounted virtual filesystem. It is the only
// package in this module that mutates runtime state — internal/compiler
// is pure translation, and ops.go/methods.go/slice.go are stateless
// helpers the dispatch loop calls into.
package vm

import (
	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/mount"
	"github.com/chonkie-inc/littrs/internal/value"
	"github.com/google/uuid"
)

// ToolFunc is the shape every host-registered tool and module function
// takes: positional args plus an optional keyword map, same as
// value.Builtin.Fn so builtins and tools share call machinery.
type ToolFunc func(args []value.Value, kwargs map[string]value.Value) (value.Value, error)

type registeredTool struct {
	fn   ToolFunc
	info *ToolInfo
}

// VM holds all state that persists across Execute calls: globals, the
// tool/module registries, accumulated print output, and mounted files.
// Every Execute starts a fresh call-frame stack and resets the instruction
// counter; the operand stack slice is reused as it is.
type VM struct {
	stack   []value.Value
	globals map[string]value.Value
	tools   map[string]*registeredTool
	modules map[string]*value.Module

	printBuffer []string

	instructionLimit int64 // 0 = unlimited
	recursionLimit   int   // 0 = unlimited
	instructionCount int64
	callDepth        int

	mounts *mount.Table

	// currentExc is the exception bound by the innermost active except
	// handler, consulted only by OpReraise (bare `raise`).
	currentExc *value.Exception

	// runID is a fresh uuid per Execute call. idTable and idNext back the
	// id() builtin and are reset alongside it, so identity is stable only
	// within a single run (spec Open Question decision, DESIGN.md).
	runID   string
	idTable map[any]int64
	idNext  int64
}

// New creates a VM with the builtin function table pre-seeded into
// globals. Seeding builtins as ordinary global bindings (rather than a
// separate resolution tier) is what lets sandboxed code shadow them —
// `len = 5` behaves exactly like reassigning any other global, matching
// CPython.
func New() *VM {
	vm := &VM{
		globals: make(map[string]value.Value),
		tools:   make(map[string]*registeredTool),
		modules: make(map[string]*value.Module),
		mounts:  mount.NewTable(),
	}
	vm.seedBuiltins()
	return vm
}

// SetGlobal binds name in the global scope, visible to sandboxed code on
// its next run and to any already-compiled code referencing that name.
func (vm *VM) SetGlobal(name string, v value.Value) { vm.globals[name] = v }

// GetGlobal reads a global binding, for host-side inspection after a run.
func (vm *VM) GetGlobal(name string) (value.Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

// RegisterTool registers a host function callable by name from sandboxed
// code, with no argument metadata.
func (vm *VM) RegisterTool(name string, fn ToolFunc) {
	vm.tools[name] = &registeredTool{fn: fn}
}

// RegisterToolWithInfo registers a tool plus its ToolInfo, which feeds
// Describe's LLM-facing documentation. Calls reach fn with the positional
// args and keyword map as written at the call site; info.Args is not used
// to map keywords onto positions.
func (vm *VM) RegisterToolWithInfo(info *ToolInfo, fn ToolFunc) {
	vm.tools[info.Name] = &registeredTool{fn: fn, info: info}
}

// RegisterModule makes a module importable by name from sandboxed code.
func (vm *VM) RegisterModule(name string, mod *value.Module) { vm.modules[name] = mod }

// TakeOutput returns and clears all print() output captured since the
// last call.
func (vm *VM) TakeOutput() []string {
	out := vm.printBuffer
	vm.printBuffer = nil
	return out
}

// ClearOutput discards captured print() output without returning it.
func (vm *VM) ClearOutput() { vm.printBuffer = nil }

// SetLimits configures the per-Execute instruction budget and the
// call-stack depth budget. A zero value means unlimited.
func (vm *VM) SetLimits(maxInstructions int64, maxRecursionDepth int) {
	vm.instructionLimit = maxInstructions
	vm.recursionLimit = maxRecursionDepth
}

// Mount registers a virtual file backed by a host path.
func (vm *VM) Mount(virtualPath, hostPath string, writable bool) {
	vm.mounts.Mount(virtualPath, hostPath, writable)
}

// WritableFiles returns the current content of every writable mount.
func (vm *VM) WritableFiles() map[string]string { return vm.mounts.WritableFiles() }

// Execute runs a compiled module CodeObject to completion and returns the
// value of its last expression (None if the module ends on a statement).
// Globals set during execution persist across calls on the same VM.
func (vm *VM) Execute(code *bytecode.CodeObject) (value.Value, error) {
	vm.instructionCount = 0
	vm.runID = uuid.NewString()
	vm.idTable = make(map[any]int64)
	vm.idNext = 0
	frames := []*frame{newFrame(code, 0)}
	return vm.run(frames)
}

// RunID returns the uuid assigned to the most recent Execute call.
func (vm *VM) RunID() string { return vm.runID }
