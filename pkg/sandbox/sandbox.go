// Package sandbox is the embeddable facade over internal/compiler and
// internal/vm: a persistent global environment, tool/module registration,
// file mounts, and resource limits, wrapped around compile-then-execute.
// This is the only package a host application imports.
package sandbox

import (
	"fmt"

	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/compiler"
	"github.com/chonkie-inc/littrs/internal/parser"
	"github.com/chonkie-inc/littrs/internal/value"
	"github.com/chonkie-inc/littrs/internal/vm"
	"gopkg.in/yaml.v3"
)

// ToolFunc is the shape every host-registered tool takes.
type ToolFunc = vm.ToolFunc

// Limits caps the resources a single Run/Capture call may consume. Zero
// values mean unlimited.
type Limits struct {
	MaxInstructions   int64
	MaxRecursionDepth int
}

// Output is the result of Capture: the value of the module's final
// expression plus every line printed during execution.
type Output struct {
	Value  value.Value
	Output []string
}

// Sandbox owns the persistent state a host keeps across many Run calls:
// globals, registered tools and modules, mounts, and resource limits. It
// is not safe for concurrent use — one Run/Capture must finish before the
// next starts, matching the VM's single-threaded execution model (spec §5).
type Sandbox struct {
	vm        *vm.VM
	toolInfos []*vm.ToolInfo
	running   bool
}

// New creates a Sandbox with no built-in virtual modules registered. Call
// WithBuiltins to enable json/math/typing.
func New() *Sandbox {
	return &Sandbox{vm: vm.New()}
}

// WithBuiltins enables the json, math, and typing virtual modules and
// returns the receiver, for chaining at construction time.
func (s *Sandbox) WithBuiltins() *Sandbox {
	s.vm.RegisterStdlib()
	return s
}

// Run compiles and executes source at module scope, returning the value
// of its final expression (None if the module ends on a statement).
// Globals assigned during execution persist for later calls on the same
// Sandbox, even if source itself fails partway through (spec §7: sandbox
// state is a transcript, not a transaction).
func (s *Sandbox) Run(source string) (value.Value, error) {
	if s.running {
		return value.None(), fmt.Errorf("sandbox: Run called while a previous run is still in progress")
	}
	s.running = true
	defer func() { s.running = false }()

	code, err := s.compile(source)
	if err != nil {
		return value.None(), err
	}
	return s.vm.Execute(code)
}

// Capture behaves like Run but also returns every line written by print()
// during execution.
func (s *Sandbox) Capture(source string) (Output, error) {
	s.vm.ClearOutput()
	v, err := s.Run(source)
	out := s.vm.TakeOutput()
	if err != nil {
		return Output{Output: out}, err
	}
	return Output{Value: v, Output: out}, nil
}

func (s *Sandbox) compile(source string) (*bytecode.CodeObject, error) {
	mod, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	code, err := compiler.Compile(mod, source)
	if err != nil {
		return nil, err
	}
	return code, nil
}

// SetGlobal injects a variable into the persistent global environment,
// visible to the next Run/Capture call.
func (s *Sandbox) SetGlobal(name string, v value.Value) { s.vm.SetGlobal(name, v) }

// GetGlobal inspects a global binding after a run.
func (s *Sandbox) GetGlobal(name string) (value.Value, bool) { return s.vm.GetGlobal(name) }

// Limit updates the resource caps applied to subsequent runs.
func (s *Sandbox) Limit(l Limits) {
	s.vm.SetLimits(l.MaxInstructions, l.MaxRecursionDepth)
}

// Register exposes fn to sandboxed code as a callable named name, with no
// argument metadata for Describe.
func (s *Sandbox) Register(name string, fn ToolFunc) {
	s.vm.RegisterTool(name, fn)
}

// RegisterTool exposes fn under the signature described by info, which
// also drives Describe/DescribeYAML output.
func (s *Sandbox) RegisterTool(info *vm.ToolInfo, fn ToolFunc) {
	s.vm.RegisterToolWithInfo(info, fn)
	s.toolInfos = append(s.toolInfos, info)
}

// NewTool starts a ToolInfo builder for use with RegisterTool.
func NewTool(name, description string) *vm.ToolInfo { return vm.NewToolInfo(name, description) }

// Mount registers a virtual file backed by a host path. A writable mount
// may be opened with "w"; a non-writable one only with "r".
func (s *Sandbox) Mount(virtualPath, hostPath string, writable bool) {
	s.vm.Mount(virtualPath, hostPath, writable)
}

// Files returns the current content of every writable mount.
func (s *Sandbox) Files() map[string]string { return s.vm.WritableFiles() }

// Describe renders every registered tool as a Python-style signature with
// a docstring, suitable for an LLM's system prompt.
func (s *Sandbox) Describe() string {
	return vm.DescribeTools(s.toolInfos)
}

// DescribeYAML renders the same tool metadata as Describe, but as YAML —
// for hosts feeding a tool catalog to a non-Python-docstring consumer.
func (s *Sandbox) DescribeYAML() (string, error) {
	type argDoc struct {
		Name        string `yaml:"name"`
		Type        string `yaml:"type"`
		Description string `yaml:"description"`
		Required    bool   `yaml:"required"`
	}
	type toolDoc struct {
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		Args        []argDoc `yaml:"args"`
		Returns     string   `yaml:"returns"`
	}
	docs := make([]toolDoc, len(s.toolInfos))
	for i, t := range s.toolInfos {
		args := make([]argDoc, len(t.Args))
		for j, a := range t.Args {
			args[j] = argDoc{Name: a.Name, Type: a.PythonType, Description: a.Description, Required: a.Required}
		}
		docs[i] = toolDoc{Name: t.Name, Description: t.Description, Args: args, Returns: t.Returns}
	}
	out, err := yaml.Marshal(docs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Module registers a virtual module visible to `import name` / `from name
// import ...`. build populates a ModuleBuilder with constants and
// callables before the module is sealed and registered.
func (s *Sandbox) Module(name string, build func(*ModuleBuilder)) {
	mb := &ModuleBuilder{mod: value.NewModule(name)}
	if build != nil {
		build(mb)
	}
	s.vm.RegisterModule(name, mb.mod)
}

// ModuleBuilder accumulates the constants and callables of one virtual
// module before it is registered.
type ModuleBuilder struct {
	mod *value.Module
}

// Set binds a constant (or any pre-built value.Value, including another
// builtin) under name.
func (b *ModuleBuilder) Set(name string, v value.Value) { b.mod.Set(name, v) }

// SetFunc binds a host function as a callable attribute of the module.
func (b *ModuleBuilder) SetFunc(name string, fn ToolFunc) {
	b.mod.Set(name, value.BuiltinVal(&value.Builtin{Name: name, Fn: fn}))
}
