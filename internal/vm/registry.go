package vm

import "strings"

// ArgInfo describes one tool argument for documentation and keyword
// mapping purposes.
type ArgInfo struct {
	Name        string
	PythonType  string
	Description string
	Required    bool
}

// ToolInfo is metadata about a host tool, used to generate the Python
// signature/docstring fed to an LLM's system prompt and to map keyword
// arguments onto the tool's declared parameter order.
type ToolInfo struct {
	Name        string
	Description string
	Args        []ArgInfo
	Returns     string
}

// NewToolInfo starts a ToolInfo builder; chain Arg/ArgOpt/Returns.
func NewToolInfo(name, description string) *ToolInfo {
	return &ToolInfo{Name: name, Description: description, Returns: "None"}
}

func (t *ToolInfo) Arg(name, pythonType, description string) *ToolInfo {
	t.Args = append(t.Args, ArgInfo{Name: name, PythonType: pythonType, Description: description, Required: true})
	return t
}

func (t *ToolInfo) ArgOpt(name, pythonType, description string) *ToolInfo {
	t.Args = append(t.Args, ArgInfo{Name: name, PythonType: pythonType, Description: description, Required: false})
	return t
}

func (t *ToolInfo) SetReturns(pythonType string) *ToolInfo {
	t.Returns = pythonType
	return t
}

// Signature renders e.g. "fetch_weather(city: str, unit: str | None = None) -> dict".
func (t *ToolInfo) Signature() string {
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		if a.Required {
			parts[i] = a.Name + ": " + a.PythonType
		} else {
			parts[i] = a.Name + ": " + a.PythonType + " | None = None"
		}
	}
	return t.Name + "(" + strings.Join(parts, ", ") + ") -> " + t.Returns
}

// Doc renders a full Python stub with a docstring, suitable for embedding
// in an LLM's system prompt.
func (t *ToolInfo) Doc() string {
	var b strings.Builder
	b.WriteString("def ")
	b.WriteString(t.Signature())
	b.WriteString(":\n")
	b.WriteString("    \"\"\"")
	b.WriteString(t.Description)
	b.WriteByte('\n')
	if len(t.Args) > 0 {
		b.WriteString("\n    Args:\n")
		for _, a := range t.Args {
			b.WriteString("        ")
			b.WriteString(a.Name)
			b.WriteString(": ")
			b.WriteString(a.Description)
			b.WriteByte('\n')
		}
	}
	b.WriteString("    \"\"\"")
	return b.String()
}

// DescribeTools joins every tool's Doc into one system-prompt-ready block.
func DescribeTools(tools []*ToolInfo) string {
	docs := make([]string, len(tools))
	for i, t := range tools {
		docs[i] = t.Doc()
	}
	return strings.Join(docs, "\n\n")
}

// Tools returns every tool registered with metadata, in registration
// order is not guaranteed (Go maps); callers needing stable documentation
// order should track ToolInfos themselves, as pkg/sandbox does.
func (vm *VM) Tools() []*ToolInfo {
	var out []*ToolInfo
	for _, t := range vm.tools {
		if t.info != nil {
			out = append(out, t.info)
		}
	}
	return out
}
