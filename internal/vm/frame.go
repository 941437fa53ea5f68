package vm

import (
	"github.com/chonkie-inc/littrs/internal/bytecode"
	"github.com/chonkie-inc/littrs/internal/value"
)

// iterState is one entry on a frame's iterator stack: the eagerly
// materialized items of a `for` target plus a cursor. Iterators never
// live on the shared operand stack (see OpGetIter/OpIterNext/OpPopIter).
type iterState struct {
	items []value.Value
	index int
}

// frame is one activation record: a module body or a function/lambda/
// comprehension call. Locals are addressed by compile-time slot index,
// never by name — only globals are name-indexed (spec §4.3).
type frame struct {
	code      *bytecode.CodeObject
	ip        int
	locals    []value.Value
	stackBase int
	iterators []iterState
}

func newFrame(code *bytecode.CodeObject, stackBase int) *frame {
	return &frame{
		code:      code,
		locals:    make([]value.Value, code.NumLocals),
		stackBase: stackBase,
	}
}
