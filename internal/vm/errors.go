package vm

import (
	"fmt"
	"strings"
)

// RuntimeError is a catchable sandbox fault: a Python exception type name
// plus a message, the only two things except-clause matching and `str(e)`
// ever see.
type RuntimeError struct {
	Type    string
	Message string
}

func (e *RuntimeError) Error() string {
	if e.Message == "" {
		return e.Type
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func raisef(typ, format string, args ...any) error {
	return &RuntimeError{Type: typ, Message: fmt.Sprintf(format, args...)}
}

// LimitError is an uncatchable resource-limit fault: it always propagates
// out of Execute(), bypassing exception-table search entirely, per spec
// §6 ("resource limits are not exceptions").
type LimitError struct {
	Kind  string // "instructions" or "recursion"
	Limit int64
}

func (e *LimitError) Error() string {
	switch e.Kind {
	case "recursion":
		return fmt.Sprintf("Recursion limit exceeded (limit: %d)", e.Limit)
	default:
		return fmt.Sprintf("Instruction limit exceeded (limit: %d)", e.Limit)
	}
}

// CompileError-shaped faults never reach the VM; isUncatchable only
// concerns faults raised during Execute().
func isUncatchable(err error) bool {
	_, ok := err.(*LimitError)
	return ok
}

// exceptionType classifies a Go error into the Python exception type name
// the except-table's TypeFilter matches against. A *RuntimeError already
// carries its type split out; errors from internal/value and internal/mount
// format themselves as "SomeError: detail" (see ConversionError,
// mount.NotFoundError, etc.) so the same convention is parsed out of their
// Error() string rather than duplicating a Type field on every error kind.
func exceptionType(err error) string {
	if re, ok := err.(*RuntimeError); ok {
		return re.Type
	}
	typ, _ := splitErrorPrefix(err.Error())
	return typ
}

func exceptionMessage(err error) string {
	if re, ok := err.(*RuntimeError); ok {
		return re.Message
	}
	_, msg := splitErrorPrefix(err.Error())
	return msg
}

// splitErrorPrefix parses the "TypeName: detail" convention shared by every
// error type in this module that isn't a *RuntimeError. Errors with no such
// prefix (an unhashable-type message, a bare Go error) are reported as
// RuntimeError with the full text as the message.
func splitErrorPrefix(s string) (typ, msg string) {
	idx := strings.Index(s, ": ")
	if idx < 0 {
		return "RuntimeError", s
	}
	candidate := s[:idx]
	if candidate == "" || !isTypeNameLike(candidate) {
		return "RuntimeError", s
	}
	return candidate, s[idx+2:]
}

// nonErrorSuffixedTypeNames lists catchable exception type names that
// don't end in "Error": mount.UnsupportedOperationError formats its Error()
// string with the Python name "UnsupportedOperation" (see mount.go), and
// StopIteration follows the same convention if/when produced.
var nonErrorSuffixedTypeNames = map[string]bool{
	"UnsupportedOperation": true,
	"StopIteration":        true,
}

func isTypeNameLike(s string) bool {
	if nonErrorSuffixedTypeNames[s] {
		return true
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return false
		}
	}
	return strings.HasSuffix(s, "Error")
}
