// Package mount implements the sandbox's virtual filesystem: named files
// exposed to sandboxed code via open(), backed by host files read at mount
// time and (for writable mounts) written back through as sandbox code
// writes to them. Sandboxed code never sees a host path, only the virtual
// name it was mounted under.
package mount

import (
	"os"

	"github.com/google/uuid"
)

// Entry is one mounted virtual file.
type Entry struct {
	HostPath string
	Writable bool
	Content  string
}

// handle is the runtime state of one open file object. Handles are keyed
// by a uuid string rather than a counter so a leaked or forged handle
// value from sandboxed code can never collide with a live one.
type handle struct {
	virtualPath string
	buffer      string
	cursor      int
	writeMode   bool
	closed      bool
}

// Table owns the mount table and the open-file handles derived from it.
// Create one with NewTable; the zero value has nil maps and is not usable.
type Table struct {
	mounts map[string]*Entry
	open   map[string]*handle
}

func NewTable() *Table {
	return &Table{mounts: make(map[string]*Entry), open: make(map[string]*handle)}
}

// Mount registers a virtual file backed by hostPath, reading its initial
// content immediately. A host file that doesn't exist mounts as empty
// content rather than failing — mirroring a write-only output mount that
// doesn't exist until sandbox code creates it.
func (t *Table) Mount(virtualPath, hostPath string, writable bool) {
	content, _ := os.ReadFile(hostPath)
	t.mounts[virtualPath] = &Entry{HostPath: hostPath, Writable: writable, Content: string(content)}
}

// WritableFiles returns the current content of every writable mount, for
// inspection after a run.
func (t *Table) WritableFiles() map[string]string {
	out := make(map[string]string)
	for path, e := range t.mounts {
		if e.Writable {
			out[path] = e.Content
		}
	}
	return out
}

// Open implements open(path, mode) against the mount table, returning a
// new handle id. mode containing 'w' opens for writing; a mode containing
// 'a' or '+' ("a", "r+", "w+") raises UnsupportedOperation.
func (t *Table) Open(path, mode string) (string, error) {
	entry, ok := t.mounts[path]
	if !ok {
		return "", &NotFoundError{Path: path}
	}
	if containsAny(mode, "a+") {
		return "", &UnsupportedOperationError{Op: "unsupported mode '" + mode + "'"}
	}
	writeMode := containsAny(mode, "w")
	if writeMode && !entry.Writable {
		return "", &PermissionError{Path: path}
	}
	buf := entry.Content
	if writeMode {
		buf = ""
	}
	id := uuid.NewString()
	t.open[id] = &handle{virtualPath: path, buffer: buf, writeMode: writeMode}
	return id, nil
}

func containsAny(s, chars string) bool {
	for _, c := range chars {
		for _, r := range s {
			if r == c {
				return true
			}
		}
	}
	return false
}

func (t *Table) get(id string) (*handle, error) {
	h, ok := t.open[id]
	if !ok || h.closed {
		return nil, &ClosedFileError{}
	}
	return h, nil
}

// Read implements file.read(): the remainder of the buffer from the
// cursor, advancing the cursor to the end.
func (t *Table) Read(id string) (string, error) {
	h, err := t.get(id)
	if err != nil {
		return "", err
	}
	if h.writeMode {
		return "", &UnsupportedOperationError{Op: "not readable"}
	}
	s := h.buffer[h.cursor:]
	h.cursor = len(h.buffer)
	return s, nil
}

// ReadLine implements file.readline(): up to and including the next '\n'.
func (t *Table) ReadLine(id string) (string, error) {
	h, err := t.get(id)
	if err != nil {
		return "", err
	}
	if h.writeMode {
		return "", &UnsupportedOperationError{Op: "not readable"}
	}
	remaining := h.buffer[h.cursor:]
	line := remaining
	if idx := indexByte(remaining, '\n'); idx >= 0 {
		line = remaining[:idx+1]
	}
	h.cursor += len(line)
	return line, nil
}

// ReadLines implements file.readlines(): every remaining line, each
// keeping its trailing newline except possibly the last.
func (t *Table) ReadLines(id string) ([]string, error) {
	h, err := t.get(id)
	if err != nil {
		return nil, err
	}
	if h.writeMode {
		return nil, &UnsupportedOperationError{Op: "not readable"}
	}
	remaining := h.buffer[h.cursor:]
	h.cursor = len(h.buffer)
	if remaining == "" {
		return nil, nil
	}
	return splitInclusive(remaining, '\n'), nil
}

// Write implements file.write(text), returning the byte count written and
// persisting the accumulated buffer back to the mount (and host file).
func (t *Table) Write(id, text string) (int, error) {
	h, err := t.get(id)
	if err != nil {
		return 0, err
	}
	if !h.writeMode {
		return 0, &UnsupportedOperationError{Op: "not writable"}
	}
	h.buffer += text
	t.flush(h.virtualPath, h.buffer)
	return len(text), nil
}

// Close implements file.close(), flushing a final time for write-mode
// handles.
func (t *Table) Close(id string) error {
	h, err := t.get(id)
	if err != nil {
		return err
	}
	h.closed = true
	if h.writeMode {
		t.flush(h.virtualPath, h.buffer)
	}
	return nil
}

func (t *Table) flush(virtualPath, content string) {
	entry, ok := t.mounts[virtualPath]
	if !ok {
		return
	}
	entry.Content = content
	_ = os.WriteFile(entry.HostPath, []byte(content), 0o644)
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func splitInclusive(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// NotFoundError mirrors Python's FileNotFoundError wording.
type NotFoundError struct{ Path string }

func (e *NotFoundError) Error() string {
	return "FileNotFoundError: [Errno 2] No such file or directory: '" + e.Path + "'"
}

// PermissionError mirrors Python's PermissionError wording.
type PermissionError struct{ Path string }

func (e *PermissionError) Error() string {
	return "PermissionError: [Errno 13] Permission denied: '" + e.Path + "'"
}

// ClosedFileError mirrors Python's message for I/O on a closed file.
type ClosedFileError struct{}

func (e *ClosedFileError) Error() string { return "ValueError: I/O operation on closed file" }

// UnsupportedOperationError mirrors io.UnsupportedOperation.
type UnsupportedOperationError struct{ Op string }

func (e *UnsupportedOperationError) Error() string { return "UnsupportedOperation: " + e.Op }
