// Command pysandbox runs a Python-subset source file (or stdin) through
// pkg/sandbox with built-ins enabled, printing captured stdout followed
// by the result's repr.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chonkie-inc/littrs/internal/value"
	"github.com/chonkie-inc/littrs/pkg/sandbox"
	"github.com/mattn/go-isatty"
)

func main() {
	log.SetFlags(0)

	var src []byte
	var err error
	if len(os.Args) > 1 {
		src, err = os.ReadFile(os.Args[1])
	} else {
		src, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		log.Fatalf("pysandbox: %v", err)
	}

	sb := sandbox.New().WithBuiltins()
	out, err := sb.Capture(string(src))
	for _, line := range out.Output {
		fmt.Println(line)
	}
	if err != nil {
		log.Fatalf("pysandbox: %v", err)
	}

	printResult(out.Value)
}

func printResult(v value.Value) {
	if v.Kind == value.KindNone {
		return
	}
	repr := value.Repr(v)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Printf("\x1b[2m=> %s\x1b[0m\n", repr)
	} else {
		fmt.Println(repr)
	}
}
