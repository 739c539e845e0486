// Command pepl is the compiler's command-line entry point: type-check,
// compile, and run a space file.
package main

import (
	"fmt"
	"os"

	"github.com/pepl-lang/pepl/runtime/cli"
)

var version = "dev"

func main() {
	h := cli.NewHarness("pepl", version)
	if err := h.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
