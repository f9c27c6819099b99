// pimsg is a thin cobra CLI over the action dispatcher (internal/dispatch):
// one subcommand per §6 action, for shell-driven testing and operator
// debugging. The embeddable Go API (dispatch.Dispatcher) is the primary
// integration surface; this binary exists because the teacher exposes its
// own internal/cmd dispatch the same way, as a cobra wrapper over a core
// that is equally usable without the CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
