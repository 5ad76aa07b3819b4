// Command promptforge runs the prompt composition console and its admin CLI.
package main

import (
	"fmt"
	"os"
)

// Build is set via ldflags at build time.
var Build = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
