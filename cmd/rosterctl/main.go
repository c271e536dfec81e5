// Command rosterctl runs and inspects reconciliation passes from a terminal.
package main

import (
	"os"
)

func main() {
	if err := NewRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
