// ABOUTME: Entry point for the tonieconv CLI
// ABOUTME: Runs the root command and reports errors on stderr
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
