// Command goldintel is the CLI entry point for the gold-futures
// trading-intelligence engine: analysis cycles, signal emission, risk
// monitoring, paper-trade logging, and the self-improvement loop.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
