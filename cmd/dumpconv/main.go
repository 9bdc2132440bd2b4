// Package main provides the dumpconv CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/dumpconv/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
