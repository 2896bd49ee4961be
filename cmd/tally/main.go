// Package main provides the entry point for the tally CLI.
package main

import (
	"os"

	"github.com/randalmurphal/tally/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
