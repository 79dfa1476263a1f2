// Package main provides the leapshell interactive SQL shell.
package main

import (
	"os"

	"github.com/leapstack-labs/leapshell/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
