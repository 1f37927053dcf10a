// Package main is the entry point for the swegrep CLI tool.
package main

import (
	"os"

	"github.com/swegrep/swegrep/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
