// Package main is the entry point for the tabsink CLI binary.
package main

import (
	"os"

	"tabsink/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
