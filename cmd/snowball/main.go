// Package main is the entry point for the snowball CLI.
package main

import (
	"os"

	"github.com/jmangroup/snowball/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
