// Package main provides the entry point for the tbgclient CLI.
package main

import (
	"fmt"
	"os"

	"github.com/tbgers/tbgclient/cmd/tbgclient/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
