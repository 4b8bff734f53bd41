// Package main provides the roll binary: a command line front end for the
// dice expression engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cory-johannsen/dicelang/internal/cli"
)

func main() {
	root := cli.NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}
