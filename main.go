// Semamap - semantic code map engine.
//
// Semamap builds a queryable map of a source tree: code elements, the
// relationships between them, derived clusters, architectural layers,
// and recurring concepts, enabling code search, impact analysis, and
// navigation.
package main

import (
	"fmt"
	"os"

	"github.com/cartograph-dev/semamap/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
