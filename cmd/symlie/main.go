// Command symlie computes and checks tangent-space Jacobians of Lie-group expressions.
package main

import (
	"os"

	"github.com/njchilds90/symlie/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
