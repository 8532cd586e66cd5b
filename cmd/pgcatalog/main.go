// Package main is the entry point of the pgcatalog CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/pgcatalog/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
