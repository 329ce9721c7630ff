// Package main is the entry point for configctl, an operator CLI for the
// configuration server's admin and cache-invalidation surface.
package main

import (
	"fmt"
	"os"

	"github.com/vitaliisemenov/configserver/cmd/configctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
