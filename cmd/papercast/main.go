// Package main is the entry point for the papercast CLI.
//
// Usage:
//
//	papercast [flags] <command> [subcommand] [args]
//
// Commands:
//
//	record   - Produce one program from a request file
//	jobs     - Manage episode jobs in the local job store
//	watch    - Process pending episode jobs from the job store
//	clean    - Delete leftover remote resources from crashed runs
//	version  - Show version information
package main

import (
	"os"

	"github.com/naelab/papercast/cmd/papercast/commands"
	"github.com/naelab/papercast/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
