// Package main is the entry point for the some CLI.
//
// Usage:
//
//	some [flags] <command> [args]
//
// Commands:
//
//	infer    - Extract notes from audio files
//	inspect  - Show the layout and parameters of a checkpoint
//	export   - Convert a checkpoint to the exported layout
//	serve    - Serve a pipeline over gRPC
//	classes  - List registered architectures, tasks and task mappings
package main

import (
	"fmt"
	"os"

	"github.com/ekisa-team/some/cmd/some/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
