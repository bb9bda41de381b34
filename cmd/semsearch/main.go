// Command semsearch is the entry point for the semantic article search
// service. It provides a CLI interface (via Cobra) for running the HTTP
// server and for one-shot ingestion runs.
package main

import (
	"fmt"
	"os"

	"github.com/davrd/semsearch/cmd/semsearch/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
