// Command sdb runs the state-driven chat and inspects its traces.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sdb/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	err := cli.NewRootCommand().Execute()
	if err != nil && !cli.Reported(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return cli.GetExitCode(err)
}
