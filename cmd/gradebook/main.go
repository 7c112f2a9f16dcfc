// Command gradebook manages students and grades from the command line and
// serves the gradebook HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/xraph/gradebook/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gradebook:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
