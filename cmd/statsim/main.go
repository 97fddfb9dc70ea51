// Command statsim compiles CUE stat sheets, previews what-if sessions
// against them and replays journaled sessions.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/statsim/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
