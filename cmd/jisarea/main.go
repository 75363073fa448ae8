// Command jisarea imports Japanese area-code files into a normalized
// database and serves lookups over it.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	_ "github.com/JonMunkholm/jisarea/internal/store/postgres" // register backend
	_ "github.com/JonMunkholm/jisarea/internal/store/sqlite"   // register backend
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
