// Command jmv runs the periodic-table feature against a backend, serves the
// mock backend, and inspects transition journals.
package main

import (
	"context"
	"os"

	"github.com/WOCOMLABS/jmv-arch/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
