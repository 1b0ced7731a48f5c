// Command mkctl is a terminal front-end for the monitoring backend.
//
// The session is kept in the configured storage backend between invocations, so
// `mkctl login` followed by `mkctl devices list` behaves like a browser tab that was
// reopened.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	app := newApp(&env{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	})
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "mkctl:", err)
		os.Exit(1)
	}
}
