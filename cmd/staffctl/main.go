// staffctl signs staff in and out of the dashboard session from the command line.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, openApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "staffctl:", err)
		os.Exit(1)
	}
}
