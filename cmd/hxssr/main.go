// Command hxssr serves the demo application with live reload: file changes
// rebuild the binary and the listening socket is handed to the new process.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
