// Command dirsim replays memory traces on a simulated directory-based MSI
// multiprocessor and reports the cost of every access.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/dirsim/cmd/dirsim/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
