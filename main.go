// The main package for the offersnap executable.
package main

import (
	"github.com/pbaranau/offersnap/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
