package main

import (
	"github.com/openlex/lexcrawl/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
