package main

import (
	"github.com/JakeFAU/doulist-movies/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
