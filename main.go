// The main package for the harvester executable.
package main

import (
	"github.com/clipstream/harvester/cmd"
)

func main() {
	cmd.Execute()
}
