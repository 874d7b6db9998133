// Command forge is the CLI entrypoint for the forge worker supervisor.
package main

import (
	"os"

	"github.com/forgehq/forge/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
