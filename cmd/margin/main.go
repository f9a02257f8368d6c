// Command margin is a semantic annotation tool for prompt text.
package main

import (
	"os"

	"github.com/custodia-labs/margin-cli/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
