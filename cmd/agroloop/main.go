// Command agroloop is the AgroLoop CLI and local API server.
package main

import (
	"os"

	"github.com/agroloop/agroloop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
