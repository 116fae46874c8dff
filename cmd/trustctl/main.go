package main

import (
	"os"

	"github.com/vaultsandbox/trustcore/cmd/trustctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
