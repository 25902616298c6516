package main

import (
	"os"

	"github.com/dvloznov/expensomatic/cmd/expensomatic/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
