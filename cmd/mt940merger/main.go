package main

import (
	"os"

	"github.com/archeus/mt940-merger/internal/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
