package main

import (
	"os"

	"github.com/jsonsql-dev/jsonsql/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
