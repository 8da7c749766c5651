package main

import (
	"os"

	"github.com/civicdesk/municipal-service/cmd/api/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
