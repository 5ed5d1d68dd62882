package main

import (
	"os"

	"github.com/voltgrid/sessiond/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
