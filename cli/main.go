package main

import (
	"os"

	"github.com/callflow-systems/callflow-stack/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
