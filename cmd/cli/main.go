package main

import (
	"os"

	"github.com/diatrack-dev/diatrack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
