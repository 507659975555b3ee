package main

import (
	"os"

	"github.com/mikey/mailpilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
