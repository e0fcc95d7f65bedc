package main

import (
	"os"

	"github.com/ts-platform/portal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
