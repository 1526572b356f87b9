package main

import (
	"os"

	"github.com/tileware/orderhub/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
