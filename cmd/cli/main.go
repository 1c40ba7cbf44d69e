package main

import (
	"os"

	"github.com/storeadmin-dev/storeadmin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
