package main

import (
	"os"

	"github.com/moorline/stevedore/src/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
