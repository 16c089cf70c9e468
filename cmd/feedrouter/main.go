package main

import (
	"os"

	"github.com/rustyeddy/feedrouter/cmd/feedrouter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
