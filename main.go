package main

import (
	"os"

	"github.com/wavbird/goape/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
