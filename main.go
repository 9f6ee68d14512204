package main

import (
	"os"

	"github.com/stagebox/stagebox/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
