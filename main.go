package main

import (
	"os"

	"github.com/embeddingBits/dronenet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
