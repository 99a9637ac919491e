package main

import (
	"os"

	"github.com/GallTech/rag-lab/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
