package main

import (
	"os"

	"github.com/chat2video/chat2video/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
