package main

import (
	"os"

	"braidsbar/queue-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
