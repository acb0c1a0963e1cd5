package main

import (
	"os"

	"github.com/rustyeddy/cowtrader/cmd/cowtrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
