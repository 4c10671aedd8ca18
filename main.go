package main

import (
	"os"

	"github.com/abhisek/eikengen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
