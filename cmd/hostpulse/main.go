// Package main is the entry point for the hostpulse binary.
package main

import (
	"os"

	"github.com/HerbHall/hostpulse/cmd/hostpulse/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
