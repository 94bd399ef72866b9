// Package main is the entry point for the VID Issuing Tool CLI.
package main

import (
	"os"

	"github.com/YannMSFT/VID-Issuing-Tool/cmd/vidtool/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
