package main

import (
	"fmt"
	"os"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "cbfd"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}
