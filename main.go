// Package main is the entry point for the Strix packet generator/capture driver.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/strix/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
