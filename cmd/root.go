// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/log"
)

var (
	// Global flags
	configFile string
	simulate   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strix",
	Short: "Strix - hardware packet generator/capture engine driver",
	Long: `Strix drives an FPGA-based packet generator and capture engine attached
to a high-speed network interface. It stages packet streams in the card's
memory buffers, programs precise transmit timing against the PTP hardware
clock, and drains captured traffic back into capture files.

Commands:
  transmit  - load a capture file and transmit it at a target rate
  receive   - capture packets into a file, optionally on a schedule
  status    - show engine and clock status
  compare   - compare a source capture against a received one`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false,
		"use the in-memory device simulator instead of real hardware")
}

// loadConfig reads the configuration (or defaults) and initialises logging.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configFile == "" {
		cfg = config.Default()
	} else {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
	}
	if simulate {
		cfg.Device.Simulate = true
	}
	log.Init(cfg.Logger)
	return cfg, nil
}

// exitWithError prints error message and exits with code 1
func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
