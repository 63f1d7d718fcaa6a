package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/pcap"
)

var compareOpts struct {
	packets int
	dport   uint16
}

var compareCmd = &cobra.Command{
	Use:   "compare <source-file> <captured-file>",
	Short: "Compare a transmitted capture file against a received one",
	Long: `Compare checks, packet by packet, that the captured file contains the
same payloads as the source file. The captured side can be filtered down
to UDP packets addressed to a given destination port first, which strips
unrelated traffic picked up during the capture.`,
	Args: cobra.ExactArgs(2),
	Run:  runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().IntVar(&compareOpts.packets, "packets", 0,
		"compare at most this many packets (0 means all of the source)")
	compareCmd.Flags().Uint16Var(&compareOpts.dport, "dport", 0,
		"only consider captured UDP packets to this destination port")
}

func runCompare(cmd *cobra.Command, args []string) {
	if _, err := loadConfig(); err != nil {
		exitWithError("failed to load config", err)
	}

	result, err := pcap.Compare(args[0], args[1], compareOpts.packets, compareOpts.dport)
	if err != nil {
		exitWithError("comparison failed", err)
	}
	if result.Equal() {
		fmt.Printf("OK: %d packets match\n", result.Compared)
		return
	}
	fmt.Printf("MISMATCH: %d of %d packets differ\n", len(result.Differences), result.Compared)
	for i, idx := range result.Differences {
		if i == 10 {
			fmt.Printf("  ... %d more\n", len(result.Differences)-10)
			break
		}
		fmt.Printf("  packet %d differs\n", idx)
	}
	os.Exit(1)
}
