package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/monitor"
)

var statusOpts struct {
	watch    bool
	interval time.Duration
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine counters, clock and schedule",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&statusOpts.watch, "watch", "w", false,
		"refresh continuously")
	statusCmd.Flags().DurationVar(&statusOpts.interval, "interval", time.Second,
		"refresh interval with --watch")
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError("failed to load config", err)
	}
	dev, err := openDevice(cfg)
	if err != nil {
		exitWithError("failed to open device", err)
	}

	mac, err := dev.ptp.MACAddress()
	if err != nil {
		exitWithError("failed to read MAC address", err)
	}
	fmt.Printf("PTP MAC %s, domain %d\n", mac, cfg.Device.PtpDomain)

	ctx, cancel := signalContext()
	defer cancel()
	for {
		if err := monitor.Snapshot(os.Stdout, dev.regs); err != nil {
			exitWithError("failed to read status", err)
		}
		if !statusOpts.watch {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(statusOpts.interval):
		}
	}
}
