package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/pcap"
)

var receiveOpts struct {
	packetSize int
	count      uint64
	startTime  string
	stopTime   string
}

var receiveCmd = &cobra.Command{
	Use:   "receive <output-file>",
	Short: "Capture packets from the wire into a capture file",
	Long: `Receive arms the capture engine for packets of a fixed size, waits for
the capture to complete, and drains the card's buffers into a .pcap or
.pcapng file. Interrupting with Ctrl-C cancels the capture but still
writes whatever was received.`,
	Args: cobra.ExactArgs(1),
	Run:  runReceive,
}

func init() {
	rootCmd.AddCommand(receiveCmd)
	receiveCmd.Flags().IntVar(&receiveOpts.packetSize, "packet-size", 0,
		"expected packet size in bytes (required)")
	receiveCmd.Flags().Uint64Var(&receiveOpts.count, "count", 0,
		"stop after this many packets (0 waits for the hardware complete flag)")
	receiveCmd.Flags().StringVar(&receiveOpts.startTime, "start-time", "",
		"scheduled start, e.g. \"2026-08-26 14:30:00\"")
	receiveCmd.Flags().StringVar(&receiveOpts.stopTime, "stop-time", "",
		"scheduled stop")
	receiveCmd.MarkFlagRequired("packet-size")
}

func runReceive(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError("failed to load config", err)
	}
	logger := log.GetLogger()

	if receiveOpts.packetSize <= 0 {
		exitWithError("packet size must be positive", nil)
	}
	start, stop, err := parseSchedule(receiveOpts.startTime, receiveOpts.stopTime)
	if err != nil {
		exitWithError("bad schedule", err)
	}

	dev, err := openDevice(cfg)
	if err != nil {
		exitWithError("failed to open device", err)
	}

	sink, err := pcap.CreateWriter(args[0], cfg.Capture.SnapLen)
	if err != nil {
		exitWithError("failed to create capture file", err)
	}

	err = dev.ctl.Receive(sink, receiveOpts.packetSize, receiveOpts.count, start, stop)
	if err != nil {
		sink.Close()
		exitWithError("failed to arm capture", err)
	}
	if start != nil {
		logger.Infof("capture armed for %s", start)
	}

	ctx, cancelSignal := signalContext()
	defer cancelSignal()
	go func() {
		<-ctx.Done()
		dev.ctl.CancelReceive()
	}()

	result, err := dev.ctl.WaitReceive(context.Background())
	if cerr := sink.Close(); cerr != nil {
		logger.Errorf("close capture file: %v", cerr)
	}
	if err != nil {
		exitWithError("capture wait failed", err)
	}
	if result.Err != nil && !errors.Is(result.Err, core.ErrCancelled) {
		exitWithError("capture failed", result.Err)
	}

	stats := result.Stats
	if errors.Is(result.Err, core.ErrCancelled) {
		logger.Warnf("capture cancelled after %d packets", stats.Packets)
	}
	fmt.Printf("captured %d packets (%d bytes) to %s\n", stats.Packets, stats.Bytes, args[0])
	if stats.DurationNanos > 0 {
		fmt.Printf("duration %d ns, %.3f Gbit/s\n", stats.DurationNanos, stats.RateGbps())
	}
}
