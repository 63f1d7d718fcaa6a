package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/pcap"
	"firestige.xyz/strix/internal/rate"
)

var transmitOpts struct {
	rateGbps  float64
	burstSize int
	burstGap  int64
	loops     uint64
	startTime string
	stopTime  string
	wait      bool
}

var transmitCmd = &cobra.Command{
	Use:   "transmit <capture-file>",
	Short: "Load a capture file into the card and transmit it",
	Long: `Transmit stages the packets of a capture file (.pcap or .pcapng) into
the card's memory buffers, programs the transmit rate, and either starts
immediately or arms the start/stop schedule against the PTP clock.`,
	Args: cobra.ExactArgs(1),
	Run:  runTransmit,
}

func init() {
	rootCmd.AddCommand(transmitCmd)
	transmitCmd.Flags().Float64Var(&transmitOpts.rateGbps, "rate", 100.0,
		"target line rate in Gbit/s (data + inter-frame overhead)")
	transmitCmd.Flags().IntVar(&transmitOpts.burstSize, "burst-size", 1,
		"packets per burst")
	transmitCmd.Flags().Int64Var(&transmitOpts.burstGap, "burst-gap", 0,
		"explicit burst gap in nanoseconds (overrides --rate)")
	transmitCmd.Flags().Uint64Var(&transmitOpts.loops, "loops", 1,
		"number of times to send the stream")
	transmitCmd.Flags().StringVar(&transmitOpts.startTime, "start-time", "",
		"scheduled start, e.g. \"2026-08-26 14:30:00\"")
	transmitCmd.Flags().StringVar(&transmitOpts.stopTime, "stop-time", "",
		"scheduled stop")
	transmitCmd.Flags().BoolVar(&transmitOpts.wait, "wait", true,
		"block until the whole stream has been sent")
}

func runTransmit(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError("failed to load config", err)
	}
	logger := log.GetLogger()

	start, stop, err := parseSchedule(transmitOpts.startTime, transmitOpts.stopTime)
	if err != nil {
		exitWithError("bad schedule", err)
	}

	dev, err := openDevice(cfg)
	if err != nil {
		exitWithError("failed to open device", err)
	}

	path := args[0]
	src, err := pcap.OpenReader(path)
	if err != nil {
		exitWithError("failed to open capture file", err)
	}
	defer src.Close()

	if err := dev.ctl.Load(path, src); err != nil {
		exitWithError("load rejected", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := dev.ctl.WaitLoaded(ctx); err != nil {
		exitWithError("load failed", err)
	}

	err = dev.ctl.Configure(rate.Config{
		BurstSize: transmitOpts.burstSize,
		BurstGap:  transmitOpts.burstGap,
		RateGbps:  transmitOpts.rateGbps,
		Loops:     transmitOpts.loops,
	})
	if err != nil {
		exitWithError("failed to configure transmit", err)
	}

	if err := dev.ctl.Transmit(start, stop); err != nil {
		exitWithError("failed to start transmit", err)
	}

	// With a scheduled start the counter stays at zero until the clock
	// fires, so the settle-wait would just spin through the armed period.
	if start != nil {
		logger.Infof("transmit armed for %s, exiting without waiting for the counter", start)
		return
	}
	if transmitOpts.wait {
		waitTransmit(ctx, dev, time.Second)
	}
}

// waitTransmit polls the sent counter until it stops advancing after at
// least one packet went out, or the context is cancelled.
func waitTransmit(ctx context.Context, dev *device, interval time.Duration) {
	logger := log.GetLogger()
	var last uint64
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Warnf("interrupted, %d packets sent", last)
			return
		case <-ticker.C:
			sent, err := dev.ctl.TxPacketCount()
			if err != nil {
				exitWithError("failed to read sent counter", err)
			}
			if sent > 0 && sent == last {
				logger.Infof("transmit finished: %d packets sent", sent)
				fmt.Printf("sent %d packets\n", sent)
				return
			}
			last = sent
		}
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
