// Package rate converts target throughput and burst shape into the timing
// and transfer counts the transmit engine is programmed with.
package rate

import (
	"fmt"
	"math"

	"firestige.xyz/strix/internal/hbm"
)

// Ethernet on-wire overhead per packet, in bytes.
const (
	InterFrameGap      = 20
	FrameCheckSequence = 4
)

// GapFromRate computes the burst period in nanoseconds (the time between
// successive burst starts) for a target rate in Gbps. The result is rounded
// up so the achieved rate never exceeds the request. A non-positive rate
// yields 0, meaning no gap can be derived.
func GapFromRate(packetSize int, rateGbps float64, burstSize int) int64 {
	if rateGbps <= 0 {
		return 0
	}
	lineBytes := packetSize + InterFrameGap + FrameCheckSequence
	packetRate := rateGbps * 1e9 / float64(lineBytes*8)
	return int64(math.Ceil(1e9 * float64(burstSize) / packetRate))
}

// Config is the operator's transmit shape request.
type Config struct {
	PacketSize  int
	PacketCount uint64
	BurstSize   int
	// BurstGap in nanoseconds; when non-zero it overrides RateGbps.
	BurstGap int64
	RateGbps float64
	Loops    uint64
}

// TxParams carries every derived value the transmit registers need.
type TxParams struct {
	PacketSize      uint64
	PacketCount     uint64
	BurstGap        uint64
	PacketsPerBurst uint64
	BeatsPerPacket  uint64
	BeatsPerBurst   uint64
	Bursts          uint64
	AxiTransactions uint64
	LoopEnable      bool
	Loops           uint64
}

// Calculate derives hardware transmit parameters from a Config.
func Calculate(cfg Config) (TxParams, error) {
	if cfg.PacketSize <= 0 {
		return TxParams{}, fmt.Errorf("packet size must be positive, got %d", cfg.PacketSize)
	}
	if cfg.PacketCount == 0 {
		return TxParams{}, fmt.Errorf("packet count must be positive")
	}
	burstSize := cfg.BurstSize
	if burstSize <= 0 {
		burstSize = 1
	}
	gap := cfg.BurstGap
	if gap == 0 {
		if cfg.RateGbps <= 0 {
			return TxParams{}, fmt.Errorf("either burst gap or rate must be given")
		}
		gap = GapFromRate(cfg.PacketSize, cfg.RateGbps, burstSize)
	}

	padded := uint64(hbm.PaddedSize(cfg.PacketSize))
	beatsPerPacket := padded / hbm.BeatSize
	p := TxParams{
		PacketSize:      uint64(cfg.PacketSize),
		PacketCount:     cfg.PacketCount,
		BurstGap:        uint64(gap),
		PacketsPerBurst: uint64(burstSize),
		BeatsPerPacket:  beatsPerPacket,
		BeatsPerBurst:   beatsPerPacket * uint64(burstSize),
		Bursts:          ceilDiv(cfg.PacketCount, uint64(burstSize)),
		AxiTransactions: ceilDiv(cfg.PacketCount*padded, hbm.AxiTransactionSize),
	}
	if cfg.Loops > 1 {
		p.LoopEnable = true
		p.Loops = cfg.Loops
	}
	return p, nil
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// AchievedGbps is the rate the gap actually yields for the packet size and
// burst, for log output.
func AchievedGbps(packetSize int, burstSize int, gapNanos int64) float64 {
	lineBits := float64((packetSize + InterFrameGap + FrameCheckSequence) * 8)
	return lineBits * float64(burstSize) / float64(gapNanos)
}
