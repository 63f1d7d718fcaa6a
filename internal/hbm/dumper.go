package hbm

import (
	"errors"
	"fmt"
	"io"

	"firestige.xyz/strix/internal/fpga"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/ptp"
)

func isEOF(err error) bool { return errors.Is(err, io.EOF) }

// DumpStats summarises a drain of the capture buffers.
type DumpStats struct {
	Packets uint64
	Bytes   int64

	// First/Last are the hardware timestamps of the first and last
	// decoded record (timestamped captures only).
	First, Last ptp.Timestamp

	// DurationNanos is Last - First as exact integer nanoseconds.
	DurationNanos int64
}

// RateGbps is the average capture rate implied by the stats, for display
// only.
func (s DumpStats) RateGbps() float64 {
	if s.DurationNanos <= 0 {
		return 0
	}
	return float64(8*s.Bytes) / float64(s.DurationNanos)
}

// Dumper decodes captured records buffer-by-buffer. The hardware records a
// high-water mark per physical buffer rather than one overall length, and a
// record may straddle two buffers, so the unconsumed tail of each buffer is
// carried into the next before re-chunking.
type Dumper struct {
	bm          *BufferMap
	regs        fpga.RegisterIO
	packetSize  int
	timestamped bool

	// maxPackets bounds decoding; 0 means decode everything present.
	// The buffers are over-allocated relative to the capture length, so
	// bytes beyond the configured count are stale.
	maxPackets uint64

	log log.Logger
}

func NewDumper(bm *BufferMap, regs fpga.RegisterIO, packetSize int, timestamped bool, maxPackets uint64) *Dumper {
	return &Dumper{
		bm:          bm,
		regs:        regs,
		packetSize:  packetSize,
		timestamped: timestamped,
		maxPackets:  maxPackets,
		log:         log.GetLogger(),
	}
}

// Dump walks the buffers and writes decoded records to the sink. A buffer
// reporting zero valid bytes ends the walk; later buffers cannot hold data.
func (d *Dumper) Dump(sink RecordSink) (DumpStats, error) {
	var stats DumpStats
	stride := int64(Stride(d.packetSize, d.timestamped))
	var carry []byte

	for buffer := 1; buffer <= d.bm.NumBuffers(); buffer++ {
		end, err := d.regs.ReadRegister(fpga.RxBufferEndAddr(buffer))
		if err != nil {
			return stats, fmt.Errorf("end address of buffer %d: %w", buffer, err)
		}
		if end == 0 {
			break
		}
		d.log.Debugf("reading %d B from buffer %d", end, buffer)
		raw, err := d.bm.ReadBuffer(buffer, int64(end))
		if err != nil {
			return stats, err
		}
		if len(carry) > 0 {
			raw = append(carry, raw...)
			carry = nil
		}
		if rem := int64(len(raw)) % stride; rem != 0 {
			// The remainder continues in the next buffer.
			carry = append([]byte(nil), raw[int64(len(raw))-rem:]...)
			raw = raw[:int64(len(raw))-rem]
		}
		done, err := d.decodeChunks(raw, stride, sink, &stats)
		if err != nil {
			return d.finish(stats), err
		}
		if done {
			return d.finish(stats), nil
		}
	}
	if len(carry) > 0 {
		// A record that ends mid-buffer with no continuation cannot be
		// trusted; drop it rather than emit a truncated packet.
		d.log.Warnf("discarding %d trailing bytes of a partial record", len(carry))
	}
	return d.finish(stats), nil
}

func (d *Dumper) finish(stats DumpStats) DumpStats {
	if d.timestamped && stats.Packets > 0 {
		stats.DurationNanos = stats.Last.Sub(stats.First)
	}
	return stats
}

func (d *Dumper) decodeChunks(raw []byte, stride int64, sink RecordSink, stats *DumpStats) (bool, error) {
	for len(raw) > 0 {
		if d.maxPackets > 0 && stats.Packets >= d.maxPackets {
			return true, nil
		}
		chunk := raw[:stride]
		raw = raw[stride:]

		payload := chunk[:d.packetSize]
		var ts ptp.Timestamp
		if d.timestamped {
			var err error
			off := PaddedSize(d.packetSize)
			ts, err = ptp.TimestampFromBytes(chunk[off : off+ptp.TimestampSize])
			if err != nil {
				return false, err
			}
			if stats.Packets == 0 {
				stats.First = ts
			}
			stats.Last = ts
		}
		if err := sink.WriteRecord(payload, ts); err != nil {
			return false, err
		}
		stats.Packets++
		stats.Bytes += int64(d.packetSize)
	}
	return d.maxPackets > 0 && stats.Packets >= d.maxPackets, nil
}
